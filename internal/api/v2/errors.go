package api

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/mediscan/internal/account"
	mw "github.com/tphakala/mediscan/internal/api/middleware"
	"github.com/tphakala/mediscan/internal/classifier"
	"github.com/tphakala/mediscan/internal/diagnosis"
	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/imagestore"
	"github.com/tphakala/mediscan/internal/knowledge"
	"github.com/tphakala/mediscan/internal/logger"
	"github.com/tphakala/mediscan/internal/privacy"
	"github.com/tphakala/mediscan/internal/telemetry"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	Code          int    `json:"code"`
	CorrelationID string `json:"correlation_id"` // matches the X-Request-ID header
}

// NewErrorResponse builds an error body. Server side failures never expose
// their cause, except a classifier failure whose scrubbed cause is returned
// so the client can tell an unreachable service from a rejected scan.
func NewErrorResponse(err error, message string, code int, correlationID string) *ErrorResponse {
	errorStr := message
	if err != nil && (code < http.StatusInternalServerError || code == http.StatusBadGateway) {
		errorStr = privacy.ScrubMessage(err.Error())
	}
	return &ErrorResponse{
		Error:         errorStr,
		Message:       message,
		Code:          code,
		CorrelationID: correlationID,
	}
}

// HandleError writes the error response for err with the status derived
// from its sentinel or category.
func (c *Controller) HandleError(ctx echo.Context, err error) error {
	code, message := statusFor(err)
	return c.writeError(ctx, err, message, code)
}

func (c *Controller) writeError(ctx echo.Context, err error, message string, code int) error {
	resp := NewErrorResponse(err, message, code, mw.RequestID(ctx))

	fields := []logger.Field{
		logger.String("correlation_id", resp.CorrelationID),
		logger.Int("code", code),
		logger.String("path", ctx.Path()),
		logger.String("method", ctx.Request().Method),
		logger.String("ip", ctx.RealIP()),
	}
	if err != nil {
		fields = append(fields, logger.Error(privacy.WrapError(err)))
	}
	log := c.log.WithContext(ctx.Request().Context())
	if code >= http.StatusInternalServerError {
		log.Error(message, fields...)
		telemetry.CaptureError(err, "api")
	} else {
		log.Debug(message, fields...)
	}

	return ctx.JSON(code, resp)
}

// HTTPErrorHandler renders errors that escape handlers, such as unknown
// routes and oversized bodies, in the API error format.
func (c *Controller) HTTPErrorHandler(err error, ctx echo.Context) {
	if ctx.Response().Committed {
		return
	}
	var he *echo.HTTPError
	if errors.As(err, &he) {
		message := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok {
			message = m
		}
		_ = c.writeError(ctx, err, message, he.Code)
		return
	}
	_ = c.HandleError(ctx, err)
}

type statusRule struct {
	target  error
	code    int
	message string
}

// statusRules are checked in order before falling back to the category.
var statusRules = []statusRule{
	{account.ErrDuplicateEmail, http.StatusConflict, "Email is already registered"},
	{account.ErrUserNotFound, http.StatusNotFound, "No account for this email"},
	{account.ErrInvalidCredentials, http.StatusUnauthorized, "Invalid credentials"},
	{account.ErrInvalidInput, http.StatusBadRequest, "Invalid input"},
	{diagnosis.ErrNoSession, http.StatusUnauthorized, "Authentication required"},
	{diagnosis.ErrRecordNotFound, http.StatusNotFound, "Diagnosis not found"},
	{knowledge.ErrUnknownOrgan, http.StatusBadRequest, "Unknown organ type"},
	{imagestore.ErrEmptyImage, http.StatusBadRequest, "Image is empty"},
	{imagestore.ErrUnsupportedType, http.StatusBadRequest, "Unsupported image type"},
	{imagestore.ErrTooLarge, http.StatusRequestEntityTooLarge, "Image is too large"},
	{classifier.ErrClassificationFailed, http.StatusBadGateway, "Classification failed"},
	{diagnosis.ErrPersistence, http.StatusInternalServerError, "Failed to save diagnosis"},
}

func statusFor(err error) (code int, message string) {
	for _, rule := range statusRules {
		if errors.Is(err, rule.target) {
			return rule.code, rule.message
		}
	}

	var ee *errors.EnhancedError
	if errors.As(err, &ee) {
		switch ee.Category {
		case errors.CategoryValidation:
			return http.StatusBadRequest, "Invalid input"
		case errors.CategoryNotFound:
			return http.StatusNotFound, "Not found"
		case errors.CategoryConflict:
			return http.StatusConflict, "Conflict"
		case errors.CategoryAuthentication:
			return http.StatusUnauthorized, "Authentication required"
		case errors.CategoryLimit:
			return http.StatusTooManyRequests, "Limit exceeded"
		case errors.CategoryClassification:
			return http.StatusBadGateway, "Classification failed"
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}
