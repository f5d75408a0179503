package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/mediscan/internal/account"
	"github.com/tphakala/mediscan/internal/datastore"
	"github.com/tphakala/mediscan/internal/diagnosis"
	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/logger"
)

const sessionContextKey = "session"

// SignupRequest is the body of POST /auth/signup.
type SignupRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SessionResponse describes an active session.
type SessionResponse struct {
	Token     string          `json:"token,omitempty"`
	ExpiresAt time.Time       `json:"expiresAt"`
	User      *datastore.User `json:"user"`
}

// initAuthRoutes registers the account endpoints.
func (c *Controller) initAuthRoutes() {
	authGroup := c.Group.Group("/auth")

	authGroup.POST("/signup", c.Signup)
	authGroup.POST("/login", c.Login, c.loginRateLimit)
	authGroup.POST("/logout", c.Logout)
	authGroup.GET("/session", c.GetSession, c.AuthMiddleware)
}

// Signup handles POST /api/v2/auth/signup.
func (c *Controller) Signup(ctx echo.Context) error {
	var req SignupRequest
	if err := ctx.Bind(&req); err != nil {
		return c.writeError(ctx, err, "Invalid signup request", http.StatusBadRequest)
	}

	sess, err := c.accounts.Signup(ctx.Request().Context(), req.FullName, req.Email, req.Password)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return c.startSession(ctx, sess, http.StatusCreated)
}

// Login handles POST /api/v2/auth/login.
func (c *Controller) Login(ctx echo.Context) error {
	var req LoginRequest
	if err := ctx.Bind(&req); err != nil {
		return c.writeError(ctx, err, "Invalid login request", http.StatusBadRequest)
	}

	sess, err := c.accounts.Login(ctx.Request().Context(), req.Email, req.Password)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return c.startSession(ctx, sess, http.StatusOK)
}

// Logout handles POST /api/v2/auth/logout. It succeeds without a session.
func (c *Controller) Logout(ctx echo.Context) error {
	if err := c.accounts.Logout(ctx.Request().Context(), c.requestToken(ctx)); err != nil {
		return c.HandleError(ctx, err)
	}
	if c.cookies != nil {
		if err := c.cookies.Clear(ctx.Response(), ctx.Request()); err != nil {
			c.log.Warn("failed to clear session cookie", logger.Error(err))
		}
	}
	return ctx.NoContent(http.StatusNoContent)
}

// GetSession handles GET /api/v2/auth/session.
func (c *Controller) GetSession(ctx echo.Context) error {
	sess := SessionFromContext(ctx)
	return ctx.JSON(http.StatusOK, SessionResponse{ExpiresAt: sess.ExpiresAt, User: sess.User})
}

func (c *Controller) startSession(ctx echo.Context, sess *account.Session, status int) error {
	if c.cookies != nil {
		if err := c.cookies.Save(ctx.Response(), ctx.Request(), sess.Token); err != nil {
			c.log.Warn("failed to set session cookie", logger.Error(err))
		}
	}
	return ctx.JSON(status, SessionResponse{Token: sess.Token, ExpiresAt: sess.ExpiresAt, User: sess.User})
}

// AuthMiddleware resolves the session from a bearer token or the session
// cookie and rejects the request when there is none.
func (c *Controller) AuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		sess, err := c.accounts.CurrentSession(ctx.Request().Context(), c.requestToken(ctx))
		if err != nil {
			return c.HandleError(ctx, err)
		}
		if sess == nil {
			return c.HandleError(ctx, errors.New(diagnosis.ErrNoSession).
				Component("api").
				Category(errors.CategoryAuthentication).
				Build())
		}
		ctx.Set(sessionContextKey, sess)
		return next(ctx)
	}
}

// SessionFromContext returns the session stored by AuthMiddleware, or nil.
func SessionFromContext(ctx echo.Context) *account.Session {
	sess, _ := ctx.Get(sessionContextKey).(*account.Session)
	return sess
}

// requestToken prefers the Authorization header over the cookie.
func (c *Controller) requestToken(ctx echo.Context) string {
	header := ctx.Request().Header.Get(echo.HeaderAuthorization)
	if scheme, token, ok := strings.Cut(header, " "); ok && strings.EqualFold(scheme, "Bearer") {
		return strings.TrimSpace(token)
	}
	if c.cookies != nil {
		return c.cookies.Token(ctx.Request())
	}
	return ""
}

func (c *Controller) loginRateLimit(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if !c.limiter.Allow(ctx.RealIP()) {
			if c.metrics != nil {
				c.metrics.HTTP.RecordRateLimited(ctx.Path())
			}
			ctx.Response().Header().Set("Retry-After", "60")
			return c.writeError(ctx, nil, "Too many login attempts", http.StatusTooManyRequests)
		}
		return next(ctx)
	}
}
