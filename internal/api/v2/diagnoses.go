package api

import (
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/mediscan/internal/classifier"
	"github.com/tphakala/mediscan/internal/datastore"
	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/imagestore"
	"github.com/tphakala/mediscan/internal/knowledge"
)

// HistoryResponse is the body of GET /diagnoses.
type HistoryResponse struct {
	Records []datastore.DiagnosisRecord `json:"records"`
	Count   int                         `json:"count"`
}

func (c *Controller) initDiagnosisRoutes() {
	g := c.Group.Group("/diagnoses", c.AuthMiddleware)
	g.POST("/:organ", c.Analyze)
	g.GET("", c.History)
	g.GET("/:id", c.GetDiagnosis)
}

// Analyze handles POST /api/v2/diagnoses/:organ with a multipart "image".
func (c *Controller) Analyze(ctx echo.Context) error {
	organ, err := knowledge.ParseOrganType(ctx.Param("organ"))
	if err != nil {
		return c.HandleError(ctx, err)
	}

	img, err := c.readImage(ctx)
	if err != nil {
		return c.HandleError(ctx, err)
	}

	rec, err := c.diagnoses.Analyze(ctx.Request().Context(), SessionFromContext(ctx), organ, img)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusCreated, rec)
}

// History handles GET /api/v2/diagnoses, newest first.
func (c *Controller) History(ctx echo.Context) error {
	sess := SessionFromContext(ctx)
	records, err := c.diagnoses.History(ctx.Request().Context(), sess.User.ID)
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, HistoryResponse{Records: records, Count: len(records)})
}

// GetDiagnosis handles GET /api/v2/diagnoses/:id.
func (c *Controller) GetDiagnosis(ctx echo.Context) error {
	sess := SessionFromContext(ctx)
	rec, err := c.diagnoses.Get(ctx.Request().Context(), sess.User.ID, ctx.Param("id"))
	if err != nil {
		return c.HandleError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, rec)
}

// readImage reads the "image" form file up to the configured size limit.
func (c *Controller) readImage(ctx echo.Context) (classifier.Image, error) {
	fh, err := ctx.FormFile("image")
	if err != nil {
		return classifier.Image{}, uploadError(err, "form_file")
	}
	f, err := fh.Open()
	if err != nil {
		return classifier.Image{}, uploadError(err, "open")
	}
	defer f.Close()

	maxBytes := c.Settings.ImageStore.MaxBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxImageBytes
	}
	data, err := io.ReadAll(io.LimitReader(f, maxBytes+1))
	if err != nil {
		return classifier.Image{}, uploadError(err, "read")
	}

	img := classifier.Image{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get(echo.HeaderContentType),
		Data:        data,
	}
	if err := imagestore.Validate(img, maxBytes); err != nil {
		return classifier.Image{}, err
	}
	return img, nil
}

func uploadError(err error, operation string) error {
	return errors.New(fmt.Errorf("invalid image upload: %w", err)).
		Component("api").
		Category(errors.CategoryValidation).
		Context("operation", operation).
		Build()
}
