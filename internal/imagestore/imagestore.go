// Package imagestore keeps uploaded scans and returns a reference for the
// diagnosis record.
package imagestore

import (
	"context"
	"fmt"
	"mime"
	"net/http"
	"strings"

	"github.com/tphakala/mediscan/internal/classifier"
	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/knowledge"
	"github.com/tphakala/mediscan/internal/logger"
)

// Sentinel errors for rejected uploads.
var (
	ErrUnsupportedType = errors.NewStd("unsupported image type")
	ErrTooLarge        = errors.NewStd("image too large")
	ErrEmptyImage      = errors.NewStd("image is empty")
)

// Store persists an image and returns a reference to it.
type Store interface {
	Put(ctx context.Context, organ knowledge.OrganType, img classifier.Image) (string, error)
}

// GetLogger returns the imagestore module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("imagestore")
}

// New returns the store selected by settings. The S3 store loads AWS
// configuration from the environment.
func New(ctx context.Context, settings *conf.ImageStoreSettings) (Store, error) {
	switch settings.Type {
	case conf.ImageStoreInline, "":
		return NewInline(settings.MaxBytes), nil
	case conf.ImageStoreLocal:
		return NewLocal(settings.Local.Path, settings.MaxBytes)
	case conf.ImageStoreS3:
		return NewS3(ctx, &settings.S3, settings.MaxBytes)
	default:
		return nil, errors.Newf("unknown image store type %q", settings.Type).
			Component("imagestore").
			Category(errors.CategoryConfiguration).
			Build()
	}
}

// ContentType returns the declared content type of img without parameters,
// sniffing the data when none was declared.
func ContentType(img classifier.Image) string {
	ct := img.ContentType
	if ct == "" || ct == "application/octet-stream" {
		ct = http.DetectContentType(img.Data)
	}
	if mt, _, err := mime.ParseMediaType(ct); err == nil {
		return mt
	}
	return strings.ToLower(strings.TrimSpace(ct))
}

// Validate checks that img is a non-empty image/* upload within maxBytes.
// A maxBytes of zero or less disables the size check.
func Validate(img classifier.Image, maxBytes int64) error {
	if len(img.Data) == 0 {
		return rejectError(ErrEmptyImage, errors.CategoryValidation, img)
	}
	if maxBytes > 0 && int64(len(img.Data)) > maxBytes {
		return rejectError(fmt.Errorf("%w: %d bytes exceeds limit of %d", ErrTooLarge, len(img.Data), maxBytes),
			errors.CategoryLimit, img)
	}
	if ct := ContentType(img); !strings.HasPrefix(ct, "image/") {
		return rejectError(fmt.Errorf("%w: %s", ErrUnsupportedType, ct), errors.CategoryValidation, img)
	}
	return nil
}

// extension picks a file extension from the upload name or its content type.
func extension(img classifier.Image) string {
	if ext := img.Extension(); ext != "" {
		return ext
	}
	switch ct := ContentType(img); ct {
	case "image/jpeg":
		return ".jpg"
	default:
		if exts, err := mime.ExtensionsByType(ct); err == nil && len(exts) > 0 {
			return exts[0]
		}
	}
	return ".img"
}

func rejectError(cause error, category errors.ErrorCategory, img classifier.Image) error {
	return errors.New(cause).
		Component("imagestore").
		Category(category).
		Context("filename", img.Filename).
		Context("size", len(img.Data)).
		Build()
}

func storageError(cause error, backend, operation string) error {
	return errors.New(cause).
		Component("imagestore").
		Category(errors.CategoryImageStorage).
		Context("backend", backend).
		Context("operation", operation).
		Build()
}
