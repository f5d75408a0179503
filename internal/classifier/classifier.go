package classifier

import (
	"context"
	"fmt"
	"strings"

	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/knowledge"
	"github.com/tphakala/mediscan/internal/logger"
)

// ErrClassificationFailed is returned when the service fails or answers with
// something unusable. No record is created for such a request.
var ErrClassificationFailed = errors.NewStd("classification failed")

// Image is an uploaded scan.
type Image struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Extension returns the lowercase file extension of the image name, with dot.
func (img Image) Extension() string {
	i := strings.LastIndexByte(img.Filename, '.')
	if i < 0 || i == len(img.Filename)-1 {
		return ""
	}
	return strings.ToLower(img.Filename[i:])
}

// Classifier classifies an image for the given organ.
type Classifier interface {
	Classify(ctx context.Context, organ knowledge.OrganType, img Image) (Output, error)
}

// GetLogger returns the classifier module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("classifier")
}

func classificationError(cause error, organ knowledge.OrganType, op string) error {
	return errors.New(fmt.Errorf("%w: %w", ErrClassificationFailed, cause)).
		Component("classifier").
		Category(errors.CategoryClassification).
		Context("organ", organ.String()).
		Context("operation", op).
		Build()
}
