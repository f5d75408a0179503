package imagestore

import (
	"context"
	"encoding/base64"

	"github.com/tphakala/mediscan/internal/classifier"
	"github.com/tphakala/mediscan/internal/knowledge"
)

// InlineStore embeds the image in the reference as a data URI.
type InlineStore struct {
	maxBytes int64
}

// NewInline creates an InlineStore.
func NewInline(maxBytes int64) *InlineStore {
	return &InlineStore{maxBytes: maxBytes}
}

// Put returns a data:<mime>;base64,<data> URI.
func (s *InlineStore) Put(_ context.Context, _ knowledge.OrganType, img classifier.Image) (string, error) {
	if err := Validate(img, s.maxBytes); err != nil {
		return "", err
	}
	return "data:" + ContentType(img) + ";base64," + base64.StdEncoding.EncodeToString(img.Data), nil
}
