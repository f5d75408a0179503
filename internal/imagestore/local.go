package imagestore

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/tphakala/mediscan/internal/classifier"
	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/knowledge"
	"github.com/tphakala/mediscan/internal/logger"
)

const tempExt = ".temp"

// LocalStore writes images below a base directory.
type LocalStore struct {
	baseDir  string
	maxBytes int64
}

// NewLocal creates a LocalStore rooted at dir, creating it if needed.
func NewLocal(dir string, maxBytes int64) (*LocalStore, error) {
	base := conf.GetBasePath(dir)
	if err := os.MkdirAll(base, 0o750); err != nil {
		return nil, storageError(fmt.Errorf("failed to create image directory: %w", err), "local", "init")
	}
	return &LocalStore{baseDir: base, maxBytes: maxBytes}, nil
}

// BaseDir returns the absolute directory images are written to.
func (s *LocalStore) BaseDir() string {
	return s.baseDir
}

// Put writes the image as <organ>/<uuid><ext> and returns that relative
// path. The file appears atomically.
func (s *LocalStore) Put(ctx context.Context, organ knowledge.OrganType, img classifier.Image) (string, error) {
	if err := Validate(img, s.maxBytes); err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", storageError(err, "local", "put")
	}

	ref := path.Join(organ.String(), uuid.NewString()+extension(img))
	target := filepath.Join(s.baseDir, filepath.FromSlash(ref))
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		return "", storageError(fmt.Errorf("failed to create organ directory: %w", err), "local", "put")
	}

	tempPath := target + tempExt
	if err := os.WriteFile(tempPath, img.Data, 0o640); err != nil {
		return "", storageError(fmt.Errorf("failed to write image: %w", err), "local", "put")
	}
	if err := os.Rename(tempPath, target); err != nil {
		_ = os.Remove(tempPath)
		return "", storageError(fmt.Errorf("failed to finalize image: %w", err), "local", "put")
	}

	GetLogger().Debug("image stored",
		logger.String("ref", ref),
		logger.Int("size", len(img.Data)))
	return ref, nil
}
