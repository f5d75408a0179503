package telemetry

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/privacy"
)

const systemIDFile = ".system_id"

// LoadOrCreateSystemID returns the installation id stored in dir, creating
// it on first use. The id tags telemetry events and carries no personal data.
func LoadOrCreateSystemID(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fileError(err, "create_dir")
	}
	path := filepath.Join(dir, systemIDFile)

	if data, err := os.ReadFile(path); err == nil {
		if id := strings.TrimSpace(string(data)); privacy.IsValidSystemID(id) {
			return id, nil
		}
	}

	id, err := privacy.GenerateSystemID()
	if err != nil {
		return "", fileError(err, "generate")
	}
	if err := os.WriteFile(path, []byte(id), 0o600); err != nil {
		return "", fileError(err, "write")
	}
	return id, nil
}

func fileError(err error, operation string) error {
	return errors.New(err).
		Component("telemetry").
		Category(errors.CategoryFileIO).
		Context("operation", operation).
		Build()
}
