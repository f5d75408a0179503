// Package secrets resolves credentials given in settings as environment
// references or mounted secret files. Secret values are never logged.
package secrets

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/logger"
)

// FilePrefix marks a value that names a secret file, e.g.
// "file:/run/secrets/session_secret".
const FilePrefix = "file:"

const maxSecretFileSize = 64 * 1024

// ErrMissing is returned when a referenced variable or file yields nothing.
var ErrMissing = errors.NewStd("secret not available")

// Resolve returns the secret behind value. A FilePrefix value is read from
// disk; anything else gets ${VAR} and ${VAR:-default} expansion. Values
// without references are returned unchanged.
func Resolve(value string) (string, error) {
	if path, ok := strings.CutPrefix(value, FilePrefix); ok {
		return ReadFile(path)
	}
	if !strings.Contains(value, "${") {
		return value, nil
	}
	return Expand(value)
}

// Expand replaces ${VAR} and ${VAR:-default} references. A variable that is
// unset and has no default is an error.
func Expand(s string) (string, error) {
	var missing []string
	expanded := os.Expand(s, func(key string) string {
		name, def, hasDefault := strings.Cut(key, ":-")
		if v := os.Getenv(name); v != "" {
			return v
		}
		if !hasDefault {
			missing = append(missing, name)
		}
		return def
	})
	if len(missing) > 0 {
		return "", secretError(fmt.Errorf("%w: unset environment variable(s) %s", ErrMissing, strings.Join(missing, ", ")), "expand")
	}
	return expanded, nil
}

// ReadFile reads a secret file, trimming trailing newlines. Files readable
// by group or others are accepted with a warning.
func ReadFile(path string) (string, error) {
	clean := filepath.Clean(strings.TrimSpace(path))
	if clean == "." {
		return "", secretError(fmt.Errorf("%w: empty secret file path", ErrMissing), "read_file")
	}

	info, err := os.Stat(clean)
	if err != nil {
		return "", secretError(fmt.Errorf("%w: %w", ErrMissing, err), "read_file")
	}
	if !info.Mode().IsRegular() {
		return "", secretError(fmt.Errorf("secret path %s is not a regular file", clean), "read_file")
	}
	if info.Size() > maxSecretFileSize {
		return "", secretError(fmt.Errorf("secret file %s exceeds %d bytes", clean, maxSecretFileSize), "read_file")
	}
	if perm := info.Mode().Perm(); perm&0o077 != 0 {
		logger.Global().Module("secrets").Warn("secret file is readable by group or others",
			logger.String("path", clean),
			logger.String("mode", fmt.Sprintf("%04o", perm)))
	}

	data, err := os.ReadFile(clean)
	if err != nil {
		return "", secretError(err, "read_file")
	}
	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", secretError(fmt.Errorf("%w: secret file %s is empty", ErrMissing, clean), "read_file")
	}
	return secret, nil
}

func secretError(err error, operation string) error {
	return errors.New(err).
		Component("secrets").
		Category(errors.CategoryConfiguration).
		Context("operation", operation).
		Build()
}
