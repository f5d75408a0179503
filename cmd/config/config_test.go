package config

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tphakala/mediscan/internal/conf"
)

func TestRedact(t *testing.T) {
	t.Parallel()

	s := &conf.Settings{}
	s.Security.SessionSecret = "super-secret-value-that-is-long-enough"
	s.Output.MySQL.Password = "dbpass"
	s.WebServer.Port = "8080"

	r := Redact(s)
	assert.Equal(t, redacted, r.Security.SessionSecret)
	assert.Equal(t, redacted, r.Output.MySQL.Password)
	assert.Empty(t, r.Classifier.APIKey)
	assert.Equal(t, "8080", r.WebServer.Port)
	assert.Equal(t, "dbpass", s.Output.MySQL.Password, "original must be untouched")
}

func TestConfigCommandHidesSecrets(t *testing.T) {
	t.Parallel()

	s := &conf.Settings{}
	s.Security.SessionSecret = "super-secret-value-that-is-long-enough"
	s.Classifier.Mode = "mock"

	var out bytes.Buffer
	cmd := Command(s)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{})
	require.NoError(t, cmd.Execute())

	assert.Contains(t, out.String(), "mode: mock")
	assert.NotContains(t, out.String(), "super-secret-value")
}

func TestConfigInitWritesFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	var out bytes.Buffer
	cmd := Command(&conf.Settings{})
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"init", path})
	require.NoError(t, cmd.Execute())
	assert.FileExists(t, path)

	// a second run must not overwrite it
	cmd = Command(&conf.Settings{})
	cmd.SetOut(&out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"init", path})
	assert.Error(t, cmd.Execute())
}
