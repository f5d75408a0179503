package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// loadFromFile loads settings through a private viper instance.
func loadFromFile(t *testing.T, path string) *Settings {
	t.Helper()
	v := viper.New()
	require.NoError(t, initViper(v, path))
	settings, err := unmarshalSettings(v)
	require.NoError(t, err)
	return settings
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestEmbeddedDefaultsAreValid(t *testing.T) {
	t.Parallel()

	data, err := configFiles.ReadFile("config.yaml")
	require.NoError(t, err)

	settings := loadFromFile(t, writeConfig(t, string(data)))

	assert.Equal(t, "MediScan", settings.Main.Name)
	assert.Equal(t, ClassifierModeMock, settings.Classifier.Mode)
	assert.Equal(t, 7*24*time.Hour, settings.Security.SessionDuration)
	assert.Equal(t, 15*time.Minute, settings.Diagnosis.StagingTTL)
	assert.True(t, settings.Output.SQLite.Enabled)
	assert.Equal(t, []string{"localhost:9092"}, settings.Events.Kafka.Brokers)
	assert.Equal(t, "info", settings.Main.Log.DefaultLevel)
	require.NotNil(t, settings.Main.Log.Console)
	assert.True(t, settings.Main.Log.Console.Enabled)
	assert.Len(t, settings.Security.SessionSecret, 43, "empty secret is replaced by a generated one")
}

func TestFileOverridesDefaults(t *testing.T) {
	t.Parallel()

	path := writeConfig(t, `
webserver:
  port: "9090"
classifier:
  mode: http
  brainurl: https://ml.example.com/brain
  breasturl: https://ml.example.com/breast
  timeout: 5s
resolver:
  strictunmatched: true
security:
  sessionsecret: 0123456789abcdef0123456789abcdef
`)

	settings := loadFromFile(t, path)

	assert.Equal(t, "9090", settings.WebServer.Port)
	assert.Equal(t, ":9090", settings.ListenAddress())
	assert.Equal(t, ClassifierModeHTTP, settings.Classifier.Mode)
	assert.Equal(t, 5*time.Second, settings.Classifier.Timeout)
	assert.True(t, settings.Resolver.StrictUnmatched)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", settings.Security.SessionSecret)
	assert.Equal(t, 12, settings.Security.BcryptCost, "unset values keep defaults")
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("MEDISCAN_PORT", "7070")
	t.Setenv("MEDISCAN_STRICT_UNMATCHED", "true")

	settings := loadFromFile(t, writeConfig(t, "webserver:\n  port: \"9090\"\n"))

	assert.Equal(t, "7070", settings.WebServer.Port)
	assert.True(t, settings.Resolver.StrictUnmatched)
}

func TestSecretsAreResolved(t *testing.T) {
	t.Setenv("MEDISCAN_TEST_API_KEY", "key-from-env")
	secretFile := filepath.Join(t.TempDir(), "session_secret")
	require.NoError(t, os.WriteFile(secretFile, []byte("0123456789abcdef0123456789abcdef\n"), 0o600))

	settings := loadFromFile(t, writeConfig(t, `
classifier:
  apikey: ${MEDISCAN_TEST_API_KEY}
security:
  sessionsecret: file:`+secretFile+`
output:
  mysql:
    password: ${MEDISCAN_TEST_UNSET_PASSWORD:-fallback}
`))

	assert.Equal(t, "key-from-env", settings.Classifier.APIKey)
	assert.Equal(t, "0123456789abcdef0123456789abcdef", settings.Security.SessionSecret)
	assert.Equal(t, "fallback", settings.Output.MySQL.Password)
}

func TestUnresolvedSecretFails(t *testing.T) {
	t.Parallel()

	v := viper.New()
	require.NoError(t, initViper(v, writeConfig(t, "sentry:\n  dsn: ${MEDISCAN_TEST_NEVER_SET}\n")))

	_, err := unmarshalSettings(v)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sentry.dsn")
}

func TestInvalidFileIsRejected(t *testing.T) {
	t.Parallel()

	v := viper.New()
	require.NoError(t, initViper(v, writeConfig(t, "classifier:\n  mode: magic\n")))

	_, err := unmarshalSettings(v)
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Errors[0], "classifier.mode")
}

func TestMissingExplicitFileFails(t *testing.T) {
	t.Parallel()

	err := initViper(viper.New(), filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestWriteDefaultConfig(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, WriteDefaultConfig(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, yaml.Unmarshal(data, &doc))
	security, ok := doc["security"].(map[string]any)
	require.True(t, ok)
	assert.NotEmpty(t, security["sessionsecret"])

	assert.Error(t, WriteDefaultConfig(path), "existing config must not be overwritten")
}

func TestSaveYAMLConfigRoundTrip(t *testing.T) {
	t.Parallel()

	data, err := configFiles.ReadFile("config.yaml")
	require.NoError(t, err)
	settings := loadFromFile(t, writeConfig(t, string(data)))
	settings.WebServer.Port = "8181"
	settings.ImageStore.Type = ImageStoreLocal

	path := filepath.Join(t.TempDir(), "saved.yaml")
	require.NoError(t, SaveYAMLConfig(path, settings))

	reloaded := loadFromFile(t, path)
	assert.Equal(t, "8181", reloaded.WebServer.Port)
	assert.Equal(t, ImageStoreLocal, reloaded.ImageStore.Type)
	assert.Equal(t, settings.Security.SessionSecret, reloaded.Security.SessionSecret)
}
