// config.go: settings struct for MediScan and functions to load and save it.
package conf

import (
	"crypto/rand"
	"embed"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/tphakala/mediscan/internal/logger"
	"github.com/tphakala/mediscan/internal/secrets"
)

//go:embed config.yaml
var configFiles embed.FS

// WebServerSettings configures the HTTP API server.
type WebServerSettings struct {
	Enabled      bool          // true to start the API server with serve
	Debug        bool          // true to enable echo debug mode
	Host         string        // listen address
	Port         string        // listen port
	BodyLimit    string        // max request body, echo notation ("12M")
	CORSOrigins  []string      // allowed CORS origins, empty disables CORS
	ReadTimeout  time.Duration // http.Server read timeout
	WriteTimeout time.Duration // http.Server write timeout
}

// SecuritySettings configures credential hashing and sessions.
type SecuritySettings struct {
	SessionSecret   string        // HMAC key for session tokens and cookies
	SessionDuration time.Duration // lifetime of a login session
	BcryptCost      int           // bcrypt work factor
	CookieSecure    bool          // mark session cookie Secure
	LoginRateLimit  float64       // login attempts per minute per client
	LoginBurst      int           // burst of login attempts allowed
	CleanupInterval time.Duration // expired session purge interval
}

// ClassifierSettings configures the external inference service.
type ClassifierSettings struct {
	Mode      string        // "http" or "mock"
	BrainURL  string        // brain MRI endpoint
	BreastURL string        // breast MRI endpoint
	APIKey    string        // optional bearer token for the service
	Timeout   time.Duration // per request timeout
	MockSeed  int64         // seed for the mock classifier, 0 uses time
}

// ResolverSettings configures label resolution.
type ResolverSettings struct {
	StrictUnmatched bool // unmatched labels get no guidance instead of the organ's first record
}

// DiagnosisSettings configures the diagnosis service.
type DiagnosisSettings struct {
	StagingTTL time.Duration // how long a classifier result is kept for retries
}

// LocalImageSettings configures filesystem image storage.
type LocalImageSettings struct {
	Path string // base directory for stored images
}

// S3ImageSettings configures S3 image storage.
type S3ImageSettings struct {
	Bucket    string
	Prefix    string
	Region    string
	Endpoint  string // custom endpoint, e.g. localstack or minio
	PathStyle bool
}

// ImageStoreSettings selects where uploaded images are kept.
type ImageStoreSettings struct {
	Type     string // "inline", "local" or "s3"
	MaxBytes int64  // upload size limit
	Local    LocalImageSettings
	S3       S3ImageSettings
}

// MQTTSettings configures the MQTT event publisher.
type MQTTSettings struct {
	Enabled  bool
	Broker   string // tcp://host:1883
	ClientID string
	Username string
	Password string
	Topic    string // base topic, organ is appended
	QoS      int
	Retain   bool
}

// KafkaSettings configures the Kafka event publisher.
type KafkaSettings struct {
	Enabled bool
	Brokers []string
	Topic   string
}

// SQSSettings configures the SQS event publisher.
type SQSSettings struct {
	Enabled   bool
	QueueName string
	Region    string
	Endpoint  string
}

// EventSettings configures diagnosis event fan-out.
type EventSettings struct {
	MQTT  MQTTSettings
	Kafka KafkaSettings
	SQS   SQSSettings
}

// SQLiteSettings configures the SQLite datastore.
type SQLiteSettings struct {
	Enabled bool
	Path    string
}

// MySQLSettings configures the MySQL datastore.
type MySQLSettings struct {
	Enabled  bool
	Username string
	Password string
	Host     string
	Port     string
	Database string
}

// SentrySettings configures error telemetry.
type SentrySettings struct {
	Enabled     bool
	DSN         string
	Environment string
	SampleRate  float64
}

// MetricsSettings configures the Prometheus endpoint.
type MetricsSettings struct {
	Enabled bool
	Path    string
}

// Settings contains all configuration options for MediScan.
type Settings struct {
	Debug bool // true to enable debug mode

	// Runtime values, not stored in config file
	Version   string `yaml:"-"`
	BuildDate string `yaml:"-"`

	Main struct {
		Name string               // instance name, included in events
		Log  logger.LoggingConfig // logging configuration
	}

	WebServer  WebServerSettings
	Security   SecuritySettings
	Classifier ClassifierSettings
	Resolver   ResolverSettings
	Diagnosis  DiagnosisSettings
	ImageStore ImageStoreSettings
	Events     EventSettings

	Output struct {
		SQLite SQLiteSettings
		MySQL  MySQLSettings
	}

	Sentry  SentrySettings
	Metrics MetricsSettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads defaults, the configuration file and environment variables.
// An empty configFile searches the default config paths; a missing file is
// not an error, defaults and environment apply.
func Load(configFile string) (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	v := viper.GetViper()
	if err := initViper(v, configFile); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings, err := unmarshalSettings(v)
	if err != nil {
		return nil, err
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// unmarshalSettings decodes and validates settings from v.
func unmarshalSettings(v *viper.Viper) (*Settings, error) {
	settings := &Settings{}
	if err := v.Unmarshal(settings); err != nil {
		return nil, fmt.Errorf("error unmarshaling config into struct: %w", err)
	}

	if err := resolveSecrets(settings); err != nil {
		return nil, err
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	if settings.Security.SessionSecret == "" {
		settings.Security.SessionSecret = GenerateRandomSecret()
		GetLogger().Warn("security.sessionsecret not set, generated an ephemeral secret; sessions will not survive a restart")
	}

	return settings, nil
}

// resolveSecrets expands environment references and "file:" paths in the
// credential fields.
func resolveSecrets(settings *Settings) error {
	fields := map[string]*string{
		"security.sessionsecret": &settings.Security.SessionSecret,
		"classifier.apikey":      &settings.Classifier.APIKey,
		"events.mqtt.password":   &settings.Events.MQTT.Password,
		"output.mysql.password":  &settings.Output.MySQL.Password,
		"sentry.dsn":             &settings.Sentry.DSN,
	}
	for key, field := range fields {
		if *field == "" {
			continue
		}
		resolved, err := secrets.Resolve(*field)
		if err != nil {
			return fmt.Errorf("error resolving %s: %w", key, err)
		}
		*field = resolved
	}
	return nil
}

// initViper sets defaults, env bindings and reads the configuration file.
func initViper(v *viper.Viper, configFile string) error {
	setDefaultConfig(v)

	if err := bindEnvVars(v); err != nil {
		// Invalid env values are reported but do not stop startup
		GetLogger().Warn("environment configuration issues", logger.Error(err))
	}

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		configPaths, err := GetDefaultConfigPaths()
		if err != nil {
			return fmt.Errorf("error getting default config paths: %w", err)
		}
		for _, path := range configPaths {
			v.AddConfigPath(path)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if configFile == "" && errors.As(err, &configFileNotFoundError) {
			GetLogger().Info("no config file found, using defaults")
			return nil
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}

	GetLogger().Debug("config file loaded", logger.String("path", v.ConfigFileUsed()))
	return nil
}

// WriteDefaultConfig writes the embedded default config to path with a fresh
// session secret. Existing files are never overwritten.
func WriteDefaultConfig(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	data, err := configFiles.ReadFile("config.yaml")
	if err != nil {
		return fmt.Errorf("error reading embedded config: %w", err)
	}

	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("error parsing embedded config: %w", err)
	}
	if security, ok := doc["security"].(map[string]any); ok {
		security["sessionsecret"] = GenerateRandomSecret()
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return fmt.Errorf("error marshaling default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}

	if err := os.WriteFile(path, out, 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	return nil
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveSettings writes the current settings to the config file in use.
func SaveSettings() error {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()

	if settingsInstance == nil {
		return fmt.Errorf("settings not loaded")
	}

	configPath := viper.ConfigFileUsed()
	if configPath == "" {
		var err error
		if configPath, err = FindConfigFile(); err != nil {
			return fmt.Errorf("error finding config file: %w", err)
		}
	}

	if err := SaveYAMLConfig(configPath, settingsInstance); err != nil {
		return fmt.Errorf("error saving config: %w", err)
	}

	GetLogger().Info("settings saved", logger.String("path", configPath))
	return nil
}

// SaveYAMLConfig writes settings to configPath atomically via a temp file.
// Comments and layout of an existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer os.Remove(tempFileName) //nolint:errcheck // already renamed on success

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := os.Rename(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}

	return nil
}

// GenerateRandomSecret returns 256 bits of URL-safe base64 encoded randomness.
func GenerateRandomSecret() string {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		GetLogger().Error("failed to generate random secret", logger.Error(err))
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}

// ListenAddress returns host:port for the web server.
func (s *Settings) ListenAddress() string {
	return s.WebServer.Host + ":" + s.WebServer.Port
}
