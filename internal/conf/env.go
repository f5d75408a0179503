// env.go - Environment variable configuration and validation for MediScan
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		{"debug", "MEDISCAN_DEBUG", validateEnvBool},
		{"main.log.default_level", "MEDISCAN_LOG_LEVEL", validateEnvLogLevel},

		{"webserver.host", "MEDISCAN_HOST", nil},
		{"webserver.port", "MEDISCAN_PORT", validateEnvPort},

		{"security.sessionsecret", "MEDISCAN_SESSION_SECRET", validateEnvSecret},
		{"security.sessionduration", "MEDISCAN_SESSION_DURATION", validateEnvDuration},
		{"security.bcryptcost", "MEDISCAN_BCRYPT_COST", validateEnvBcryptCost},

		{"classifier.mode", "MEDISCAN_CLASSIFIER_MODE", validateEnvClassifierMode},
		{"classifier.brainurl", "MEDISCAN_CLASSIFIER_BRAIN_URL", validateEnvURL},
		{"classifier.breasturl", "MEDISCAN_CLASSIFIER_BREAST_URL", validateEnvURL},
		{"classifier.apikey", "MEDISCAN_CLASSIFIER_API_KEY", nil},
		{"classifier.timeout", "MEDISCAN_CLASSIFIER_TIMEOUT", validateEnvDuration},

		{"resolver.strictunmatched", "MEDISCAN_STRICT_UNMATCHED", validateEnvBool},

		{"imagestore.type", "MEDISCAN_IMAGESTORE_TYPE", validateEnvImageStoreType},
		{"imagestore.s3.bucket", "MEDISCAN_S3_BUCKET", nil},
		{"imagestore.s3.endpoint", "MEDISCAN_S3_ENDPOINT", validateEnvURL},

		{"output.sqlite.path", "MEDISCAN_SQLITE_PATH", nil},
		{"output.mysql.enabled", "MEDISCAN_MYSQL_ENABLED", validateEnvBool},
		{"output.mysql.host", "MEDISCAN_MYSQL_HOST", nil},
		{"output.mysql.password", "MEDISCAN_MYSQL_PASSWORD", nil},

		{"sentry.enabled", "MEDISCAN_SENTRY_ENABLED", validateEnvBool},
		{"sentry.dsn", "MEDISCAN_SENTRY_DSN", validateEnvURL},
	}
}

// bindEnvVars sets up environment variable bindings with validation
func bindEnvVars(v *viper.Viper) error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := v.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("Failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate != nil {
			if envValue := os.Getenv(binding.EnvVar); envValue != "" {
				if err := binding.Validate(envValue); err != nil {
					warnings = append(warnings, fmt.Sprintf("Invalid %s value: %v", binding.EnvVar, err))
				}
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}

	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("invalid boolean value '%s': must be true/false, 1/0, t/f", value)
	}
	return nil
}

func validateEnvLogLevel(value string) error {
	switch strings.ToLower(value) {
	case "trace", "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("log level must be one of trace, debug, info, warn, error, got '%s'", value)
	}
}

func validateEnvPort(value string) error {
	port, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid port: %w", err)
	}
	if port < 1 || port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", port)
	}
	return nil
}

// validateEnvSecret never echoes the value back
func validateEnvSecret(value string) error {
	if len(value) < minSessionSecretLength {
		return fmt.Errorf("secret must be at least %d characters", minSessionSecretLength)
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return fmt.Errorf("invalid duration: %w", err)
	}
	if d <= 0 {
		return fmt.Errorf("duration must be positive, got %s", value)
	}
	return nil
}

func validateEnvBcryptCost(value string) error {
	cost, err := strconv.Atoi(value)
	if err != nil {
		return fmt.Errorf("invalid bcrypt cost: %w", err)
	}
	return validateBcryptCost(cost)
}

func validateEnvClassifierMode(value string) error {
	switch value {
	case ClassifierModeHTTP, ClassifierModeMock:
		return nil
	default:
		return fmt.Errorf("classifier mode must be %q or %q, got '%s'", ClassifierModeHTTP, ClassifierModeMock, value)
	}
}

func validateEnvImageStoreType(value string) error {
	switch value {
	case ImageStoreInline, ImageStoreLocal, ImageStoreS3:
		return nil
	default:
		return fmt.Errorf("image store type must be inline, local or s3, got '%s'", value)
	}
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("URL must include scheme and host")
	}
	return nil
}
