// conf/validate.go

package conf

import (
	"fmt"
	"net/url"
	"strconv"

	"github.com/labstack/gommon/bytes"
	"golang.org/x/crypto/bcrypt"
)

// Accepted values for enumerated settings
const (
	ClassifierModeHTTP = "http"
	ClassifierModeMock = "mock"

	ImageStoreInline = "inline"
	ImageStoreLocal  = "local"
	ImageStoreS3     = "s3"

	minSessionSecretLength = 32
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	validators := []func(*Settings) []string{
		validateWebServerSettings,
		validateSecuritySettings,
		validateClassifierSettings,
		validateImageStoreSettings,
		validateEventSettings,
		validateOutputSettings,
		validateSentrySettings,
	}
	for _, validate := range validators {
		ve.Errors = append(ve.Errors, validate(settings)...)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateWebServerSettings(s *Settings) []string {
	var errs []string
	if port, err := strconv.Atoi(s.WebServer.Port); err != nil || port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("webserver.port must be between 1 and 65535, got %q", s.WebServer.Port))
	}
	if s.WebServer.BodyLimit != "" {
		// echo panics on an unparsable limit, check it up front
		if _, err := bytes.Parse(s.WebServer.BodyLimit); err != nil {
			errs = append(errs, fmt.Sprintf("webserver.bodylimit is invalid: %v", err))
		}
	}
	return errs
}

func validateSecuritySettings(s *Settings) []string {
	var errs []string
	if s.Security.SessionSecret != "" && len(s.Security.SessionSecret) < minSessionSecretLength {
		errs = append(errs, fmt.Sprintf("security.sessionsecret must be at least %d characters", minSessionSecretLength))
	}
	if s.Security.SessionDuration <= 0 {
		errs = append(errs, "security.sessionduration must be positive")
	}
	if err := validateBcryptCost(s.Security.BcryptCost); err != nil {
		errs = append(errs, "security.bcryptcost: "+err.Error())
	}
	if s.Security.LoginRateLimit < 0 {
		errs = append(errs, "security.loginratelimit must not be negative")
	}
	return errs
}

func validateClassifierSettings(s *Settings) []string {
	var errs []string
	switch s.Classifier.Mode {
	case ClassifierModeMock:
	case ClassifierModeHTTP:
		for name, raw := range map[string]string{"classifier.brainurl": s.Classifier.BrainURL, "classifier.breasturl": s.Classifier.BreastURL} {
			if err := validateEnvURL(raw); err != nil {
				errs = append(errs, fmt.Sprintf("%s: %v", name, err))
			}
		}
	default:
		errs = append(errs, fmt.Sprintf("classifier.mode must be %q or %q, got %q", ClassifierModeHTTP, ClassifierModeMock, s.Classifier.Mode))
	}
	if s.Classifier.Timeout <= 0 {
		errs = append(errs, "classifier.timeout must be positive")
	}
	return errs
}

func validateImageStoreSettings(s *Settings) []string {
	var errs []string
	switch s.ImageStore.Type {
	case ImageStoreInline:
	case ImageStoreLocal:
		if s.ImageStore.Local.Path == "" {
			errs = append(errs, "imagestore.local.path is required for local image storage")
		}
	case ImageStoreS3:
		if s.ImageStore.S3.Bucket == "" {
			errs = append(errs, "imagestore.s3.bucket is required for s3 image storage")
		}
	default:
		errs = append(errs, fmt.Sprintf("imagestore.type must be inline, local or s3, got %q", s.ImageStore.Type))
	}
	if s.ImageStore.MaxBytes <= 0 {
		errs = append(errs, "imagestore.maxbytes must be positive")
	}
	return errs
}

func validateEventSettings(s *Settings) []string {
	var errs []string
	if s.Events.MQTT.Enabled {
		if u, err := url.Parse(s.Events.MQTT.Broker); err != nil || u.Host == "" {
			errs = append(errs, fmt.Sprintf("events.mqtt.broker is invalid: %q", s.Events.MQTT.Broker))
		}
		if s.Events.MQTT.QoS < 0 || s.Events.MQTT.QoS > 2 {
			errs = append(errs, "events.mqtt.qos must be 0, 1 or 2")
		}
		if s.Events.MQTT.Topic == "" {
			errs = append(errs, "events.mqtt.topic is required")
		}
	}
	if s.Events.Kafka.Enabled && (len(s.Events.Kafka.Brokers) == 0 || s.Events.Kafka.Topic == "") {
		errs = append(errs, "events.kafka requires brokers and topic")
	}
	if s.Events.SQS.Enabled && s.Events.SQS.QueueName == "" {
		errs = append(errs, "events.sqs.queuename is required")
	}
	return errs
}

func validateOutputSettings(s *Settings) []string {
	var errs []string
	if s.Output.SQLite.Enabled && s.Output.MySQL.Enabled {
		errs = append(errs, "only one of output.sqlite and output.mysql can be enabled")
	}
	if !s.Output.SQLite.Enabled && !s.Output.MySQL.Enabled {
		errs = append(errs, "one of output.sqlite or output.mysql must be enabled")
	}
	if s.Output.SQLite.Enabled && s.Output.SQLite.Path == "" {
		errs = append(errs, "output.sqlite.path is required")
	}
	if s.Output.MySQL.Enabled && (s.Output.MySQL.Host == "" || s.Output.MySQL.Database == "") {
		errs = append(errs, "output.mysql requires host and database")
	}
	return errs
}

func validateSentrySettings(s *Settings) []string {
	if s.Sentry.Enabled && s.Sentry.DSN == "" {
		return []string{"sentry.dsn is required when sentry is enabled"}
	}
	if s.Sentry.SampleRate < 0 || s.Sentry.SampleRate > 1 {
		return []string{"sentry.samplerate must be between 0 and 1"}
	}
	return nil
}

func validateBcryptCost(cost int) error {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		return fmt.Errorf("must be between %d and %d, got %d", bcrypt.MinCost, bcrypt.MaxCost, cost)
	}
	return nil
}
