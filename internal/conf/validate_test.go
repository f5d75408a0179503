package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func validSettings() *Settings {
	s := &Settings{}
	s.WebServer.Port = "8080"
	s.WebServer.BodyLimit = "12M"
	s.Security.SessionDuration = time.Hour
	s.Security.BcryptCost = 10
	s.Classifier.Mode = ClassifierModeMock
	s.Classifier.Timeout = time.Second
	s.ImageStore.Type = ImageStoreInline
	s.ImageStore.MaxBytes = 1024
	s.Output.SQLite.Enabled = true
	s.Output.SQLite.Path = "test.db"
	return s
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"valid", func(*Settings) {}, ""},
		{"bad port", func(s *Settings) { s.WebServer.Port = "99999" }, "webserver.port"},
		{"bad body limit", func(s *Settings) { s.WebServer.BodyLimit = "lots" }, "webserver.bodylimit"},
		{"short secret", func(s *Settings) { s.Security.SessionSecret = "short" }, "security.sessionsecret"},
		{"bcrypt cost too low", func(s *Settings) { s.Security.BcryptCost = 1 }, "security.bcryptcost"},
		{"http classifier needs urls", func(s *Settings) { s.Classifier.Mode = ClassifierModeHTTP }, "classifier.brainurl"},
		{"s3 needs bucket", func(s *Settings) { s.ImageStore.Type = ImageStoreS3 }, "imagestore.s3.bucket"},
		{"two datastores", func(s *Settings) { s.Output.MySQL.Enabled = true; s.Output.MySQL.Host = "db"; s.Output.MySQL.Database = "m" }, "only one"},
		{"no datastore", func(s *Settings) { s.Output.SQLite.Enabled = false }, "must be enabled"},
		{"mqtt qos", func(s *Settings) {
			s.Events.MQTT = MQTTSettings{Enabled: true, Broker: "tcp://broker:1883", Topic: "t", QoS: 3}
		}, "events.mqtt.qos"},
		{"kafka topic", func(s *Settings) { s.Events.Kafka = KafkaSettings{Enabled: true, Brokers: []string{"k:9092"}} }, "events.kafka"},
		{"sentry dsn", func(s *Settings) { s.Sentry.Enabled = true }, "sentry.dsn"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)

			err := ValidateSettings(s)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestValidateEnvValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		fn      func(string) error
		value   string
		wantErr bool
	}{
		{"bool ok", validateEnvBool, "true", false},
		{"bool bad", validateEnvBool, "maybe", true},
		{"port ok", validateEnvPort, "8080", false},
		{"port bad", validateEnvPort, "0", true},
		{"duration ok", validateEnvDuration, "15m", false},
		{"duration negative", validateEnvDuration, "-1s", true},
		{"url ok", validateEnvURL, "https://ml.example.com/predict", false},
		{"url no host", validateEnvURL, "predict", true},
		{"mode ok", validateEnvClassifierMode, "http", false},
		{"mode bad", validateEnvClassifierMode, "grpc", true},
		{"log level", validateEnvLogLevel, "DEBUG", false},
		{"secret short", validateEnvSecret, "abc", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.fn(tt.value)
			assert.Equal(t, tt.wantErr, err != nil, "value %q: %v", tt.value, err)
		})
	}
}
