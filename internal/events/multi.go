package events

import (
	"context"

	"github.com/tphakala/mediscan/internal/conf"
	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/logger"
	"github.com/tphakala/mediscan/internal/observability/metrics"
)

// Nop discards events.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, DiagnosisEvent) error { return nil }

// Close does nothing.
func (Nop) Close() error { return nil }

// Multi publishes to every publisher and joins their errors. One failing
// transport does not stop delivery to the others.
type Multi []Publisher

// Publish delivers event to all publishers.
func (m Multi) Publish(ctx context.Context, event DiagnosisEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes all publishers.
func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// FromSettings builds a publisher for every enabled transport. With none
// enabled it returns Nop. An MQTT broker that is unreachable at startup is
// logged and skipped rather than failing startup.
func FromSettings(ctx context.Context, settings *conf.Settings, m *metrics.EventMetrics) (Publisher, error) {
	log := GetLogger()
	var publishers Multi

	if settings.Events.MQTT.Enabled {
		p := NewMQTTPublisher(MQTTConfigFromSettings(settings), m)
		if err := p.Connect(ctx); err != nil {
			log.Warn("MQTT publisher disabled, broker unreachable",
				logger.String("broker", settings.Events.MQTT.Broker),
				logger.Error(err))
		} else {
			publishers = append(publishers, p)
		}
	}
	if settings.Events.Kafka.Enabled {
		publishers = append(publishers, NewKafkaPublisher(settings.Events.Kafka.Brokers, settings.Events.Kafka.Topic, m))
	}
	if settings.Events.SQS.Enabled {
		p, err := NewSQSPublisher(ctx, &settings.Events.SQS, m)
		if err != nil {
			_ = publishers.Close()
			return nil, err
		}
		publishers = append(publishers, p)
	}

	switch len(publishers) {
	case 0:
		return Nop{}, nil
	case 1:
		return publishers[0], nil
	default:
		return publishers, nil
	}
}
