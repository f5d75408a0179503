package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/tphakala/mediscan/internal/logger"
	"github.com/tphakala/mediscan/internal/observability/metrics"
)

// messageWriter is the part of kafka.Writer the publisher uses.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a topic keyed by user id, so one user's
// events stay ordered within a partition.
type KafkaPublisher struct {
	writer  messageWriter
	topic   string
	metrics *metrics.EventMetrics
	log     logger.Logger
}

// NewKafkaPublisher creates a publisher with a LeastBytes balanced writer.
func NewKafkaPublisher(brokers []string, topic string, m *metrics.EventMetrics) *KafkaPublisher {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		BatchTimeout:           50 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}
	return newKafkaPublisher(writer, topic, m)
}

func newKafkaPublisher(w messageWriter, topic string, m *metrics.EventMetrics) *KafkaPublisher {
	return &KafkaPublisher{
		writer:  w,
		topic:   topic,
		metrics: m,
		log:     GetLogger().With(logger.String("transport", TransportKafka)),
	}
}

// Publish writes one message with the event type in a header.
func (p *KafkaPublisher) Publish(ctx context.Context, event DiagnosisEvent) error {
	started := time.Now()
	payload, err := event.Marshal()
	if err != nil {
		return publishError(err, TransportKafka, event)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.UserID),
		Value: payload,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "type", Value: []byte(event.Type)},
		},
	})
	p.metrics.ObservePublish(TransportKafka, len(payload), started, err)
	if err != nil {
		return publishError(err, TransportKafka, event)
	}
	p.log.Debug("event written", logger.String("topic", p.topic), logger.String("event_id", event.ID))
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
