// Package events publishes diagnosis notifications to external systems.
// Publishing is best effort: a failed delivery never affects the stored
// diagnosis.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/tphakala/mediscan/internal/datastore"
	"github.com/tphakala/mediscan/internal/errors"
	"github.com/tphakala/mediscan/internal/logger"
)

// TypeDiagnosisCreated is the type of the event sent after a diagnosis is stored.
const TypeDiagnosisCreated = "diagnosis.created"

// Transport names used in logs and metrics.
const (
	TransportMQTT  = "mqtt"
	TransportKafka = "kafka"
	TransportSQS   = "sqs"
)

// ErrPublish wraps every delivery failure.
var ErrPublish = errors.NewStd("event publish failed")

// DiagnosisEvent is the wire form of a stored diagnosis. It deliberately
// carries no guidance text and no image data.
type DiagnosisEvent struct {
	Type        string    `json:"type"`
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	Organ       string    `json:"organ"`
	DiseaseName string    `json:"diseaseName"`
	Confidence  int       `json:"confidence"`
	Matched     bool      `json:"matched"`
	Timestamp   time.Time `json:"timestamp"`
	Source      string    `json:"source,omitempty"`
}

// NewDiagnosisEvent builds the event for rec. source names the emitting
// instance and may be empty.
func NewDiagnosisEvent(rec *datastore.DiagnosisRecord, source string) DiagnosisEvent {
	return DiagnosisEvent{
		Type:        TypeDiagnosisCreated,
		ID:          rec.ID,
		UserID:      rec.UserID,
		Organ:       rec.OrganType,
		DiseaseName: rec.DiseaseName,
		Confidence:  rec.Confidence,
		Matched:     rec.Matched,
		Timestamp:   rec.CreatedAt.UTC(),
		Source:      source,
	}
}

// Marshal returns the JSON payload.
func (e DiagnosisEvent) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Publisher delivers diagnosis events.
type Publisher interface {
	Publish(ctx context.Context, event DiagnosisEvent) error
	Close() error
}

// GetLogger returns the events module logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("events")
}

func publishError(cause error, transport string, event DiagnosisEvent) error {
	return errors.New(fmt.Errorf("%w: %w", ErrPublish, cause)).
		Component("events").
		Category(errors.CategoryEventPublish).
		Context("transport", transport).
		Context("event_id", event.ID).
		Build()
}
