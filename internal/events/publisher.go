package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/example/minibar-selfservice/internal/infrastructure/kafka"
	"github.com/google/uuid"
)

// Publisher delivers outbound notifications. Command handling treats
// publishing as best-effort; a delivery failure never rolls back the
// operation that produced the notification.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload any) error
}

// BusPublisher publishes enveloped notifications to Kafka.
type BusPublisher struct {
	producer *kafka.Producer
}

func NewBusPublisher(producer *kafka.Producer) *BusPublisher {
	return &BusPublisher{producer: producer}
}

func (b *BusPublisher) Publish(ctx context.Context, eventType string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return b.producer.Publish(ctx, eventType, Envelope{
		ID:        uuid.New().String(),
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now(),
	})
}

// NopPublisher drops every notification. Used when no bus is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }
