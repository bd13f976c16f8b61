// Package events carries domain change notifications to the live queue board
// and, when configured, to a NATS bus.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Topics.
const (
	TopicQueue    = "queue"
	TopicBilling  = "billing"
	TopicTriage   = "triage"
	TopicSchedule = "appointments"
)

// Event types.
const (
	QueueUpdated      = "queue.updated"
	InvoiceUpdated    = "invoice.updated"
	PaymentRecorded   = "payment.recorded"
	TriageRecorded    = "triage.recorded"
	AppointmentChange = "appointment.updated"
)

// Event is a change notification.
type Event struct {
	Type         string          `json:"type"`
	Topic        string          `json:"topic"`
	ResourceType string          `json:"resourceType"`
	ResourceID   string          `json:"resourceId,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
	Data         json.RawMessage `json:"data,omitempty"`
}

// New builds an event with payload marshalled into Data.
func New(typ, topic, resourceType, resourceID string, payload any) (Event, error) {
	evt := Event{
		Type:         typ,
		Topic:        topic,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Timestamp:    time.Now().UTC(),
	}
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("marshal %s payload: %w", typ, err)
		}
		evt.Data = data
	}
	return evt, nil
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// PublisherFunc adapts a function to Publisher.
type PublisherFunc func(ctx context.Context, event Event) error

func (f PublisherFunc) Publish(ctx context.Context, event Event) error { return f(ctx, event) }

// Nop discards events.
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }

// Fanout publishes to every member and joins their errors. A failing member
// does not stop delivery to the rest.
type Fanout []Publisher

func (f Fanout) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
