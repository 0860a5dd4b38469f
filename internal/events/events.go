package events

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	EventAppointmentBooked = "appointment_booked"
	EventDraftCleared      = "draft_cleared"
	EventSignedIn          = "signed_in"
	EventSignedOut         = "signed_out"
)

// AppointmentEventPayload is published once the backend accepted a booking.
type AppointmentEventPayload struct {
	AppointmentID string    `json:"appointment_id"`
	DraftID       string    `json:"draft_id"`
	UserID        int64     `json:"user_id"`
	ServiceID     string    `json:"service_id"`
	ServiceName   string    `json:"service_name,omitempty"`
	StaffID       string    `json:"staff_id"`
	Start         time.Time `json:"start"`
	End           time.Time `json:"end"`
	TimeZone      string    `json:"time_zone"`
}

// DraftEventPayload is published when an unfinished draft is abandoned.
type DraftEventPayload struct {
	UserID  int64  `json:"user_id"`
	DraftID string `json:"draft_id"`
}

// UserEventPayload carries the chat user of session-level events.
type UserEventPayload struct {
	UserID int64 `json:"user_id"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// Decode unmarshals the payload into out.
func (e *Event) Decode(out any) error {
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}

type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events. Handlers run synchronously
// in subscription order.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
	logger      *zerolog.Logger
}

func NewEventBus(logger *zerolog.Logger) *EventBus {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &EventBus{subscribers: make(map[string][]EventHandler), logger: logger}
}

func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type. Handler errors are logged
// and do not stop later handlers.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		if err := handler(event); err != nil {
			b.logger.Warn().Err(err).Str("event", event.Type).Msg("event handler failed")
		}
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
