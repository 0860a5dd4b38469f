package events

import (
	"errors"
	"testing"
	"time"
)

func TestEventBus(t *testing.T) {
	bus := NewEventBus(nil)

	var received *Event
	var callCount int

	bus.Subscribe(EventAppointmentBooked, func(event *Event) error {
		received = event
		callCount++
		return nil
	})

	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	err := bus.PublishJSON(EventAppointmentBooked, AppointmentEventPayload{
		AppointmentID: "abc123",
		UserID:        7,
		Start:         start,
	})
	if err != nil {
		t.Fatalf("PublishJSON failed: %v", err)
	}

	if callCount != 1 {
		t.Errorf("expected 1 call, got %d", callCount)
	}
	if received.Type != EventAppointmentBooked {
		t.Errorf("expected type %s, got %s", EventAppointmentBooked, received.Type)
	}
	if received.CreatedAt.IsZero() {
		t.Errorf("expected CreatedAt to be set")
	}

	var decoded AppointmentEventPayload
	if err := received.Decode(&decoded); err != nil {
		t.Fatalf("failed to decode payload: %v", err)
	}
	if decoded.AppointmentID != "abc123" || decoded.UserID != 7 || !decoded.Start.Equal(start) {
		t.Errorf("unexpected payload %+v", decoded)
	}
}

func TestEventBusHandlerErrorDoesNotStopOthers(t *testing.T) {
	bus := NewEventBus(nil)
	var count1, count2 int

	bus.Subscribe("event", func(_ *Event) error { count1++; return errors.New("boom") })
	bus.Subscribe("event", func(_ *Event) error { count2++; return nil })

	bus.Publish(&Event{Type: "event"})

	if count1 != 1 || count2 != 1 {
		t.Errorf("expected both handlers to be called once, got %d and %d", count1, count2)
	}
}

func TestEventBusNoSubscribers(t *testing.T) {
	bus := NewEventBus(nil)
	bus.Publish(&Event{Type: "unknown"})
	if err := bus.PublishJSON("unknown", nil); err != nil {
		t.Errorf("PublishJSON failed: %v", err)
	}

	var nilBus *EventBus
	if err := nilBus.PublishJSON(EventSignedOut, UserEventPayload{UserID: 1}); err != nil {
		t.Errorf("nil bus should be a no-op, got %v", err)
	}
}

func TestEventDecodeError(t *testing.T) {
	ev := &Event{Type: "bad", Payload: []byte("{")}
	var out UserEventPayload
	if err := ev.Decode(&out); err == nil {
		t.Error("expected decode error")
	}
}

func TestPublishJSONMarshalError(t *testing.T) {
	bus := NewEventBus(nil)
	if err := bus.PublishJSON("x", make(chan int)); err == nil {
		t.Error("expected marshal error")
	}
}
