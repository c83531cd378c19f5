package registry

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/kelechianya/complypoint-backend/pkg/config"
	"github.com/kelechianya/complypoint-backend/pkg/db/models"
	"github.com/kelechianya/complypoint-backend/pkg/enums"
	"github.com/kelechianya/complypoint-backend/pkg/outbox"
	"github.com/kelechianya/complypoint-backend/pkg/outbox/payloads"
)

// EventDescriptor binds an event type to the aggregate it belongs to,
// the topic it publishes on, and the concrete payload schema.
type EventDescriptor struct {
	EventType      enums.OutboxEventType
	AggregateType  enums.OutboxAggregateType
	Topic          string
	PayloadFactory func() any
}

// ResolvedEvent is a fully decoded outbox row ready to publish.
type ResolvedEvent struct {
	Descriptor EventDescriptor
	Envelope   outbox.PayloadEnvelope
	Payload    any
}

// EventRegistry holds the descriptors for every event type the
// publisher knows how to dispatch.
type EventRegistry struct {
	entries map[enums.OutboxEventType]EventDescriptor
}

// NonRetryableError marks a row as permanently undeliverable. The
// dispatcher dead-letters it instead of retrying.
type NonRetryableError struct {
	Err error
}

func (e NonRetryableError) Error() string {
	if e.Err == nil {
		return "non-retryable error"
	}
	return e.Err.Error()
}

func (e NonRetryableError) Unwrap() error {
	return e.Err
}

// NewNonRetryableError wraps err to stop further delivery attempts.
func NewNonRetryableError(err error) NonRetryableError {
	return NonRetryableError{Err: err}
}

// NewEventRegistry registers the submission lifecycle events against
// the configured notification topic.
func NewEventRegistry(cfg config.PubSubConfig) (*EventRegistry, error) {
	if cfg.NotificationTopic == "" {
		return nil, fmt.Errorf("notification topic is required")
	}

	reg := &EventRegistry{entries: make(map[enums.OutboxEventType]EventDescriptor)}
	reg.add(enums.EventSubmissionReceived, cfg.NotificationTopic, func() any {
		return &payloads.SubmissionReceivedEvent{}
	})
	reg.add(enums.EventSubmissionStatusChanged, cfg.NotificationTopic, func() any {
		return &payloads.SubmissionStatusChangedEvent{}
	})
	reg.add(enums.EventSubmissionSlotChanged, cfg.NotificationTopic, func() any {
		return &payloads.SubmissionSlotChangedEvent{}
	})
	return reg, nil
}

// add registers a submission-aggregate event. Every lifecycle event
// today hangs off the submission aggregate; a second aggregate type
// gets its own helper when it shows up.
func (r *EventRegistry) add(eventType enums.OutboxEventType, topic string, factory func() any) {
	if factory == nil {
		return
	}
	r.entries[eventType] = EventDescriptor{
		EventType:      eventType,
		AggregateType:  enums.AggregateSubmission,
		Topic:          topic,
		PayloadFactory: factory,
	}
}

// Resolve validates an outbox row against its descriptor and decodes
// the typed payload out of the envelope. Every validation failure here
// is non-retryable: the row can never become publishable.
func (r *EventRegistry) Resolve(event models.OutboxEvent) (*ResolvedEvent, error) {
	desc, ok := r.entries[event.EventType]
	if !ok {
		return nil, NewNonRetryableError(fmt.Errorf("unsupported event type %s", event.EventType))
	}
	if desc.AggregateType != event.AggregateType {
		return nil, NewNonRetryableError(fmt.Errorf("aggregate mismatch: expected %s got %s", desc.AggregateType, event.AggregateType))
	}
	if event.AggregateID == uuid.Nil {
		return nil, NewNonRetryableError(fmt.Errorf("missing aggregate_id"))
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(event.Payload, &envelope); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode envelope: %w", err))
	}
	if isEmptyJSON(envelope.Data) {
		return nil, NewNonRetryableError(fmt.Errorf("payload missing for %s", event.EventType))
	}

	payload := desc.PayloadFactory()
	if err := json.Unmarshal(envelope.Data, payload); err != nil {
		return nil, NewNonRetryableError(fmt.Errorf("decode %s payload: %w", event.EventType, err))
	}

	return &ResolvedEvent{Descriptor: desc, Envelope: envelope, Payload: payload}, nil
}

func isEmptyJSON(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
