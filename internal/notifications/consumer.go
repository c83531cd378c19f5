package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	pubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kelechianya/complypoint-backend/pkg/db/models"
	"github.com/kelechianya/complypoint-backend/pkg/enums"
	"github.com/kelechianya/complypoint-backend/pkg/logger"
	"github.com/kelechianya/complypoint-backend/pkg/outbox"
	"github.com/kelechianya/complypoint-backend/pkg/outbox/idempotency"
	"github.com/kelechianya/complypoint-backend/pkg/outbox/payloads"
	"github.com/kelechianya/complypoint-backend/pkg/outbox/registry"
)

const notificationConsumer = "notification-worker"

type usersRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
}

type deliveryDispatcher interface {
	Dispatch(ctx context.Context, delivery Delivery) error
}

// Consumer turns submission lifecycle events into multi-channel notifications.
type Consumer struct {
	users        usersRepository
	dispatcher   deliveryDispatcher
	subscription *pubsub.Subscriber
	idempotency  *idempotency.Manager
	logg         *logger.Logger
}

// NewConsumer builds the submission notification consumer.
func NewConsumer(users usersRepository, dispatcher deliveryDispatcher, subscription *pubsub.Subscriber, manager *idempotency.Manager, logg *logger.Logger) (*Consumer, error) {
	if users == nil {
		return nil, fmt.Errorf("users repository required")
	}
	if dispatcher == nil {
		return nil, fmt.Errorf("dispatcher required")
	}
	if subscription == nil {
		return nil, fmt.Errorf("domain subscription required")
	}
	if manager == nil {
		return nil, fmt.Errorf("idempotency manager required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Consumer{
		users:        users,
		dispatcher:   dispatcher,
		subscription: subscription,
		idempotency:  manager,
		logg:         logg,
	}, nil
}

// Run starts the consumer loop until the context is canceled.
func (c *Consumer) Run(ctx context.Context) error {
	return c.subscription.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		result := c.process(ctx, msg)
		if result.nack {
			msg.Nack()
			return
		}
		msg.Ack()
	})
}

type processResult struct {
	ack  bool
	nack bool
}

func (c *Consumer) process(ctx context.Context, msg *pubsub.Message) processResult {
	eventType, err := enums.ParseOutboxEventType(msg.Attributes["event_type"])
	fields := map[string]any{
		"message_id": msg.ID,
		"event_type": msg.Attributes["event_type"],
	}
	logCtx := c.logg.WithFields(ctx, fields)
	if err != nil {
		c.logg.Info(logCtx, "skipping unknown event type")
		return processResult{ack: true}
	}

	var envelope outbox.PayloadEnvelope
	if err := json.Unmarshal(msg.Data, &envelope); err != nil {
		c.logg.Error(logCtx, "failed to decode envelope", err)
		return processResult{ack: true}
	}

	eventID, err := uuid.Parse(envelope.EventID)
	if err != nil {
		c.logg.Error(logCtx, "invalid event id", err)
		return processResult{ack: true}
	}

	already, err := c.idempotency.CheckAndMarkProcessed(ctx, notificationConsumer, eventID)
	if err != nil {
		c.logg.Error(logCtx, "idempotency check failed", err)
		return processResult{nack: true}
	}
	if already {
		c.logg.Info(logCtx, "event already processed")
		return processResult{ack: true}
	}

	delivery, err := c.buildDelivery(ctx, eventType, envelope.Version, envelope.Data)
	if err != nil {
		if errors.Is(err, errMalformedPayload) {
			c.logg.Error(logCtx, "failed to parse payload", err)
			return processResult{ack: true}
		}
		c.logg.Error(logCtx, "notification handling failed", err)
		_ = c.idempotency.Delete(ctx, notificationConsumer, eventID)
		return processResult{nack: true}
	}

	logCtx = c.logg.WithFields(logCtx, map[string]any{
		"user_id": delivery.User.ID.String(),
		"type":    delivery.Type,
	})
	if err := c.dispatcher.Dispatch(ctx, delivery); err != nil {
		// Individual channel failures are already counted and logged by the
		// dispatcher; the event itself is consumed.
		c.logg.Warn(logCtx, "some notification channels failed")
	}
	c.logg.Info(logCtx, "submission notification dispatched")
	return processResult{ack: true}
}

var errMalformedPayload = errors.New("malformed event payload")

// payloadDecoders maps event type and envelope version to a concrete
// payload struct. An event with an unregistered version is malformed and
// gets acked rather than retried.
var payloadDecoders = buildPayloadDecoders()

func buildPayloadDecoders() *registry.DecoderRegistry {
	reg := registry.NewDecoderRegistry()
	reg.Register(enums.EventSubmissionReceived, 1, func(data json.RawMessage) (any, error) {
		var p payloads.SubmissionReceivedEvent
		return p, json.Unmarshal(data, &p)
	})
	reg.Register(enums.EventSubmissionStatusChanged, 1, func(data json.RawMessage) (any, error) {
		var p payloads.SubmissionStatusChangedEvent
		return p, json.Unmarshal(data, &p)
	})
	reg.Register(enums.EventSubmissionSlotChanged, 1, func(data json.RawMessage) (any, error) {
		var p payloads.SubmissionSlotChangedEvent
		return p, json.Unmarshal(data, &p)
	})
	return reg
}

func (c *Consumer) buildDelivery(ctx context.Context, eventType enums.OutboxEventType, version int, data json.RawMessage) (Delivery, error) {
	decoded, err := payloadDecoders.Decode(eventType, version, data)
	if err != nil {
		return Delivery{}, fmt.Errorf("%w: %v", errMalformedPayload, err)
	}

	switch payload := decoded.(type) {
	case payloads.SubmissionReceivedEvent:
		user, err := c.lookupUser(ctx, payload.OwnerUserID)
		if err != nil {
			return Delivery{}, err
		}
		title := "Documents received"
		message := fmt.Sprintf("Your %s submission is now under review.", variantLabel(payload.Variant))
		if payload.Resubmitted {
			title = "Resubmission received"
			message = fmt.Sprintf("Your updated %s documents are now under review.", variantLabel(payload.Variant))
		}
		return Delivery{
			User:         user,
			Type:         enums.NotificationTypeSubmissionReceived,
			Title:        title,
			Message:      message,
			SubmissionID: &payload.SubmissionID,
		}, nil

	case payloads.SubmissionStatusChangedEvent:
		user, err := c.lookupUser(ctx, payload.OwnerUserID)
		if err != nil {
			return Delivery{}, err
		}
		return Delivery{
			User:         user,
			Type:         enums.NotificationTypeStatusChanged,
			Title:        statusTitle(payload.NewStatus),
			Message:      statusMessage(payload),
			SubmissionID: &payload.SubmissionID,
		}, nil

	case payloads.SubmissionSlotChangedEvent:
		user, err := c.lookupUser(ctx, payload.OwnerUserID)
		if err != nil {
			return Delivery{}, err
		}
		message := fmt.Sprintf("Document %s was %s.", payload.SlotName, payload.NewStatus)
		if payload.NewStatus == enums.SlotStatusRejected && payload.RejectionReason != nil {
			message = fmt.Sprintf("Document %s was rejected. Reason: %s", payload.SlotName, *payload.RejectionReason)
		}
		return Delivery{
			User:         user,
			Type:         enums.NotificationTypeSlotChanged,
			Title:        "Document reviewed",
			Message:      message,
			SubmissionID: &payload.SubmissionID,
		}, nil

	default:
		return Delivery{}, fmt.Errorf("%w: unhandled event type %s", errMalformedPayload, eventType)
	}
}

func (c *Consumer) lookupUser(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	if userID == uuid.Nil {
		return nil, fmt.Errorf("%w: owner user id missing", errMalformedPayload)
	}
	user, err := c.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: owner %s not found", errMalformedPayload, userID)
		}
		return nil, fmt.Errorf("lookup owner: %w", err)
	}
	return user, nil
}

func variantLabel(variant enums.SubmissionVariant) string {
	switch variant {
	case enums.VariantBusinessVerification:
		return "business verification"
	case enums.VariantDriverLicense:
		return "driver license"
	case enums.VariantVehicle:
		return "vehicle"
	default:
		return string(variant)
	}
}

func statusTitle(status enums.SubmissionStatus) string {
	switch status {
	case enums.SubmissionStatusApproved:
		return "Submission approved"
	case enums.SubmissionStatusRejected:
		return "Submission rejected"
	case enums.SubmissionStatusIncomplete:
		return "Action required"
	default:
		return "Submission updated"
	}
}

func statusMessage(payload payloads.SubmissionStatusChangedEvent) string {
	label := variantLabel(payload.Variant)
	switch payload.NewStatus {
	case enums.SubmissionStatusApproved:
		return fmt.Sprintf("Your %s submission has been approved.", label)
	case enums.SubmissionStatusRejected:
		if payload.RejectionReason != nil && *payload.RejectionReason != "" {
			return fmt.Sprintf("Your %s submission was rejected. Reason: %s", label, *payload.RejectionReason)
		}
		return fmt.Sprintf("Your %s submission was rejected.", label)
	case enums.SubmissionStatusIncomplete:
		if payload.RejectionReason != nil && *payload.RejectionReason != "" {
			return fmt.Sprintf("Some of your %s documents were rejected. Reason: %s", label, *payload.RejectionReason)
		}
		return fmt.Sprintf("Some of your %s documents need to be resubmitted.", label)
	default:
		return fmt.Sprintf("Your %s submission is back under review.", label)
	}
}
