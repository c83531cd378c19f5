package compliance

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	dbpkg "github.com/kelechianya/complypoint-backend/pkg/db"
	"github.com/kelechianya/complypoint-backend/pkg/db/models"
	"github.com/kelechianya/complypoint-backend/pkg/enums"
	"github.com/kelechianya/complypoint-backend/pkg/logger"
	"github.com/kelechianya/complypoint-backend/pkg/outbox"
	"github.com/kelechianya/complypoint-backend/pkg/outbox/payloads"
)

// Emitter queues lifecycle events into the transactional outbox after the
// lifecycle write has committed. Emission is best-effort: failures are logged
// and never surfaced to the caller.
type Emitter struct {
	db     *dbpkg.Client
	outbox *outbox.Service
	logg   *logger.Logger
}

// NewEmitter builds the outbox-backed lifecycle emitter.
func NewEmitter(db *dbpkg.Client, outboxSvc *outbox.Service, logg *logger.Logger) (*Emitter, error) {
	if db == nil {
		return nil, fmt.Errorf("db client required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox service required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &Emitter{db: db, outbox: outboxSvc, logg: logg}, nil
}

func (e *Emitter) SubmissionReceived(ctx context.Context, sub *models.ComplianceSubmission, resubmitted bool, actor *outbox.ActorRef) {
	e.emit(ctx, outbox.DomainEvent{
		EventType:     enums.EventSubmissionReceived,
		AggregateType: enums.AggregateSubmission,
		AggregateID:   sub.ID,
		Actor:         actor,
		Version:       1,
		Data: payloads.SubmissionReceivedEvent{
			SubmissionID: sub.ID,
			OwnerUserID:  sub.OwnerUserID,
			Variant:      sub.Variant,
			UniqueKey:    sub.UniqueKey,
			SlotNames:    sortedSlotNames(sub.Slots),
			Resubmitted:  resubmitted,
			ReceivedAt:   time.Now(),
		},
	})
}

func (e *Emitter) SubmissionStatusChanged(ctx context.Context, sub *models.ComplianceSubmission, oldStatus enums.SubmissionStatus, actor *outbox.ActorRef) {
	e.emit(ctx, outbox.DomainEvent{
		EventType:     enums.EventSubmissionStatusChanged,
		AggregateType: enums.AggregateSubmission,
		AggregateID:   sub.ID,
		Actor:         actor,
		Version:       1,
		Data: payloads.SubmissionStatusChangedEvent{
			SubmissionID:    sub.ID,
			OwnerUserID:     sub.OwnerUserID,
			Variant:         sub.Variant,
			OldStatus:       oldStatus,
			NewStatus:       sub.AggregateStatus,
			RejectionReason: sub.RejectionReason,
		},
	})
}

func (e *Emitter) SubmissionSlotChanged(ctx context.Context, sub *models.ComplianceSubmission, slotName string, oldStatus, newStatus enums.SlotStatus, reason *string, actor *outbox.ActorRef) {
	e.emit(ctx, outbox.DomainEvent{
		EventType:     enums.EventSubmissionSlotChanged,
		AggregateType: enums.AggregateSubmission,
		AggregateID:   sub.ID,
		Actor:         actor,
		Version:       1,
		Data: payloads.SubmissionSlotChangedEvent{
			SubmissionID:    sub.ID,
			OwnerUserID:     sub.OwnerUserID,
			Variant:         sub.Variant,
			SlotName:        slotName,
			OldStatus:       oldStatus,
			NewStatus:       newStatus,
			RejectionReason: reason,
		},
	})
}

func (e *Emitter) emit(ctx context.Context, event outbox.DomainEvent) {
	err := e.db.WithTx(ctx, func(tx *gorm.DB) error {
		return e.outbox.Emit(ctx, tx, event)
	})
	if err != nil {
		logCtx := e.logg.WithFields(ctx, map[string]any{
			"event_type":   event.EventType,
			"aggregate_id": event.AggregateID.String(),
		})
		e.logg.Error(logCtx, "queue lifecycle event", err)
	}
}
