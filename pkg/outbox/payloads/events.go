package payloads

import (
	"time"

	"github.com/google/uuid"

	"github.com/kelechianya/complypoint-backend/pkg/enums"
)

// SubmissionReceivedEvent signals that an owner created or resubmitted a dossier.
type SubmissionReceivedEvent struct {
	SubmissionID uuid.UUID               `json:"submissionId"`
	OwnerUserID  uuid.UUID               `json:"ownerUserId"`
	Variant      enums.SubmissionVariant `json:"variant"`
	UniqueKey    string                  `json:"uniqueKey"`
	SlotNames    []string                `json:"slotNames"`
	Resubmitted  bool                    `json:"resubmitted"`
	ReceivedAt   time.Time               `json:"receivedAt"`
}

// SubmissionStatusChangedEvent is emitted whenever the aggregate status moves.
type SubmissionStatusChangedEvent struct {
	SubmissionID    uuid.UUID               `json:"submissionId"`
	OwnerUserID     uuid.UUID               `json:"ownerUserId"`
	Variant         enums.SubmissionVariant `json:"variant"`
	OldStatus       enums.SubmissionStatus  `json:"oldStatus"`
	NewStatus       enums.SubmissionStatus  `json:"newStatus"`
	RejectionReason *string                 `json:"rejectionReason,omitempty"`
}

// SubmissionSlotChangedEvent reports a single slot review decision.
type SubmissionSlotChangedEvent struct {
	SubmissionID    uuid.UUID               `json:"submissionId"`
	OwnerUserID     uuid.UUID               `json:"ownerUserId"`
	Variant         enums.SubmissionVariant `json:"variant"`
	SlotName        string                  `json:"slotName"`
	OldStatus       enums.SlotStatus        `json:"oldStatus"`
	NewStatus       enums.SlotStatus        `json:"newStatus"`
	RejectionReason *string                 `json:"rejectionReason,omitempty"`
}
