package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	dbtypes "github.com/kelechianya/complypoint-backend/pkg/db/types"
	"github.com/kelechianya/complypoint-backend/pkg/enums"
)

// ComplianceSubmission is one onboarding dossier for a single variant.
// At most one row may exist per (owner, variant, unique business key).
type ComplianceSubmission struct {
	ID          uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OwnerUserID uuid.UUID               `gorm:"column:owner_user_id;type:uuid;not null;uniqueIndex:idx_submissions_owner_variant_key"`
	Variant     enums.SubmissionVariant `gorm:"column:variant;type:submission_variant;not null;uniqueIndex:idx_submissions_owner_variant_key"`
	UniqueKey   string                  `gorm:"column:unique_key;not null;uniqueIndex:idx_submissions_owner_variant_key"`

	// Details holds variant-specific fields (business name, license class,
	// vehicle make) that the review flow never inspects.
	Details json.RawMessage `gorm:"column:details;type:jsonb;not null"`
	Slots   dbtypes.SlotMap `gorm:"column:slots;type:jsonb;not null"`

	AggregateStatus    enums.SubmissionStatus  `gorm:"column:aggregate_status;type:submission_status;not null;default:'pending'"`
	RequestedAggregate *enums.SubmissionStatus `gorm:"column:requested_aggregate;type:submission_status"`

	// RejectionReason mirrors the admin's overall note when the aggregate
	// lands on rejected or incomplete. Cleared again on resubmission.
	RejectionReason *string    `gorm:"column:rejection_reason"`
	ProcessedAt     *time.Time `gorm:"column:processed_at"`

	// AdminID records which admin processed the submission. Cleared on
	// resubmission so the next review carries its own reviewer.
	AdminID *uuid.UUID `gorm:"column:admin_id;type:uuid"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName keeps the table aligned with the migration files.
func (ComplianceSubmission) TableName() string {
	return "compliance_submissions"
}
