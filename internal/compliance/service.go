package compliance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	dbpkg "github.com/kelechianya/complypoint-backend/pkg/db"
	"github.com/kelechianya/complypoint-backend/pkg/db/models"
	dbtypes "github.com/kelechianya/complypoint-backend/pkg/db/types"
	"github.com/kelechianya/complypoint-backend/pkg/enums"
	pkgerrors "github.com/kelechianya/complypoint-backend/pkg/errors"
	"github.com/kelechianya/complypoint-backend/pkg/outbox"
)

type submissionsRepository interface {
	Create(ctx context.Context, sub *models.ComplianceSubmission) (*models.ComplianceSubmission, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.ComplianceSubmission, error)
	FindByOwnerVariantKey(ctx context.Context, ownerID uuid.UUID, variant enums.SubmissionVariant, key string) (*models.ComplianceSubmission, error)
	ListByOwner(ctx context.Context, ownerID uuid.UUID, variant *enums.SubmissionVariant) ([]models.ComplianceSubmission, error)
	UpdateGuarded(ctx context.Context, sub *models.ComplianceSubmission, expected enums.SubmissionStatus) error
}

// lifecycleEmitter publishes post-commit notification events. Implementations
// are fire-and-forget: they log failures and never return them.
type lifecycleEmitter interface {
	SubmissionReceived(ctx context.Context, sub *models.ComplianceSubmission, resubmitted bool, actor *outbox.ActorRef)
	SubmissionStatusChanged(ctx context.Context, sub *models.ComplianceSubmission, oldStatus enums.SubmissionStatus, actor *outbox.ActorRef)
	SubmissionSlotChanged(ctx context.Context, sub *models.ComplianceSubmission, slotName string, oldStatus, newStatus enums.SlotStatus, reason *string, actor *outbox.ActorRef)
}

// Service owns the compliance submission lifecycle for all three variants.
type Service interface {
	Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*models.ComplianceSubmission, error)
	Resubmit(ctx context.Context, ownerID uuid.UUID, input ResubmitInput) (*models.ComplianceSubmission, error)
	AdminUpdate(ctx context.Context, adminID uuid.UUID, input AdminUpdateInput) (*models.ComplianceSubmission, error)
	Status(ctx context.Context, ownerID uuid.UUID, variant *enums.SubmissionVariant) (*StatusResult, error)
}

type service struct {
	repo    submissionsRepository
	emitter lifecycleEmitter
}

// CreateInput carries everything needed to open a new submission.
type CreateInput struct {
	Variant   enums.SubmissionVariant
	UniqueKey string
	Details   json.RawMessage
	SlotURLs  map[string]string
}

// ResubmitInput replaces one or more non-approved slots on an existing submission.
type ResubmitInput struct {
	SubmissionID uuid.UUID
	SlotURLs     map[string]string
}

// SlotDecision is one admin review decision for a single slot.
type SlotDecision struct {
	Status          enums.SlotStatus
	RejectionReason string
}

// AdminUpdateInput applies per-slot decisions and asserts the resulting aggregate.
type AdminUpdateInput struct {
	SubmissionID       uuid.UUID
	Decisions          map[string]SlotDecision
	RequestedAggregate enums.SubmissionStatus
	RejectionReason    string
}

// SlotView is a read-only snapshot of one slot.
type SlotView struct {
	Name            string           `json:"name"`
	URL             string           `json:"url"`
	Status          enums.SlotStatus `json:"status"`
	RejectionReason *string          `json:"rejectionReason,omitempty"`
}

// SubmissionView is a read-only snapshot of one submission.
type SubmissionView struct {
	ID              uuid.UUID               `json:"id"`
	Variant         enums.SubmissionVariant `json:"variant"`
	UniqueKey       string                  `json:"uniqueKey"`
	AggregateStatus enums.SubmissionStatus  `json:"aggregateStatus"`
	RejectionReason *string                 `json:"rejectionReason,omitempty"`
	Details         json.RawMessage         `json:"details"`
	Slots           []SlotView              `json:"slots"`
	CreatedAt       time.Time               `json:"createdAt"`
	UpdatedAt       time.Time               `json:"updatedAt"`
}

// StatusResult is the owner-facing status snapshot. Status carries the
// not_submitted sentinel when the owner has no submissions and is empty
// otherwise; callers read the per-submission aggregates from Submissions.
type StatusResult struct {
	Status      enums.SubmissionStatus `json:"status,omitempty"`
	Submissions []SubmissionView       `json:"submissions"`
}

// NewService builds the compliance lifecycle service.
func NewService(repo submissionsRepository, emitter lifecycleEmitter) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("submissions repository required")
	}
	if emitter == nil {
		return nil, fmt.Errorf("event emitter required")
	}
	return &service{repo: repo, emitter: emitter}, nil
}

func (s *service) Create(ctx context.Context, ownerID uuid.UUID, input CreateInput) (*models.ComplianceSubmission, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner identity missing")
	}
	descriptor, ok := DescriptorFor(input.Variant)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid submission variant")
	}
	uniqueKey := strings.TrimSpace(input.UniqueKey)
	if uniqueKey == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("%s is required", descriptor.UniqueKeyField))
	}
	if unknown := descriptor.UnknownSlots(input.SlotURLs); len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unrecognized document slots").
			WithDetails(map[string]any{"slots": unknown})
	}
	if missing := descriptor.MissingRequired(input.SlotURLs); len(missing) > 0 {
		sort.Strings(missing)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "required document slots missing").
			WithDetails(map[string]any{"slots": missing})
	}

	existing, err := s.repo.FindByOwnerVariantKey(ctx, ownerID, input.Variant, uniqueKey)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup submission")
	}
	if existing != nil {
		return nil, pkgerrors.New(pkgerrors.CodeConflict,
			fmt.Sprintf("submission already exists for this %s", descriptor.UniqueKeyField))
	}

	slots := dbtypes.SlotMap{}
	for name, url := range input.SlotURLs {
		slots[name] = dbtypes.DocumentSlot{URL: url, Status: enums.SlotStatusPending}
	}

	details := input.Details
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}

	sub := &models.ComplianceSubmission{
		OwnerUserID:     ownerID,
		Variant:         input.Variant,
		UniqueKey:       uniqueKey,
		Details:         details,
		Slots:           slots,
		AggregateStatus: enums.SubmissionStatusPending,
	}
	created, err := s.repo.Create(ctx, sub)
	if err != nil {
		if dbpkg.IsUniqueViolation(err, "idx_submissions_owner_variant_key") {
			return nil, pkgerrors.New(pkgerrors.CodeConflict,
				fmt.Sprintf("submission already exists for this %s", descriptor.UniqueKeyField))
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create submission")
	}

	s.emitter.SubmissionReceived(ctx, created, false, &outbox.ActorRef{UserID: ownerID})
	return created, nil
}

func (s *service) Resubmit(ctx context.Context, ownerID uuid.UUID, input ResubmitInput) (*models.ComplianceSubmission, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner identity missing")
	}
	if input.SubmissionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "submission id is required")
	}
	if len(input.SlotURLs) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one document url is required")
	}

	sub, err := s.repo.FindByID(ctx, input.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "submission not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup submission")
	}
	if sub.OwnerUserID != ownerID {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "submission not found")
	}
	if sub.AggregateStatus == enums.SubmissionStatusApproved {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "cannot resubmit approved document")
	}

	descriptor, ok := DescriptorFor(sub.Variant)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "submission has unknown variant")
	}
	if unknown := descriptor.UnknownSlots(input.SlotURLs); len(unknown) > 0 {
		sort.Strings(unknown)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unrecognized document slots").
			WithDetails(map[string]any{"slots": unknown})
	}

	// An admin-approved document is never silently overwritten.
	var approved []string
	for name := range input.SlotURLs {
		if slot, ok := sub.Slots[name]; ok && slot.Status == enums.SlotStatusApproved {
			approved = append(approved, name)
		}
	}
	if len(approved) > 0 {
		sort.Strings(approved)
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot resubmit approved document").
			WithDetails(map[string]any{"slots": approved})
	}

	oldAggregate := sub.AggregateStatus
	slots := sub.Slots.Clone()
	for name, url := range input.SlotURLs {
		if strings.TrimSpace(url) == "" {
			return nil, pkgerrors.New(pkgerrors.CodeValidation,
				fmt.Sprintf("empty url for slot %s", name))
		}
		slots[name] = dbtypes.DocumentSlot{URL: url, Status: enums.SlotStatusPending}
	}

	sub.Slots = slots
	sub.AggregateStatus = Aggregate(slots)
	sub.RequestedAggregate = nil
	sub.RejectionReason = nil
	sub.ProcessedAt = nil
	sub.AdminID = nil

	if err := s.repo.UpdateGuarded(ctx, sub, oldAggregate); err != nil {
		if errors.Is(err, ErrStaleAggregate) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "submission changed, retry with fresh state")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update submission")
	}

	actor := &outbox.ActorRef{UserID: ownerID}
	s.emitter.SubmissionReceived(ctx, sub, true, actor)
	if sub.AggregateStatus != oldAggregate {
		s.emitter.SubmissionStatusChanged(ctx, sub, oldAggregate, actor)
	}
	return sub, nil
}

func (s *service) AdminUpdate(ctx context.Context, adminID uuid.UUID, input AdminUpdateInput) (*models.ComplianceSubmission, error) {
	if adminID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "admin identity missing")
	}
	if input.SubmissionID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "submission id is required")
	}
	if len(input.Decisions) == 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "at least one slot decision is required")
	}

	sub, err := s.repo.FindByID(ctx, input.SubmissionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "submission not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "lookup submission")
	}
	if sub.AggregateStatus != enums.SubmissionStatusPending {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "submission already processed").
			WithDetails(map[string]any{"aggregateStatus": sub.AggregateStatus})
	}

	descriptor, ok := DescriptorFor(sub.Variant)
	if !ok {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "submission has unknown variant")
	}

	// Validation problems are collected per slot, not reported one at a time.
	problems := map[string]string{}
	for name, decision := range input.Decisions {
		switch {
		case !descriptor.HasSlot(name):
			problems[name] = "unrecognized slot"
		case decision.Status != enums.SlotStatusApproved && decision.Status != enums.SlotStatusRejected:
			problems[name] = "decision must be approved or rejected"
		case decision.Status == enums.SlotStatusRejected && strings.TrimSpace(decision.RejectionReason) == "":
			problems[name] = "rejection requires a reason"
		}
	}
	if len(problems) > 0 {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid slot decisions").
			WithDetails(map[string]any{"slots": problems})
	}

	oldAggregate := sub.AggregateStatus
	oldSlots := sub.Slots
	slots := sub.Slots.Clone()
	for name, decision := range input.Decisions {
		slot, ok := slots[name]
		if !ok {
			// Recognized by the variant but never uploaded.
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "decision targets a slot with no document").
				WithDetails(map[string]any{"slots": []string{name}})
		}
		slot.Status = decision.Status
		if decision.Status == enums.SlotStatusRejected {
			reason := strings.TrimSpace(decision.RejectionReason)
			slot.RejectionReason = &reason
		} else {
			slot.RejectionReason = nil
		}
		slots[name] = slot
	}

	computed := Aggregate(slots)
	if input.RequestedAggregate == enums.SubmissionStatusRejected && computed == enums.SubmissionStatusIncomplete {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"mixed slot outcomes require the incomplete status")
	}
	if err := Reconcile(computed, input.RequestedAggregate); err != nil {
		return nil, err
	}
	if computed != enums.SubmissionStatusApproved && strings.TrimSpace(input.RejectionReason) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation,
			"rejection reason is required when the submission is not fully approved")
	}

	now := time.Now()
	requested := input.RequestedAggregate
	sub.Slots = slots
	sub.AggregateStatus = computed
	sub.RequestedAggregate = &requested
	sub.ProcessedAt = &now
	sub.AdminID = &adminID
	if computed == enums.SubmissionStatusApproved {
		sub.RejectionReason = nil
	} else {
		reason := strings.TrimSpace(input.RejectionReason)
		sub.RejectionReason = &reason
	}

	if err := s.repo.UpdateGuarded(ctx, sub, oldAggregate); err != nil {
		if errors.Is(err, ErrStaleAggregate) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "submission processed concurrently, re-read before retrying")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update submission")
	}

	actor := &outbox.ActorRef{UserID: adminID, Role: enums.MemberRoleAdmin.String()}
	for _, name := range sortedSlotNames(slots) {
		newSlot := slots[name]
		oldStatus := enums.SlotStatusPending
		if old, ok := oldSlots[name]; ok {
			oldStatus = old.Status
		}
		if newSlot.Status == oldStatus {
			continue
		}
		s.emitter.SubmissionSlotChanged(ctx, sub, name, oldStatus, newSlot.Status, newSlot.RejectionReason, actor)
	}
	s.emitter.SubmissionStatusChanged(ctx, sub, oldAggregate, actor)
	return sub, nil
}

func (s *service) Status(ctx context.Context, ownerID uuid.UUID, variant *enums.SubmissionVariant) (*StatusResult, error) {
	if ownerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "owner identity missing")
	}
	if variant != nil && !variant.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid submission variant")
	}

	rows, err := s.repo.ListByOwner(ctx, ownerID, variant)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list submissions")
	}
	if len(rows) == 0 {
		return &StatusResult{
			Status:      enums.SubmissionStatusNotSubmitted,
			Submissions: []SubmissionView{},
		}, nil
	}

	views := make([]SubmissionView, len(rows))
	for i := range rows {
		views[i] = toSubmissionView(&rows[i])
	}
	return &StatusResult{Submissions: views}, nil
}

// View renders the transport snapshot for a single submission.
func View(sub *models.ComplianceSubmission) SubmissionView {
	return toSubmissionView(sub)
}

func toSubmissionView(sub *models.ComplianceSubmission) SubmissionView {
	slots := make([]SlotView, 0, len(sub.Slots))
	for _, name := range sortedSlotNames(sub.Slots) {
		slot := sub.Slots[name]
		slots = append(slots, SlotView{
			Name:            name,
			URL:             slot.URL,
			Status:          slot.Status,
			RejectionReason: slot.RejectionReason,
		})
	}
	return SubmissionView{
		ID:              sub.ID,
		Variant:         sub.Variant,
		UniqueKey:       sub.UniqueKey,
		AggregateStatus: sub.AggregateStatus,
		RejectionReason: sub.RejectionReason,
		Details:         sub.Details,
		Slots:           slots,
		CreatedAt:       sub.CreatedAt,
		UpdatedAt:       sub.UpdatedAt,
	}
}

func sortedSlotNames(slots dbtypes.SlotMap) []string {
	names := make([]string, 0, len(slots))
	for name := range slots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
