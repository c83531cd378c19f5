package compliance

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kelechianya/complypoint-backend/pkg/db/models"
	dbtypes "github.com/kelechianya/complypoint-backend/pkg/db/types"
	"github.com/kelechianya/complypoint-backend/pkg/enums"
	pkgerrors "github.com/kelechianya/complypoint-backend/pkg/errors"
	"github.com/kelechianya/complypoint-backend/pkg/outbox"
)

type stubSubmissionsRepo struct {
	created    *models.ComplianceSubmission
	createErr  error
	findResult *models.ComplianceSubmission
	findErr    error
	byKey      *models.ComplianceSubmission
	listRows   []models.ComplianceSubmission
	listErr    error
	updated    *models.ComplianceSubmission
	updateErr  error
	lastGuard  enums.SubmissionStatus
}

func (s *stubSubmissionsRepo) Create(ctx context.Context, sub *models.ComplianceSubmission) (*models.ComplianceSubmission, error) {
	if s.createErr != nil {
		return nil, s.createErr
	}
	if sub.ID == uuid.Nil {
		sub.ID = uuid.New()
	}
	s.created = sub
	return sub, nil
}

func (s *stubSubmissionsRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.ComplianceSubmission, error) {
	if s.findErr != nil {
		return nil, s.findErr
	}
	if s.findResult == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.findResult, nil
}

func (s *stubSubmissionsRepo) FindByOwnerVariantKey(ctx context.Context, ownerID uuid.UUID, variant enums.SubmissionVariant, key string) (*models.ComplianceSubmission, error) {
	if s.byKey == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.byKey, nil
}

func (s *stubSubmissionsRepo) ListByOwner(ctx context.Context, ownerID uuid.UUID, variant *enums.SubmissionVariant) ([]models.ComplianceSubmission, error) {
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.listRows, nil
}

func (s *stubSubmissionsRepo) UpdateGuarded(ctx context.Context, sub *models.ComplianceSubmission, expected enums.SubmissionStatus) error {
	s.lastGuard = expected
	if s.updateErr != nil {
		return s.updateErr
	}
	s.updated = sub
	return nil
}

type recordedSlotEvent struct {
	slotName  string
	oldStatus enums.SlotStatus
	newStatus enums.SlotStatus
	reason    *string
}

type recordedStatusEvent struct {
	oldStatus enums.SubmissionStatus
	newStatus enums.SubmissionStatus
}

type stubEmitter struct {
	received    int
	resubmitted []bool
	status      []recordedStatusEvent
	slots       []recordedSlotEvent
}

func (s *stubEmitter) SubmissionReceived(ctx context.Context, sub *models.ComplianceSubmission, resubmitted bool, actor *outbox.ActorRef) {
	s.received++
	s.resubmitted = append(s.resubmitted, resubmitted)
}

func (s *stubEmitter) SubmissionStatusChanged(ctx context.Context, sub *models.ComplianceSubmission, oldStatus enums.SubmissionStatus, actor *outbox.ActorRef) {
	s.status = append(s.status, recordedStatusEvent{oldStatus: oldStatus, newStatus: sub.AggregateStatus})
}

func (s *stubEmitter) SubmissionSlotChanged(ctx context.Context, sub *models.ComplianceSubmission, slotName string, oldStatus, newStatus enums.SlotStatus, reason *string, actor *outbox.ActorRef) {
	s.slots = append(s.slots, recordedSlotEvent{slotName: slotName, oldStatus: oldStatus, newStatus: newStatus, reason: reason})
}

func newTestService(t *testing.T, repo *stubSubmissionsRepo, emitter *stubEmitter) Service {
	t.Helper()
	svc, err := NewService(repo, emitter)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return svc
}

func expectCode(t *testing.T, err error, code pkgerrors.Code) *pkgerrors.Error {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	if typed.Code() != code {
		t.Fatalf("expected code %s, got %s (%v)", code, typed.Code(), err)
	}
	return typed
}

func TestCreateSubmission(t *testing.T) {
	repo := &stubSubmissionsRepo{}
	emitter := &stubEmitter{}
	svc := newTestService(t, repo, emitter)
	owner := uuid.New()

	created, err := svc.Create(context.Background(), owner, CreateInput{
		Variant:   enums.VariantDriverLicense,
		UniqueKey: "DL-1234",
		SlotURLs: map[string]string{
			"documentUrl":     "https://docs.example/front",
			"documentBackUrl": "https://docs.example/back",
		},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if created.AggregateStatus != enums.SubmissionStatusPending {
		t.Fatalf("aggregate = %s", created.AggregateStatus)
	}
	for name, slot := range created.Slots {
		if slot.Status != enums.SlotStatusPending {
			t.Fatalf("slot %s status = %s", name, slot.Status)
		}
	}
	if emitter.received != 1 || emitter.resubmitted[0] {
		t.Fatalf("expected one initial received event")
	}
}

func TestCreateSubmissionMissingRequiredSlots(t *testing.T) {
	svc := newTestService(t, &stubSubmissionsRepo{}, &stubEmitter{})

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Variant:   enums.VariantBusinessVerification,
		UniqueKey: "RC-99",
		SlotURLs:  map[string]string{"cacDocumentUrl": "https://docs.example/cac"},
	})
	typed := expectCode(t, err, pkgerrors.CodeValidation)
	if typed.Details() == nil {
		t.Fatalf("expected missing slots listed in details")
	}
}

func TestCreateSubmissionUnknownSlot(t *testing.T) {
	svc := newTestService(t, &stubSubmissionsRepo{}, &stubEmitter{})

	_, err := svc.Create(context.Background(), uuid.New(), CreateInput{
		Variant:   enums.VariantVehicle,
		UniqueKey: "ABC-123-XY",
		SlotURLs: map[string]string{
			"driverLicenseUrl":  "u",
			"vehicleLicenseUrl": "u",
			"insuranceUrl":      "u",
			"bogusUrl":          "u",
		},
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestCreateSubmissionDuplicateKey(t *testing.T) {
	owner := uuid.New()
	repo := &stubSubmissionsRepo{
		byKey: &models.ComplianceSubmission{ID: uuid.New(), OwnerUserID: owner},
	}
	svc := newTestService(t, repo, &stubEmitter{})

	_, err := svc.Create(context.Background(), owner, CreateInput{
		Variant:   enums.VariantBusinessVerification,
		UniqueKey: "RC-100",
		SlotURLs: map[string]string{
			"cacDocumentUrl":    "u",
			"proofOfAddressUrl": "u",
			"tinDocumentUrl":    "u",
		},
	})
	expectCode(t, err, pkgerrors.CodeConflict)
}

func licenseSubmission(owner uuid.UUID) *models.ComplianceSubmission {
	return &models.ComplianceSubmission{
		ID:          uuid.New(),
		OwnerUserID: owner,
		Variant:     enums.VariantDriverLicense,
		UniqueKey:   "DL-1234",
		Slots: dbtypes.SlotMap{
			"documentUrl":     {URL: "https://docs.example/front", Status: enums.SlotStatusPending},
			"documentBackUrl": {URL: "https://docs.example/back", Status: enums.SlotStatusPending},
		},
		AggregateStatus: enums.SubmissionStatusPending,
	}
}

func TestAdminUpdateMixedDecisions(t *testing.T) {
	owner := uuid.New()
	sub := licenseSubmission(owner)
	repo := &stubSubmissionsRepo{findResult: sub}
	emitter := &stubEmitter{}
	svc := newTestService(t, repo, emitter)

	admin := uuid.New()
	updated, err := svc.AdminUpdate(context.Background(), admin, AdminUpdateInput{
		SubmissionID: sub.ID,
		Decisions: map[string]SlotDecision{
			"documentUrl":     {Status: enums.SlotStatusApproved},
			"documentBackUrl": {Status: enums.SlotStatusRejected, RejectionReason: "blurry"},
		},
		RequestedAggregate: enums.SubmissionStatusIncomplete,
		RejectionReason:    "blurry",
	})
	if err != nil {
		t.Fatalf("AdminUpdate: %v", err)
	}
	if updated.AggregateStatus != enums.SubmissionStatusIncomplete {
		t.Fatalf("aggregate = %s", updated.AggregateStatus)
	}
	if updated.RejectionReason == nil || *updated.RejectionReason != "blurry" {
		t.Fatalf("rejection reason = %v", updated.RejectionReason)
	}
	if updated.ProcessedAt == nil {
		t.Fatalf("processed at not set")
	}
	if updated.AdminID == nil || *updated.AdminID != admin {
		t.Fatalf("admin id = %v, want %s", updated.AdminID, admin)
	}
	back := updated.Slots["documentBackUrl"]
	if back.Status != enums.SlotStatusRejected || back.RejectionReason == nil || *back.RejectionReason != "blurry" {
		t.Fatalf("back slot = %+v", back)
	}

	if len(emitter.slots) != 2 {
		t.Fatalf("expected 2 slot events, got %d", len(emitter.slots))
	}
	if len(emitter.status) != 1 {
		t.Fatalf("expected 1 status event, got %d", len(emitter.status))
	}
	if emitter.status[0].newStatus != enums.SubmissionStatusIncomplete {
		t.Fatalf("status event new = %s", emitter.status[0].newStatus)
	}
	if repo.lastGuard != enums.SubmissionStatusPending {
		t.Fatalf("guard = %s", repo.lastGuard)
	}
}

func TestAdminUpdateAlreadyProcessed(t *testing.T) {
	owner := uuid.New()
	sub := licenseSubmission(owner)
	sub.AggregateStatus = enums.SubmissionStatusIncomplete
	repo := &stubSubmissionsRepo{findResult: sub}
	svc := newTestService(t, repo, &stubEmitter{})

	_, err := svc.AdminUpdate(context.Background(), uuid.New(), AdminUpdateInput{
		SubmissionID: sub.ID,
		Decisions: map[string]SlotDecision{
			"documentUrl": {Status: enums.SlotStatusApproved},
		},
		RequestedAggregate: enums.SubmissionStatusApproved,
	})
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestAdminUpdateRejectedRequiresIncomplete(t *testing.T) {
	owner := uuid.New()
	sub := licenseSubmission(owner)
	repo := &stubSubmissionsRepo{findResult: sub}
	svc := newTestService(t, repo, &stubEmitter{})

	_, err := svc.AdminUpdate(context.Background(), uuid.New(), AdminUpdateInput{
		SubmissionID: sub.ID,
		Decisions: map[string]SlotDecision{
			"documentUrl":     {Status: enums.SlotStatusApproved},
			"documentBackUrl": {Status: enums.SlotStatusRejected, RejectionReason: "blurry"},
		},
		RequestedAggregate: enums.SubmissionStatusRejected,
		RejectionReason:    "blurry",
	})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestAdminUpdateCollectsDecisionProblems(t *testing.T) {
	owner := uuid.New()
	sub := licenseSubmission(owner)
	repo := &stubSubmissionsRepo{findResult: sub}
	svc := newTestService(t, repo, &stubEmitter{})

	_, err := svc.AdminUpdate(context.Background(), uuid.New(), AdminUpdateInput{
		SubmissionID: sub.ID,
		Decisions: map[string]SlotDecision{
			"documentUrl":     {Status: enums.SlotStatusRejected},
			"notARealSlot":    {Status: enums.SlotStatusApproved},
			"documentBackUrl": {Status: enums.SlotStatusPending},
		},
		RequestedAggregate: enums.SubmissionStatusRejected,
		RejectionReason:    "bad",
	})
	typed := expectCode(t, err, pkgerrors.CodeValidation)
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("details = %T", typed.Details())
	}
	problems, ok := details["slots"].(map[string]string)
	if !ok {
		t.Fatalf("slots detail = %T", details["slots"])
	}
	if len(problems) != 3 {
		t.Fatalf("expected all 3 problems collected, got %v", problems)
	}
}

func TestAdminUpdateConcurrentLoss(t *testing.T) {
	owner := uuid.New()
	sub := licenseSubmission(owner)
	repo := &stubSubmissionsRepo{findResult: sub, updateErr: ErrStaleAggregate}
	svc := newTestService(t, repo, &stubEmitter{})

	_, err := svc.AdminUpdate(context.Background(), uuid.New(), AdminUpdateInput{
		SubmissionID: sub.ID,
		Decisions: map[string]SlotDecision{
			"documentUrl":     {Status: enums.SlotStatusApproved},
			"documentBackUrl": {Status: enums.SlotStatusApproved},
		},
		RequestedAggregate: enums.SubmissionStatusApproved,
	})
	expectCode(t, err, pkgerrors.CodeConflict)
}

func TestResubmitResetsOnlyProvidedSlots(t *testing.T) {
	owner := uuid.New()
	sub := licenseSubmission(owner)
	reason := "blurry"
	sub.Slots = dbtypes.SlotMap{
		"documentUrl":     {URL: "https://docs.example/front", Status: enums.SlotStatusApproved},
		"documentBackUrl": {URL: "https://docs.example/back", Status: enums.SlotStatusRejected, RejectionReason: &reason},
	}
	sub.AggregateStatus = enums.SubmissionStatusIncomplete
	sub.RejectionReason = &reason
	reviewer := uuid.New()
	sub.AdminID = &reviewer
	repo := &stubSubmissionsRepo{findResult: sub}
	emitter := &stubEmitter{}
	svc := newTestService(t, repo, emitter)

	updated, err := svc.Resubmit(context.Background(), owner, ResubmitInput{
		SubmissionID: sub.ID,
		SlotURLs:     map[string]string{"documentBackUrl": "https://docs.example/back-v2"},
	})
	if err != nil {
		t.Fatalf("Resubmit: %v", err)
	}
	front := updated.Slots["documentUrl"]
	if front.Status != enums.SlotStatusApproved {
		t.Fatalf("approved slot touched: %s", front.Status)
	}
	back := updated.Slots["documentBackUrl"]
	if back.Status != enums.SlotStatusPending || back.URL != "https://docs.example/back-v2" || back.RejectionReason != nil {
		t.Fatalf("back slot = %+v", back)
	}
	if updated.AggregateStatus != enums.SubmissionStatusPending {
		t.Fatalf("aggregate = %s", updated.AggregateStatus)
	}
	if updated.RejectionReason != nil || updated.ProcessedAt != nil || updated.AdminID != nil {
		t.Fatalf("review fields not cleared")
	}
	if emitter.received != 1 || !emitter.resubmitted[0] {
		t.Fatalf("expected one resubmitted received event")
	}
	if len(emitter.status) != 1 || emitter.status[0].oldStatus != enums.SubmissionStatusIncomplete {
		t.Fatalf("status events = %+v", emitter.status)
	}
}

func TestResubmitApprovedSlotRejected(t *testing.T) {
	owner := uuid.New()
	sub := licenseSubmission(owner)
	sub.Slots = dbtypes.SlotMap{
		"documentUrl":     {URL: "u", Status: enums.SlotStatusApproved},
		"documentBackUrl": {URL: "u", Status: enums.SlotStatusRejected},
	}
	sub.AggregateStatus = enums.SubmissionStatusIncomplete
	repo := &stubSubmissionsRepo{findResult: sub}
	svc := newTestService(t, repo, &stubEmitter{})

	_, err := svc.Resubmit(context.Background(), owner, ResubmitInput{
		SubmissionID: sub.ID,
		SlotURLs:     map[string]string{"documentUrl": "https://docs.example/front-v2"},
	})
	typed := expectCode(t, err, pkgerrors.CodeValidation)
	details, ok := typed.Details().(map[string]any)
	if !ok {
		t.Fatalf("details = %T", typed.Details())
	}
	slots, ok := details["slots"].([]string)
	if !ok || len(slots) != 1 || slots[0] != "documentUrl" {
		t.Fatalf("offending slots = %v", details["slots"])
	}
}

func TestResubmitApprovedSubmissionRejected(t *testing.T) {
	owner := uuid.New()
	sub := licenseSubmission(owner)
	sub.AggregateStatus = enums.SubmissionStatusApproved
	repo := &stubSubmissionsRepo{findResult: sub}
	svc := newTestService(t, repo, &stubEmitter{})

	_, err := svc.Resubmit(context.Background(), owner, ResubmitInput{
		SubmissionID: sub.ID,
		SlotURLs:     map[string]string{"documentBackUrl": "u"},
	})
	typed := expectCode(t, err, pkgerrors.CodeConflict)
	if typed.Message() != "cannot resubmit approved document" {
		t.Fatalf("message = %q", typed.Message())
	}
}

func TestResubmitRequiresURLs(t *testing.T) {
	svc := newTestService(t, &stubSubmissionsRepo{}, &stubEmitter{})

	_, err := svc.Resubmit(context.Background(), uuid.New(), ResubmitInput{SubmissionID: uuid.New()})
	expectCode(t, err, pkgerrors.CodeValidation)
}

func TestResubmitForeignSubmissionHidden(t *testing.T) {
	sub := licenseSubmission(uuid.New())
	repo := &stubSubmissionsRepo{findResult: sub}
	svc := newTestService(t, repo, &stubEmitter{})

	_, err := svc.Resubmit(context.Background(), uuid.New(), ResubmitInput{
		SubmissionID: sub.ID,
		SlotURLs:     map[string]string{"documentBackUrl": "u"},
	})
	expectCode(t, err, pkgerrors.CodeNotFound)
}

func TestStatusNotSubmitted(t *testing.T) {
	svc := newTestService(t, &stubSubmissionsRepo{}, &stubEmitter{})

	result, err := svc.Status(context.Background(), uuid.New(), nil)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if result.Status != enums.SubmissionStatusNotSubmitted {
		t.Fatalf("status = %s", result.Status)
	}
	if len(result.Submissions) != 0 {
		t.Fatalf("expected empty submissions")
	}
}

func TestStatusListsSubmissions(t *testing.T) {
	owner := uuid.New()
	sub := licenseSubmission(owner)
	repo := &stubSubmissionsRepo{listRows: []models.ComplianceSubmission{*sub}}
	svc := newTestService(t, repo, &stubEmitter{})

	result, err := svc.Status(context.Background(), owner, nil)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if result.Status != "" {
		t.Fatalf("sentinel leaked: %s", result.Status)
	}
	if len(result.Submissions) != 1 {
		t.Fatalf("submissions = %d", len(result.Submissions))
	}
	view := result.Submissions[0]
	if len(view.Slots) != 2 || view.Slots[0].Name != "documentBackUrl" {
		t.Fatalf("slot views = %+v", view.Slots)
	}
}
