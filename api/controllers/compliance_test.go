package controllers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kelechianya/complypoint-backend/api/middleware"
	"github.com/kelechianya/complypoint-backend/internal/compliance"
	"github.com/kelechianya/complypoint-backend/pkg/db/models"
	dbtypes "github.com/kelechianya/complypoint-backend/pkg/db/types"
	"github.com/kelechianya/complypoint-backend/pkg/enums"
	pkgerrors "github.com/kelechianya/complypoint-backend/pkg/errors"
	"github.com/kelechianya/complypoint-backend/pkg/logger"
)

type testComplianceService struct {
	createFn      func(ctx context.Context, ownerID uuid.UUID, input compliance.CreateInput) (*models.ComplianceSubmission, error)
	resubmitFn    func(ctx context.Context, ownerID uuid.UUID, input compliance.ResubmitInput) (*models.ComplianceSubmission, error)
	adminUpdateFn func(ctx context.Context, adminID uuid.UUID, input compliance.AdminUpdateInput) (*models.ComplianceSubmission, error)
	statusFn      func(ctx context.Context, ownerID uuid.UUID, variant *enums.SubmissionVariant) (*compliance.StatusResult, error)
}

func (s *testComplianceService) Create(ctx context.Context, ownerID uuid.UUID, input compliance.CreateInput) (*models.ComplianceSubmission, error) {
	if s.createFn != nil {
		return s.createFn(ctx, ownerID, input)
	}
	return nil, nil
}

func (s *testComplianceService) Resubmit(ctx context.Context, ownerID uuid.UUID, input compliance.ResubmitInput) (*models.ComplianceSubmission, error) {
	if s.resubmitFn != nil {
		return s.resubmitFn(ctx, ownerID, input)
	}
	return nil, nil
}

func (s *testComplianceService) AdminUpdate(ctx context.Context, adminID uuid.UUID, input compliance.AdminUpdateInput) (*models.ComplianceSubmission, error) {
	if s.adminUpdateFn != nil {
		return s.adminUpdateFn(ctx, adminID, input)
	}
	return nil, nil
}

func (s *testComplianceService) Status(ctx context.Context, ownerID uuid.UUID, variant *enums.SubmissionVariant) (*compliance.StatusResult, error) {
	if s.statusFn != nil {
		return s.statusFn(ctx, ownerID, variant)
	}
	return &compliance.StatusResult{Submissions: []compliance.SubmissionView{}}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
}

func addRouteParam(req *http.Request, key, value string) *http.Request {
	routeCtx := chi.NewRouteContext()
	routeCtx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx))
}

func TestComplianceCreateDelegates(t *testing.T) {
	ownerID := uuid.New()
	var captured compliance.CreateInput
	svc := &testComplianceService{
		createFn: func(ctx context.Context, oid uuid.UUID, input compliance.CreateInput) (*models.ComplianceSubmission, error) {
			if oid != ownerID {
				t.Fatalf("unexpected owner %s", oid)
			}
			captured = input
			return &models.ComplianceSubmission{
				ID:              uuid.New(),
				OwnerUserID:     oid,
				Variant:         input.Variant,
				UniqueKey:       input.UniqueKey,
				Slots:           dbtypes.SlotMap{"documentUrl": {URL: "https://docs.example/front", Status: enums.SlotStatusPending}},
				AggregateStatus: enums.SubmissionStatusPending,
			}, nil
		},
	}

	body := `{"uniqueKey":"DL-5150","details":{"licenseClass":"C"},"documents":{"documentUrl":"https://docs.example/front","documentBackUrl":"https://docs.example/back"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compliance/licenses", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), ownerID.String()))

	resp := httptest.NewRecorder()
	ComplianceCreate(svc, enums.VariantDriverLicense, testLogger())(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if captured.Variant != enums.VariantDriverLicense {
		t.Fatalf("variant = %s", captured.Variant)
	}
	if captured.UniqueKey != "DL-5150" {
		t.Fatalf("unique key = %s", captured.UniqueKey)
	}
	if len(captured.SlotURLs) != 2 {
		t.Fatalf("slot urls = %v", captured.SlotURLs)
	}
}

func TestComplianceCreateRequiresUser(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compliance/licenses", strings.NewReader(`{"uniqueKey":"x","documents":{}}`))
	resp := httptest.NewRecorder()
	ComplianceCreate(&testComplianceService{}, enums.VariantDriverLicense, testLogger())(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestComplianceCreateMapsConflict(t *testing.T) {
	svc := &testComplianceService{
		createFn: func(ctx context.Context, oid uuid.UUID, input compliance.CreateInput) (*models.ComplianceSubmission, error) {
			return nil, pkgerrors.New(pkgerrors.CodeConflict, "submission already exists for this licenseNumber")
		},
	}

	body := `{"uniqueKey":"DL-5150","documents":{"documentUrl":"https://a","documentBackUrl":"https://b"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compliance/licenses", strings.NewReader(body))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))

	resp := httptest.NewRecorder()
	ComplianceCreate(svc, enums.VariantDriverLicense, testLogger())(resp, req)
	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
}

func TestComplianceResubmitParsesSubmissionID(t *testing.T) {
	ownerID := uuid.New()
	submissionID := uuid.New()
	svc := &testComplianceService{
		resubmitFn: func(ctx context.Context, oid uuid.UUID, input compliance.ResubmitInput) (*models.ComplianceSubmission, error) {
			if input.SubmissionID != submissionID {
				t.Fatalf("submission id = %s", input.SubmissionID)
			}
			return &models.ComplianceSubmission{ID: submissionID, OwnerUserID: oid, Slots: dbtypes.SlotMap{}}, nil
		},
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/compliance/"+submissionID.String()+"/resubmit",
		strings.NewReader(`{"documents":{"documentBackUrl":"https://docs.example/back2"}}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), ownerID.String()))
	req = addRouteParam(req, "submissionId", submissionID.String())

	resp := httptest.NewRecorder()
	ComplianceResubmit(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestComplianceResubmitInvalidID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compliance/nope/resubmit", strings.NewReader(`{"documents":{"a":"b"}}`))
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))
	req = addRouteParam(req, "submissionId", "nope")

	resp := httptest.NewRecorder()
	ComplianceResubmit(&testComplianceService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestComplianceStatusVariantFilter(t *testing.T) {
	ownerID := uuid.New()
	var captured *enums.SubmissionVariant
	svc := &testComplianceService{
		statusFn: func(ctx context.Context, oid uuid.UUID, variant *enums.SubmissionVariant) (*compliance.StatusResult, error) {
			captured = variant
			return &compliance.StatusResult{
				Status:      enums.SubmissionStatusNotSubmitted,
				Submissions: []compliance.SubmissionView{},
			}, nil
		},
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/compliance/status?variant=vehicle", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), ownerID.String()))

	resp := httptest.NewRecorder()
	ComplianceStatus(svc, testLogger())(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if captured == nil || *captured != enums.VariantVehicle {
		t.Fatalf("variant filter = %v", captured)
	}

	var envelope struct {
		Data struct {
			Status      string            `json:"status"`
			Submissions []json.RawMessage `json:"submissions"`
		} `json:"data"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("unmarshal response: %v", err)
	}
	if envelope.Data.Status != "not_submitted" {
		t.Fatalf("status = %q", envelope.Data.Status)
	}
	if len(envelope.Data.Submissions) != 0 {
		t.Fatalf("submissions = %d", len(envelope.Data.Submissions))
	}
}

func TestComplianceStatusRejectsUnknownVariant(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/compliance/status?variant=boat", nil)
	req = req.WithContext(middleware.WithUserID(req.Context(), uuid.NewString()))

	resp := httptest.NewRecorder()
	ComplianceStatus(&testComplianceService{}, testLogger())(resp, req)
	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}
