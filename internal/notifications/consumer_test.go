package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/kelechianya/complypoint-backend/pkg/config"
	"github.com/kelechianya/complypoint-backend/pkg/db/models"
	"github.com/kelechianya/complypoint-backend/pkg/enums"
	"github.com/kelechianya/complypoint-backend/pkg/outbox/payloads"
)

type stubUsersRepo struct {
	user *models.User
	err  error
}

func (s *stubUsersRepo) FindByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if s.err != nil {
		return nil, s.err
	}
	if s.user == nil {
		return nil, gorm.ErrRecordNotFound
	}
	return s.user, nil
}

func mustMarshal(t *testing.T, value any) json.RawMessage {
	t.Helper()
	data, err := json.Marshal(value)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return data
}

func TestBuildDeliveryStatusChanged(t *testing.T) {
	owner := uuid.New()
	consumer := &Consumer{users: &stubUsersRepo{user: &models.User{ID: owner}}}
	reason := "blurry"
	payload := payloads.SubmissionStatusChangedEvent{
		SubmissionID:    uuid.New(),
		OwnerUserID:     owner,
		Variant:         enums.VariantDriverLicense,
		OldStatus:       enums.SubmissionStatusPending,
		NewStatus:       enums.SubmissionStatusIncomplete,
		RejectionReason: &reason,
	}

	delivery, err := consumer.buildDelivery(context.Background(), enums.EventSubmissionStatusChanged, 1, mustMarshal(t, payload))
	if err != nil {
		t.Fatalf("buildDelivery: %v", err)
	}
	if delivery.Type != enums.NotificationTypeStatusChanged {
		t.Fatalf("type = %s", delivery.Type)
	}
	if delivery.Title != "Action required" {
		t.Fatalf("title = %q", delivery.Title)
	}
	if delivery.SubmissionID == nil || *delivery.SubmissionID != payload.SubmissionID {
		t.Fatalf("submission id = %v", delivery.SubmissionID)
	}
}

func TestBuildDeliveryResubmissionReceived(t *testing.T) {
	owner := uuid.New()
	consumer := &Consumer{users: &stubUsersRepo{user: &models.User{ID: owner}}}
	payload := payloads.SubmissionReceivedEvent{
		SubmissionID: uuid.New(),
		OwnerUserID:  owner,
		Variant:      enums.VariantVehicle,
		Resubmitted:  true,
	}

	delivery, err := consumer.buildDelivery(context.Background(), enums.EventSubmissionReceived, 1, mustMarshal(t, payload))
	if err != nil {
		t.Fatalf("buildDelivery: %v", err)
	}
	if delivery.Title != "Resubmission received" {
		t.Fatalf("title = %q", delivery.Title)
	}
}

func TestBuildDeliverySlotRejectedIncludesReason(t *testing.T) {
	owner := uuid.New()
	consumer := &Consumer{users: &stubUsersRepo{user: &models.User{ID: owner}}}
	reason := "blurry"
	payload := payloads.SubmissionSlotChangedEvent{
		SubmissionID:    uuid.New(),
		OwnerUserID:     owner,
		Variant:         enums.VariantDriverLicense,
		SlotName:        "documentBackUrl",
		OldStatus:       enums.SlotStatusPending,
		NewStatus:       enums.SlotStatusRejected,
		RejectionReason: &reason,
	}

	delivery, err := consumer.buildDelivery(context.Background(), enums.EventSubmissionSlotChanged, 1, mustMarshal(t, payload))
	if err != nil {
		t.Fatalf("buildDelivery: %v", err)
	}
	if delivery.Message != "Document documentBackUrl was rejected. Reason: blurry" {
		t.Fatalf("message = %q", delivery.Message)
	}
}

func TestBuildDeliveryMalformedPayload(t *testing.T) {
	consumer := &Consumer{users: &stubUsersRepo{}}

	_, err := consumer.buildDelivery(context.Background(), enums.EventSubmissionReceived, 1, json.RawMessage(`{"ownerUserId":"nope"`))
	if !errors.Is(err, errMalformedPayload) {
		t.Fatalf("expected malformed payload, got %v", err)
	}
}

func TestBuildDeliveryUnknownOwner(t *testing.T) {
	consumer := &Consumer{users: &stubUsersRepo{}}
	payload := payloads.SubmissionReceivedEvent{
		SubmissionID: uuid.New(),
		OwnerUserID:  uuid.New(),
	}

	_, err := consumer.buildDelivery(context.Background(), enums.EventSubmissionReceived, 1, mustMarshal(t, payload))
	if !errors.Is(err, errMalformedPayload) {
		t.Fatalf("expected malformed payload, got %v", err)
	}
}

func TestEmailChannelDelivers(t *testing.T) {
	var got map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer key-123" {
			t.Errorf("authorization = %q", r.Header.Get("Authorization"))
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	ch := NewEmailChannel(config.NotifyConfig{
		EmailEndpoint: server.URL,
		EmailAPIKey:   "key-123",
		EmailFrom:     "no-reply@complypoint.io",
	}, server.Client())

	if err := ch.Deliver(context.Background(), testDelivery()); err != nil {
		t.Fatalf("Deliver: %v", err)
	}
	if got["to"] != "vendor@example.com" || got["from"] != "no-reply@complypoint.io" {
		t.Fatalf("payload = %v", got)
	}
}

func TestEmailChannelSkipsWithoutEndpoint(t *testing.T) {
	ch := NewEmailChannel(config.NotifyConfig{}, nil)

	if err := ch.Deliver(context.Background(), testDelivery()); !errors.Is(err, ErrChannelNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}

func TestSMSChannelSkipsWithoutPhone(t *testing.T) {
	ch := NewSMSChannel(config.NotifyConfig{SMSEndpoint: "https://sms.example"}, nil)

	if err := ch.Deliver(context.Background(), testDelivery()); !errors.Is(err, ErrChannelNotConfigured) {
		t.Fatalf("expected not configured, got %v", err)
	}
}
