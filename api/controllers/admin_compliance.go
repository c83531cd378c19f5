package controllers

import (
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/kelechianya/complypoint-backend/api/middleware"
	"github.com/kelechianya/complypoint-backend/api/responses"
	"github.com/kelechianya/complypoint-backend/api/validators"
	"github.com/kelechianya/complypoint-backend/internal/compliance"
	"github.com/kelechianya/complypoint-backend/pkg/db/models"
	"github.com/kelechianya/complypoint-backend/pkg/enums"
	pkgerrors "github.com/kelechianya/complypoint-backend/pkg/errors"
	"github.com/kelechianya/complypoint-backend/pkg/logger"
)

const maxRejectionReasonLen = 500

type adminSlotDecision struct {
	Status          string `json:"status" validate:"required"`
	RejectionReason string `json:"rejectionReason,omitempty"`
}

type adminSubmissionUpdate struct {
	SubmissionID    string                       `json:"submissionId" validate:"required"`
	Decisions       map[string]adminSlotDecision `json:"decisions" validate:"required"`
	AggregateStatus string                       `json:"aggregateStatus" validate:"required"`
	RejectionReason string                       `json:"rejectionReason,omitempty"`
}

type adminBatchRequest struct {
	Updates []adminSubmissionUpdate `json:"updates" validate:"required,min=1"`
}

type adminBatchItemError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type adminBatchItem struct {
	SubmissionID string                     `json:"submissionId"`
	Status       string                     `json:"status"`
	Submission   *compliance.SubmissionView `json:"submission,omitempty"`
	Error        *adminBatchItemError       `json:"error,omitempty"`
}

func (u adminSubmissionUpdate) toInput() (compliance.AdminUpdateInput, error) {
	submissionID, err := uuid.Parse(strings.TrimSpace(u.SubmissionID))
	if err != nil {
		return compliance.AdminUpdateInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid submission id")
	}

	aggregate, err := enums.ParseSubmissionStatus(strings.TrimSpace(u.AggregateStatus))
	if err != nil {
		return compliance.AdminUpdateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid aggregate status")
	}

	decisions := make(map[string]compliance.SlotDecision, len(u.Decisions))
	for name, decision := range u.Decisions {
		status, err := enums.ParseSlotStatus(strings.TrimSpace(decision.Status))
		if err != nil {
			return compliance.AdminUpdateInput{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid slot decision status").
				WithDetails(map[string]any{"slots": []string{name}})
		}
		decisions[name] = compliance.SlotDecision{
			Status:          status,
			RejectionReason: validators.SanitizeString(decision.RejectionReason, maxRejectionReasonLen),
		}
	}

	return compliance.AdminUpdateInput{
		SubmissionID:       submissionID,
		Decisions:          decisions,
		RequestedAggregate: aggregate,
		RejectionReason:    validators.SanitizeString(u.RejectionReason, maxRejectionReasonLen),
	}, nil
}

// AdminComplianceBatch applies review decisions to a batch of submissions.
// Items succeed or fail independently; a partial batch answers 207.
func AdminComplianceBatch(svc compliance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "compliance service unavailable"))
			return
		}

		rawAdmin := middleware.UserIDFromContext(r.Context())
		adminID, err := uuid.Parse(rawAdmin)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "admin context missing"))
			return
		}

		var body adminBatchRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		items := make([]adminBatchItem, 0, len(body.Updates))
		failed := false
		for _, update := range body.Updates {
			item := adminBatchItem{SubmissionID: update.SubmissionID}

			input, err := update.toInput()
			if err == nil {
				var updated *models.ComplianceSubmission
				if updated, err = svc.AdminUpdate(r.Context(), adminID, input); err == nil {
					view := compliance.View(updated)
					item.Submission = &view
				}
			}

			if err != nil {
				failed = true
				typed := pkgerrors.As(err)
				if typed == nil {
					typed = pkgerrors.Wrap(pkgerrors.CodeInternal, err, "unexpected error")
				}
				item.Status = "error"
				item.Error = &adminBatchItemError{
					Code:    string(typed.Code()),
					Message: typed.Message(),
					Details: typed.Details(),
				}
				if logg != nil {
					logg.Error(r.Context(), "admin review item failed", err)
				}
			} else {
				item.Status = "ok"
			}
			items = append(items, item)
		}

		status := http.StatusOK
		if failed {
			status = http.StatusMultiStatus
		}
		responses.WriteSuccessStatus(w, status, map[string]any{"items": items})
	}
}
