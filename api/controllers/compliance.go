package controllers

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/kelechianya/complypoint-backend/api/middleware"
	"github.com/kelechianya/complypoint-backend/api/responses"
	"github.com/kelechianya/complypoint-backend/api/validators"
	"github.com/kelechianya/complypoint-backend/internal/compliance"
	"github.com/kelechianya/complypoint-backend/pkg/enums"
	pkgerrors "github.com/kelechianya/complypoint-backend/pkg/errors"
	"github.com/kelechianya/complypoint-backend/pkg/logger"
)

type complianceCreateRequest struct {
	UniqueKey string            `json:"uniqueKey" validate:"required"`
	Details   json.RawMessage   `json:"details"`
	Documents map[string]string `json:"documents" validate:"required"`
}

type complianceResubmitRequest struct {
	Documents map[string]string `json:"documents" validate:"required"`
}

func ownerFromContext(r *http.Request) (uuid.UUID, error) {
	raw := middleware.UserIDFromContext(r.Context())
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}
	return id, nil
}

// ComplianceCreate opens a new submission for the given variant.
func ComplianceCreate(svc compliance.Service, variant enums.SubmissionVariant, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "compliance service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var body complianceCreateRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		created, err := svc.Create(r.Context(), ownerID, compliance.CreateInput{
			Variant:   variant,
			UniqueKey: body.UniqueKey,
			Details:   body.Details,
			SlotURLs:  body.Documents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, compliance.View(created))
	}
}

// ComplianceResubmit replaces rejected or pending documents on an existing submission.
func ComplianceResubmit(svc compliance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "compliance service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		submissionID, err := uuid.Parse(chi.URLParam(r, "submissionId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid submission id"))
			return
		}

		var body complianceResubmitRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		updated, err := svc.Resubmit(r.Context(), ownerID, compliance.ResubmitInput{
			SubmissionID: submissionID,
			SlotURLs:     body.Documents,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, compliance.View(updated))
	}
}

// ComplianceStatus reports the owner's submissions and their aggregates.
func ComplianceStatus(svc compliance.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "compliance service unavailable"))
			return
		}

		ownerID, err := ownerFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var variant *enums.SubmissionVariant
		if raw := strings.TrimSpace(r.URL.Query().Get("variant")); raw != "" {
			parsed, err := enums.ParseSubmissionVariant(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid submission variant"))
				return
			}
			variant = &parsed
		}

		result, err := svc.Status(r.Context(), ownerID, variant)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, result)
	}
}
