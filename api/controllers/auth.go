package controllers

import (
	"net/http"

	"github.com/kelechianya/complypoint-backend/api/responses"
	"github.com/kelechianya/complypoint-backend/api/validators"
	"github.com/kelechianya/complypoint-backend/internal/auth"
	pkgerrors "github.com/kelechianya/complypoint-backend/pkg/errors"
	"github.com/kelechianya/complypoint-backend/pkg/logger"
)

// accessTokenHeader mirrors the access token outside the JSON body so
// mobile clients can pick it up without parsing the envelope.
const accessTokenHeader = "X-CP-Token"

// AuthLogin exchanges credentials for a token pair.
func AuthLogin(svc auth.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, errAuthUnavailable())
			return
		}

		var body auth.LoginRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Login(r.Context(), body)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		writeTokenResult(w, result.AccessToken, result)
	}
}

func errAuthUnavailable() error {
	return pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable")
}

func writeTokenResult(w http.ResponseWriter, accessToken string, payload any) {
	w.Header().Set(accessTokenHeader, accessToken)
	responses.WriteSuccess(w, payload)
}
