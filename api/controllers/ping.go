package controllers

import (
	"net/http"

	"github.com/kelechianya/complypoint-backend/api/middleware"
	"github.com/kelechianya/complypoint-backend/api/responses"
)

func PublicPing() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		responses.WriteSuccess(w, map[string]string{"scope": "public", "status": "ok"})
	}
}

func PrivatePing() http.HandlerFunc {
	return scopedPing("private")
}

func AdminPing() http.HandlerFunc {
	return scopedPing("admin")
}

// scopedPing echoes the authenticated identity so smoke tests can tell
// which guard chain the request passed through.
func scopedPing(scope string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]string{"scope": scope, "status": "ok"}
		if userID := middleware.UserIDFromContext(r.Context()); userID != "" {
			payload["user_id"] = userID
		}
		if role := middleware.RoleFromContext(r.Context()); role != "" {
			payload["role"] = role
		}
		responses.WriteSuccess(w, payload)
	}
}
