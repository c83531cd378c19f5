package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	pkgerrors "github.com/kelechianya/complypoint-backend/pkg/errors"
)

// memStore is an in-memory stand-in for the redis idempotency store. It
// also records the TTL passed on first write.
type memStore struct {
	data    map[string]string
	lastTTL time.Duration
}

func newMemStore() *memStore {
	return &memStore{data: make(map[string]string)}
}

func (m *memStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := m.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (m *memStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := m.data[key]; ok {
		return false, nil
	}
	str, _ := value.(string)
	m.data[key] = str
	m.lastTTL = ttl
	return true, nil
}

func (m *memStore) IdempotencyKey(scope, id string) string {
	return "mem:" + scope + ":" + id
}

func (m *memStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(m.data, key)
	}
	return nil
}

// licenseCreate builds a request against the guarded license submission
// route with chi's route pattern seeded the way the router would.
func licenseCreate(key, body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/compliance/licenses", strings.NewReader(body))
	if key != "" {
		req.Header.Set("Idempotency-Key", key)
	}
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{"/api/v1/compliance/licenses"}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func TestRouteTTLSelection(t *testing.T) {
	cases := []struct {
		name    string
		method  string
		pattern string
		want    time.Duration
		guarded bool
	}{
		{"compliance create", http.MethodPost, "/api/v1/compliance/licenses", criticalIdempotencyTTL, true},
		{"compliance resubmit", http.MethodPost, "/api/v1/compliance/abc/resubmit", criticalIdempotencyTTL, true},
		{"admin batch review", http.MethodPatch, "/api/admin/v1/compliance", criticalIdempotencyTTL, true},
		{"notification read", http.MethodPost, "/api/v1/notifications/123/read", defaultIdempotencyTTL, true},
		{"webhook registration", http.MethodPut, "/api/v1/notifications/webhook", defaultIdempotencyTTL, true},
		{"login is unguarded", http.MethodPost, "/api/v1/auth/login", 0, false},
		{"GET is never guarded", http.MethodGet, "/api/v1/compliance/licenses", 0, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			ttl, guarded := routeTTL(tc.method, tc.pattern)
			if guarded != tc.guarded {
				t.Fatalf("guarded = %v, want %v", guarded, tc.guarded)
			}
			if guarded && ttl != tc.want {
				t.Fatalf("ttl = %v, want %v", ttl, tc.want)
			}
		})
	}
}

func TestIdempotencyRequiresKeyOnGuardedRoute(t *testing.T) {
	handlerRan := false
	handler := Idempotency(newMemStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handlerRan = true
		w.WriteHeader(http.StatusCreated)
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, licenseCreate("", `{"foo":"bar"}`))

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
	if handlerRan {
		t.Fatal("handler must not run without an idempotency key")
	}
}

func TestIdempotencyReplaysFirstResponse(t *testing.T) {
	store := newMemStore()
	var calls int
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, licenseCreate("abc", `{"foo":"bar"}`))
	if first.Code != http.StatusAccepted {
		t.Fatalf("first response = %d", first.Code)
	}
	if store.lastTTL != criticalIdempotencyTTL {
		t.Fatalf("stored with ttl %v, want %v", store.lastTTL, criticalIdempotencyTTL)
	}

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, licenseCreate("abc", `{"foo":"bar"}`))

	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}
	if replay.Code != http.StatusAccepted {
		t.Fatalf("replay status = %d", replay.Code)
	}
	if replay.Header().Get("Content-Type") != "application/json" {
		t.Fatal("replay lost stored headers")
	}
	if strings.TrimSpace(replay.Body.String()) != `{"ok":true}` {
		t.Fatalf("replay body = %s", replay.Body.String())
	}
}

func TestIdempotencyRejectsKeyReuseWithNewBody(t *testing.T) {
	handler := Idempotency(newMemStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), licenseCreate("xyz", `{"foo":"bar"}`))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, licenseCreate("xyz", `{"foo":"diff"}`))

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("parse error response: %v", err)
	}
	if payload.Error.Code != string(pkgerrors.CodeIdempotency) {
		t.Fatalf("error code = %s", payload.Error.Code)
	}
}
