package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stockpilot/stockpilot-go/internal/crypto"
)

func newTestTokens(t *testing.T) *crypto.TokenManager {
	t.Helper()
	tm, err := crypto.NewTokenManager(crypto.TokenConfig{
		Secret:   "middleware-test-secret",
		Issuer:   "stockpilot",
		Audience: "stockpilot-api",
	})
	if err != nil {
		t.Fatalf("NewTokenManager() unexpected error: %v", err)
	}
	return tm
}

func protected(t *testing.T, tm *crypto.TokenManager) (http.Handler, *int64) {
	t.Helper()
	var seen int64
	h := JWTAuth(tm)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		if !ok {
			t.Error("user id missing from context")
		}
		seen = id
		w.WriteHeader(http.StatusNoContent)
	}))
	return h, &seen
}

func TestJWTAuth_ValidAccessToken(t *testing.T) {
	tm := newTestTokens(t)
	h, seen := protected(t, tm)

	token, err := tm.Issue("42", time.Minute, "", nil)
	if err != nil {
		t.Fatalf("Issue() unexpected error: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusNoContent)
	}
	if *seen != 42 {
		t.Errorf("user id = %d, want 42", *seen)
	}
}

func TestJWTAuth_Rejections(t *testing.T) {
	tm := newTestTokens(t)
	h, _ := protected(t, tm)

	refresh, _ := tm.Issue("42", time.Hour, crypto.ScopeRefresh, nil)
	nonNumeric, _ := tm.Issue("alice", time.Minute, "", nil)

	other, err := crypto.NewTokenManager(crypto.TokenConfig{Secret: "other-secret", Issuer: "stockpilot", Audience: "stockpilot-api"})
	if err != nil {
		t.Fatalf("NewTokenManager() unexpected error: %v", err)
	}
	forged, _ := other.Issue("42", time.Minute, "", nil)

	tests := []struct {
		name    string
		header  string
		wantMsg string
	}{
		{"missing header", "", "missing authorization header"},
		{"wrong scheme", "Basic abc", "invalid authorization format"},
		{"empty bearer", "Bearer ", "invalid authorization format"},
		{"garbage token", "Bearer not.a.jwt", "invalid or expired token"},
		{"wrong secret", "Bearer " + forged, "invalid or expired token"},
		{"refresh scope", "Bearer " + refresh, "invalid or expired token"},
		{"non numeric subject", "Bearer " + nonNumeric, "invalid or expired token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Fatalf("status = %d, want 401", rec.Code)
			}
			var body map[string]string
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body["error"] != tt.wantMsg {
				t.Errorf("error = %q, want %q", body["error"], tt.wantMsg)
			}
		})
	}
}

func TestUserIDFromContext_Missing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if _, ok := UserIDFromContext(req.Context()); ok {
		t.Error("UserIDFromContext() ok = true on a bare context")
	}
	if id, ok := UserIDFromContext(WithUserID(req.Context(), 7)); !ok || id != 7 {
		t.Errorf("UserIDFromContext(WithUserID(7)) = %d, %v", id, ok)
	}
}
