package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voltbook/internal/auth"
)

func newProtected(t *testing.T, tokens *auth.TokenService) (http.Handler, *int64) {
	t.Helper()
	var seenUserID int64
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, ok := UserIDFromContext(r.Context())
		if !ok {
			t.Fatal("user id missing from context")
		}
		seenUserID = id
		w.WriteHeader(http.StatusOK)
	})
	return Auth(tokens)(next), &seenUserID
}

func TestAuthAcceptsValidToken(t *testing.T) {
	tokens := auth.NewTokenService("secret", time.Hour)
	handler, seenUserID := newProtected(t, tokens)

	token, err := tokens.GenerateToken(42, "customer")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/bookings/1/charging/status", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if *seenUserID != 42 {
		t.Fatalf("expected user 42, got %d", *seenUserID)
	}
}

func TestAuthRejectsMissingHeader(t *testing.T) {
	tokens := auth.NewTokenService("secret", time.Hour)
	handler, _ := newProtected(t, tokens)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsMalformedHeader(t *testing.T) {
	tokens := auth.NewTokenService("secret", time.Hour)
	handler, _ := newProtected(t, tokens)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Token abc")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAuthRejectsTokenSignedWithOtherSecret(t *testing.T) {
	tokens := auth.NewTokenService("secret", time.Hour)
	otherTokens := auth.NewTokenService("other", time.Hour)
	handler, _ := newProtected(t, tokens)

	token, err := otherTokens.GenerateToken(42, "customer")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
