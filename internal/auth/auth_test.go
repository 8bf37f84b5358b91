package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testSecret = "test-secret"

func mintToken(t *testing.T, secret, issuer, subject string, expiresAt time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Issuer:    issuer,
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(expiresAt),
		IssuedAt:  jwt.NewNumericDate(expiresAt.Add(-time.Hour)),
	})
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("Failed to sign token: %v", err)
	}
	return signed
}

func TestVerifyValidToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	verifier := NewJWTVerifierWithClock(testSecret, "parlo", func() time.Time { return now })

	token := mintToken(t, testSecret, "parlo", "user-42", now.Add(time.Hour))
	id, err := verifier.Verify(token)
	if err != nil {
		t.Fatalf("Expected valid token, got error: %v", err)
	}
	if id.UserID != "user-42" {
		t.Errorf("Expected user-42, got %q", id.UserID)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	verifier := NewJWTVerifierWithClock(testSecret, "parlo", func() time.Time { return now })

	token := mintToken(t, testSecret, "parlo", "user-42", now.Add(-time.Minute))
	if _, err := verifier.Verify(token); err == nil {
		t.Error("Expected error for expired token")
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	now := time.Now()
	verifier := NewJWTVerifierWithClock(testSecret, "parlo", time.Now)

	token := mintToken(t, "other-secret", "parlo", "user-42", now.Add(time.Hour))
	if _, err := verifier.Verify(token); err == nil {
		t.Error("Expected error for token signed with wrong secret")
	}
}

func TestVerifyIssuerMismatch(t *testing.T) {
	now := time.Now()
	verifier := NewJWTVerifierWithClock(testSecret, "parlo", time.Now)

	token := mintToken(t, testSecret, "someone-else", "user-42", now.Add(time.Hour))
	if _, err := verifier.Verify(token); err == nil {
		t.Error("Expected error for issuer mismatch")
	}
}

func TestVerifyMissingSubject(t *testing.T) {
	now := time.Now()
	verifier := NewJWTVerifierWithClock(testSecret, "parlo", time.Now)

	token := mintToken(t, testSecret, "parlo", "", now.Add(time.Hour))
	if _, err := verifier.Verify(token); err == nil {
		t.Error("Expected error for missing subject")
	}
}

func TestVerifyEmptyToken(t *testing.T) {
	verifier := NewJWTVerifier(testSecret, "parlo")
	if _, err := verifier.Verify("  "); err == nil {
		t.Error("Expected error for empty token")
	}
}

func TestMiddlewareAttachesIdentity(t *testing.T) {
	now := time.Now()
	verifier := NewJWTVerifierWithClock(testSecret, "parlo", time.Now)
	token := mintToken(t, testSecret, "parlo", "user-7", now.Add(time.Hour))

	var authenticated bool
	var userID string
	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authenticated = IsAuthenticated(r.Context())
		if id, ok := IdentityFromContext(r.Context()); ok {
			userID = id.UserID
		}
	}))

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	handler.ServeHTTP(httptest.NewRecorder(), req)

	if !authenticated {
		t.Error("Expected request to be authenticated")
	}
	if userID != "user-7" {
		t.Errorf("Expected user-7, got %q", userID)
	}
}

func TestMiddlewareInvalidTokenStaysGuest(t *testing.T) {
	verifier := NewJWTVerifier(testSecret, "parlo")

	var authenticated bool
	var status int
	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authenticated = IsAuthenticated(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	status = rec.Code

	if authenticated {
		t.Error("Expected invalid token to leave request as guest")
	}
	if status != http.StatusOK {
		t.Errorf("Expected guest request to proceed, got %d", status)
	}
}

func TestMiddlewareNoHeaderStaysGuest(t *testing.T) {
	verifier := NewJWTVerifier(testSecret, "parlo")

	var authenticated bool
	handler := Middleware(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authenticated = IsAuthenticated(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if authenticated {
		t.Error("Expected request without header to be guest")
	}
}
