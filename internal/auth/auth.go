// Package auth verifies bearer tokens issued by the account backend and
// exposes the authenticated identity on the request context. Requests
// without a valid token proceed as guests.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Identity is the verified account identity attached to a request.
type Identity struct {
	UserID string
	Token  string
}

// Verifier validates a bearer token and returns the account identity.
// Implementations return an error for any token that cannot be trusted.
type Verifier interface {
	Verify(token string) (Identity, error)
}

type contextKey int

const identityKey contextKey = iota

// IdentityFromContext extracts the verified identity from the request
// context. ok is false for guest requests.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// IsAuthenticated reports whether the request carries a verified identity.
func IsAuthenticated(ctx context.Context) bool {
	_, ok := IdentityFromContext(ctx)
	return ok
}

// WithIdentity returns a context carrying the given identity. Exposed for
// tests and internal wiring.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

type sessionClaims struct {
	jwt.RegisteredClaims
}

// JWTVerifier verifies HS256 session tokens minted by the account backend.
type JWTVerifier struct {
	secret []byte
	issuer string
	now    func() time.Time
}

// NewJWTVerifier creates a verifier for the given shared secret and issuer.
func NewJWTVerifier(secret, issuer string) *JWTVerifier {
	return NewJWTVerifierWithClock(secret, issuer, time.Now)
}

// NewJWTVerifierWithClock creates a verifier with an injected clock.
func NewJWTVerifierWithClock(secret, issuer string, now func() time.Time) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, now: now}
}

// Verify parses and validates a session token. The subject claim carries
// the account user ID.
func (v *JWTVerifier) Verify(token string) (Identity, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Identity{}, errors.New("empty token")
	}
	if len(v.secret) == 0 {
		return Identity{}, errors.New("verifier is not configured")
	}

	var claims sessionClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	},
		jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithTimeFunc(v.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("parse session token: %w", err)
	}

	if v.issuer != "" && claims.Issuer != v.issuer {
		return Identity{}, errors.New("session token issuer mismatch")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Identity{}, errors.New("session token subject is required")
	}

	return Identity{UserID: claims.Subject, Token: token}, nil
}

// bearerToken extracts a bearer token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// Middleware attaches the verified identity to the request context when a
// valid bearer token is present. Invalid or missing tokens leave the
// request anonymous rather than rejecting it.
func Middleware(verifier Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r)
			if token == "" || verifier == nil {
				next.ServeHTTP(w, r)
				return
			}
			id, err := verifier.Verify(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}
