// Package auth resolves a customer identity from a bearer token. Token
// issuance lives elsewhere; this service only verifies.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey int

const identityKey contextKey = 0

type Identity struct {
	CustomerID string
	Admin      bool
}

// IdentityFrom returns the caller identity stored by the middleware.
func IdentityFrom(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey).(Identity)
	return id, ok
}

// WithIdentity stores an identity on the context. Handlers downstream of the
// middleware read it back with IdentityFrom.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

func (v *Verifier) verify(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return Identity{}, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, fmt.Errorf("unexpected claims type %T", token.Claims)
	}

	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return Identity{}, fmt.Errorf("token has no subject")
	}

	admin, _ := claims["admin"].(bool)
	return Identity{CustomerID: sub, Admin: admin}, nil
}

// RequireCustomer rejects requests without a valid bearer token and stores
// the resolved identity on the request context.
func (v *Verifier) RequireCustomer(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			writeAuthError(w, "missing bearer token")
			return
		}

		id, err := v.verify(strings.TrimPrefix(header, "Bearer "))
		if err != nil {
			writeAuthError(w, "invalid or expired token")
			return
		}

		next(w, r.WithContext(WithIdentity(r.Context(), id)))
	}
}

// RequireAdmin additionally rejects callers without the admin claim.
func (v *Verifier) RequireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return v.RequireCustomer(func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFrom(r.Context())
		if !id.Admin {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "admin access required"})
			return
		}
		next(w, r)
	})
}

func writeAuthError(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}

// IssueToken signs a customer token. Used by tests and local tooling.
func IssueToken(secret, customerID string, admin bool, ttl time.Duration) (string, error) {
	claims := jwt.MapClaims{
		"sub": customerID,
		"exp": time.Now().Add(ttl).Unix(),
	}
	if admin {
		claims["admin"] = true
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
