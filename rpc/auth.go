package rpc

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const tokenIssuer = "arclend"

// NewAdminToken mints an HS256 bearer token accepted by the admin routes.
// The daemon's operator tooling and the tests use it; subjects are free-form
// operator identifiers.
func NewAdminToken(secret []byte, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"iss":  tokenIssuer,
		"sub":  subject,
		"role": "admin",
		"iat":  now.Unix(),
		"exp":  now.Add(ttl).Unix(),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// requireAdminToken guards mutating admin routes. It checks transport-level
// authentication only; the ledger still enforces the caller's on-chain role.
func requireAdminToken(secret []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(secret) == 0 {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "admin routes disabled"})
				return
			}
			header := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || strings.TrimSpace(token) == "" {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "missing bearer token"})
				return
			}
			parsed, err := jwt.Parse(strings.TrimSpace(token), func(t *jwt.Token) (any, error) {
				if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
					return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
				}
				return secret, nil
			}, jwt.WithIssuer(tokenIssuer), jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
			if err != nil || !parsed.Valid {
				writeJSON(w, http.StatusUnauthorized, errorBody{Error: "invalid bearer token"})
				return
			}
			claims, ok := parsed.Claims.(jwt.MapClaims)
			if !ok || claims["role"] != "admin" {
				writeJSON(w, http.StatusForbidden, errorBody{Error: "admin role required"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
