package apiServer

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/nazeerbasha7/Med-Vault/pkg/ledger"
)

// AuthFunc validates a request's credentials and returns the caller's
// ledger address.
type AuthFunc func(r *http.Request) (ledger.Address, error)

var errNoAuthConfigured = errors.New("apiServer: no authenticator configured")

func denyAll(*http.Request) (ledger.Address, error) {
	return "", errNoAuthConfigured
}

// TokenTTL is how long issued tokens stay valid.
const TokenTTL = 24 * time.Hour

// JWTAuth validates HMAC-signed bearer tokens whose subject is the
// caller's address.
func JWTAuth(secret []byte) AuthFunc {
	return func(r *http.Request) (ledger.Address, error) {
		raw := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if raw == "" || raw == r.Header.Get("Authorization") {
			return "", errors.New("apiServer: missing bearer token")
		}

		token, err := jwt.ParseWithClaims(raw, &jwt.RegisteredClaims{}, func(t *jwt.Token) (any, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil {
			return "", fmt.Errorf("apiServer: invalid token: %w", err)
		}

		claims, ok := token.Claims.(*jwt.RegisteredClaims)
		if !ok {
			return "", errors.New("apiServer: unexpected token claims")
		}
		return ledger.ParseAddress(claims.Subject)
	}
}

// IssueToken mints a token for the given address, for the CLI and tests.
func IssueToken(secret []byte, subject ledger.Address) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   string(subject),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(TokenTTL)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// requireAuth wraps a handler that needs the caller's identity.
func (s *Server) requireAuth(next func(w http.ResponseWriter, r *http.Request, caller ledger.Address)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := s.auth(r)
		if err != nil {
			s.log.Warn("authentication failed", "path", r.URL.Path, "err", err)
			http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
			return
		}
		next(w, r, caller)
	}
}
