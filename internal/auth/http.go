// ABOUTME: HTTP middleware for JWT and basic authentication on API endpoints
// ABOUTME: Extracts credentials from Authorization header and adds identity to context

package auth

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// BasicCredentials holds the expected basic auth username and bcrypt
// password hash. A zero value disables basic auth.
type BasicCredentials struct {
	Username     string
	PasswordHash string
}

func (c BasicCredentials) enabled() bool {
	return c.Username != "" && c.PasswordHash != ""
}

// check verifies a username/password pair against the configured credentials.
func (c BasicCredentials) check(user, pass string) bool {
	if !c.enabled() {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(user), []byte(c.Username)) != 1 {
		// Burn a bcrypt comparison anyway so the two failure paths cost the same.
		_ = bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(pass))
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.PasswordHash), []byte(pass)) == nil
}

// HashPassword produces a bcrypt hash suitable for BasicCredentials.PasswordHash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// Middleware authenticates requests with either a JWT bearer token or basic
// auth credentials. Either mechanism may be nil/zero to disable it; with both
// disabled the middleware passes every request through unauthenticated.
func Middleware(verifier TokenVerifier, basic BasicCredentials) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if verifier == nil && !basic.enabled() {
				next.ServeHTTP(w, r)
				return
			}

			if user, pass, ok := r.BasicAuth(); ok && basic.check(user, pass) {
				authCtx := &AuthContext{Subject: user, Method: "basic"}
				next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), authCtx)))
				return
			}

			if verifier != nil {
				token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
				if errMsg == "" {
					subject, err := verifier.Verify(token)
					if err == nil {
						authCtx := &AuthContext{Subject: subject, Method: "jwt"}
						next.ServeHTTP(w, r.WithContext(WithAuth(r.Context(), authCtx)))
						return
					}
				}
			}

			http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
		})
	}
}
