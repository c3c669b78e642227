// ABOUTME: Tests for the HTTP authentication middleware
// ABOUTME: Covers JWT bearer tokens, basic auth, and the disabled passthrough

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoSubject() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authCtx := FromContext(r.Context())
		if authCtx == nil {
			w.Write([]byte("anonymous"))
			return
		}
		w.Write([]byte(authCtx.Method + ":" + authCtx.Subject))
	})
}

func TestMiddlewareJWT(t *testing.T) {
	verifier := NewJWTVerifier([]byte("test-secret"))
	handler := Middleware(verifier, BasicCredentials{})(echoSubject())

	token, err := verifier.Generate("ci-bot", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "jwt:ci-bot", rec.Body.String())
}

func TestMiddlewareRejectsBadToken(t *testing.T) {
	verifier := NewJWTVerifier([]byte("test-secret"))
	handler := Middleware(verifier, BasicCredentials{})(echoSubject())

	tests := []struct {
		name   string
		header string
	}{
		{"no header", ""},
		{"wrong scheme", "Token abc"},
		{"garbage token", "Bearer not-a-jwt"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusUnauthorized, rec.Code)
		})
	}
}

func TestMiddlewareBasicAuth(t *testing.T) {
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	basic := BasicCredentials{Username: "ops", PasswordHash: hash}
	handler := Middleware(nil, basic)(echoSubject())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("ops", "hunter2")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "basic:ops", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("ops", "wrong")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestMiddlewareEitherMechanismPasses(t *testing.T) {
	verifier := NewJWTVerifier([]byte("test-secret"))
	hash, err := HashPassword("hunter2")
	require.NoError(t, err)
	handler := Middleware(verifier, BasicCredentials{Username: "ops", PasswordHash: hash})(echoSubject())

	token, err := verifier.Generate("ci-bot", time.Hour)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "jwt:ci-bot", rec.Body.String())

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.SetBasicAuth("ops", "hunter2")
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, "basic:ops", rec.Body.String())
}

func TestMiddlewareDisabledPassesThrough(t *testing.T) {
	handler := Middleware(nil, BasicCredentials{})(echoSubject())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "anonymous", rec.Body.String())
}
