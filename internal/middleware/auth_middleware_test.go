package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"fx-wallet-service/pkg/jwtutil"

	"github.com/stretchr/testify/assert"
)

type verifierFunc func(string) (*jwtutil.Claims, error)

func (f verifierFunc) ParseAndValidate(token string) (*jwtutil.Claims, error) { return f(token) }

func TestRequireAuth(t *testing.T) {
	verifier := verifierFunc(func(token string) (*jwtutil.Claims, error) {
		if token == "good" {
			return &jwtutil.Claims{UserID: "user-7", Role: "user"}, nil
		}
		return nil, errors.New("bad token")
	})

	var seen string
	h := RequireAuth(verifier)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = GetUserID(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		setup  func(r *http.Request)
		status int
		user   string
	}{
		{"no token", func(*http.Request) {}, http.StatusUnauthorized, ""},
		{"bad token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, http.StatusUnauthorized, ""},
		{"bearer", func(r *http.Request) { r.Header.Set("Authorization", "Bearer good") }, http.StatusNoContent, "user-7"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "token", Value: "good"}) }, http.StatusNoContent, "user-7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.user, seen)
		})
	}
}

func TestGetUserIDRejectsEmpty(t *testing.T) {
	_, ok := GetUserID(WithUserID(httptest.NewRequest(http.MethodGet, "/", nil).Context(), ""))
	assert.False(t, ok)
}
