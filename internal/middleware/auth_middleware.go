package middleware

import (
	"context"
	"net/http"
	"strings"

	"fx-wallet-service/pkg/jwtutil"
	"fx-wallet-service/pkg/response"
)

type contextKey string

const ContextUserID contextKey = "userID"

type TokenVerifier interface {
	ParseAndValidate(token string) (*jwtutil.Claims, error)
}

// RequireAuth rejects requests without a valid bearer token and stores the
// token's user id in the request context.
func RequireAuth(verifier TokenVerifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				response.ErrorWithCode(w, http.StatusUnauthorized, "Unauthorized", "No token provided")
				return
			}
			claims, err := verifier.ParseAndValidate(token)
			if err != nil {
				response.ErrorWithCode(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), claims.UserID)))
		})
	}
}

func GetUserID(ctx context.Context) (string, bool) {
	val, ok := ctx.Value(ContextUserID).(string)
	return val, ok && val != ""
}

// WithUserID is used by tests and internal callers that authenticate
// through other means.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, ContextUserID, userID)
}

func extractToken(r *http.Request) string {
	if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	}
	if cookie, err := r.Cookie("token"); err == nil {
		return cookie.Value
	}
	return ""
}
