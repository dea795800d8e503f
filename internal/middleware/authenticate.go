package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/bookloft/backend/internal/auth"
	"github.com/bookloft/backend/internal/logging"
)

// SessionResolver maps a bearer token to the owning user id.
type SessionResolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

// Authenticate gates protected routes on a valid bearer session. A missing,
// malformed, unknown, or expired credential short-circuits with 401 before
// any handler logic runs; success injects the resolved user id into the
// request context. The check runs fresh on every request.
func Authenticate(sessions SessionResolver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := BearerToken(r)
			if !ok {
				unauthorized(w)
				return
			}

			userID, err := sessions.Resolve(ctx, token)
			if err != nil {
				if !errors.Is(err, auth.ErrUnauthorized) {
					logging.FromContext(ctx).Error("session resolve failed", "error", err)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{"error": "internal server error"})
					return
				}
				unauthorized(w)
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithUserID(ctx, userID)))
		})
	}
}

// BearerToken extracts the credential from a standard Authorization header.
func BearerToken(r *http.Request) (string, bool) {
	header := strings.TrimSpace(r.Header.Get("Authorization"))
	if header == "" {
		return "", false
	}

	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}

	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
}
