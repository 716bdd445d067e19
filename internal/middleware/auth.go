package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/komix/komix-api/internal/session"
	"github.com/sirupsen/logrus"
)

// SessionCookie is the cookie that carries the session token
const SessionCookie = "komix_session"

type contextKey int

const callerIDKey contextKey = iota

// Resolver maps a session token to the id of the logged in user
type Resolver interface {
	Resolve(ctx context.Context, token string) (int64, error)
}

// AuthMiddleware rejects requests without a valid session and stores the
// caller id in the request context
func AuthMiddleware(sessions Resolver, log *logrus.Logger) mux.MiddlewareFunc {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := TokenFromRequest(r)
			if token == "" {
				writeError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}

			userID, err := sessions.Resolve(r.Context(), token)
			if errors.Is(err, session.ErrUnauthenticated) {
				writeError(w, http.StatusUnauthorized, "unauthenticated")
				return
			}
			if err != nil {
				log.WithError(err).Error("Failed to resolve session")
				writeError(w, http.StatusInternalServerError, "internal server error")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithCallerID(r.Context(), userID)))
		})
	}
}

// TokenFromRequest reads the session token from the cookie, falling back
// to an Authorization bearer header
func TokenFromRequest(r *http.Request) string {
	if c, err := r.Cookie(SessionCookie); err == nil && c.Value != "" {
		return c.Value
	}
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

// WithCallerID returns a copy of ctx carrying the caller id
func WithCallerID(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, callerIDKey, userID)
}

// CallerID returns the caller id stored by AuthMiddleware
func CallerID(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(callerIDKey).(int64)
	return id, ok
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
