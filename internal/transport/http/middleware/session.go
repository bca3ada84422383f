package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/pkg/errors"

	"pulse/internal/domain/views"
	"pulse/internal/transport/http/api"
)

const SessionHeader = "X-Session-ID"

type SessionStore interface {
	Get(id string) (*views.Session, error)
}

// Session resolves the X-Session-ID header to a live session and stores it
// in the request context.
func Session(store SessionStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := strings.TrimSpace(r.Header.Get(SessionHeader))
			if id == "" {
				api.Fail(w, http.StatusUnauthorized, "session_required", "X-Session-ID header is required", GetRequestID(r.Context()))
				return
			}
			s, err := store.Get(id)
			if err != nil {
				if errors.Is(err, views.ErrSessionNotFound) {
					api.Fail(w, http.StatusNotFound, "not_found", "session not found or expired", GetRequestID(r.Context()))
					return
				}
				api.Fail(w, http.StatusInternalServerError, "internal_error", "session lookup failed", GetRequestID(r.Context()))
				return
			}
			ctx := context.WithValue(r.Context(), sessionKey, s)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func GetSession(ctx context.Context) (*views.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*views.Session)
	return s, ok && s != nil
}
