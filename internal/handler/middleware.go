package handler

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/AmandineDurand/durand-lacroix-mybudget-testing/internal/session"
)

type contextKey string

const protectedKey contextKey = "protected"

// RequireSession sends anonymous visitors to /login with 303 See Other.
func RequireSession(sessions *session.Manager, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !sessions.IsAuthenticated() {
				logger.Debug("no session, redirecting to login",
					zap.String("path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
				)
				redirect(w, r, "/login", "")
				return
			}

			ctx := context.WithValue(r.Context(), protectedKey, true)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func isProtected(ctx context.Context) bool {
	v, _ := ctx.Value(protectedKey).(bool)
	return v
}
