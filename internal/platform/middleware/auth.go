package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"gradegate/internal/roster/models"
	"gradegate/pkg/domain"
	"gradegate/pkg/requestcontext"
)

// CallerResolver turns a raw bearer token into a caller with a fresh role.
type CallerResolver interface {
	Resolve(ctx context.Context, rawToken string) (requestcontext.Caller, *models.User, error)
}

// BearerToken extracts the token from an Authorization header, or "" when the
// header is absent or malformed.
func BearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return token
}

// RequireAuth resolves the bearer token and injects the caller identity into
// the request context. Anything short of a valid, unrevoked token for an
// existing user answers 401.
func RequireAuth(resolver CallerResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := BearerToken(r)
			if token == "" {
				unauthorized(w, "missing bearer token")
				return
			}

			caller, _, err := resolver.Resolve(r.Context(), token)
			if err != nil {
				logger.WarnContext(r.Context(), "token resolution failed",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				unauthorized(w, "invalid or expired token")
				return
			}

			ctx := requestcontext.WithIdentity(r.Context(), caller)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRole gates a route group on the caller's role. It only shapes the
// URL space; the policy checks inside the services stay authoritative.
func RequireRole(roles ...domain.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			caller, ok := requestcontext.Identity(r.Context())
			if !ok {
				unauthorized(w, "authentication required")
				return
			}
			for _, role := range roles {
				if caller.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_, _ = w.Write([]byte(`{"error":"forbidden","message":"role not permitted on this route"}`))
		})
	}
}

func unauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthenticated","message":"` + msg + `"}`))
}
