package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/letteros/letteros/internal/pkg/httputil"
)

type ctxKey struct{}

// WithUser returns a context carrying u.
func WithUser(ctx context.Context, u User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

// UserFromContext returns the authenticated user placed by RequireAuth.
func UserFromContext(ctx context.Context) (User, bool) {
	u, ok := ctx.Value(ctxKey{}).(User)
	return u, ok && u.ID != ""
}

// UserID returns the authenticated user's id, or "" when there is none.
func UserID(ctx context.Context) string {
	u, _ := UserFromContext(ctx)
	return u.ID
}

// RequireAuth is middleware that requires a session. /auth/ and /health are
// always let through; other paths under /api/ answer 401 JSON.
func (m *Manager) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasPrefix(r.URL.Path, "/auth/") || r.URL.Path == "/health" {
			next.ServeHTTP(w, r)
			return
		}

		sess, err := m.GetSession(r)
		if err != nil {
			if strings.HasPrefix(r.URL.Path, "/api/") {
				httputil.Unauthorized(w)
				return
			}
			next.ServeHTTP(w, r)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), sess.User)))
	})
}
