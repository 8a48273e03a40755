package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/cliptube/backend/internal/logging"
	"github.com/cliptube/backend/internal/models"
)

type authCtxKey string

const userKey authCtxKey = "authenticatedUser"

// Authenticator resolves a bearer access token to the account it belongs to.
type Authenticator interface {
	Authenticate(ctx context.Context, accessToken string) (models.User, error)
}

// RequireAuth guards a handler behind bearer-token authentication. The
// resolved user is stored on the request context for UserFromContext. The
// token is read from the Authorization header, falling back to the
// accessToken cookie set at login.
func RequireAuth(sessions Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token := bearerToken(r)
			if token == "" {
				if cookie, err := r.Cookie("accessToken"); err == nil {
					token = cookie.Value
				}
			}

			user, err := sessions.Authenticate(ctx, token)
			if err != nil {
				logging.FromContext(ctx).Warn("request not authenticated", "error", err)
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"error":"authentication required"}`))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(ctx, user)))
		})
	}
}

// WithUser stores the authenticated user on the context.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext retrieves the authenticated user placed by RequireAuth.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
