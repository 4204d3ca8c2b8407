package middleware

import (
	"context"
	"net/http"

	"go.uber.org/zap"
)

type ctxKey int

const usernameKey ctxKey = iota

// Sessions checks and renews login sessions.
type Sessions interface {
	CheckSession(ctx context.Context, token string) (username string, ok bool, err error)
	RenewSession(ctx context.Context, username string) error
}

// WithUsername stores the signed-in username in ctx.
func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, usernameKey, username)
}

// Username returns the signed-in username stored by RequireSession.
func Username(ctx context.Context) (string, bool) {
	u, ok := ctx.Value(usernameKey).(string)
	return u, ok && u != ""
}

// CurrentUser resolves the session cookie of r without renewing it.
func CurrentUser(r *http.Request, codec *CookieCodec, sessions Sessions) (string, bool, error) {
	token, ok := codec.SessionToken(r)
	if !ok {
		return "", false, nil
	}
	return sessions.CheckSession(r.Context(), token)
}

// RequireSession lets the request through only with a live session, renewing it for
// another idle period. Other requests are redirected to the login page.
func RequireSession(codec *CookieCodec, sessions Sessions, log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username, ok, err := CurrentUser(r, codec, sessions)
			if err != nil {
				log.Error("session check failed", zap.String("path", r.URL.Path), zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			if !ok {
				log.Debug("no live session", zap.String("path", r.URL.Path))
				http.Redirect(w, r, "/login?error=session_expired", http.StatusFound)
				return
			}
			if err := sessions.RenewSession(r.Context(), username); err != nil {
				log.Error("session renew failed", zap.String("username", username), zap.Error(err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUsername(r.Context(), username)))
		})
	}
}
