package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/markdave123-py/genai-chat/internal/api/handlers"
	appMiddleware "github.com/markdave123-py/genai-chat/internal/api/middlewares"
	"github.com/markdave123-py/genai-chat/internal/config"
)

type stubAccounts struct {
	handlers.AccountService
	sessions map[string]string
}

func (s *stubAccounts) CheckSession(_ context.Context, token string) (string, bool, error) {
	u, ok := s.sessions[token]
	return u, ok, nil
}

func (s *stubAccounts) RenewSession(context.Context, string) error { return nil }

type stubChat struct{}

func (stubChat) Send(_ context.Context, username, message string) (string, error) {
	return username + ":" + message, nil
}

func newTestRouter(t *testing.T) (http.Handler, *appMiddleware.CookieCodec) {
	t.Helper()
	views, err := handlers.NewRenderer(zap.NewNop())
	require.NoError(t, err)
	cookies, err := appMiddleware.NewCookieCodec("k", false)
	require.NoError(t, err)
	acc := &stubAccounts{sessions: map[string]string{"tok": "alice"}}
	return NewRouter(&config.Config{Port: "0"}, acc, stubChat{}, cookies, views, zap.NewNop()), cookies
}

func TestRouter_PublicRoutes(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))
	require.Equal(t, "pong", rec.Body.String())

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/static/style.css", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_ProtectedRoutes(t *testing.T) {
	h, cookies := newTestRouter(t)

	for _, path := range []string{"/chat", "/change_password"} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		require.Equal(t, http.StatusFound, rec.Code, path)
		require.Equal(t, "/login?error=session_expired", rec.Header().Get("Location"))
	}

	v, err := cookies.Encode("tok")
	require.NoError(t, err)
	r := httptest.NewRequest(http.MethodPost, "/send", strings.NewReader(`{"message":"hi"}`))
	r.AddCookie(&http.Cookie{Name: appMiddleware.SessionCookieName, Value: v})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"response":"alice:hi"}`, rec.Body.String())
}
