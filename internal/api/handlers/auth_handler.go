package handlers

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	middleware "github.com/markdave123-py/genai-chat/internal/api/middlewares"
	"github.com/markdave123-py/genai-chat/internal/errs"
)

// AccountService is the account lifecycle the auth pages drive.
type AccountService interface {
	middleware.Sessions
	Signup(ctx context.Context, username, email, password string) error
	ConfirmEmail(ctx context.Context, token string) (string, error)
	Login(ctx context.Context, username, password string) (string, error)
	Logout(ctx context.Context, username string) error
	ForgotPassword(ctx context.Context, email string) error
	CheckResetToken(ctx context.Context, token string) (string, error)
	ResetPassword(ctx context.Context, token, newPassword string) (string, error)
	ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error
}

var loginErrors = map[string]string{
	"session_expired": "Your session has expired due to inactivity. Please log in again.",
	"confirm_expired": "Email confirmation has expired. Try signing up again.",
	"reset_expired":   "Password reset has expired. Try requesting again.",
}

type AuthHandler struct {
	accounts AccountService
	cookies  *middleware.CookieCodec
	views    *Renderer
	log      *zap.Logger
}

func NewAuthHandler(accounts AccountService, cookies *middleware.CookieCodec, views *Renderer, log *zap.Logger) *AuthHandler {
	return &AuthHandler{accounts: accounts, cookies: cookies, views: views, log: log}
}

func (h *AuthHandler) signedIn(r *http.Request) string {
	username, ok, err := middleware.CurrentUser(r, h.cookies, h.accounts)
	if err != nil {
		h.log.Error("session lookup failed", zap.Error(err))
		return ""
	}
	if !ok {
		return ""
	}
	return username
}

// Index sends signed-in users to the chat and everyone else to the home page.
func (h *AuthHandler) Index(w http.ResponseWriter, r *http.Request) {
	if h.signedIn(r) != "" {
		http.Redirect(w, r, "/chat", http.StatusFound)
		return
	}
	http.Redirect(w, r, "/home", http.StatusFound)
}

func (h *AuthHandler) Home(w http.ResponseWriter, r *http.Request) {
	if h.signedIn(r) != "" {
		http.Redirect(w, r, "/chat", http.StatusFound)
		return
	}
	h.views.HTML(w, http.StatusOK, "home", Page{})
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	h.views.HTML(w, http.StatusOK, "login", Page{Error: loginErrors[r.URL.Query().Get("error")]})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := strings.TrimSpace(r.PostFormValue("password"))

	token, err := h.accounts.Login(r.Context(), username, password)
	switch {
	case errors.Is(err, errs.ErrInvalidCredentials):
		h.views.HTML(w, http.StatusOK, "login", Page{Error: "Invalid username or password"})
		return
	case errors.Is(err, errs.ErrEmailUnconfirmed):
		h.views.HTML(w, http.StatusOK, "login", Page{Error: "User email has not been confirmed"})
		return
	case err != nil:
		h.log.Error("login failed", zap.String("username", username), zap.Error(err))
		h.views.ServerError(w)
		return
	}

	if err := h.cookies.SetSession(w, token); err != nil {
		h.log.Error("set session cookie", zap.Error(err))
		h.views.ServerError(w)
		return
	}
	http.Redirect(w, r, "/chat", http.StatusFound)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if username := h.signedIn(r); username != "" {
		if err := h.accounts.Logout(r.Context(), username); err != nil {
			h.log.Error("logout failed", zap.String("username", username), zap.Error(err))
		}
	} else {
		h.log.Info("logout without a live session")
	}
	h.cookies.ClearSession(w)
	h.views.HTML(w, http.StatusOK, "logout", Page{})
}

func (h *AuthHandler) SignupPage(w http.ResponseWriter, r *http.Request) {
	h.views.HTML(w, http.StatusOK, "signup", Page{})
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	username := strings.TrimSpace(r.PostFormValue("username"))
	password := r.PostFormValue("password")
	email := strings.TrimSpace(r.PostFormValue("email"))
	confirm := strings.TrimSpace(r.PostFormValue("confirmEmail"))

	var msg string
	switch {
	case username == "" || email == "" || password == "":
		msg = "Please enter a username, email, and password"
	case email != confirm:
		msg = "Emails do not match"
	}
	if msg == "" {
		err := h.accounts.Signup(r.Context(), username, email, password)
		var verr *errs.ValidationError
		switch {
		case err == nil:
			h.views.HTML(w, http.StatusOK, "signup_success", Page{})
			return
		case errors.Is(err, errs.ErrDuplicateUsername):
			msg = "Username already exists"
		case errors.Is(err, errs.ErrDuplicateEmail):
			msg = "Email already in use"
		case errors.As(err, &verr):
			msg = verr.Reason
		default:
			h.log.Error("signup failed", zap.String("username", username), zap.Error(err))
			h.views.ServerError(w)
			return
		}
	}
	h.log.Warn("failed signup attempt", zap.String("username", username), zap.String("reason", msg))
	h.views.HTML(w, http.StatusOK, "signup", Page{Error: msg})
}

func (h *AuthHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	_, err := h.accounts.ConfirmEmail(r.Context(), r.URL.Query().Get("token"))
	if errors.Is(err, errs.ErrTokenInvalid) {
		http.Redirect(w, r, "/login?error=confirm_expired", http.StatusFound)
		return
	}
	if err != nil {
		h.log.Error("confirm email failed", zap.Error(err))
		h.views.ServerError(w)
		return
	}
	h.views.HTML(w, http.StatusOK, "confirm_email_success", Page{})
}

func (h *AuthHandler) ForgotPasswordPage(w http.ResponseWriter, r *http.Request) {
	h.views.HTML(w, http.StatusOK, "forgot_password", Page{})
}

func (h *AuthHandler) ForgotPassword(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.PostFormValue("email"))
	err := h.accounts.ForgotPassword(r.Context(), email)
	if errors.Is(err, errs.ErrNotFound) {
		h.views.HTML(w, http.StatusOK, "forgot_password", Page{Error: "Email not found"})
		return
	}
	if err != nil {
		h.log.Error("forgot password failed", zap.Error(err))
		h.views.ServerError(w)
		return
	}
	h.views.HTML(w, http.StatusOK, "forgot_password_success", Page{Email: email})
}

// resetToken redirects to the login page and returns false when the reset token is not live.
func (h *AuthHandler) resetToken(w http.ResponseWriter, r *http.Request) (string, bool) {
	token := r.URL.Query().Get("token")
	_, err := h.accounts.CheckResetToken(r.Context(), token)
	if errors.Is(err, errs.ErrTokenInvalid) {
		http.Redirect(w, r, "/login?error=reset_expired", http.StatusFound)
		return "", false
	}
	if err != nil {
		h.log.Error("reset token check failed", zap.Error(err))
		h.views.ServerError(w)
		return "", false
	}
	return token, true
}

func (h *AuthHandler) ResetPasswordPage(w http.ResponseWriter, r *http.Request) {
	token, ok := h.resetToken(w, r)
	if !ok {
		return
	}
	h.views.HTML(w, http.StatusOK, "reset_password", Page{Token: token})
}

func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	token, ok := h.resetToken(w, r)
	if !ok {
		return
	}
	password := r.PostFormValue("password")
	confirm := r.PostFormValue("confirmPassword")
	switch {
	case password == "" || confirm == "":
		h.views.HTML(w, http.StatusOK, "reset_password", Page{Token: token, Error: "Please enter email and confirmation"})
		return
	case password != confirm:
		h.views.HTML(w, http.StatusOK, "reset_password", Page{Token: token, Error: "Passwords do not match"})
		return
	}

	_, err := h.accounts.ResetPassword(r.Context(), token, password)
	if errors.Is(err, errs.ErrTokenInvalid) {
		http.Redirect(w, r, "/login?error=reset_expired", http.StatusFound)
		return
	}
	var verr *errs.ValidationError
	if errors.As(err, &verr) {
		h.views.HTML(w, http.StatusOK, "reset_password", Page{Token: token, Error: verr.Reason})
		return
	}
	if err != nil {
		h.log.Error("reset password failed", zap.Error(err))
		h.views.ServerError(w)
		return
	}
	h.views.HTML(w, http.StatusOK, "reset_password_success", Page{})
}

func (h *AuthHandler) ChangePasswordPage(w http.ResponseWriter, r *http.Request) {
	h.views.HTML(w, http.StatusOK, "change_password", Page{})
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	username, _ := middleware.Username(r.Context())
	oldPassword := r.PostFormValue("oldPassword")
	newPassword := r.PostFormValue("newPassword")
	confirm := r.PostFormValue("confirmPassword")

	if newPassword != confirm {
		h.log.Warn("failed password change", zap.String("username", username))
		h.views.HTML(w, http.StatusOK, "change_password", Page{Error: "Passwords do not match"})
		return
	}
	err := h.accounts.ChangePassword(r.Context(), username, oldPassword, newPassword)
	if errors.Is(err, errs.ErrWrongPassword) {
		h.log.Warn("failed password change", zap.String("username", username))
		h.views.HTML(w, http.StatusOK, "change_password", Page{Error: "Incorrect current password."})
		return
	}
	var verr *errs.ValidationError
	if errors.As(err, &verr) {
		h.views.HTML(w, http.StatusOK, "change_password", Page{Error: verr.Reason})
		return
	}
	if err != nil {
		h.log.Error("change password failed", zap.String("username", username), zap.Error(err))
		h.views.ServerError(w)
		return
	}
	http.Redirect(w, r, "/chat", http.StatusFound)
}

func (h *AuthHandler) Ping(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("pong"))
}
