package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/markdave123-py/genai-chat/internal/core"
	"github.com/markdave123-py/genai-chat/internal/errs"
	"github.com/markdave123-py/genai-chat/internal/models"
)

const (
	ConfirmationTTL = 24 * time.Hour
	ResetTTL        = 10 * time.Minute
	SessionTTL      = 30 * time.Minute

	usersTable = "users"

	emailTimeLayout = "Monday, January 02, 2006 at 03:04 PM"
)

// UserManager runs the account lifecycle: signup, email confirmation, login sessions
// and password changes. Users and tokens live in the table store.
type UserManager struct {
	db        core.TableStore
	tokens    *TokenStore
	hasher    *PasswordHasher
	mail      core.Notifier
	publicURL string
	log       *zap.Logger
}

func NewUserManager(db core.TableStore, tokens *TokenStore, hasher *PasswordHasher, mail core.Notifier, publicURL string, log *zap.Logger) *UserManager {
	return &UserManager{
		db:        db,
		tokens:    tokens,
		hasher:    hasher,
		mail:      mail,
		publicURL: strings.TrimRight(publicURL, "/"),
		log:       log,
	}
}

func (m *UserManager) users(ctx context.Context) ([]*models.User, error) {
	rows, err := m.db.ReadAllRows(ctx, usersTable)
	if err != nil {
		return nil, err
	}
	out := make([]*models.User, 0, len(rows))
	for _, r := range rows {
		u, err := models.UserFromRow(r)
		if err != nil {
			return nil, fmt.Errorf("users row: %w", err)
		}
		out = append(out, u)
	}
	return out, nil
}

// FindUser returns the user named username or errs.ErrNotFound.
func (m *UserManager) FindUser(ctx context.Context, username string) (*models.User, error) {
	users, err := m.users(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Username == username {
			return u, nil
		}
	}
	m.log.Debug("user not found", zap.String("username", username))
	return nil, fmt.Errorf("user %q: %w", username, errs.ErrNotFound)
}

// FindUserByEmail returns the user registered with email or errs.ErrNotFound.
func (m *UserManager) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	users, err := m.users(ctx)
	if err != nil {
		return nil, err
	}
	for _, u := range users {
		if u.Email == email {
			return u, nil
		}
	}
	m.log.Debug("no user with email", zap.String("email", email))
	return nil, fmt.Errorf("email %q: %w", email, errs.ErrNotFound)
}

// Signup creates an unconfirmed user and emails a confirmation link valid for 24 hours.
func (m *UserManager) Signup(ctx context.Context, username, email, password string) error {
	if username == "" || email == "" || password == "" {
		return errs.Validation("Please enter a username, email, and password")
	}

	users, err := m.users(ctx)
	if err != nil {
		return err
	}
	var nameTaken, emailTaken bool
	for _, u := range users {
		nameTaken = nameTaken || u.Username == username
		emailTaken = emailTaken || u.Email == email
	}
	if nameTaken {
		return errs.ErrDuplicateUsername
	}
	if emailTaken {
		return errs.ErrDuplicateEmail
	}

	hash, err := m.hasher.Hash(password)
	if err != nil {
		return err
	}
	u := &models.User{Username: username, PasswordHash: hash, Email: email}
	if err := m.db.CreateRow(ctx, usersTable, u.Row()); err != nil {
		return err
	}
	m.log.Info("user created", zap.String("username", username), zap.String("email", email))

	tok, err := m.tokens.Issue(ctx, models.PurposeConfirmation, username, ConfirmationTTL)
	if err != nil {
		return err
	}

	body := fmt.Sprintf(`Hello %s,

Thank you for signing up! Please confirm your email address by clicking the link below:

%s

This link will expire in 24 hours (at %s).

If you did not sign up for this account, please ignore this email.

Best regards,
Chatbot Helper Security Team
`, username, m.link("/confirm_email", tok.Token), tok.Expiration.Format(emailTimeLayout))

	if _, err := m.mail.Send(ctx, []string{email}, "Chatbot Helper Signup Confirmation", body); err != nil {
		return err
	}
	return nil
}

// ConfirmEmail marks the token's user confirmed and consumes the token.
func (m *UserManager) ConfirmEmail(ctx context.Context, token string) (string, error) {
	tok, err := m.tokens.Lookup(ctx, models.PurposeConfirmation, token)
	if err != nil {
		return "", tokenErr(err)
	}
	if err := m.db.UpdateRows(ctx, usersTable, models.Row{"confirmed": true}, models.Row{"username": tok.Username}); err != nil {
		return "", err
	}
	if err := m.tokens.Consume(ctx, models.PurposeConfirmation, tok); err != nil {
		return "", err
	}
	m.log.Info("email confirmed", zap.String("username", tok.Username))
	return tok.Username, nil
}

// Login verifies credentials and issues a 30 minute session, replacing any earlier one.
func (m *UserManager) Login(ctx context.Context, username, password string) (string, error) {
	u, err := m.FindUser(ctx, username)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return "", err
	}
	if u == nil || !m.hasher.Verify(u.PasswordHash, password) {
		m.log.Warn("failed login", zap.String("username", username))
		return "", errs.ErrInvalidCredentials
	}
	if !u.Confirmed {
		m.log.Warn("login before confirmation", zap.String("username", username))
		return "", errs.ErrEmailUnconfirmed
	}

	tok, err := m.tokens.Issue(ctx, models.PurposeSession, username, SessionTTL)
	if err != nil {
		return "", err
	}
	m.log.Info("user logged in", zap.String("username", username))
	return tok.Token, nil
}

// CheckSession returns the username owning a live session token.
// ok is false for empty, unknown and expired tokens; err is only set on store failures.
func (m *UserManager) CheckSession(ctx context.Context, token string) (username string, ok bool, err error) {
	tok, err := m.tokens.Lookup(ctx, models.PurposeSession, token)
	if errors.Is(err, errs.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return tok.Username, true, nil
}

// RenewSession slides the session expiry to now + 30 minutes.
func (m *UserManager) RenewSession(ctx context.Context, username string) error {
	return m.tokens.Renew(ctx, models.PurposeSession, username, SessionTTL)
}

func (m *UserManager) Logout(ctx context.Context, username string) error {
	if err := m.tokens.Revoke(ctx, models.PurposeSession, username); err != nil {
		return err
	}
	m.log.Info("user logged out", zap.String("username", username))
	return nil
}

// ForgotPassword emails a reset link valid for 10 minutes when email belongs to a user.
// It returns errs.ErrNotFound otherwise, without issuing a token or sending mail.
func (m *UserManager) ForgotPassword(ctx context.Context, email string) error {
	u, err := m.FindUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			m.log.Warn("password reset for unknown email", zap.String("email", email))
		}
		return err
	}

	tok, err := m.tokens.Issue(ctx, models.PurposeReset, u.Username, ResetTTL)
	if err != nil {
		return err
	}

	body := fmt.Sprintf(`Hello %s,

Please reset your account password by clicking the link below:

%s

This link will expire in 10 minutes (at %s).

If you did not request to reset your password, please ignore this email.

Best regards,
Chatbot Helper Team
`, u.Username, m.link("/reset_password", tok.Token), tok.Expiration.Format(emailTimeLayout))

	if _, err := m.mail.Send(ctx, []string{email}, "Chatbot Helper Reset Request", body); err != nil {
		return err
	}
	m.log.Info("password reset requested", zap.String("username", u.Username))
	return nil
}

// CheckResetToken returns the user a live reset token belongs to.
func (m *UserManager) CheckResetToken(ctx context.Context, token string) (string, error) {
	tok, err := m.tokens.Lookup(ctx, models.PurposeReset, token)
	if err != nil {
		return "", tokenErr(err)
	}
	return tok.Username, nil
}

// ResetPassword sets a new password for the reset token's user and consumes the token.
func (m *UserManager) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	if newPassword == "" {
		return "", errs.Validation("Please enter email and confirmation")
	}
	tok, err := m.tokens.Lookup(ctx, models.PurposeReset, token)
	if err != nil {
		return "", tokenErr(err)
	}
	if err := m.setPassword(ctx, tok.Username, newPassword); err != nil {
		return "", err
	}
	if err := m.tokens.Consume(ctx, models.PurposeReset, tok); err != nil {
		return "", err
	}
	m.log.Info("password reset", zap.String("username", tok.Username))
	return tok.Username, nil
}

// ChangePassword replaces the password of a signed-in user after checking the current one.
func (m *UserManager) ChangePassword(ctx context.Context, username, oldPassword, newPassword string) error {
	u, err := m.FindUser(ctx, username)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return err
	}
	if u == nil || !m.hasher.Verify(u.PasswordHash, oldPassword) {
		return errs.ErrWrongPassword
	}
	if err := m.setPassword(ctx, username, newPassword); err != nil {
		return err
	}
	m.log.Info("password changed", zap.String("username", username))
	return nil
}

func (m *UserManager) setPassword(ctx context.Context, username, password string) error {
	hash, err := m.hasher.Hash(password)
	if err != nil {
		return err
	}
	return m.db.UpdateRows(ctx, usersTable, models.Row{"password": hash}, models.Row{"username": username})
}

func (m *UserManager) link(path, token string) string {
	return m.publicURL + path + "?token=" + url.QueryEscape(token)
}

// tokenErr maps an absent token to errs.ErrTokenInvalid and passes store failures through.
func tokenErr(err error) error {
	if errors.Is(err, errs.ErrNotFound) {
		return errs.ErrTokenInvalid
	}
	return err
}
