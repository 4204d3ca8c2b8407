package services

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/markdave123-py/genai-chat/internal/core"
	"github.com/markdave123-py/genai-chat/internal/errs"
	"github.com/markdave123-py/genai-chat/internal/models"
)

// Clock returns the current time.
type Clock func() time.Time

// NewToken returns 32 random bytes encoded as unpadded base64url.
func NewToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// TokenStore keeps at most one token per (username, purpose).
// Expired rows stay in their table and are treated as absent.
type TokenStore struct {
	db       core.TableStore
	now      Clock
	newToken func() (string, error)
	log      *zap.Logger
}

func NewTokenStore(db core.TableStore, log *zap.Logger) *TokenStore {
	return &TokenStore{db: db, now: time.Now, newToken: NewToken, log: log}
}

// SetClock replaces the time source.
func (s *TokenStore) SetClock(c Clock) { s.now = c }

// Now returns the store's current time.
func (s *TokenStore) Now() time.Time { return s.now() }

// Issue deletes any existing token of purpose for username and stores a new one.
func (s *TokenStore) Issue(ctx context.Context, purpose models.Purpose, username string, ttl time.Duration) (*models.Token, error) {
	if err := s.Revoke(ctx, purpose, username); err != nil {
		return nil, err
	}

	value, err := s.newToken()
	if err != nil {
		return nil, err
	}
	tok := &models.Token{
		Username:   username,
		Token:      value,
		Expiration: s.now().UTC().Add(ttl),
	}
	if err := s.db.CreateRow(ctx, purpose.Table(), tok.Row()); err != nil {
		return nil, err
	}
	s.log.Info("token issued",
		zap.String("purpose", string(purpose)),
		zap.String("username", username),
		zap.Time("expires", tok.Expiration),
	)
	return tok, nil
}

// Lookup returns the live token row matching token.
// Unknown, empty and expired tokens all return errs.ErrNotFound.
func (s *TokenStore) Lookup(ctx context.Context, purpose models.Purpose, token string) (*models.Token, error) {
	if token == "" {
		return nil, fmt.Errorf("%s token: %w", purpose, errs.ErrNotFound)
	}
	rows, err := s.db.ReadAllRows(ctx, purpose.Table())
	if err != nil {
		return nil, err
	}
	for _, r := range rows {
		t, err := models.TokenFromRow(r)
		if err != nil {
			return nil, fmt.Errorf("%s row: %w", purpose, err)
		}
		if t.Token != token {
			continue
		}
		if !t.Valid(s.now()) {
			s.log.Debug("token expired", zap.String("purpose", string(purpose)), zap.String("username", t.Username))
			break
		}
		return t, nil
	}
	s.log.Debug("token invalid or expired", zap.String("purpose", string(purpose)))
	return nil, fmt.Errorf("%s token: %w", purpose, errs.ErrNotFound)
}

// Renew moves the expiry of username's token to now + ttl.
func (s *TokenStore) Renew(ctx context.Context, purpose models.Purpose, username string, ttl time.Duration) error {
	return s.db.UpdateRows(ctx, purpose.Table(),
		models.Row{"expiration": s.now().UTC().Add(ttl)},
		models.Row{"username": username},
	)
}

// Revoke deletes every token of purpose held by username.
func (s *TokenStore) Revoke(ctx context.Context, purpose models.Purpose, username string) error {
	return s.db.DeleteRows(ctx, purpose.Table(), models.Row{"username": username})
}

// Consume deletes exactly the given token row.
func (s *TokenStore) Consume(ctx context.Context, purpose models.Purpose, t *models.Token) error {
	return s.db.DeleteRows(ctx, purpose.Table(), models.Row{"username": t.Username, "token": t.Token})
}

// Sweep deletes expired rows of purpose and returns how many were removed.
func (s *TokenStore) Sweep(ctx context.Context, purpose models.Purpose) (int, error) {
	rows, err := s.db.ReadAllRows(ctx, purpose.Table())
	if err != nil {
		return 0, err
	}
	now := s.now()
	removed := 0
	for _, r := range rows {
		t, err := models.TokenFromRow(r)
		if err != nil {
			return removed, fmt.Errorf("%s row: %w", purpose, err)
		}
		if t.Valid(now) {
			continue
		}
		if err := s.Consume(ctx, purpose, t); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
