package middleware

import (
	"crypto/rand"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "sessionToken"

// CookieCodec signs the opaque session token into an HS256 JWT for the session cookie.
// The token is carried in the jti claim; the sessions table stays authoritative.
type CookieCodec struct {
	secret []byte
	secure bool
}

// NewCookieCodec uses secret as the signing key. An empty secret is replaced by a random
// key, which invalidates every cookie on restart.
func NewCookieCodec(secret string, secure bool) (*CookieCodec, error) {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("cookie key: %w", err)
		}
	}
	return &CookieCodec{secret: key, secure: secure}, nil
}

// Encode returns the signed cookie value for token.
func (c *CookieCodec) Encode(token string) (string, error) {
	claims := jwt.RegisteredClaims{
		ID:       token,
		IssuedAt: jwt.NewNumericDate(time.Now()),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
}

// Decode verifies value and returns the session token inside it.
func (c *CookieCodec) Decode(value string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	tok, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (interface{}, error) {
		return c.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("session cookie: %w", err)
	}
	if !tok.Valid || claims.ID == "" {
		return "", errors.New("session cookie: missing token")
	}
	return claims.ID, nil
}

// SetSession writes the session cookie for token.
func (c *CookieCodec) SetSession(w http.ResponseWriter, token string) error {
	value, err := c.Encode(token)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
	return nil
}

// ClearSession expires the session cookie.
func (c *CookieCodec) ClearSession(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionToken extracts the session token from r. ok is false when the cookie is
// missing or fails verification.
func (c *CookieCodec) SessionToken(r *http.Request) (string, bool) {
	ck, err := r.Cookie(SessionCookieName)
	if err != nil || ck.Value == "" {
		return "", false
	}
	token, err := c.Decode(ck.Value)
	if err != nil {
		return "", false
	}
	return token, true
}
