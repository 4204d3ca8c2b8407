package models

import (
	"fmt"
	"time"
)

// Row is one relational row keyed by column name.
type Row map[string]any

// User represents an account of the web application.
type User struct {
	Username     string `db:"username" json:"username"`
	PasswordHash string `db:"password" json:"-"`
	Email        string `db:"email" json:"email"`
	Confirmed    bool   `db:"confirmed" json:"confirmed"`
}

// Row converts the user into column values for the users table.
func (u *User) Row() Row {
	return Row{
		"username":  u.Username,
		"password":  u.PasswordHash,
		"email":     u.Email,
		"confirmed": u.Confirmed,
	}
}

// UserFromRow decodes a users table row.
func UserFromRow(r Row) (*User, error) {
	var (
		u   User
		err error
	)
	if u.Username, err = stringCol(r, "username"); err != nil {
		return nil, err
	}
	if u.PasswordHash, err = stringCol(r, "password"); err != nil {
		return nil, err
	}
	if u.Email, err = stringCol(r, "email"); err != nil {
		return nil, err
	}
	switch v := r["confirmed"].(type) {
	case bool:
		u.Confirmed = v
	case nil:
		u.Confirmed = false
	default:
		return nil, fmt.Errorf("column confirmed: unexpected type %T", v)
	}
	return &u, nil
}

// Purpose selects which token table a token lives in.
type Purpose string

const (
	PurposeConfirmation Purpose = "confirmation"
	PurposeReset        Purpose = "password_reset"
	PurposeSession      Purpose = "sessions"
)

// Table returns the table name backing the purpose.
func (p Purpose) Table() string { return string(p) }

// Token is a confirmation, reset or session token row.
type Token struct {
	Username   string    `db:"username" json:"username"`
	Token      string    `db:"token" json:"-"`
	Expiration time.Time `db:"expiration" json:"expiration"`
}

// Row converts the token into column values.
func (t *Token) Row() Row {
	return Row{
		"username":   t.Username,
		"token":      t.Token,
		"expiration": t.Expiration,
	}
}

// Valid reports whether the token is still usable at now.
func (t *Token) Valid(now time.Time) bool {
	return !now.After(t.Expiration)
}

// TokenFromRow decodes a token table row.
func TokenFromRow(r Row) (*Token, error) {
	var (
		t   Token
		err error
	)
	if t.Username, err = stringCol(r, "username"); err != nil {
		return nil, err
	}
	if t.Token, err = stringCol(r, "token"); err != nil {
		return nil, err
	}
	exp, ok := r["expiration"].(time.Time)
	if !ok {
		return nil, fmt.Errorf("column expiration: unexpected type %T", r["expiration"])
	}
	t.Expiration = exp
	return &t, nil
}

// Role identifies the author of a conversation turn.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a user's conversation.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
}

func stringCol(r Row, col string) (string, error) {
	switch v := r[col].(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("column %s: unexpected type %T", col, v)
	}
}
