package core

import (
	"context"

	"github.com/markdave123-py/genai-chat/internal/models"
)

// TableStore is the relational contract the account layer needs.
// Filters are exact-match and combined with AND; no other query language is exposed.
type TableStore interface {
	CreateRow(ctx context.Context, table string, fields models.Row) error
	ReadAllRows(ctx context.Context, table string) ([]models.Row, error)
	UpdateRows(ctx context.Context, table string, set, where models.Row) error
	DeleteRows(ctx context.Context, table string, where models.Row) error
}

// ObjectClient defines interactions with S3 or any object storage.
// Every method reports a missing key as errs.ErrNotFound.
type ObjectClient interface {
	Exists(ctx context.Context, key string) (bool, error)
	ReadJSON(ctx context.Context, key string, v any) (metadata map[string]string, err error)
	WriteJSON(ctx context.Context, key string, v any, metadata map[string]string) error
	DeleteFile(ctx context.Context, key string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
}

// SecretStore resolves named configuration secrets.
// A missing secret is reported as errs.ErrNotFound.
type SecretStore interface {
	Get(ctx context.Context, name string) (string, error)
}

// Notifier delivers plain-text email.
type Notifier interface {
	Send(ctx context.Context, recipients []string, subject, body string) (messageID string, err error)
}
