package services

import (
	"context"
	"errors"
	"strconv"

	"go.uber.org/zap"

	"github.com/markdave123-py/genai-chat/internal/core"
	"github.com/markdave123-py/genai-chat/internal/errs"
	"github.com/markdave123-py/genai-chat/internal/models"
)

const HistoryPrefix = "chat-history/"

// HistoryKey is the object key of username's conversation document.
func HistoryKey(username string) string {
	return HistoryPrefix + username + ".json"
}

// HistoryStore keeps each user's conversation as one JSON document in object storage.
// Writes replace the whole document; concurrent writers for the same user race
// and the last write wins.
type HistoryStore struct {
	objects core.ObjectClient
	log     *zap.Logger
}

func NewHistoryStore(objects core.ObjectClient, log *zap.Logger) *HistoryStore {
	return &HistoryStore{objects: objects, log: log}
}

// Read returns username's turns in order, or an empty slice when no document exists.
func (h *HistoryStore) Read(ctx context.Context, username string) ([]models.Turn, error) {
	var turns []models.Turn
	if _, err := h.objects.ReadJSON(ctx, HistoryKey(username), &turns); err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			h.log.Debug("no history yet", zap.String("username", username))
			return []models.Turn{}, nil
		}
		return nil, err
	}
	if turns == nil {
		turns = []models.Turn{}
	}
	return turns, nil
}

func (h *HistoryStore) Exists(ctx context.Context, username string) (bool, error) {
	return h.objects.Exists(ctx, HistoryKey(username))
}

// Append writes the stored turns followed by turns.
func (h *HistoryStore) Append(ctx context.Context, username string, turns ...models.Turn) error {
	prev, err := h.Read(ctx, username)
	if err != nil {
		return err
	}
	return h.Save(ctx, username, append(prev, turns...))
}

// Save replaces username's document with turns.
func (h *HistoryStore) Save(ctx context.Context, username string, turns []models.Turn) error {
	meta := map[string]string{
		"username": username,
		"turns":    strconv.Itoa(len(turns)),
	}
	if err := h.objects.WriteJSON(ctx, HistoryKey(username), turns, meta); err != nil {
		return err
	}
	h.log.Debug("history saved", zap.String("username", username), zap.Int("turns", len(turns)))
	return nil
}

// Count returns how many users have a stored conversation.
func (h *HistoryStore) Count(ctx context.Context) (int, error) {
	keys, err := h.objects.ListKeys(ctx, HistoryPrefix)
	if err != nil {
		return 0, err
	}
	return len(keys), nil
}
