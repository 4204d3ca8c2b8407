package core

import (
	"context"

	"github.com/markdave123-py/genai-chat/internal/models"
)

// GenerationConfig holds the fixed sampling parameters of a chat turn.
// TopK is ignored by providers that do not support it.
type GenerationConfig struct {
	Temperature     float32
	TopP            float32
	TopK            int32
	MaxOutputTokens int32
}

// LLMProvider generates one assistant reply from the conversation so far.
type LLMProvider interface {
	Generate(ctx context.Context, systemPrompt string, history []models.Turn, newTurn models.Turn, cfg GenerationConfig) (string, error)
}
