package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/markdave123-py/genai-chat/internal/core"
	"github.com/markdave123-py/genai-chat/internal/errs"
	"github.com/markdave123-py/genai-chat/internal/models"
)

const DefaultGeminiModel = "gemini-2.0-flash-001"

// GenerativeLanguageScope is the OAuth scope Gemini calls need when not using an API key.
const GenerativeLanguageScope = "https://www.googleapis.com/auth/generative-language"

type GeminiLLM struct {
	client    *genai.Client
	modelName string
	log       *zap.Logger
}

// NewGeminiLLM opens a Gemini client. opts must carry credentials
// (option.WithAPIKey or option.WithCredentials).
func NewGeminiLLM(ctx context.Context, modelName string, log *zap.Logger, opts ...option.ClientOption) (*GeminiLLM, error) {
	cl, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	return &GeminiLLM{client: cl, modelName: modelName, log: log}, nil
}

func (g *GeminiLLM) Close() error {
	if g.client != nil {
		return g.client.Close()
	}
	return nil
}

func (g *GeminiLLM) Generate(ctx context.Context, systemPrompt string, history []models.Turn, newTurn models.Turn, cfg core.GenerationConfig) (string, error) {
	m := g.client.GenerativeModel(g.modelName)
	if systemPrompt != "" {
		m.SystemInstruction = &genai.Content{
			Parts: []genai.Part{genai.Text(systemPrompt)},
		}
	}
	m.SetTemperature(cfg.Temperature)
	m.SetTopP(cfg.TopP)
	if cfg.TopK > 0 {
		m.SetTopK(cfg.TopK)
	}
	m.SetMaxOutputTokens(cfg.MaxOutputTokens)

	cs := m.StartChat()
	cs.History = geminiHistory(history)

	resp, err := cs.SendMessage(ctx, genai.Text(newTurn.Text))
	if err != nil {
		g.log.Error("gemini generate failed", zap.String("model", g.modelName), zap.Error(err))
		return "", errs.Upstream("gemini generate", g.modelName, err)
	}
	return geminiText(resp), nil
}

func geminiHistory(turns []models.Turn) []*genai.Content {
	out := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		role := "user"
		if t.Role == models.RoleAssistant {
			role = "model"
		}
		out = append(out, &genai.Content{Role: role, Parts: []genai.Part{genai.Text(t.Text)}})
	}
	return out
}

func geminiText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		if t, ok := p.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

var _ core.LLMProvider = (*GeminiLLM)(nil)
