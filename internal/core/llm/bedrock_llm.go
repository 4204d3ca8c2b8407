package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"go.uber.org/zap"

	"github.com/markdave123-py/genai-chat/internal/core"
	"github.com/markdave123-py/genai-chat/internal/errs"
	"github.com/markdave123-py/genai-chat/internal/models"
)

const DefaultBedrockModel = "amazon.nova-micro-v1:0"

// ConverseAPI is the part of *bedrockruntime.Client the model client calls.
type ConverseAPI interface {
	Converse(ctx context.Context, in *bedrockruntime.ConverseInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// BedrockLLM sends conversations to a Bedrock model through the Converse API.
// Top-k is not part of the Converse inference configuration and is not sent.
type BedrockLLM struct {
	client    ConverseAPI
	modelName string
	log       *zap.Logger
}

func NewBedrockLLM(awsCfg aws.Config, modelName string, log *zap.Logger) *BedrockLLM {
	return NewBedrockLLMWithAPI(bedrockruntime.NewFromConfig(awsCfg), modelName, log)
}

func NewBedrockLLMWithAPI(api ConverseAPI, modelName string, log *zap.Logger) *BedrockLLM {
	if modelName == "" {
		modelName = DefaultBedrockModel
	}
	return &BedrockLLM{client: api, modelName: modelName, log: log}
}

func (b *BedrockLLM) Generate(ctx context.Context, systemPrompt string, history []models.Turn, newTurn models.Turn, cfg core.GenerationConfig) (string, error) {
	in := &bedrockruntime.ConverseInput{
		ModelId:  aws.String(b.modelName),
		Messages: bedrockMessages(append(append([]models.Turn(nil), history...), newTurn)),
		InferenceConfig: &brtypes.InferenceConfiguration{
			Temperature: aws.Float32(cfg.Temperature),
			TopP:        aws.Float32(cfg.TopP),
			MaxTokens:   aws.Int32(cfg.MaxOutputTokens),
		},
	}
	if systemPrompt != "" {
		in.System = []brtypes.SystemContentBlock{
			&brtypes.SystemContentBlockMemberText{Value: systemPrompt},
		}
	}

	out, err := b.client.Converse(ctx, in)
	if err != nil {
		b.log.Error("bedrock converse failed", zap.String("model", b.modelName), zap.Error(err))
		return "", errs.Upstream("bedrock converse", b.modelName, err)
	}

	msg, ok := out.Output.(*brtypes.ConverseOutputMemberMessage)
	if !ok {
		return "", errs.Upstream("bedrock converse", b.modelName, fmt.Errorf("unexpected output %T", out.Output))
	}

	var sb strings.Builder
	for _, block := range msg.Value.Content {
		if t, ok := block.(*brtypes.ContentBlockMemberText); ok {
			sb.WriteString(t.Value)
		}
	}
	b.log.Debug("bedrock reply", zap.String("model", b.modelName), zap.String("stop_reason", string(out.StopReason)))
	return sb.String(), nil
}

// bedrockMessages converts turns to Converse messages.
// Converse requires alternating roles, so adjacent turns with the same role are merged.
func bedrockMessages(turns []models.Turn) []brtypes.Message {
	msgs := make([]brtypes.Message, 0, len(turns))
	for _, t := range turns {
		role := brtypes.ConversationRoleUser
		if t.Role == models.RoleAssistant {
			role = brtypes.ConversationRoleAssistant
		}
		block := &brtypes.ContentBlockMemberText{Value: t.Text}
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content = append(msgs[n-1].Content, block)
			continue
		}
		msgs = append(msgs, brtypes.Message{Role: role, Content: []brtypes.ContentBlock{block}})
	}
	return msgs
}

var _ core.LLMProvider = (*BedrockLLM)(nil)
