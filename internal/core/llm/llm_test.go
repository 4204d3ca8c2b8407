package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	brtypes "github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"
	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/markdave123-py/genai-chat/internal/core"
	"github.com/markdave123-py/genai-chat/internal/errs"
	"github.com/markdave123-py/genai-chat/internal/models"
)

type fakeConverse struct {
	in  *bedrockruntime.ConverseInput
	out *bedrockruntime.ConverseOutput
	err error
}

func (f *fakeConverse) Converse(_ context.Context, in *bedrockruntime.ConverseInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error) {
	f.in = in
	return f.out, f.err
}

func textOf(t *testing.T, block brtypes.ContentBlock) string {
	t.Helper()
	tb, ok := block.(*brtypes.ContentBlockMemberText)
	require.True(t, ok, "unexpected block %T", block)
	return tb.Value
}

var testCfg = core.GenerationConfig{Temperature: 0.2, TopP: 0.8, TopK: 20, MaxOutputTokens: 400}

func TestBedrockLLM_Generate(t *testing.T) {
	fake := &fakeConverse{out: &bedrockruntime.ConverseOutput{
		Output: &brtypes.ConverseOutputMemberMessage{Value: brtypes.Message{
			Role: brtypes.ConversationRoleAssistant,
			Content: []brtypes.ContentBlock{
				&brtypes.ContentBlockMemberText{Value: "Hello "},
				&brtypes.ContentBlockMemberText{Value: "there"},
			},
		}},
		StopReason: brtypes.StopReasonEndTurn,
	}}
	b := NewBedrockLLMWithAPI(fake, "", zap.NewNop())

	history := []models.Turn{
		{Role: models.RoleUser, Text: "hi"},
		{Role: models.RoleAssistant, Text: "hey"},
	}
	reply, err := b.Generate(context.Background(), "be nice", history, models.Turn{Role: models.RoleUser, Text: "again"}, testCfg)
	require.NoError(t, err)
	require.Equal(t, "Hello there", reply)

	require.Equal(t, DefaultBedrockModel, aws.ToString(fake.in.ModelId))
	require.Len(t, fake.in.Messages, 3)
	require.Equal(t, brtypes.ConversationRoleUser, fake.in.Messages[0].Role)
	require.Equal(t, brtypes.ConversationRoleAssistant, fake.in.Messages[1].Role)
	require.Equal(t, "again", textOf(t, fake.in.Messages[2].Content[0]))

	require.Len(t, fake.in.System, 1)
	sys, ok := fake.in.System[0].(*brtypes.SystemContentBlockMemberText)
	require.True(t, ok)
	require.Equal(t, "be nice", sys.Value)

	require.InDelta(t, 0.2, aws.ToFloat32(fake.in.InferenceConfig.Temperature), 1e-6)
	require.InDelta(t, 0.8, aws.ToFloat32(fake.in.InferenceConfig.TopP), 1e-6)
	require.EqualValues(t, 400, aws.ToInt32(fake.in.InferenceConfig.MaxTokens))
}

func TestBedrockLLM_Upstream(t *testing.T) {
	b := NewBedrockLLMWithAPI(&fakeConverse{err: errors.New("throttling")}, "m", zap.NewNop())

	_, err := b.Generate(context.Background(), "", nil, models.Turn{Role: models.RoleUser, Text: "x"}, testCfg)
	require.ErrorIs(t, err, errs.ErrUpstream)
}

func TestBedrockMessages_MergesAdjacentRoles(t *testing.T) {
	msgs := bedrockMessages([]models.Turn{
		{Role: models.RoleUser, Text: "a"},
		{Role: models.RoleUser, Text: "b"},
		{Role: models.RoleAssistant, Text: "c"},
	})
	require.Len(t, msgs, 2)
	require.Len(t, msgs[0].Content, 2)
	require.Equal(t, "b", textOf(t, msgs[0].Content[1]))
	require.Equal(t, brtypes.ConversationRoleAssistant, msgs[1].Role)
}

func TestGeminiHistory_MapsRoles(t *testing.T) {
	h := geminiHistory([]models.Turn{
		{Role: models.RoleUser, Text: "q"},
		{Role: models.RoleAssistant, Text: "a"},
	})
	require.Len(t, h, 2)
	require.Equal(t, "user", h[0].Role)
	require.Equal(t, "model", h[1].Role)
	require.Equal(t, []genai.Part{genai.Text("a")}, h[1].Parts)
}

func TestGeminiText(t *testing.T) {
	require.Equal(t, "", geminiText(nil))
	require.Equal(t, "", geminiText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{
		Content: &genai.Content{Parts: []genai.Part{genai.Text("one "), genai.Text("two")}},
	}}}
	require.Equal(t, "one two", geminiText(resp))
}
