package ai

import (
	"context"
	"errors"
	"io"
	"testing"

	"disclosure-service/internal/model"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPolishUsesFieldPhrase(t *testing.T) {
	p := NewTemplateProvider()

	out, err := p.Polish(context.Background(), PolishRequest{
		Content: "一种方法\n包含多行",
		Field:   "title",
		Model:   model.AIModel{ModelID: "m"},
	})
	require.NoError(t, err)
	assert.Equal(t, PolishTemplate("一种方法\n包含多行", FieldPhrase("title")), out)
	assert.Contains(t, out, "[AI润色结果]")
}

func TestPolishFallsBackToGenericPhrase(t *testing.T) {
	p := NewTemplateProvider()

	out, err := p.Polish(context.Background(), PolishRequest{Content: "abc", Field: "unknown"})
	require.NoError(t, err)
	assert.Equal(t, "[AI润色结果]\n\nabc\n\n[优化说明]\n根据提示词\"请优化以下内容\"进行了优化。", out)
}

func TestExtractReturnsFixedPayload(t *testing.T) {
	p := NewTemplateProvider()

	res, err := p.Extract(context.Background(), ExtractRequest{
		Filename: "spec.docx",
		Content:  "whatever",
		Model:    model.AIModel{ModelID: "m1"},
	})
	require.NoError(t, err)
	assert.True(t, res.Usable)
	assert.Equal(t, 0.85, res.Confidence)
	assert.Equal(t, "spec.docx", res.Filename)
	assert.Equal(t, "m1", res.ModelID)
	assert.NotEmpty(t, res.Fields["title"])
	assert.NotEmpty(t, res.MissingFields)
	assert.NotEmpty(t, res.Suggestions)

	again, err := p.Extract(context.Background(), ExtractRequest{Filename: "other.pdf", Content: "different"})
	require.NoError(t, err)
	assert.Equal(t, res.Fields, again.Fields, "result does not depend on input")
}

type recordingModel struct {
	input []*schema.Message
	reply string
	err   error
}

func (m *recordingModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.input = input
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.reply, nil), nil
}

func (m *recordingModel) Stream(context.Context, []*schema.Message, ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func TestChatProviderSendsInstruction(t *testing.T) {
	rec := &recordingModel{reply: "polished"}
	p := NewChatProvider(func(context.Context, model.AIModel) (einomodel.BaseChatModel, error) { return rec, nil })

	out, err := p.Polish(context.Background(), PolishRequest{Content: "x", Field: "title", Instruction: "企业提示词"})
	require.NoError(t, err)
	assert.Equal(t, "polished", out)
	require.Len(t, rec.input, 2)
	assert.Equal(t, schema.System, rec.input[0].Role)
	assert.Equal(t, "企业提示词", rec.input[0].Content)
	assert.Contains(t, rec.input[1].Content, FieldPhrase("title"))
}

func TestChatProviderErrors(t *testing.T) {
	ctx := context.Background()

	failing := NewChatProvider(func(context.Context, model.AIModel) (einomodel.BaseChatModel, error) {
		return nil, errors.New("no client")
	})
	_, err := failing.Polish(ctx, PolishRequest{Content: "x"})
	assert.Error(t, err)

	empty := &recordingModel{reply: "  "}
	p := NewChatProvider(func(context.Context, model.AIModel) (einomodel.BaseChatModel, error) { return empty, nil })
	_, err = p.Polish(ctx, PolishRequest{Content: "x"})
	assert.ErrorIs(t, err, ErrEmptyResponse)

	garbage := &recordingModel{reply: "not json"}
	p = NewChatProvider(func(context.Context, model.AIModel) (einomodel.BaseChatModel, error) { return garbage, nil })
	_, err = p.Extract(ctx, ExtractRequest{Filename: "f"})
	assert.Error(t, err)
}

func TestTemplateModelStream(t *testing.T) {
	m := NewTemplateChatModel()
	system := schema.SystemMessage("")
	system.Name = taskPolish

	sr, err := m.Stream(context.Background(), []*schema.Message{system, schema.UserMessage(polishPrompt("p", "c"))})
	require.NoError(t, err)
	defer sr.Close()

	msg, err := sr.Recv()
	require.NoError(t, err)
	assert.Equal(t, PolishTemplate("c", "p"), msg.Content)

	_, err = sr.Recv()
	assert.ErrorIs(t, err, io.EOF)

	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.Error(t, err, "unknown task")
}

func TestCleanJSON(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanJSON("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanJSON("here you go: {\"a\":1} thanks"))
}

func TestUnusable(t *testing.T) {
	res := Unusable("未配置可用的AI模型")
	assert.False(t, res.Usable)
	assert.Zero(t, res.Confidence)
	assert.Empty(t, res.Fields)
	assert.Equal(t, []string{"未配置可用的AI模型"}, res.MissingInfo)
}
