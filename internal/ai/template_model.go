package ai

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

var _ einomodel.BaseChatModel = (*TemplateChatModel)(nil)

const extractionPayload = "```json\n" + `{
  "confidence": 0.85,
  "fields": {
    "title": "一种基于人工智能的专利交底书生成方法",
    "technicalField": "本发明涉及人工智能与自然语言处理技术领域",
    "backgroundArt": "现有的专利交底书撰写依赖人工整理，效率较低且质量参差不齐。",
    "technicalSolution": "通过解析技术文档并结合预设字段模板，自动生成结构化的专利交底书初稿。"
  },
  "missingFields": ["figureDescription", "implementation", "claimsSuggestion"],
  "suggestions": ["建议补充附图说明", "建议补充具体实施方式", "建议明确权利要求的保护范围"]
}` + "\n```"

// TemplateChatModel is a chat model answering with fixed templates and no network access
type TemplateChatModel struct{}

// NewTemplateChatModel creates the deterministic chat model
func NewTemplateChatModel() *TemplateChatModel {
	return &TemplateChatModel{}
}

// Generate answers the conversation according to the task named on its system message
func (m *TemplateChatModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	task, prompt := "", ""
	for _, msg := range input {
		switch msg.Role {
		case schema.System:
			task = msg.Name
		case schema.User:
			prompt = msg.Content
		}
	}

	switch task {
	case taskPolish:
		phrase, content, ok := parsePolishPrompt(prompt)
		if !ok {
			phrase, content = GenericPhrase, prompt
		}
		return schema.AssistantMessage(PolishTemplate(content, phrase), nil), nil
	case taskExtract:
		return schema.AssistantMessage(extractionPayload, nil), nil
	default:
		return nil, fmt.Errorf("template model: unsupported task %q", task)
	}
}

// Stream answers like Generate in a single chunk
func (m *TemplateChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

// PolishTemplate renders the polished text for content under an instruction phrase
func PolishTemplate(content, phrase string) string {
	return fmt.Sprintf("[AI润色结果]\n\n%s\n\n[优化说明]\n根据提示词\"%s\"进行了优化。", content, phrase)
}
