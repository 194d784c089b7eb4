package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"disclosure-service/internal/model"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

const (
	taskPolish  = "polish"
	taskExtract = "extract"

	defaultPolishInstruction  = "你是一位资深的专利代理人，请润色专利交底书内容。"
	defaultExtractInstruction = "你是一位专业的专利分析师，请从技术文档中提取专利交底书字段，只输出JSON。"

	// maxExtractRunes bounds the document text sent to a model
	maxExtractRunes = 10000
)

// ErrEmptyResponse is returned when a model answers with no content
var ErrEmptyResponse = errors.New("ai: empty model response")

// PolishRequest asks for one disclosure section to be rewritten
type PolishRequest struct {
	Content string
	Field   string
	// Instruction is the enterprise prompt sent ahead of the content, if any
	Instruction string
	Model       model.AIModel
}

// ExtractRequest asks for disclosure fields to be drawn from an uploaded document
type ExtractRequest struct {
	Filename    string
	Content     string
	Instruction string
	Model       model.AIModel
}

// Extraction is the structured result of an extract request
type Extraction struct {
	Usable        bool              `json:"usable"`
	Confidence    float64           `json:"confidence"`
	Fields        map[string]string `json:"fields"`
	MissingFields []string          `json:"missingFields,omitempty"`
	MissingInfo   []string          `json:"missingInfo,omitempty"`
	Suggestions   []string          `json:"suggestions,omitempty"`
	Filename      string            `json:"filename,omitempty"`
	ModelID       string            `json:"modelId,omitempty"`
}

// Provider performs the AI actions of the service
type Provider interface {
	Polish(ctx context.Context, req PolishRequest) (string, error)
	Extract(ctx context.Context, req ExtractRequest) (*Extraction, error)
}

// ChatModelFactory returns the chat model serving a configured model entry
type ChatModelFactory func(ctx context.Context, m model.AIModel) (einomodel.BaseChatModel, error)

// ChatProvider implements Provider on top of chat models
type ChatProvider struct {
	factory ChatModelFactory
}

// NewChatProvider creates a provider resolving chat models through factory
func NewChatProvider(factory ChatModelFactory) *ChatProvider {
	return &ChatProvider{factory: factory}
}

// NewTemplateProvider creates a provider answering every model with the deterministic template model
func NewTemplateProvider() *ChatProvider {
	chat := NewTemplateChatModel()
	return NewChatProvider(func(context.Context, model.AIModel) (einomodel.BaseChatModel, error) {
		return chat, nil
	})
}

// Polish rewrites the content of one section
func (p *ChatProvider) Polish(ctx context.Context, req PolishRequest) (string, error) {
	chat, err := p.factory(ctx, req.Model)
	if err != nil {
		return "", fmt.Errorf("ai: resolve model %s: %w", req.Model.ModelID, err)
	}

	instruction := req.Instruction
	if strings.TrimSpace(instruction) == "" {
		instruction = defaultPolishInstruction
	}
	system := schema.SystemMessage(instruction)
	system.Name = taskPolish

	resp, err := chat.Generate(ctx, []*schema.Message{
		system,
		schema.UserMessage(polishPrompt(FieldPhrase(req.Field), req.Content)),
	})
	if err != nil {
		return "", fmt.Errorf("ai: polish: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return "", ErrEmptyResponse
	}
	return resp.Content, nil
}

// Extract draws disclosure fields out of a document
func (p *ChatProvider) Extract(ctx context.Context, req ExtractRequest) (*Extraction, error) {
	chat, err := p.factory(ctx, req.Model)
	if err != nil {
		return nil, fmt.Errorf("ai: resolve model %s: %w", req.Model.ModelID, err)
	}

	instruction := req.Instruction
	if strings.TrimSpace(instruction) == "" {
		instruction = defaultExtractInstruction
	}
	system := schema.SystemMessage(instruction)
	system.Name = taskExtract

	content := req.Content
	if runes := []rune(content); len(runes) > maxExtractRunes {
		content = string(runes[:maxExtractRunes])
	}

	resp, err := chat.Generate(ctx, []*schema.Message{
		system,
		schema.UserMessage(extractPrompt(req.Filename, content)),
	})
	if err != nil {
		return nil, fmt.Errorf("ai: extract: %w", err)
	}
	if resp == nil || strings.TrimSpace(resp.Content) == "" {
		return nil, ErrEmptyResponse
	}

	var out Extraction
	raw := cleanJSON(resp.Content)
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("ai: extract: json unmarshal failed: %w, raw: %s", err, raw)
	}
	if out.Fields == nil {
		out.Fields = map[string]string{}
	}
	out.Usable = true
	out.Filename = req.Filename
	out.ModelID = req.Model.ModelID
	return &out, nil
}

// Unusable is the extraction reported when no model can serve the request
func Unusable(reason string) *Extraction {
	return &Extraction{
		Usable:      false,
		Confidence:  0,
		Fields:      map[string]string{},
		MissingInfo: []string{reason},
	}
}

// cleanJSON strips code fences and surrounding text from a model's JSON answer
func cleanJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	raw = strings.TrimPrefix(raw, "```json")
	raw = strings.TrimPrefix(raw, "```")
	raw = strings.TrimSuffix(raw, "```")

	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start != -1 && end > start {
		raw = raw[start : end+1]
	}
	return strings.TrimSpace(raw)
}
