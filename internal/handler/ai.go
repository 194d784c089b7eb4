package handler

import (
	"strings"

	"disclosure-service/internal/ai"
	"disclosure-service/internal/model"
	"disclosure-service/internal/response"
	"disclosure-service/pkg/logger"
	"disclosure-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const noModelExplanation = "未配置可用的AI模型，请联系管理员配置AI模型及API密钥"

// instruction returns the content of the enterprise's default prompt of a type
func (h *Handler) instruction(c echo.Context, enterpriseID, promptType string) string {
	prompts, err := h.store.ListPromptConfigs(c.Request().Context(), enterpriseID)
	if err != nil {
		logger.FromContext(c).Warn("Failed to load prompts", zap.String("enterprise_id", enterpriseID), zap.Error(err))
		return ""
	}
	values := make([]model.PromptConfig, 0, len(prompts))
	for _, p := range prompts {
		values = append(values, *p)
	}
	if p, ok := model.DefaultPrompt(values, promptType); ok {
		return p.Content
	}
	return ""
}

// Polish rewrites one disclosure section with the enterprise's AI model
func (h *Handler) Polish(c echo.Context) error {
	log := logger.FromContext(c)
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	ctx := c.Request().Context()

	var req struct {
		Content string `json:"content"`
		Field   string `json:"field"`
	}
	if err := bind(c, &req); err != nil {
		return response.Fail(c, err)
	}
	if strings.TrimSpace(req.Content) == "" {
		return response.Fail(c, response.BadRequest("MISSING_CONTENT", "内容不能为空"))
	}

	cfg, err := h.aiConfigOf(c, claims.EnterpriseID)
	if err != nil {
		return response.Fail(c, err)
	}
	m, ok := cfg.UsableModel()
	if !ok {
		return response.Fail(c, response.BadRequest("AI_NOT_CONFIGURED", noModelExplanation))
	}

	polished, err := h.ai.Polish(ctx, ai.PolishRequest{
		Content:     req.Content,
		Field:       req.Field,
		Instruction: h.instruction(c, claims.EnterpriseID, model.PromptPolish),
		Model:       m,
	})
	if err != nil {
		log.Error("Polish failed", zap.String("model_id", m.ModelID), zap.Error(err))
		return response.Fail(c, err)
	}

	prometheus.RecordAIAction("polish", m.ModelID)
	return response.OK(c, echo.Map{
		"originalContent": req.Content,
		"polishedContent": polished,
		"field":           req.Field,
		"modelId":         m.ModelID,
		"timestamp":       timestamp(h.now()),
	}, "")
}

// Extract draws disclosure fields from an uploaded document. Without a usable
// model the result is marked unusable instead of failing.
func (h *Handler) Extract(c echo.Context) error {
	log := logger.FromContext(c)
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	ctx := c.Request().Context()

	var req struct {
		Filename string `json:"filename"`
		Content  string `json:"content"`
	}
	if err := bind(c, &req); err != nil {
		return response.Fail(c, err)
	}
	if strings.TrimSpace(req.Filename) == "" {
		return response.Fail(c, response.BadRequest("MISSING_FILENAME", "文件名不能为空"))
	}

	cfg, err := h.aiConfigOf(c, claims.EnterpriseID)
	if err != nil {
		return response.Fail(c, err)
	}
	m, ok := cfg.UsableModel()
	if !ok {
		log.Info("Extract without usable model", zap.String("enterprise_id", claims.EnterpriseID))
		return response.OK(c, ai.Unusable(noModelExplanation), "")
	}

	result, err := h.ai.Extract(ctx, ai.ExtractRequest{
		Filename:    req.Filename,
		Content:     req.Content,
		Instruction: h.instruction(c, claims.EnterpriseID, model.PromptExtract),
		Model:       m,
	})
	if err != nil {
		log.Error("Extract failed", zap.String("model_id", m.ModelID), zap.Error(err))
		return response.Fail(c, err)
	}

	prometheus.RecordAIAction("extract", m.ModelID)
	return response.OK(c, result, "")
}
