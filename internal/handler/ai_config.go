package handler

import (
	"errors"
	"strings"

	"disclosure-service/internal/model"
	"disclosure-service/internal/response"
	"disclosure-service/internal/store"
	"disclosure-service/prometheus"

	"github.com/labstack/echo/v4"
)

func errDuplicateModel(modelID string) *response.APIError {
	return response.Conflict("DUPLICATE_MODEL_ID", "模型ID已存在: "+modelID)
}

// aiConfigOf returns the stored config or the unsaved default
func (h *Handler) aiConfigOf(c echo.Context, enterpriseID string) (*model.AIConfig, error) {
	cfg, err := h.store.GetAIConfig(c.Request().Context(), enterpriseID)
	if errors.Is(err, store.ErrNotFound) {
		return model.DefaultAIConfig(enterpriseID), nil
	}
	return cfg, err
}

// GetAIConfig returns the caller's AI configuration including api keys
func (h *Handler) GetAIConfig(c echo.Context) error {
	claims, err := adminCaller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	cfg, err := h.aiConfigOf(c, claims.EnterpriseID)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.OK(c, cfg, "")
}

// GetAPIConfig returns the caller's AI configuration without connection secrets
func (h *Handler) GetAPIConfig(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	cfg, err := h.aiConfigOf(c, claims.EnterpriseID)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.OK(c, cfg.Redacted(), "")
}

// UpdateAIConfig upserts the caller's AI configuration
func (h *Handler) UpdateAIConfig(c echo.Context) error {
	cfg, err := h.upsertAIConfig(c)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.OK(c, cfg, "更新成功")
}

// UpdateAPIConfig upserts the caller's AI configuration and answers with the redacted view
func (h *Handler) UpdateAPIConfig(c echo.Context) error {
	cfg, err := h.upsertAIConfig(c)
	if err != nil {
		return response.Fail(c, err)
	}
	return response.OK(c, cfg.Redacted(), "更新成功")
}

func (h *Handler) upsertAIConfig(c echo.Context) (*model.AIConfig, error) {
	claims, err := adminCaller(c)
	if err != nil {
		return nil, err
	}

	var req struct {
		DefaultModelID *string          `json:"defaultModelId"`
		Models         *[]model.AIModel `json:"models"`
		Enabled        *bool            `json:"enabled"`
	}
	if err := bind(c, &req); err != nil {
		return nil, err
	}
	if req.Models != nil {
		for _, m := range *req.Models {
			if strings.TrimSpace(m.ModelID) == "" {
				return nil, response.BadRequest("MISSING_PARAMS", "模型ID不能为空")
			}
		}
		if id, dup := model.DuplicateModelID(*req.Models); dup {
			return nil, errDuplicateModel(id)
		}
	}

	cfg, err := h.store.UpsertAIConfig(c.Request().Context(), claims.EnterpriseID, func(cfg *model.AIConfig) error {
		if req.DefaultModelID != nil {
			cfg.DefaultModelID = *req.DefaultModelID
		}
		if req.Models != nil {
			cfg.Models = append(model.AIModelList{}, *req.Models...)
		}
		if req.Enabled != nil {
			cfg.Enabled = *req.Enabled
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	prometheus.RecordResourceOperation("ai_config", "update")
	return cfg, nil
}

// AddAIModel appends a model to the caller's AI configuration
func (h *Handler) AddAIModel(c echo.Context) error {
	claims, err := adminCaller(c)
	if err != nil {
		return response.Fail(c, err)
	}

	var req struct {
		ModelID  string `json:"modelId"`
		Provider string `json:"provider"`
		Name     string `json:"name"`
		BaseURL  string `json:"baseURL"`
		APIKey   string `json:"apiKey"`
		Enabled  *bool  `json:"enabled"`
		Priority int    `json:"priority"`
	}
	if err := bind(c, &req); err != nil {
		return response.Fail(c, err)
	}
	modelID := strings.TrimSpace(req.ModelID)
	if modelID == "" {
		return response.Fail(c, response.BadRequest("MISSING_PARAMS", "模型ID不能为空"))
	}
	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	cfg, err := h.store.AddAIModel(c.Request().Context(), claims.EnterpriseID, model.AIModel{
		ModelID:  modelID,
		Provider: req.Provider,
		Name:     req.Name,
		BaseURL:  req.BaseURL,
		APIKey:   req.APIKey,
		Enabled:  enabled,
		Priority: req.Priority,
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return response.Fail(c, errDuplicateModel(modelID))
		}
		return response.Fail(c, err)
	}

	prometheus.RecordResourceOperation("ai_model", "create")
	return response.Created(c, cfg, "创建成功")
}
