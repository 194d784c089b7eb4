package handler

import (
	"strings"

	"disclosure-service/internal/model"
	"disclosure-service/internal/response"
	"disclosure-service/prometheus"

	"github.com/labstack/echo/v4"
)

// ListPromptConfigs lists the prompts of the caller's enterprise
func (h *Handler) ListPromptConfigs(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	prompts, err := h.store.ListPromptConfigs(c.Request().Context(), claims.EnterpriseID)
	if err != nil {
		return response.Fail(c, err)
	}
	if prompts == nil {
		prompts = []*model.PromptConfig{}
	}
	return response.OK(c, list(prompts), "")
}

// CreatePromptConfig adds a prompt at version 1
func (h *Handler) CreatePromptConfig(c echo.Context) error {
	claims, err := adminCaller(c)
	if err != nil {
		return response.Fail(c, err)
	}

	var req struct {
		Type      string `json:"type"`
		Name      string `json:"name"`
		Content   string `json:"content"`
		IsDefault bool   `json:"isDefault"`
		IsActive  *bool  `json:"isActive"`
	}
	if err := bind(c, &req); err != nil {
		return response.Fail(c, err)
	}
	promptType, name := strings.TrimSpace(req.Type), strings.TrimSpace(req.Name)
	if promptType == "" || name == "" || strings.TrimSpace(req.Content) == "" {
		return response.Fail(c, response.BadRequest("MISSING_PARAMS", "类型、名称和内容不能为空"))
	}
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}

	p := &model.PromptConfig{
		EnterpriseID: claims.EnterpriseID,
		Type:         promptType,
		Name:         name,
		Content:      req.Content,
		IsDefault:    req.IsDefault,
		IsActive:     active,
		Version:      1,
	}
	if err := h.store.CreatePromptConfig(c.Request().Context(), p); err != nil {
		return response.Fail(c, err)
	}

	prometheus.RecordResourceOperation("prompt_config", "create")
	return response.Created(c, p, "创建成功")
}

// UpdatePromptConfig applies a partial update; a content change bumps the version
func (h *Handler) UpdatePromptConfig(c echo.Context) error {
	claims, err := adminCaller(c)
	if err != nil {
		return response.Fail(c, err)
	}

	var req struct {
		Name      *string `json:"name"`
		Content   *string `json:"content"`
		IsDefault *bool   `json:"isDefault"`
		IsActive  *bool   `json:"isActive"`
	}
	if err := bind(c, &req); err != nil {
		return response.Fail(c, err)
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return response.Fail(c, errInvalidParams)
	}
	if req.Content != nil && strings.TrimSpace(*req.Content) == "" {
		return response.Fail(c, errInvalidParams)
	}

	p, err := h.store.UpdatePromptConfig(c.Request().Context(), claims.EnterpriseID, c.Param("id"), func(p *model.PromptConfig) error {
		if req.Name != nil {
			p.Name = strings.TrimSpace(*req.Name)
		}
		if req.Content != nil && *req.Content != p.Content {
			p.Content = *req.Content
			p.Version++
		}
		if req.IsDefault != nil {
			p.IsDefault = *req.IsDefault
		}
		if req.IsActive != nil {
			p.IsActive = *req.IsActive
		}
		return nil
	})
	if err != nil {
		return response.Fail(c, storeError(err, errNotFound))
	}

	prometheus.RecordResourceOperation("prompt_config", "update")
	return response.OK(c, p, "更新成功")
}

// DeletePromptConfig removes a prompt
func (h *Handler) DeletePromptConfig(c echo.Context) error {
	claims, err := adminCaller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	if err := h.store.DeletePromptConfig(c.Request().Context(), claims.EnterpriseID, c.Param("id")); err != nil {
		return response.Fail(c, storeError(err, errNotFound))
	}
	prometheus.RecordResourceOperation("prompt_config", "delete")
	return response.OK(c, nil, "删除成功")
}
