package handler

import (
	"bytes"
	"encoding/json"
	"strings"

	"disclosure-service/internal/model"
	"disclosure-service/internal/response"
	"disclosure-service/prometheus"

	"github.com/labstack/echo/v4"
)

type fieldConfigInput struct {
	ID         string `json:"id"`
	FieldKey   string `json:"fieldKey"`
	FieldLabel string `json:"fieldLabel"`
	IsRequired *bool  `json:"isRequired"`
	MinLength  int    `json:"minLength"`
	MaxLength  int    `json:"maxLength"`
	OrderIndex int    `json:"orderIndex"`
	IsActive   *bool  `json:"isActive"`
}

func (in fieldConfigInput) toModel(enterpriseID string) (model.FieldConfig, error) {
	if in.MinLength < 0 || in.MaxLength < 0 || (in.MaxLength > 0 && in.MaxLength < in.MinLength) {
		return model.FieldConfig{}, errInvalidParams
	}
	f := model.FieldConfig{
		ID:           in.ID,
		EnterpriseID: enterpriseID,
		FieldKey:     strings.TrimSpace(in.FieldKey),
		FieldLabel:   strings.TrimSpace(in.FieldLabel),
		IsRequired:   true,
		MinLength:    in.MinLength,
		MaxLength:    in.MaxLength,
		OrderIndex:   in.OrderIndex,
		IsActive:     true,
	}
	if in.IsRequired != nil {
		f.IsRequired = *in.IsRequired
	}
	if in.IsActive != nil {
		f.IsActive = *in.IsActive
	}
	return f, nil
}

// ListFieldConfigs returns the caller's field configs in display order
func (h *Handler) ListFieldConfigs(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	fields, err := h.store.ListFieldConfigs(c.Request().Context(), claims.EnterpriseID)
	if err != nil {
		return response.Fail(c, err)
	}
	if fields == nil {
		fields = []*model.FieldConfig{}
	}
	return response.OK(c, fields, "")
}

// CreateFieldConfig appends a field config
func (h *Handler) CreateFieldConfig(c echo.Context) error {
	claims, err := adminCaller(c)
	if err != nil {
		return response.Fail(c, err)
	}

	var req fieldConfigInput
	if err := bind(c, &req); err != nil {
		return response.Fail(c, err)
	}
	if strings.TrimSpace(req.FieldKey) == "" || strings.TrimSpace(req.FieldLabel) == "" {
		return response.Fail(c, response.BadRequest("MISSING_PARAMS", "字段标识和名称不能为空"))
	}
	req.ID = ""
	f, err := req.toModel(claims.EnterpriseID)
	if err != nil {
		return response.Fail(c, err)
	}
	if err := h.store.CreateFieldConfig(c.Request().Context(), &f); err != nil {
		return response.Fail(c, err)
	}

	prometheus.RecordResourceOperation("field_config", "create")
	return response.Created(c, f, "创建成功")
}

// ReplaceFieldConfigs overwrites the caller's field configs with the supplied list
func (h *Handler) ReplaceFieldConfigs(c echo.Context) error {
	claims, err := adminCaller(c)
	if err != nil {
		return response.Fail(c, err)
	}

	var req struct {
		Configs json.RawMessage `json:"configs"`
	}
	if err := bind(c, &req); err != nil {
		return response.Fail(c, err)
	}
	raw := bytes.TrimSpace(req.Configs)
	if len(raw) == 0 || raw[0] != '[' {
		return response.Fail(c, response.BadRequest("INVALID_PARAMS", "configs 必须是数组"))
	}
	var inputs []fieldConfigInput
	if err := json.Unmarshal(raw, &inputs); err != nil {
		return response.Fail(c, response.BadRequest("INVALID_PARAMS", "configs 必须是数组"))
	}

	configs := make([]model.FieldConfig, 0, len(inputs))
	for i, in := range inputs {
		f, err := in.toModel(claims.EnterpriseID)
		if err != nil {
			return response.Fail(c, err)
		}
		if f.OrderIndex == 0 {
			f.OrderIndex = i + 1
		}
		configs = append(configs, f)
	}

	fields, err := h.store.ReplaceFieldConfigs(c.Request().Context(), claims.EnterpriseID, configs)
	if err != nil {
		return response.Fail(c, err)
	}
	if fields == nil {
		fields = []*model.FieldConfig{}
	}

	prometheus.RecordResourceOperation("field_config", "replace")
	return response.OK(c, fields, "更新成功")
}
