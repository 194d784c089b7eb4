package handler

import (
	"context"
	"strings"

	"disclosure-service/internal/model"
	"disclosure-service/internal/response"
	"disclosure-service/internal/store"
	"disclosure-service/pkg/jwtutil"
	"disclosure-service/pkg/logger"
	"disclosure-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// canAccessDisclosure applies the enterprise check, then the author-or-admin check
func canAccessDisclosure(claims *jwtutil.UserClaims, d *model.Disclosure) error {
	if d.EnterpriseID != claims.EnterpriseID {
		return errForbidden
	}
	if d.AuthorID != claims.UserID && !model.IsAdminRole(claims.Role) {
		return errForbidden
	}
	return nil
}

func (h *Handler) activeFields(ctx context.Context, enterpriseID string) ([]model.FieldConfig, error) {
	configs, err := h.store.ListFieldConfigs(ctx, enterpriseID)
	if err != nil {
		return nil, err
	}
	out := make([]model.FieldConfig, 0, len(configs))
	for _, f := range configs {
		if f.IsActive {
			out = append(out, *f)
		}
	}
	return out, nil
}

// ListDisclosures lists the caller's visible disclosures, most recently updated first
func (h *Handler) ListDisclosures(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	filter := store.DisclosureFilter{
		EnterpriseID: claims.EnterpriseID,
		Status:       c.QueryParam("status"),
	}
	if !model.IsAdminRole(claims.Role) {
		filter.AuthorID = claims.UserID
	}

	disclosures, err := h.store.ListDisclosures(c.Request().Context(), filter)
	if err != nil {
		return response.Fail(c, err)
	}
	if disclosures == nil {
		disclosures = []*model.Disclosure{}
	}
	return response.OK(c, list(disclosures), "")
}

// CreateDisclosure starts a draft authored by the caller
func (h *Handler) CreateDisclosure(c echo.Context) error {
	log := logger.FromContext(c)
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	ctx := c.Request().Context()

	var req struct {
		Type        string           `json:"type"`
		Content     model.SectionMap `json:"content"`
		Attachments model.JSONArray  `json:"attachments"`
	}
	if err := bind(c, &req); err != nil {
		return response.Fail(c, err)
	}
	if strings.TrimSpace(req.Type) == "" {
		return response.Fail(c, response.BadRequest("MISSING_PARAMS", "交底书类型不能为空"))
	}

	authorName := claims.Email
	if u, err := h.store.GetUser(ctx, claims.UserID); err == nil {
		authorName = u.Name
	}
	fields, err := h.activeFields(ctx, claims.EnterpriseID)
	if err != nil {
		return response.Fail(c, err)
	}

	content := model.EmptySections()
	for k, v := range req.Content {
		content[k] = v
	}
	attachments := req.Attachments
	if attachments == nil {
		attachments = model.JSONArray{}
	}
	d := &model.Disclosure{
		EnterpriseID: claims.EnterpriseID,
		Type:         strings.TrimSpace(req.Type),
		Status:       model.DisclosureDraft,
		AuthorID:     claims.UserID,
		AuthorName:   authorName,
		Content:      content,
		Attachments:  attachments,
	}
	d.Evaluate(fields)
	if err := h.store.CreateDisclosure(ctx, d); err != nil {
		return response.Fail(c, err)
	}

	prometheus.RecordResourceOperation("disclosure", "create")
	log.Info("Disclosure created", zap.String("disclosure_id", d.ID), zap.Float64("quality_score", d.QualityScore))
	return response.Created(c, d, "创建成功")
}

// GetDisclosure returns one disclosure
func (h *Handler) GetDisclosure(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	d, err := h.store.GetDisclosure(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Fail(c, storeError(err, errNotFound))
	}
	if err := canAccessDisclosure(claims, d); err != nil {
		return response.Fail(c, err)
	}
	return response.OK(c, d, "")
}

// UpdateDisclosure merges content sections and recomputes the quality score
func (h *Handler) UpdateDisclosure(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	ctx := c.Request().Context()

	var req struct {
		Type        *string          `json:"type"`
		Status      *string          `json:"status"`
		Content     model.SectionMap `json:"content"`
		Attachments *model.JSONArray `json:"attachments"`
	}
	if err := bind(c, &req); err != nil {
		return response.Fail(c, err)
	}
	if req.Type != nil && strings.TrimSpace(*req.Type) == "" {
		return response.Fail(c, errInvalidParams)
	}
	if req.Status != nil && strings.TrimSpace(*req.Status) == "" {
		return response.Fail(c, errInvalidParams)
	}

	fields, err := h.activeFields(ctx, claims.EnterpriseID)
	if err != nil {
		return response.Fail(c, err)
	}

	d, err := h.store.UpdateDisclosure(ctx, c.Param("id"), func(d *model.Disclosure) error {
		if err := canAccessDisclosure(claims, d); err != nil {
			return err
		}
		if d.Content == nil {
			d.Content = model.EmptySections()
		}
		for k, v := range req.Content {
			d.Content[k] = v
		}
		if req.Type != nil {
			d.Type = strings.TrimSpace(*req.Type)
		}
		if req.Status != nil {
			d.Status = strings.TrimSpace(*req.Status)
		}
		if req.Attachments != nil {
			d.Attachments = *req.Attachments
			if d.Attachments == nil {
				d.Attachments = model.JSONArray{}
			}
		}
		d.Evaluate(fields)
		return nil
	})
	if err != nil {
		return response.Fail(c, storeError(err, errNotFound))
	}

	prometheus.RecordResourceOperation("disclosure", "update")
	return response.OK(c, d, "更新成功")
}

// DeleteDisclosure removes a disclosure
func (h *Handler) DeleteDisclosure(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	if err := h.store.DeleteDisclosure(c.Request().Context(), c.Param("id"), func(d *model.Disclosure) error {
		return canAccessDisclosure(claims, d)
	}); err != nil {
		return response.Fail(c, storeError(err, errNotFound))
	}

	prometheus.RecordResourceOperation("disclosure", "delete")
	return response.OK(c, nil, "删除成功")
}
