package handler

import (
	"errors"
	"strings"
	"time"

	"disclosure-service/internal/model"
	"disclosure-service/internal/response"
	"disclosure-service/internal/store"
	"disclosure-service/pkg/logger"
	"disclosure-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

var errInvalidParams = response.BadRequest("INVALID_PARAMS", "参数无效")

// ListEnterprises lists every enterprise for a super administrator, otherwise the caller's own
func (h *Handler) ListEnterprises(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	ctx := c.Request().Context()

	var enterprises []*model.Enterprise
	if claims.Role == model.RoleSuperAdmin {
		enterprises, err = h.store.ListEnterprises(ctx)
		if err != nil {
			return response.Fail(c, err)
		}
	} else {
		e, err := h.store.GetEnterprise(ctx, claims.EnterpriseID)
		switch {
		case err == nil:
			enterprises = append(enterprises, e)
		case !errors.Is(err, store.ErrNotFound):
			return response.Fail(c, err)
		}
	}

	items := make([]model.EnterpriseSummary, 0, len(enterprises))
	for _, e := range enterprises {
		items = append(items, e.Summary())
	}
	return response.OK(c, list(items), "")
}

// CreateEnterprise registers a new enterprise with a generated license key
func (h *Handler) CreateEnterprise(c echo.Context) error {
	log := logger.FromContext(c)
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	if claims.Role != model.RoleSuperAdmin {
		return response.Fail(c, errForbidden)
	}

	var req struct {
		Name            string     `json:"name"`
		Code            string     `json:"code"`
		MaxUsers        *int       `json:"maxUsers"`
		LicenseExpireAt *time.Time `json:"licenseExpireAt"`
		ContactName     string     `json:"contactName"`
		ContactEmail    string     `json:"contactEmail"`
		ContactPhone    string     `json:"contactPhone"`
	}
	if err := bind(c, &req); err != nil {
		return response.Fail(c, err)
	}
	name, code := strings.TrimSpace(req.Name), strings.TrimSpace(req.Code)
	if name == "" || code == "" {
		return response.Fail(c, response.BadRequest("MISSING_PARAMS", "企业名称和代码不能为空"))
	}
	maxUsers := model.DefaultMaxUsers
	if req.MaxUsers != nil {
		if *req.MaxUsers < 1 {
			return response.Fail(c, errInvalidParams)
		}
		maxUsers = *req.MaxUsers
	}

	enterprise := &model.Enterprise{
		Name:            name,
		Code:            code,
		LicenseKey:      model.NewLicenseKey(code),
		LicenseExpireAt: req.LicenseExpireAt,
		Status:          model.StatusActive,
		MaxUsers:        maxUsers,
		ContactName:     req.ContactName,
		ContactEmail:    req.ContactEmail,
		ContactPhone:    req.ContactPhone,
	}
	if err := h.store.CreateEnterprise(c.Request().Context(), enterprise); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return response.Fail(c, response.Conflict("DUPLICATE_CODE", "企业代码已存在"))
		}
		return response.Fail(c, err)
	}

	prometheus.RecordResourceOperation("enterprise", "create")
	log.Info("Enterprise created", zap.String("enterprise_id", enterprise.ID), zap.String("code", code))
	return response.Created(c, enterprise, "创建成功")
}

// GetEnterprise returns one enterprise
func (h *Handler) GetEnterprise(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	enterprise, err := h.store.GetEnterprise(c.Request().Context(), c.Param("id"))
	if err != nil {
		return response.Fail(c, storeError(err, errNotFound))
	}
	if claims.Role != model.RoleSuperAdmin && enterprise.ID != claims.EnterpriseID {
		return response.Fail(c, errForbidden)
	}
	return response.OK(c, enterprise, "")
}

// UpdateEnterprise applies a partial update. A super administrator may change every
// field of any enterprise; an administrator only the name and contact fields of their own.
func (h *Handler) UpdateEnterprise(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}

	var req struct {
		Name            *string `json:"name"`
		Status          *string `json:"status"`
		MaxUsers        *int    `json:"maxUsers"`
		LicenseExpireAt *string `json:"licenseExpireAt"`
		ContactName     *string `json:"contactName"`
		ContactEmail    *string `json:"contactEmail"`
		ContactPhone    *string `json:"contactPhone"`
	}
	if err := bind(c, &req); err != nil {
		return response.Fail(c, err)
	}

	super := claims.Role == model.RoleSuperAdmin
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return response.Fail(c, errInvalidParams)
	}
	var expireAt *time.Time
	if super {
		if req.Status != nil && *req.Status != model.StatusActive && *req.Status != model.StatusDisabled {
			return response.Fail(c, errInvalidParams)
		}
		if req.MaxUsers != nil && *req.MaxUsers < 1 {
			return response.Fail(c, errInvalidParams)
		}
		if req.LicenseExpireAt != nil && *req.LicenseExpireAt != "" {
			t, err := time.Parse(time.RFC3339, *req.LicenseExpireAt)
			if err != nil {
				return response.Fail(c, errInvalidParams)
			}
			t = t.UTC()
			expireAt = &t
		}
	}

	enterprise, err := h.store.UpdateEnterprise(c.Request().Context(), c.Param("id"), func(e *model.Enterprise) error {
		if !super && (claims.Role != model.RoleAdmin || e.ID != claims.EnterpriseID) {
			return errForbidden
		}
		if req.Name != nil {
			e.Name = strings.TrimSpace(*req.Name)
		}
		if req.ContactName != nil {
			e.ContactName = *req.ContactName
		}
		if req.ContactEmail != nil {
			e.ContactEmail = *req.ContactEmail
		}
		if req.ContactPhone != nil {
			e.ContactPhone = *req.ContactPhone
		}
		if !super {
			return nil
		}
		if req.Status != nil {
			e.Status = *req.Status
		}
		if req.MaxUsers != nil {
			e.MaxUsers = *req.MaxUsers
		}
		if req.LicenseExpireAt != nil {
			e.LicenseExpireAt = expireAt
		}
		return nil
	})
	if err != nil {
		return response.Fail(c, storeError(err, errNotFound))
	}

	prometheus.RecordResourceOperation("enterprise", "update")
	return response.OK(c, enterprise, "更新成功")
}
