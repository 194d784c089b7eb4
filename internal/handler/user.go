package handler

import (
	"errors"
	"strings"

	"disclosure-service/internal/model"
	"disclosure-service/internal/response"
	"disclosure-service/internal/store"
	"disclosure-service/pkg/logger"
	"disclosure-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// ListUsers lists the users of the caller's enterprise
func (h *Handler) ListUsers(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	users, err := h.store.ListUsers(c.Request().Context(), claims.EnterpriseID)
	if err != nil {
		return response.Fail(c, err)
	}
	items := make([]model.UserView, 0, len(users))
	for _, u := range users {
		items = append(items, u.View())
	}
	return response.OK(c, list(items), "")
}

// assignableRole reports whether the caller may grant role
func assignableRole(callerRole, role string) error {
	if !model.ValidRole(role) {
		return errInvalidParams
	}
	if role == model.RoleSuperAdmin && callerRole != model.RoleSuperAdmin {
		return errForbidden
	}
	return nil
}

// CreateUser adds a user to the caller's enterprise
func (h *Handler) CreateUser(c echo.Context) error {
	log := logger.FromContext(c)
	claims, err := adminCaller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	ctx := c.Request().Context()

	var req struct {
		Email    string `json:"email"`
		Name     string `json:"name"`
		Password string `json:"password"`
		Role     string `json:"role"`
	}
	if err := bind(c, &req); err != nil {
		return response.Fail(c, err)
	}
	email, name := normalizeEmail(req.Email), strings.TrimSpace(req.Name)
	if email == "" || name == "" {
		return response.Fail(c, response.BadRequest("MISSING_PARAMS", "邮箱和姓名不能为空"))
	}
	role := req.Role
	if role == "" {
		role = model.RoleResearcher
	}
	if err := assignableRole(claims.Role, role); err != nil {
		return response.Fail(c, err)
	}
	password := req.Password
	if password == "" {
		password = h.opts.DefaultPassword
	}

	hash, err := h.hasher.Hash(ctx, password)
	if err != nil {
		return response.Fail(c, err)
	}
	user := &model.User{
		EnterpriseID: claims.EnterpriseID,
		Email:        email,
		PasswordHash: hash,
		Name:         name,
		Role:         role,
		Status:       model.StatusActive,
	}
	if err := h.store.CreateUser(ctx, user); err != nil {
		switch {
		case errors.Is(err, store.ErrDuplicate):
			return response.Fail(c, response.Conflict("EMAIL_EXISTS", "该邮箱已存在"))
		case errors.Is(err, store.ErrLimitReached):
			return response.Fail(c, response.Forbidden("USER_LIMIT_REACHED", "企业用户数已达上限"))
		}
		return response.Fail(c, storeError(err, errNotFound))
	}

	if err := h.store.CreateNotification(ctx, &model.Notification{
		EnterpriseID: user.EnterpriseID,
		UserID:       user.ID,
		Type:         model.NotificationAccountCreated,
		Title:        "账号已创建",
		Content:      "欢迎加入，您的账号已创建成功，请及时修改初始密码。",
		Priority:     model.PriorityNormal,
	}); err != nil {
		log.Warn("Failed to record account notification", zap.String("user_id", user.ID), zap.Error(err))
	}

	prometheus.RecordResourceOperation("user", "create")
	log.Info("User created", zap.String("user_id", user.ID), zap.String("role", role))
	return response.Created(c, user.View(), "创建成功")
}

// UpdateUser edits a user of the caller's enterprise. Non-administrators may only edit themselves,
// and role or status changes from them are ignored.
func (h *Handler) UpdateUser(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	ctx := c.Request().Context()
	id := c.Param("id")

	var req struct {
		Name     *string `json:"name"`
		Password *string `json:"password"`
		Role     *string `json:"role"`
		Status   *string `json:"status"`
	}
	if err := bind(c, &req); err != nil {
		return response.Fail(c, err)
	}

	admin := model.IsAdminRole(claims.Role)
	if !admin && id != claims.UserID {
		if _, err := h.userInEnterprise(c, id, claims.EnterpriseID); err != nil {
			return response.Fail(c, err)
		}
		return response.Fail(c, errForbidden)
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return response.Fail(c, errInvalidParams)
	}
	if admin && req.Role != nil {
		if err := assignableRole(claims.Role, *req.Role); err != nil {
			return response.Fail(c, err)
		}
	}
	if admin && req.Status != nil && *req.Status != model.StatusActive && *req.Status != model.StatusDisabled {
		return response.Fail(c, errInvalidParams)
	}

	var hash string
	if req.Password != nil && *req.Password != "" {
		if hash, err = h.hasher.Hash(ctx, *req.Password); err != nil {
			return response.Fail(c, err)
		}
	}

	user, err := h.store.UpdateUser(ctx, id, func(u *model.User) error {
		if u.EnterpriseID != claims.EnterpriseID {
			return errUserNotFound
		}
		if req.Name != nil {
			u.Name = strings.TrimSpace(*req.Name)
		}
		if hash != "" {
			u.PasswordHash = hash
		}
		if admin && req.Role != nil {
			u.Role = *req.Role
		}
		if admin && req.Status != nil {
			u.Status = *req.Status
		}
		return nil
	})
	if err != nil {
		return response.Fail(c, storeError(err, errUserNotFound))
	}

	prometheus.RecordResourceOperation("user", "update")
	return response.OK(c, user.View(), "更新成功")
}

// DeleteUser removes a user of the caller's enterprise
func (h *Handler) DeleteUser(c echo.Context) error {
	log := logger.FromContext(c)
	claims, err := adminCaller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	id := c.Param("id")
	if id == claims.UserID {
		return response.Fail(c, response.Forbidden("CANNOT_DELETE_SELF", "不能删除自己"))
	}

	if err := h.store.DeleteUser(c.Request().Context(), id, func(u *model.User) error {
		if u.EnterpriseID != claims.EnterpriseID {
			return errUserNotFound
		}
		return nil
	}); err != nil {
		return response.Fail(c, storeError(err, errUserNotFound))
	}

	prometheus.RecordResourceOperation("user", "delete")
	log.Info("User deleted", zap.String("user_id", id))
	return response.OK(c, nil, "删除成功")
}

func (h *Handler) userInEnterprise(c echo.Context, id, enterpriseID string) (*model.User, error) {
	u, err := h.store.GetUser(c.Request().Context(), id)
	if err != nil {
		return nil, storeError(err, errUserNotFound)
	}
	if u.EnterpriseID != enterpriseID {
		return nil, errUserNotFound
	}
	return u, nil
}
