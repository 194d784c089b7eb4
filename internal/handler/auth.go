package handler

import (
	"errors"
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

var errInvalidCredentials = response.Unauthorized("INVALID_CREDENTIALS", "邮箱或密码错误")

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login authenticates a user by email and password
func (h *Handler) Login(c echo.Context) error {
	log := logger.FromContext(c)
	ctx := c.Request().Context()

	var req struct {
		Email          string `json:"email"`
		Password       string `json:"password"`
		EnterpriseCode string `json:"enterpriseCode"`
	}
	if err := bind(c, &req); err != nil {
		prometheus.RecordLogin("invalid_request")
		return response.Fail(c, err)
	}
	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		prometheus.RecordLogin("missing_credentials")
		return response.Fail(c, response.BadRequest("MISSING_CREDENTIALS", "邮箱和密码不能为空"))
	}

	user, err := h.findLoginUser(c, email, strings.TrimSpace(req.EnterpriseCode))
	if errors.Is(err, store.ErrNotFound) {
		// Unknown accounts cost the same bcrypt work as wrong passwords
		if err := h.hasher.CompareDummy(ctx, req.Password); err != nil {
			return response.Fail(c, err)
		}
		log.Info("Login failed", zap.String("email", email), zap.String("reason", "unknown_email"))
		prometheus.RecordLogin("invalid_credentials")
		return response.Fail(c, errInvalidCredentials)
	}
	if err != nil {
		return response.Fail(c, err)
	}

	ok, err := h.hasher.Compare(ctx, user.PasswordHash, req.Password)
	if err != nil {
		return response.Fail(c, err)
	}
	if !ok {
		log.Info("Login failed", zap.String("email", email), zap.String("reason", "wrong_password"))
		prometheus.RecordLogin("invalid_credentials")
		return response.Fail(c, errInvalidCredentials)
	}

	if !user.IsActive() {
		prometheus.RecordLogin("account_disabled")
		return response.Fail(c, response.Forbidden("ACCOUNT_DISABLED", "账号已被禁用"))
	}
	enterprise, err := h.store.GetEnterprise(ctx, user.EnterpriseID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return response.Fail(c, err)
	}
	if enterprise == nil || !enterprise.IsActive() {
		prometheus.RecordLogin("enterprise_disabled")
		return response.Fail(c, response.Forbidden("ENTERPRISE_DISABLED", "企业已被禁用"))
	}

	accessToken, err := h.tokens.GenerateAccessToken(subjectOf(user))
	if err != nil {
		log.Error("Failed to generate token", zap.Error(err))
		return response.Fail(c, err)
	}
	refreshToken := jwtutil.NewRefreshToken()

	now := h.now()
	if _, err := h.store.UpdateUser(ctx, user.ID, func(u *model.User) error {
		u.LastLoginAt = &now
		return nil
	}); err != nil {
		log.Warn("Failed to stamp last login", zap.String("user_id", user.ID), zap.Error(err))
	}

	prometheus.RecordLogin("success")
	log.Info("User logged in",
		zap.String("user_id", user.ID),
		zap.String("enterprise_id", user.EnterpriseID),
		zap.String("role", user.Role))

	return response.OK(c, echo.Map{
		"user": echo.Map{
			"id":    user.ID,
			"email": user.Email,
			"name":  user.Name,
			"role":  user.Role,
			"enterprise": echo.Map{
				"id":   enterprise.ID,
				"name": enterprise.Name,
			},
		},
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
	}, "登录成功")
}

func (h *Handler) findLoginUser(c echo.Context, email, enterpriseCode string) (*model.User, error) {
	ctx := c.Request().Context()
	enterpriseID := ""
	if enterpriseCode != "" {
		enterprise, err := h.store.GetEnterpriseByCode(ctx, enterpriseCode)
		if err != nil {
			return nil, err
		}
		enterpriseID = enterprise.ID
	}
	return h.store.FindUserByEmail(ctx, email, enterpriseID)
}

func subjectOf(u *model.User) jwtutil.Subject {
	return jwtutil.Subject{
		UserID:       u.ID,
		Email:        u.Email,
		Role:         u.Role,
		EnterpriseID: u.EnterpriseID,
	}
}

// Me returns the authenticated user and enterprise
func (h *Handler) Me(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	ctx := c.Request().Context()

	user, err := h.store.GetUser(ctx, claims.UserID)
	if err != nil {
		return response.Fail(c, storeError(err, errUserNotFound))
	}

	data := echo.Map{
		"id":           user.ID,
		"email":        user.Email,
		"name":         user.Name,
		"role":         user.Role,
		"status":       user.Status,
		"enterpriseId": user.EnterpriseID,
		"lastLoginAt":  user.LastLoginAt,
		"createdAt":    user.CreatedAt,
		"enterprise":   nil,
	}
	enterprise, err := h.store.GetEnterprise(ctx, user.EnterpriseID)
	switch {
	case err == nil:
		data["enterprise"] = echo.Map{
			"id":     enterprise.ID,
			"name":   enterprise.Name,
			"code":   enterprise.Code,
			"status": enterprise.Status,
		}
	case !errors.Is(err, store.ErrNotFound):
		return response.Fail(c, err)
	}
	return response.OK(c, data, "")
}

// ForgotPassword mints a reset token for a known email. The response has the
// same shape whether or not the email is registered.
func (h *Handler) ForgotPassword(c echo.Context) error {
	log := logger.FromContext(c)
	ctx := c.Request().Context()

	var req struct {
		Email string `json:"email"`
	}
	if err := bind(c, &req); err != nil {
		return response.Fail(c, err)
	}
	email := normalizeEmail(req.Email)
	if email == "" {
		return response.Fail(c, response.BadRequest("MISSING_EMAIL", "邮箱不能为空"))
	}

	data := echo.Map{}
	user, err := h.store.FindUserByEmail(ctx, email, "")
	switch {
	case err == nil:
		token, err := h.tokens.GenerateResetToken(subjectOf(user), user.PasswordHash)
		if err != nil {
			return response.Fail(c, err)
		}
		if err := h.store.CreateNotification(ctx, &model.Notification{
			EnterpriseID: user.EnterpriseID,
			UserID:       user.ID,
			Type:         model.NotificationPasswordReset,
			Title:        "密码重置请求",
			Content:      "您的密码重置请求已收到，重置令牌一小时内有效。",
			Priority:     model.PriorityHigh,
		}); err != nil {
			return response.Fail(c, err)
		}
		if h.opts.ExposeResetToken {
			data["resetToken"] = token
		}
		prometheus.RecordPasswordReset("requested")
		log.Info("Password reset requested", zap.String("user_id", user.ID))
	case errors.Is(err, store.ErrNotFound):
		prometheus.RecordPasswordReset("unknown_email")
	default:
		return response.Fail(c, err)
	}

	return response.OK(c, data, "如果该邮箱已注册，您将收到密码重置说明")
}

// ResetPassword replaces a password using a reset token
func (h *Handler) ResetPassword(c echo.Context) error {
	log := logger.FromContext(c)
	ctx := c.Request().Context()

	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"newPassword"`
	}
	if err := bind(c, &req); err != nil {
		return response.Fail(c, err)
	}
	if req.Token == "" || req.NewPassword == "" {
		return response.Fail(c, response.BadRequest("MISSING_PARAMS", "令牌和新密码不能为空"))
	}

	invalid := response.BadRequest("INVALID_TOKEN", "令牌无效或已过期")
	claims, err := h.tokens.ValidateToken(req.Token)
	if err != nil {
		prometheus.RecordPasswordReset("invalid_token")
		return response.Fail(c, invalid)
	}
	if claims.Type != jwtutil.TokenTypeReset {
		prometheus.RecordPasswordReset("invalid_token_type")
		return response.Fail(c, response.BadRequest("INVALID_TOKEN_TYPE", "令牌类型错误"))
	}

	hash, err := h.hasher.Hash(ctx, req.NewPassword)
	if err != nil {
		return response.Fail(c, err)
	}
	if _, err := h.store.UpdateUser(ctx, claims.UserID, func(u *model.User) error {
		if jwtutil.PasswordFingerprint(u.PasswordHash) != claims.Fingerprint {
			return invalid
		}
		u.PasswordHash = hash
		return nil
	}); err != nil {
		if apiErr, ok := response.AsAPIError(err); ok && apiErr == invalid {
			prometheus.RecordPasswordReset("stale_token")
		}
		return response.Fail(c, storeError(err, errUserNotFound))
	}

	prometheus.RecordPasswordReset("completed")
	log.Info("Password reset completed", zap.String("user_id", claims.UserID))
	return response.OK(c, nil, "密码重置成功")
}
