package handler

import (
	"strings"

	"disclosure-service/internal/model"
	"disclosure-service/internal/response"
	"disclosure-service/prometheus"

	"github.com/labstack/echo/v4"
)

// ListNotifications lists the notifications visible to the caller, newest first
func (h *Handler) ListNotifications(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	scope := scopeOf(claims)
	notifications, err := h.store.ListNotifications(c.Request().Context(), scope)
	if err != nil {
		return response.Fail(c, err)
	}
	if notifications == nil {
		notifications = []*model.Notification{}
	}
	unread := 0
	for _, n := range notifications {
		if !n.IsRead {
			unread++
		}
	}
	return response.OK(c, echo.Map{
		"list":        notifications,
		"total":       len(notifications),
		"unreadCount": unread,
	}, "")
}

// UnreadCount counts the caller's unread notifications
func (h *Handler) UnreadCount(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	_, unread, err := h.store.CountNotifications(c.Request().Context(), scopeOf(claims))
	if err != nil {
		return response.Fail(c, err)
	}
	return response.OK(c, echo.Map{"count": unread}, "")
}

// CreateNotification records a notification in the caller's enterprise,
// addressed to one user or broadcast when userId is empty
func (h *Handler) CreateNotification(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}

	var req struct {
		UserID   string `json:"userId"`
		Type     string `json:"type"`
		Title    string `json:"title"`
		Content  string `json:"content"`
		Priority string `json:"priority"`
	}
	if err := bind(c, &req); err != nil {
		return response.Fail(c, err)
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Content) == "" {
		return response.Fail(c, response.BadRequest("MISSING_PARAMS", "标题和内容不能为空"))
	}
	if req.UserID != "" {
		if _, err := h.userInEnterprise(c, req.UserID, claims.EnterpriseID); err != nil {
			return response.Fail(c, err)
		}
	}

	n := &model.Notification{
		EnterpriseID: claims.EnterpriseID,
		UserID:       req.UserID,
		Type:         req.Type,
		Title:        strings.TrimSpace(req.Title),
		Content:      req.Content,
		Priority:     req.Priority,
	}
	if n.Type == "" {
		n.Type = model.NotificationSystem
	}
	if n.Priority == "" {
		n.Priority = model.PriorityNormal
	}
	if err := h.store.CreateNotification(c.Request().Context(), n); err != nil {
		return response.Fail(c, err)
	}

	prometheus.RecordResourceOperation("notification", "create")
	return response.Created(c, n, "创建成功")
}

// MarkNotificationRead marks one visible notification read for the caller
func (h *Handler) MarkNotificationRead(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	n, err := h.store.MarkNotificationRead(c.Request().Context(), scopeOf(claims), c.Param("id"))
	if err != nil {
		return response.Fail(c, storeError(err, errNotFound))
	}
	return response.OK(c, n, "已标记为已读")
}

// MarkAllNotificationsRead marks every visible notification read for the caller
func (h *Handler) MarkAllNotificationsRead(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	updated, err := h.store.MarkAllNotificationsRead(c.Request().Context(), scopeOf(claims))
	if err != nil {
		return response.Fail(c, err)
	}
	return response.OK(c, echo.Map{"updated": updated}, "全部标记为已读")
}

// DeleteNotification removes one visible notification. Broadcasts are removed
// only by the administrators that own them.
func (h *Handler) DeleteNotification(c echo.Context) error {
	claims, err := caller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	guard := func(n *model.Notification) error {
		if !model.CanDeleteNotification(claims.Role, n) {
			return errForbidden
		}
		return nil
	}
	if err := h.store.DeleteNotification(c.Request().Context(), scopeOf(claims), c.Param("id"), guard); err != nil {
		return response.Fail(c, storeError(err, errNotFound))
	}
	prometheus.RecordResourceOperation("notification", "delete")
	return response.OK(c, nil, "删除成功")
}
