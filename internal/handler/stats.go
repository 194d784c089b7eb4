package handler

import (
	"disclosure-service/internal/response"

	"github.com/labstack/echo/v4"
)

// Stats aggregates dashboard counters for administrators
func (h *Handler) Stats(c echo.Context) error {
	claims, err := adminCaller(c)
	if err != nil {
		return response.Fail(c, err)
	}
	ctx := c.Request().Context()

	enterprises, err := h.store.ListEnterprises(ctx)
	if err != nil {
		return response.Fail(c, err)
	}
	activeEnterprises := 0
	for _, e := range enterprises {
		if e.IsActive() {
			activeEnterprises++
		}
	}

	totalUsers, activeUsers, err := h.store.CountUsers(ctx, claims.EnterpriseID)
	if err != nil {
		return response.Fail(c, err)
	}

	byStatus, err := h.store.CountDisclosuresByStatus(ctx, claims.EnterpriseID)
	if err != nil {
		return response.Fail(c, err)
	}
	if byStatus == nil {
		byStatus = map[string]int{}
	}
	totalDisclosures := 0
	for _, n := range byStatus {
		totalDisclosures += n
	}

	totalNotifications, unread, err := h.store.CountNotifications(ctx, scopeOf(claims))
	if err != nil {
		return response.Fail(c, err)
	}

	return response.OK(c, echo.Map{
		"enterprises": echo.Map{"total": len(enterprises), "active": activeEnterprises},
		"users":       echo.Map{"total": totalUsers, "active": activeUsers},
		"disclosures": echo.Map{"total": totalDisclosures, "byStatus": byStatus},
		"notifications": echo.Map{
			"total":  totalNotifications,
			"unread": unread,
		},
	}, "")
}
