package handler

import (
	"net/http"

	"disclosure-service/internal/response"

	"github.com/labstack/echo/v4"
)

// Root reports liveness without the envelope
func (h *Handler) Root(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"status":    "ok",
		"message":   "专利交底书智能生成工具 API 服务运行中",
		"timestamp": timestamp(h.now()),
		"version":   h.opts.Version,
	})
}

// Health reports liveness in the envelope
func (h *Handler) Health(c echo.Context) error {
	return response.OK(c, echo.Map{
		"status":    "ok",
		"timestamp": timestamp(h.now()),
	}, "")
}
