package handler

import (
	"net/http"

	"disclosure-service/internal/middleware"
	"disclosure-service/pkg/logger"
	"disclosure-service/prometheus"

	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

// DefaultBodyLimit caps request bodies
const DefaultBodyLimit = "10M"

// NewRouter builds the echo instance serving the API
func NewRouter(h *Handler, log *zap.Logger, bodyLimit string) *echo.Echo {
	if bodyLimit == "" {
		bodyLimit = DefaultBodyLimit
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = HTTPErrorHandler

	// Apply global middleware - order matters
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.CORS())
	e.Use(middleware.RequestIDMiddleware)
	e.Use(logger.Middleware(log))
	e.Use(prometheus.MetricsMiddleware())
	e.Use(echomiddleware.BodyLimit(bodyLimit))

	// Public routes
	e.GET("/", h.Root)
	e.GET("/health", h.Health)
	e.GET("/api/health", h.Health)
	e.GET("/metrics", echo.WrapHandler(prometheus.GetPrometheusHandler()))
	e.POST("/api/auth/login", h.Login)
	e.POST("/api/auth/forgot-password", h.ForgotPassword)
	e.POST("/api/auth/reset-password", h.ResetPassword)

	// Authenticated routes. Auth is attached per route so unknown paths still answer 404.
	auth := middleware.Auth(h.tokens)
	routes := []struct {
		method  string
		path    string
		handler echo.HandlerFunc
	}{
		{http.MethodGet, "/api/auth/me", h.Me},

		{http.MethodGet, "/api/enterprises", h.ListEnterprises},
		{http.MethodPost, "/api/enterprises", h.CreateEnterprise},
		{http.MethodGet, "/api/enterprises/:id", h.GetEnterprise},
		{http.MethodPut, "/api/enterprises/:id", h.UpdateEnterprise},

		{http.MethodGet, "/api/users", h.ListUsers},
		{http.MethodPost, "/api/users", h.CreateUser},
		{http.MethodPut, "/api/users/:id", h.UpdateUser},
		{http.MethodDelete, "/api/users/:id", h.DeleteUser},

		{http.MethodGet, "/api/disclosures", h.ListDisclosures},
		{http.MethodPost, "/api/disclosures", h.CreateDisclosure},
		{http.MethodGet, "/api/disclosures/:id", h.GetDisclosure},
		{http.MethodPut, "/api/disclosures/:id", h.UpdateDisclosure},
		{http.MethodDelete, "/api/disclosures/:id", h.DeleteDisclosure},

		{http.MethodGet, "/api/ai-configs", h.GetAIConfig},
		{http.MethodPut, "/api/ai-configs", h.UpdateAIConfig},
		{http.MethodPost, "/api/ai-configs/models", h.AddAIModel},
		{http.MethodGet, "/api/api-configs", h.GetAPIConfig},
		{http.MethodPut, "/api/api-configs", h.UpdateAPIConfig},

		{http.MethodPost, "/api/ai/polish", h.Polish},
		{http.MethodPost, "/api/ai/extract", h.Extract},

		{http.MethodGet, "/api/prompt-configs", h.ListPromptConfigs},
		{http.MethodPost, "/api/prompt-configs", h.CreatePromptConfig},
		{http.MethodPut, "/api/prompt-configs/:id", h.UpdatePromptConfig},
		{http.MethodDelete, "/api/prompt-configs/:id", h.DeletePromptConfig},

		{http.MethodGet, "/api/field-configs", h.ListFieldConfigs},
		{http.MethodPost, "/api/field-configs", h.CreateFieldConfig},
		{http.MethodPut, "/api/field-configs", h.ReplaceFieldConfigs},

		{http.MethodGet, "/api/notifications", h.ListNotifications},
		{http.MethodGet, "/api/notifications/unread-count", h.UnreadCount},
		{http.MethodPost, "/api/notifications", h.CreateNotification},
		{http.MethodPut, "/api/notifications/read-all", h.MarkAllNotificationsRead},
		{http.MethodPut, "/api/notifications/:id/read", h.MarkNotificationRead},
		{http.MethodDelete, "/api/notifications/:id", h.DeleteNotification},

		{http.MethodGet, "/api/admin/stats", h.Stats},
	}
	for _, r := range routes {
		e.Add(r.method, r.path, r.handler, auth)
	}

	return e
}
