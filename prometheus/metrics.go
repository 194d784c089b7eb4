package prometheus

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Counter metrics
var (
	// Login counters
	LoginCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disclosure_login_total",
			Help: "Total number of login attempts",
		},
		[]string{"result"}, // result can be "success", "invalid_credentials", "disabled"
	)

	// Password reset counter
	PasswordResetCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disclosure_password_reset_total",
			Help: "Total number of password reset requests and completions",
		},
		[]string{"stage"}, // stage can be "requested", "completed"
	)

	// HTTP request counter by endpoint and status
	HTTPRequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disclosure_http_requests_total",
			Help: "Total number of HTTP requests by endpoint and status",
		},
		[]string{"endpoint", "method", "status"},
	)

	// Responses by status class
	StatusCategoryCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disclosure_http_status_category_total",
			Help: "Total number of responses by status category (2xx, 4xx, 5xx)",
		},
		[]string{"category"},
	)

	// API error counter by envelope error code
	APIErrorCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disclosure_api_errors_total",
			Help: "Total number of API errors by error code",
		},
		[]string{"code"},
	)

	// Resource operation counter
	ResourceOperationCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disclosure_resource_operations_total",
			Help: "Total number of resource operations",
		},
		[]string{"resource", "operation"},
	)

	// Session tokens issued by successful logins
	IssuedTokensCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "disclosure_issued_tokens_total",
			Help: "Total number of session tokens issued by this process",
		},
	)

	// AI action counter
	AIActionCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "disclosure_ai_actions_total",
			Help: "Total number of AI polish/extract actions",
		},
		[]string{"action", "model"},
	)
)

// Histogram metrics
var (
	// Request duration
	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "disclosure_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	)

	// Store operation duration
	StoreOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "disclosure_store_operation_duration_seconds",
			Help:    "Duration of store operations in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"driver", "operation"},
	)
)

// Gauge metrics
var (
	// System info
	InfoGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "disclosure_info",
			Help: "Information about the disclosure service",
		},
		[]string{"service", "version", "store"},
	)

	// Active enterprises
	ActiveEnterprisesGauge = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "disclosure_active_enterprises",
			Help: "Number of currently active enterprises",
		},
	)

	// Users per enterprise
	UsersPerEnterpriseGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "disclosure_users_per_enterprise",
			Help: "Number of users per enterprise",
		},
		[]string{"enterprise_code"},
	)

	// Disclosures by status
	DisclosuresByStatusGauge = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "disclosure_documents",
			Help: "Number of disclosures by status across all enterprises",
		},
		[]string{"status"},
	)
)

func init() {
	// Register counters
	prometheus.MustRegister(LoginCounter)
	prometheus.MustRegister(PasswordResetCounter)
	prometheus.MustRegister(HTTPRequestCounter)
	prometheus.MustRegister(StatusCategoryCounter)
	prometheus.MustRegister(APIErrorCounter)
	prometheus.MustRegister(ResourceOperationCounter)
	prometheus.MustRegister(IssuedTokensCounter)
	prometheus.MustRegister(AIActionCounter)

	// Register histograms
	prometheus.MustRegister(RequestDuration)
	prometheus.MustRegister(StoreOperationDuration)

	// Register gauges
	prometheus.MustRegister(InfoGauge)
	prometheus.MustRegister(ActiveEnterprisesGauge)
	prometheus.MustRegister(UsersPerEnterpriseGauge)
	prometheus.MustRegister(DisclosuresByStatusGauge)
}

// GetPrometheusHandler returns an HTTP handler for the Prometheus metrics
func GetPrometheusHandler() http.Handler {
	return promhttp.Handler()
}

// SetInfo publishes the static service info gauge
func SetInfo(service, version, store string) {
	InfoGauge.With(prometheus.Labels{"service": service, "version": version, "store": store}).Set(1)
}

// TrackStoreOperation measures store operation durations
func TrackStoreOperation(driver, operation string) func() {
	startTime := time.Now()
	return func() {
		StoreOperationDuration.With(prometheus.Labels{
			"driver":    driver,
			"operation": operation,
		}).Observe(time.Since(startTime).Seconds())
	}
}

// MetricsMiddleware creates a middleware function that captures metrics for each request
func MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			// Execute the request handler; render errors so the final status is recorded
			err := next(c)
			if err != nil && !c.Response().Committed {
				c.Error(err)
			}

			// Record request duration
			duration := time.Since(start).Seconds()
			status := strconv.Itoa(c.Response().Status)
			endpoint := c.Path()
			method := c.Request().Method

			// Record metrics
			RequestDuration.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Observe(duration)

			HTTPRequestCounter.With(prometheus.Labels{
				"endpoint": endpoint,
				"method":   method,
				"status":   status,
			}).Inc()

			if category := statusCategory(c.Response().Status); category != "" {
				StatusCategoryCounter.With(prometheus.Labels{"category": category}).Inc()
			}

			return err
		}
	}
}

func statusCategory(status int) string {
	switch {
	case status >= 200 && status < 300:
		return "2xx"
	case status >= 300 && status < 400:
		return "3xx"
	case status >= 400 && status < 500:
		return "4xx"
	case status >= 500 && status < 600:
		return "5xx"
	}
	return ""
}

// RecordLogin records a login attempt by result
func RecordLogin(result string) {
	LoginCounter.With(prometheus.Labels{"result": result}).Inc()
	if result == "success" {
		IssuedTokensCounter.Inc()
	}
}

// RecordPasswordReset records a password reset stage
func RecordPasswordReset(stage string) {
	PasswordResetCounter.With(prometheus.Labels{"stage": stage}).Inc()
}

// RecordAPIError records an API error by envelope code
func RecordAPIError(code string) {
	APIErrorCounter.With(prometheus.Labels{"code": code}).Inc()
}

// RecordResourceOperation records a resource operation
func RecordResourceOperation(resource, operation string) {
	ResourceOperationCounter.With(prometheus.Labels{"resource": resource, "operation": operation}).Inc()
}

// RecordAIAction records an AI action served by a model
func RecordAIAction(action, model string) {
	AIActionCounter.With(prometheus.Labels{"action": action, "model": model}).Inc()
}

// UpdateActiveEnterprises updates the active enterprises gauge
func UpdateActiveEnterprises(count int) {
	ActiveEnterprisesGauge.Set(float64(count))
}

// UpdateUsersPerEnterprise replaces the users per enterprise gauge
func UpdateUsersPerEnterprise(counts map[string]int) {
	UsersPerEnterpriseGauge.Reset()
	for code, n := range counts {
		UsersPerEnterpriseGauge.With(prometheus.Labels{"enterprise_code": code}).Set(float64(n))
	}
}

// UpdateDisclosuresByStatus replaces the disclosures by status gauge
func UpdateDisclosuresByStatus(counts map[string]int) {
	DisclosuresByStatusGauge.Reset()
	for status, n := range counts {
		DisclosuresByStatusGauge.With(prometheus.Labels{"status": status}).Set(float64(n))
	}
}
