package prometheus

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestStatusCategory(t *testing.T) {
	assert.Equal(t, "2xx", statusCategory(http.StatusCreated))
	assert.Equal(t, "4xx", statusCategory(http.StatusNotFound))
	assert.Equal(t, "5xx", statusCategory(http.StatusInternalServerError))
	assert.Empty(t, statusCategory(0))
}

func TestMetricsMiddlewareCountsRequests(t *testing.T) {
	e := echo.New()
	e.Use(MetricsMiddleware())
	e.GET("/items/:id", func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	counter := HTTPRequestCounter.With(prometheus.Labels{"endpoint": "/items/:id", "method": http.MethodGet, "status": "204"})
	before := testutil.ToFloat64(counter)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/items/42", nil))

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, before+1, testutil.ToFloat64(counter))
}

func TestGaugeUpdatesReplaceLabels(t *testing.T) {
	UpdateDisclosuresByStatus(map[string]int{"draft": 2, "review": 1})
	UpdateDisclosuresByStatus(map[string]int{"draft": 3})

	assert.Equal(t, 3.0, testutil.ToFloat64(DisclosuresByStatusGauge.With(prometheus.Labels{"status": "draft"})))
	assert.Equal(t, 1, testutil.CollectAndCount(DisclosuresByStatusGauge))

	UpdateActiveEnterprises(4)
	assert.Equal(t, 4.0, testutil.ToFloat64(ActiveEnterprisesGauge))
}

func TestRecordLoginCountsIssuedTokens(t *testing.T) {
	before := testutil.ToFloat64(IssuedTokensCounter)
	RecordLogin("invalid_credentials")
	assert.Equal(t, before, testutil.ToFloat64(IssuedTokensCounter))
	RecordLogin("success")
	assert.Equal(t, before+1, testutil.ToFloat64(IssuedTokensCounter))
}

func TestMetricsMiddlewareRecordsRenderedErrors(t *testing.T) {
	e := echo.New()
	e.Use(MetricsMiddleware())
	e.GET("/items", func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusConflict, "taken")
	})

	category := func(name string) float64 {
		return testutil.ToFloat64(StatusCategoryCounter.With(prometheus.Labels{"category": name}))
	}
	ok, clientErr := category("2xx"), category("4xx")

	for _, path := range []string{"/nope", "/items"} {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.GreaterOrEqual(t, rec.Code, http.StatusBadRequest, path)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/items", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)

	assert.Equal(t, ok, category("2xx"), "errors are not counted as success")
	assert.Equal(t, clientErr+3, category("4xx"))

	conflicts := HTTPRequestCounter.With(prometheus.Labels{"endpoint": "/items", "method": http.MethodGet, "status": "409"})
	assert.Equal(t, 1.0, testutil.ToFloat64(conflicts))
}
