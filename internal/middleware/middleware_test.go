package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"disclosure-service/pkg/jwtutil"
	"disclosure-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestJWT() *jwtutil.JWTUtil {
	return jwtutil.NewJWTUtil(&jwtutil.JWTConfig{SigningKey: "test-key", ExpirationHours: 1, ResetTTL: time.Hour})
}

func protected(t *testing.T, j *jwtutil.JWTUtil, header string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.GET("/p", func(c echo.Context) error {
		claims, ok := ClaimsFromContext(c)
		require.True(t, ok)
		return c.String(http.StatusOK, claims.UserID)
	}, Auth(j))

	req := httptest.NewRequest(http.MethodGet, "/p", nil)
	if header != "" {
		req.Header.Set(echo.HeaderAuthorization, header)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestAuthAcceptsSessionToken(t *testing.T) {
	j := newTestJWT()
	token, err := j.GenerateAccessToken(jwtutil.Subject{UserID: "u1", EnterpriseID: "e1", Role: "ADMIN"})
	require.NoError(t, err)

	rec := protected(t, j, "Bearer "+token)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u1", rec.Body.String())
}

func TestAuthRejections(t *testing.T) {
	j := newTestJWT()
	reset, err := j.GenerateResetToken(jwtutil.Subject{UserID: "u1"}, "hash")
	require.NoError(t, err)

	cases := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{"missing header", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"empty bearer", "Bearer ", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"garbage token", "Bearer not-a-token", http.StatusForbidden, "INVALID_TOKEN"},
		{"reset token", "Bearer " + reset, http.StatusForbidden, "INVALID_TOKEN"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := protected(t, j, tc.header)
			assert.Equal(t, tc.status, rec.Code)
			assert.Contains(t, rec.Body.String(), `"code":"`+tc.code+`"`)
			assert.Contains(t, rec.Body.String(), `"success":false`)
		})
	}
}

func TestRequestIDMiddleware(t *testing.T) {
	e := echo.New()
	e.Use(RequestIDMiddleware)
	e.GET("/", func(c echo.Context) error {
		return c.String(http.StatusOK, c.Get(logger.RequestIDKey).(string))
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(logger.RequestIDKey, "abc")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	assert.Equal(t, "abc", rec.Body.String())
	assert.Equal(t, "abc", rec.Header().Get(logger.RequestIDKey))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, rec.Body.String(), 36)
	assert.Equal(t, rec.Body.String(), rec.Header().Get(logger.RequestIDKey))
}
