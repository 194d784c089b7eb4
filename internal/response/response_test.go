package response

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext() (echo.Context, *httptest.ResponseRecorder) {
	rec := httptest.NewRecorder()
	return echo.New().NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec), rec
}

func TestSuccessEnvelope(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, Created(c, map[string]int{"n": 1}, "创建成功"))

	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"success":true,"data":{"n":1},"message":"创建成功"}`, rec.Body.String())
}

func TestSuccessWithoutMessage(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, OK(c, nil, ""))
	assert.JSONEq(t, `{"success":true,"data":null}`, rec.Body.String())
}

func TestFailWithAPIError(t *testing.T) {
	c, rec := newContext()
	wrapped := fmt.Errorf("wrapped: %w", Conflict("DUPLICATE_CODE", "企业代码已存在"))
	require.NoError(t, Fail(c, wrapped))

	assert.Equal(t, http.StatusConflict, rec.Code)
	var env Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
	require.NotNil(t, env.Error)
	assert.Equal(t, "DUPLICATE_CODE", env.Error.Code)
}

func TestFailHidesUnexpectedErrors(t *testing.T) {
	c, rec := newContext()
	require.NoError(t, Fail(c, errors.New("database exploded at 0xdeadbeef")))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "INTERNAL_ERROR")
	assert.NotContains(t, rec.Body.String(), "0xdeadbeef")
}
