package response

import (
	"errors"
	"fmt"
	"net/http"

	"disclosure-service/pkg/logger"
	"disclosure-service/prometheus"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// Envelope is the body of every API response
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data"`
	Message string      `json:"message,omitempty"`
	Error   *ErrorBody  `json:"error,omitempty"`
}

// ErrorBody describes a failed request
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// APIError is an expected failure with its HTTP status and error code
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// NewError creates an APIError
func NewError(status int, code, message string) *APIError {
	return &APIError{Status: status, Code: code, Message: message}
}

func BadRequest(code, message string) *APIError {
	return NewError(http.StatusBadRequest, code, message)
}

func Unauthorized(code, message string) *APIError {
	return NewError(http.StatusUnauthorized, code, message)
}

func Forbidden(code, message string) *APIError {
	return NewError(http.StatusForbidden, code, message)
}

func NotFound(code, message string) *APIError {
	return NewError(http.StatusNotFound, code, message)
}

func Conflict(code, message string) *APIError {
	return NewError(http.StatusConflict, code, message)
}

// Internal is the generic failure reported for unexpected errors
func Internal() *APIError {
	return NewError(http.StatusInternalServerError, "INTERNAL_ERROR", "服务器内部错误")
}

// AsAPIError reports whether err carries an APIError
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// Success writes a successful envelope
func Success(c echo.Context, status int, data interface{}, message string) error {
	return c.JSON(status, Envelope{Success: true, Data: data, Message: message})
}

// OK writes a 200 envelope
func OK(c echo.Context, data interface{}, message string) error {
	return Success(c, http.StatusOK, data, message)
}

// Created writes a 201 envelope
func Created(c echo.Context, data interface{}, message string) error {
	return Success(c, http.StatusCreated, data, message)
}

// Fail writes the error envelope for err. Errors that are not APIErrors are
// logged with their detail and reported as a generic internal error.
func Fail(c echo.Context, err error) error {
	log := logger.FromContext(c)

	apiErr, ok := AsAPIError(err)
	if !ok {
		log.Error("Unexpected error", zap.Error(err), zap.String("path", c.Path()))
		apiErr = Internal()
	} else if apiErr.Status >= http.StatusInternalServerError {
		log.Error("Request failed", zap.String("code", apiErr.Code), zap.String("message", apiErr.Message))
	} else {
		log.Warn("Request rejected",
			zap.Int("status", apiErr.Status),
			zap.String("code", apiErr.Code),
			zap.String("message", apiErr.Message))
	}

	prometheus.RecordAPIError(apiErr.Code)
	return c.JSON(apiErr.Status, Envelope{
		Success: false,
		Data:    nil,
		Error:   &ErrorBody{Code: apiErr.Code, Message: apiErr.Message},
	})
}
