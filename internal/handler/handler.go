package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"disclosure-service/internal/ai"
	"disclosure-service/internal/middleware"
	"disclosure-service/internal/model"
	"disclosure-service/internal/response"
	"disclosure-service/internal/store"
	"disclosure-service/pkg/jwtutil"

	"github.com/labstack/echo/v4"
)

// PasswordHasher hashes and verifies user passwords
type PasswordHasher interface {
	Hash(ctx context.Context, plain string) (string, error)
	Compare(ctx context.Context, hash, plain string) (bool, error)
	CompareDummy(ctx context.Context, plain string) error
}

// Options tunes handler behaviour from configuration
type Options struct {
	Version          string
	ExposeResetToken bool
	DefaultPassword  string
}

// Handler serves the HTTP API on top of a store
type Handler struct {
	store  store.Store
	hasher PasswordHasher
	tokens *jwtutil.JWTUtil
	ai     ai.Provider
	opts   Options
	now    store.Clock
}

// NewHandler creates the API handler set
func NewHandler(st store.Store, hasher PasswordHasher, tokens *jwtutil.JWTUtil, provider ai.Provider, opts Options) *Handler {
	if opts.DefaultPassword == "" {
		opts.DefaultPassword = "password123"
	}
	return &Handler{
		store:  st,
		hasher: hasher,
		tokens: tokens,
		ai:     provider,
		opts:   opts,
		now:    store.SystemClock,
	}
}

var (
	errInvalidRequest = response.BadRequest("INVALID_REQUEST", "请求格式错误")
	errForbidden      = response.Forbidden("FORBIDDEN", "无权访问")
	errNotFound       = response.NotFound("NOT_FOUND", "资源不存在")
	errUserNotFound   = response.NotFound("USER_NOT_FOUND", "用户不存在")
)

// bind decodes the request body, reporting malformed JSON as INVALID_REQUEST
func bind(c echo.Context, dst interface{}) error {
	if err := c.Bind(dst); err != nil {
		return errInvalidRequest
	}
	return nil
}

// caller returns the authenticated claims of the request
func caller(c echo.Context) (*jwtutil.UserClaims, error) {
	claims, ok := middleware.ClaimsFromContext(c)
	if !ok {
		return nil, response.Unauthorized("UNAUTHORIZED", "未提供访问令牌")
	}
	return claims, nil
}

// adminCaller returns the claims of an ADMIN or SUPER_ADMIN caller
func adminCaller(c echo.Context) (*jwtutil.UserClaims, error) {
	claims, err := caller(c)
	if err != nil {
		return nil, err
	}
	if !model.IsAdminRole(claims.Role) {
		return nil, errForbidden
	}
	return claims, nil
}

// storeError maps store sentinels to API errors; notFound is used for ErrNotFound
func storeError(err error, notFound *response.APIError) error {
	if _, ok := response.AsAPIError(err); ok {
		return err
	}
	if errors.Is(err, store.ErrNotFound) {
		return notFound
	}
	return err
}

func scopeOf(claims *jwtutil.UserClaims) model.NotificationScope {
	return model.NotificationScope{EnterpriseID: claims.EnterpriseID, UserID: claims.UserID}
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func list[T any](items []T) echo.Map {
	return echo.Map{"list": items, "total": len(items)}
}

// HTTPErrorHandler renders errors that escape handlers in the uniform envelope
func HTTPErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var he *echo.HTTPError
	if errors.As(err, &he) {
		switch he.Code {
		case http.StatusNotFound, http.StatusMethodNotAllowed:
			err = response.NotFound("NOT_FOUND", "接口不存在")
		case http.StatusRequestEntityTooLarge:
			err = response.NewError(http.StatusRequestEntityTooLarge, "PAYLOAD_TOO_LARGE", "请求体过大")
		case http.StatusBadRequest, http.StatusUnsupportedMediaType:
			err = errInvalidRequest
		}
	}

	_ = response.Fail(c, err)
}
