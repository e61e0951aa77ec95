package httpapi

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"traderDashboard/internal/ports"
)

// Response is the envelope of every API reply.
type Response struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

const (
	CodeOK                  = "OK"
	CodeInvalidRequest      = "INVALID_REQUEST"
	CodeNotFound            = "NOT_FOUND"
	CodeDuplicate           = "DUPLICATE"
	CodeForbidden           = "FORBIDDEN"
	CodeStale               = "STALE"
	CodeUnsupportedPlatform = "UNSUPPORTED_PLATFORM"
	CodeTimeout             = "TIMEOUT"
	CodeUnavailable         = "UNAVAILABLE"
	CodeInternal            = "INTERNAL"
)

func respondOK(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{Code: CodeOK, Message: "success", Data: data})
}

func respondError(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, Response{Code: code, Message: message})
}

// statusOf maps a service error onto an HTTP status and envelope code.
func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, ports.ErrInvalidRequest):
		return http.StatusBadRequest, CodeInvalidRequest
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound, CodeNotFound
	case errors.Is(err, ports.ErrDuplicateEntry):
		return http.StatusConflict, CodeDuplicate
	case errors.Is(err, ports.ErrStaleResponse):
		return http.StatusConflict, CodeStale
	case errors.Is(err, ports.ErrPermissionDenied):
		return http.StatusForbidden, CodeForbidden
	case errors.Is(err, ports.ErrUnsupportedPlatform):
		return http.StatusUnprocessableEntity, CodeUnsupportedPlatform
	case errors.Is(err, ports.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, CodeTimeout
	case errors.Is(err, ports.ErrContextCanceled), errors.Is(err, ports.ErrUpstreamUnavailable):
		return http.StatusServiceUnavailable, CodeUnavailable
	default:
		return http.StatusInternalServerError, CodeInternal
	}
}
