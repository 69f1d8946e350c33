package router

import (
	"errors"
	"net/http"

	"github.com/flowjournal/backend/pkg/errorx"
	"github.com/gin-gonic/gin"
)

type response struct {
	Code    int64  `json:"code"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func writeResponse(gctx *gin.Context, data any, err error) {
	if err == nil {
		gctx.JSON(http.StatusOK, response{Code: 0, Success: true, Data: data})
		return
	}

	errx := errorx.Error{}
	if !errors.As(err, &errx) {
		errx = errorx.Unknown
	}

	gctx.JSON(httpStatus(errx.Code), response{
		Code:  int64(errx.Code),
		Error: errx.Message,
	})
}

func httpStatus(code errorx.Code) int {
	switch code {
	case errorx.BadRequest, errorx.TicketLimitExceeded:
		return http.StatusBadRequest
	case errorx.Unauthenticated:
		return http.StatusUnauthorized
	case errorx.PermissionDenied:
		return http.StatusForbidden
	case errorx.NotFound:
		return http.StatusNotFound
	case errorx.AlreadyExists:
		return http.StatusConflict
	case errorx.InsufficientPoints, errorx.DrawNotActive:
		return http.StatusUnprocessableEntity
	case errorx.TooManyRequests:
		return http.StatusTooManyRequests
	case errorx.Unavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
