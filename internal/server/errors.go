package server

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/openpaas/groupd/api"
	"github.com/openpaas/groupd/internal"
	"github.com/openpaas/groupd/internal/access"
	"github.com/openpaas/groupd/internal/logging"
	"github.com/openpaas/groupd/internal/server/data"
)

func sendAPIError(c *gin.Context, err error) {
	resp := &api.Error{
		Code:    http.StatusInternalServerError,
		Message: "internal server error", // don't leak any internal info by default
	}

	validationErrors := validator.ValidationErrors{}

	var forbidden access.ForbiddenError
	var notFound access.NotFoundError
	var uniqueConstraint data.UniqueConstraintError

	switch {
	case errors.Is(err, internal.ErrUnauthorized):
		resp.Code = http.StatusUnauthorized
		resp.Message = "unauthorized"
	case errors.Is(err, data.ErrAccessKeyExpired):
		resp.Code = http.StatusUnauthorized
		resp.Message = "unauthorized"
		resp.Details = err.Error()
	case errors.As(err, &forbidden):
		resp.Code = http.StatusForbidden
		resp.Message = "forbidden"
		resp.Details = forbidden.Reason
	case errors.Is(err, internal.ErrForbidden):
		resp.Code = http.StatusForbidden
		resp.Message = "forbidden"
	case errors.As(err, &notFound):
		resp.Code = http.StatusNotFound
		resp.Message = "not found"
		resp.Details = notFound.Error()
	case errors.Is(err, internal.ErrNotFound):
		resp.Code = http.StatusNotFound
		resp.Message = "not found"
	case errors.As(err, &uniqueConstraint):
		resp.Code = http.StatusConflict
		resp.Message = err.Error()
	case errors.As(err, &validationErrors):
		resp.Code = http.StatusBadRequest
		resp.Message = "bad request"
		resp.Details = validationErrors.Error()
	case errors.Is(err, internal.ErrBadRequest):
		resp.Code = http.StatusBadRequest
		resp.Message = "bad request"
		resp.Details = strings.TrimPrefix(err.Error(), "bad request: ")
	}

	if resp.Code >= 500 {
		logging.L.Error().Err(err).Int32("statusCode", resp.Code).Msg("api request error")
	} else {
		logging.L.Debug().Err(err).Int32("statusCode", resp.Code).Msg("api request error")
	}

	c.JSON(int(resp.Code), resp)
	c.Abort()
}
