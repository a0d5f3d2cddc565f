package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/regps-supervision-go/internal/errorutil"
	"github.com/jengzang/regps-supervision-go/internal/repository"
	"github.com/jengzang/regps-supervision-go/internal/service"
	"github.com/jengzang/regps-supervision-go/pkg/response"
)

// respondError maps typed errors onto HTTP statuses
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errorutil.IsValidation(err):
		response.BadRequest(c, err.Error())
	case errorutil.IsInsufficientData(err):
		response.UnprocessableEntity(c, err.Error())
	case errorutil.IsUpstreamUnavailable(err):
		response.ServiceUnavailable(c, err.Error())
	case errorutil.IsConfiguration(err):
		response.InternalError(c, err.Error())
	case errors.Is(err, repository.ErrTaskNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, service.ErrTaskNotActive):
		response.Error(c, 409, err.Error())
	default:
		response.InternalError(c, "Internal server error")
	}
}
