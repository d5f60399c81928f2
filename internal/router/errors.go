package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/mernshop/storefront/pkg/global"
)

// writeError aborts the request with the status and caller-safe message for
// err. Internal faults are logged with their cause; the caller only sees
// "Server error".
func writeError(c *gin.Context, err error) {
	status := global.HTTPStatus(err)
	logger := zerolog.Ctx(c.Request.Context())

	if status >= http.StatusInternalServerError {
		logger.Error().
			Err(err).
			Str("op", global.ErrorOp(err)).
			Msg("request failed")
	} else {
		logger.Debug().
			Str("op", global.ErrorOp(err)).
			Str("code", global.ErrorCode(err)).
			Msg(global.ErrorMessage(err))
	}

	c.AbortWithStatusJSON(status, global.ErrorResponse(global.ErrorMessage(err), nil))
}

func writeBindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, global.ErrorResponse("Invalid JSON body", []global.ValidationError{
		{Field: "body", Message: err.Error(), Code: "json_parse_error"},
	}))
}
