// Package handlers implements the gin handlers of the FamilyScope API.
package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/FamilyScope/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/FamilyScope/pkg/errors"
	"github.com/turtacn/FamilyScope/pkg/types/common"
)

// writeAppError renders err as the standard error envelope.  The status
// comes from the error code.  Errors that carry no code are masked as
// internal so raw driver or transport text never reaches the client.
func writeAppError(c *gin.Context, logger logging.Logger, err error) {
	body := common.ErrorDetail{}
	var appErr *errors.AppError
	switch {
	case errors.As(err, &appErr):
		body.Code = appErr.Code.String()
		body.Message = appErr.Message
		body.Detail = appErr.Detail
	case errors.Is(err, context.DeadlineExceeded):
		body.Code = errors.ErrCodeTimeout.String()
		body.Message = errors.DefaultMessageForCode(errors.ErrCodeTimeout)
	case errors.Is(err, context.Canceled):
		body.Code = errors.ErrCodeCancelled.String()
		body.Message = errors.DefaultMessageForCode(errors.ErrCodeCancelled)
	default:
		body.Code = errors.ErrCodeInternal.String()
		body.Message = errors.DefaultMessageForCode(errors.ErrCodeInternal)
	}
	if body.Message == "" {
		body.Message = errors.DefaultMessageForCode(errors.ErrorCode(body.Code))
	}
	status := errors.HTTPStatusForCode(errors.ErrorCode(body.Code))

	_ = c.Error(err)
	if status >= http.StatusInternalServerError {
		logger.Error("request error", logging.Err(err),
			logging.String("request_id", logging.RequestIDFromContext(c.Request.Context())))
	}
	c.AbortWithStatusJSON(status, common.ErrorResponse{Error: body})
}

// bindJSON decodes the request body into dst and renders a validation error
// on failure.
func bindJSON(c *gin.Context, logger logging.Logger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		writeAppError(c, logger, errors.Wrap(err, errors.ErrCodeValidation, "invalid request body"))
		return false
	}
	return true
}

//Personal.AI order the ending
