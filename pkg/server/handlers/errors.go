package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/soundprediction/zonegraph/pkg/checkpoint"
	"github.com/soundprediction/zonegraph/pkg/driver"
	"github.com/soundprediction/zonegraph/pkg/server/dto"
	"github.com/soundprediction/zonegraph/pkg/types"
)

// statusFor maps graph and checkpoint errors to HTTP status codes.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, driver.ErrEntityNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, types.ErrInvalidDepth),
		errors.Is(err, types.ErrInvalidLimit),
		errors.Is(err, checkpoint.ErrInvalidRunID):
		return http.StatusBadRequest, "invalid_request"
	case errors.Is(err, driver.ErrCircuitOpen),
		errors.Is(err, driver.ErrClientNotInitialized),
		errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeError(c *gin.Context, err error) {
	code, kind := statusFor(err)
	c.JSON(code, dto.ErrorResponse{Error: kind, Message: err.Error(), Code: code})
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "invalid_request", Message: msg, Code: http.StatusBadRequest})
}
