// Package handlers implements the gin endpoint handlers for the engine's
// JSON API.  Every error funnels through respondError so the wire shape and
// status mapping stay uniform.
package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nickita-khylkouski/ultrathink/pkg/errors"
)

// ErrorResponse is the standard error body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// respondError maps an error chain to its HTTP status and wire shape.
// Non-AppError failures are masked as a generic 500.
func respondError(c *gin.Context, err error) {
	_ = c.Error(err)
	var ae *errors.AppError
	if errors.As(err, &ae) {
		c.JSON(ae.Code.HTTPStatus(), ErrorResponse{
			Code:    ae.Code.String(),
			Message: ae.Message,
			Detail:  ae.Detail,
		})
		return
	}
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Code:    errors.CodeInternal.String(),
		Message: "internal server error",
	})
}

// bindJSON decodes the request body, converting decode failures into the
// uniform invalid-parameter error.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		respondError(c, errors.InvalidParam("invalid request body").
			WithDetail(err.Error()))
		return false
	}
	return true
}
