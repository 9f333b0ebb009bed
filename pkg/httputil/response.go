package httputil

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yferras/clinic-api/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   *Error      `json:"error,omitempty"`
}

// Error represents API error
type Error struct {
	Code    errors.Code `json:"code"`
	Message string      `json:"message"`
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, status int, data interface{}) {
	c.JSON(status, Response{
		Success: true,
		Data:    data,
	})
}

// RespondWithError sends an error response. AppErrors keep their status
// and code; anything else becomes an opaque 500.
func RespondWithError(c *gin.Context, err error) {
	var (
		status  = http.StatusInternalServerError
		code    = errors.CodeServerError
		message = "internal server error"
	)

	if appErr, ok := err.(*errors.AppError); ok {
		status = appErr.StatusCode()
		code = appErr.Code
		message = appErr.Message
	}

	c.Error(err)
	c.JSON(status, Response{
		Success: false,
		Error: &Error{
			Code:    code,
			Message: message,
		},
	})
}
