package httputil

import (
	stderrors "errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/clinic-dashboard/pkg/errors"
)

// Response wraps all API responses
type Response struct {
	Status   string      `json:"status"`
	Message  string      `json:"message,omitempty"`
	Data     interface{} `json:"data,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

func NewSuccessResponse(data interface{}) *Response {
	return &Response{
		Status: "success",
		Data:   data,
	}
}

func NewErrorResponse(message string) *Response {
	return &Response{
		Status:  "error",
		Message: message,
	}
}

// RespondWithSuccess sends a success response
func RespondWithSuccess(c *gin.Context, data interface{}, warnings ...string) {
	resp := NewSuccessResponse(data)
	resp.Warnings = warnings
	c.JSON(http.StatusOK, resp)
}

// RespondWithError sends an error response. data, when non-nil, carries the
// degraded (empty) view so the client can still render.
func RespondWithError(c *gin.Context, err error, data interface{}) {
	statusCode := http.StatusInternalServerError
	message := "Internal server error"

	var appErr *errors.AppError
	if stderrors.As(err, &appErr) {
		statusCode = appErr.StatusCode()
		message = appErr.Error()
	}

	resp := NewErrorResponse(message)
	resp.Data = data
	c.JSON(statusCode, resp)
}
