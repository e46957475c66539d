package common

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// ErrorResponse 错误响应体
type ErrorResponse struct {
	Error string `json:"error"`
}

// Respond writes data as JSON with the given status.
func Respond(c *gin.Context, httpStatus int, data interface{}) {
	c.JSON(httpStatus, data)
}

// RespondSuccess sends a 200 response with data.
func RespondSuccess(c *gin.Context, data interface{}) {
	Respond(c, http.StatusOK, data)
}

// RespondSuccessMessage sends {"success":true,"message":...} merged with extra fields.
func RespondSuccessMessage(c *gin.Context, message string, extra gin.H) {
	body := gin.H{
		"success": true,
		"message": message,
	}
	for k, v := range extra {
		body[k] = v
	}
	Respond(c, http.StatusOK, body)
}

// RespondError sends an error response with message.
func RespondError(c *gin.Context, httpStatus int, message string) {
	Respond(c, httpStatus, ErrorResponse{Error: message})
}

// RespondErrorAbort sends an error response and stops the handler chain.
func RespondErrorAbort(c *gin.Context, httpStatus int, message string) {
	c.AbortWithStatusJSON(httpStatus, ErrorResponse{Error: message})
}
