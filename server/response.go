package server

import "github.com/gin-gonic/gin"

// apiResponse is the envelope every endpoint returns.
type apiResponse struct {
	Status    string `json:"status"`
	Message   string `json:"message,omitempty"`
	Data      any    `json:"data,omitempty"`
	ErrorCode string `json:"error_code,omitempty"`
}

func respondOK(c *gin.Context, code int, message string, data any) {
	c.JSON(code, apiResponse{
		Status:  "success",
		Message: message,
		Data:    data,
	})
}

func respondError(c *gin.Context, code int, errorCode, message string) {
	c.JSON(code, apiResponse{
		Status:    "error",
		Message:   message,
		ErrorCode: errorCode,
	})
}
