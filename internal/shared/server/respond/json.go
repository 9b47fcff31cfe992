package respond

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// Envelope is the success body: {success:true, message?, data}.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data"`
}

// JSON writes a JSON response with the given status.
func JSON(c *gin.Context, status int, payload interface{}) {
	c.JSON(status, payload)
}

// Success wraps data in the success envelope.
func Success(c *gin.Context, status int, message string, data any) {
	JSON(c, status, Envelope{Success: true, Message: message, Data: data})
}

// OK writes a 200 success envelope without a message.
func OK(c *gin.Context, data any) {
	Success(c, http.StatusOK, "", data)
}
