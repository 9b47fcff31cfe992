package respond

import (
	"github.com/gin-gonic/gin"

	"docsense-backend/internal/shared/telemetry"
)

// ErrorResponse is the failure envelope: {success:false, message, error?, code?}.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Error   string `json:"error,omitempty"`
	Code    string `json:"code,omitempty"`
}

// Error sends a standardized error response. detail carries the underlying
// error string, when there is one worth surfacing.
func Error(c *gin.Context, status int, code, message, detail string) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if detail != "" {
		fields["error"] = detail
	}
	if status >= 500 {
		telemetry.Error("http.error", fields)
	} else {
		telemetry.Warn("http.error", fields)
	}

	c.AbortWithStatusJSON(status, ErrorResponse{
		Success: false,
		Message: message,
		Error:   detail,
		Code:    code,
	})
}
