package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"docsense-backend/internal/shared/server/middleware"
	"docsense-backend/internal/shared/server/respond"
)

// registerMeRoutes attaches the /me endpoint.
func registerMeRoutes(rg *gin.RouterGroup) {
	rg.GET("/me", meHandler)
}

func meHandler(c *gin.Context) {
	userID := middleware.UserIDFromContext(c)
	if userID == "" {
		respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", "")
		return
	}
	isGuest := c.GetBool("isGuest")
	respond.OK(c, gin.H{
		"userId":  userID,
		"isGuest": isGuest,
	})
}
