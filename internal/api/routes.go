package api

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the browser-facing endpoints.
func RegisterRoutes(r *gin.Engine, h *Handler) {
	r.GET("/health", h.Health)

	// Authorization round trip: /auth hands out the provider URL, the
	// provider redirects the user-agent back to /callback.
	r.GET("/auth", h.Authorize)
	r.GET("/callback", h.Callback)

	r.POST("/", h.Upload)
	r.GET("/activities", h.Activities)
	r.GET("/garmin/activities", h.GarminActivities)
}
