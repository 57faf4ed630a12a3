package v1

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// RegisterRoutes registers all API v1 routes. When API keys are configured
// the whole group requires one; mutating incident routes additionally
// require the caller identity headers.
func (h *Handler) RegisterRoutes(api *gin.RouterGroup, log *logrus.Logger) {
	identity := IdentityMiddleware(log)

	protected := api.Group("")
	if len(h.cfg.APIKeys) > 0 {
		protected.Use(APIKeyAuthMiddleware(h.cfg, log))
	}

	incidents := protected.Group("/incidents")
	{
		incidents.POST("", identity, h.createIncident)
		incidents.GET("", h.listIncidents)
		incidents.GET("/nearby", h.findNearby)
		incidents.GET("/statistics", h.getStatistics)
		incidents.GET("/clusters", h.getClusters)
		incidents.GET("/:id", h.getIncident)
		incidents.PATCH("/:id", identity, h.updateIncident)
		incidents.PATCH("/:id/verify", identity, h.verifyIncident)
		incidents.DELETE("/:id", identity, h.deleteIncident)
	}

	// Live lifecycle event stream (SSE)
	protected.GET("/notifications/stream", h.streamEvents)

	// Health-check route stays open for probes
	api.GET("/system/health", h.healthCheck)
}
