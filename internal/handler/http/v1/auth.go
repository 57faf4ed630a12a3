package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dzsentinel/incident_reporting_system/internal/config"
	"github.com/dzsentinel/incident_reporting_system/internal/models"
)

// Context keys set by IdentityMiddleware.
const (
	ctxKeyUserID   = "caller_user_id"
	ctxKeyUserRole = "caller_user_role"
)

// Identity headers set by the upstream identity collaborator.
const (
	headerUserID   = "X-User-ID"
	headerUserRole = "X-User-Role"
)

// APIKeyAuthMiddleware authenticates service-to-service calls by API key.
func APIKeyAuthMiddleware(cfg *config.Config, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			// Also accept Authorization: Bearer
			authHeader := c.GetHeader("Authorization")
			if authHeader != "" && strings.HasPrefix(authHeader, "Bearer ") {
				apiKey = strings.TrimPrefix(authHeader, "Bearer ")
			}
		}

		if apiKey == "" {
			log.Warn("API key missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "API key required"})
			return
		}

		isValid := false
		for _, key := range cfg.APIKeys {
			if key == apiKey {
				isValid = true
				break
			}
		}

		if !isValid {
			log.Warn("Invalid API key provided")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid API key"})
			return
		}

		c.Next()
	}
}

// IdentityMiddleware requires the caller identity headers on mutating
// routes. The gateway authenticates the user; this layer only needs the
// resulting id and role, never ambient auth state.
func IdentityMiddleware(log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		rawID := c.GetHeader(headerUserID)
		rawRole := c.GetHeader(headerUserRole)

		if rawID == "" || rawRole == "" {
			log.Warn("Caller identity headers missing from request")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "caller identity required"})
			return
		}

		userID, err := uuid.Parse(rawID)
		if err != nil {
			log.WithError(err).Warn("Invalid caller user id")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid caller identity"})
			return
		}

		role := models.Role(rawRole)
		if !role.IsValid() {
			log.WithField("role", rawRole).Warn("Unknown caller role")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid caller role"})
			return
		}

		c.Set(ctxKeyUserID, userID)
		c.Set(ctxKeyUserRole, role)
		c.Next()
	}
}

// callerIdentity returns the identity stored by IdentityMiddleware.
func callerIdentity(c *gin.Context) (uuid.UUID, models.Role) {
	userID, _ := c.MustGet(ctxKeyUserID).(uuid.UUID)
	role, _ := c.MustGet(ctxKeyUserRole).(models.Role)
	return userID, role
}
