package v1

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/dzsentinel/incident_reporting_system/internal/config"
	"github.com/dzsentinel/incident_reporting_system/internal/events"
	"github.com/dzsentinel/incident_reporting_system/internal/models"
	"github.com/dzsentinel/incident_reporting_system/internal/service"
)

type Handler struct {
	incidentService service.IncidentService
	eventStream     events.Stream
	logger          *logrus.Logger
	validate        *validator.Validate
	cfg             *config.Config
}

func NewHandler(incidentService service.IncidentService, eventStream events.Stream, logger *logrus.Logger, cfg *config.Config) *Handler {
	return &Handler{
		incidentService: incidentService,
		eventStream:     eventStream,
		logger:          logger,
		validate:        validator.New(),
		cfg:             cfg,
	}
}

// respondError maps the service error taxonomy onto HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, models.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "incident not found"})
	case errors.Is(err, models.ErrForbidden):
		c.JSON(http.StatusForbidden, gin.H{"error": "forbidden"})
	case errors.Is(err, models.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}

// @Summary Report a new incident
// @Description Create a new incident report. Requires caller identity headers.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param incident body CreateIncidentRequest true "Incident creation request"
// @Success 201 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid request body or validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [post]
func (h *Handler) createIncident(c *gin.Context) {
	log := h.logger.WithField("method", "createIncident")
	callerID, _ := callerIdentity(c)

	var input CreateIncidentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	model := CreateDTOToIncidentModel(input)
	created, err := h.incidentService.CreateIncident(c.Request.Context(), model, callerID)
	if err != nil {
		log.WithError(err).Error("Failed to create incident in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, ModelToIncidentResponse(created))
}

// @Summary List incidents
// @Description Get a filtered, paginated list of incidents. With lat/lng/radius the results are restricted to the radius and ordered nearest first.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param page query int false "Page number" default(1)
// @Param limit query int false "Number of items per page" default(10)
// @Param category query string false "Category filter"
// @Param severity query int false "Severity filter (1-5)"
// @Param status query string false "Status filter"
// @Param lat query number false "Geofilter latitude"
// @Param lng query number false "Geofilter longitude"
// @Param radius query number false "Geofilter radius in meters" default(5000)
// @Success 200 {object} IncidentListResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents [get]
func (h *Handler) listIncidents(c *gin.Context) {
	log := h.logger.WithField("method", "listIncidents")

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	severity, _ := strconv.Atoi(c.Query("severity"))

	filter := models.ListFilter{
		Category: models.Category(c.Query("category")),
		Severity: severity,
		Status:   models.Status(c.Query("status")),
		Page:     page,
		Limit:    limit,
	}

	latStr, lngStr := c.Query("lat"), c.Query("lng")
	if latStr != "" && lngStr != "" {
		lat, latErr := strconv.ParseFloat(latStr, 64)
		lng, lngErr := strconv.ParseFloat(lngStr, 64)
		if latErr != nil || lngErr != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid coordinates"})
			return
		}
		radius, _ := strconv.ParseFloat(c.Query("radius"), 64)
		if radius <= 0 {
			radius = h.cfg.NearbyDefaultRadiusMeters
		}
		filter.Geo = &models.GeoFilter{Latitude: lat, Longitude: lng, RadiusMeters: radius}
	}
	filter.Normalize()

	incidents, total, err := h.incidentService.ListIncidents(c.Request.Context(), filter)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from service")
		respondError(c, err)
		return
	}

	totalPages := (total + filter.Limit - 1) / filter.Limit

	c.JSON(http.StatusOK, IncidentListResponse{
		Incidents: ModelsToIncidentResponses(incidents),
		Pagination: Pagination{
			Page:       filter.Page,
			Limit:      filter.Limit,
			Total:      total,
			TotalPages: totalPages,
		},
	})
}

// @Summary Find nearby incidents
// @Description Get up to 50 open incidents within a radius of a point, nearest first. Closed incidents are excluded.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param lat query number true "Latitude"
// @Param lng query number true "Longitude"
// @Param radius query number false "Radius in meters" default(5000)
// @Success 200 {array} IncidentResponse
// @Failure 400 {object} map[string]string "Missing or invalid coordinates"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/nearby [get]
func (h *Handler) findNearby(c *gin.Context) {
	log := h.logger.WithField("method", "findNearby")

	lat, latErr := strconv.ParseFloat(c.Query("lat"), 64)
	lng, lngErr := strconv.ParseFloat(c.Query("lng"), 64)
	if latErr != nil || lngErr != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "lat and lng query parameters are required"})
		return
	}
	radius, _ := strconv.ParseFloat(c.Query("radius"), 64)

	incidents, err := h.incidentService.FindNearby(c.Request.Context(), lat, lng, radius)
	if err != nil {
		log.WithError(err).Error("Failed to find nearby incidents in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToIncidentResponses(incidents))
}

// @Summary Get incident statistics
// @Description Get totals, category/severity breakdowns and the ten most recent incidents.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Success 200 {object} StatisticsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/statistics [get]
func (h *Handler) getStatistics(c *gin.Context) {
	log := h.logger.WithField("method", "getStatistics")

	stats, err := h.incidentService.GetStatistics(c.Request.Context())
	if err != nil {
		log.WithError(err).Error("Failed to get statistics from service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToStatisticsResponse(stats))
}

// @Summary Get incident clusters
// @Description Get proximity clusters of the current incident set for map density views. Every cluster has at least two members.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param radius_km query number false "Clustering radius in kilometers" default(10)
// @Success 200 {array} ClusterResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/clusters [get]
func (h *Handler) getClusters(c *gin.Context) {
	log := h.logger.WithField("method", "getClusters")

	radiusKm, _ := strconv.ParseFloat(c.Query("radius_km"), 64)

	clusters, err := h.incidentService.GetClusters(c.Request.Context(), radiusKm)
	if err != nil {
		log.WithError(err).Error("Failed to get clusters from service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelsToClusterResponses(clusters))
}

// @Summary Get incident by ID
// @Description Get a single incident by its ID.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id} [get]
func (h *Handler) getIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "getIncident").WithField("id", id)

	incident, err := h.incidentService.GetIncident(c.Request.Context(), id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(incident))
}

// @Summary Update an incident
// @Description Partially update an incident. The caller must be the reporter or hold a privileged role; a status change from a non-privileged caller is dropped while the rest of the patch still applies.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Param incident body UpdateIncidentRequest true "Incident update request"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID or request body"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id} [patch]
func (h *Handler) updateIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "updateIncident").WithField("id", id)
	callerID, callerRole := callerIdentity(c)

	var input UpdateIncidentRequest
	if err := c.ShouldBindJSON(&input); err != nil {
		log.WithError(err).Warn("Failed to bind JSON")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.validate.Struct(input); err != nil {
		log.WithError(err).Warn("Validation failed")
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	updated, err := h.incidentService.UpdateIncident(c.Request.Context(), id, UpdateDTOToPatch(input), callerID, callerRole)
	if err != nil {
		log.WithError(err).Warn("Failed to update incident in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(updated))
}

// @Summary Verify an incident
// @Description Mark an incident as verified. Privileged roles (government, ngo, admin) only.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 200 {object} IncidentResponse
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id}/verify [patch]
func (h *Handler) verifyIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "verifyIncident").WithField("id", id)
	callerID, callerRole := callerIdentity(c)

	verified, err := h.incidentService.VerifyIncident(c.Request.Context(), id, callerID, callerRole)
	if err != nil {
		log.WithError(err).Warn("Failed to verify incident in service")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, ModelToIncidentResponse(verified))
}

// @Summary Delete an incident
// @Description Permanently delete an incident. Only the reporter or an admin may delete.
// @Tags Incidents
// @Accept json
// @Produce json
// @Security ApiKeyAuth
// @Param id path string true "Incident ID"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid incident ID"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden"
// @Failure 404 {object} map[string]string "Incident not found"
// @Failure 500 {object} map[string]string "Internal server error"
// @Router /incidents/{id} [delete]
func (h *Handler) deleteIncident(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid incident ID"})
		return
	}
	log := h.logger.WithField("method", "deleteIncident").WithField("id", id)
	callerID, callerRole := callerIdentity(c)

	if err := h.incidentService.RemoveIncident(c.Request.Context(), id, callerID, callerRole); err != nil {
		log.WithError(err).Warn("Failed to remove incident in service")
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary Get application health status
// @Description Get health status of the application
// @Tags System
// @Accept json
// @Produce json
// @Success 200 {object} map[string]string "Status OK"
// @Router /system/health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
