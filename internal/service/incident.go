package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/dzsentinel/incident_reporting_system/internal/authz"
	"github.com/dzsentinel/incident_reporting_system/internal/cluster"
	"github.com/dzsentinel/incident_reporting_system/internal/config"
	"github.com/dzsentinel/incident_reporting_system/internal/events"
	"github.com/dzsentinel/incident_reporting_system/internal/models"
)

// clusterSnapshotLimit bounds the batch fed to the O(n^2) clustering pass.
const clusterSnapshotLimit = 500

// recentIncidentsLimit is the size of the recent-incidents list in statistics.
const recentIncidentsLimit = 10

// IncidentRepository is the persistence contract consumed by the service.
type IncidentRepository interface {
	Create(ctx context.Context, incident *models.Incident) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	Update(ctx context.Context, incident *models.Incident) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter models.ListFilter) ([]*models.Incident, int, error)
	FindNearby(ctx context.Context, lat, lng, radiusMeters float64, excludeStatuses []models.Status) ([]*models.Incident, error)
	CountAll(ctx context.Context) (int, error)
	CountByStatuses(ctx context.Context, statuses []models.Status) (int, error)
	CountByCategory(ctx context.Context) (map[models.Category]int, error)
	CountBySeverity(ctx context.Context) (map[int]int, error)
	ListRecent(ctx context.Context, limit int) ([]*models.Incident, error)

	GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	SetIncidentCache(ctx context.Context, incident *models.Incident) error
	InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error
	GetClustersFromCache(ctx context.Context) ([]*models.Cluster, error)
	SetClustersCache(ctx context.Context, clusters []*models.Cluster) error
}

// IncidentService is the business-logic contract for the incident lifecycle,
// proximity queries, clustering and statistics. Caller identity and role are
// explicit parameters on every gated operation.
type IncidentService interface {
	CreateIncident(ctx context.Context, incident *models.Incident, reporterID uuid.UUID) (*models.Incident, error)
	GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error)
	ListIncidents(ctx context.Context, filter models.ListFilter) ([]*models.Incident, int, error)
	FindNearby(ctx context.Context, lat, lng, radiusMeters float64) ([]*models.Incident, error)
	UpdateIncident(ctx context.Context, id uuid.UUID, patch models.IncidentPatch, callerID uuid.UUID, callerRole models.Role) (*models.Incident, error)
	VerifyIncident(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole models.Role) (*models.Incident, error)
	RemoveIncident(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole models.Role) error
	GetStatistics(ctx context.Context) (*models.Statistics, error)
	GetClusters(ctx context.Context, radiusKm float64) ([]*models.Cluster, error)
	RefreshClusters(ctx context.Context) error
}

type incidentService struct {
	repo      IncidentRepository
	logger    *logrus.Logger
	cfg       *config.Config
	publisher events.Publisher
}

func NewIncidentService(repo IncidentRepository, logger *logrus.Logger, cfg *config.Config, publisher events.Publisher) IncidentService {
	return &incidentService{
		repo:      repo,
		logger:    logger,
		cfg:       cfg,
		publisher: publisher,
	}
}

// CreateIncident validates and persists a new report with status "reported"
// and emits incident.created.
func (s *incidentService) CreateIncident(ctx context.Context, incident *models.Incident, reporterID uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":  "incident",
		"method":   "CreateIncident",
		"reporter": reporterID,
		"title":    incident.Title,
	})
	log.Info("Attempting to create a new incident")

	incident.ReporterID = reporterID
	incident.Status = models.StatusReported
	incident.IsVerified = false
	incident.VerifiedBy = nil
	incident.VerifiedAt = nil

	// The photos and tags columns are NOT NULL arrays; a nil slice would
	// insert NULL.
	if incident.Photos == nil {
		incident.Photos = []string{}
	}
	if incident.Tags == nil {
		incident.Tags = []string{}
	}

	if err := validateIncident(incident); err != nil {
		log.WithError(err).Warn("Incident validation failed")
		return nil, err
	}

	if err := s.repo.Create(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to create incident in repository")
		return nil, fmt.Errorf("service: could not create incident: %w", err)
	}

	log.WithField("incident_id", incident.ID).Info("Incident created successfully")

	s.publish(ctx, events.Event{
		Type:      events.TypeIncidentCreated,
		Timestamp: time.Now().UTC(),
		Incident:  incident,
		UserID:    reporterID.String(),
	})
	return incident, nil
}

// GetIncident returns an incident by id, cache first.
func (s *incidentService) GetIncident(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "GetIncident",
		"incident_id": id,
	})

	cached, err := s.repo.GetIncidentFromCache(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Incident cache read failed")
	}
	if cached != nil {
		return cached, nil
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Failed to get incident from repository")
		return nil, fmt.Errorf("service: could not get incident: %w", err)
	}

	if err := s.repo.SetIncidentCache(ctx, incident); err != nil {
		log.WithError(err).Warn("Incident cache write failed")
	}
	return incident, nil
}

// ListIncidents returns a filtered page of incidents plus the total count.
func (s *incidentService) ListIncidents(ctx context.Context, filter models.ListFilter) ([]*models.Incident, int, error) {
	filter.Normalize()

	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "ListIncidents",
		"page":    filter.Page,
		"limit":   filter.Limit,
	})
	log.Info("Listing incidents")

	incidents, total, err := s.repo.List(ctx, filter)
	if err != nil {
		log.WithError(err).Error("Failed to list incidents from repository")
		return nil, 0, fmt.Errorf("service: could not list incidents: %w", err)
	}

	log.WithField("count", len(incidents)).Info("Incidents listed successfully")
	return incidents, total, nil
}

// FindNearby returns incidents within radiusMeters of the point, nearest
// first, excluding closed reports, capped at 50 by the repository.
func (s *incidentService) FindNearby(ctx context.Context, lat, lng, radiusMeters float64) ([]*models.Incident, error) {
	if radiusMeters <= 0 {
		radiusMeters = s.cfg.NearbyDefaultRadiusMeters
	}

	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "FindNearby",
		"lat":     lat,
		"lng":     lng,
		"radius":  radiusMeters,
	})
	log.Info("Searching nearby incidents")

	incidents, err := s.repo.FindNearby(ctx, lat, lng, radiusMeters, []models.Status{models.StatusClosed})
	if err != nil {
		log.WithError(err).Error("Failed to find nearby incidents")
		return nil, fmt.Errorf("service: could not find nearby incidents: %w", err)
	}
	return incidents, nil
}

// UpdateIncident applies a partial update. The caller must be the reporter or
// hold a privileged role. A status change by a non-privileged caller is
// silently dropped from the patch; the remaining fields still apply.
func (s *incidentService) UpdateIncident(ctx context.Context, id uuid.UUID, patch models.IncidentPatch, callerID uuid.UUID, callerRole models.Role) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "UpdateIncident",
		"incident_id": id,
		"caller_id":   callerID,
		"caller_role": callerRole,
	})
	log.Info("Attempting to update incident")

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to update a non-existent incident")
		return nil, fmt.Errorf("service: incident %s not found for update: %w", id, err)
	}

	isReporter := existing.ReporterID == callerID
	if !authz.Allowed(authz.OpUpdate, callerRole, isReporter) {
		log.Warn("Caller is not allowed to update this incident")
		return nil, fmt.Errorf("service: update incident %s: %w", id, models.ErrForbidden)
	}

	if patch.Status != nil && !authz.Allowed(authz.OpSetStatus, callerRole, false) {
		log.Info("Dropping status change from non-privileged caller")
		patch.Status = nil
	}

	applyPatch(existing, patch)

	if err := validateIncident(existing); err != nil {
		log.WithError(err).Warn("Patched incident failed validation")
		return nil, err
	}

	if err := s.repo.Update(ctx, existing); err != nil {
		log.WithError(err).Error("Failed to update incident in repository")
		return nil, fmt.Errorf("service: could not update incident: %w", err)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Incident cache invalidation failed")
	}

	log.Info("Incident updated successfully")

	s.publish(ctx, events.Event{
		Type:      events.TypeIncidentUpdated,
		Timestamp: time.Now().UTC(),
		Incident:  existing,
		UserID:    callerID.String(),
		UserRole:  callerRole,
	})
	return existing, nil
}

// VerifyIncident marks an incident as verified. Privileged roles only.
func (s *incidentService) VerifyIncident(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole models.Role) (*models.Incident, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "VerifyIncident",
		"incident_id": id,
		"caller_id":   callerID,
		"caller_role": callerRole,
	})
	log.Info("Attempting to verify incident")

	if !authz.Allowed(authz.OpVerify, callerRole, false) {
		log.Warn("Caller is not allowed to verify incidents")
		return nil, fmt.Errorf("service: verify incident %s: %w", id, models.ErrForbidden)
	}

	incident, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to verify a non-existent incident")
		return nil, fmt.Errorf("service: incident %s not found for verify: %w", id, err)
	}

	now := time.Now().UTC()
	incident.Status = models.StatusVerified
	incident.IsVerified = true
	incident.VerifiedBy = &callerID
	incident.VerifiedAt = &now

	if err := s.repo.Update(ctx, incident); err != nil {
		log.WithError(err).Error("Failed to persist incident verification")
		return nil, fmt.Errorf("service: could not verify incident: %w", err)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Incident cache invalidation failed")
	}

	log.Info("Incident verified successfully")

	s.publish(ctx, events.Event{
		Type:       events.TypeIncidentVerified,
		Timestamp:  now,
		Incident:   incident,
		VerifiedBy: callerID.String(),
	})
	return incident, nil
}

// RemoveIncident deletes an incident permanently. Only the reporter or an
// admin may delete. The emitted event carries the id alone; the record is
// gone by the time consumers see it.
func (s *incidentService) RemoveIncident(ctx context.Context, id uuid.UUID, callerID uuid.UUID, callerRole models.Role) error {
	log := s.logger.WithFields(logrus.Fields{
		"service":     "incident",
		"method":      "RemoveIncident",
		"incident_id": id,
		"caller_id":   callerID,
		"caller_role": callerRole,
	})
	log.Info("Attempting to remove incident")

	existing, err := s.repo.GetByID(ctx, id)
	if err != nil {
		log.WithError(err).Warn("Attempted to remove a non-existent incident")
		return fmt.Errorf("service: incident %s not found for remove: %w", id, err)
	}

	isReporter := existing.ReporterID == callerID
	if !authz.Allowed(authz.OpDelete, callerRole, isReporter) {
		log.Warn("Caller is not allowed to remove this incident")
		return fmt.Errorf("service: remove incident %s: %w", id, models.ErrForbidden)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		log.WithError(err).Error("Failed to delete incident in repository")
		return fmt.Errorf("service: could not remove incident: %w", err)
	}

	if err := s.repo.InvalidateIncidentCache(ctx, id); err != nil {
		log.WithError(err).Warn("Incident cache invalidation failed")
	}

	log.Info("Incident removed successfully")

	s.publish(ctx, events.Event{
		Type:       events.TypeIncidentDeleted,
		Timestamp:  time.Now().UTC(),
		IncidentID: id.String(),
		UserID:     callerID.String(),
		UserRole:   callerRole,
	})
	return nil
}

// GetStatistics assembles the aggregate view from one repository snapshot.
// The six reads run concurrently; read-committed consistency is enough here.
func (s *incidentService) GetStatistics(ctx context.Context) (*models.Statistics, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service": "incident",
		"method":  "GetStatistics",
	})
	log.Info("Computing incident statistics")

	stats := &models.Statistics{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		total, err := s.repo.CountAll(gctx)
		stats.TotalIncidents = total
		return err
	})
	g.Go(func() error {
		active, err := s.repo.CountByStatuses(gctx, models.ActiveStatuses)
		stats.ActiveIncidents = active
		return err
	})
	g.Go(func() error {
		resolved, err := s.repo.CountByStatuses(gctx, models.ResolvedStatuses)
		stats.ResolvedIncidents = resolved
		return err
	})
	g.Go(func() error {
		byCategory, err := s.repo.CountByCategory(gctx)
		stats.IncidentsByCategory = byCategory
		return err
	})
	g.Go(func() error {
		bySeverity, err := s.repo.CountBySeverity(gctx)
		stats.IncidentsBySeverity = bySeverity
		return err
	})
	g.Go(func() error {
		recent, err := s.repo.ListRecent(gctx, recentIncidentsLimit)
		stats.RecentIncidents = recent
		return err
	})

	if err := g.Wait(); err != nil {
		log.WithError(err).Error("Failed to compute statistics")
		return nil, fmt.Errorf("service: could not compute statistics: %w", err)
	}

	return stats, nil
}

// GetClusters returns the proximity clusters for the current incident set.
// For the default radius the cached snapshot maintained by the refresher is
// served when present; any other radius is computed on demand.
func (s *incidentService) GetClusters(ctx context.Context, radiusKm float64) ([]*models.Cluster, error) {
	log := s.logger.WithFields(logrus.Fields{
		"service":   "incident",
		"method":    "GetClusters",
		"radius_km": radiusKm,
	})

	if radiusKm <= 0 {
		radiusKm = s.cfg.ClusterRadiusKm
	}

	if radiusKm == s.cfg.ClusterRadiusKm {
		cached, err := s.repo.GetClustersFromCache(ctx)
		if err != nil {
			log.WithError(err).Warn("Cluster cache read failed")
		}
		if cached != nil {
			return cached, nil
		}
	}

	clusters, err := s.computeClusters(ctx, radiusKm)
	if err != nil {
		log.WithError(err).Error("Failed to compute clusters")
		return nil, err
	}
	return clusters, nil
}

// RefreshClusters recomputes the default-radius snapshot and stores it in
// the cache. Invoked by the cron refresher.
func (s *incidentService) RefreshClusters(ctx context.Context) error {
	clusters, err := s.computeClusters(ctx, s.cfg.ClusterRadiusKm)
	if err != nil {
		return err
	}
	if err := s.repo.SetClustersCache(ctx, clusters); err != nil {
		return fmt.Errorf("service: could not cache clusters: %w", err)
	}
	return nil
}

func (s *incidentService) computeClusters(ctx context.Context, radiusKm float64) ([]*models.Cluster, error) {
	// The snapshot is fetched in repository order (newest first) so repeated
	// passes over the same data agree despite the engine's order dependence.
	incidents, _, err := s.repo.List(ctx, models.ListFilter{Page: 1, Limit: clusterSnapshotLimit})
	if err != nil {
		return nil, fmt.Errorf("service: could not load incidents for clustering: %w", err)
	}
	return cluster.Build(incidents, radiusKm), nil
}

// publish emits a lifecycle event. Failures are logged and never propagate;
// emission must not fail the originating operation.
func (s *incidentService) publish(ctx context.Context, event events.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event_type", event.Type).
			Error("Failed to publish lifecycle event")
	}
}
