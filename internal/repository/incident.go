package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/dzsentinel/incident_reporting_system/internal/models"
	"github.com/dzsentinel/incident_reporting_system/internal/service"
)

// nearbyResultCap bounds the result size of FindNearby.
const nearbyResultCap = 50

// incidentCacheTTL is the lifetime of a cached incident.
const incidentCacheTTL = 5 * time.Minute

// clustersCacheKey holds the precomputed default-radius cluster snapshot.
const clustersCacheKey = "incident_clusters"

// incidentColumns is the select list shared by every read query.
const incidentColumns = `
	id,
	title,
	description,
	category,
	severity,
	status,
	reporter_id,
	ST_Y(location::geometry) as latitude,
	ST_X(location::geometry) as longitude,
	address,
	photos,
	tags,
	estimated_affected_people,
	is_verified,
	verified_by,
	verified_at,
	created_at,
	updated_at`

type IncidentRepository struct {
	db          *pgxpool.Pool
	redisClient *redis.Client
}

func NewIncidentRepository(db *pgxpool.Pool, redisClient *redis.Client) service.IncidentRepository {
	return &IncidentRepository{
		db:          db,
		redisClient: redisClient,
	}
}

// Create inserts a new incident and fills in its id and timestamps.
func (r *IncidentRepository) Create(ctx context.Context, incident *models.Incident) error {
	query := `
		INSERT INTO incidents (
			title, description, category, severity, status, reporter_id,
			location, address, photos, tags, estimated_affected_people
		)
		VALUES ($1, $2, $3, $4, $5, $6, ST_SetSRID(ST_MakePoint($7, $8), 4326), $9, $10, $11, $12)
		RETURNING id, created_at, updated_at;
	`
	err := r.db.QueryRow(ctx, query,
		incident.Title,
		incident.Description,
		string(incident.Category),
		incident.Severity,
		string(incident.Status),
		incident.ReporterID,
		incident.Longitude,
		incident.Latitude,
		incident.Address,
		incident.Photos,
		incident.Tags,
		incident.EstimatedAffectedPeople,
	).Scan(&incident.ID, &incident.CreatedAt, &incident.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create incident: %w", err)
	}
	return nil
}

// GetByID returns an incident by its UUID.
func (r *IncidentRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents WHERE id = $1;`

	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("incident %s: %w", id, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get incident by id: %w", err)
	}
	return incident, nil
}

// Update persists the full incident row. Last write wins on concurrent
// updates to the same id.
func (r *IncidentRepository) Update(ctx context.Context, incident *models.Incident) error {
	query := `
		UPDATE incidents SET
			title = $1,
			description = $2,
			category = $3,
			severity = $4,
			status = $5,
			location = ST_SetSRID(ST_MakePoint($6, $7), 4326),
			address = $8,
			photos = $9,
			tags = $10,
			estimated_affected_people = $11,
			is_verified = $12,
			verified_by = $13,
			verified_at = $14,
			updated_at = NOW()
		WHERE id = $15;
	`
	cmdTag, err := r.db.Exec(ctx, query,
		incident.Title,
		incident.Description,
		string(incident.Category),
		incident.Severity,
		string(incident.Status),
		incident.Longitude,
		incident.Latitude,
		incident.Address,
		incident.Photos,
		incident.Tags,
		incident.EstimatedAffectedPeople,
		incident.IsVerified,
		incident.VerifiedBy,
		incident.VerifiedAt,
		incident.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update incident: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident %s: %w", incident.ID, models.ErrNotFound)
	}
	return nil
}

// Delete removes an incident permanently. No tombstone is kept.
func (r *IncidentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	cmdTag, err := r.db.Exec(ctx, `DELETE FROM incidents WHERE id = $1;`, id)
	if err != nil {
		return fmt.Errorf("failed to delete incident: %w", err)
	}

	if cmdTag.RowsAffected() == 0 {
		return fmt.Errorf("incident %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// List returns a filtered page of incidents and the total match count.
// With a geo filter results come back nearest first, otherwise newest first.
func (r *IncidentRepository) List(ctx context.Context, filter models.ListFilter) ([]*models.Incident, int, error) {
	conditions := make([]string, 0, 4)
	args := make([]any, 0, 8)
	idx := 1

	if filter.Category != "" {
		conditions = append(conditions, fmt.Sprintf("category = $%d", idx))
		args = append(args, string(filter.Category))
		idx++
	}
	if filter.Severity != 0 {
		conditions = append(conditions, fmt.Sprintf("severity = $%d", idx))
		args = append(args, filter.Severity)
		idx++
	}
	if filter.Status != "" {
		conditions = append(conditions, fmt.Sprintf("status = $%d", idx))
		args = append(args, string(filter.Status))
		idx++
	}

	orderBy := "ORDER BY created_at DESC"
	if filter.Geo != nil {
		point := fmt.Sprintf("ST_SetSRID(ST_MakePoint($%d, $%d), 4326)::geography", idx, idx+1)
		conditions = append(conditions, fmt.Sprintf("ST_DWithin(location, %s, $%d)", point, idx+2))
		args = append(args, filter.Geo.Longitude, filter.Geo.Latitude, filter.Geo.RadiusMeters)
		orderBy = fmt.Sprintf("ORDER BY ST_Distance(location, %s) ASC", point)
		idx += 3
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM incidents %s;", where)
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("failed to count incidents: %w", err)
	}

	offset := (filter.Page - 1) * filter.Limit
	listQuery := fmt.Sprintf(
		"SELECT %s FROM incidents %s %s LIMIT $%d OFFSET $%d;",
		incidentColumns, where, orderBy, idx, idx+1,
	)
	listArgs := append(args, filter.Limit, offset)

	rows, err := r.db.Query(ctx, listQuery, listArgs...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list incidents: %w", err)
	}
	defer rows.Close()

	incidents, err := collectIncidents(rows)
	if err != nil {
		return nil, 0, err
	}
	return incidents, total, nil
}

// FindNearby returns incidents within radiusMeters of the point, excluding
// the given statuses, nearest first, capped at 50.
func (r *IncidentRepository) FindNearby(ctx context.Context, lat, lng, radiusMeters float64, excludeStatuses []models.Status) ([]*models.Incident, error) {
	excluded := make([]string, len(excludeStatuses))
	for i, s := range excludeStatuses {
		excluded[i] = string(s)
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM incidents
		WHERE
			status <> ALL($1)
			AND ST_DWithin(
				location,
				ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography,
				$4
			)
		ORDER BY ST_Distance(location, ST_SetSRID(ST_MakePoint($2, $3), 4326)::geography) ASC
		LIMIT %d;
	`, incidentColumns, nearbyResultCap)

	rows, err := r.db.Query(ctx, query, excluded, lng, lat, radiusMeters)
	if err != nil {
		return nil, fmt.Errorf("failed to find nearby incidents: %w", err)
	}
	defer rows.Close()

	return collectIncidents(rows)
}

// CountAll returns the total number of incidents.
func (r *IncidentRepository) CountAll(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM incidents;`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count incidents: %w", err)
	}
	return count, nil
}

// CountByStatuses returns the number of incidents in any of the statuses.
func (r *IncidentRepository) CountByStatuses(ctx context.Context, statuses []models.Status) (int, error) {
	wanted := make([]string, len(statuses))
	for i, s := range statuses {
		wanted[i] = string(s)
	}

	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM incidents WHERE status = ANY($1);`, wanted).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count incidents by status: %w", err)
	}
	return count, nil
}

// CountByCategory returns incident counts grouped by category.
func (r *IncidentRepository) CountByCategory(ctx context.Context) (map[models.Category]int, error) {
	rows, err := r.db.Query(ctx, `SELECT category, COUNT(*) FROM incidents GROUP BY category;`)
	if err != nil {
		return nil, fmt.Errorf("failed to count incidents by category: %w", err)
	}
	defer rows.Close()

	counts := make(map[models.Category]int)
	for rows.Next() {
		var category string
		var count int
		if err := rows.Scan(&category, &count); err != nil {
			return nil, fmt.Errorf("failed to scan category count: %w", err)
		}
		counts[models.Category(category)] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating category counts: %w", err)
	}
	return counts, nil
}

// CountBySeverity returns incident counts grouped by severity level.
func (r *IncidentRepository) CountBySeverity(ctx context.Context) (map[int]int, error) {
	rows, err := r.db.Query(ctx, `SELECT severity, COUNT(*) FROM incidents GROUP BY severity;`)
	if err != nil {
		return nil, fmt.Errorf("failed to count incidents by severity: %w", err)
	}
	defer rows.Close()

	counts := make(map[int]int)
	for rows.Next() {
		var severity, count int
		if err := rows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("failed to scan severity count: %w", err)
		}
		counts[severity] = count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating severity counts: %w", err)
	}
	return counts, nil
}

// ListRecent returns the most recently created incidents, newest first.
func (r *IncidentRepository) ListRecent(ctx context.Context, limit int) ([]*models.Incident, error) {
	query := `SELECT ` + incidentColumns + ` FROM incidents ORDER BY created_at DESC LIMIT $1;`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent incidents: %w", err)
	}
	defer rows.Close()

	return collectIncidents(rows)
}

// GetIncidentFromCache tries to fetch an incident from Redis. A cache miss
// returns (nil, nil).
func (r *IncidentRepository) GetIncidentFromCache(ctx context.Context, id uuid.UUID) (*models.Incident, error) {
	key := fmt.Sprintf("incident:%s", id.String())
	val, err := r.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get incident from cache: %w", err)
	}

	incident := &models.Incident{}
	if err := json.Unmarshal(val, incident); err != nil {
		return nil, fmt.Errorf("failed to unmarshal incident from cache: %w", err)
	}
	return incident, nil
}

// SetIncidentCache stores an incident in Redis.
func (r *IncidentRepository) SetIncidentCache(ctx context.Context, incident *models.Incident) error {
	key := fmt.Sprintf("incident:%s", incident.ID.String())
	val, err := json.Marshal(incident)
	if err != nil {
		return fmt.Errorf("failed to marshal incident for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, key, val, incidentCacheTTL).Err(); err != nil {
		return fmt.Errorf("failed to set incident in cache: %w", err)
	}
	return nil
}

// InvalidateIncidentCache drops an incident from the Redis cache.
func (r *IncidentRepository) InvalidateIncidentCache(ctx context.Context, id uuid.UUID) error {
	key := fmt.Sprintf("incident:%s", id.String())
	if err := r.redisClient.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("failed to invalidate incident cache: %w", err)
	}
	return nil
}

// GetClustersFromCache returns the cached cluster snapshot, or (nil, nil)
// when no snapshot has been stored yet.
func (r *IncidentRepository) GetClustersFromCache(ctx context.Context) ([]*models.Cluster, error) {
	val, err := r.redisClient.Get(ctx, clustersCacheKey).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get clusters from cache: %w", err)
	}

	clusters := make([]*models.Cluster, 0)
	if err := json.Unmarshal(val, &clusters); err != nil {
		return nil, fmt.Errorf("failed to unmarshal clusters from cache: %w", err)
	}
	return clusters, nil
}

// SetClustersCache stores the cluster snapshot without expiry; the refresher
// overwrites it on every tick.
func (r *IncidentRepository) SetClustersCache(ctx context.Context, clusters []*models.Cluster) error {
	val, err := json.Marshal(clusters)
	if err != nil {
		return fmt.Errorf("failed to marshal clusters for cache: %w", err)
	}
	if err := r.redisClient.Set(ctx, clustersCacheKey, val, 0).Err(); err != nil {
		return fmt.Errorf("failed to set clusters in cache: %w", err)
	}
	return nil
}

// scanIncident reads one incident row.
func scanIncident(row pgx.Row) (*models.Incident, error) {
	incident := &models.Incident{}
	err := row.Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&incident.Category,
		&incident.Severity,
		&incident.Status,
		&incident.ReporterID,
		&incident.Latitude,
		&incident.Longitude,
		&incident.Address,
		&incident.Photos,
		&incident.Tags,
		&incident.EstimatedAffectedPeople,
		&incident.IsVerified,
		&incident.VerifiedBy,
		&incident.VerifiedAt,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return incident, nil
}

// collectIncidents drains rows into a slice.
func collectIncidents(rows pgx.Rows) ([]*models.Incident, error) {
	incidents := make([]*models.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan incident row: %w", err)
		}
		incidents = append(incidents, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating incident rows: %w", err)
	}
	return incidents, nil
}
