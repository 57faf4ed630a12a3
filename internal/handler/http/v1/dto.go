package v1

import (
	"time"

	"github.com/google/uuid"
)

// CreateIncidentRequest is the payload for reporting a new incident. Photos
// are opaque URIs already resolved by the upload collaborator. Coordinates
// are pointers so a legitimate 0.0 still passes the required check.
// @Description Incident creation request
type CreateIncidentRequest struct {
	Title                   string   `json:"title" validate:"required,min=2,max=255"`
	Description             string   `json:"description" validate:"required"`
	Category                string   `json:"category" validate:"required,oneof=earthquake flood fire storm landslide accident infrastructure health security other"`
	Severity                int      `json:"severity" validate:"required,min=1,max=5"`
	Latitude                *float64 `json:"latitude" validate:"required,latitude"`
	Longitude               *float64 `json:"longitude" validate:"required,longitude"`
	Address                 string   `json:"address" validate:"required"`
	Photos                  []string `json:"photos,omitempty" validate:"omitempty,max=10,dive,uri"`
	Tags                    []string `json:"tags,omitempty" validate:"omitempty,dive,min=1"`
	EstimatedAffectedPeople *int     `json:"estimated_affected_people,omitempty" validate:"omitempty,min=0"`
}

// UpdateIncidentRequest is a partial update; absent fields are untouched.
// A status change is only honored for privileged callers.
// @Description Incident update request
type UpdateIncidentRequest struct {
	Title                   *string  `json:"title,omitempty" validate:"omitempty,min=2,max=255"`
	Description             *string  `json:"description,omitempty" validate:"omitempty,min=1"`
	Category                *string  `json:"category,omitempty" validate:"omitempty,oneof=earthquake flood fire storm landslide accident infrastructure health security other"`
	Severity                *int     `json:"severity,omitempty" validate:"omitempty,min=1,max=5"`
	Status                  *string  `json:"status,omitempty" validate:"omitempty,oneof=reported verified in_progress resolved closed rejected"`
	Latitude                *float64 `json:"latitude,omitempty" validate:"omitempty,latitude"`
	Longitude               *float64 `json:"longitude,omitempty" validate:"omitempty,longitude"`
	Address                 *string  `json:"address,omitempty" validate:"omitempty,min=1"`
	Photos                  []string `json:"photos,omitempty" validate:"omitempty,max=10,dive,uri"`
	Tags                    []string `json:"tags,omitempty" validate:"omitempty,dive,min=1"`
	EstimatedAffectedPeople *int     `json:"estimated_affected_people,omitempty" validate:"omitempty,min=0"`
}

// IncidentResponse is the public view of an incident.
// @Description Incident response
type IncidentResponse struct {
	ID                      uuid.UUID  `json:"id"`
	Title                   string     `json:"title"`
	Description             string     `json:"description"`
	Category                string     `json:"category"`
	Severity                int        `json:"severity"`
	Status                  string     `json:"status"`
	ReporterID              uuid.UUID  `json:"reporter_id"`
	Latitude                float64    `json:"latitude"`
	Longitude               float64    `json:"longitude"`
	Address                 string     `json:"address"`
	Photos                  []string   `json:"photos"`
	Tags                    []string   `json:"tags"`
	EstimatedAffectedPeople *int       `json:"estimated_affected_people,omitempty"`
	IsVerified              bool       `json:"is_verified"`
	VerifiedBy              *uuid.UUID `json:"verified_by,omitempty"`
	VerifiedAt              *time.Time `json:"verified_at,omitempty"`
	CreatedAt               time.Time  `json:"created_at"`
	UpdatedAt               time.Time  `json:"updated_at"`
}

// Pagination describes the page window of a list response.
// @Description Pagination metadata
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// IncidentListResponse is a page of incidents with pagination metadata.
// @Description Paginated incident list
type IncidentListResponse struct {
	Incidents  []*IncidentResponse `json:"incidents"`
	Pagination Pagination          `json:"pagination"`
}

// ClusterResponse is one proximity cluster.
// @Description Incident proximity cluster
type ClusterResponse struct {
	CenterLatitude  float64     `json:"center_latitude"`
	CenterLongitude float64     `json:"center_longitude"`
	Severity        int         `json:"severity"`
	IncidentIDs     []uuid.UUID `json:"incident_ids"`
	Size            int         `json:"size"`
}

// StatisticsResponse is the aggregate incident view.
// @Description Incident statistics
type StatisticsResponse struct {
	TotalIncidents      int                 `json:"total_incidents"`
	ActiveIncidents     int                 `json:"active_incidents"`
	ResolvedIncidents   int                 `json:"resolved_incidents"`
	IncidentsByCategory map[string]int      `json:"incidents_by_category"`
	IncidentsBySeverity map[int]int         `json:"incidents_by_severity"`
	RecentIncidents     []*IncidentResponse `json:"recent_incidents"`
}
