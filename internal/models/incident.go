package models

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies an incident report.
type Category string

const (
	CategoryEarthquake     Category = "earthquake"
	CategoryFlood          Category = "flood"
	CategoryFire           Category = "fire"
	CategoryStorm          Category = "storm"
	CategoryLandslide      Category = "landslide"
	CategoryAccident       Category = "accident"
	CategoryInfrastructure Category = "infrastructure"
	CategoryHealth         Category = "health"
	CategorySecurity       Category = "security"
	CategoryOther          Category = "other"
)

// Categories lists every valid category, in declaration order.
var Categories = []Category{
	CategoryEarthquake, CategoryFlood, CategoryFire, CategoryStorm,
	CategoryLandslide, CategoryAccident, CategoryInfrastructure,
	CategoryHealth, CategorySecurity, CategoryOther,
}

func (c Category) IsValid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Status is the lifecycle state of an incident. The nominal progression is
// reported -> verified -> in_progress -> resolved -> closed, with rejected as
// a terminal branch, but a privileged update may set any status directly.
type Status string

const (
	StatusReported   Status = "reported"
	StatusVerified   Status = "verified"
	StatusInProgress Status = "in_progress"
	StatusResolved   Status = "resolved"
	StatusClosed     Status = "closed"
	StatusRejected   Status = "rejected"
)

var Statuses = []Status{
	StatusReported, StatusVerified, StatusInProgress,
	StatusResolved, StatusClosed, StatusRejected,
}

func (s Status) IsValid() bool {
	for _, known := range Statuses {
		if s == known {
			return true
		}
	}
	return false
}

// ActiveStatuses are the states counted as "active" in statistics.
var ActiveStatuses = []Status{StatusReported, StatusVerified, StatusInProgress}

// ResolvedStatuses are the states counted as "resolved" in statistics.
var ResolvedStatuses = []Status{StatusResolved, StatusClosed}

// Severity levels, 1 (low) through 5 (emergency).
const (
	SeverityLow       = 1
	SeverityMedium    = 2
	SeverityHigh      = 3
	SeverityCritical  = 4
	SeverityEmergency = 5
)

// MaxPhotos bounds the number of photo references per incident.
const MaxPhotos = 10

type Incident struct {
	ID                      uuid.UUID  `json:"id"`
	Title                   string     `json:"title"`
	Description             string     `json:"description"`
	Category                Category   `json:"category"`
	Severity                int        `json:"severity"`
	Status                  Status     `json:"status"`
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

// IncidentPatch carries a partial update. Nil fields are left untouched.
type IncidentPatch struct {
	Title                   *string
	Description             *string
	Category                *Category
	Severity                *int
	Status                  *Status
	Latitude                *float64
	Longitude               *float64
	Address                 *string
	Photos                  []string
	Tags                    []string
	EstimatedAffectedPeople *int
}

// Pagination bounds shared by the service and the transport layer.
const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// ListFilter selects incidents for a paginated listing. Zero values mean
// "no constraint". Pagination is 1-indexed.
type ListFilter struct {
	Category Category
	Severity int
	Status   Status
	Page     int
	Limit    int
	Geo      *GeoFilter
}

// Normalize clamps the page window so out-of-range values fall back to the
// defaults. Both the service and the pagination response use the same clamp.
func (f *ListFilter) Normalize() {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 || f.Limit > MaxPageLimit {
		f.Limit = DefaultPageLimit
	}
}

// GeoFilter restricts results to within RadiusMeters of a point; matching
// incidents are returned nearest first.
type GeoFilter struct {
	Latitude     float64
	Longitude    float64
	RadiusMeters float64
}
