package models

import "github.com/google/uuid"

// Cluster is an ephemeral proximity grouping of incidents, recomputed on
// demand and never persisted. Its center is the coordinate of the incident
// that seeded the cluster and its severity is the maximum severity among
// members. A cluster always has at least two members.
type Cluster struct {
	CenterLatitude  float64     `json:"center_latitude"`
	CenterLongitude float64     `json:"center_longitude"`
	Severity        int         `json:"severity"`
	IncidentIDs     []uuid.UUID `json:"incident_ids"`
}

// Size returns the number of member incidents.
func (c *Cluster) Size() int {
	return len(c.IncidentIDs)
}

// Statistics is the aggregate view served by the statistics endpoint.
type Statistics struct {
	TotalIncidents      int              `json:"total_incidents"`
	ActiveIncidents     int              `json:"active_incidents"`
	ResolvedIncidents   int              `json:"resolved_incidents"`
	IncidentsByCategory map[Category]int `json:"incidents_by_category"`
	IncidentsBySeverity map[int]int      `json:"incidents_by_severity"`
	RecentIncidents     []*Incident      `json:"recent_incidents"`
}
