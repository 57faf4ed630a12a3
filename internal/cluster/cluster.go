// Package cluster groups incidents into proximity clusters for map density
// views. Clusters are advisory and recomputed from a point-in-time snapshot;
// a stale snapshot is acceptable.
package cluster

import (
	"github.com/google/uuid"

	"github.com/dzsentinel/incident_reporting_system/internal/geo"
	"github.com/dzsentinel/incident_reporting_system/internal/models"
)

// DefaultRadiusKm is the clustering radius used when the caller passes a
// non-positive radius.
const DefaultRadiusKm = 10

// Build runs one greedy single-pass clustering over the incidents, in input
// order. Each unprocessed incident seeds a candidate cluster at its own
// coordinate; every other unprocessed incident closer than radiusKm to the
// seed joins it. Only clusters with two or more members are emitted.
//
// Membership is deliberately order-dependent: a member needs only to be
// within radius of the seed, not of every other member, so reordering the
// input can regroup incidents. Callers wanting identical output across runs
// must feed the same ordered snapshot. The scan is O(n^2) distance
// evaluations and is intended for small batches; pre-bucket by grid before
// calling it at larger scales.
func Build(incidents []*models.Incident, radiusKm float64) []*models.Cluster {
	if radiusKm <= 0 {
		radiusKm = DefaultRadiusKm
	}

	clusters := make([]*models.Cluster, 0)
	processed := make(map[int]struct{}, len(incidents))

	for i, seed := range incidents {
		if _, done := processed[i]; done {
			continue
		}

		c := &models.Cluster{
			CenterLatitude:  seed.Latitude,
			CenterLongitude: seed.Longitude,
			Severity:        seed.Severity,
			IncidentIDs:     []uuid.UUID{seed.ID},
		}

		for j, other := range incidents {
			if j == i {
				continue
			}
			if _, done := processed[j]; done {
				continue
			}
			d := geo.Distance(seed.Latitude, seed.Longitude, other.Latitude, other.Longitude)
			if d < radiusKm {
				c.IncidentIDs = append(c.IncidentIDs, other.ID)
				if other.Severity > c.Severity {
					c.Severity = other.Severity
				}
				processed[j] = struct{}{}
			}
		}

		processed[i] = struct{}{}

		// Singletons are not clusters.
		if len(c.IncidentIDs) >= 2 {
			clusters = append(clusters, c)
		}
	}

	return clusters
}
