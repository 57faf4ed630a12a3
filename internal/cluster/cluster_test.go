package cluster

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/dzsentinel/incident_reporting_system/internal/models"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func incidentAt(lat, lon float64, severity int) *models.Incident {
	return &models.Incident{
		ID:        uuid.New(),
		Latitude:  lat,
		Longitude: lon,
		Severity:  severity,
	}
}

func TestBuild_GroupsNearbyIncidents(t *testing.T) {
	// Two incidents about 3 km apart in Algiers, one far away in Constantine.
	a := incidentAt(36.7538, 3.0588, models.SeverityCritical)
	b := incidentAt(36.7800, 3.0650, models.SeverityEmergency)
	far := incidentAt(36.3650, 6.6147, models.SeverityMedium)

	clusters := Build([]*models.Incident{a, b, far}, 10)

	require.Len(t, clusters, 1)
	c := clusters[0]
	assert.Equal(t, a.Latitude, c.CenterLatitude)
	assert.Equal(t, a.Longitude, c.CenterLongitude)
	assert.Equal(t, models.SeverityEmergency, c.Severity)
	assert.ElementsMatch(t, []uuid.UUID{a.ID, b.ID}, c.IncidentIDs)
}

func TestBuild_SingletonsAreDropped(t *testing.T) {
	incidents := []*models.Incident{
		incidentAt(36.75, 3.05, 1),
		incidentAt(40.00, 10.00, 5),
		incidentAt(-20.00, 100.00, 3),
	}

	clusters := Build(incidents, 10)
	assert.Empty(t, clusters)
}

func TestBuild_NoClusterSmallerThanTwo(t *testing.T) {
	// A mixed batch: a dense pocket plus scattered outliers.
	incidents := []*models.Incident{
		incidentAt(36.75, 3.05, 2),
		incidentAt(36.76, 3.06, 4),
		incidentAt(36.77, 3.04, 1),
		incidentAt(10.00, 10.00, 5),
		incidentAt(-36.75, -3.05, 3),
	}

	for _, c := range Build(incidents, 10) {
		assert.GreaterOrEqual(t, c.Size(), 2)
	}
}

func TestBuild_SeverityIsMaxOfMembers(t *testing.T) {
	incidents := []*models.Incident{
		incidentAt(36.75, 3.05, 1),
		incidentAt(36.76, 3.06, 5),
		incidentAt(36.77, 3.04, 3),
	}

	clusters := Build(incidents, 10)
	require.Len(t, clusters, 1)
	assert.Equal(t, 5, clusters[0].Severity)
}

func TestBuild_DeterministicForFixedOrder(t *testing.T) {
	incidents := []*models.Incident{
		incidentAt(36.75, 3.05, 2),
		incidentAt(36.76, 3.06, 4),
		incidentAt(36.84, 3.10, 1),
		incidentAt(36.37, 6.61, 5),
		incidentAt(36.38, 6.62, 2),
	}

	first := Build(incidents, 10)
	second := Build(incidents, 10)
	assert.Equal(t, first, second)
}

func TestBuild_MembershipFollowsSeedOrder(t *testing.T) {
	// A chain a - b - c where b is within radius of both ends but a and c
	// are not within radius of each other. The seed decides the grouping:
	// with b first, all three land in one cluster; with a first, only b
	// joins and c is left as a dropped singleton.
	a := incidentAt(0, 0, 1)
	b := incidentAt(0, 0.08, 2) // ~8.9 km from both a and c
	c := incidentAt(0, 0.16, 3)

	seededAtB := Build([]*models.Incident{b, a, c}, 10)
	require.Len(t, seededAtB, 1)
	assert.Equal(t, 3, seededAtB[0].Size())

	seededAtA := Build([]*models.Incident{a, b, c}, 10)
	require.Len(t, seededAtA, 1)
	assert.Equal(t, 2, seededAtA[0].Size())
}

func TestBuild_NonPositiveRadiusFallsBackToDefault(t *testing.T) {
	incidents := []*models.Incident{
		incidentAt(36.75, 3.05, 1),
		incidentAt(36.76, 3.06, 2),
	}

	clusters := Build(incidents, 0)
	require.Len(t, clusters, 1)
}

func TestBuild_EmptyInput(t *testing.T) {
	assert.Empty(t, Build(nil, 10))
}

func TestRefresher_StartStop(t *testing.T) {
	var calls atomic.Int64
	refresh := func(ctx context.Context) error {
		calls.Add(1)
		return nil
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	r := NewRefresher("@every 1h", refresh, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, r.Start(ctx))
	r.Stop()

	// Start runs one warm-up refresh regardless of the schedule.
	assert.Equal(t, int64(1), calls.Load())
}

func TestRefresher_SurvivesRefreshError(t *testing.T) {
	var calls atomic.Int64
	refresh := func(ctx context.Context) error {
		calls.Add(1)
		return errors.New("cache unavailable")
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	r := NewRefresher("@every 10ms", refresh, logger)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, r.Start(ctx))
	time.Sleep(50 * time.Millisecond)
	r.Stop()

	assert.GreaterOrEqual(t, calls.Load(), int64(2))
}

func TestRefresher_InvalidSchedule(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	r := NewRefresher("not-a-schedule", func(ctx context.Context) error { return nil }, logger)
	err := r.Start(context.Background())
	assert.Error(t, err)
}
