package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/dzsentinel/incident_reporting_system/internal/config"
	"github.com/dzsentinel/incident_reporting_system/internal/events"
	"github.com/dzsentinel/incident_reporting_system/internal/models"
	"github.com/dzsentinel/incident_reporting_system/internal/service/mocks"
)

// fakeStream replays a fixed set of events to SSE subscribers.
type fakeStream struct {
	events []events.Event
}

func (f *fakeStream) Subscribe(_ context.Context) (<-chan events.Event, func() error) {
	out := make(chan events.Event, len(f.events))
	for _, event := range f.events {
		out <- event
	}
	close(out)
	return out, func() error { return nil }
}

// newTestHandler creates a Handler instance with a mocked service.
func newTestHandler(t *testing.T, stream events.Stream) (*mocks.MockIncidentService, *gin.Engine) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockIncidentService(ctrl)

	logger := logrus.New()
	logger.SetOutput(io.Discard) // Silence logs in tests

	cfg := &config.Config{
		ClusterRadiusKm:           10,
		NearbyDefaultRadiusMeters: 5000,
	}

	handler := NewHandler(mockService, stream, logger, cfg)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api, logger)

	return mockService, router
}

// identityHeaders returns the caller identity headers mutating routes require.
func identityHeaders(userID uuid.UUID, role models.Role) map[string]string {
	return map[string]string{
		headerUserID:   userID.String(),
		headerUserRole: string(role),
	}
}

// makeRequest is a helper that performs an HTTP request against the router.
func makeRequest(router *gin.Engine, method, url string, body io.Reader, headers ...map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, url, body)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, h := range headers {
		for key, value := range h {
			req.Header.Set(key, value)
		}
	}
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func floatPtr(v float64) *float64 { return &v }

func validCreateRequest() CreateIncidentRequest {
	return CreateIncidentRequest{
		Title:       "Fire near the central market",
		Description: "Smoke visible from several blocks away",
		Category:    "fire",
		Severity:    4,
		Latitude:    floatPtr(36.7538),
		Longitude:   floatPtr(3.0588),
		Address:     "Central market, Algiers",
	}
}

func TestCreateIncident_Success(t *testing.T) {
	mockService, router := newTestHandler(t, nil)
	reporterID := uuid.New()
	incidentID := uuid.New()
	reqBody := validCreateRequest()

	mockService.EXPECT().
		CreateIncident(gomock.Any(), gomock.Any(), reporterID).
		DoAndReturn(func(_ context.Context, incident *models.Incident, _ uuid.UUID) (*models.Incident, error) {
			incident.ID = incidentID
			incident.ReporterID = reporterID
			incident.Status = models.StatusReported
			return incident, nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes),
		identityHeaders(reporterID, models.RoleCitizen))

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, incidentID, resp.ID)
	assert.Equal(t, reqBody.Title, resp.Title)
	assert.Equal(t, "reported", resp.Status)
}

func TestCreateIncident_ZeroCoordinatesAccepted(t *testing.T) {
	mockService, router := newTestHandler(t, nil)
	reporterID := uuid.New()

	// A report on the equator/prime meridian crossing is a legitimate point.
	reqBody := validCreateRequest()
	reqBody.Latitude = floatPtr(0)
	reqBody.Longitude = floatPtr(0)

	mockService.EXPECT().
		CreateIncident(gomock.Any(), gomock.Any(), reporterID).
		DoAndReturn(func(_ context.Context, incident *models.Incident, _ uuid.UUID) (*models.Incident, error) {
			assert.Zero(t, incident.Latitude)
			assert.Zero(t, incident.Longitude)
			incident.ID = uuid.New()
			incident.Status = models.StatusReported
			return incident, nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes),
		identityHeaders(reporterID, models.RoleCitizen))

	assert.Equal(t, http.StatusCreated, w.Code)
}

func TestCreateIncident_MissingCoordinates(t *testing.T) {
	mockService, router := newTestHandler(t, nil)
	reqBody := validCreateRequest()
	reqBody.Longitude = nil

	mockService.EXPECT().CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes),
		identityHeaders(uuid.New(), models.RoleCitizen))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateIncident_MissingIdentityHeaders(t *testing.T) {
	mockService, router := newTestHandler(t, nil)

	mockService.EXPECT().CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(validCreateRequest())
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes))

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateIncident_InvalidRole(t *testing.T) {
	mockService, router := newTestHandler(t, nil)

	mockService.EXPECT().CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(validCreateRequest())
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes),
		map[string]string{headerUserID: uuid.NewString(), headerUserRole: "overlord"})

	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateIncident_InvalidJSON(t *testing.T) {
	mockService, router := newTestHandler(t, nil)

	mockService.EXPECT().CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBufferString(`{"title": "test"`),
		identityHeaders(uuid.New(), models.RoleCitizen))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestCreateIncident_ValidationError(t *testing.T) {
	mockService, router := newTestHandler(t, nil)
	reqBody := validCreateRequest()
	reqBody.Category = "meteor" // Unknown category

	mockService.EXPECT().CreateIncident(gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	bodyBytes, _ := json.Marshal(reqBody)
	w := makeRequest(router, "POST", "/api/v1/incidents", bytes.NewBuffer(bodyBytes),
		identityHeaders(uuid.New(), models.RoleCitizen))

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListIncidents_Success(t *testing.T) {
	mockService, router := newTestHandler(t, nil)
	incidents := []*models.Incident{
		{ID: uuid.New(), Title: "First", Status: models.StatusReported},
		{ID: uuid.New(), Title: "Second", Status: models.StatusVerified},
	}

	mockService.EXPECT().
		ListIncidents(gomock.Any(), models.ListFilter{
			Category: models.CategoryFlood,
			Status:   models.StatusReported,
			Page:     2,
			Limit:    10,
		}).
		Return(incidents, 25, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents?page=2&limit=10&category=flood&status=reported", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp IncidentListResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp.Incidents, 2)
	assert.Equal(t, 25, resp.Pagination.Total)
	assert.Equal(t, 3, resp.Pagination.TotalPages)
	assert.Equal(t, 2, resp.Pagination.Page)
}

func TestListIncidents_GeoFilterDefaultRadius(t *testing.T) {
	mockService, router := newTestHandler(t, nil)

	mockService.EXPECT().
		ListIncidents(gomock.Any(), models.ListFilter{
			Page:  1,
			Limit: 10,
			Geo:   &models.GeoFilter{Latitude: 36.75, Longitude: 3.06, RadiusMeters: 5000},
		}).
		Return(nil, 0, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents?lat=36.75&lng=3.06", nil)

	assert.Equal(t, http.StatusOK, w.Code)
}

func TestFindNearby_Success(t *testing.T) {
	mockService, router := newTestHandler(t, nil)
	incidents := []*models.Incident{{ID: uuid.New(), Title: "Close by"}}

	mockService.EXPECT().
		FindNearby(gomock.Any(), 36.75, 3.06, float64(2000)).
		Return(incidents, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/nearby?lat=36.75&lng=3.06&radius=2000", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []*IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Len(t, resp, 1)
}

func TestFindNearby_MissingCoordinates(t *testing.T) {
	mockService, router := newTestHandler(t, nil)

	mockService.EXPECT().FindNearby(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/incidents/nearby?lat=36.75", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetIncident_Success(t *testing.T) {
	mockService, router := newTestHandler(t, nil)
	incidentID := uuid.New()
	incident := &models.Incident{ID: incidentID, Title: "Found", Status: models.StatusReported}

	mockService.EXPECT().
		GetIncident(gomock.Any(), incidentID).
		Return(incident, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/"+incidentID.String(), nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, incidentID, resp.ID)
}

func TestGetIncident_InvalidID(t *testing.T) {
	mockService, router := newTestHandler(t, nil)

	mockService.EXPECT().GetIncident(gomock.Any(), gomock.Any()).Times(0)

	w := makeRequest(router, "GET", "/api/v1/incidents/not-a-uuid", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid incident ID")
}

func TestGetIncident_NotFound(t *testing.T) {
	mockService, router := newTestHandler(t, nil)
	incidentID := uuid.New()

	mockService.EXPECT().
		GetIncident(gomock.Any(), incidentID).
		Return(nil, fmt.Errorf("service: %w", models.ErrNotFound)).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/"+incidentID.String(), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestUpdateIncident_Success(t *testing.T) {
	mockService, router := newTestHandler(t, nil)
	incidentID := uuid.New()
	callerID := uuid.New()
	newTitle := "Updated title"
	updated := &models.Incident{ID: incidentID, Title: newTitle, Status: models.StatusReported}

	mockService.EXPECT().
		UpdateIncident(gomock.Any(), incidentID, gomock.Any(), callerID, models.RoleGovernment).
		DoAndReturn(func(_ context.Context, _ uuid.UUID, patch models.IncidentPatch, _ uuid.UUID, _ models.Role) (*models.Incident, error) {
			require.NotNil(t, patch.Title)
			assert.Equal(t, newTitle, *patch.Title)
			return updated, nil
		}).Times(1)

	bodyBytes, _ := json.Marshal(UpdateIncidentRequest{Title: &newTitle})
	w := makeRequest(router, "PATCH", "/api/v1/incidents/"+incidentID.String(), bytes.NewBuffer(bodyBytes),
		identityHeaders(callerID, models.RoleGovernment))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, newTitle, resp.Title)
}

func TestUpdateIncident_Forbidden(t *testing.T) {
	mockService, router := newTestHandler(t, nil)
	incidentID := uuid.New()
	callerID := uuid.New()
	newTitle := "Not yours"

	mockService.EXPECT().
		UpdateIncident(gomock.Any(), incidentID, gomock.Any(), callerID, models.RoleCitizen).
		Return(nil, fmt.Errorf("service: %w", models.ErrForbidden)).
		Times(1)

	bodyBytes, _ := json.Marshal(UpdateIncidentRequest{Title: &newTitle})
	w := makeRequest(router, "PATCH", "/api/v1/incidents/"+incidentID.String(), bytes.NewBuffer(bodyBytes),
		identityHeaders(callerID, models.RoleCitizen))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestVerifyIncident_Success(t *testing.T) {
	mockService, router := newTestHandler(t, nil)
	incidentID := uuid.New()
	verifierID := uuid.New()
	verified := &models.Incident{ID: incidentID, Status: models.StatusVerified, IsVerified: true}

	mockService.EXPECT().
		VerifyIncident(gomock.Any(), incidentID, verifierID, models.RoleNGO).
		Return(verified, nil).
		Times(1)

	w := makeRequest(router, "PATCH", "/api/v1/incidents/"+incidentID.String()+"/verify", nil,
		identityHeaders(verifierID, models.RoleNGO))

	assert.Equal(t, http.StatusOK, w.Code)

	var resp IncidentResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.True(t, resp.IsVerified)
	assert.Equal(t, "verified", resp.Status)
}

func TestVerifyIncident_Forbidden(t *testing.T) {
	mockService, router := newTestHandler(t, nil)
	incidentID := uuid.New()
	callerID := uuid.New()

	mockService.EXPECT().
		VerifyIncident(gomock.Any(), incidentID, callerID, models.RoleCitizen).
		Return(nil, fmt.Errorf("service: %w", models.ErrForbidden)).
		Times(1)

	w := makeRequest(router, "PATCH", "/api/v1/incidents/"+incidentID.String()+"/verify", nil,
		identityHeaders(callerID, models.RoleCitizen))

	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestDeleteIncident_Success(t *testing.T) {
	mockService, router := newTestHandler(t, nil)
	incidentID := uuid.New()
	callerID := uuid.New()

	mockService.EXPECT().
		RemoveIncident(gomock.Any(), incidentID, callerID, models.RoleAdmin).
		Return(nil).
		Times(1)

	w := makeRequest(router, "DELETE", "/api/v1/incidents/"+incidentID.String(), nil,
		identityHeaders(callerID, models.RoleAdmin))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Empty(t, w.Body.String())
}

func TestDeleteIncident_NotFound(t *testing.T) {
	mockService, router := newTestHandler(t, nil)
	incidentID := uuid.New()
	callerID := uuid.New()

	mockService.EXPECT().
		RemoveIncident(gomock.Any(), incidentID, callerID, models.RoleAdmin).
		Return(fmt.Errorf("service: %w", models.ErrNotFound)).
		Times(1)

	w := makeRequest(router, "DELETE", "/api/v1/incidents/"+incidentID.String(), nil,
		identityHeaders(callerID, models.RoleAdmin))

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetStatistics_Success(t *testing.T) {
	mockService, router := newTestHandler(t, nil)
	stats := &models.Statistics{
		TotalIncidents:      10,
		ActiveIncidents:     6,
		ResolvedIncidents:   4,
		IncidentsByCategory: map[models.Category]int{models.CategoryFire: 3},
		IncidentsBySeverity: map[int]int{4: 2},
		RecentIncidents:     []*models.Incident{{ID: uuid.New(), Title: "Recent"}},
	}

	mockService.EXPECT().
		GetStatistics(gomock.Any()).
		Return(stats, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/statistics", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp StatisticsResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 10, resp.TotalIncidents)
	assert.Equal(t, 3, resp.IncidentsByCategory["fire"])
	assert.Len(t, resp.RecentIncidents, 1)
}

func TestGetClusters_Success(t *testing.T) {
	mockService, router := newTestHandler(t, nil)
	clusters := []*models.Cluster{
		{CenterLatitude: 36.75, CenterLongitude: 3.06, Severity: 4, IncidentIDs: []uuid.UUID{uuid.New(), uuid.New()}},
	}

	mockService.EXPECT().
		GetClusters(gomock.Any(), float64(25)).
		Return(clusters, nil).
		Times(1)

	w := makeRequest(router, "GET", "/api/v1/incidents/clusters?radius_km=25", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var resp []*ClusterResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, 2, resp[0].Size)
}

// closeNotifyRecorder adds the CloseNotifier contract gin's SSE streaming
// expects but httptest.ResponseRecorder lacks.
type closeNotifyRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func newCloseNotifyRecorder() *closeNotifyRecorder {
	return &closeNotifyRecorder{httptest.NewRecorder(), make(chan bool, 1)}
}

func (r *closeNotifyRecorder) CloseNotify() <-chan bool {
	return r.closed
}

func TestStreamEvents_ReplaysLifecycleEvents(t *testing.T) {
	stream := &fakeStream{events: []events.Event{
		{Type: events.TypeIncidentCreated, UserID: uuid.NewString()},
		{Type: events.TypeIncidentDeleted, IncidentID: uuid.NewString()},
	}}
	_, router := newTestHandler(t, stream)

	req := httptest.NewRequest("GET", "/api/v1/notifications/stream", nil)
	w := newCloseNotifyRecorder()
	router.ServeHTTP(w, req)

	body := w.Body.String()
	assert.Contains(t, body, "event:incident.created")
	assert.Contains(t, body, "event:incident.deleted")
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
}

func TestAPIKeyGate(t *testing.T) {
	ctrl := gomock.NewController(t)
	mockService := mocks.NewMockIncidentService(ctrl)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := &config.Config{
		APIKeys:                   []string{"service-key"},
		ClusterRadiusKm:           10,
		NearbyDefaultRadiusMeters: 5000,
	}
	handler := NewHandler(mockService, nil, logger, cfg)

	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler.RegisterRoutes(router.Group("/api/v1"), logger)

	// Without a key
	w := makeRequest(router, "GET", "/api/v1/incidents/statistics", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// With the key
	mockService.EXPECT().GetStatistics(gomock.Any()).Return(&models.Statistics{}, nil).Times(1)
	w = makeRequest(router, "GET", "/api/v1/incidents/statistics", nil, map[string]string{"X-API-Key": "service-key"})
	assert.Equal(t, http.StatusOK, w.Code)

	// Bearer form is accepted too
	mockService.EXPECT().GetStatistics(gomock.Any()).Return(&models.Statistics{}, nil).Times(1)
	w = makeRequest(router, "GET", "/api/v1/incidents/statistics", nil, map[string]string{"Authorization": "Bearer service-key"})
	assert.Equal(t, http.StatusOK, w.Code)

	// The health probe stays open
	w = makeRequest(router, "GET", "/api/v1/system/health", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHealthCheck(t *testing.T) {
	_, router := newTestHandler(t, nil)

	w := makeRequest(router, "GET", "/api/v1/system/health", nil)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")
}
