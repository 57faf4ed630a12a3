package v1

import "github.com/dzsentinel/incident_reporting_system/internal/models"

// CreateDTOToIncidentModel converts a creation request into a domain model.
// The request must already be validated; the coordinate pointers are non-nil.
func CreateDTOToIncidentModel(dto CreateIncidentRequest) *models.Incident {
	return &models.Incident{
		Title:                   dto.Title,
		Description:             dto.Description,
		Category:                models.Category(dto.Category),
		Severity:                dto.Severity,
		Latitude:                *dto.Latitude,
		Longitude:               *dto.Longitude,
		Address:                 dto.Address,
		Photos:                  dto.Photos,
		Tags:                    dto.Tags,
		EstimatedAffectedPeople: dto.EstimatedAffectedPeople,
	}
}

// UpdateDTOToPatch converts an update request into a domain patch.
func UpdateDTOToPatch(dto UpdateIncidentRequest) models.IncidentPatch {
	patch := models.IncidentPatch{
		Title:                   dto.Title,
		Description:             dto.Description,
		Severity:                dto.Severity,
		Latitude:                dto.Latitude,
		Longitude:               dto.Longitude,
		Address:                 dto.Address,
		Photos:                  dto.Photos,
		Tags:                    dto.Tags,
		EstimatedAffectedPeople: dto.EstimatedAffectedPeople,
	}
	if dto.Category != nil {
		category := models.Category(*dto.Category)
		patch.Category = &category
	}
	if dto.Status != nil {
		status := models.Status(*dto.Status)
		patch.Status = &status
	}
	return patch
}

// ModelToIncidentResponse converts a domain model into a response DTO.
func ModelToIncidentResponse(model *models.Incident) *IncidentResponse {
	return &IncidentResponse{
		ID:                      model.ID,
		Title:                   model.Title,
		Description:             model.Description,
		Category:                string(model.Category),
		Severity:                model.Severity,
		Status:                  string(model.Status),
		ReporterID:              model.ReporterID,
		Latitude:                model.Latitude,
		Longitude:               model.Longitude,
		Address:                 model.Address,
		Photos:                  model.Photos,
		Tags:                    model.Tags,
		EstimatedAffectedPeople: model.EstimatedAffectedPeople,
		IsVerified:              model.IsVerified,
		VerifiedBy:              model.VerifiedBy,
		VerifiedAt:              model.VerifiedAt,
		CreatedAt:               model.CreatedAt,
		UpdatedAt:               model.UpdatedAt,
	}
}

// ModelsToIncidentResponses converts a slice of models into response DTOs.
func ModelsToIncidentResponses(models []*models.Incident) []*IncidentResponse {
	responses := make([]*IncidentResponse, len(models))
	for i, model := range models {
		responses[i] = ModelToIncidentResponse(model)
	}
	return responses
}

// ModelsToClusterResponses converts clusters into response DTOs.
func ModelsToClusterResponses(clusters []*models.Cluster) []*ClusterResponse {
	responses := make([]*ClusterResponse, len(clusters))
	for i, c := range clusters {
		responses[i] = &ClusterResponse{
			CenterLatitude:  c.CenterLatitude,
			CenterLongitude: c.CenterLongitude,
			Severity:        c.Severity,
			IncidentIDs:     c.IncidentIDs,
			Size:            c.Size(),
		}
	}
	return responses
}

// ModelToStatisticsResponse converts statistics into a response DTO.
func ModelToStatisticsResponse(stats *models.Statistics) *StatisticsResponse {
	byCategory := make(map[string]int, len(stats.IncidentsByCategory))
	for category, count := range stats.IncidentsByCategory {
		byCategory[string(category)] = count
	}
	return &StatisticsResponse{
		TotalIncidents:      stats.TotalIncidents,
		ActiveIncidents:     stats.ActiveIncidents,
		ResolvedIncidents:   stats.ResolvedIncidents,
		IncidentsByCategory: byCategory,
		IncidentsBySeverity: stats.IncidentsBySeverity,
		RecentIncidents:     ModelsToIncidentResponses(stats.RecentIncidents),
	}
}
