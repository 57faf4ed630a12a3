package service

import (
	"fmt"

	"github.com/dzsentinel/incident_reporting_system/internal/models"
)

// validateIncident checks the invariants every stored incident must satisfy.
// Violations are reported as models.ErrValidation.
func validateIncident(incident *models.Incident) error {
	if incident.Title == "" {
		return fmt.Errorf("%w: title is required", models.ErrValidation)
	}
	if incident.Description == "" {
		return fmt.Errorf("%w: description is required", models.ErrValidation)
	}
	if incident.Address == "" {
		return fmt.Errorf("%w: address is required", models.ErrValidation)
	}
	if !incident.Category.IsValid() {
		return fmt.Errorf("%w: unknown category %q", models.ErrValidation, incident.Category)
	}
	if incident.Severity < models.SeverityLow || incident.Severity > models.SeverityEmergency {
		return fmt.Errorf("%w: severity must be between 1 and 5, got %d", models.ErrValidation, incident.Severity)
	}
	if !incident.Status.IsValid() {
		return fmt.Errorf("%w: unknown status %q", models.ErrValidation, incident.Status)
	}
	if incident.Latitude < -90 || incident.Latitude > 90 {
		return fmt.Errorf("%w: latitude out of range: %f", models.ErrValidation, incident.Latitude)
	}
	if incident.Longitude < -180 || incident.Longitude > 180 {
		return fmt.Errorf("%w: longitude out of range: %f", models.ErrValidation, incident.Longitude)
	}
	if len(incident.Photos) > models.MaxPhotos {
		return fmt.Errorf("%w: at most %d photos allowed", models.ErrValidation, models.MaxPhotos)
	}
	if incident.EstimatedAffectedPeople != nil && *incident.EstimatedAffectedPeople < 0 {
		return fmt.Errorf("%w: estimated affected people must be non-negative", models.ErrValidation)
	}
	return nil
}

// applyPatch copies the patch's non-nil fields onto the incident.
func applyPatch(incident *models.Incident, patch models.IncidentPatch) {
	if patch.Title != nil {
		incident.Title = *patch.Title
	}
	if patch.Description != nil {
		incident.Description = *patch.Description
	}
	if patch.Category != nil {
		incident.Category = *patch.Category
	}
	if patch.Severity != nil {
		incident.Severity = *patch.Severity
	}
	if patch.Status != nil {
		incident.Status = *patch.Status
	}
	if patch.Latitude != nil {
		incident.Latitude = *patch.Latitude
	}
	if patch.Longitude != nil {
		incident.Longitude = *patch.Longitude
	}
	if patch.Address != nil {
		incident.Address = *patch.Address
	}
	if patch.Photos != nil {
		incident.Photos = patch.Photos
	}
	if patch.Tags != nil {
		incident.Tags = patch.Tags
	}
	if patch.EstimatedAffectedPeople != nil {
		incident.EstimatedAffectedPeople = patch.EstimatedAffectedPeople
	}
}
