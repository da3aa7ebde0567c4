package mysql

import (
	"encoding/json"

	"loanpilot/internal/model"
)

// ToApplicationDomain converts MySQL Application to domain Application model
func ToApplicationDomain(row *Application) *model.Application {
	if row == nil {
		return nil
	}

	return &model.Application{
		ID:             row.ApplicationID,
		Profile:        profileFromJSONMap(row.Profile),
		Status:         model.ApplicationStatus(row.Status),
		SanctionAmount: row.SanctionAmount,
		Error:          row.Error,
		CreatedAt:      row.CreatedAt,
		UpdatedAt:      row.UpdatedAt,
		ScoredAt:       row.ScoredAt,
	}
}

// FromApplicationDomain converts domain Application model to MySQL Application
func FromApplicationDomain(app *model.Application) *Application {
	if app == nil {
		return nil
	}

	return &Application{
		ApplicationID:  app.ID,
		Profile:        profileToJSONMap(&app.Profile),
		Status:         string(app.Status),
		SanctionAmount: app.SanctionAmount,
		Error:          app.Error,
		CreatedAt:      app.CreatedAt,
		UpdatedAt:      app.UpdatedAt,
		ScoredAt:       app.ScoredAt,
	}
}

// ToReleaseDomain converts MySQL Release to domain Release model
func ToReleaseDomain(row *Release) *model.Release {
	if row == nil {
		return nil
	}

	return &model.Release{
		ID:        row.ReleaseID,
		Name:      row.Name,
		Image:     row.Image,
		Replicas:  row.Replicas,
		Status:    model.ReleaseStatus(row.Status),
		Message:   row.Message,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}

// FromReleaseDomain converts domain Release model to MySQL Release
func FromReleaseDomain(release *model.Release) *Release {
	if release == nil {
		return nil
	}

	return &Release{
		ReleaseID: release.ID,
		Name:      release.Name,
		Image:     release.Image,
		Replicas:  release.Replicas,
		Status:    string(release.Status),
		Message:   release.Message,
		CreatedAt: release.CreatedAt,
		UpdatedAt: release.UpdatedAt,
	}
}

// profileToJSONMap flattens the profile struct through its JSON form so
// the column holds the same field names the API uses.
func profileToJSONMap(p *model.ApplicantProfile) JSONMap {
	data, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	m := make(JSONMap)
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func profileFromJSONMap(m JSONMap) model.ApplicantProfile {
	var p model.ApplicantProfile
	if m == nil {
		return p
	}
	data, err := json.Marshal(m)
	if err != nil {
		return p
	}
	_ = json.Unmarshal(data, &p)
	return p
}
