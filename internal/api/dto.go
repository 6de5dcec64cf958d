package api

import (
	"github.com/starford/techtrack/internal/models"
	"github.com/starford/techtrack/internal/session"
	"github.com/starford/techtrack/internal/techservice"
	"github.com/starford/techtrack/internal/tracker"
)

// Technology is the technology response type (aliased from the domain layer).
type Technology = models.Technology

// CreateTechnologyRequest is the request body for adding a technology.
type CreateTechnologyRequest = models.Draft

// UpdateTechnologyRequest is a partial update; omitted fields are kept.
type UpdateTechnologyRequest = models.Patch

// Statistics is the progress summary (aliased from the domain layer).
type Statistics = tracker.Statistics

// ImportResponse is returned after a successful import.
type ImportResponse = techservice.ImportResult

// SessionResponse reports the sign-in state.
type SessionResponse = session.State

// TechnologyListResponse wraps technology listings.
type TechnologyListResponse struct {
	Technologies []Technology `json:"technologies" validate:"required"`
	Total        int          `json:"total" example:"12" validate:"required"`
}

// StatusRequest is the request body for setting one status.
type StatusRequest struct {
	Status models.Status `json:"status" example:"in-progress" validate:"required"`
}

// StatusResponse reports the status a technology ended up with.
type StatusResponse struct {
	ID     models.ID     `json:"id" example:"1718000000000" validate:"required"`
	Status models.Status `json:"status" example:"completed" validate:"required"`
}

// BulkStatusRequest is the request body for a bulk status change.
type BulkStatusRequest struct {
	IDs    []models.ID   `json:"ids" validate:"required"`
	Status models.Status `json:"status" example:"completed" validate:"required"`
}

// UpdatedResponse reports how many technologies a bulk change touched.
type UpdatedResponse struct {
	Updated int `json:"updated" example:"3" validate:"required"`
}

// StartRandomResponse reports the technology that was started, if any.
type StartRandomResponse struct {
	Started    bool        `json:"started" validate:"required"`
	Technology *Technology `json:"technology,omitempty"`
}

// SettingsResponse is the settings plus the theme that applies right now.
type SettingsResponse struct {
	models.Settings
	EffectiveTheme models.Theme `json:"effectiveTheme" example:"light" validate:"required"`
}

// CatalogResponse wraps catalog entries.
type CatalogResponse struct {
	Technologies []Technology `json:"technologies" validate:"required"`
}

// ResourcesResponse lists the resource links of a catalog entry.
type ResourcesResponse struct {
	Resources []string `json:"resources" validate:"required"`
}

// RoadmapImportResponse reports how many roadmap entries were added.
type RoadmapImportResponse struct {
	Added int `json:"added" example:"2" validate:"required"`
}

// LoginRequest is the request body for signing in.
type LoginRequest struct {
	Username string `json:"username" example:"admin" validate:"required"`
	Password string `json:"password" example:"password" validate:"required"`
}
