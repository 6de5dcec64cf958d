package api

import (
	"net/http"
	"strconv"

	"github.com/starford/techtrack/internal/models"
)

func settingsResponse(st models.Settings, r *http.Request) SettingsResponse {
	dark, _ := strconv.ParseBool(r.URL.Query().Get("systemDark"))
	return SettingsResponse{Settings: st, EffectiveTheme: st.EffectiveTheme(dark)}
}

// GetSettings handles GET /api/settings.
//
//	@Summary		Current settings
//	@Tags			settings
//	@Produce		json
//	@Param			systemDark	query		bool	false	"Host prefers a dark colour scheme"
//	@Success		200			{object}	SettingsResponse
//	@Security		BearerAuth
//	@Router			/settings [get]
func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, settingsResponse(h.svc.Settings().Get(), r))
}

// UpdateSettings handles PATCH /api/settings.
//
//	@Summary		Change one or more settings
//	@Description	Either every key is applied or none is.
//	@Tags			settings
//	@Accept			json
//	@Produce		json
//	@Param			body		body		object	true	"Keys to change: theme, language, notifications, autoSave"
//	@Param			systemDark	query		bool	false	"Host prefers a dark colour scheme"
//	@Success		200			{object}	SettingsResponse
//	@Failure		400			{object}	errResponse
//	@Failure		507			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/settings [patch]
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req map[string]any
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.Settings().Update(req); err != nil {
		writeError(w, h.logger, "update settings", err, settingsResponse(h.svc.Settings().Get(), r))
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse(h.svc.Settings().Get(), r))
}

// ResetSettings handles POST /api/settings/reset.
//
//	@Summary		Restore default settings
//	@Tags			settings
//	@Produce		json
//	@Success		200	{object}	SettingsResponse
//	@Security		BearerAuth
//	@Router			/settings/reset [post]
func (h *Handler) ResetSettings(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Settings().ResetToDefaults(); err != nil {
		writeError(w, h.logger, "reset settings", err, settingsResponse(h.svc.Settings().Get(), r))
		return
	}
	writeJSON(w, http.StatusOK, settingsResponse(h.svc.Settings().Get(), r))
}
