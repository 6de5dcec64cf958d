package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/starford/techtrack/internal/models"
	"github.com/starford/techtrack/internal/session"
	"github.com/starford/techtrack/internal/techservice"
	"github.com/starford/techtrack/internal/tracker"
)

// Handler holds API route handlers.
type Handler struct {
	svc     *techservice.Service
	session *session.Gate
	logger  *slog.Logger
}

// NewHandler creates a new Handler.
func NewHandler(svc *techservice.Service, gate *session.Gate, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{svc: svc, session: gate, logger: logger}
}

// technologyID parses the {id} URL parameter, writing a 400 when it is not
// a positive integer.
func technologyID(w http.ResponseWriter, r *http.Request) (models.ID, bool) {
	id, ok := models.ParseID(chi.URLParam(r, "id"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody("invalid id"))
	}
	return id, ok
}

// ListTechnologies handles GET /api/technologies.
//
//	@Summary		List technologies with optional filtering
//	@Tags			technologies
//	@Produce		json
//	@Param			status		query		string	false	"Filter by status"	Enums(not-started, in-progress, completed)
//	@Param			category	query		string	false	"Filter by category"
//	@Param			q			query		string	false	"Case-insensitive text in title or description"
//	@Success		200			{object}	TechnologyListResponse
//	@Failure		400			{object}	errResponse
//	@Security		BearerAuth
//	@Router			/technologies [get]
func (h *Handler) ListTechnologies(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := tracker.FilterOptions{
		Status:   models.Status(q.Get("status")),
		Category: models.Category(q.Get("category")),
		Query:    q.Get("q"),
	}
	if opts.Status != "" && !opts.Status.Valid() {
		writeJSON(w, http.StatusBadRequest, errorBody("unknown status "+string(opts.Status)))
		return
	}
	items := h.svc.Tracker().Filter(opts)
	writeJSON(w, http.StatusOK, TechnologyListResponse{Technologies: items, Total: len(items)})
}

// GetTechnology handles GET /api/technologies/{id}.
//
//	@Summary		Get a single technology
//	@Tags			technologies
//	@Produce		json
//	@Param			id	path		int	true	"Technology id"
//	@Success		200	{object}	Technology
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/technologies/{id} [get]
func (h *Handler) GetTechnology(w http.ResponseWriter, r *http.Request) {
	id, ok := technologyID(w, r)
	if !ok {
		return
	}
	t, err := h.svc.Tracker().Get(id)
	if err != nil {
		writeError(w, h.logger, "get technology", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CreateTechnology handles POST /api/technologies.
//
//	@Summary		Add a technology
//	@Tags			technologies
//	@Accept			json
//	@Produce		json
//	@Param			body	body		CreateTechnologyRequest	true	"Technology to add"
//	@Success		201		{object}	Technology
//	@Failure		400		{object}	errResponse
//	@Failure		507		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/technologies [post]
func (h *Handler) CreateTechnology(w http.ResponseWriter, r *http.Request) {
	var req CreateTechnologyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := h.svc.Tracker().Add(req)
	if err != nil {
		writeError(w, h.logger, "create technology", err, t)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

// UpdateTechnology handles PATCH /api/technologies/{id}.
//
//	@Summary		Update some fields of a technology
//	@Tags			technologies
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int						true	"Technology id"
//	@Param			body	body		UpdateTechnologyRequest	true	"Fields to change"
//	@Success		200		{object}	Technology
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Failure		507		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/technologies/{id} [patch]
func (h *Handler) UpdateTechnology(w http.ResponseWriter, r *http.Request) {
	id, ok := technologyID(w, r)
	if !ok {
		return
	}
	var req UpdateTechnologyRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if err := h.svc.Tracker().UpdateField(id, req); err != nil {
		t, _ := h.svc.Tracker().Get(id)
		writeError(w, h.logger, "update technology", err, t)
		return
	}
	t, err := h.svc.Tracker().Get(id)
	if err != nil {
		// Deleted by another writer in between.
		writeError(w, h.logger, "update technology", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// DeleteTechnology handles DELETE /api/technologies/{id}.
//
//	@Summary		Delete a technology
//	@Tags			technologies
//	@Param			id	path	int	true	"Technology id"
//	@Success		204
//	@Failure		507	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/technologies/{id} [delete]
func (h *Handler) DeleteTechnology(w http.ResponseWriter, r *http.Request) {
	id, ok := technologyID(w, r)
	if !ok {
		return
	}
	if err := h.svc.Tracker().Delete(id); err != nil {
		writeError(w, h.logger, "delete technology", err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetStatus handles PUT /api/technologies/{id}/status.
//
//	@Summary		Set the status of a technology
//	@Tags			technologies
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int				true	"Technology id"
//	@Param			body	body		StatusRequest	true	"New status"
//	@Success		200		{object}	StatusResponse
//	@Failure		400		{object}	errResponse
//	@Failure		404		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/technologies/{id}/status [put]
func (h *Handler) SetStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := technologyID(w, r)
	if !ok {
		return
	}
	var req StatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	resp := StatusResponse{ID: id, Status: req.Status}
	if err := h.svc.Tracker().UpdateStatus(id, req.Status); err != nil {
		writeError(w, h.logger, "set status", err, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// CycleStatus handles POST /api/technologies/{id}/cycle.
//
//	@Summary		Advance a technology to the next status
//	@Description	not-started, in-progress and completed follow each other in a loop.
//	@Tags			technologies
//	@Produce		json
//	@Param			id	path		int	true	"Technology id"
//	@Success		200	{object}	StatusResponse
//	@Failure		404	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/technologies/{id}/cycle [post]
func (h *Handler) CycleStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := technologyID(w, r)
	if !ok {
		return
	}
	next, err := h.svc.Tracker().CycleStatus(id)
	resp := StatusResponse{ID: id, Status: next}
	if err != nil {
		writeError(w, h.logger, "cycle status", err, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// BulkStatus handles POST /api/technologies/bulk-status.
//
//	@Summary		Set one status on many technologies
//	@Tags			technologies
//	@Accept			json
//	@Produce		json
//	@Param			body	body		BulkStatusRequest	true	"Ids and status"
//	@Success		200		{object}	UpdatedResponse
//	@Failure		400		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/technologies/bulk-status [post]
func (h *Handler) BulkStatus(w http.ResponseWriter, r *http.Request) {
	var req BulkStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := h.svc.Tracker().BulkUpdateStatus(req.IDs, req.Status)
	h.writeUpdated(w, "bulk status", n, err)
}

// CompleteAll handles POST /api/technologies/complete-all.
//
//	@Summary		Mark every technology completed
//	@Tags			technologies
//	@Produce		json
//	@Success		200	{object}	UpdatedResponse
//	@Security		BearerAuth
//	@Router			/technologies/complete-all [post]
func (h *Handler) CompleteAll(w http.ResponseWriter, _ *http.Request) {
	n, err := h.svc.Tracker().MarkAllCompleted()
	h.writeUpdated(w, "complete all", n, err)
}

// ResetStatuses handles POST /api/technologies/reset-statuses.
//
//	@Summary		Move every technology back to not-started
//	@Tags			technologies
//	@Produce		json
//	@Success		200	{object}	UpdatedResponse
//	@Security		BearerAuth
//	@Router			/technologies/reset-statuses [post]
func (h *Handler) ResetStatuses(w http.ResponseWriter, _ *http.Request) {
	n, err := h.svc.Tracker().ResetAllStatuses()
	h.writeUpdated(w, "reset statuses", n, err)
}

func (h *Handler) writeUpdated(w http.ResponseWriter, op string, n int, err error) {
	if err != nil {
		writeError(w, h.logger, op, err, UpdatedResponse{Updated: n})
		return
	}
	writeJSON(w, http.StatusOK, UpdatedResponse{Updated: n})
}

// StartRandom handles POST /api/technologies/start-random.
//
//	@Summary		Start a random not-started technology
//	@Tags			technologies
//	@Produce		json
//	@Success		200	{object}	StartRandomResponse
//	@Security		BearerAuth
//	@Router			/technologies/start-random [post]
func (h *Handler) StartRandom(w http.ResponseWriter, _ *http.Request) {
	t, started, err := h.svc.Tracker().StartRandom()
	resp := StartRandomResponse{Started: started}
	if started {
		resp.Technology = &t
	}
	if err != nil {
		writeError(w, h.logger, "start random", err, resp)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Stats handles GET /api/stats.
//
//	@Summary		Progress statistics
//	@Tags			technologies
//	@Produce		json
//	@Success		200	{object}	Statistics
//	@Security		BearerAuth
//	@Router			/stats [get]
func (h *Handler) Stats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.Tracker().Stats())
}

// Export handles GET /api/export.
//
//	@Summary		Download the collection and settings as JSON
//	@Tags			data
//	@Produce		json
//	@Success		200	{file}	file
//	@Security		BearerAuth
//	@Router			/export [get]
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Export(r.Context())
	if err != nil {
		writeError(w, h.logger, "export", err, nil)
		return
	}
	name := fmt.Sprintf("technologies_%s.json", time.Now().UTC().Format(time.DateOnly))
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Import handles POST /api/import.
//
//	@Summary		Replace the collection from an exported document
//	@Description	Accepts a bare array of technologies or an object with a technologies field and optional settings.
//	@Tags			data
//	@Accept			json
//	@Produce		json
//	@Success		200	{object}	ImportResponse
//	@Failure		400	{object}	errResponse
//	@Failure		413	{object}	errResponse
//	@Failure		507	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/import [post]
func (h *Handler) Import(w http.ResponseWriter, r *http.Request) {
	// One byte over the limit is let through so the codec can report it.
	r.Body = http.MaxBytesReader(w, r.Body, h.svc.Codec().MaxBytes()+1)
	res, err := h.svc.Import(r.Context(), r.Body)
	if err != nil {
		writeError(w, h.logger, "import", err, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ClearData handles POST /api/data/clear.
//
//	@Summary		Restore the seeded collection and default settings
//	@Tags			data
//	@Success		204
//	@Failure		507	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/data/clear [post]
func (h *Handler) ClearData(w http.ResponseWriter, _ *http.Request) {
	if err := h.svc.ClearAll(); err != nil {
		writeError(w, h.logger, "clear data", err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
