package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// SearchCatalog handles GET /api/catalog.
//
//	@Summary		Search the technology catalog
//	@Tags			catalog
//	@Produce		json
//	@Param			q	query		string	false	"Text in title, description, category or difficulty"
//	@Success		200	{object}	CatalogResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/catalog [get]
func (h *Handler) SearchCatalog(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.SearchCatalog(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeError(w, h.logger, "search catalog", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, CatalogResponse{Technologies: items})
}

// CatalogResources handles GET /api/catalog/{id}/resources.
//
//	@Summary		Resource links of a catalog entry
//	@Tags			catalog
//	@Produce		json
//	@Param			id	path		int	true	"Catalog entry id"
//	@Success		200	{object}	ResourcesResponse
//	@Failure		404	{object}	errResponse
//	@Failure		503	{object}	errResponse
//	@Security		BearerAuth
//	@Router			/catalog/{id}/resources [get]
func (h *Handler) CatalogResources(w http.ResponseWriter, r *http.Request) {
	id, ok := technologyID(w, r)
	if !ok {
		return
	}
	res, err := h.svc.Catalog().FetchResources(r.Context(), id)
	if err != nil {
		writeError(w, h.logger, "catalog resources", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, ResourcesResponse{Resources: res})
}

// Roadmap handles GET /api/catalog/roadmap/{kind}.
//
//	@Summary		Entries of a learning roadmap
//	@Tags			catalog
//	@Produce		json
//	@Param			kind	path		string	true	"Roadmap"	Enums(frontend, backend, fullstack)
//	@Success		200		{object}	CatalogResponse
//	@Failure		503		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/catalog/roadmap/{kind} [get]
func (h *Handler) Roadmap(w http.ResponseWriter, r *http.Request) {
	items, err := h.svc.Catalog().FetchRoadmap(r.Context(), chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, h.logger, "fetch roadmap", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, CatalogResponse{Technologies: items})
}

// ImportRoadmap handles POST /api/catalog/roadmap/{kind}/import.
//
//	@Summary		Add the entries of a roadmap that are not tracked yet
//	@Tags			catalog
//	@Produce		json
//	@Param			kind	path		string	true	"Roadmap"	Enums(frontend, backend, fullstack)
//	@Success		200		{object}	RoadmapImportResponse
//	@Failure		503		{object}	errResponse
//	@Failure		507		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/catalog/roadmap/{kind}/import [post]
func (h *Handler) ImportRoadmap(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.ImportRoadmap(r.Context(), chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, h.logger, "import roadmap", err, RoadmapImportResponse{Added: n})
		return
	}
	writeJSON(w, http.StatusOK, RoadmapImportResponse{Added: n})
}
