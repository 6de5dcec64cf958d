package api

import "net/http"

// Login handles POST /api/login.
//
//	@Summary		Sign in to the demo session
//	@Description	The session only gates the UI; it does not protect the API.
//	@Tags			session
//	@Accept			json
//	@Produce		json
//	@Param			body	body		LoginRequest	true	"Credentials"
//	@Success		200		{object}	SessionResponse
//	@Failure		401		{object}	errResponse
//	@Security		BearerAuth
//	@Router			/login [post]
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if !decodeBody(w, r, &req) {
		return
	}
	st, err := h.session.Login(req.Username, req.Password)
	if err != nil {
		writeError(w, h.logger, "login", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// Logout handles POST /api/logout.
//
//	@Summary		Sign out
//	@Tags			session
//	@Success		204
//	@Security		BearerAuth
//	@Router			/logout [post]
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	if err := h.session.Logout(); err != nil {
		writeError(w, h.logger, "logout", err, nil)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Session handles GET /api/session.
//
//	@Summary		Current sign-in state
//	@Tags			session
//	@Produce		json
//	@Success		200	{object}	SessionResponse
//	@Security		BearerAuth
//	@Router			/session [get]
func (h *Handler) Session(w http.ResponseWriter, _ *http.Request) {
	st, err := h.session.Current()
	if err != nil {
		writeError(w, h.logger, "session", err, nil)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
