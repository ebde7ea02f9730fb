package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/hongminglow/farmconnect/internal/http/respond"
	"github.com/hongminglow/farmconnect/internal/middleware"
	"github.com/hongminglow/farmconnect/internal/models"
	"github.com/hongminglow/farmconnect/internal/session"
)

// ProfileHandler shows and edits the signed-in user's profile.
type ProfileHandler struct {
	sessions *session.Service
}

func NewProfileHandler(sessions *session.Service) *ProfileHandler {
	return &ProfileHandler{sessions: sessions}
}

func (h *ProfileHandler) Register(r *mux.Router, gate *middleware.Gate) {
	r.HandleFunc("/profile", gate.Protect(h.show)).Methods(http.MethodGet)
	r.HandleFunc("/profile", gate.Protect(h.update)).Methods(http.MethodPatch)
}

func (h *ProfileHandler) show(w http.ResponseWriter, r *http.Request) {
	respond.JSON(w, http.StatusOK, "profile", currentUser(r))
}

func (h *ProfileHandler) update(w http.ResponseWriter, r *http.Request) {
	var patch models.ProfileUpdate
	if !decodeJSON(w, r, &patch) {
		return
	}
	user, err := h.sessions.UpdateProfile(r.Context(), patch)
	if err != nil {
		respond.Err(w, err)
		return
	}
	respond.JSON(w, http.StatusOK, "Profile updated successfully", user)
}
