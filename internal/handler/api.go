package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/soiree/internal/auth"
	"github.com/dukerupert/soiree/internal/rsvp"
)

// APIHandler serves the JSON party and RSVP endpoints. Every route is
// mounted behind middleware.RequireSession, so the viewer is in the context.
type APIHandler struct {
	svc    RsvpService
	logger *slog.Logger
}

func NewAPIHandler(svc RsvpService, logger *slog.Logger) *APIHandler {
	return &APIHandler{svc: svc, logger: logger}
}

type rsvpUpdateRequest struct {
	Status string `json:"status"`
}

func (h *APIHandler) Party(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.FromContext(r.Context())
	p, err := h.svc.PartyBySlug(r.Context(), viewer, r.PathValue("slug"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *APIHandler) Guests(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.FromContext(r.Context())
	gl, err := h.svc.GuestList(r.Context(), viewer, r.PathValue("slug"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, gl)
}

func (h *APIHandler) MyRsvp(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.FromContext(r.Context())
	rv, err := h.svc.MyRsvp(r.Context(), viewer, r.PathValue("slug"))
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}

func (h *APIHandler) Withdraw(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.FromContext(r.Context())
	if err := h.svc.Withdraw(r.Context(), viewer, r.PathValue("slug")); err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *APIHandler) UpdateRsvp(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.FromContext(r.Context())

	var req rsvpUpdateRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<10)).Decode(&req); err != nil {
		writeError(w, r, h.logger, &rsvp.Error{Op: "decode rsvp update", Kind: rsvp.KindInvalid, Err: err})
		return
	}

	rv, err := h.svc.UpdateStatus(r.Context(), viewer, r.PathValue("id"), req.Status)
	if err != nil {
		writeError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rv)
}
