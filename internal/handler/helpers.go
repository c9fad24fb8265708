package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/soiree/internal/model"
	"github.com/dukerupert/soiree/internal/rsvp"
)

// RsvpService is the read and write path the handlers depend on.
type RsvpService interface {
	PartyBySlug(ctx context.Context, viewer *model.User, slug string) (*model.Party, error)
	GuestList(ctx context.Context, viewer *model.User, slug string) (*rsvp.GuestList, error)
	MyRsvp(ctx context.Context, viewer *model.User, slug string) (*model.Rsvp, error)
	Invitations(ctx context.Context, viewer *model.User) ([]model.Party, error)
	UpdateStatus(ctx context.Context, viewer *model.User, id, status string) (*model.Rsvp, error)
	Withdraw(ctx context.Context, viewer *model.User, slug string) error
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes the classified error body and logs anything that is not
// the caller's fault.
func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	if rsvp.KindOf(err).HTTPStatus() >= 500 {
		logger.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	}
	rsvp.WriteError(w, err)
}
