package rsvp

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/dukerupert/soiree/internal/model"
	"github.com/dukerupert/soiree/internal/store"
)

// PartyReader loads parties.
type PartyReader interface {
	GetBySlug(ctx context.Context, slug string) (*model.Party, error)
	ListForUser(ctx context.Context, userID string) ([]model.Party, error)
}

// RsvpStore reads and writes RSVP rows.
type RsvpStore interface {
	GetForUser(ctx context.Context, partyID, userID string) (*model.Rsvp, error)
	ListByPartySlug(ctx context.Context, slug string) ([]model.Guest, error)
	SetStatus(ctx context.Context, id, userID string, status model.RsvpStatus) (*model.Rsvp, error)
	Withdraw(ctx context.Context, partyID, userID string) error
}

// GuestList is the guest list of a party annotated with the viewer's id so
// the page can mark the viewer's own entry.
type GuestList struct {
	ViewerID string        `json:"viewer_id"`
	Guests   []model.Guest `json:"guests"`
}

// Service implements the party read path and the RSVP write path.
type Service struct {
	parties PartyReader
	rsvps   RsvpStore
	logger  *slog.Logger
}

func NewService(parties PartyReader, rsvps RsvpStore, logger *slog.Logger) *Service {
	return &Service{parties: parties, rsvps: rsvps, logger: logger}
}

func requireViewer(op string, viewer *model.User) error {
	if viewer == nil || viewer.ID == "" {
		return &Error{Op: op, Kind: KindUnauthenticated}
	}
	return nil
}

func fault(op string, err error) error {
	return &Error{Op: op, Kind: KindServerFault, Err: err}
}

// PartyBySlug returns the party with the given slug.
func (s *Service) PartyBySlug(ctx context.Context, viewer *model.User, slug string) (*model.Party, error) {
	const op = "party by slug"
	if err := requireViewer(op, viewer); err != nil {
		return nil, err
	}
	slug = strings.TrimSpace(slug)
	if slug == "" {
		return nil, &Error{Op: op, Kind: KindInvalid, Err: errors.New("empty slug")}
	}

	p, err := s.parties.GetBySlug(ctx, slug)
	if err != nil {
		return nil, fault(op, err)
	}
	if p == nil {
		return nil, &Error{Op: op, Kind: KindNotFound}
	}
	return p, nil
}

// GuestList returns the active RSVPs of the party in creation order. It does
// not depend on PartyBySlug succeeding.
func (s *Service) GuestList(ctx context.Context, viewer *model.User, slug string) (*GuestList, error) {
	const op = "guest list"
	if err := requireViewer(op, viewer); err != nil {
		return nil, err
	}
	guests, err := s.rsvps.ListByPartySlug(ctx, strings.TrimSpace(slug))
	if err != nil {
		return nil, fault(op, err)
	}
	if guests == nil {
		guests = []model.Guest{}
	}
	return &GuestList{ViewerID: viewer.ID, Guests: guests}, nil
}

// MyRsvp returns the viewer's own RSVP for the party.
func (s *Service) MyRsvp(ctx context.Context, viewer *model.User, slug string) (*model.Rsvp, error) {
	const op = "my rsvp"
	p, err := s.PartyBySlug(ctx, viewer, slug)
	if err != nil {
		return nil, err
	}
	r, err := s.rsvps.GetForUser(ctx, p.ID, viewer.ID)
	if err != nil {
		return nil, fault(op, err)
	}
	if r == nil {
		return nil, &Error{Op: op, Kind: KindNotFound}
	}
	return r, nil
}

// Invitations lists the parties the viewer holds an active RSVP for.
func (s *Service) Invitations(ctx context.Context, viewer *model.User) ([]model.Party, error) {
	const op = "invitations"
	if err := requireViewer(op, viewer); err != nil {
		return nil, err
	}
	parties, err := s.parties.ListForUser(ctx, viewer.ID)
	if err != nil {
		return nil, fault(op, err)
	}
	if parties == nil {
		parties = []model.Party{}
	}
	return parties, nil
}

// UpdateStatus sets the status of RSVP id on behalf of viewer. Only the owner
// may change an RSVP; repeating the current status succeeds and only moves
// updated_at.
func (s *Service) UpdateStatus(ctx context.Context, viewer *model.User, id, status string) (*model.Rsvp, error) {
	const op = "update rsvp"
	if err := requireViewer(op, viewer); err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, &Error{Op: op, Kind: KindNotFound, Err: errors.New("empty rsvp id")}
	}
	st, err := model.ParseRsvpStatus(status)
	if err != nil {
		return nil, &Error{Op: op, Kind: KindInvalid, Err: err}
	}

	r, err := s.rsvps.SetStatus(ctx, id, viewer.ID, st)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil, &Error{Op: op, Kind: KindNotFound, Err: err}
	case errors.Is(err, store.ErrNotOwner):
		s.logger.Warn("rsvp write by non-owner", "rsvp_id", id, "user_id", viewer.ID)
		return nil, &Error{Op: op, Kind: KindForbidden, Err: err}
	case err != nil:
		return nil, fault(op, err)
	}

	s.logger.Info("rsvp updated", "rsvp_id", r.ID, "user_id", viewer.ID, "status", r.Status)
	return r, nil
}

// Withdraw soft-deletes the viewer's RSVP for the party.
func (s *Service) Withdraw(ctx context.Context, viewer *model.User, slug string) error {
	const op = "withdraw rsvp"
	p, err := s.PartyBySlug(ctx, viewer, slug)
	if err != nil {
		return err
	}
	err = s.rsvps.Withdraw(ctx, p.ID, viewer.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return &Error{Op: op, Kind: KindNotFound, Err: err}
	case err != nil:
		return fault(op, err)
	}
	s.logger.Info("rsvp withdrawn", "party_id", p.ID, "user_id", viewer.ID)
	return nil
}
