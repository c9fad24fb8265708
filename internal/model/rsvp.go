package model

import (
	"fmt"
	"strings"
	"time"
)

type RsvpStatus string

const (
	RsvpPending  RsvpStatus = "pending"
	RsvpAccepted RsvpStatus = "accepted"
	RsvpDeclined RsvpStatus = "declined"
)

// ParseRsvpStatus accepts the three statuses, case-insensitively.
func ParseRsvpStatus(s string) (RsvpStatus, error) {
	switch st := RsvpStatus(strings.ToLower(strings.TrimSpace(s))); st {
	case RsvpPending, RsvpAccepted, RsvpDeclined:
		return st, nil
	default:
		return "", fmt.Errorf("invalid rsvp status %q", s)
	}
}

type Rsvp struct {
	ID        string     `json:"id"`
	PartyID   string     `json:"party_id"`
	UserID    string     `json:"user_id"`
	Status    RsvpStatus `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Guest is an RSVP joined with the invitee's display name.
type Guest struct {
	Rsvp
	Name string `json:"name"`
}
