package rsvpclient

import (
	"context"
	"errors"
	"sync"

	"github.com/dukerupert/soiree/internal/model"
)

// ErrInFlight is returned by Set and Client.UpdateStatus while an earlier
// write for the same RSVP id is still outstanding.
var ErrInFlight = errors.New("rsvp update already in flight")

// ErrClosed is returned by Set after Close.
var ErrClosed = errors.New("rsvp control closed")

// Updater performs the remote write. *Client implements it.
type Updater interface {
	UpdateStatus(ctx context.Context, id string, status model.RsvpStatus) (*model.Rsvp, error)
}

type State int

const (
	// Confirmed: the shown status is the one the server last returned.
	Confirmed State = iota
	// Pending: a write is in flight; the target status is shown.
	Pending
	// Failed: the last write failed; the confirmed status is shown with the
	// error.
	Failed
)

func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Failed:
		return "failed"
	default:
		return "confirmed"
	}
}

// Snapshot is the observable state of a Control.
type Snapshot struct {
	State     State
	Confirmed model.Rsvp
	Target    model.RsvpStatus
	Err       error
}

// Shown is the status the control displays.
func (s Snapshot) Shown() model.RsvpStatus {
	if s.State == Pending {
		return s.Target
	}
	return s.Confirmed.Status
}

// Control tracks one visible RSVP selector and keeps it consistent with the
// server. At most one write per control is in flight; Client extends that
// to every control sharing it for the same RSVP id.
type Control struct {
	mu       sync.Mutex
	updater  Updater
	snap     Snapshot
	inFlight bool
	closed   bool
}

// NewControl starts in the Confirmed state with the record the page loaded.
func NewControl(u Updater, initial model.Rsvp) *Control {
	return &Control{
		updater: u,
		snap:    Snapshot{State: Confirmed, Confirmed: initial},
	}
}

// Snapshot returns the current state.
func (c *Control) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snap
}

// Set requests a status change. It blocks until the server answers. On
// success the server's record replaces the local one verbatim; on failure the
// control reverts to the last confirmed status and records the error.
func (c *Control) Set(ctx context.Context, target model.RsvpStatus) (model.Rsvp, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return model.Rsvp{}, ErrClosed
	}
	if c.inFlight {
		c.mu.Unlock()
		return model.Rsvp{}, ErrInFlight
	}
	c.inFlight = true
	id := c.snap.Confirmed.ID
	prev := c.snap
	c.snap = Snapshot{State: Pending, Confirmed: c.snap.Confirmed, Target: target}
	c.mu.Unlock()

	// Navigating away must not abort a write the server may already be
	// applying.
	rv, err := c.updater.UpdateStatus(context.WithoutCancel(ctx), id, target)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inFlight = false
	if c.closed {
		if err != nil {
			return model.Rsvp{}, err
		}
		return *rv, nil
	}
	if errors.Is(err, ErrInFlight) {
		// Another control owns the write for this id; nothing was sent.
		c.snap = prev
		return c.snap.Confirmed, err
	}
	if err != nil {
		c.snap = Snapshot{State: Failed, Confirmed: c.snap.Confirmed, Err: err}
		return c.snap.Confirmed, err
	}
	c.snap = Snapshot{State: Confirmed, Confirmed: *rv}
	return *rv, nil
}

// Close marks the control as gone. A write still in flight completes on the
// server but its result is not applied locally.
func (c *Control) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}
