package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dukerupert/soiree/internal/model"
)

type rsvpFixture struct {
	rsvps   *RsvpStore
	parties *PartyStore
	party   *model.Party
}

func setupRsvpTest(t *testing.T) rsvpFixture {
	t.Helper()
	db := setupTestDB(t)
	ctx := context.Background()

	us := NewUserStore(db)
	us.Upsert(ctx, model.User{ID: "user-123", Name: "Alice"})
	us.Upsert(ctx, model.User{ID: "user-456", Name: "Bob"})

	ps := NewPartyStore(db)
	p, err := ps.Create(ctx, "test-party", "Test Party", "123 Main St", "", nil)
	if err != nil {
		t.Fatalf("create party: %v", err)
	}

	rs := NewRsvpStore(db).WithClock(fixedClock(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)))
	return rsvpFixture{rsvps: rs, parties: ps, party: p}
}

func TestRsvpInviteIsPending(t *testing.T) {
	f := setupRsvpTest(t)

	r, err := f.rsvps.Invite(context.Background(), f.party.ID, "user-123")
	if err != nil {
		t.Fatalf("invite: %v", err)
	}
	if r.Status != model.RsvpPending {
		t.Errorf("status = %q, want %q", r.Status, model.RsvpPending)
	}
	if r.PartyID != f.party.ID || r.UserID != "user-123" {
		t.Errorf("rsvp = %+v, want party %s / user-123", r, f.party.ID)
	}
}

func TestRsvpInviteTwiceReturnsSameRow(t *testing.T) {
	f := setupRsvpTest(t)
	ctx := context.Background()

	first, _ := f.rsvps.Invite(ctx, f.party.ID, "user-123")
	second, err := f.rsvps.Invite(ctx, f.party.ID, "user-123")
	if err != nil {
		t.Fatalf("second invite: %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("id = %q, want %q", second.ID, first.ID)
	}

	var count int
	f.rsvps.db.QueryRow(`SELECT COUNT(*) FROM rsvps`).Scan(&count)
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
}

func TestRsvpSetStatusByOwner(t *testing.T) {
	f := setupRsvpTest(t)
	ctx := context.Background()

	r, _ := f.rsvps.Invite(ctx, f.party.ID, "user-123")
	updated, err := f.rsvps.SetStatus(ctx, r.ID, "user-123", model.RsvpAccepted)
	if err != nil {
		t.Fatalf("set status: %v", err)
	}
	if updated.Status != model.RsvpAccepted {
		t.Errorf("status = %q, want %q", updated.Status, model.RsvpAccepted)
	}
	if !updated.UpdatedAt.After(r.UpdatedAt) {
		t.Errorf("updated_at not bumped: %v -> %v", r.UpdatedAt, updated.UpdatedAt)
	}
	if !updated.CreatedAt.Equal(r.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", r.CreatedAt, updated.CreatedAt)
	}
}

func TestRsvpSetSameStatusOnlyBumpsTimestamp(t *testing.T) {
	f := setupRsvpTest(t)
	ctx := context.Background()

	r, _ := f.rsvps.Invite(ctx, f.party.ID, "user-123")
	first, _ := f.rsvps.SetStatus(ctx, r.ID, "user-123", model.RsvpAccepted)
	second, err := f.rsvps.SetStatus(ctx, r.ID, "user-123", model.RsvpAccepted)
	if err != nil {
		t.Fatalf("repeat set status: %v", err)
	}
	if second.Status != model.RsvpAccepted {
		t.Errorf("status = %q, want %q", second.Status, model.RsvpAccepted)
	}
	if second.ID != first.ID {
		t.Errorf("id changed: %q -> %q", first.ID, second.ID)
	}
	if !second.UpdatedAt.After(first.UpdatedAt) {
		t.Errorf("updated_at not bumped: %v -> %v", first.UpdatedAt, second.UpdatedAt)
	}

	var count int
	f.rsvps.db.QueryRow(`SELECT COUNT(*) FROM rsvps`).Scan(&count)
	if count != 1 {
		t.Errorf("row count = %d, want 1", count)
	}
}

func TestRsvpSetStatusNotOwner(t *testing.T) {
	f := setupRsvpTest(t)
	ctx := context.Background()

	r, _ := f.rsvps.Invite(ctx, f.party.ID, "user-123")
	_, err := f.rsvps.SetStatus(ctx, r.ID, "user-456", model.RsvpDeclined)
	if !errors.Is(err, ErrNotOwner) {
		t.Fatalf("err = %v, want ErrNotOwner", err)
	}

	got, _ := f.rsvps.GetByID(ctx, r.ID)
	if got.Status != model.RsvpPending {
		t.Errorf("status = %q, want unchanged %q", got.Status, model.RsvpPending)
	}
	if !got.UpdatedAt.Equal(r.UpdatedAt) {
		t.Errorf("updated_at changed on rejected write: %v -> %v", r.UpdatedAt, got.UpdatedAt)
	}
}

func TestRsvpSetStatusMissing(t *testing.T) {
	f := setupRsvpTest(t)

	_, err := f.rsvps.SetStatus(context.Background(), "no-such-rsvp", "user-123", model.RsvpAccepted)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestRsvpWithdrawIsSoft(t *testing.T) {
	f := setupRsvpTest(t)
	ctx := context.Background()

	r, _ := f.rsvps.Invite(ctx, f.party.ID, "user-123")
	if err := f.rsvps.Withdraw(ctx, f.party.ID, "user-123"); err != nil {
		t.Fatalf("withdraw: %v", err)
	}

	got, _ := f.rsvps.GetByID(ctx, r.ID)
	if got != nil {
		t.Error("expected withdrawn rsvp to be hidden")
	}
	if _, err := f.rsvps.SetStatus(ctx, r.ID, "user-123", model.RsvpAccepted); !errors.Is(err, ErrNotFound) {
		t.Errorf("set status on withdrawn err = %v, want ErrNotFound", err)
	}
	if err := f.rsvps.Withdraw(ctx, f.party.ID, "user-123"); !errors.Is(err, ErrNotFound) {
		t.Errorf("second withdraw err = %v, want ErrNotFound", err)
	}

	var deletedAt *time.Time
	row := f.rsvps.db.QueryRow(`SELECT `+rsvpCols+` FROM rsvps WHERE id = ?`, r.ID)
	kept, err := scanRsvp(row)
	if err != nil {
		t.Fatalf("row should be kept: %v", err)
	}
	deletedAt = kept.DeletedAt
	if deletedAt == nil {
		t.Error("expected deleted_at to be set")
	}

	again, err := f.rsvps.Invite(ctx, f.party.ID, "user-123")
	if err != nil {
		t.Fatalf("re-invite: %v", err)
	}
	if again.ID == r.ID {
		t.Error("expected a fresh rsvp after withdraw")
	}
}

func TestRsvpListByPartySlug(t *testing.T) {
	f := setupRsvpTest(t)
	ctx := context.Background()

	f.rsvps.Invite(ctx, f.party.ID, "user-123")
	f.rsvps.Invite(ctx, f.party.ID, "user-456")

	guests, err := f.rsvps.ListByPartySlug(ctx, "test-party")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(guests) != 2 {
		t.Fatalf("len = %d, want 2", len(guests))
	}
	if guests[0].UserID != "user-123" || guests[0].Name != "Alice" {
		t.Errorf("guests[0] = %+v, want user-123/Alice", guests[0])
	}
	if guests[1].UserID != "user-456" || guests[1].Name != "Bob" {
		t.Errorf("guests[1] = %+v, want user-456/Bob", guests[1])
	}

	f.rsvps.Withdraw(ctx, f.party.ID, "user-456")
	guests, _ = f.rsvps.ListByPartySlug(ctx, "test-party")
	if len(guests) != 1 {
		t.Errorf("len after withdraw = %d, want 1", len(guests))
	}

	f.parties.SoftDelete(ctx, f.party.ID)
	guests, err = f.rsvps.ListByPartySlug(ctx, "test-party")
	if err != nil {
		t.Fatalf("list deleted party: %v", err)
	}
	if len(guests) != 0 {
		t.Errorf("len for deleted party = %d, want 0", len(guests))
	}
}
