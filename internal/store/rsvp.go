package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/soiree/internal/model"
)

// RsvpStore is the only writer of rsvp rows.
type RsvpStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewRsvpStore(db *sql.DB) *RsvpStore {
	return &RsvpStore{db: db, now: time.Now}
}

// WithClock replaces the timestamp source used for created_at and updated_at.
func (s *RsvpStore) WithClock(now func() time.Time) *RsvpStore {
	s.now = now
	return s
}

func scanRsvp(sc scanner) (*model.Rsvp, error) {
	var r model.Rsvp
	var deletedAt sql.NullTime
	err := sc.Scan(&r.ID, &r.PartyID, &r.UserID, &r.Status, &r.CreatedAt, &r.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}
	r.DeletedAt = timePtr(deletedAt)
	return &r, nil
}

const rsvpCols = `id, party_id, user_id, status, created_at, updated_at, deleted_at`

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getActiveRsvp(ctx context.Context, q queryer, id string) (*model.Rsvp, error) {
	row := q.QueryRowContext(ctx,
		`SELECT `+rsvpCols+` FROM rsvps WHERE id = ? AND deleted_at IS NULL`, id)
	r, err := scanRsvp(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rsvp: %w", err)
	}
	return r, nil
}

// Invite creates a pending RSVP for the user, or returns the active one if
// the user is already invited.
func (s *RsvpStore) Invite(ctx context.Context, partyID, userID string) (*model.Rsvp, error) {
	now := s.now().UTC()
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO rsvps (id, party_id, user_id, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (party_id, user_id) WHERE deleted_at IS NULL DO NOTHING`,
		id, partyID, userID, model.RsvpPending, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert rsvp: %w", err)
	}
	r, err := s.GetForUser(ctx, partyID, userID)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("insert rsvp: row missing after insert")
	}
	return r, nil
}

// GetByID returns the active RSVP with the given id, or nil.
func (s *RsvpStore) GetByID(ctx context.Context, id string) (*model.Rsvp, error) {
	return getActiveRsvp(ctx, s.db, id)
}

// GetForUser returns the user's active RSVP for the party, or nil.
func (s *RsvpStore) GetForUser(ctx context.Context, partyID, userID string) (*model.Rsvp, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+rsvpCols+` FROM rsvps WHERE party_id = ? AND user_id = ? AND deleted_at IS NULL`,
		partyID, userID,
	)
	r, err := scanRsvp(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get rsvp for user: %w", err)
	}
	return r, nil
}

// ListByPartySlug returns the active guest list of an active party, oldest
// invitation first. A missing or deleted party yields an empty list.
func (s *RsvpStore) ListByPartySlug(ctx context.Context, slug string) ([]model.Guest, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT r.id, r.party_id, r.user_id, r.status, r.created_at, r.updated_at, r.deleted_at,
		        COALESCE(u.name, '')
		 FROM rsvps r
		 JOIN parties p ON p.id = r.party_id
		 LEFT JOIN users u ON u.id = r.user_id
		 WHERE p.slug = ? AND p.deleted_at IS NULL AND r.deleted_at IS NULL
		 ORDER BY r.created_at, r.id`,
		slug,
	)
	if err != nil {
		return nil, fmt.Errorf("list rsvps: %w", err)
	}
	defer rows.Close()

	var guests []model.Guest
	for rows.Next() {
		var g model.Guest
		var deletedAt sql.NullTime
		err := rows.Scan(
			&g.ID, &g.PartyID, &g.UserID, &g.Status, &g.CreatedAt, &g.UpdatedAt, &deletedAt,
			&g.Name,
		)
		if err != nil {
			return nil, fmt.Errorf("scan rsvp: %w", err)
		}
		g.DeletedAt = timePtr(deletedAt)
		guests = append(guests, g)
	}
	return guests, rows.Err()
}

// SetStatus changes the status of an active RSVP owned by userID. The
// ownership check and the update share one transaction. Returns ErrNotFound
// for a missing or soft-deleted RSVP and ErrNotOwner when userID does not
// own it; in both cases nothing is written. Setting the current status again
// only refreshes updated_at.
func (s *RsvpStore) SetStatus(ctx context.Context, id, userID string, status model.RsvpStatus) (*model.Rsvp, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	existing, err := getActiveRsvp(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrNotFound
	}
	if existing.UserID != userID {
		return nil, ErrNotOwner
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE rsvps SET status = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		status, s.now().UTC(), id,
	)
	if err != nil {
		return nil, fmt.Errorf("update rsvp status: %w", err)
	}

	updated, err := getActiveRsvp(ctx, tx, id)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return updated, nil
}

// Withdraw soft-deletes the user's active RSVP for the party.
func (s *RsvpStore) Withdraw(ctx context.Context, partyID, userID string) error {
	now := s.now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE rsvps SET deleted_at = ?, updated_at = ?
		 WHERE party_id = ? AND user_id = ? AND deleted_at IS NULL`,
		now, now, partyID, userID,
	)
	if err != nil {
		return fmt.Errorf("withdraw rsvp: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
