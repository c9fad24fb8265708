package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dukerupert/soiree/internal/model"
)

type PartyStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewPartyStore(db *sql.DB) *PartyStore {
	return &PartyStore{db: db, now: time.Now}
}

func scanParty(sc scanner) (*model.Party, error) {
	var p model.Party
	var startsAt, deletedAt sql.NullTime
	err := sc.Scan(
		&p.ID, &p.Slug, &p.Name, &startsAt, &p.Location, &p.Description,
		&p.CreatedAt, &p.UpdatedAt, &deletedAt,
	)
	if err != nil {
		return nil, err
	}
	p.StartsAt = timePtr(startsAt)
	p.DeletedAt = timePtr(deletedAt)
	return &p, nil
}

const partyCols = `id, slug, name, starts_at, location, description, created_at, updated_at, deleted_at`

// prefixed returns cols with every column qualified by alias.
func prefixed(alias, cols string) string {
	parts := strings.Split(cols, ", ")
	for i, c := range parts {
		parts[i] = alias + "." + c
	}
	return strings.Join(parts, ", ")
}

func (s *PartyStore) Create(ctx context.Context, slug, name, location, description string, startsAt *time.Time) (*model.Party, error) {
	id := uuid.NewString()
	now := s.now().UTC()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO parties (id, slug, name, starts_at, location, description, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		id, slug, name, nullTime(startsAt), location, description, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("insert party: %w", err)
	}
	return s.GetByID(ctx, id)
}

// GetByID returns the active party with the given id, or nil.
func (s *PartyStore) GetByID(ctx context.Context, id string) (*model.Party, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+partyCols+` FROM parties WHERE id = ? AND deleted_at IS NULL`, id)
	p, err := scanParty(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get party: %w", err)
	}
	return p, nil
}

// GetBySlug returns the active party with the given slug, or nil.
func (s *PartyStore) GetBySlug(ctx context.Context, slug string) (*model.Party, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+partyCols+` FROM parties WHERE slug = ? AND deleted_at IS NULL`, slug)
	p, err := scanParty(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get party by slug: %w", err)
	}
	return p, nil
}

// ListForUser returns active parties the user holds an active RSVP for,
// soonest first. Parties without a start time sort last.
func (s *PartyStore) ListForUser(ctx context.Context, userID string) ([]model.Party, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+prefixed("p", partyCols)+`
		 FROM parties p
		 JOIN rsvps r ON r.party_id = p.id
		 WHERE r.user_id = ? AND r.deleted_at IS NULL AND p.deleted_at IS NULL
		 ORDER BY p.starts_at IS NULL, p.starts_at, p.name`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("list parties for user: %w", err)
	}
	defer rows.Close()

	var parties []model.Party
	for rows.Next() {
		p, err := scanParty(rows)
		if err != nil {
			return nil, fmt.Errorf("scan party: %w", err)
		}
		parties = append(parties, *p)
	}
	return parties, rows.Err()
}

// SoftDelete marks the party deleted. Its RSVPs are left untouched.
func (s *PartyStore) SoftDelete(ctx context.Context, id string) error {
	now := s.now().UTC()
	result, err := s.db.ExecContext(ctx,
		`UPDATE parties SET deleted_at = ?, updated_at = ? WHERE id = ? AND deleted_at IS NULL`,
		now, now, id,
	)
	if err != nil {
		return fmt.Errorf("soft delete party: %w", err)
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
