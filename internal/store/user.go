package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/dukerupert/soiree/internal/model"
)

type UserStore struct {
	db  *sql.DB
	now func() time.Time
}

func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db, now: time.Now}
}

func scanUser(sc scanner) (*model.User, error) {
	var u model.User
	var phone sql.NullString
	err := sc.Scan(&u.ID, &u.Email, &u.Name, &phone, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if phone.Valid {
		u.Phone = &phone.String
	}
	return &u, nil
}

const userCols = `id, email, name, phone, created_at, updated_at`

// Upsert mirrors an identity from the identity provider. Existing rows keep
// their created_at; traits are overwritten.
func (s *UserStore) Upsert(ctx context.Context, u model.User) (*model.User, error) {
	if u.ID == "" {
		return nil, fmt.Errorf("upsert user: empty id")
	}
	var phone sql.NullString
	if u.Phone != nil {
		phone = sql.NullString{String: *u.Phone, Valid: true}
	}
	now := s.now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, email, name, phone, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT (id) DO UPDATE SET
		   email = excluded.email,
		   name = excluded.name,
		   phone = excluded.phone,
		   updated_at = excluded.updated_at
		 WHERE users.email != excluded.email
		    OR users.name != excluded.name
		    OR users.phone IS NOT excluded.phone`,
		u.ID, u.Email, u.Name, phone, now, now,
	)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return s.GetByID(ctx, u.ID)
}

func (s *UserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (s *UserStore) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+userCols+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}
