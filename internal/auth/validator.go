package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/dukerupert/soiree/internal/model"
)

// ErrUnauthenticated means the request carries no usable session: missing,
// unknown, expired or revoked. Any other error from a Validator is an
// infrastructure fault.
var ErrUnauthenticated = errors.New("unauthenticated")

// Validator resolves a session token into an identity. It returns either a
// non-nil user and a nil error, or a nil user and an error.
type Validator interface {
	Validate(ctx context.Context, token string) (*model.User, error)
}

// ValidatorFunc adapts a function to Validator.
type ValidatorFunc func(ctx context.Context, token string) (*model.User, error)

func (f ValidatorFunc) Validate(ctx context.Context, token string) (*model.User, error) {
	return f(ctx, token)
}

// Authenticate reads the session cookie from r and validates it. This is the
// authoritative check every protected page and API handler must pass before
// disclosing or changing data.
func Authenticate(ctx context.Context, r *http.Request, v Validator, names []string) (*model.User, error) {
	name, token, ok := ReadSessionCookie(r, names)
	if !ok {
		return nil, ErrUnauthenticated
	}
	u, err := v.Validate(WithCookieName(ctx, name), token)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUnauthenticated
	}
	return u, nil
}

type sessionLookup interface {
	GetByToken(ctx context.Context, token string) (*model.Session, error)
}

type userLookup interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// StoreValidator validates locally issued sessions.
type StoreValidator struct {
	sessions sessionLookup
	users    userLookup
}

func NewStoreValidator(sessions sessionLookup, users userLookup) *StoreValidator {
	return &StoreValidator{sessions: sessions, users: users}
}

func (v *StoreValidator) Validate(ctx context.Context, token string) (*model.User, error) {
	sess, err := v.sessions.GetByToken(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}
	if sess == nil {
		return nil, ErrUnauthenticated
	}
	u, err := v.users.GetByID(ctx, sess.UserID)
	if err != nil {
		return nil, fmt.Errorf("lookup session user: %w", err)
	}
	if u == nil {
		return nil, ErrUnauthenticated
	}
	return u, nil
}

type userUpserter interface {
	Upsert(ctx context.Context, u model.User) (*model.User, error)
}

// SyncingValidator mirrors every identity validated by next into the local
// users table, creating the row on first sight.
type SyncingValidator struct {
	next   Validator
	users  userUpserter
	logger *slog.Logger
}

func NewSyncingValidator(next Validator, users userUpserter, logger *slog.Logger) *SyncingValidator {
	return &SyncingValidator{next: next, users: users, logger: logger}
}

func (v *SyncingValidator) Validate(ctx context.Context, token string) (*model.User, error) {
	u, err := v.next.Validate(ctx, token)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, ErrUnauthenticated
	}
	stored, err := v.users.Upsert(ctx, *u)
	if err != nil {
		v.logger.Error("mirror identity", "user_id", u.ID, "error", err)
		return nil, fmt.Errorf("mirror identity: %w", err)
	}
	return stored, nil
}
