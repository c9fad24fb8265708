package auth

import (
	"context"

	"github.com/dukerupert/soiree/internal/model"
)

type contextKey struct{}

type cookieNameKey struct{}

// WithCookieName records the cookie name the session token arrived under, so
// validators that forward the token can present it the same way.
func WithCookieName(ctx context.Context, name string) context.Context {
	return context.WithValue(ctx, cookieNameKey{}, name)
}

func CookieName(ctx context.Context) (string, bool) {
	name, ok := ctx.Value(cookieNameKey{}).(string)
	return name, ok && name != ""
}

// WithUser stores the validated identity for the rest of the request.
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// FromContext returns the identity placed by WithUser. Absence means the
// request was never validated, whatever cookies it carries.
func FromContext(ctx context.Context) (*model.User, bool) {
	u, ok := ctx.Value(contextKey{}).(*model.User)
	if !ok || u == nil {
		return nil, false
	}
	return u, true
}

func UserID(ctx context.Context) string {
	u, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return u.ID
}
