package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dukerupert/soiree/internal/auth"
	"github.com/dukerupert/soiree/internal/rsvp"
)

// DenyFunc writes the response for a request whose session failed
// validation. err wraps auth.ErrUnauthenticated or is a server fault.
type DenyFunc func(w http.ResponseWriter, r *http.Request, err error)

// RequireSession validates the session cookie with v and stores the user in
// the request context. Requests that fail validation never reach next.
func RequireSession(v auth.Validator, names []string, logger *slog.Logger, deny DenyFunc) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, err := auth.Authenticate(r.Context(), r, v, names)
			if err != nil {
				if !errors.Is(err, auth.ErrUnauthenticated) {
					logger.Error("session validation failed", "path", r.URL.Path, "error", err)
					err = &rsvp.Error{Op: "validate session", Kind: rsvp.KindServerFault, Err: err}
				}
				deny(w, r, err)
				return
			}
			noteUser(r.Context(), u.ID)
			next.ServeHTTP(w, r.WithContext(auth.WithUser(r.Context(), u)))
		})
	}
}

// DenyJSON answers with the classified JSON error body (401 or 500).
func DenyJSON(w http.ResponseWriter, r *http.Request, err error) {
	rsvp.WriteError(w, err)
}

// DenyRedirect sends unauthenticated page requests to loginPath with the
// original location attached. Faults get a plain 500.
func DenyRedirect(loginPath string) DenyFunc {
	return func(w http.ResponseWriter, r *http.Request, err error) {
		if rsvp.KindOf(err) != rsvp.KindUnauthenticated {
			http.Error(w, rsvp.KindServerFault.Message(), http.StatusInternalServerError)
			return
		}
		redirectToLogin(w, r, loginPath)
	}
}
