package auth

import (
	"net/http"
	"strings"
	"time"
)

// SecurePrefix marks the cookie variant browsers only accept over HTTPS.
const SecurePrefix = "__Secure-"

// Cookies describes the session cookie pair. Both the plain and the
// __Secure- variant of Name are recognized on read, in every deployment
// mode. Secure selects which variant is written.
type Cookies struct {
	Name   string
	Secure bool
}

// Names lists the recognized cookie names, secure variant first.
func (c Cookies) Names() []string {
	return []string{SecurePrefix + c.Name, c.Name}
}

func (c Cookies) issuedName() string {
	if c.Secure {
		return SecurePrefix + c.Name
	}
	return c.Name
}

// ReadToken returns the first non-empty session cookie value among names.
func ReadToken(r *http.Request, names []string) (string, bool) {
	_, token, ok := ReadSessionCookie(r, names)
	return token, ok
}

// ReadSessionCookie is ReadToken that also reports which cookie name the
// token was found under.
func ReadSessionCookie(r *http.Request, names []string) (name, token string, ok bool) {
	if r == nil {
		return "", "", false
	}
	for _, name := range names {
		cookie, err := r.Cookie(name)
		if err != nil {
			continue
		}
		if v := strings.TrimSpace(cookie.Value); v != "" {
			return name, v, true
		}
	}
	return "", "", false
}

// Write sets the session cookie variant for the configured mode.
func (c Cookies) Write(w http.ResponseWriter, r *http.Request, token string, expires time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     c.issuedName(),
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HttpOnly: true,
		Secure:   c.Secure || IsSecureRequest(r),
		SameSite: http.SameSiteLaxMode,
	})
}

// Clear expires both cookie variants.
func (c Cookies) Clear(w http.ResponseWriter, r *http.Request) {
	for _, name := range c.Names() {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    "",
			Path:     "/",
			MaxAge:   -1,
			HttpOnly: true,
			Secure:   strings.HasPrefix(name, SecurePrefix) || IsSecureRequest(r),
			SameSite: http.SameSiteLaxMode,
		})
	}
}

// IsSecureRequest reports whether the request arrived over HTTPS, directly
// or through a proxy that sets X-Forwarded-Proto.
func IsSecureRequest(r *http.Request) bool {
	if r == nil {
		return false
	}
	if r.TLS != nil {
		return true
	}
	return r.Header.Get("X-Forwarded-Proto") == "https"
}
