package middleware

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/dukerupert/soiree/internal/auth"
)

// GateConfig configures SessionGate.
type GateConfig struct {
	// ProtectedPrefixes lists the path prefixes that require a session cookie.
	ProtectedPrefixes []string
	// CookieNames lists every recognized session cookie name.
	CookieNames []string
	// LoginPath is where requests without a cookie are sent.
	LoginPath string
}

// DefaultProtectedPrefixes are the prefixes gated when none are configured.
var DefaultProtectedPrefixes = []string{"/invitations", "/account"}

// IsProtected reports whether path equals one of prefixes or lies beneath it.
func IsProtected(path string, prefixes []string) bool {
	for _, p := range prefixes {
		p = strings.TrimSuffix(p, "/")
		if p == "" {
			continue
		}
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}

// SessionGate redirects requests for protected paths that carry no session
// cookie to the login page. It only checks that a cookie is present; the
// handler behind it must still validate the session.
func SessionGate(cfg GateConfig) func(http.Handler) http.Handler {
	if len(cfg.ProtectedPrefixes) == 0 {
		cfg.ProtectedPrefixes = DefaultProtectedPrefixes
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = "/login"
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsProtected(r.URL.Path, cfg.ProtectedPrefixes) {
				next.ServeHTTP(w, r)
				return
			}
			if _, ok := auth.ReadToken(r, cfg.CookieNames); !ok {
				redirectToLogin(w, r, cfg.LoginPath)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// LoginURL returns loginPath with the request's path and query attached as
// the escaped redirect parameter.
func LoginURL(loginPath string, r *http.Request) string {
	original := r.URL.Path
	if r.URL.RawQuery != "" {
		original += "?" + r.URL.RawQuery
	}
	return loginPath + "?redirect=" + url.QueryEscape(original)
}

func redirectToLogin(w http.ResponseWriter, r *http.Request, loginPath string) {
	http.Redirect(w, r, LoginURL(loginPath, r), http.StatusFound)
}
