package middleware

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/dukerupert/soiree/internal/auth"
)

var testCookieNames = auth.Cookies{Name: "soiree_session"}.Names()

func gateUnderTest(reached *bool) http.Handler {
	return SessionGate(GateConfig{CookieNames: testCookieNames})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*reached = true
		w.WriteHeader(http.StatusOK)
	}))
}

func TestGateRedirectsEveryProtectedPrefix(t *testing.T) {
	paths := []string{
		"/invitations",
		"/invitations/abc",
		"/account",
		"/account/settings?tab=profile&x=1",
	}
	for _, p := range paths {
		var reached bool
		req := httptest.NewRequest(http.MethodGet, p, nil)
		rec := httptest.NewRecorder()
		gateUnderTest(&reached).ServeHTTP(rec, req)

		if reached {
			t.Errorf("%s: handler reached without cookie", p)
		}
		if rec.Code != http.StatusFound {
			t.Errorf("%s: status = %d, want %d", p, rec.Code, http.StatusFound)
		}
		want := "/login?redirect=" + url.QueryEscape(p)
		if loc := rec.Header().Get("Location"); loc != want {
			t.Errorf("%s: Location = %q, want %q", p, loc, want)
		}
	}
}

func TestGateRedirectRoundTrips(t *testing.T) {
	var reached bool
	req := httptest.NewRequest(http.MethodGet, "/account/settings?tab=profile&x=1", nil)
	rec := httptest.NewRecorder()
	gateUnderTest(&reached).ServeHTTP(rec, req)

	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("parse location: %v", err)
	}
	if loc.Path != "/login" {
		t.Errorf("path = %q, want /login", loc.Path)
	}
	if got := loc.Query().Get("redirect"); got != "/account/settings?tab=profile&x=1" {
		t.Errorf("redirect = %q", got)
	}
}

func TestGatePassesUnprotected(t *testing.T) {
	for _, p := range []string{"/", "/party/test-party", "/accounts", "/invitationsx", "/api/rsvps/1"} {
		var reached bool
		req := httptest.NewRequest(http.MethodGet, p, nil)
		rec := httptest.NewRecorder()
		gateUnderTest(&reached).ServeHTTP(rec, req)
		if !reached {
			t.Errorf("%s: expected pass-through", p)
		}
	}
}

func TestGatePassesAnyPresentCookie(t *testing.T) {
	for _, name := range testCookieNames {
		var reached bool
		req := httptest.NewRequest(http.MethodGet, "/account", nil)
		req.AddCookie(&http.Cookie{Name: name, Value: "not-a-real-session"})
		rec := httptest.NewRecorder()
		gateUnderTest(&reached).ServeHTTP(rec, req)

		if !reached {
			t.Errorf("%s: gate should only check presence", name)
		}
	}
}

func TestGateEmptyCookieRedirects(t *testing.T) {
	var reached bool
	req := httptest.NewRequest(http.MethodGet, "/invitations", nil)
	req.AddCookie(&http.Cookie{Name: "soiree_session", Value: ""})
	rec := httptest.NewRecorder()
	gateUnderTest(&reached).ServeHTTP(rec, req)

	if reached || rec.Code != http.StatusFound {
		t.Errorf("reached = %v, status = %d; want redirect", reached, rec.Code)
	}
}

func TestGateCustomPrefixes(t *testing.T) {
	gate := SessionGate(GateConfig{
		ProtectedPrefixes: []string{"/party/"},
		CookieNames:       testCookieNames,
		LoginPath:         "/signin",
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/party/test-party", nil)
	rec := httptest.NewRecorder()
	gate.ServeHTTP(rec, req)

	if loc := rec.Header().Get("Location"); loc != "/signin?redirect=%2Fparty%2Ftest-party" {
		t.Errorf("Location = %q", loc)
	}
}
