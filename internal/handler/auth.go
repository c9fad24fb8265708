package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/dukerupert/soiree/internal/auth"
	"github.com/dukerupert/soiree/internal/model"
	"github.com/dukerupert/soiree/internal/rsvp"
)

// localSessions is the session table in local mode.
type localSessions interface {
	GetByToken(ctx context.Context, token string) (*model.Session, error)
	DeleteByToken(ctx context.Context, token string) error
}

// AuthConfig configures the login and logout endpoints.
type AuthConfig struct {
	Cookies auth.Cookies
	// ProviderURL is the identity provider's public URL. Empty in local mode.
	ProviderURL string
	// BaseURL is this site's public URL, used to build return_to links.
	BaseURL string
}

// AuthHandler serves the login placeholder, the local sign-in link and
// logout. Credentials are handled by the identity provider.
type AuthHandler struct {
	renderer
	cfg      AuthConfig
	sessions localSessions
	logger   *slog.Logger
}

// NewAuthHandler creates the handler. sessions may be nil when sessions are
// owned by the identity provider.
func NewAuthHandler(cfg AuthConfig, sessions localSessions, logger *slog.Logger) *AuthHandler {
	cfg.ProviderURL = strings.TrimRight(cfg.ProviderURL, "/")
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &AuthHandler{
		renderer: newRenderer(logger),
		cfg:      cfg,
		sessions: sessions,
		logger:   logger,
	}
}

// safeRedirect keeps only same-site absolute paths.
func safeRedirect(s string) string {
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") || strings.HasPrefix(s, "/\\") {
		return ""
	}
	return s
}

func (h *AuthHandler) LoginPage(w http.ResponseWriter, r *http.Request) {
	redirect := safeRedirect(r.URL.Query().Get("redirect"))

	var providerURL string
	if h.cfg.ProviderURL != "" {
		providerURL = h.cfg.ProviderURL + "/self-service/login/browser"
		if redirect != "" {
			providerURL += "?return_to=" + url.QueryEscape(h.cfg.BaseURL+redirect)
		}
	}

	h.render(w, http.StatusOK, "login.html", map[string]any{
		"Title":       "Sign in",
		"Redirect":    redirect,
		"ProviderURL": providerURL,
	})
}

// SessionLink exchanges a locally issued token (soiree-admin session) for a
// session cookie. Not routed in idp mode.
func (h *AuthHandler) SessionLink(w http.ResponseWriter, r *http.Request) {
	redirect := safeRedirect(r.URL.Query().Get("redirect"))
	if redirect == "" {
		redirect = "/"
	}
	if h.sessions == nil {
		http.NotFound(w, r)
		return
	}

	token := strings.TrimSpace(r.URL.Query().Get("token"))
	sess, err := h.sessions.GetByToken(r.Context(), token)
	if err != nil {
		h.logger.Error("lookup link session", "error", err)
		http.Error(w, rsvp.KindServerFault.Message(), http.StatusInternalServerError)
		return
	}
	if sess == nil {
		http.Redirect(w, r, "/login?redirect="+url.QueryEscape(redirect), http.StatusSeeOther)
		return
	}

	h.cfg.Cookies.Write(w, r, token, sess.ExpiresAt)
	h.logger.Info("session link used", "user_id", sess.UserID)
	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if token, ok := auth.ReadToken(r, h.cfg.Cookies.Names()); ok && h.sessions != nil {
		if err := h.sessions.DeleteByToken(r.Context(), token); err != nil {
			h.logger.Error("delete session", "error", err)
		}
	}

	h.cfg.Cookies.Clear(w, r)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}
