package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/dukerupert/soiree/internal/auth"
	"github.com/dukerupert/soiree/internal/config"
	"github.com/dukerupert/soiree/internal/handler"
	"github.com/dukerupert/soiree/internal/idp"
	"github.com/dukerupert/soiree/internal/middleware"
	"github.com/dukerupert/soiree/internal/rsvp"
	"github.com/dukerupert/soiree/internal/store"
)

type Server struct {
	cfg          config.Config
	cookies      auth.Cookies
	validator    auth.Validator
	pageH        *handler.PageHandler
	apiH         *handler.APIHandler
	authH        *handler.AuthHandler
	sessionStore *store.SessionStore
	rateLimiter  *middleware.RateLimiter
	logger       *slog.Logger
}

func New(db *sql.DB, cfg config.Config, logger *slog.Logger) *Server {
	userStore := store.NewUserStore(db)
	sessionStore := store.NewSessionStore(db)
	partyStore := store.NewPartyStore(db)
	rsvpStore := store.NewRsvpStore(db)

	authLogger := logger.With("component", "auth")
	cookies := auth.Cookies{Name: cfg.SessionCookie, Secure: cfg.SecureCookies}

	var (
		validator auth.Validator
		authH     *handler.AuthHandler
	)
	switch cfg.AuthMode {
	case config.AuthModeIDP:
		client := idp.NewClient(idp.Config{
			URL:        cfg.IDPURL,
			CookieName: cfg.SessionCookie,
			Timeout:    cfg.IDPTimeout,
			Retries:    cfg.IDPRetries,
		})
		validator = auth.NewSyncingValidator(client, userStore, authLogger)
		// Sessions belong to the identity provider; logout only clears cookies.
		authH = handler.NewAuthHandler(handler.AuthConfig{Cookies: cookies, ProviderURL: cfg.IDPURL, BaseURL: cfg.BaseURL}, nil, authLogger)
	default:
		validator = auth.NewStoreValidator(sessionStore, userStore)
		authH = handler.NewAuthHandler(handler.AuthConfig{Cookies: cookies, BaseURL: cfg.BaseURL}, sessionStore, authLogger)
	}

	svc := rsvp.NewService(partyStore, rsvpStore, logger.With("component", "rsvp"))

	s := &Server{
		cfg:          cfg,
		cookies:      cookies,
		validator:    validator,
		pageH:        handler.NewPageHandler(svc, validator, cookies.Names(), logger.With("component", "page")),
		apiH:         handler.NewAPIHandler(svc, logger.With("component", "api")),
		authH:        authH,
		sessionStore: sessionStore,
		rateLimiter:  middleware.NewRateLimiter(cfg.RSVPRate, cfg.RSVPBurst),
		logger:       logger,
	}
	return s
}

func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	names := s.cookies.Names()

	// Public routes
	mux.HandleFunc("GET /{$}", s.pageH.Index)
	mux.HandleFunc("GET /login", s.authH.LoginPage)
	if s.cfg.AuthMode == config.AuthModeLocal {
		mux.HandleFunc("GET /login/link", s.authH.SessionLink)
	}
	mux.HandleFunc("POST /logout", s.authH.Logout)
	mux.HandleFunc("GET /health", s.healthHandler)

	// The party page validates on its own and sends strangers home.
	mux.HandleFunc("GET /party/{slug}", s.pageH.Party)

	// Gated pages
	requirePage := middleware.RequireSession(s.validator, names, s.logger.With("component", "auth"), middleware.DenyRedirect(s.cfg.LoginPath))
	mux.Handle("GET /invitations", requirePage(http.HandlerFunc(s.pageH.Invitations)))
	mux.Handle("GET /account", requirePage(http.HandlerFunc(s.pageH.Account)))

	// API routes
	requireAPI := middleware.RequireSession(s.validator, names, s.logger.With("component", "auth"), middleware.DenyJSON)
	mux.Handle("GET /api/parties/{slug}", requireAPI(http.HandlerFunc(s.apiH.Party)))
	mux.Handle("GET /api/parties/{slug}/rsvps", requireAPI(http.HandlerFunc(s.apiH.Guests)))
	mux.Handle("GET /api/parties/{slug}/rsvp", requireAPI(http.HandlerFunc(s.apiH.MyRsvp)))
	mux.Handle("DELETE /api/parties/{slug}/rsvp", requireAPI(http.HandlerFunc(s.apiH.Withdraw)))

	limit := middleware.RateLimit(s.rateLimiter, middleware.UserOrIP)
	mux.Handle("PUT /api/rsvps/{id}", requireAPI(limit(http.HandlerFunc(s.apiH.UpdateRsvp))))

	gate := middleware.SessionGate(middleware.GateConfig{
		ProtectedPrefixes: s.cfg.ProtectedPrefixes,
		CookieNames:       names,
		LoginPath:         s.cfg.LoginPath,
	})

	return middleware.RequestLogger(s.logger.With("component", "http"))(gate(mux))
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
