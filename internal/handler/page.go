package handler

import (
	"embed"
	"errors"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dukerupert/soiree/internal/auth"
	"github.com/dukerupert/soiree/internal/model"
	"github.com/dukerupert/soiree/internal/rsvp"
)

//go:embed templates/*.html
var templateFS embed.FS

var funcs = template.FuncMap{
	"when": func(t *time.Time) string {
		if t == nil {
			return "Date to be announced"
		}
		return t.Format("Monday, January 2, 2006 at 3:04 PM")
	},
}

type renderer struct {
	templates *template.Template
	logger    *slog.Logger
}

func newRenderer(logger *slog.Logger) renderer {
	return renderer{
		templates: template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, "templates/*.html")),
		logger:    logger,
	}
}

func (rn renderer) render(w http.ResponseWriter, status int, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := rn.templates.ExecuteTemplate(w, name, data); err != nil {
		rn.logger.Error("render template", "template", name, "error", err)
	}
}

// PageHandler renders the server-side pages.
type PageHandler struct {
	renderer
	svc         RsvpService
	validator   auth.Validator
	cookieNames []string
	logger      *slog.Logger
}

func NewPageHandler(svc RsvpService, v auth.Validator, cookieNames []string, logger *slog.Logger) *PageHandler {
	return &PageHandler{
		renderer:    newRenderer(logger),
		svc:         svc,
		validator:   v,
		cookieNames: cookieNames,
		logger:      logger,
	}
}

// partyView is everything the party page renders. Each section carries its
// own error so one failed fetch does not blank the other.
type partyView struct {
	Title    string
	Viewer   *model.User
	Party    *model.Party
	PartyErr string
	Guests   []model.Guest
	GuestErr string
	ViewerID string
}

func (h *PageHandler) Index(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.Authenticate(r.Context(), r, h.validator, h.cookieNames)
	h.render(w, http.StatusOK, "index.html", map[string]any{
		"Title":  "Soiree",
		"Viewer": viewer,
	})
}

// Party renders a party and its guest list. The two fetches run concurrently
// once the session is validated.
func (h *PageHandler) Party(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	viewer, err := auth.Authenticate(ctx, r, h.validator, h.cookieNames)
	if err != nil {
		if !errors.Is(err, auth.ErrUnauthenticated) {
			h.logger.Error("validate session", "path", r.URL.Path, "error", err)
			http.Error(w, rsvp.KindServerFault.Message(), http.StatusInternalServerError)
			return
		}
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	slug := r.PathValue("slug")
	var (
		party    *model.Party
		partyErr error
		guests   *rsvp.GuestList
		guestErr error
	)

	var g errgroup.Group
	g.Go(func() error {
		party, partyErr = h.svc.PartyBySlug(ctx, viewer, slug)
		return nil
	})
	g.Go(func() error {
		guests, guestErr = h.svc.GuestList(ctx, viewer, slug)
		return nil
	})
	g.Wait()

	if rsvp.KindOf(partyErr) == rsvp.KindNotFound {
		h.render(w, http.StatusNotFound, "notfound.html", map[string]any{
			"Title":  "Party not found",
			"Viewer": viewer,
			"Slug":   slug,
		})
		return
	}

	view := partyView{Title: "Party", Viewer: viewer, Party: party, ViewerID: viewer.ID}
	if partyErr != nil {
		h.logger.Warn("load party", "slug", slug, "error", partyErr)
		view.PartyErr = reason(partyErr)
	} else {
		view.Title = party.Name
	}
	if guestErr != nil {
		h.logger.Warn("load guest list", "slug", slug, "error", guestErr)
		view.GuestErr = reason(guestErr)
	} else {
		view.Guests = guests.Guests
		view.ViewerID = guests.ViewerID
	}

	h.render(w, http.StatusOK, "party.html", view)
}

// Invitations lists the viewer's parties. Mounted behind the gate and
// RequireSession.
func (h *PageHandler) Invitations(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.FromContext(r.Context())
	data := map[string]any{"Title": "Your invitations", "Viewer": viewer}

	parties, err := h.svc.Invitations(r.Context(), viewer)
	if err != nil {
		h.logger.Warn("load invitations", "user_id", auth.UserID(r.Context()), "error", err)
		data["Error"] = reason(err)
	}
	data["Parties"] = parties
	h.render(w, http.StatusOK, "invitations.html", data)
}

// Account shows the identity behind the session. Mounted behind the gate and
// RequireSession.
func (h *PageHandler) Account(w http.ResponseWriter, r *http.Request) {
	viewer, _ := auth.FromContext(r.Context())
	h.render(w, http.StatusOK, "account.html", map[string]any{
		"Title":  "Account",
		"Viewer": viewer,
	})
}

// reason is the text shown after "Error loading ...:". Classified errors show
// their kind's message, and a server fault caused by a network failure also
// names that failure. Storage errors stay hidden. Anything unclassified shows
// its own text.
func reason(err error) string {
	var e *rsvp.Error
	if errors.As(err, &e) {
		var ne net.Error
		if e.Kind == rsvp.KindServerFault && errors.As(e.Err, &ne) {
			return e.Kind.Message() + " (" + ne.Error() + ")"
		}
		return e.Kind.Message()
	}
	return err.Error()
}
