package http

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/bussola-offshore/bussola/internal/domain"
	"github.com/bussola-offshore/bussola/internal/domain/market"
	"github.com/bussola-offshore/bussola/internal/domain/user"
	"github.com/bussola-offshore/bussola/internal/middleware"
	"github.com/bussola-offshore/bussola/internal/resilience"
	"github.com/bussola-offshore/bussola/internal/secrets"
	"github.com/bussola-offshore/bussola/internal/service"
)

const maxFormSize = 16 << 10 // 16 KB

// Handlers holds the collaborators of the dashboard's HTTP surface.
type Handlers struct {
	Sessions *service.SessionRouter
	// ClientCookie re-issues the client cookie when sign-in rotates the id.
	ClientCookie middleware.ClientID
	// Cache is dropped table by table on a refresh. Nil disables refresh.
	Cache  TableInvalidator
	Health HealthInfo
}

// TableInvalidator drops cached table contents.
type TableInvalidator interface {
	Invalidate(ctx context.Context, table string) error
}

// HealthInfo is what /health reports on.
type HealthInfo struct {
	Driver  string
	Secrets *secrets.Vault
	// SecretKeys are the secrets the selected driver needs.
	SecretKeys []string
	// Checks are named liveness checks (database, redis, auth service).
	Checks  map[string]func(context.Context) error
	Breaker *resilience.Breaker

	// LogDropped reports log records lost to a full async buffer.
	LogDropped func() int64
}

// Index renders the auth forms or the panel for the calling client.
func (h *Handlers) Index(w http.ResponseWriter, r *http.Request) {
	view := h.Sessions.Render(r.Context(), middleware.ClientIDFromContext(r.Context()))
	h.writePage(w, r, http.StatusOK, view, formState{})
}

// SignIn handles the sign-in form. Success sets the rotated client cookie
// and redirects to the panel; failure re-renders the form with the error
// inline.
func (h *Handlers) SignIn(w http.ResponseWriter, r *http.Request) {
	creds, ok := readCredentials(w, r)
	if !ok {
		return
	}
	clientID := middleware.ClientIDFromContext(r.Context())

	newID, err := h.Sessions.SignIn(r.Context(), clientID, creds)
	if err != nil {
		view := h.Sessions.Render(r.Context(), clientID)
		h.writePage(w, r, formErrorStatus(err), view, formState{Email: creds.Email, SignInError: userMessage(err)})
		return
	}
	h.ClientCookie.Issue(w, newID)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// SignUp handles the sign-up form. The client stays signed out either way;
// the outcome is shown on the re-rendered page.
func (h *Handlers) SignUp(w http.ResponseWriter, r *http.Request) {
	creds, ok := readCredentials(w, r)
	if !ok {
		return
	}
	clientID := middleware.ClientIDFromContext(r.Context())

	notice, err := h.Sessions.SignUp(r.Context(), creds)
	view := h.Sessions.Render(r.Context(), clientID)
	if err != nil {
		h.writePage(w, r, formErrorStatus(err), view, formState{Email: creds.Email, SignUpError: userMessage(err)})
		return
	}
	view.Notices = append(view.Notices, notice)
	h.writePage(w, r, http.StatusOK, view, formState{Email: creds.Email})
}

// SignOut ends the client's session and redirects to the forms.
func (h *Handlers) SignOut(w http.ResponseWriter, r *http.Request) {
	h.Sessions.SignOut(r.Context(), middleware.ClientIDFromContext(r.Context()))
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// Refresh drops the cached tables so the next render refetches them.
// Anonymous clients are sent back to the forms.
func (h *Handlers) Refresh(w http.ResponseWriter, r *http.Request) {
	if _, ok := h.Sessions.Session(middleware.ClientIDFromContext(r.Context())); !ok || h.Cache == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	for _, table := range market.Tables {
		if err := h.Cache.Invalidate(r.Context(), table); err != nil {
			slog.WarnContext(r.Context(), "refresh", "table", table, "error", err)
		}
	}
	slog.InfoContext(r.Context(), "panel data refreshed")
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

type panelResponse struct {
	Email string         `json:"email"`
	Panel *service.Panel `json:"panel"`
}

// Panel returns the panel as JSON for a signed-in client.
func (h *Handlers) Panel(w http.ResponseWriter, r *http.Request) {
	s, panel, ok := h.Sessions.PanelFor(r.Context(), middleware.ClientIDFromContext(r.Context()))
	if !ok {
		writeError(w, http.StatusUnauthorized, "not signed in")
		return
	}
	writeJSON(w, http.StatusOK, panelResponse{Email: s.Email, Panel: panel})
}

type secretStatus struct {
	Present bool   `json:"present"`
	Masked  string `json:"masked,omitempty"`
}

type healthStatus struct {
	Status     string                  `json:"status"`
	Driver     string                  `json:"driver"`
	Secrets    map[string]secretStatus `json:"secrets,omitempty"`
	Checks     map[string]string       `json:"checks,omitempty"`
	Breaker    string                  `json:"breaker,omitempty"`
	Sessions   int                     `json:"sessions"`
	LogDropped int64                   `json:"log_dropped,omitempty"`
}

// HandleHealth reports configuration and backend reachability. It answers
// 200 even when degraded: a missing secret is not fixed by a restart.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	status := healthStatus{
		Status:   "ok",
		Driver:   h.Health.Driver,
		Sessions: h.Sessions.ActiveSessions(),
	}

	if h.Health.Secrets != nil && len(h.Health.SecretKeys) > 0 {
		status.Secrets = make(map[string]secretStatus, len(h.Health.SecretKeys))
		for _, key := range h.Health.SecretKeys {
			s := secretStatus{Present: h.Health.Secrets.Get(key) != ""}
			if s.Present && key != secrets.SupabaseURL {
				s.Masked = h.Health.Secrets.Masked(key)
			}
			if !s.Present {
				status.Status = "degraded"
			}
			status.Secrets[key] = s
		}
	}

	if len(h.Health.Checks) > 0 {
		status.Checks = make(map[string]string, len(h.Health.Checks))
		for name, check := range h.Health.Checks {
			if err := check(r.Context()); err != nil {
				slog.WarnContext(r.Context(), "health check failed", "check", name, "error", err)
				status.Checks[name] = "error"
				status.Status = "degraded"
				continue
			}
			status.Checks[name] = "ok"
		}
	}

	if h.Health.Breaker != nil {
		status.Breaker = h.Health.Breaker.State()
		if status.Breaker == "open" {
			status.Status = "degraded"
		}
	}

	if h.Health.LogDropped != nil {
		status.LogDropped = h.Health.LogDropped()
	}

	writeJSON(w, http.StatusOK, status)
}

func (h *Handlers) writePage(w http.ResponseWriter, r *http.Request, code int, view service.View, form formState) {
	var buf bytes.Buffer
	if err := renderPage(&buf, view, form); err != nil {
		slog.ErrorContext(r.Context(), "render page", "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

// readCredentials parses the email/password form.
func readCredentials(w http.ResponseWriter, r *http.Request) (user.Credentials, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormSize)
	if err := r.ParseForm(); err != nil {
		http.Error(w, "invalid form", http.StatusBadRequest)
		return user.Credentials{}, false
	}
	return user.Credentials{
		Email:    r.PostForm.Get("email"),
		Password: r.PostForm.Get("password"),
	}, true
}

// formErrorStatus maps a failed form action to the status of the re-rendered page.
func formErrorStatus(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrAuth):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusServiceUnavailable
	}
}
