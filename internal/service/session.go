package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	cfotel "github.com/bussola-offshore/bussola/internal/adapter/otel"
	"github.com/bussola-offshore/bussola/internal/domain"
	"github.com/bussola-offshore/bussola/internal/domain/session"
	"github.com/bussola-offshore/bussola/internal/domain/user"
	"github.com/bussola-offshore/bussola/internal/port/authprovider"
)

// PanelLoader builds the panel for an authenticated client.
type PanelLoader interface {
	Load(ctx context.Context) *Panel
}

// View is everything one page render needs.
type View struct {
	State   session.State
	Session *session.Session
	// Panel is set only for authenticated clients.
	Panel *Panel
	// Notices are one-shot messages queued by the previous action.
	Notices []session.Notice
	// ConfigError is the configuration problem blocking data access, if any.
	ConfigError string
}

// SessionRouter decides per request whether a client sees the auth forms or
// the panel, and owns the in-memory session table. Sessions do not survive
// a restart.
type SessionRouter struct {
	auth      authprovider.Provider
	panels    PanelLoader
	configErr error
	metrics   *cfotel.Metrics

	mu       sync.RWMutex
	sessions map[string]*session.Session
	flash    map[string][]session.Notice

	now   func() time.Time // for testing
	newID func() string
}

// NewSessionRouter creates a router. configErr, when non-nil, is shown on
// every page; auth and panels are expected to fail accordingly.
func NewSessionRouter(auth authprovider.Provider, panels PanelLoader, configErr error) *SessionRouter {
	return &SessionRouter{
		auth:      auth,
		panels:    panels,
		configErr: configErr,
		sessions:  make(map[string]*session.Session),
		flash:     make(map[string][]session.Notice),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// SetMetrics attaches the auth attempt counter.
func (r *SessionRouter) SetMetrics(m *cfotel.Metrics) {
	r.metrics = m
}

// Session returns the client's session, if signed in.
func (r *SessionRouter) Session(clientID string) (*session.Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.sessions[clientID]
	if !ok {
		return nil, false
	}
	cp := *s
	return &cp, true
}

// Render produces the view for clientID and consumes its queued notices.
func (r *SessionRouter) Render(ctx context.Context, clientID string) View {
	v := View{State: session.StateAnonymous}
	if r.configErr != nil {
		v.ConfigError = r.configErr.Error()
	}

	r.mu.Lock()
	v.Notices = r.flash[clientID]
	delete(r.flash, clientID)
	r.mu.Unlock()

	s, ok := r.Session(clientID)
	if !ok {
		return v
	}
	v.State = session.StateAuthenticated
	v.Session = s
	v.Panel = r.panels.Load(ctx)
	return v
}

// PanelFor builds the panel for a signed-in client. Unlike Render it leaves
// queued notices in place.
func (r *SessionRouter) PanelFor(ctx context.Context, clientID string) (*session.Session, *Panel, bool) {
	s, ok := r.Session(clientID)
	if !ok {
		return nil, nil, false
	}
	return s, r.panels.Load(ctx), true
}

// SignIn authenticates the client and returns its new client id. The
// session is never bound to the id the browser arrived with: that id is
// retired along with any session it held, and its queued notices move to
// the new id. On failure the client stays anonymous under its old id and
// the error is meant for display next to the form.
func (r *SessionRouter) SignIn(ctx context.Context, clientID string, creds user.Credentials) (string, error) {
	creds.Normalize()
	if err := creds.ValidateSignIn(); err != nil {
		return clientID, err
	}

	ctx, span := cfotel.StartAuthSpan(ctx, "sign_in")
	defer span.End()

	id, err := r.auth.SignIn(ctx, creds.Email, creds.Password)
	r.countAttempt(ctx, "sign_in", err)
	if err != nil {
		span.RecordError(err)
		logAuthFailure(ctx, "sign in", err)
		return clientID, err
	}

	newID := r.newID()

	r.mu.Lock()
	delete(r.sessions, clientID)
	if pending, ok := r.flash[clientID]; ok {
		r.flash[newID] = pending
		delete(r.flash, clientID)
	}
	r.sessions[newID] = &session.Session{
		ClientID:    newID,
		UserID:      id.UserID,
		Email:       id.Email,
		AccessToken: id.AccessToken,
		SignedInAt:  r.now().UTC(),
	}
	r.flash[newID] = append(r.flash[newID], session.Notice{
		Level:   session.NoticeSuccess,
		Message: "Signed in as " + id.Email + ".",
	})
	r.mu.Unlock()

	slog.InfoContext(ctx, "signed in", "user_id", id.UserID)
	return newID, nil
}

// SignUp registers an account without signing in. The returned notice tells
// the user what to do next.
func (r *SessionRouter) SignUp(ctx context.Context, creds user.Credentials) (session.Notice, error) {
	creds.Normalize()
	if err := creds.ValidateSignUp(); err != nil {
		return session.Notice{}, err
	}

	ctx, span := cfotel.StartAuthSpan(ctx, "sign_up")
	defer span.End()

	res, err := r.auth.SignUp(ctx, creds.Email, creds.Password)
	r.countAttempt(ctx, "sign_up", err)
	if err != nil {
		span.RecordError(err)
		logAuthFailure(ctx, "sign up", err)
		return session.Notice{}, err
	}

	if res.ConfirmationSent {
		return session.Notice{
			Level:   session.NoticeSuccess,
			Message: "Sign-up received. Check " + res.Email + " for the verification link, then sign in.",
		}, nil
	}
	return session.Notice{
		Level:   session.NoticeSuccess,
		Message: "Account created for " + res.Email + ". You can sign in now.",
	}, nil
}

// SignOut destroys the client's session. A failure to revoke the token
// remotely is logged; the local session is removed regardless.
func (r *SessionRouter) SignOut(ctx context.Context, clientID string) {
	r.mu.Lock()
	s, ok := r.sessions[clientID]
	delete(r.sessions, clientID)
	if ok {
		r.flash[clientID] = append(r.flash[clientID], session.Notice{
			Level:   session.NoticeInfo,
			Message: "Signed out.",
		})
	}
	r.mu.Unlock()

	if !ok {
		return
	}

	ctx, span := cfotel.StartAuthSpan(ctx, "sign_out")
	defer span.End()

	if err := r.auth.SignOut(ctx, s.AccessToken); err != nil {
		span.RecordError(err)
		slog.WarnContext(ctx, "remote sign out failed", "user_id", s.UserID, "error", err)
		return
	}
	slog.InfoContext(ctx, "signed out", "user_id", s.UserID)
}

// ActiveSessions returns the number of signed-in clients.
func (r *SessionRouter) ActiveSessions() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *SessionRouter) countAttempt(ctx context.Context, action string, err error) {
	if r.metrics == nil {
		return
	}
	outcome := "ok"
	switch {
	case errors.Is(err, domain.ErrAuth):
		outcome = "rejected"
	case err != nil:
		outcome = "error"
	}
	r.metrics.AuthAttempts.Add(ctx, 1, metric.WithAttributes(
		attribute.String("action", action),
		attribute.String("outcome", outcome),
	))
}

// logAuthFailure logs rejections at info and everything else at warn.
func logAuthFailure(ctx context.Context, action string, err error) {
	if errors.Is(err, domain.ErrAuth) {
		slog.InfoContext(ctx, action+" rejected", "error", err)
		return
	}
	slog.WarnContext(ctx, action+" failed", "error", err)
}
