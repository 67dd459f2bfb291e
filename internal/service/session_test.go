package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/bussola-offshore/bussola/internal/domain"
	"github.com/bussola-offshore/bussola/internal/domain/session"
	"github.com/bussola-offshore/bussola/internal/domain/user"
	"github.com/bussola-offshore/bussola/internal/port/authprovider"
)

func TestSessionRouter_AnonymousRender(t *testing.T) {
	panels := &stubPanels{}
	r := NewSessionRouter(&fakeProvider{}, panels, nil)

	v := r.Render(context.Background(), "c1")

	if v.State != session.StateAnonymous || v.Session != nil || v.Panel != nil {
		t.Fatalf("unexpected view: %+v", v)
	}
	if panels.loads.Load() != 0 {
		t.Fatal("anonymous render must not load data")
	}
}

func TestSessionRouter_SignInRenderSignOut(t *testing.T) {
	prov := &fakeProvider{}
	panels := &stubPanels{}
	r := NewSessionRouter(prov, panels, nil)
	ctx := context.Background()

	id, err := r.SignIn(ctx, "c1", user.Credentials{Email: "Ana@Example.com", Password: "x"})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if id == "c1" {
		t.Fatal("sign in must issue a new client id")
	}

	v := r.Render(ctx, id)
	if v.State != session.StateAuthenticated || v.Session.Email != "ana@example.com" {
		t.Fatalf("unexpected view: %+v", v)
	}
	if v.Panel == nil || panels.loads.Load() != 1 {
		t.Fatal("authenticated render should load the panel")
	}
	if len(v.Notices) != 1 || v.Notices[0].Level != session.NoticeSuccess {
		t.Fatalf("expected sign-in notice, got %v", v.Notices)
	}

	if again := r.Render(ctx, id); len(again.Notices) != 0 {
		t.Fatalf("notices should be shown once, got %v", again.Notices)
	}

	if other := r.Render(ctx, "c2"); other.State != session.StateAnonymous {
		t.Fatal("sessions must not leak across clients")
	}
	if old := r.Render(ctx, "c1"); old.State != session.StateAnonymous {
		t.Fatal("the pre-sign-in id must stay anonymous")
	}

	r.SignOut(ctx, id)
	if prov.signOutCall.Load() != 1 || prov.lastToken.Load() != "tok-ana@example.com" {
		t.Fatal("expected remote sign out with the session token")
	}
	v = r.Render(ctx, id)
	if v.State != session.StateAnonymous {
		t.Fatal("expected anonymous after sign out")
	}
	if len(v.Notices) != 1 || v.Notices[0].Level != session.NoticeInfo {
		t.Fatalf("expected sign-out notice, got %v", v.Notices)
	}
}

func TestSessionRouter_SignInFailureKeepsState(t *testing.T) {
	tests := []struct {
		name  string
		creds user.Credentials
		err   error
		want  error
	}{
		{"rejected", user.Credentials{Email: "a@b.com", Password: "x"}, fmt.Errorf("%w: invalid credentials", domain.ErrAuth), domain.ErrAuth},
		{"missing password", user.Credentials{Email: "a@b.com"}, nil, domain.ErrValidation},
		{"unconfigured", user.Credentials{Email: "a@b.com", Password: "x"}, fmt.Errorf("%w: SUPABASE_URL", domain.ErrConfiguration), domain.ErrConfiguration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewSessionRouter(&fakeProvider{signInErr: tt.err}, &stubPanels{}, nil)

			_, err := r.SignIn(context.Background(), "c1", tt.creds)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if v := r.Render(context.Background(), "c1"); v.State != session.StateAnonymous {
				t.Fatal("failed sign in must leave the client anonymous")
			}
		})
	}
}

func TestSessionRouter_SignUp(t *testing.T) {
	ctx := context.Background()

	r := NewSessionRouter(&fakeProvider{confirm: true}, &stubPanels{}, nil)
	n, err := r.SignUp(ctx, user.Credentials{Email: "bia@example.com", Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(n.Message, "verification") {
		t.Fatalf("notice = %q", n.Message)
	}

	r = NewSessionRouter(&fakeProvider{}, &stubPanels{}, nil)
	n, err = r.SignUp(ctx, user.Credentials{Email: "bia@example.com", Password: "secret1"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(n.Message, "Account created") {
		t.Fatalf("notice = %q", n.Message)
	}
	if r.ActiveSessions() != 0 {
		t.Fatal("sign up must not sign in")
	}

	if _, err := r.SignUp(ctx, user.Credentials{Email: "bia@example.com", Password: "123"}); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation for short password, got %v", err)
	}
}

func TestSessionRouter_RemoteSignOutFailureStillSignsOut(t *testing.T) {
	prov := &fakeProvider{signOutErr: errors.New("network down")}
	r := NewSessionRouter(prov, &stubPanels{}, nil)
	ctx := context.Background()

	id, err := r.SignIn(ctx, "c1", user.Credentials{Email: "a@b.com", Password: "x"})
	if err != nil {
		t.Fatal(err)
	}
	r.SignOut(ctx, id)

	if _, ok := r.Session(id); ok {
		t.Fatal("local session must be destroyed even if remote sign out fails")
	}
}

func TestSessionRouter_SignOutAnonymousIsNoop(t *testing.T) {
	prov := &fakeProvider{}
	r := NewSessionRouter(prov, &stubPanels{}, nil)

	r.SignOut(context.Background(), "nobody")

	if prov.signOutCall.Load() != 0 {
		t.Fatal("no remote call expected without a session")
	}
	if v := r.Render(context.Background(), "nobody"); len(v.Notices) != 0 {
		t.Fatalf("unexpected notices: %v", v.Notices)
	}
}

func TestSessionRouter_ConfigErrorShown(t *testing.T) {
	cfgErr := fmt.Errorf("%w: SUPABASE_KEY is not set", domain.ErrConfiguration)
	r := NewSessionRouter(authprovider.Unavailable{Reason: "SUPABASE_KEY is not set"}, &stubPanels{}, cfgErr)

	v := r.Render(context.Background(), "c1")
	if !strings.Contains(v.ConfigError, "SUPABASE_KEY") {
		t.Fatalf("config error = %q", v.ConfigError)
	}

	_, err := r.SignIn(context.Background(), "c1", user.Credentials{Email: "a@b.com", Password: "x"})
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestSessionRouter_ConcurrentClients(t *testing.T) {
	r := NewSessionRouter(&fakeProvider{}, &stubPanels{}, nil)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			email := fmt.Sprintf("c%d@example.com", i)
			id, err := r.SignIn(ctx, fmt.Sprintf("c%d", i), user.Credentials{Email: email, Password: "x"})
			if err != nil {
				t.Error(err)
				return
			}
			_ = r.Render(ctx, id)
			if i%2 == 0 {
				r.SignOut(ctx, id)
			}
		}()
	}
	wg.Wait()

	if got := r.ActiveSessions(); got != 25 {
		t.Fatalf("active sessions = %d, want 25", got)
	}
}

func TestSessionRouter_PanelForKeepsNotices(t *testing.T) {
	panels := &stubPanels{}
	r := NewSessionRouter(&fakeProvider{}, panels, nil)
	ctx := context.Background()

	if _, _, ok := r.PanelFor(ctx, "c1"); ok {
		t.Fatal("anonymous client must not get a panel")
	}
	if panels.loads.Load() != 0 {
		t.Fatal("anonymous request must not load data")
	}

	id, err := r.SignIn(ctx, "c1", user.Credentials{Email: "ana@example.com", Password: "x"})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	s, p, ok := r.PanelFor(ctx, id)
	if !ok || p == nil || s.Email != "ana@example.com" {
		t.Fatalf("PanelFor = %v, %v, %v", s, p, ok)
	}
	if v := r.Render(ctx, id); len(v.Notices) != 1 {
		t.Fatalf("sign-in notice should survive PanelFor, got %v", v.Notices)
	}
}

func TestSessionRouter_SignInRotatesClientID(t *testing.T) {
	r := NewSessionRouter(&fakeProvider{}, &stubPanels{}, nil)
	ids := []string{"fresh-1", "fresh-2"}
	r.newID = func() string {
		id := ids[0]
		ids = ids[1:]
		return id
	}
	ctx := context.Background()

	first, err := r.SignIn(ctx, "planted", user.Credentials{Email: "a@b.com", Password: "x"})
	if err != nil || first != "fresh-1" {
		t.Fatalf("SignIn = %q, %v", first, err)
	}
	_ = r.Render(ctx, first)
	r.SignOut(ctx, first)

	// The sign-out notice queued under the old id follows the client.
	second, err := r.SignIn(ctx, first, user.Credentials{Email: "c@d.com", Password: "x"})
	if err != nil || second != "fresh-2" {
		t.Fatalf("SignIn = %q, %v", second, err)
	}
	if _, ok := r.Session("planted"); ok {
		t.Fatal("pre-sign-in id must not carry a session")
	}
	if _, ok := r.Session(first); ok {
		t.Fatal("previous id must be retired")
	}
	v := r.Render(ctx, second)
	if v.Session == nil || v.Session.Email != "c@d.com" {
		t.Fatalf("unexpected view: %+v", v)
	}
	if len(v.Notices) != 2 || v.Notices[0].Message != "Signed out." {
		t.Fatalf("queued notices should move to the new id, got %v", v.Notices)
	}
}

func TestSessionRouter_FailedSignInKeepsClientID(t *testing.T) {
	r := NewSessionRouter(&fakeProvider{signInErr: domain.ErrAuth}, &stubPanels{}, nil)

	id, err := r.SignIn(context.Background(), "c1", user.Credentials{Email: "a@b.com", Password: "x"})
	if err == nil || id != "c1" {
		t.Fatalf("SignIn = %q, %v", id, err)
	}
}
