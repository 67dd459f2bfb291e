// Package authprovider defines the port interface for email/password sessions.
package authprovider

import (
	"context"
	"fmt"

	"github.com/bussola-offshore/bussola/internal/domain"
)

// Identity is returned by a successful sign-in.
type Identity struct {
	UserID      string
	Email       string
	AccessToken string //nolint:gosec // runtime value, not a hardcoded secret
}

// SignUpResult describes what the user must do after signing up.
type SignUpResult struct {
	Email string
	// ConfirmationSent is true when the provider mailed a verification link
	// that must be followed before sign-in succeeds.
	ConfirmationSent bool
}

// Provider is the port interface for the session service.
// Implementations wrap rejected credentials in domain.ErrAuth.
type Provider interface {
	SignUp(ctx context.Context, email, password string) (*SignUpResult, error)
	SignIn(ctx context.Context, email, password string) (*Identity, error)
	SignOut(ctx context.Context, accessToken string) error
}

// Unavailable is a Provider used when the session service is not configured.
type Unavailable struct {
	Reason string
}

func (u Unavailable) err() error {
	return fmt.Errorf("%w: %s", domain.ErrConfiguration, u.Reason)
}

// SignUp always fails.
func (u Unavailable) SignUp(context.Context, string, string) (*SignUpResult, error) {
	return nil, u.err()
}

// SignIn always fails.
func (u Unavailable) SignIn(context.Context, string, string) (*Identity, error) {
	return nil, u.err()
}

// SignOut always fails.
func (u Unavailable) SignOut(context.Context, string) error {
	return u.err()
}
