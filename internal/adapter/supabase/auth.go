package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"

	"github.com/bussola-offshore/bussola/internal/domain"
	"github.com/bussola-offshore/bussola/internal/port/authprovider"
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request field
}

type authUser struct {
	ID                 string `json:"id"`
	Email              string `json:"email"`
	ConfirmationSentAt string `json:"confirmation_sent_at"`
}

// sessionResponse covers both shapes GoTrue returns: a session with a nested
// user, or (sign-up with confirmations on) the bare user object.
type sessionResponse struct {
	AccessToken string    `json:"access_token"` //nolint:gosec // response field
	User        *authUser `json:"user"`
	authUser
}

// SignUp registers an account. With email confirmations enabled GoTrue
// mails a verification link and returns no session.
func (c *Client) SignUp(ctx context.Context, email, password string) (*authprovider.SignUpResult, error) {
	path := "/auth/v1/signup"
	if c.redirectTo != "" {
		path += "?redirect_to=" + url.QueryEscape(c.redirectTo)
	}

	data, err := c.doRequest(ctx, http.MethodPost, path, "", credentials{Email: email, Password: password})
	if err != nil {
		return nil, authError("sign up", err)
	}

	var resp sessionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("sign up: decode: %w", err)
	}

	u := resp.authUser
	if resp.User != nil {
		u = *resp.User
	}
	if u.Email == "" {
		u.Email = email
	}
	return &authprovider.SignUpResult{
		Email:            u.Email,
		ConfirmationSent: resp.AccessToken == "" || u.ConfirmationSentAt != "",
	}, nil
}

// SignIn exchanges email and password for a session.
func (c *Client) SignIn(ctx context.Context, email, password string) (*authprovider.Identity, error) {
	data, err := c.doRequest(ctx, http.MethodPost, "/auth/v1/token?grant_type=password", "", credentials{Email: email, Password: password})
	if err != nil {
		return nil, authError("sign in", err)
	}

	var resp sessionResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("sign in: decode: %w", err)
	}
	if resp.AccessToken == "" || resp.User == nil {
		return nil, fmt.Errorf("sign in: %w: response without session", domain.ErrAuth)
	}

	return &authprovider.Identity{
		UserID:      resp.User.ID,
		Email:       resp.User.Email,
		AccessToken: resp.AccessToken,
	}, nil
}

// SignOut revokes the session behind accessToken.
func (c *Client) SignOut(ctx context.Context, accessToken string) error {
	if _, err := c.doRequest(ctx, http.MethodPost, "/auth/v1/logout", accessToken, nil); err != nil {
		return fmt.Errorf("sign out: %w", err)
	}
	return nil
}

// authError marks refusals (4xx other than 429) as domain.ErrAuth, keeping
// the provider's message for the inline form error.
func authError(action string, err error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && !IsBackendFailure(err) {
		return fmt.Errorf("%s: %w: %s", action, domain.ErrAuth, apiErr.Message)
	}
	return fmt.Errorf("%s: %w", action, err)
}
