// Package user defines local dashboard accounts used when the row store is a
// self-hosted Postgres instead of the hosted backend.
package user

import (
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/bussola-offshore/bussola/internal/domain"
)

// MinPasswordLength matches the hosted auth service's default policy.
const MinPasswordLength = 6

// User is a local account.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"` // never serialized
	Enabled      bool      `json:"enabled"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Credentials is the email/password pair submitted by the sign-in and
// sign-up forms.
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"` //nolint:gosec // request field, not a hardcoded secret
}

// Normalize trims the email and lower-cases it.
func (c *Credentials) Normalize() {
	c.Email = strings.ToLower(strings.TrimSpace(c.Email))
}

// ValidateSignIn checks that both fields are present.
func (c *Credentials) ValidateSignIn() error {
	if c.Email == "" {
		return fmt.Errorf("%w: email is required", domain.ErrValidation)
	}
	if c.Password == "" {
		return fmt.Errorf("%w: password is required", domain.ErrValidation)
	}
	return nil
}

// ValidateSignUp additionally checks the email format and password length.
func (c *Credentials) ValidateSignUp() error {
	if err := c.ValidateSignIn(); err != nil {
		return err
	}
	if _, err := mail.ParseAddress(c.Email); err != nil {
		return fmt.Errorf("%w: invalid email format", domain.ErrValidation)
	}
	if len(c.Password) < MinPasswordLength {
		return fmt.Errorf("%w: password must be at least %d characters", domain.ErrValidation, MinPasswordLength)
	}
	return nil
}
