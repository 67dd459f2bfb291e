package user

import (
	"errors"
	"testing"

	"github.com/bussola-offshore/bussola/internal/domain"
)

func TestCredentials_ValidateSignUp(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr string
	}{
		{name: "valid", creds: Credentials{Email: "a@b.com", Password: "123456"}},
		{name: "missing email", creds: Credentials{Password: "123456"}, wantErr: "validation failed: email is required"},
		{name: "invalid email", creds: Credentials{Email: "bad", Password: "123456"}, wantErr: "validation failed: invalid email format"},
		{name: "missing password", creds: Credentials{Email: "a@b.com"}, wantErr: "validation failed: password is required"},
		{name: "short password", creds: Credentials{Email: "a@b.com", Password: "12345"}, wantErr: "validation failed: password must be at least 6 characters"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.ValidateSignUp()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error %q, got nil", tt.wantErr)
			}
			if !errors.Is(err, domain.ErrValidation) {
				t.Fatalf("expected ErrValidation, got %v", err)
			}
			if got := err.Error(); got != tt.wantErr {
				t.Fatalf("error = %q, want %q", got, tt.wantErr)
			}
		})
	}
}

func TestCredentials_ValidateSignIn(t *testing.T) {
	tests := []struct {
		name    string
		creds   Credentials
		wantErr bool
	}{
		{name: "valid", creds: Credentials{Email: "a@b.com", Password: "x"}},
		{name: "missing email", creds: Credentials{Password: "x"}, wantErr: true},
		{name: "missing password", creds: Credentials{Email: "a@b.com"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.creds.ValidateSignIn()
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestCredentials_Normalize(t *testing.T) {
	c := Credentials{Email: "  Ana@Example.COM "}
	c.Normalize()
	if c.Email != "ana@example.com" {
		t.Fatalf("email = %q", c.Email)
	}
}
