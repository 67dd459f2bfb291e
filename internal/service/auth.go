package service

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/bussola-offshore/bussola/internal/config"
	"github.com/bussola-offshore/bussola/internal/domain"
	"github.com/bussola-offshore/bussola/internal/domain/user"
	"github.com/bussola-offshore/bussola/internal/port/authprovider"
	"github.com/bussola-offshore/bussola/internal/port/database"
)

// AuthService is the session service for self-hosted deployments: local
// accounts with bcrypt-hashed passwords. It implements authprovider.Provider.
type AuthService struct {
	store database.UserStore
	cfg   *config.Auth

	// dummyHash is compared against when the email is unknown so every
	// failed sign-in costs one bcrypt comparison.
	dummyOnce sync.Once
	dummyHash []byte

	compare func(hash, password []byte) error // for testing
}

// NewAuthService creates a new authentication service.
func NewAuthService(store database.UserStore, cfg *config.Auth) *AuthService {
	return &AuthService{store: store, cfg: cfg, compare: bcrypt.CompareHashAndPassword}
}

// Register creates a new enabled user with a bcrypt-hashed password.
func (s *AuthService) Register(ctx context.Context, creds user.Credentials) (*user.User, error) {
	creds.Normalize()
	if err := creds.ValidateSignUp(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(creds.Password), s.cfg.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &user.User{
		ID:           uuid.NewString(),
		Email:        creds.Email,
		PasswordHash: string(hash),
		Enabled:      true,
	}

	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	slog.InfoContext(ctx, "user registered", "user_id", u.ID)
	return u, nil
}

// ListUsers returns every local account.
func (s *AuthService) ListUsers(ctx context.Context) ([]user.User, error) {
	return s.store.ListUsers(ctx)
}

// SignUp registers an account. Local accounts need no confirmation.
func (s *AuthService) SignUp(ctx context.Context, email, password string) (*authprovider.SignUpResult, error) {
	u, err := s.Register(ctx, user.Credentials{Email: email, Password: password})
	if err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, fmt.Errorf("sign up: %w: email already registered", domain.ErrAuth)
		}
		return nil, fmt.Errorf("sign up: %w", err)
	}
	return &authprovider.SignUpResult{Email: u.Email}, nil
}

// SignIn checks the password and issues an opaque session token.
func (s *AuthService) SignIn(ctx context.Context, email, password string) (*authprovider.Identity, error) {
	creds := user.Credentials{Email: email, Password: password}
	creds.Normalize()
	if err := creds.ValidateSignIn(); err != nil {
		return nil, fmt.Errorf("sign in: %w", err)
	}

	u, err := s.store.GetUserByEmail(ctx, creds.Email)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			return nil, fmt.Errorf("get user: %w", err)
		}
		_ = s.compare(s.fallbackHash(), []byte(creds.Password))
		return nil, errInvalidCredentials()
	}

	// Unknown, disabled and wrong-password sign-ins are indistinguishable.
	if err := s.compare([]byte(u.PasswordHash), []byte(creds.Password)); err != nil || !u.Enabled {
		return nil, errInvalidCredentials()
	}

	token, err := generateRandomToken(32)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}

	return &authprovider.Identity{UserID: u.ID, Email: u.Email, AccessToken: token}, nil
}

// SignOut has nothing to revoke: local tokens live only in the session table.
func (s *AuthService) SignOut(context.Context, string) error {
	return nil
}

// --- Helpers ---

func errInvalidCredentials() error {
	return fmt.Errorf("sign in: %w: invalid credentials", domain.ErrAuth)
}

// fallbackHash returns a hash at the configured cost that no password matches.
func (s *AuthService) fallbackHash() []byte {
	s.dummyOnce.Do(func() {
		pw, err := generateRandomToken(16)
		if err == nil {
			s.dummyHash, err = bcrypt.GenerateFromPassword([]byte(pw), s.cfg.BcryptCost)
		}
		if err != nil {
			slog.Warn("generate fallback hash", "error", err)
		}
	})
	return s.dummyHash
}

func generateRandomToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
