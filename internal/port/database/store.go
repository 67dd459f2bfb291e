// Package database defines the persistence port for local accounts.
package database

import (
	"context"

	"github.com/bussola-offshore/bussola/internal/domain/user"
)

// UserStore is the port interface for local account storage.
// Lookups of unknown users return an error wrapping domain.ErrNotFound;
// creating a duplicate email returns one wrapping domain.ErrConflict.
type UserStore interface {
	CreateUser(ctx context.Context, u *user.User) error
	GetUserByEmail(ctx context.Context, email string) (*user.User, error)
	ListUsers(ctx context.Context) ([]user.User, error)
}
