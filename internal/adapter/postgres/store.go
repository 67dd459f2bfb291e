package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bussola-offshore/bussola/internal/domain"
	"github.com/bussola-offshore/bussola/internal/domain/market"
	"github.com/bussola-offshore/bussola/internal/port/rowstore"
)

// Store implements rowstore.Store and database.UserStore using PostgreSQL.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store backed by the given connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Ping checks that the database answers, for the health endpoint.
func (s *Store) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// --- Market tables ---

// SelectAll returns every row of one of the market tables as column maps.
// Table names outside market.Tables are rejected rather than interpolated.
func (s *Store) SelectAll(ctx context.Context, table string) ([]rowstore.Record, error) {
	if !slices.Contains(market.Tables, table) {
		return nil, fmt.Errorf("select %s: %w: unknown table", table, domain.ErrFetch)
	}

	rows, err := s.pool.Query(ctx, "SELECT * FROM "+pgx.Identifier{table}.Sanitize())
	if err != nil {
		return nil, fmt.Errorf("select %s: %w: %w", table, domain.ErrFetch, err)
	}

	records, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, fmt.Errorf("select %s: %w: %w", table, domain.ErrFetch, err)
	}
	return orEmpty(records), nil
}
