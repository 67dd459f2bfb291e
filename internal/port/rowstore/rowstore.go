// Package rowstore defines the port interface for the remote table store.
package rowstore

import (
	"context"
	"fmt"

	"github.com/bussola-offshore/bussola/internal/domain"
)

// Record is one row keyed by column name. Values are scalars as delivered by
// the backend (json.Number, string, bool, time.Time, Go numeric types, nil).
type Record = map[string]any

// Store is the port interface for reading whole tables.
type Store interface {
	// SelectAll returns every row of table. It has no filters: the dashboard
	// always reads complete tables.
	SelectAll(ctx context.Context, table string) ([]Record, error)
}

// Unavailable is a Store used when the backend is not configured. Every call
// fails with an error wrapping domain.ErrConfiguration.
type Unavailable struct {
	Reason string
}

// SelectAll always fails.
func (u Unavailable) SelectAll(_ context.Context, table string) ([]Record, error) {
	return nil, fmt.Errorf("select %s: %w: %s", table, domain.ErrConfiguration, u.Reason)
}
