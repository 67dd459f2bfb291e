// Package secrets provides a thread-safe secret vault with hot reload support.
// The dashboard keeps the hosted backend's URL and access key here.
package secrets

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bussola-offshore/bussola/internal/domain"
)

// Names of the hosted backend secrets.
const (
	SupabaseURL = "SUPABASE_URL"
	SupabaseKey = "SUPABASE_KEY"
)

// maskPrefix is how many leading characters Masked reveals.
const maskPrefix = 5

// Loader retrieves secrets from a source (env vars, .env file, remote vault, etc.).
type Loader func() (map[string]string, error)

// Vault holds secret values in memory and supports atomic reloading.
type Vault struct {
	mu     sync.RWMutex
	values map[string]string
	loader Loader
}

// NewVault creates a Vault, calling the loader once to populate initial values.
func NewVault(loader Loader) (*Vault, error) {
	vals, err := loader()
	if err != nil {
		return nil, fmt.Errorf("initial secret load: %w", err)
	}
	return &Vault{
		values: vals,
		loader: loader,
	}, nil
}

// Get returns the secret for key, or an empty string if not found.
func (v *Vault) Get(key string) string {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.values[key]
}

// Require returns an error wrapping domain.ErrConfiguration that names every
// key without a value, or nil when all are present.
func (v *Vault) Require(keys ...string) error {
	v.mu.RLock()
	defer v.mu.RUnlock()

	var missing []string
	for _, k := range keys {
		if v.values[k] == "" {
			missing = append(missing, k)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return fmt.Errorf("%w: secret %s not found", domain.ErrConfiguration, strings.Join(missing, ", "))
}

// Masked returns the first five characters of the secret followed by "...",
// the form shown on the health endpoint. Missing keys return "".
func (v *Vault) Masked(key string) string {
	val := v.Get(key)
	if val == "" {
		return ""
	}
	if len(val) <= maskPrefix {
		return "..."
	}
	return val[:maskPrefix] + "..."
}

// Reload calls the loader and swaps in the new values atomically.
// If the loader returns an error, existing values are preserved.
func (v *Vault) Reload() error {
	newVals, err := v.loader()
	if err != nil {
		return fmt.Errorf("reload secrets: %w", err)
	}
	v.mu.Lock()
	v.values = newVals
	v.mu.Unlock()
	return nil
}
