package secrets

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// EnvLoader returns a Loader that reads the specified environment variables.
// Missing variables are silently omitted from the result map.
func EnvLoader(keys ...string) Loader {
	return func() (map[string]string, error) {
		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			if v := os.Getenv(k); v != "" {
				vals[k] = v
			}
		}
		return vals, nil
	}
}

// DotenvLoader returns a Loader that reads the specified keys from a .env
// file without touching the process environment. A missing file yields an
// empty map.
func DotenvLoader(path string, keys ...string) Loader {
	return func() (map[string]string, error) {
		all, err := godotenv.Read(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return map[string]string{}, nil
			}
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		vals := make(map[string]string, len(keys))
		for _, k := range keys {
			if v := all[k]; v != "" {
				vals[k] = v
			}
		}
		return vals, nil
	}
}

// Chain merges loaders left to right; later loaders override earlier ones
// for keys they provide.
func Chain(loaders ...Loader) Loader {
	return func() (map[string]string, error) {
		merged := make(map[string]string)
		for _, l := range loaders {
			vals, err := l()
			if err != nil {
				return nil, err
			}
			for k, v := range vals {
				merged[k] = v
			}
		}
		return merged, nil
	}
}
