package secrets_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/bussola-offshore/bussola/internal/domain"
	"github.com/bussola-offshore/bussola/internal/secrets"
)

func TestNewVault_InitialLoad(t *testing.T) {
	v, err := secrets.NewVault(func() (map[string]string, error) {
		return map[string]string{secrets.SupabaseURL: "https://x.supabase.co", secrets.SupabaseKey: "anon-key"}, nil
	})
	if err != nil {
		t.Fatalf("NewVault failed: %v", err)
	}

	if got := v.Get(secrets.SupabaseURL); got != "https://x.supabase.co" {
		t.Fatalf("expected url, got %q", got)
	}
	if got := v.Get(secrets.SupabaseKey); got != "anon-key" {
		t.Fatalf("expected key, got %q", got)
	}
}

func TestNewVault_LoaderError(t *testing.T) {
	_, err := secrets.NewVault(func() (map[string]string, error) {
		return nil, errors.New("connection refused")
	})
	if err == nil {
		t.Fatal("expected error from failing loader")
	}
}

func TestVault_Require(t *testing.T) {
	v, _ := secrets.NewVault(func() (map[string]string, error) {
		return map[string]string{secrets.SupabaseURL: "https://x.supabase.co"}, nil
	})

	if err := v.Require(secrets.SupabaseURL); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := v.Require(secrets.SupabaseURL, secrets.SupabaseKey)
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if !strings.Contains(err.Error(), "SUPABASE_KEY") {
		t.Fatalf("error should name the missing secret: %q", err.Error())
	}
	if strings.Contains(err.Error(), "SUPABASE_URL") {
		t.Fatalf("error should not name present secrets: %q", err.Error())
	}
}

func TestVault_Masked(t *testing.T) {
	v, _ := secrets.NewVault(func() (map[string]string, error) {
		return map[string]string{"LONG": "eyJhbGciOiJIUzI1NiJ9", "SHORT": "abc"}, nil
	})

	if got := v.Masked("LONG"); got != "eyJhb..." {
		t.Errorf("expected 'eyJhb...', got %q", got)
	}
	if got := v.Masked("SHORT"); got != "..." {
		t.Errorf("expected '...', got %q", got)
	}
	if got := v.Masked("MISSING"); got != "" {
		t.Errorf("expected empty string for missing key, got %q", got)
	}
}

func TestVault_ReloadErrorPreservesValues(t *testing.T) {
	callCount := 0
	v, _ := secrets.NewVault(func() (map[string]string, error) {
		callCount++
		if callCount == 1 {
			return map[string]string{"KEY": "original"}, nil
		}
		return nil, errors.New("vault unavailable")
	})

	if err := v.Reload(); err == nil {
		t.Fatal("expected reload error")
	}

	// Original values must be preserved.
	if got := v.Get("KEY"); got != "original" {
		t.Fatalf("expected 'original' after failed reload, got %q", got)
	}
}

func TestVault_ConcurrentAccess(t *testing.T) {
	v, _ := secrets.NewVault(func() (map[string]string, error) {
		return map[string]string{"K": "V"}, nil
	})

	var wg sync.WaitGroup
	for range 100 {
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = v.Get("K")
		}()
		go func() {
			defer wg.Done()
			_ = v.Reload()
		}()
	}
	wg.Wait()
}

func TestEnvLoader(t *testing.T) {
	t.Setenv("BUSSOLA_TEST_SECRET", "mysecret")
	loader := secrets.EnvLoader("BUSSOLA_TEST_SECRET", "BUSSOLA_MISSING_SECRET")

	vals, err := loader()
	if err != nil {
		t.Fatalf("EnvLoader failed: %v", err)
	}
	if vals["BUSSOLA_TEST_SECRET"] != "mysecret" {
		t.Fatalf("expected 'mysecret', got %q", vals["BUSSOLA_TEST_SECRET"])
	}
	if _, ok := vals["BUSSOLA_MISSING_SECRET"]; ok {
		t.Fatal("missing env var should be omitted")
	}
}

func TestDotenvLoader(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	content := "SUPABASE_URL=https://file.supabase.co\nSUPABASE_KEY=file-key\nOTHER=ignored\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	vals, err := secrets.DotenvLoader(path, secrets.SupabaseURL, secrets.SupabaseKey)()
	if err != nil {
		t.Fatalf("DotenvLoader failed: %v", err)
	}
	if vals[secrets.SupabaseURL] != "https://file.supabase.co" || vals[secrets.SupabaseKey] != "file-key" {
		t.Fatalf("unexpected values %v", vals)
	}
	if _, ok := vals["OTHER"]; ok {
		t.Fatal("unrequested key should be omitted")
	}
}

func TestDotenvLoader_MissingFile(t *testing.T) {
	vals, err := secrets.DotenvLoader(filepath.Join(t.TempDir(), "nope.env"), secrets.SupabaseURL)()
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if len(vals) != 0 {
		t.Fatalf("expected empty map, got %v", vals)
	}
}

func TestChain_LaterLoaderWins(t *testing.T) {
	first := func() (map[string]string, error) {
		return map[string]string{"A": "file", "B": "file"}, nil
	}
	second := func() (map[string]string, error) {
		return map[string]string{"B": "env"}, nil
	}

	vals, err := secrets.Chain(first, second)()
	if err != nil {
		t.Fatal(err)
	}
	if vals["A"] != "file" || vals["B"] != "env" {
		t.Fatalf("unexpected merge result %v", vals)
	}
}

func TestChain_PropagatesError(t *testing.T) {
	failing := func() (map[string]string, error) { return nil, errors.New("boom") }
	if _, err := secrets.Chain(secrets.EnvLoader("X"), failing)(); err == nil {
		t.Fatal("expected error")
	}
}
