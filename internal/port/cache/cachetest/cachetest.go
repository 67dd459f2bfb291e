// Package cachetest holds the compliance suite every cache.Cache adapter must pass.
package cachetest

import (
	"context"
	"testing"
	"time"

	"github.com/bussola-offshore/bussola/internal/port/cache"
)

// Run exercises c with the behaviour the data cache relies on. Adapters that
// apply writes asynchronously must make Set visible before returning.
func Run(t *testing.T, c cache.Cache) {
	t.Helper()
	ctx := context.Background()

	t.Run("SetAndGet", func(t *testing.T) {
		if err := c.Set(ctx, "rows:asset_managers", []byte(`{"records":[]}`), time.Minute); err != nil {
			t.Fatal(err)
		}
		val, found, err := c.Get(ctx, "rows:asset_managers")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after Set")
		}
		if string(val) != `{"records":[]}` {
			t.Fatalf("unexpected value %s", val)
		}
	})

	t.Run("GetMiss", func(t *testing.T) {
		_, found, err := c.Get(ctx, "rows:never_fetched")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss for nonexistent key")
		}
	})

	t.Run("Delete", func(t *testing.T) {
		_ = c.Set(ctx, "rows:weekly_synthesis", []byte("v"), time.Minute)
		if err := c.Delete(ctx, "rows:weekly_synthesis"); err != nil {
			t.Fatal(err)
		}
		_, found, err := c.Get(ctx, "rows:weekly_synthesis")
		if err != nil {
			t.Fatal(err)
		}
		if found {
			t.Fatal("expected miss after Delete")
		}
	})

	t.Run("DeleteNonexistent", func(t *testing.T) {
		if err := c.Delete(ctx, "never-existed"); err != nil {
			t.Fatal("Delete of nonexistent key should not error")
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		_ = c.Set(ctx, "rows:macro_data_points", []byte("v1"), time.Minute)
		_ = c.Set(ctx, "rows:macro_data_points", []byte("v2"), time.Minute)
		val, found, err := c.Get(ctx, "rows:macro_data_points")
		if err != nil {
			t.Fatal(err)
		}
		if !found {
			t.Fatal("expected found after overwrite")
		}
		if string(val) != "v2" {
			t.Fatalf("expected v2 after overwrite, got %s", val)
		}
	})
}
