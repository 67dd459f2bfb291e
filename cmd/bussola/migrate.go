package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/bussola-offshore/bussola/internal/adapter/postgres"
	"github.com/bussola-offshore/bussola/internal/config"
)

// runMigrate dispatches migrate subcommands (up, down, status) against
// postgres.dsn.
func runMigrate(args []string) error {
	if len(args) == 0 || args[0] == "help" || args[0] == "--help" {
		printMigrateHelp()
		return nil
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Postgres.DSN == "" {
		return fmt.Errorf("postgres.dsn (DATABASE_URL) is required")
	}
	ctx := context.Background()

	switch args[0] {
	case "up":
		if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
			return err
		}
	case "down":
		fs := flag.NewFlagSet("down", flag.ContinueOnError)
		steps := fs.Int("steps", 1, "number of migrations to roll back")
		if err := fs.Parse(args[1:]); err != nil {
			return err
		}
		if *steps < 1 {
			return fmt.Errorf("--steps must be >= 1")
		}
		if err := postgres.RollbackMigrations(ctx, cfg.Postgres.DSN, *steps); err != nil {
			return err
		}
	case "status":
		return postgres.MigrationStatus(ctx, cfg.Postgres.DSN)
	default:
		printMigrateHelp()
		return fmt.Errorf("unknown migrate command: %s", args[0])
	}

	v, err := postgres.MigrationVersion(ctx, cfg.Postgres.DSN)
	if err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Schema version: %d\n", v)
	return nil
}

func printMigrateHelp() {
	fmt.Fprintf(os.Stderr, `Usage: bussola migrate <command> [options]

Commands:
  up               Apply all pending migrations
  down             Roll back migrations (--steps N, default 1)
  status           Show applied and pending migrations
  help             Show this help message
`)
}
