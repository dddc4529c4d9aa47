package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/easelhouse/paintsip-backend/pkg/config"
	"github.com/easelhouse/paintsip-backend/pkg/db"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
	"github.com/easelhouse/paintsip-backend/pkg/migrate"
)

type dbCommand func(ctx context.Context, sqlDB *sql.DB, src migrate.Source) error

func main() {
	_ = godotenv.Load()

	cmd := flag.String("cmd", "up", "up|down|status|version|create|validate")
	dir := flag.String("dir", "", "migrations directory on disk; empty uses the migrations built into this binary")
	name := flag.String("name", "", "migration name for -cmd=create")
	version := flag.String("version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	// file-only commands work without config or a database
	switch *cmd {
	case "create":
		if *name == "" {
			exit("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(orDefault(*dir), *name)
		if err != nil {
			exit("create migration: %v", err)
		}
		fmt.Println("created migration:", path)
		return
	case "validate":
		if err := migrate.ValidateDir(orDefault(*dir)); err != nil {
			exit("migration validation failed: %v", err)
		}
		fmt.Println("migration validation passed")
		return
	}

	commands := map[string]dbCommand{
		"up":     goose("up"),
		"down":   goose("down"),
		"status": goose("status"),
		"version": func(ctx context.Context, sqlDB *sql.DB, src migrate.Source) error {
			if *version == "" {
				return fmt.Errorf("missing -version")
			}
			return migrate.MigrateToVersion(ctx, sqlDB, src, *version)
		},
	}
	run, ok := commands[*cmd]
	if !ok {
		exit("unknown -cmd value: %s", *cmd)
	}

	cfg, err := config.Load()
	if err != nil {
		exit("load config: %v", err)
	}
	logg := logger.FromConfig("migrate", cfg.App)

	src := migrate.Embedded()
	if *dir != "" {
		src = migrate.Disk(*dir)
	}
	ctx := logg.WithFields(context.Background(), map[string]any{
		"cmd":    *cmd,
		"source": src.String(),
	})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "migrate.database_unavailable", err)
		os.Exit(1)
	}
	defer dbClient.Close()

	sqlDB, err := dbClient.DB().DB()
	if err != nil {
		logg.Error(ctx, "migrate.database_unavailable", err)
		os.Exit(1)
	}

	if err := run(ctx, sqlDB, src); err != nil {
		logg.Error(ctx, "migrate.failed", err)
		os.Exit(1)
	}
	logg.Info(ctx, "migrate.done")
}

func goose(command string) dbCommand {
	return func(ctx context.Context, sqlDB *sql.DB, src migrate.Source) error {
		return migrate.Run(ctx, sqlDB, src, command)
	}
}

func orDefault(dir string) string {
	if dir == "" {
		return migrate.DefaultDir
	}
	return dir
}

func exit(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
