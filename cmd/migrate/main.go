package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"

	"github.com/angelmondragon/sparkify-dwh/internal/app"
	"github.com/angelmondragon/sparkify-dwh/pkg/db"
	"github.com/angelmondragon/sparkify-dwh/pkg/migrate"
)

type options struct {
	cmd     string
	dir     string
	name    string
	version string
}

func main() {
	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "goose migrations directory")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, opts); err != nil {
		fmt.Fprintf(os.Stderr, "migrate failed: %v\n", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options) error {
	// create and validate only touch the filesystem
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return fmt.Errorf("missing -name for create")
		}
		path, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return err
		}
		fmt.Println("created migration:", path)
		return nil
	case "validate":
		if err := migrate.ValidateDir(opts.dir); err != nil {
			return err
		}
		fmt.Println("migration validation passed")
		return nil
	case "up", "down", "status", "version":
	default:
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}
	if opts.cmd == "version" && opts.version == "" {
		return fmt.Errorf("missing -version for version command")
	}

	cfg, logg, err := app.LoadConfig("migrate")
	if err != nil {
		return err
	}
	if !cfg.Warehouse.IsSQL() {
		return fmt.Errorf("the run ledger needs a SQL warehouse, got driver %q", cfg.Warehouse.Driver)
	}
	dialect, err := migrate.Dialect(cfg.Warehouse.NormalizedDriver())
	if err != nil {
		return err
	}

	ctx = logg.WithFields(ctx, map[string]any{
		"env":    cfg.App.Env,
		"cmd":    opts.cmd,
		"dir":    opts.dir,
		"driver": cfg.Warehouse.NormalizedDriver(),
	})

	client, err := db.New(ctx, cfg.Warehouse, logg)
	if err != nil {
		logg.Error(ctx, "warehouse connection failed", err)
		return err
	}
	defer func() { _ = client.Close() }()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}

	if opts.cmd == "version" {
		err = migrate.MigrateToVersion(ctx, sqlDB, dialect, opts.dir, opts.version)
	} else {
		err = migrate.Run(ctx, sqlDB, dialect, opts.dir, opts.cmd)
	}
	if err != nil {
		logg.Error(ctx, "goose "+opts.cmd+" failed", err)
		return err
	}
	logg.Info(ctx, "migrate finished")
	return nil
}
