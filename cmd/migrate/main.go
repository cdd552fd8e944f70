package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/db"
	"github.com/angelmondragon/storefront-cart/pkg/instance"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
	"github.com/angelmondragon/storefront-cart/pkg/migrate"
	"github.com/joho/godotenv"
)

type options struct {
	cmd      string
	dir      string
	fromDisk bool
	name     string
	version  string
}

func main() {
	logg := logger.New(logger.Options{ServiceName: "migrate"})

	_ = godotenv.Load()

	var opts options
	flag.StringVar(&opts.cmd, "cmd", "up", "migration command: up|down|status|version|create|validate")
	flag.StringVar(&opts.dir, "dir", migrate.DefaultDir, "migrations root on disk, one subdirectory per dialect")
	flag.BoolVar(&opts.fromDisk, "from-disk", false, "apply migrations from -dir instead of the copy embedded in the binary")
	flag.StringVar(&opts.name, "name", "", "migration name (for create)")
	flag.StringVar(&opts.version, "version", "", "target version (YYYYMMDDHHMMSS) for -cmd=version")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "migrate.config_failed", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "migrate",
		Instance:    instance.GetID(),
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
	})
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env": cfg.App.Env,
		"cmd": opts.cmd,
	})

	if err := run(ctx, cfg, logg, opts); err != nil {
		logg.Error(ctx, "migrate.failed", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger, opts options) error {
	// create and validate only touch the tree on disk.
	switch opts.cmd {
	case "create":
		if opts.name == "" {
			return errors.New("missing -name for create")
		}
		paths, err := migrate.CreateSQLMigration(opts.dir, opts.name)
		if err != nil {
			return fmt.Errorf("create migration: %w", err)
		}
		for _, path := range paths {
			fmt.Println("created migration:", path)
		}
		return nil
	case "validate":
		if err := migrate.ValidateTree(opts.dir); err != nil {
			return fmt.Errorf("validate migrations: %w", err)
		}
		fmt.Println("migration validation passed")
		return nil
	case "up", "down", "status", "version":
	default:
		return fmt.Errorf("unknown -cmd value %q", opts.cmd)
	}

	if !cfg.DB.Enabled() {
		return fmt.Errorf("%s is not set", config.EnvDBDSN)
	}
	dialect := db.Dialect(cfg.DB)
	source := migrate.Embedded
	if opts.fromDisk {
		source = opts.dir
	}
	ctx = logg.WithFields(ctx, map[string]any{"dialect": dialect, "from_disk": opts.fromDisk})

	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("sql handle: %w", err)
	}

	logg.Info(ctx, "migrate.start")
	if opts.cmd == "version" {
		if opts.version == "" {
			return errors.New("missing -version for version command")
		}
		err = migrate.MigrateToVersion(ctx, sqlDB, dialect, source, opts.version)
	} else {
		err = migrate.Run(ctx, sqlDB, dialect, source, opts.cmd)
	}
	if err != nil {
		return err
	}
	logg.Info(ctx, "migrate.done")
	return nil
}
