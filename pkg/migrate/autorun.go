package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/storefront-cart/pkg/config"
	"github.com/angelmondragon/storefront-cart/pkg/db"
	"github.com/angelmondragon/storefront-cart/pkg/logger"
)

// MaybeAutoRun applies pending migrations on startup when the DB auto-migrate flag is set.
func MaybeAutoRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.DB.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	dialect := db.Dialect(cfg.DB)
	meta := map[string]any{"env": cfg.App.Env, "source": "embedded", "dialect": dialect}
	ctx = logg.WithFields(ctx, meta)
	logg.Info(ctx, "migrate.autorun.start")

	if err := Run(ctx, sqlDB, dialect, Embedded, "up"); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "migrate.autorun.done")
	return nil
}
