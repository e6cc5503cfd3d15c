package migrate

import (
	"context"
	"fmt"

	"github.com/angelmondragon/sparkify-dwh/pkg/config"
	"github.com/angelmondragon/sparkify-dwh/pkg/db"
	"github.com/angelmondragon/sparkify-dwh/pkg/logger"
)

// MaybeRun applies the embedded run-ledger migrations when the ledger and
// auto-migrate are both enabled.
func MaybeRun(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.Ledger.Enabled || !cfg.Ledger.AutoMigrate || client == nil {
		return nil
	}

	dialect, err := Dialect(client.Driver())
	if err != nil {
		return err
	}
	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "dialect": dialect})
	logg.Info(ctx, "running goose migrations (auto-run)")

	if err := UpEmbedded(ctx, sqlDB, dialect); err != nil {
		return fmt.Errorf("running goose up: %w", err)
	}

	logg.Info(ctx, "goose migrations completed")
	return nil
}
