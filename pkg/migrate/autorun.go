package migrate

import (
	"context"
	"fmt"

	"github.com/easelhouse/paintsip-backend/pkg/config"
	"github.com/easelhouse/paintsip-backend/pkg/db"
	"github.com/easelhouse/paintsip-backend/pkg/logger"
)

// MaybeRunDev applies the embedded migrations on startup, but only in dev
// with PAINTSIP_AUTO_MIGRATE set. Other environments run cmd/migrate.
func MaybeRunDev(ctx context.Context, cfg *config.Config, logg *logger.Logger, client *db.Client) error {
	if !cfg.App.IsDev() || !cfg.FeatureFlags.AutoMigrate {
		return nil
	}

	sqlDB, err := client.DB().DB()
	if err != nil {
		return fmt.Errorf("extracting sql.DB: %w", err)
	}

	src := Embedded()
	ctx = logg.WithFields(ctx, map[string]any{"source": src.String()})
	logg.Info(ctx, "migrate.auto_run.start")
	if err := Run(ctx, sqlDB, src, "up"); err != nil {
		return err
	}
	logg.Info(ctx, "migrate.auto_run.done")
	return nil
}
