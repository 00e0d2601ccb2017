package bootstrap

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/birdboard/birdboard-backend/config"
	"github.com/birdboard/birdboard-backend/internal/storage/postgres"
)

// OpenDB connects with the configured driver and, when enabled, applies the
// embedded schema.
func OpenDB(ctx context.Context, cfg *config.DatabaseConfig) (*sql.DB, error) {
	db, err := postgres.NewConnection(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}

	if cfg.AutoMigrate {
		if err := postgres.EnsureSchema(ctx, db); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("db schema: %w", err)
		}
	}

	return db, nil
}
