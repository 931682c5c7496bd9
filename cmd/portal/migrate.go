package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	migrations "yogaportal/internal/migrations/mongo"
	"yogaportal/pkg/config"
)

const migrateTimeout = 120 * time.Second

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update the Mongo collections used by the mongo storage backend",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), migrateTimeout)
		defer cancel()

		cfg := config.Load(ServiceName + "-migrate")
		if cfg.StorageBackend != config.StorageMongo {
			cfg.Log.Warn("Storage backend is not mongo, migrating anyway", "storage_backend", cfg.StorageBackend)
		}
		cfg.SetMongo()
		defer cfg.GracefulShutdown()

		if err := migrations.RunMigration(ctx, cfg.Client.Mongo.Database(cfg.MongoDatabaseName), cfg.Log); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
		cfg.Log.Info("Migration completed successfully")
		return nil
	},
}
