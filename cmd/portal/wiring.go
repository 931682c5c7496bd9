package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	migrations "yogaportal/internal/migrations/mongo"
	"yogaportal/internal/portal"
	"yogaportal/internal/portal/handler"
	"yogaportal/pkg/client"
	"yogaportal/pkg/config"
	"yogaportal/pkg/events"
	"yogaportal/pkg/metrics"
	"yogaportal/pkg/storage"
)

type components struct {
	portal      *portal.Portal
	bus         *events.Bus
	marketplace *client.MarketplaceClient
	checks      []handler.Check
	closers     []func()
}

func (c *components) close() {
	for i := len(c.closers) - 1; i >= 0; i-- {
		c.closers[i]()
	}
}

func buildStore(cfg *config.Config) (storage.Store, []handler.Check, func(), error) {
	switch cfg.StorageBackend {
	case config.StorageMemory:
		return storage.NewMemoryStore(), nil, func() {}, nil

	case config.StorageFile:
		store, err := storage.NewFileStore(cfg.StoragePath)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, nil, func() {}, nil

	case config.StorageMongo:
		cfg.SetMongo()
		db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
		if err := migrations.RunMigration(context.Background(), db, cfg.Log); err != nil {
			cfg.GracefulShutdown()
			return nil, nil, nil, err
		}
		store := storage.NewMongoStore(db, cfg.DeviceID, cfg.MongoConnTimeout)
		check := handler.Check{Name: "mongo", Ping: func(ctx context.Context) error {
			return cfg.Client.Mongo.Ping(ctx, nil)
		}}
		return store, []handler.Check{check}, cfg.GracefulShutdown, nil

	case config.StorageRedis:
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		store := storage.NewRedisStore(rdb, cfg.RedisPrefix, cfg.DeviceID)
		if err := store.Ping(context.Background()); err != nil {
			_ = store.Close()
			return nil, nil, nil, fmt.Errorf("redis %s: %w", cfg.RedisAddr, err)
		}
		closeStore := func() {
			if err := store.Close(); err != nil {
				cfg.Log.Error("Failed to close redis client", "error", err)
			}
		}
		return store, []handler.Check{{Name: "redis", Ping: store.Ping}}, closeStore, nil
	}
	return nil, nil, nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
}

// buildPortal wires the portal over the configured store and backend and
// restores the persisted device state.
func buildPortal(ctx context.Context, cfg *config.Config) (*components, error) {
	store, checks, closeStore, err := buildStore(cfg)
	if err != nil {
		return nil, fmt.Errorf("storage: %w", err)
	}

	marketplace := client.NewMarketplaceClient(cfg.BackendURL, cfg.FunctionsPath, cfg.AnonKey)
	marketplace.HTTP().WithTimeout(cfg.HTTPTimeout)
	auth := client.NewAuthClient(cfg.BackendURL, cfg.AuthPath, cfg.AnonKey)
	auth.HTTP().WithTimeout(cfg.HTTPTimeout)

	bus := events.NewBus(events.WithDropHook(func(evt events.Event) {
		metrics.RecordEventDropped(evt.Type)
	}))

	if cfg.BackendWait > 0 {
		if err := marketplace.WaitUntilHealthy(ctx, cfg.BackendWait); err != nil {
			cfg.Log.Warn("Marketplace not healthy yet, starting anyway", "wait", cfg.BackendWait, "error", err)
		}
	}

	p, err := portal.New(cfg, portal.Deps{
		Marketplace: marketplace,
		Auth:        auth,
		Store:       store,
		Bus:         bus,
	})
	if err != nil {
		closeStore()
		return nil, err
	}
	p.Start(ctx)

	checks = append([]handler.Check{{Name: "marketplace", Ping: p.Ping}}, checks...)
	return &components{
		portal:      p,
		bus:         bus,
		marketplace: marketplace,
		checks:      checks,
		closers:     []func(){closeStore, p.Close},
	}, nil
}
