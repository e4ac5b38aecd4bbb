package main

import (
	"context"

	"github.com/rohankatakam/collabgraph/internal/cache"
	"github.com/rohankatakam/collabgraph/internal/config"
	"github.com/rohankatakam/collabgraph/internal/models"
	"github.com/rohankatakam/collabgraph/internal/storage"
)

// storeOptions maps the store section of cfg onto storage options
func storeOptions(c *config.Config, discovery, scoring models.Window) storage.Options {
	opts := storage.Options{
		Driver:        c.Store.Driver,
		DSN:           c.Store.DataSourceName(),
		EventsTable:   c.Store.EventsTable,
		OpenrankTable: c.Store.OpenrankTable,
		Platform:      c.Store.Platform,
		Discovery:     discovery,
		Scoring:       scoring,
		QueryTimeout:  c.Store.QueryTimeout,
		RetryAttempts: c.Store.RetryAttempts,
		MaxQPS:        c.Store.MaxQPS,
	}
	if opts.Driver == "sqlite3" {
		opts.EventsTable = storage.LocalTableName(opts.EventsTable)
		opts.OpenrankTable = storage.LocalTableName(opts.OpenrankTable)
	}
	return opts
}

func cacheOptions(c *config.Config) cache.Options {
	return cache.Options{
		Type:          c.Cache.Type,
		Path:          c.Cache.Path,
		TTL:           c.Cache.TTL,
		RedisAddr:     c.Cache.RedisAddr,
		RedisPassword: c.Cache.RedisPassword,
		RedisDB:       c.Cache.RedisDB,
	}
}

// openStore connects to the configured store, wrapped in the lookup cache
// unless useCache is false. The caller closes the returned store.
func openStore(ctx context.Context, discovery, scoring models.Window, useCache bool) (storage.Store, error) {
	creds := config.NewCredentialManager(config.ModeFor(cfg), logger.Logger)
	if err := creds.ResolveStorePassword(cfg); err != nil {
		return nil, err
	}

	opts := storeOptions(cfg, discovery, scoring)
	store, err := storage.Open(ctx, opts, logger.Logger)
	if err != nil {
		return nil, err
	}
	logger.WithField("driver", cfg.Store.Driver).Debug("store connected")

	if !useCache || cfg.Cache.Type == "" || cfg.Cache.Type == "none" {
		return store, nil
	}

	c, err := cache.New(ctx, cacheOptions(cfg), logger.Logger)
	if err != nil {
		logger.WithError(err).Warn("cache unavailable, querying the store directly")
		return store, nil
	}
	return storage.NewCachedStore(store, c, opts, logger.Logger), nil
}
