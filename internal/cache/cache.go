package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Cache stores JSON-encodable lookup results by key.
// A miss is (false, nil), never an error.
type Cache interface {
	Get(ctx context.Context, key string, target interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
	// Clear drops every entry this cache owns
	Clear(ctx context.Context) error
	Close() error
}

// Options selects and configures a cache backend
type Options struct {
	Type          string // "none", "bolt", "redis"
	Path          string // bolt file
	TTL           time.Duration
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// New opens the backend named by opts.Type
func New(ctx context.Context, opts Options, logger *logrus.Logger) (Cache, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	switch opts.Type {
	case "", "none":
		return NullCache{}, nil
	case "bolt":
		return NewBoltCache(opts.Path, opts.TTL, logger)
	case "redis":
		return NewRedisCache(ctx, opts.RedisAddr, opts.RedisPassword, opts.RedisDB, opts.TTL, logger)
	default:
		return nil, fmt.Errorf("unknown cache type %q", opts.Type)
	}
}

// NullCache never stores anything
type NullCache struct{}

func (NullCache) Get(context.Context, string, interface{}) (bool, error) { return false, nil }
func (NullCache) Set(context.Context, string, interface{}) error         { return nil }
func (NullCache) Clear(context.Context) error                            { return nil }
func (NullCache) Close() error                                           { return nil }
