package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/rohankatakam/collabgraph/internal/cache"
	"github.com/rohankatakam/collabgraph/internal/models"
	"github.com/sirupsen/logrus"
)

// CachedStore serves repeated lookups from a cache. Keys carry the source they
// were read from and the window they were computed over, so pointing the cache
// at another database, table or platform never returns stale results.
type CachedStore struct {
	store     Store
	cache     cache.Cache
	logger    *logrus.Logger
	scope     string
	discovery string
	scoring   string
}

// cachedLookup is the stored form of an optional result
type cachedLookup[T any] struct {
	Value T    `json:"value"`
	Found bool `json:"found"`
}

// NewCachedStore decorates store with c. opts describes the source store was
// opened with and scopes every key.
func NewCachedStore(store Store, c cache.Cache, opts Options, logger *logrus.Logger) *CachedStore {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &CachedStore{
		store:     store,
		cache:     c,
		logger:    logger,
		scope:     CacheScope(opts),
		discovery: opts.Discovery.Key(),
		scoring:   opts.Scoring.Key(),
	}
}

// CacheScope identifies the data behind a store: driver, DSN, both tables and
// the platform. The DSN is hashed so credentials never reach the cache.
func CacheScope(opts Options) string {
	h := sha256.New()
	for _, part := range []string{opts.Driver, opts.DSN, opts.EventsTable, opts.OpenrankTable, opts.Platform} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))[:16]
}

// FindNeighbors implements Store
func (s *CachedStore) FindNeighbors(ctx context.Context, ids []models.RepoID, limit int) ([]models.Neighbor, error) {
	key := fmt.Sprintf("%s:neighbors:%s:%v:%d", s.scope, s.discovery, ids, limit)

	var neighbors []models.Neighbor
	if s.get(ctx, key, &neighbors) {
		if neighbors == nil {
			neighbors = []models.Neighbor{}
		}
		return neighbors, nil
	}

	neighbors, err := s.store.FindNeighbors(ctx, ids, limit)
	if err != nil {
		return nil, err
	}
	s.set(ctx, key, neighbors)
	return neighbors, nil
}

// SharedDeveloperCount implements Store
func (s *CachedStore) SharedDeveloperCount(ctx context.Context, a, b models.RepoID) (int, error) {
	lo, hi := a, b
	if lo > hi {
		lo, hi = hi, lo
	}
	key := fmt.Sprintf("%s:shared:%s:%d:%d", s.scope, s.scoring, lo, hi)

	var count int
	if s.get(ctx, key, &count) {
		return count, nil
	}

	count, err := s.store.SharedDeveloperCount(ctx, a, b)
	if err != nil {
		return 0, err
	}
	s.set(ctx, key, count)
	return count, nil
}

// AverageInfluence implements Store
func (s *CachedStore) AverageInfluence(ctx context.Context, id models.RepoID) (float64, bool, error) {
	key := fmt.Sprintf("%s:influence:%s:%d", s.scope, s.scoring, id)

	var hit cachedLookup[float64]
	if s.get(ctx, key, &hit) {
		return hit.Value, hit.Found, nil
	}

	value, found, err := s.store.AverageInfluence(ctx, id)
	if err != nil {
		return 0, false, err
	}
	s.set(ctx, key, cachedLookup[float64]{Value: value, Found: found})
	return value, found, nil
}

// LatestName implements Store
func (s *CachedStore) LatestName(ctx context.Context, id models.RepoID) (string, bool, error) {
	key := fmt.Sprintf("%s:name:%d", s.scope, id)

	var hit cachedLookup[string]
	if s.get(ctx, key, &hit) {
		return hit.Value, hit.Found, nil
	}

	name, found, err := s.store.LatestName(ctx, id)
	if err != nil {
		return "", false, err
	}
	s.set(ctx, key, cachedLookup[string]{Value: name, Found: found})
	return name, found, nil
}

// Close closes the underlying store and the cache
func (s *CachedStore) Close() error {
	cacheErr := s.cache.Close()
	if err := s.store.Close(); err != nil {
		return err
	}
	return cacheErr
}

// get reports a hit; cache failures are logged and treated as misses
func (s *CachedStore) get(ctx context.Context, key string, target interface{}) bool {
	found, err := s.cache.Get(ctx, key, target)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache read failed, querying store")
		return false
	}
	if found {
		s.logger.WithField("key", key).Debug("cache hit")
	}
	return found
}

func (s *CachedStore) set(ctx context.Context, key string, value interface{}) {
	if err := s.cache.Set(ctx, key, value); err != nil {
		s.logger.WithError(err).WithField("key", key).Warn("cache write failed")
	}
}
