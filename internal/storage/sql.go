package storage

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/codeGROOVE-dev/retry"
	"github.com/jmoiron/sqlx"
	"github.com/rohankatakam/collabgraph/internal/errors"
	"github.com/rohankatakam/collabgraph/internal/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

const (
	initialRetryDelay = 500 * time.Millisecond
	maxRetryDelay     = 10 * time.Second
)

// Options configures a SQLStore
type Options struct {
	Driver        string // "clickhouse", "pgx", "postgres", "sqlite3"
	DSN           string
	EventsTable   string
	OpenrankTable string
	Platform      string

	// Discovery bounds neighbor search; Scoring bounds relation and influence lookups
	Discovery models.Window
	Scoring   models.Window

	QueryTimeout  time.Duration
	RetryAttempts int
	MaxQPS        float64 // 0 = unlimited
}

func (o Options) validate() error {
	if !ValidTableName(o.EventsTable) {
		return errors.ValidationErrorf("invalid events table name %q", o.EventsTable)
	}
	if !ValidTableName(o.OpenrankTable) {
		return errors.ValidationErrorf("invalid openrank table name %q", o.OpenrankTable)
	}
	if err := o.Discovery.Validate(); err != nil {
		return errors.ValidationErrorf("discovery window: %v", err)
	}
	if err := o.Scoring.Validate(); err != nil {
		return errors.ValidationErrorf("scoring window: %v", err)
	}
	return nil
}

// SQLStore implements Store on any database/sql driver that understands
// subqueries and COUNT(DISTINCT)
type SQLStore struct {
	db      *sqlx.DB
	opts    Options
	limiter *rate.Limiter
	logger  *logrus.Logger

	findNeighborsSQL string
	sharedCountSQL   string
	influenceSQL     string
	latestNameSQL    string
}

// Open connects to the store described by opts and verifies the connection
func Open(ctx context.Context, opts Options, logger *logrus.Logger) (*SQLStore, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}

	db, err := sqlx.Open(opts.Driver, opts.DSN)
	if err != nil {
		return nil, errors.DataAccessErrorf(err, "open %s store", opts.Driver)
	}

	switch opts.Driver {
	case "sqlite3":
		// In-memory databases are per-connection
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	store, err := New(db, opts, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := store.do(ctx, "ping", db.PingContext); err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// New wraps an existing connection
func New(db *sqlx.DB, opts Options, logger *logrus.Logger) (*SQLStore, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	if opts.QueryTimeout <= 0 {
		opts.QueryTimeout = 60 * time.Second
	}
	if opts.RetryAttempts < 1 {
		opts.RetryAttempts = 1
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.MaxQPS > 0 {
		burst := int(opts.MaxQPS)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.MaxQPS), burst)
	}

	s := &SQLStore{
		db:      db,
		opts:    opts,
		limiter: limiter,
		logger:  logger,
	}
	s.prepareQueries()
	return s, nil
}

func (s *SQLStore) prepareQueries() {
	events := s.opts.EventsTable

	s.findNeighborsSQL = fmt.Sprintf(`
		SELECT e.repo_id AS repo_id, MAX(e.repo_name) AS repo_name, COUNT(DISTINCT e.actor_id) AS active_count
		FROM %s AS e
		WHERE e.actor_id IN (
			SELECT DISTINCT actor_id FROM %s
			WHERE repo_id IN (?) AND created_at >= ? AND created_at < ? AND type IN (?)
		)
		AND e.created_at >= ? AND e.created_at < ?
		AND e.repo_id NOT IN (?)
		AND e.type IN (?)
		GROUP BY e.repo_id
		ORDER BY active_count DESC
		LIMIT ?`, events, events)

	s.sharedCountSQL = fmt.Sprintf(`
		SELECT COUNT(DISTINCT actor_id)
		FROM %s
		WHERE repo_id = ? AND created_at >= ? AND created_at < ? AND type IN (?)
		AND actor_id IN (
			SELECT actor_id FROM %s
			WHERE repo_id = ? AND created_at >= ? AND created_at < ? AND type IN (?)
		)`, events, events)

	s.influenceSQL = fmt.Sprintf(`
		SELECT AVG(openrank)
		FROM %s
		WHERE repo_id = ? AND platform = ? AND created_at >= ? AND created_at < ?
		GROUP BY repo_id`, s.opts.OpenrankTable)

	s.latestNameSQL = fmt.Sprintf(`
		SELECT repo_name
		FROM %s
		WHERE repo_id = ?
		ORDER BY created_at DESC
		LIMIT 1`, events)
}

// Close closes the database connection
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// FindNeighbors implements Store
func (s *SQLStore) FindNeighbors(ctx context.Context, ids []models.RepoID, limit int) ([]models.Neighbor, error) {
	if len(ids) == 0 {
		return nil, errors.ValidationError("find neighbors: at least one repository id is required")
	}
	if limit <= 0 {
		return nil, errors.ValidationErrorf("find neighbors: limit must be positive, got %d", limit)
	}

	raw := rawIDs(ids)
	w := s.opts.Discovery
	query, args, err := sqlx.In(s.findNeighborsSQL,
		raw, w.Start, w.End, models.ActivityEventTypes,
		w.Start, w.End, raw, models.ActivityEventTypes, limit)
	if err != nil {
		return nil, errors.InternalErrorf("bind find neighbors query: %v", err)
	}
	query = s.db.Rebind(query)

	var neighbors []models.Neighbor
	err = s.do(ctx, "find_neighbors", func(ctx context.Context) error {
		var rows []models.Neighbor
		if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return err
		}
		neighbors = rows
		return nil
	})
	if err != nil {
		return nil, err
	}

	if neighbors == nil {
		neighbors = []models.Neighbor{}
	}
	return neighbors, nil
}

// SharedDeveloperCount implements Store
func (s *SQLStore) SharedDeveloperCount(ctx context.Context, a, b models.RepoID) (int, error) {
	w := s.opts.Scoring
	query, args, err := sqlx.In(s.sharedCountSQL,
		int64(a), w.Start, w.End, models.ActivityEventTypes,
		int64(b), w.Start, w.End, models.ActivityEventTypes)
	if err != nil {
		return 0, errors.InternalErrorf("bind shared count query: %v", err)
	}
	query = s.db.Rebind(query)

	var count int
	err = s.do(ctx, "shared_developer_count", func(ctx context.Context) error {
		return s.db.GetContext(ctx, &count, query, args...)
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// AverageInfluence implements Store
func (s *SQLStore) AverageInfluence(ctx context.Context, id models.RepoID) (float64, bool, error) {
	w := s.opts.Scoring
	query := s.db.Rebind(s.influenceSQL)

	var (
		avg   sql.NullFloat64
		found bool
	)
	err := s.do(ctx, "average_influence", func(ctx context.Context) error {
		err := s.db.GetContext(ctx, &avg, query, int64(id), s.opts.Platform, w.Start, w.End)
		if stderrors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		found = avg.Valid
		return nil
	})
	if err != nil {
		return 0, false, err
	}
	if !found {
		return 0, false, nil
	}
	return avg.Float64, true, nil
}

// LatestName implements Store
func (s *SQLStore) LatestName(ctx context.Context, id models.RepoID) (string, bool, error) {
	query := s.db.Rebind(s.latestNameSQL)

	var (
		name  string
		found bool
	)
	err := s.do(ctx, "latest_name", func(ctx context.Context) error {
		err := s.db.GetContext(ctx, &name, query, int64(id))
		if stderrors.Is(err, sql.ErrNoRows) {
			found = false
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return "", false, err
	}
	return name, found, nil
}

// do runs fn under the rate limiter with a per-attempt timeout, retrying
// transient failures with exponential backoff
func (s *SQLStore) do(ctx context.Context, op string, fn func(context.Context) error) error {
	err := retry.Do(
		func() error {
			if err := s.limiter.Wait(ctx); err != nil {
				return err
			}
			callCtx, cancel := context.WithTimeout(ctx, s.opts.QueryTimeout)
			defer cancel()
			return fn(callCtx)
		},
		retry.Context(ctx),
		retry.Attempts(uint(s.opts.RetryAttempts)),
		retry.DelayType(retry.BackOffDelay),
		retry.Delay(initialRetryDelay),
		retry.MaxDelay(maxRetryDelay),
		retry.OnRetry(func(n uint, err error) {
			s.logger.WithError(err).WithFields(logrus.Fields{
				"op":      op,
				"attempt": n + 1,
			}).Warn("store query failed, retrying")
		}),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			return !stderrors.Is(err, context.Canceled) && ctx.Err() == nil
		}),
	)
	if err != nil {
		return errors.DataAccessErrorf(err, "%s failed", op).WithContext("op", op)
	}
	return nil
}

func rawIDs(ids []models.RepoID) []int64 {
	raw := make([]int64, len(ids))
	for i, id := range ids {
		raw[i] = int64(id)
	}
	return raw
}
