package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rohankatakam/collabgraph/internal/models"
	"github.com/sirupsen/logrus"
)

// LocalStore is a SQLite copy of the event history (for local runs and tests)
type LocalStore struct {
	db            *sqlx.DB
	eventsTable   string
	openrankTable string
	logger        *logrus.Logger
}

// NewLocalStore opens (creating if needed) a SQLite store and initializes its schema
func NewLocalStore(ctx context.Context, path, eventsTable, openrankTable string, logger *logrus.Logger) (*LocalStore, error) {
	eventsTable, openrankTable = LocalTableName(eventsTable), LocalTableName(openrankTable)
	if !ValidTableName(eventsTable) || !ValidTableName(openrankTable) {
		return nil, fmt.Errorf("invalid table names %q, %q", eventsTable, openrankTable)
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	if path != ":memory:" {
		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sqlx.Connect("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("connect to sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)

	// WAL mode for concurrent readers
	if path != ":memory:" {
		db.Exec("PRAGMA journal_mode = WAL")
	}

	store := &LocalStore{
		db:            db,
		eventsTable:   eventsTable,
		openrankTable: openrankTable,
		logger:        logger,
	}

	if err := store.InitSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("init schema: %w", err)
	}

	return store, nil
}

// DB exposes the connection so a SQLStore can query the same database
func (s *LocalStore) DB() *sqlx.DB {
	return s.db
}

// InitSchema creates the event and influence tables if they do not exist
func (s *LocalStore) InitSchema(ctx context.Context) error {
	events := s.eventsTable
	openrank := s.openrankTable
	schema := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %[1]s (
		repo_id INTEGER NOT NULL,
		repo_name TEXT NOT NULL,
		actor_id INTEGER NOT NULL,
		type TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS %[2]s (
		repo_id INTEGER NOT NULL,
		platform TEXT NOT NULL,
		openrank REAL NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_%[3]s_repo ON %[1]s(repo_id, created_at);
	CREATE INDEX IF NOT EXISTS idx_%[3]s_actor ON %[1]s(actor_id);
	CREATE INDEX IF NOT EXISTS idx_%[4]s_repo ON %[2]s(repo_id, platform);
	`, events, openrank, events, openrank)

	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// InsertEvents appends events in one transaction
func (s *LocalStore) InsertEvents(ctx context.Context, events []models.Event) error {
	if len(events) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (repo_id, repo_name, actor_id, type, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, s.eventsTable)

	for _, e := range events {
		_, err := tx.ExecContext(ctx, query,
			int64(e.RepoID), e.RepoName, e.ActorID, e.Type, e.CreatedAt.UTC())
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// InsertInfluence appends influence samples in one transaction
func (s *LocalStore) InsertInfluence(ctx context.Context, samples []models.InfluenceSample) error {
	if len(samples) == 0 {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	query := fmt.Sprintf(`
		INSERT INTO %s (repo_id, platform, openrank, created_at)
		VALUES (?, ?, ?, ?)
	`, s.openrankTable)

	for _, sample := range samples {
		_, err := tx.ExecContext(ctx, query,
			int64(sample.RepoID), sample.Platform, sample.Openrank, sample.CreatedAt.UTC())
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

// Counts returns the number of stored events and influence samples
func (s *LocalStore) Counts(ctx context.Context) (events, samples int, err error) {
	if err = s.db.GetContext(ctx, &events, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.eventsTable)); err != nil {
		return 0, 0, err
	}
	if err = s.db.GetContext(ctx, &samples, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, s.openrankTable)); err != nil {
		return 0, 0, err
	}
	return events, samples, nil
}

// Close closes the database connection
func (s *LocalStore) Close() error {
	return s.db.Close()
}

// LocalTableName drops a schema qualifier, since SQLite only resolves
// attached databases ("opensource.events" becomes "events")
func LocalTableName(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
