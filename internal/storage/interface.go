package storage

import (
	"context"
	"regexp"

	"github.com/rohankatakam/collabgraph/internal/models"
)

// Store answers the four questions graph construction asks of the event history.
// Lookups that find nothing return ok=false with a nil error.
type Store interface {
	// FindNeighbors returns up to limit repositories (excluding ids) ranked by how many of
	// the active developers of ids were also active there during the discovery window.
	// Order among equal counts is whatever the store returns and may differ between
	// runs; when limit falls inside such a tie, which of the tied repositories are
	// returned may differ too.
	FindNeighbors(ctx context.Context, ids []models.RepoID, limit int) ([]models.Neighbor, error)

	// SharedDeveloperCount counts developers active in both a and b during the scoring window
	SharedDeveloperCount(ctx context.Context, a, b models.RepoID) (int, error)

	// AverageInfluence averages the influence series of id over the scoring window
	AverageInfluence(ctx context.Context, id models.RepoID) (float64, bool, error)

	// LatestName returns the most recently observed name of id
	LatestName(ctx context.Context, id models.RepoID) (string, bool, error)

	Close() error
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// ValidTableName reports whether name is safe to place into query text
// (an identifier, optionally qualified by one schema/database name)
func ValidTableName(name string) bool {
	return tableNamePattern.MatchString(name)
}
