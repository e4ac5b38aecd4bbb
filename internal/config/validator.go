package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/rohankatakam/collabgraph/internal/errors"
	"github.com/rohankatakam/collabgraph/internal/storage"
)

// ValidationContext specifies what configuration is required
type ValidationContext string

const (
	// ValidationContextBuild - build requires the store, windows, and graph parameters
	ValidationContextBuild ValidationContext = "build"
	// ValidationContextNeighbors - neighbors requires the store and the discovery window
	ValidationContextNeighbors ValidationContext = "neighbors"
	// ValidationContextPublish - publish requires Neo4j
	ValidationContextPublish ValidationContext = "publish"
	// ValidationContextCrawl - crawl-org requires GitHub settings
	ValidationContextCrawl ValidationContext = "crawl"
)

// ValidationResult holds validation results
type ValidationResult struct {
	Valid    bool
	Errors   []string
	Warnings []string
}

// AddError adds an error to the validation result
func (vr *ValidationResult) AddError(format string, args ...interface{}) {
	vr.Valid = false
	vr.Errors = append(vr.Errors, fmt.Sprintf(format, args...))
}

// AddWarning adds a warning to the validation result
func (vr *ValidationResult) AddWarning(format string, args ...interface{}) {
	vr.Warnings = append(vr.Warnings, fmt.Sprintf(format, args...))
}

// HasErrors returns true if there are any errors
func (vr *ValidationResult) HasErrors() bool {
	return !vr.Valid || len(vr.Errors) > 0
}

// Error returns a formatted error message
func (vr *ValidationResult) Error() string {
	if !vr.HasErrors() {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("Configuration validation failed:\n")
	for _, err := range vr.Errors {
		fmt.Fprintf(&sb, "  - %s\n", err)
	}
	return sb.String()
}

// Validate validates configuration for the given command context
func (c *Config) Validate(ctx ValidationContext) *ValidationResult {
	result := &ValidationResult{Valid: true}

	switch ctx {
	case ValidationContextBuild:
		c.validateStore(result)
		c.validateWindows(result, true)
		c.validateGraph(result)
		c.validateCache(result)
		c.validateOutput(result)
	case ValidationContextNeighbors:
		c.validateStore(result)
		c.validateWindows(result, false)
	case ValidationContextPublish:
		c.validateNeo4j(result)
	case ValidationContextCrawl:
		c.validateGitHub(result)
	}

	return result
}

// Require validates for ctx and converts failures into a config error
func (c *Config) Require(ctx ValidationContext) error {
	result := c.Validate(ctx)
	if result.HasErrors() {
		return errors.ConfigError(strings.TrimSpace(result.Error()))
	}
	return nil
}

func (c *Config) validateStore(result *ValidationResult) {
	switch c.Store.Driver {
	case "clickhouse", "pgx", "postgres":
		if c.Store.DSN == "" && c.Store.Host == "" {
			result.AddError("store.host (or STORE_DSN) is required for driver %s", c.Store.Driver)
		}
	case "sqlite3":
		if c.Store.DSN == "" && c.Store.Path == "" {
			result.AddError("store.path is required for driver sqlite3")
		}
	default:
		result.AddError("unknown store driver %q (expected clickhouse, pgx, postgres, sqlite3)", c.Store.Driver)
	}

	if !storage.ValidTableName(c.Store.EventsTable) {
		result.AddError("store.events_table %q is not a valid table identifier", c.Store.EventsTable)
	}
	if !storage.ValidTableName(c.Store.OpenrankTable) {
		result.AddError("store.openrank_table %q is not a valid table identifier", c.Store.OpenrankTable)
	}
	if c.Store.Platform == "" {
		result.AddError("store.platform is required")
	}
	if c.Store.QueryTimeout <= 0 {
		result.AddError("store.query_timeout must be positive")
	}
	if c.Store.RetryAttempts < 1 {
		result.AddError("store.retry_attempts must be at least 1, got %d", c.Store.RetryAttempts)
	}
	if c.Store.MaxQPS < 0 {
		result.AddError("store.max_qps must not be negative")
	}
}

func (c *Config) validateWindows(result *ValidationResult, scoring bool) {
	if _, err := c.Windows.Discovery.Window(); err != nil {
		result.AddError("windows.discovery: %v", err)
	}
	if !scoring {
		return
	}
	if _, err := c.Windows.Scoring.Window(); err != nil {
		result.AddError("windows.scoring: %v", err)
	}
}

func (c *Config) validateGraph(result *ValidationResult) {
	if c.Graph.Hop1Limit <= 0 {
		result.AddError("graph.hop1_limit must be positive, got %d", c.Graph.Hop1Limit)
	}
	if c.Graph.Hop2Limit <= 0 {
		result.AddError("graph.hop2_limit must be positive, got %d", c.Graph.Hop2Limit)
	}
	if c.Graph.InclusionThreshold < 0 {
		result.AddError("graph.inclusion_threshold must not be negative")
	}
	if c.Graph.EdgeThreshold < 0 {
		result.AddError("graph.edge_threshold must not be negative")
	}
	if c.Graph.Workers <= 0 {
		result.AddError("graph.workers must be positive, got %d", c.Graph.Workers)
	}
	if c.Graph.SkipFailures {
		result.AddWarning("graph.skip_failures is on: failed lookups drop candidates instead of aborting the run")
	}
}

func (c *Config) validateCache(result *ValidationResult) {
	switch c.Cache.Type {
	case "", "none":
	case "bolt":
		if c.Cache.Path == "" {
			result.AddError("cache.path is required for the bolt cache")
		}
	case "redis":
		if c.Cache.RedisAddr == "" {
			result.AddError("cache.redis_addr (or REDIS_ADDR) is required for the redis cache")
		}
	default:
		result.AddError("unknown cache type %q (expected none, bolt, redis)", c.Cache.Type)
	}
	if c.Cache.TTL < 0 {
		result.AddError("cache.ttl must not be negative")
	}
}

func (c *Config) validateOutput(result *ValidationResult) {
	if c.Output.Path == "" {
		result.AddError("output.path is required")
	}
	switch c.Output.Format {
	case "json", "yaml":
	default:
		result.AddError("unknown output format %q (expected json or yaml)", c.Output.Format)
	}
}

func (c *Config) validateNeo4j(result *ValidationResult) {
	if c.Neo4j.URI == "" {
		result.AddError("NEO4J_URI is required but not set")
	} else if _, err := url.Parse(c.Neo4j.URI); err != nil {
		result.AddError("NEO4J_URI is invalid: %v", err)
	}
	if c.Neo4j.User == "" {
		result.AddError("NEO4J_USER is required but not set")
	}
	if c.Neo4j.Database == "" {
		result.AddWarning("neo4j.database is not set, will use 'neo4j'")
	}
}

func (c *Config) validateGitHub(result *ValidationResult) {
	if c.GitHub.Token == "" {
		result.AddWarning("GITHUB_TOKEN is not set. Unauthenticated requests are limited to 60 per hour.")
	}
	if c.GitHub.RateLimit <= 0 {
		result.AddError("github.rate_limit must be positive, got %d", c.GitHub.RateLimit)
	}
	if c.GitHub.PerPage <= 0 || c.GitHub.PerPage > 100 {
		result.AddError("github.per_page must be in [1, 100], got %d", c.GitHub.PerPage)
	}
}
