package graph

import (
	"context"
	"fmt"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/sirupsen/logrus"
)

// Client wraps the Neo4j driver for publishing collaboration graphs
type Client struct {
	driver   neo4j.DriverWithContext
	logger   *logrus.Logger
	database string
}

// NewClient connects to Neo4j and verifies connectivity
func NewClient(ctx context.Context, uri, user, password, database string, logger *logrus.Logger) (*Client, error) {
	if uri == "" || user == "" || password == "" {
		return nil, fmt.Errorf("neo4j credentials missing: uri=%s, user=%s", uri, user)
	}
	if database == "" {
		database = "neo4j"
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	driver, err := neo4j.NewDriverWithContext(uri,
		neo4j.BasicAuth(user, password, ""),
		func(config *neo4j.Config) {
			config.MaxConnectionPoolSize = 10 // publishing is a handful of batch writes
			config.ConnectionAcquisitionTimeout = 60 * time.Second
			config.MaxConnectionLifetime = 3600 * time.Second
			config.SocketConnectTimeout = 5 * time.Second
			config.SocketKeepalive = true
		})
	if err != nil {
		return nil, fmt.Errorf("failed to create neo4j driver: %w", err)
	}

	// Fail fast on startup
	if err := driver.VerifyConnectivity(ctx); err != nil {
		driver.Close(ctx)
		return nil, fmt.Errorf("failed to connect to neo4j at %s: %w", uri, err)
	}

	logger.WithFields(logrus.Fields{
		"uri":      uri,
		"user":     user,
		"database": database,
	}).Info("neo4j client connected")

	return &Client{
		driver:   driver,
		logger:   logger,
		database: database,
	}, nil
}

// Close closes the Neo4j driver connection
func (c *Client) Close(ctx context.Context) error {
	if err := c.driver.Close(ctx); err != nil {
		return fmt.Errorf("failed to close neo4j driver: %w", err)
	}
	c.logger.Debug("neo4j client closed")
	return nil
}

// write runs query once per parameter batch, each batch in its own transaction
func (c *Client) write(ctx context.Context, op Operation, runID, query string, batch map[string]any) (int, error) {
	txConfig := ConfigFor(op, runID)

	session := c.driver.NewSession(ctx, neo4j.SessionConfig{
		DatabaseName: c.database,
		AccessMode:   neo4j.AccessModeWrite,
	})
	defer session.Close(ctx)

	written, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, query, batch)
		if err != nil {
			return 0, err
		}
		summary, err := result.Consume(ctx)
		if err != nil {
			return 0, err
		}
		counters := summary.Counters()
		return counters.NodesCreated() + counters.RelationshipsCreated() + counters.PropertiesSet(), nil
	}, txConfig.options()...)
	if err != nil {
		return 0, fmt.Errorf("%s failed: %w", op, err)
	}
	return written.(int), nil
}
