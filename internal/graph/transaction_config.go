package graph

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
)

// Operation names one kind of Neo4j work. It picks the transaction timeout
// and is recorded in the transaction metadata (visible in query.log).
type Operation string

const (
	OpSchema       Operation = "schema"
	OpClearEdges   Operation = "clear_edges"
	OpPublishNodes Operation = "publish_nodes"
	OpPublishEdges Operation = "publish_edges"
	OpReadGraph    Operation = "read_graph"
)

const defaultTxTimeout = 60 * time.Second

var operationTimeouts = map[Operation]time.Duration{
	OpSchema:       5 * time.Minute, // constraint creation scans existing nodes
	OpClearEdges:   2 * time.Minute,
	OpPublishNodes: 2 * time.Minute,
	OpPublishEdges: 3 * time.Minute,
	OpReadGraph:    defaultTxTimeout,
}

// TxConfig is the timeout and metadata of a single transaction
type TxConfig struct {
	Timeout  time.Duration
	Metadata map[string]any
}

// ConfigFor returns the transaction settings for op, tagged with runID when set
func ConfigFor(op Operation, runID string) TxConfig {
	timeout, ok := operationTimeouts[op]
	if !ok {
		timeout = defaultTxTimeout
	}

	metadata := map[string]any{
		"app":       "collabgraph",
		"operation": string(op),
	}
	if runID != "" {
		metadata["run_id"] = runID
	}
	return TxConfig{Timeout: timeout, Metadata: metadata}
}

// options converts tc for ExecuteRead/ExecuteWrite
func (tc TxConfig) options() []func(*neo4j.TransactionConfig) {
	var opts []func(*neo4j.TransactionConfig)
	if tc.Timeout > 0 {
		opts = append(opts, neo4j.WithTxTimeout(tc.Timeout))
	}
	if len(tc.Metadata) > 0 {
		opts = append(opts, neo4j.WithTxMetadata(tc.Metadata))
	}
	return opts
}
