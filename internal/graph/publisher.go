package graph

import (
	"context"
	"fmt"
	"sort"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"github.com/rohankatakam/collabgraph/internal/models"
	"github.com/sirupsen/logrus"
)

const (
	// RepositoryLabel is the node label for published repositories
	RepositoryLabel = "Repository"
	// SharesDevelopersType is the relationship type for weighted edges
	SharesDevelopersType = "SHARES_DEVELOPERS"
)

const (
	constraintQuery = `CREATE CONSTRAINT repository_name IF NOT EXISTS
		FOR (r:Repository) REQUIRE r.name IS UNIQUE`

	clearEdgesQuery = `MATCH (:Repository)-[r:SHARES_DEVELOPERS]-(:Repository) DELETE r`

	// Idempotent: re-publishing updates openrank and run_id in place
	mergeNodesQuery = `
		UNWIND $nodes AS node
		MERGE (r:Repository {name: node.name})
		SET r.openrank = node.openrank, r.run_id = $run_id`

	// Undirected edges are stored once, from source to target as listed in the artifact
	mergeEdgesQuery = `
		UNWIND $edges AS edge
		MATCH (a:Repository {name: edge.source})
		MATCH (b:Repository {name: edge.target})
		MERGE (a)-[r:SHARES_DEVELOPERS]-(b)
		SET r.count = edge.count, r.run_id = $run_id`

	readNodesQuery = `MATCH (r:Repository) WHERE r.openrank IS NOT NULL
		RETURN r.name AS name, r.openrank AS openrank ORDER BY name`

	readEdgesQuery = `MATCH (a:Repository)-[r:SHARES_DEVELOPERS]->(b:Repository)
		RETURN a.name AS source, b.name AS target, r.count AS count`
)

// PublishOptions controls how a graph is written
type PublishOptions struct {
	RunID string
	// Replace removes all existing SHARES_DEVELOPERS relationships first,
	// so edges that fell below the threshold do not linger
	Replace bool
	Batch   BatchConfig
}

// PublishStats summarizes a publish
type PublishStats struct {
	Nodes   int
	Edges   int
	Batches int
	Updates int // nodes created + relationships created + properties set
}

// Publisher writes collaboration graphs into Neo4j
type Publisher struct {
	client *Client
	logger *logrus.Logger
}

// NewPublisher creates a publisher on an open client
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client, logger: client.logger}
}

// Publish merges every node and edge of graph into Neo4j
func (p *Publisher) Publish(ctx context.Context, graph *models.Graph, opts PublishOptions) (*PublishStats, error) {
	if opts.Batch.NodeBatchSize <= 0 || opts.Batch.EdgeBatchSize <= 0 {
		opts.Batch = DefaultBatchConfig()
	}
	stats := &PublishStats{Nodes: len(graph.Nodes), Edges: len(graph.Edges)}

	if _, err := p.client.write(ctx, OpSchema, opts.RunID, constraintQuery, nil); err != nil {
		return nil, err
	}

	if opts.Replace {
		if _, err := p.client.write(ctx, OpClearEdges, opts.RunID, clearEdgesQuery, nil); err != nil {
			return nil, err
		}
	}

	nodes := NodeParams(graph.Nodes)
	for _, b := range batches(len(nodes), opts.Batch.NodeBatchSize) {
		n, err := p.client.write(ctx, OpPublishNodes, opts.RunID, mergeNodesQuery, map[string]any{
			"nodes":  nodes[b[0]:b[1]],
			"run_id": opts.RunID,
		})
		if err != nil {
			return nil, err
		}
		stats.Batches++
		stats.Updates += n
	}

	edges := EdgeParams(graph.Edges)
	for _, b := range batches(len(edges), opts.Batch.EdgeBatchSize) {
		n, err := p.client.write(ctx, OpPublishEdges, opts.RunID, mergeEdgesQuery, map[string]any{
			"edges":  edges[b[0]:b[1]],
			"run_id": opts.RunID,
		})
		if err != nil {
			return nil, err
		}
		stats.Batches++
		stats.Updates += n
	}

	p.logger.WithFields(logrus.Fields{
		"nodes":   stats.Nodes,
		"edges":   stats.Edges,
		"batches": stats.Batches,
		"updates": stats.Updates,
		"run_id":  opts.RunID,
	}).Info("graph published to neo4j")

	return stats, nil
}

// Fetch reads the published graph back, nodes ordered by name
func (p *Publisher) Fetch(ctx context.Context) (*models.Graph, error) {
	cfg := ConfigFor(OpReadGraph, "")
	queryCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	nodeResult, err := neo4j.ExecuteQuery(queryCtx, p.client.driver, readNodesQuery, nil,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(p.client.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, fmt.Errorf("read nodes failed: %w", err)
	}

	graph := &models.Graph{Nodes: []models.Node{}, Edges: []models.Edge{}}
	for _, record := range nodeResult.Records {
		name, _, err := neo4j.GetRecordValue[string](record, "name")
		if err != nil {
			return nil, fmt.Errorf("read node name: %w", err)
		}
		openrank, _, err := neo4j.GetRecordValue[float64](record, "openrank")
		if err != nil {
			return nil, fmt.Errorf("read node openrank for %s: %w", name, err)
		}
		graph.Nodes = append(graph.Nodes, models.Node{Name: name, Influence: openrank})
	}

	edgeResult, err := neo4j.ExecuteQuery(queryCtx, p.client.driver, readEdgesQuery, nil,
		neo4j.EagerResultTransformer,
		neo4j.ExecuteQueryWithDatabase(p.client.database),
		neo4j.ExecuteQueryWithReadersRouting())
	if err != nil {
		return nil, fmt.Errorf("read edges failed: %w", err)
	}

	for _, record := range edgeResult.Records {
		source, _, err := neo4j.GetRecordValue[string](record, "source")
		if err != nil {
			return nil, fmt.Errorf("read edge source: %w", err)
		}
		target, _, err := neo4j.GetRecordValue[string](record, "target")
		if err != nil {
			return nil, fmt.Errorf("read edge target: %w", err)
		}
		count, _, err := neo4j.GetRecordValue[int64](record, "count")
		if err != nil {
			return nil, fmt.Errorf("read edge count: %w", err)
		}
		graph.Edges = append(graph.Edges, models.Edge{Source: source, Target: target, Count: int(count)})
	}
	sort.Slice(graph.Edges, func(i, j int) bool {
		if graph.Edges[i].Source != graph.Edges[j].Source {
			return graph.Edges[i].Source < graph.Edges[j].Source
		}
		return graph.Edges[i].Target < graph.Edges[j].Target
	})

	return graph, nil
}

// NodeParams converts nodes to UNWIND parameters
func NodeParams(nodes []models.Node) []any {
	params := make([]any, len(nodes))
	for i, n := range nodes {
		params[i] = map[string]any{
			"name":     n.Name,
			"openrank": n.Influence,
		}
	}
	return params
}

// EdgeParams converts edges to UNWIND parameters
func EdgeParams(edges []models.Edge) []any {
	params := make([]any, len(edges))
	for i, e := range edges {
		params[i] = map[string]any{
			"source": e.Source,
			"target": e.Target,
			"count":  int64(e.Count),
		}
	}
	return params
}
