package output

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"

	"github.com/rohankatakam/collabgraph/internal/collab"
	"github.com/rohankatakam/collabgraph/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSummary() *Summary {
	graph := sampleGraph()
	graph.Edges = append(graph.Edges, models.Edge{Source: "org/a", Target: "org/b", Count: 90})
	return &Summary{
		RunID:      "run-1",
		OutputPath: "graph.json",
		Graph:      graph,
		Stats: collab.Stats{
			Seeds: 1, Frontier1: 2, Frontier2: 4,
			DroppedNoName: 1, DroppedLowInfluence: 1,
			PairsScored: 3,
			Elapsed:     1500 * time.Millisecond,
		},
	}
}

func TestQuietFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(VerbosityQuiet).Format(sampleSummary(), &buf))
	assert.Equal(t, "✅ 2 nodes, 2 edges -> graph.json\n", buf.String())
}

func TestStandardFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(VerbosityStandard).Format(sampleSummary(), &buf))
	out := buf.String()

	assert.Contains(t, out, "Seeds: 1  Hop 1: 2  Hop 2: 4")
	assert.Contains(t, out, "- no recorded name: 1")
	assert.Contains(t, out, "- influence below threshold: 1")
	assert.NotContains(t, out, "duplicate name")
	assert.Contains(t, out, "1. org/a ↔ org/b (90 shared developers)")
	assert.Contains(t, out, "2. org/b ↔ org/c (21 shared developers)")
	assert.Contains(t, out, "Wrote graph.json in 1.5s")
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewFormatter(VerbosityJSON).Format(sampleSummary(), &buf))

	var got map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.Equal(t, float64(2), got["nodes"])
	assert.Equal(t, float64(1500), got["elapsed_ms"])
	assert.Equal(t, float64(1), got["dropped"].(map[string]interface{})["no_name"])
}

func TestStrongestEdges(t *testing.T) {
	edges := []models.Edge{
		{Source: "a", Target: "b", Count: 20},
		{Source: "a", Target: "c", Count: 30},
		{Source: "b", Target: "c", Count: 20},
	}
	top := strongestEdges(edges, 2)
	require.Len(t, top, 2)
	assert.Equal(t, 30, top[0].Count)
	assert.Equal(t, models.Edge{Source: "a", Target: "b", Count: 20}, top[1], "ties keep artifact order")
	assert.Nil(t, strongestEdges(edges, 0))
	assert.Equal(t, 20, edges[0].Count, "input is not reordered")
}

func TestGetDefaultVerbosity(t *testing.T) {
	t.Setenv("COLLABGRAPH_OUTPUT", "json")
	assert.Equal(t, VerbosityJSON, GetDefaultVerbosity())
	t.Setenv("COLLABGRAPH_OUTPUT", "")
	assert.Equal(t, VerbosityStandard, GetDefaultVerbosity())
}
