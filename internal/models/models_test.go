package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestParseRepoID(t *testing.T) {
	tests := []struct {
		in      string
		want    RepoID
		wantErr bool
	}{
		{"41986369", 41986369, false},
		{" 7 ", 7, false},
		{"0", 0, true},
		{"-3", 0, true},
		{"ray-project/ray", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseRepoID(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRepoIDs(t *testing.T) {
	ids, err := ParseRepoIDs([]string{"3", "1", "3"})
	require.NoError(t, err)
	assert.Equal(t, []RepoID{3, 1, 3}, ids)

	_, err = ParseRepoIDs([]string{"1", "x"})
	require.Error(t, err)
}

func TestWindow(t *testing.T) {
	start := time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	w := Window{Start: start, End: end}
	require.NoError(t, w.Validate())
	assert.Equal(t, "2023-10-01..2024-10-01", w.Key())

	assert.Error(t, Window{Start: end, End: start}.Validate())
	assert.Error(t, Window{Start: start, End: start}.Validate())
	assert.Error(t, Window{End: end}.Validate())
}

func TestGraphJSON(t *testing.T) {
	g := Graph{
		Nodes: []Node{{Name: "ray-project/ray", Influence: 120.5}, {Name: "vllm-project/vllm", Influence: 40}},
		Edges: []Edge{{Source: "ray-project/ray", Target: "vllm-project/vllm", Count: 23}},
	}

	data, err := json.Marshal(g)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"nodes": [["ray-project/ray", 120.5], ["vllm-project/vllm", 40]],
		"edges": [["ray-project/ray", "vllm-project/vllm", 23]]
	}`, string(data))

	var back Graph
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, g, back)
}

func TestNodeJSON_Malformed(t *testing.T) {
	var n Node
	assert.Error(t, json.Unmarshal([]byte(`["only-name"]`), &n))
	assert.Error(t, json.Unmarshal([]byte(`{"name": "x"}`), &n))
	assert.Error(t, json.Unmarshal([]byte(`[1, 2]`), &n))

	var e Edge
	assert.Error(t, json.Unmarshal([]byte(`["a", "b"]`), &e))
	assert.Error(t, json.Unmarshal([]byte(`["a", "b", "many"]`), &e))
}

func TestGraphYAML(t *testing.T) {
	g := Graph{
		Nodes: []Node{{Name: "a/one", Influence: 55.25}},
		Edges: []Edge{{Source: "a/one", Target: "a/two", Count: 30}},
	}

	data, err := yaml.Marshal(g)
	require.NoError(t, err)

	var back Graph
	require.NoError(t, yaml.Unmarshal(data, &back))
	assert.Equal(t, g, back)

	var bad Graph
	assert.Error(t, yaml.Unmarshal([]byte("nodes:\n  - name: a/one\n"), &bad))
}
