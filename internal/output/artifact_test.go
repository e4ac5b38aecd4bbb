package output

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rohankatakam/collabgraph/internal/errors"
	"github.com/rohankatakam/collabgraph/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph() *models.Graph {
	return &models.Graph{
		Nodes: []models.Node{{Name: "org/b", Influence: 55.5}, {Name: "org/c", Influence: 40}},
		Edges: []models.Edge{{Source: "org/b", Target: "org/c", Count: 21}},
	}
}

func TestMarshalGraph_JSONLayout(t *testing.T) {
	data, err := MarshalGraph(sampleGraph(), FormatJSON)
	require.NoError(t, err)

	expected := `{
    "nodes": [
        [
            "org/b",
            55.5
        ],
        [
            "org/c",
            40
        ]
    ],
    "edges": [
        [
            "org/b",
            "org/c",
            21
        ]
    ]
}
`
	assert.Equal(t, expected, string(data))
}

func TestMarshalGraph_EmptyGraph(t *testing.T) {
	data, err := MarshalGraph(&models.Graph{Nodes: []models.Node{}, Edges: []models.Edge{}}, FormatJSON)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes": [], "edges": []}`, string(data))
}

func TestMarshalGraph_UnknownFormat(t *testing.T) {
	_, err := MarshalGraph(sampleGraph(), "xml")
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestWriteAndReadGraph(t *testing.T) {
	for _, name := range []string{"graph.json", "graph.yaml"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out", name)
			require.NoError(t, WriteGraph(path, sampleGraph(), FormatForPath(path)))

			got, err := ReadGraph(path)
			require.NoError(t, err)
			assert.Equal(t, sampleGraph(), got)

			// No temp files left next to the artifact
			entries, err := os.ReadDir(filepath.Dir(path))
			require.NoError(t, err)
			require.Len(t, entries, 1)
			assert.Equal(t, name, entries[0].Name())
		})
	}
}

func TestWriteGraph_YAMLLayout(t *testing.T) {
	data, err := MarshalGraph(sampleGraph(), FormatYAML)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "nodes:\n"), string(data))
	assert.Contains(t, string(data), "edges:\n")
	assert.Contains(t, string(data), "- org/b")
	assert.Contains(t, string(data), "- 55.5")
}

func TestWriteGraph_FailureLeavesNoArtifact(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")

	err := WriteGraph(path, sampleGraph(), "xml")
	require.Error(t, err)
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestReadGraph_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"nodes": [["only-name"]]}`), 0644))

	_, err := ReadGraph(path)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = ReadGraph(filepath.Join(t.TempDir(), "missing.json"))
	require.Error(t, err)
	assert.Equal(t, errors.ErrorTypeFileSystem, errors.GetType(err))
}

func TestReadGraph_FormatFollowsContent(t *testing.T) {
	dir := t.TempDir()

	yamlData, err := MarshalGraph(sampleGraph(), FormatYAML)
	require.NoError(t, err)
	misnamedYAML := filepath.Join(dir, "graph.json")
	require.NoError(t, os.WriteFile(misnamedYAML, yamlData, 0644))

	got, err := ReadGraph(misnamedYAML)
	require.NoError(t, err)
	assert.Equal(t, sampleGraph(), got)

	jsonData, err := MarshalGraph(sampleGraph(), FormatJSON)
	require.NoError(t, err)
	misnamedJSON := filepath.Join(dir, "graph.yml")
	require.NoError(t, os.WriteFile(misnamedJSON, jsonData, 0644))

	got, err = ReadGraph(misnamedJSON)
	require.NoError(t, err)
	assert.Equal(t, sampleGraph(), got)
}

func TestDetectFormat(t *testing.T) {
	assert.Equal(t, FormatJSON, DetectFormat([]byte(`{"nodes": []}`)))
	assert.Equal(t, FormatJSON, DetectFormat([]byte("\ufeff\n  {\"nodes\": []}")))
	assert.Equal(t, FormatYAML, DetectFormat([]byte("nodes: []\n")))
	assert.Equal(t, FormatYAML, DetectFormat(nil))
}

func TestCheckPathFormat(t *testing.T) {
	require.NoError(t, CheckPathFormat("graph.json", FormatJSON))
	require.NoError(t, CheckPathFormat("graph.json", ""))
	require.NoError(t, CheckPathFormat("graph.YML", FormatYAML))
	require.NoError(t, CheckPathFormat("graph.out", FormatYAML))

	err := CheckPathFormat("graph.json", FormatYAML)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	err = CheckPathFormat("graph.yaml", FormatJSON)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestPathHelpers(t *testing.T) {
	assert.Equal(t, FormatYAML, FormatForPath("out/g.YML"))
	assert.Equal(t, FormatJSON, FormatForPath("g.json"))
	assert.Equal(t, FormatJSON, FormatForPath("g"))

	assert.Equal(t, "graph.yaml", DefaultPath("graph.json", FormatYAML))
	assert.Equal(t, "graph.json", DefaultPath("graph.json", FormatJSON))
	assert.Equal(t, "g.yml", DefaultPath("g.yml", FormatYAML))
}
