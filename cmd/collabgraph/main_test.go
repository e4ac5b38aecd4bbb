package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rohankatakam/collabgraph/internal/config"
	"github.com/rohankatakam/collabgraph/internal/errors"
	"github.com/rohankatakam/collabgraph/internal/models"
	"github.com/rohankatakam/collabgraph/internal/output"
	"github.com/rohankatakam/collabgraph/internal/storage"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFlagCmd(t *testing.T, args ...string) *cobra.Command {
	t.Helper()
	cmd := &cobra.Command{Use: "build"}
	registerBuildFlags(cmd)
	require.NoError(t, cmd.ParseFlags(args))
	return cmd
}

func TestApplyBuildFlags(t *testing.T) {
	c := config.Default()
	cmd := newFlagCmd(t, "--hop1", "20", "--hop2", "3", "--workers", "1",
		"--inclusion-threshold", "0", "--edge-threshold", "5", "--skip-failures", "-o", "out/ray.yaml")

	applyBuildFlags(cmd, c)

	assert.Equal(t, 20, c.Graph.Hop1Limit)
	assert.Equal(t, 3, c.Graph.Hop2Limit)
	assert.Equal(t, 1, c.Graph.Workers)
	assert.Equal(t, 0, c.Graph.InclusionThreshold)
	assert.Equal(t, 5, c.Graph.EdgeThreshold)
	assert.True(t, c.Graph.SkipFailures)
	assert.Equal(t, "out/ray.yaml", c.Output.Path)
	assert.Equal(t, output.FormatYAML, c.Output.Format)

	path, format, err := artifactTarget(cmd, c)
	require.NoError(t, err)
	assert.Equal(t, "out/ray.yaml", path)
	assert.Equal(t, output.FormatYAML, format)
}

func TestApplyBuildFlags_UnsetFlagsKeepConfig(t *testing.T) {
	c := config.Default()
	c.Graph.Hop1Limit = 7
	cmd := newFlagCmd(t, "--format", "yaml")

	applyBuildFlags(cmd, c)

	assert.Equal(t, 7, c.Graph.Hop1Limit)
	assert.Equal(t, 40, c.Graph.InclusionThreshold)

	path, format, err := artifactTarget(cmd, c)
	require.NoError(t, err)
	assert.Equal(t, "graph.yaml", path)
	assert.Equal(t, output.FormatYAML, format)
}

func TestArtifactTarget_RejectsFormatMismatch(t *testing.T) {
	c := config.Default()
	cmd := newFlagCmd(t, "--format", "yaml", "-o", "graph.json")

	applyBuildFlags(cmd, c)

	_, _, err := artifactTarget(cmd, c)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	// An extension that names no format is taken as given
	c = config.Default()
	cmd = newFlagCmd(t, "--format", "yaml", "-o", "graph.out")
	applyBuildFlags(cmd, c)

	path, format, err := artifactTarget(cmd, c)
	require.NoError(t, err)
	assert.Equal(t, "graph.out", path)
	assert.Equal(t, output.FormatYAML, format)
}

func TestBuilderOptions(t *testing.T) {
	c := config.Default()
	opts := builderOptions(c)
	assert.Equal(t, 40, opts.InclusionThreshold)
	assert.Equal(t, 20, opts.EdgeThreshold)
	assert.Equal(t, 10, opts.Hop1Limit)
	assert.Equal(t, 5, opts.Hop2Limit)
	assert.Equal(t, 8, opts.Workers)
	assert.False(t, opts.SkipFailures)
	require.NoError(t, opts.Validate())
}

func TestStoreOptions_SQLiteDropsSchema(t *testing.T) {
	c := config.Default()
	c.Store.Driver = "sqlite3"
	c.Store.Path = "/tmp/local.db"

	w := models.Window{Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), End: time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)}
	opts := storeOptions(c, w, w)

	assert.Equal(t, "sqlite3", opts.Driver)
	assert.Equal(t, "/tmp/local.db", opts.DSN)
	assert.Equal(t, "events", opts.EventsTable)
	assert.Equal(t, "global_openrank", opts.OpenrankTable)
	assert.Equal(t, 3, opts.RetryAttempts)

	c.Store.Driver = "clickhouse"
	opts = storeOptions(c, w, w)
	assert.Equal(t, "opensource.events", opts.EventsTable)
}

// TestBuildCommand runs build end to end against a SQLite store where
// repositories 1, 2 and 3 share the same three active developers
func TestBuildCommand(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "local.db")
	outPath := filepath.Join(dir, "graph.json")

	ctx := context.Background()
	local, err := storage.NewLocalStore(ctx, dbPath, "opensource.events", "opensource.global_openrank", nil)
	require.NoError(t, err)

	when := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	var events []models.Event
	var samples []models.InfluenceSample
	for repo := models.RepoID(1); repo <= 3; repo++ {
		for actor := int64(100); actor <= 102; actor++ {
			events = append(events, models.Event{
				RepoID: repo, RepoName: fmt.Sprintf("acme/r%d", repo),
				ActorID: actor, Type: "PullRequestEvent", CreatedAt: when,
			})
		}
		samples = append(samples, models.InfluenceSample{RepoID: repo, Platform: "GitHub", Openrank: 50, CreatedAt: when})
	}
	require.NoError(t, local.InsertEvents(ctx, events))
	require.NoError(t, local.InsertInfluence(ctx, samples))
	require.NoError(t, local.Close())

	cfgPath := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(fmt.Sprintf(`
store:
  driver: sqlite3
  path: %s
  events_table: opensource.events
  openrank_table: opensource.global_openrank
  platform: GitHub
  query_timeout: 5s
  retry_attempts: 1
graph:
  edge_threshold: 2
cache:
  type: none
`, dbPath)), 0644))

	rootCmd.SetArgs([]string{"--config", cfgPath, "build", "1", "-o", outPath, "--quiet"})
	require.NoError(t, rootCmd.ExecuteContext(ctx))

	g, err := output.ReadGraph(outPath)
	require.NoError(t, err)
	assert.Equal(t, []models.Node{
		{Name: "acme/r1", Influence: 50},
		{Name: "acme/r2", Influence: 50},
		{Name: "acme/r3", Influence: 50},
	}, g.Nodes)
	assert.Equal(t, []models.Edge{
		{Source: "acme/r1", Target: "acme/r2", Count: 3},
		{Source: "acme/r1", Target: "acme/r3", Count: 3},
		{Source: "acme/r2", Target: "acme/r3", Count: 3},
	}, g.Edges)
}
