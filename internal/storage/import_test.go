package storage

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rohankatakam/collabgraph/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadEventsCSV(t *testing.T) {
	input := "\ufeffcreated_at,repo_id,repo_name,actor_id,type,extra\n" +
		"2024-03-01 12:00:00,10,acme/alpha,7,PullRequestEvent,x\n" +
		"2024-03-02T08:30:00Z,11,acme/beta,8,IssuesEvent,y\n"

	events, err := ReadEventsCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, events, 2)

	assert.Equal(t, models.Event{
		RepoID:    10,
		RepoName:  "acme/alpha",
		ActorID:   7,
		Type:      "PullRequestEvent",
		CreatedAt: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}, events[0])
	assert.Equal(t, time.Date(2024, 3, 2, 8, 30, 0, 0, time.UTC), events[1].CreatedAt)
}

func TestReadEventsCSV_Errors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "read header"},
		{"missing column", "repo_id,repo_name,actor_id,type\n", `missing column "created_at"`},
		{"bad repo id", "repo_id,repo_name,actor_id,type,created_at\nabc,a,1,IssuesEvent,2024-01-01\n", "line 2"},
		{"bad actor", "repo_id,repo_name,actor_id,type,created_at\n1,a,x,IssuesEvent,2024-01-01\n", "invalid actor_id"},
		{"bad time", "repo_id,repo_name,actor_id,type,created_at\n1,a,2,IssuesEvent,yesterday\n", "invalid timestamp"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadEventsCSV(strings.NewReader(tt.input))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadInfluenceCSV(t *testing.T) {
	input := "repo_id,platform,openrank,created_at\n" +
		"10,GitHub,42.5,2024-05-01\n" +
		"11,Gitee,3,2024-05-01\n"

	samples, err := ReadInfluenceCSV(strings.NewReader(input))
	require.NoError(t, err)
	require.Len(t, samples, 2)
	assert.Equal(t, models.RepoID(10), samples[0].RepoID)
	assert.Equal(t, "GitHub", samples[0].Platform)
	assert.InDelta(t, 42.5, samples[0].Openrank, 1e-9)
	assert.Equal(t, "Gitee", samples[1].Platform)

	_, err = ReadInfluenceCSV(strings.NewReader("repo_id,platform,openrank,created_at\n1,GitHub,high,2024-05-01\n"))
	require.Error(t, err)
}

func TestImportedRowsAreQueryable(t *testing.T) {
	ctx := context.Background()
	local, err := NewLocalStore(ctx, ":memory:", "opensource.events", "opensource.global_openrank", nil)
	require.NoError(t, err)
	defer local.Close()

	events, err := ReadEventsCSV(strings.NewReader("repo_id,repo_name,actor_id,type,created_at\n" +
		"1,acme/one,100,PullRequestEvent,2024-02-01 00:00:00\n" +
		"2,acme/two,100,IssuesEvent,2024-02-02 00:00:00\n"))
	require.NoError(t, err)
	samples, err := ReadInfluenceCSV(strings.NewReader("repo_id,platform,openrank,created_at\n" +
		"2,GitHub,50,2024-03-01\n"))
	require.NoError(t, err)

	require.NoError(t, local.InsertEvents(ctx, events))
	require.NoError(t, local.InsertInfluence(ctx, samples))

	nEvents, nSamples, err := local.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, nEvents)
	assert.Equal(t, 1, nSamples)

	window := models.Window{
		Start: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	store, err := New(local.DB(), Options{
		Driver:        "sqlite3",
		EventsTable:   "events",
		OpenrankTable: "global_openrank",
		Platform:      "GitHub",
		Discovery:     window,
		Scoring:       window,
	}, nil)
	require.NoError(t, err)

	neighbors, err := store.FindNeighbors(ctx, []models.RepoID{1}, 5)
	require.NoError(t, err)
	require.Len(t, neighbors, 1)
	assert.Equal(t, models.RepoID(2), neighbors[0].ID)

	influence, ok, err := store.AverageInfluence(ctx, 2)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.InDelta(t, 50.0, influence, 1e-9)
}
