package collab

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"sync"
	"testing"

	"github.com/rohankatakam/collabgraph/internal/errors"
	"github.com/rohankatakam/collabgraph/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore answers lookups from fixed tables and records every pair it scores
type fakeStore struct {
	neighbors map[models.RepoID][]models.RepoID
	names     map[models.RepoID]string
	influence map[models.RepoID]float64
	shared    map[[2]models.RepoID]int

	failNeighbors map[models.RepoID]bool
	failInfluence map[models.RepoID]bool

	mu    sync.Mutex
	pairs [][2]models.RepoID
	hops  []int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		neighbors:     map[models.RepoID][]models.RepoID{},
		names:         map[models.RepoID]string{},
		influence:     map[models.RepoID]float64{},
		shared:        map[[2]models.RepoID]int{},
		failNeighbors: map[models.RepoID]bool{},
		failInfluence: map[models.RepoID]bool{},
	}
}

func (s *fakeStore) setShared(a, b models.RepoID, n int) {
	if a > b {
		a, b = b, a
	}
	s.shared[[2]models.RepoID{a, b}] = n
}

func (s *fakeStore) FindNeighbors(_ context.Context, ids []models.RepoID, limit int) ([]models.Neighbor, error) {
	if len(ids) != 1 {
		return nil, fmt.Errorf("expected one id per expansion, got %v", ids)
	}
	id := ids[0]
	s.mu.Lock()
	s.hops = append(s.hops, limit)
	s.mu.Unlock()

	if s.failNeighbors[id] {
		return nil, errors.DataAccessError(stderrors.New("connection refused"), "find_neighbors failed")
	}
	out := []models.Neighbor{}
	for i, n := range s.neighbors[id] {
		if n == id || len(out) == limit {
			continue
		}
		out = append(out, models.Neighbor{ID: n, Name: s.names[n], ActiveCount: 100 - i})
	}
	return out, nil
}

func (s *fakeStore) SharedDeveloperCount(_ context.Context, a, b models.RepoID) (int, error) {
	s.mu.Lock()
	s.pairs = append(s.pairs, [2]models.RepoID{a, b})
	s.mu.Unlock()
	if a > b {
		a, b = b, a
	}
	return s.shared[[2]models.RepoID{a, b}], nil
}

func (s *fakeStore) AverageInfluence(_ context.Context, id models.RepoID) (float64, bool, error) {
	if s.failInfluence[id] {
		return 0, false, errors.DataAccessError(stderrors.New("timeout"), "average_influence failed")
	}
	v, ok := s.influence[id]
	return v, ok, nil
}

func (s *fakeStore) LatestName(_ context.Context, id models.RepoID) (string, bool, error) {
	name, ok := s.names[id]
	return name, ok, nil
}

func (s *fakeStore) Close() error { return nil }

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

const (
	repoA models.RepoID = 1
	repoB models.RepoID = 2
	repoC models.RepoID = 3
	repoD models.RepoID = 4
	repoE models.RepoID = 5
)

// scenarioStore: A -> {B, C}; B -> {C, D}; C -> {B, E}.
// D has no name, E scores 35, C sits exactly on the threshold.
func scenarioStore() *fakeStore {
	s := newFakeStore()
	s.neighbors[repoA] = []models.RepoID{repoB, repoC}
	s.neighbors[repoB] = []models.RepoID{repoC, repoD}
	s.neighbors[repoC] = []models.RepoID{repoB, repoE}
	s.names[repoA] = "org/a"
	s.names[repoB] = "org/b"
	s.names[repoC] = "org/c"
	s.names[repoE] = "org/e"
	s.influence[repoB] = 55.5
	s.influence[repoC] = 40
	s.influence[repoD] = 90
	s.influence[repoE] = 35
	s.setShared(repoB, repoC, 15)
	return s
}

func scenarioOptions() Options {
	opts := DefaultOptions()
	opts.Hop1Limit = 2
	opts.Hop2Limit = 2
	return opts
}

func TestBuild_Scenario(t *testing.T) {
	store := scenarioStore()
	builder := NewBuilder(store, scenarioOptions(), quietLogger())

	graph, err := builder.Build(context.Background(), []models.RepoID{repoA})
	require.NoError(t, err)

	assert.Equal(t, []models.Node{{Name: "org/b", Influence: 55}, {Name: "org/c", Influence: 40}}, graph.Nodes)
	assert.Empty(t, graph.Edges, "15 shared developers is below the edge threshold of 20")
	assert.NotNil(t, graph.Edges)

	require.Len(t, store.pairs, 1, "exactly one pair is scored")
	assert.ElementsMatch(t, []models.RepoID{repoB, repoC}, store.pairs[0][:])

	stats := builder.LastStats()
	assert.Equal(t, 1, stats.Seeds)
	assert.Equal(t, 2, stats.Frontier1)
	assert.Equal(t, 4, stats.Frontier2)
	assert.Equal(t, 1, stats.DroppedNoName)
	assert.Equal(t, 1, stats.DroppedLowInfluence)
	assert.Equal(t, 0, stats.DroppedNoInfluence)
	assert.Equal(t, 2, stats.Nodes)
	assert.Equal(t, 1, stats.PairsScored)
	assert.Equal(t, 0, stats.Edges)
}

func TestBuild_ScenarioWithEdge(t *testing.T) {
	store := scenarioStore()
	store.setShared(repoB, repoC, 20)

	graph, err := NewBuilder(store, scenarioOptions(), quietLogger()).Build(context.Background(), []models.RepoID{repoA})
	require.NoError(t, err)

	require.Len(t, graph.Edges, 1)
	assert.Equal(t, models.Edge{Source: "org/b", Target: "org/c", Count: 20}, graph.Edges[0], "edge threshold is inclusive")

	data, err := json.Marshal(graph)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[["org/b",55],["org/c",40]],"edges":[["org/b","org/c",20]]}`, string(data))
}

func TestBuild_HopLimitsArePassedThrough(t *testing.T) {
	store := scenarioStore()
	opts := scenarioOptions()
	opts.Hop1Limit = 7
	opts.Hop2Limit = 3

	_, err := NewBuilder(store, opts, quietLogger()).Build(context.Background(), []models.RepoID{repoA})
	require.NoError(t, err)

	require.Len(t, store.hops, 3)
	assert.Equal(t, 7, store.hops[0])
	assert.ElementsMatch(t, []int{3, 3}, store.hops[1:])
}

func TestBuild_InclusionBoundary(t *testing.T) {
	store := scenarioStore()
	store.influence[repoC] = 39.99

	graph, err := NewBuilder(store, scenarioOptions(), quietLogger()).Build(context.Background(), []models.RepoID{repoA})
	require.NoError(t, err)

	assert.Equal(t, []models.Node{{Name: "org/b", Influence: 55}}, graph.Nodes)
	assert.Empty(t, graph.Edges)
	assert.Empty(t, store.pairs, "a single candidate has no pairs")
}

func TestBuild_NodeInfluenceIsTruncated(t *testing.T) {
	store := scenarioStore()
	store.influence[repoB] = 45.333
	store.influence[repoC] = 40.999

	graph, err := NewBuilder(store, scenarioOptions(), quietLogger()).Build(context.Background(), []models.RepoID{repoA})
	require.NoError(t, err)

	assert.Equal(t, []models.Node{{Name: "org/b", Influence: 45}, {Name: "org/c", Influence: 40}}, graph.Nodes)

	raw, err := json.Marshal(graph.Nodes)
	require.NoError(t, err)
	assert.JSONEq(t, `[["org/b", 45], ["org/c", 40]]`, string(raw))
}

func TestBuild_AbsentInfluenceIsDropped(t *testing.T) {
	store := scenarioStore()
	delete(store.influence, repoB)

	builder := NewBuilder(store, scenarioOptions(), quietLogger())
	graph, err := builder.Build(context.Background(), []models.RepoID{repoA})
	require.NoError(t, err)

	assert.Equal(t, []models.Node{{Name: "org/c", Influence: 40}}, graph.Nodes)
	assert.Equal(t, 1, builder.LastStats().DroppedNoInfluence)
	assert.Equal(t, 1, builder.LastStats().DroppedLowInfluence)
}

func TestBuild_EmptyFrontier(t *testing.T) {
	store := newFakeStore()
	store.names[repoA] = "org/a"

	graph, err := NewBuilder(store, DefaultOptions(), quietLogger()).Build(context.Background(), []models.RepoID{repoA})
	require.NoError(t, err)

	data, err := json.Marshal(graph)
	require.NoError(t, err)
	assert.JSONEq(t, `{"nodes":[],"edges":[]}`, string(data))
}

func TestBuild_SeedRediscoveredInHop2IsKept(t *testing.T) {
	store := scenarioStore()
	// B's neighbors now include the seed itself; only B is excluded from B's expansion
	store.neighbors[repoB] = []models.RepoID{repoA, repoC}
	store.influence[repoA] = 70
	store.setShared(repoA, repoB, 30)
	store.setShared(repoA, repoC, 25)

	graph, err := NewBuilder(store, scenarioOptions(), quietLogger()).Build(context.Background(), []models.RepoID{repoA})
	require.NoError(t, err)

	assert.Equal(t, []models.Node{
		{Name: "org/a", Influence: 70},
		{Name: "org/b", Influence: 55},
		{Name: "org/c", Influence: 40},
	}, graph.Nodes)
	assert.Equal(t, []models.Edge{
		{Source: "org/a", Target: "org/b", Count: 30},
		{Source: "org/a", Target: "org/c", Count: 25},
	}, graph.Edges)
}

// wideStore builds a star of n candidates around seed 1, all passing the filters
func wideStore(n int) *fakeStore {
	s := newFakeStore()
	first := make([]models.RepoID, 0, n)
	for i := 0; i < n; i++ {
		id := models.RepoID(100 + i)
		first = append(first, id)
		s.names[id] = fmt.Sprintf("org/r%03d", i)
		s.influence[id] = float64(40 + i)
	}
	for i, id := range first {
		// Each candidate points at the next two, wrapping around
		s.neighbors[id] = []models.RepoID{first[(i+1)%n], first[(i+2)%n]}
		for j := i + 1; j < n; j++ {
			s.setShared(id, first[j], (i*7+j*3)%40)
		}
	}
	s.neighbors[1] = first
	s.names[1] = "org/seed"
	return s
}

func TestBuild_PairsAreUniqueAndOrdered(t *testing.T) {
	const n = 12
	store := wideStore(n)
	opts := DefaultOptions()
	opts.Hop1Limit = n
	opts.Hop2Limit = 2

	graph, err := NewBuilder(store, opts, quietLogger()).Build(context.Background(), []models.RepoID{1})
	require.NoError(t, err)

	require.Len(t, graph.Nodes, n)
	assert.Len(t, store.pairs, n*(n-1)/2)

	seenPairs := map[[2]models.RepoID]bool{}
	for _, p := range store.pairs {
		assert.NotEqual(t, p[0], p[1], "no self pairs")
		key := p
		if key[0] > key[1] {
			key[0], key[1] = key[1], key[0]
		}
		assert.False(t, seenPairs[key], "pair scored twice: %v", p)
		seenPairs[key] = true
	}

	names := map[string]bool{}
	for _, node := range graph.Nodes {
		assert.False(t, names[node.Name], "duplicate node %s", node.Name)
		names[node.Name] = true
		assert.GreaterOrEqual(t, node.Influence, float64(opts.InclusionThreshold))
	}

	edges := map[[2]string]bool{}
	for _, e := range graph.Edges {
		assert.GreaterOrEqual(t, e.Count, opts.EdgeThreshold)
		assert.NotEqual(t, e.Source, e.Target)
		key := [2]string{e.Source, e.Target}
		rev := [2]string{e.Target, e.Source}
		assert.False(t, edges[key] || edges[rev], "duplicate edge %v", key)
		edges[key] = true
	}
}

func TestBuild_DeterministicAcrossWorkerCounts(t *testing.T) {
	const n = 15
	opts := DefaultOptions()
	opts.Hop1Limit = n
	opts.Hop2Limit = 2

	var reference *models.Graph
	for _, workers := range []int{1, 2, 8, 32} {
		for run := 0; run < 3; run++ {
			opts.Workers = workers
			graph, err := NewBuilder(wideStore(n), opts, quietLogger()).Build(context.Background(), []models.RepoID{1})
			require.NoError(t, err)
			if reference == nil {
				reference = graph
				continue
			}
			assert.Equal(t, reference, graph, "workers=%d run=%d", workers, run)
		}
	}
	require.NotNil(t, reference)
	assert.NotEmpty(t, reference.Edges)
}

func TestBuild_DuplicateNamesKeepLowestID(t *testing.T) {
	store := scenarioStore()
	store.names[repoC] = "org/b" // C was renamed to B's old name

	builder := NewBuilder(store, scenarioOptions(), quietLogger())
	graph, err := builder.Build(context.Background(), []models.RepoID{repoA})
	require.NoError(t, err)

	assert.Equal(t, []models.Node{{Name: "org/b", Influence: 55}}, graph.Nodes)
	assert.Equal(t, 1, builder.LastStats().DroppedDuplicateName)
}

func TestBuild_AbortsOnDataAccessError(t *testing.T) {
	store := scenarioStore()
	store.failNeighbors[repoC] = true

	graph, err := NewBuilder(store, scenarioOptions(), quietLogger()).Build(context.Background(), []models.RepoID{repoA})
	require.Error(t, err)
	assert.Nil(t, graph, "no partial graph")
	assert.True(t, errors.IsDataAccess(err))
}

func TestBuild_SkipFailures(t *testing.T) {
	store := scenarioStore()
	store.failInfluence[repoB] = true

	opts := scenarioOptions()
	opts.SkipFailures = true
	builder := NewBuilder(store, opts, quietLogger())

	graph, err := builder.Build(context.Background(), []models.RepoID{repoA})
	require.NoError(t, err)
	assert.Equal(t, []models.Node{{Name: "org/c", Influence: 40}}, graph.Nodes)
	assert.Equal(t, 1, builder.LastStats().Skipped)

	opts.SkipFailures = false
	_, err = NewBuilder(store, opts, quietLogger()).Build(context.Background(), []models.RepoID{repoA})
	require.Error(t, err)
}

func TestBuild_SkipFailuresInHop(t *testing.T) {
	store := scenarioStore()
	store.failNeighbors[repoB] = true

	opts := scenarioOptions()
	opts.SkipFailures = true
	builder := NewBuilder(store, opts, quietLogger())

	graph, err := builder.Build(context.Background(), []models.RepoID{repoA})
	require.NoError(t, err)
	// Only C's expansion contributes: {B, E}; E is below threshold
	assert.Equal(t, []models.Node{{Name: "org/b", Influence: 55}}, graph.Nodes)
	assert.Equal(t, 1, builder.LastStats().Skipped)
}

func TestBuild_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := scenarioStore()
	store.failNeighbors[repoA] = true
	opts := scenarioOptions()
	opts.SkipFailures = true

	_, err := NewBuilder(store, opts, quietLogger()).Build(ctx, []models.RepoID{repoA})
	assert.Error(t, err, "cancellation is never skipped")
}

func TestBuild_Validation(t *testing.T) {
	store := scenarioStore()

	_, err := NewBuilder(store, DefaultOptions(), quietLogger()).Build(context.Background(), nil)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	bad := []Options{
		{Hop1Limit: 0, Hop2Limit: 5, Workers: 1},
		{Hop1Limit: 10, Hop2Limit: 5, Workers: 0},
		{Hop1Limit: 10, Hop2Limit: 5, Workers: 1, EdgeThreshold: -1},
	}
	for _, opts := range bad {
		_, err := NewBuilder(store, opts, quietLogger()).Build(context.Background(), []models.RepoID{repoA})
		require.Error(t, err)
		assert.True(t, errors.IsValidation(err))
	}
}

func TestBuild_DuplicateSeedsExpandOnce(t *testing.T) {
	store := scenarioStore()
	builder := NewBuilder(store, scenarioOptions(), quietLogger())

	_, err := builder.Build(context.Background(), []models.RepoID{repoA, repoA})
	require.NoError(t, err)
	assert.Equal(t, 1, builder.LastStats().Seeds)
	assert.Len(t, store.hops, 3)
}
