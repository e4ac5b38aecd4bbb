package output

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/rohankatakam/collabgraph/internal/models"
)

// StandardFormatter outputs counts, drop reasons and the strongest edges (default)
type StandardFormatter struct {
	TopEdges int
}

func (f *StandardFormatter) Format(summary *Summary, w io.Writer) error {
	s := summary.Stats

	fmt.Fprintf(w, "🔍 Collaboration graph\n")
	if summary.RunID != "" {
		fmt.Fprintf(w, "Run: %s\n", summary.RunID)
	}
	fmt.Fprintf(w, "Seeds: %d  Hop 1: %d  Hop 2: %d\n", s.Seeds, s.Frontier1, s.Frontier2)
	fmt.Fprintf(w, "Nodes: %d  Edges: %d (of %d pairs scored)\n\n", len(summary.Graph.Nodes), len(summary.Graph.Edges), s.PairsScored)

	dropped := s.DroppedNoName + s.DroppedNoInfluence + s.DroppedLowInfluence + s.DroppedDuplicateName
	if dropped > 0 || s.Skipped > 0 {
		fmt.Fprintf(w, "Dropped:\n")
		for _, d := range []struct {
			label string
			n     int
		}{
			{"no recorded name", s.DroppedNoName},
			{"no influence data", s.DroppedNoInfluence},
			{"influence below threshold", s.DroppedLowInfluence},
			{"duplicate name", s.DroppedDuplicateName},
			{"failed lookups (skipped)", s.Skipped},
		} {
			if d.n > 0 {
				fmt.Fprintf(w, "- %s: %d\n", d.label, d.n)
			}
		}
		fmt.Fprintf(w, "\n")
	}

	if top := strongestEdges(summary.Graph.Edges, f.TopEdges); len(top) > 0 {
		fmt.Fprintf(w, "Strongest edges:\n")
		for i, e := range top {
			fmt.Fprintf(w, "%d. %s ↔ %s (%d shared developers)\n", i+1, e.Source, e.Target, e.Count)
		}
		fmt.Fprintf(w, "\n")
	}

	fmt.Fprintf(w, "Wrote %s", summary.OutputPath)
	if summary.Published {
		fmt.Fprintf(w, " and published to Neo4j")
	}
	fmt.Fprintf(w, " in %s\n", s.Elapsed.Round(time.Millisecond))
	return nil
}

// strongestEdges returns up to n edges by descending count, keeping artifact order on ties
func strongestEdges(edges []models.Edge, n int) []models.Edge {
	if n <= 0 || len(edges) == 0 {
		return nil
	}
	sorted := make([]models.Edge, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Count > sorted[j].Count
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}
