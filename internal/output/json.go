package output

import (
	"encoding/json"
	"io"
)

// JSONFormatter emits the summary as a single JSON object
type JSONFormatter struct{}

type jsonSummary struct {
	RunID      string `json:"run_id,omitempty"`
	OutputPath string `json:"output_path"`
	Published  bool   `json:"published"`
	Nodes      int    `json:"nodes"`
	Edges      int    `json:"edges"`
	Seeds      int    `json:"seeds"`
	Frontier1  int    `json:"frontier1"`
	Frontier2  int    `json:"frontier2"`
	Dropped    struct {
		NoName        int `json:"no_name"`
		NoInfluence   int `json:"no_influence"`
		LowInfluence  int `json:"low_influence"`
		DuplicateName int `json:"duplicate_name"`
	} `json:"dropped"`
	Skipped     int   `json:"skipped"`
	PairsScored int   `json:"pairs_scored"`
	ElapsedMS   int64 `json:"elapsed_ms"`
}

func (f *JSONFormatter) Format(summary *Summary, w io.Writer) error {
	s := summary.Stats
	out := jsonSummary{
		RunID:       summary.RunID,
		OutputPath:  summary.OutputPath,
		Published:   summary.Published,
		Nodes:       len(summary.Graph.Nodes),
		Edges:       len(summary.Graph.Edges),
		Seeds:       s.Seeds,
		Frontier1:   s.Frontier1,
		Frontier2:   s.Frontier2,
		Skipped:     s.Skipped,
		PairsScored: s.PairsScored,
		ElapsedMS:   s.Elapsed.Milliseconds(),
	}
	out.Dropped.NoName = s.DroppedNoName
	out.Dropped.NoInfluence = s.DroppedNoInfluence
	out.Dropped.LowInfluence = s.DroppedLowInfluence
	out.Dropped.DuplicateName = s.DroppedDuplicateName

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}
