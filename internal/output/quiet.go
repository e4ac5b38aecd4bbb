package output

import (
	"fmt"
	"io"
)

// QuietFormatter outputs one-line summary (for scripts and cron jobs)
type QuietFormatter struct{}

func (f *QuietFormatter) Format(summary *Summary, w io.Writer) error {
	_, err := fmt.Fprintf(w, "✅ %d nodes, %d edges -> %s\n",
		len(summary.Graph.Nodes), len(summary.Graph.Edges), summary.OutputPath)
	return err
}
