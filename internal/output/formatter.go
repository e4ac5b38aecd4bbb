package output

import (
	"io"
	"os"

	"github.com/rohankatakam/collabgraph/internal/collab"
	"github.com/rohankatakam/collabgraph/internal/models"
)

// Summary is what a finished build reports to the terminal
type Summary struct {
	RunID      string
	OutputPath string
	Published  bool
	Graph      *models.Graph
	Stats      collab.Stats
}

// Formatter defines output formatting interface
type Formatter interface {
	Format(summary *Summary, w io.Writer) error
}

// VerbosityLevel determines output detail
type VerbosityLevel int

const (
	VerbosityQuiet    VerbosityLevel = iota // One-line summary
	VerbosityStandard                       // Counts, drops and strongest edges
	VerbosityJSON                           // Machine-readable summary
)

// NewFormatter creates appropriate formatter based on level
func NewFormatter(level VerbosityLevel) Formatter {
	switch level {
	case VerbosityQuiet:
		return &QuietFormatter{}
	case VerbosityJSON:
		return &JSONFormatter{}
	default:
		return &StandardFormatter{TopEdges: 10}
	}
}

// GetDefaultVerbosity returns appropriate default based on environment
func GetDefaultVerbosity() VerbosityLevel {
	if os.Getenv("COLLABGRAPH_OUTPUT") == "json" {
		return VerbosityJSON
	}
	if os.Getenv("COLLABGRAPH_OUTPUT") == "quiet" {
		return VerbosityQuiet
	}
	return VerbosityStandard
}
