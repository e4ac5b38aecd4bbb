package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// RepoID is the stable numeric identifier of a repository (survives renames)
type RepoID int64

// ParseRepoID validates and parses a repository id given as text
func ParseRepoID(s string) (RepoID, error) {
	s = strings.TrimSpace(s)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid repository id %q: must be a positive integer", s)
	}
	if id <= 0 {
		return 0, fmt.Errorf("invalid repository id %q: must be a positive integer", s)
	}
	return RepoID(id), nil
}

// ParseRepoIDs parses a list of repository ids, preserving order
func ParseRepoIDs(values []string) ([]RepoID, error) {
	ids := make([]RepoID, 0, len(values))
	for _, v := range values {
		id, err := ParseRepoID(v)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (id RepoID) String() string {
	return strconv.FormatInt(int64(id), 10)
}

// Window is a half-open time range [Start, End)
type Window struct {
	Start time.Time `json:"start" yaml:"start"`
	End   time.Time `json:"end" yaml:"end"`
}

// Validate checks that the window is non-empty
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return fmt.Errorf("window bounds must be set")
	}
	if !w.Start.Before(w.End) {
		return fmt.Errorf("window start %s must be before end %s",
			w.Start.Format(time.DateOnly), w.End.Format(time.DateOnly))
	}
	return nil
}

// Key returns a compact representation used in cache keys and logs
func (w Window) Key() string {
	return w.Start.UTC().Format(time.DateOnly) + ".." + w.End.UTC().Format(time.DateOnly)
}

// ActivityEventTypes are the event types that count as active contribution
var ActivityEventTypes = []string{
	"IssuesEvent",
	"PullRequestEvent",
	"IssueCommentEvent",
	"PullRequestReviewEvent",
	"PullRequestReviewCommentEvent",
}

// Neighbor is a repository found through shared active developers
type Neighbor struct {
	ID          RepoID `json:"id" db:"repo_id"`
	Name        string `json:"name" db:"repo_name"`
	ActiveCount int    `json:"active_count" db:"active_count"`
}

// ProjectRecord accumulates what is known about a candidate repository.
// Influence stays nil until the influence lookup succeeds.
type ProjectRecord struct {
	ID        RepoID
	Name      string
	Influence *float64
}

// Node is a graph vertex, serialized as [name, influence]
type Node struct {
	Name      string
	Influence float64
}

func (n Node) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{n.Name, n.Influence})
}

func (n *Node) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("node: %w", err)
	}
	if len(raw) != 2 {
		return fmt.Errorf("node: expected [name, influence], got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &n.Name); err != nil {
		return fmt.Errorf("node name: %w", err)
	}
	if err := json.Unmarshal(raw[1], &n.Influence); err != nil {
		return fmt.Errorf("node influence: %w", err)
	}
	return nil
}

func (n Node) MarshalYAML() (any, error) {
	return []any{n.Name, n.Influence}, nil
}

func (n *Node) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode || len(value.Content) != 2 {
		return fmt.Errorf("node: expected [name, influence] at line %d", value.Line)
	}
	if err := value.Content[0].Decode(&n.Name); err != nil {
		return fmt.Errorf("node name: %w", err)
	}
	if err := value.Content[1].Decode(&n.Influence); err != nil {
		return fmt.Errorf("node influence: %w", err)
	}
	return nil
}

// Edge is an undirected weighted relation, serialized as [source, target, count]
type Edge struct {
	Source string
	Target string
	Count  int
}

func (e Edge) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{e.Source, e.Target, e.Count})
}

func (e *Edge) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("edge: %w", err)
	}
	if len(raw) != 3 {
		return fmt.Errorf("edge: expected [source, target, count], got %d elements", len(raw))
	}
	if err := json.Unmarshal(raw[0], &e.Source); err != nil {
		return fmt.Errorf("edge source: %w", err)
	}
	if err := json.Unmarshal(raw[1], &e.Target); err != nil {
		return fmt.Errorf("edge target: %w", err)
	}
	if err := json.Unmarshal(raw[2], &e.Count); err != nil {
		return fmt.Errorf("edge count: %w", err)
	}
	return nil
}

func (e Edge) MarshalYAML() (any, error) {
	return []any{e.Source, e.Target, e.Count}, nil
}

func (e *Edge) UnmarshalYAML(value *yaml.Node) error {
	if value.Kind != yaml.SequenceNode || len(value.Content) != 3 {
		return fmt.Errorf("edge: expected [source, target, count] at line %d", value.Line)
	}
	if err := value.Content[0].Decode(&e.Source); err != nil {
		return fmt.Errorf("edge source: %w", err)
	}
	if err := value.Content[1].Decode(&e.Target); err != nil {
		return fmt.Errorf("edge target: %w", err)
	}
	if err := value.Content[2].Decode(&e.Count); err != nil {
		return fmt.Errorf("edge count: %w", err)
	}
	return nil
}

// Graph is the terminal artifact of a build
type Graph struct {
	Nodes []Node `json:"nodes" yaml:"nodes"`
	Edges []Edge `json:"edges" yaml:"edges"`
}

// OrgRepository is one row of an organization repository listing
type OrgRepository struct {
	ID          int64
	FullName    string
	Description string
	HTMLURL     string
	Forks       int
	Stars       int
	CreatedAt   *time.Time
	PushedAt    *time.Time
}

// Event is one row of the activity event history
type Event struct {
	RepoID    RepoID    `db:"repo_id"`
	RepoName  string    `db:"repo_name"`
	ActorID   int64     `db:"actor_id"`
	Type      string    `db:"type"`
	CreatedAt time.Time `db:"created_at"`
}

// InfluenceSample is one observation of a repository's influence score
type InfluenceSample struct {
	RepoID    RepoID    `db:"repo_id"`
	Platform  string    `db:"platform"`
	Openrank  float64   `db:"openrank"`
	CreatedAt time.Time `db:"created_at"`
}
