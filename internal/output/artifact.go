package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rohankatakam/collabgraph/internal/errors"
	"github.com/rohankatakam/collabgraph/internal/models"
	"gopkg.in/yaml.v3"
)

// Artifact formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// MarshalGraph encodes graph as JSON (4-space indent) or YAML
func MarshalGraph(graph *models.Graph, format string) ([]byte, error) {
	switch format {
	case FormatJSON, "":
		var buf bytes.Buffer
		enc := json.NewEncoder(&buf)
		enc.SetIndent("", "    ")
		enc.SetEscapeHTML(false)
		if err := enc.Encode(graph); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case FormatYAML:
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(graph); err != nil {
			return nil, err
		}
		if err := enc.Close(); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	default:
		return nil, errors.ValidationErrorf("unknown output format %q", format)
	}
}

// WriteGraph writes the artifact to path through a temp file and rename,
// so a failed write never leaves a partial artifact behind
func WriteGraph(path string, graph *models.Graph, format string) error {
	data, err := MarshalGraph(graph, format)
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return errors.FileSystemErrorf(err, "create output directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return errors.FileSystemErrorf(err, "create temp file in %s", dir)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return errors.FileSystemErrorf(err, "write %s", tmpName)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return errors.FileSystemErrorf(err, "sync %s", tmpName)
	}
	if err := tmp.Close(); err != nil {
		return errors.FileSystemErrorf(err, "close %s", tmpName)
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		return errors.FileSystemErrorf(err, "chmod %s", tmpName)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return errors.FileSystemErrorf(err, "rename to %s", path)
	}
	return nil
}

// ReadGraph loads an artifact written by WriteGraph. The format is read from
// the content, so a misnamed file still loads.
func ReadGraph(path string) (*models.Graph, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.FileSystemErrorf(err, "read %s", path)
	}

	var graph models.Graph
	switch DetectFormat(data) {
	case FormatYAML:
		err = yaml.Unmarshal(data, &graph)
	default:
		err = json.Unmarshal(data, &graph)
	}
	if err != nil {
		return nil, errors.ValidationErrorf("parse graph %s: %v", path, err)
	}

	if graph.Nodes == nil {
		graph.Nodes = []models.Node{}
	}
	if graph.Edges == nil {
		graph.Edges = []models.Edge{}
	}
	return &graph, nil
}

// DetectFormat reports whether data is a JSON or a YAML artifact. JSON
// artifacts always start with an object.
func DetectFormat(data []byte) string {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	data = bytes.TrimLeft(data, " \t\r\n")
	if len(data) > 0 && data[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

// CheckPathFormat rejects a path whose extension names a different format.
// Paths without a .json, .yaml or .yml extension accept either.
func CheckPathFormat(path, format string) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".json", ".yaml", ".yml":
	default:
		return nil
	}
	if format == "" {
		format = FormatJSON
	}
	if got := FormatForPath(path); got != format {
		return errors.ValidationErrorf("output %s has a %s extension but --format is %s", path, got, format)
	}
	return nil
}

// FormatForPath picks the artifact format from a file extension
func FormatForPath(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML
	default:
		return FormatJSON
	}
}

// DefaultPath swaps the extension of path to match format
func DefaultPath(path, format string) string {
	ext := filepath.Ext(path)
	want := "." + format
	if ext == want || (format == FormatYAML && ext == ".yml") {
		return path
	}
	return fmt.Sprintf("%s%s", strings.TrimSuffix(path, ext), want)
}
