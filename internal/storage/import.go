package storage

import (
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/rohankatakam/collabgraph/internal/models"
)

// Column layouts accepted by the CSV readers; extra columns are ignored
var (
	EventColumns     = []string{"repo_id", "repo_name", "actor_id", "type", "created_at"}
	InfluenceColumns = []string{"repo_id", "platform", "openrank", "created_at"}
)

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	time.DateOnly,
}

// ReadEventsCSV parses an event export with a header row naming EventColumns
func ReadEventsCSV(r io.Reader) ([]models.Event, error) {
	var events []models.Event
	err := readCSV(r, EventColumns, func(row func(string) string) error {
		id, err := models.ParseRepoID(row("repo_id"))
		if err != nil {
			return err
		}
		actor, err := strconv.ParseInt(row("actor_id"), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid actor_id %q", row("actor_id"))
		}
		created, err := parseTimestamp(row("created_at"))
		if err != nil {
			return err
		}
		events = append(events, models.Event{
			RepoID:    id,
			RepoName:  row("repo_name"),
			ActorID:   actor,
			Type:      row("type"),
			CreatedAt: created,
		})
		return nil
	})
	return events, err
}

// ReadInfluenceCSV parses an influence export with a header row naming InfluenceColumns
func ReadInfluenceCSV(r io.Reader) ([]models.InfluenceSample, error) {
	var samples []models.InfluenceSample
	err := readCSV(r, InfluenceColumns, func(row func(string) string) error {
		id, err := models.ParseRepoID(row("repo_id"))
		if err != nil {
			return err
		}
		score, err := strconv.ParseFloat(row("openrank"), 64)
		if err != nil {
			return fmt.Errorf("invalid openrank %q", row("openrank"))
		}
		created, err := parseTimestamp(row("created_at"))
		if err != nil {
			return err
		}
		samples = append(samples, models.InfluenceSample{
			RepoID:    id,
			Platform:  row("platform"),
			Openrank:  score,
			CreatedAt: created,
		})
		return nil
	})
	return samples, err
}

func readCSV(r io.Reader, required []string, fn func(row func(string) string) error) error {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
	}
	for _, name := range required {
		if _, ok := index[name]; !ok {
			return fmt.Errorf("missing column %q", name)
		}
	}

	for line := 2; ; line++ {
		record, err := cr.Read()
		if stderrors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		row := func(name string) string {
			i := index[name]
			if i >= len(record) {
				return ""
			}
			return strings.TrimSpace(record[i])
		}
		if err := fn(row); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}

func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid timestamp %q", s)
}
