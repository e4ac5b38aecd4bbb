package github

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/rohankatakam/collabgraph/internal/models"
)

// utf8BOM keeps spreadsheet tools from guessing a legacy encoding
const utf8BOM = "\ufeff"

const csvDateLayout = "2006/01/02"

// ReposCSVHeader is the column order of WriteReposCSV
var ReposCSVHeader = []string{
	"id",
	"full_name",
	"description",
	"html_url",
	"forks_count",
	"stargazers_count",
	"created_at",
	"pushed_at",
}

// WriteReposCSV writes repos as a BOM-prefixed UTF-8 CSV with a header row
func WriteReposCSV(w io.Writer, repos []models.OrgRepository) error {
	if _, err := io.WriteString(w, utf8BOM); err != nil {
		return fmt.Errorf("write BOM: %w", err)
	}

	cw := csv.NewWriter(w)
	if err := cw.Write(ReposCSVHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range repos {
		record := []string{
			strconv.FormatInt(r.ID, 10),
			r.FullName,
			r.Description,
			r.HTMLURL,
			strconv.Itoa(r.Forks),
			strconv.Itoa(r.Stars),
			formatDate(r.CreatedAt),
			formatDate(r.PushedAt),
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write %s: %w", r.FullName, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(csvDateLayout)
}
