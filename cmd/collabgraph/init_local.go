package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rohankatakam/collabgraph/internal/errors"
	"github.com/rohankatakam/collabgraph/internal/storage"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var initLocalCmd = &cobra.Command{
	Use:   "init-local [path]",
	Short: "Create a local SQLite store, optionally importing CSV exports",
	Long: `Create a SQLite database with the event and influence tables build expects, then
import any CSV exports given. Point the config at it with store.driver: sqlite3.

Event CSVs need the columns repo_id, repo_name, actor_id, type, created_at.
Influence CSVs need repo_id, platform, openrank, created_at.

Examples:
  collabgraph init-local
  collabgraph init-local data/events.db --events events.csv --influence openrank.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInitLocal,
}

func init() {
	initLocalCmd.Flags().StringSlice("events", nil, "event CSV files to import")
	initLocalCmd.Flags().StringSlice("influence", nil, "influence CSV files to import")
}

func runInitLocal(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	path := cfg.Store.Path
	if len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		path = ".collabgraph/local.db"
	}

	local, err := storage.NewLocalStore(ctx, path, cfg.Store.EventsTable, cfg.Store.OpenrankTable, logger.Logger)
	if err != nil {
		return errors.DataAccessErrorf(err, "initialize %s", path)
	}
	defer local.Close()

	eventFiles, _ := cmd.Flags().GetStringSlice("events")
	for _, file := range eventFiles {
		events, err := readCSVFile(file, storage.ReadEventsCSV)
		if err != nil {
			return err
		}
		if err := local.InsertEvents(ctx, events); err != nil {
			return errors.DataAccessErrorf(err, "import %s", file)
		}
		logger.WithFields(logrus.Fields{"file": file, "rows": len(events)}).Info("events imported")
	}

	influenceFiles, _ := cmd.Flags().GetStringSlice("influence")
	for _, file := range influenceFiles {
		samples, err := readCSVFile(file, storage.ReadInfluenceCSV)
		if err != nil {
			return err
		}
		if err := local.InsertInfluence(ctx, samples); err != nil {
			return errors.DataAccessErrorf(err, "import %s", file)
		}
		logger.WithFields(logrus.Fields{"file": file, "rows": len(samples)}).Info("influence imported")
	}

	nEvents, nSamples, err := local.Counts(ctx)
	if err != nil {
		return errors.DataAccessErrorf(err, "count rows in %s", path)
	}

	fmt.Fprintf(os.Stdout, "Local store ready: %s\n", path)
	fmt.Fprintf(os.Stdout, "  events:            %d\n", nEvents)
	fmt.Fprintf(os.Stdout, "  influence samples: %d\n", nSamples)
	fmt.Fprintf(os.Stdout, "\nUse it with:\n  STORE_DRIVER=sqlite3 STORE_PATH=%s collabgraph build <seed ids>\n", path)
	return nil
}

func readCSVFile[T any](path string, read func(io.Reader) ([]T, error)) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.FileSystemErrorf(err, "open %s", path)
	}
	defer f.Close()

	rows, err := read(f)
	if err != nil {
		return nil, errors.ValidationErrorf("%s: %v", path, err)
	}
	return rows, nil
}
