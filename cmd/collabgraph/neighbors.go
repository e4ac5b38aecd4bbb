package main

import (
	"fmt"
	"os"

	"github.com/rohankatakam/collabgraph/internal/config"
	"github.com/rohankatakam/collabgraph/internal/errors"
	"github.com/rohankatakam/collabgraph/internal/models"
	"github.com/spf13/cobra"
)

var neighborsCmd = &cobra.Command{
	Use:   "neighbors <ids...>",
	Short: "List repositories sharing the most active developers with the given ones",
	Long: `Run a single neighbor search over the discovery window. Repositories are ranked by
how many distinct developers active in any of the given repositories were also
active in them; the given repositories themselves are excluded.

Example:
  collabgraph neighbors 41986369 --limit 20`,
	Args: cobra.MinimumNArgs(1),
	RunE: runNeighbors,
}

func init() {
	neighborsCmd.Flags().Int("limit", 10, "maximum number of neighbors")
	neighborsCmd.Flags().Bool("no-cache", false, "bypass the lookup cache")
}

func runNeighbors(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	ids, err := models.ParseRepoIDs(args)
	if err != nil {
		return errors.ValidationError(err.Error())
	}
	limit, _ := cmd.Flags().GetInt("limit")
	if limit <= 0 {
		return errors.ValidationErrorf("--limit must be positive, got %d", limit)
	}

	if err := requireConfig(config.ValidationContextNeighbors); err != nil {
		return err
	}
	discovery, err := cfg.Windows.Discovery.Window()
	if err != nil {
		return errors.ConfigErrorf("windows.discovery: %v", err)
	}
	// Neighbor search never reads the scoring window
	scoring, err := cfg.Windows.Scoring.Window()
	if err != nil {
		scoring = discovery
	}

	noCache, _ := cmd.Flags().GetBool("no-cache")
	store, err := openStore(ctx, discovery, scoring, !noCache)
	if err != nil {
		return err
	}
	defer store.Close()

	neighbors, err := store.FindNeighbors(ctx, ids, limit)
	if err != nil {
		return err
	}

	if len(neighbors) == 0 {
		fmt.Fprintf(os.Stdout, "No repositories share active developers with %v in %s\n", ids, discovery.Key())
		return nil
	}

	fmt.Fprintf(os.Stdout, "%-12s  %-8s  %s\n", "REPO ID", "SHARED", "NAME")
	for _, n := range neighbors {
		fmt.Fprintf(os.Stdout, "%-12d  %-8d  %s\n", n.ID, n.ActiveCount, n.Name)
	}
	return nil
}
