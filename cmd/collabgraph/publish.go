package main

import (
	"fmt"
	"os"

	"github.com/rohankatakam/collabgraph/internal/config"
	"github.com/rohankatakam/collabgraph/internal/output"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish <graph file>",
	Short: "Write a graph artifact to Neo4j",
	Long: `Load a graph produced by build (JSON or YAML, picked by extension) and merge its
nodes and edges into Neo4j as Repository nodes joined by SHARES_DEVELOPERS.

Example:
  collabgraph publish graph.json --replace`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	publishCmd.Flags().Bool("replace", false, "remove existing SHARES_DEVELOPERS relationships first")
}

func runPublish(cmd *cobra.Command, args []string) error {
	if err := requireConfig(config.ValidationContextPublish); err != nil {
		return err
	}

	g, err := output.ReadGraph(args[0])
	if err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{
		"path":  args[0],
		"nodes": len(g.Nodes),
		"edges": len(g.Edges),
	}).Info("graph loaded")

	replace, _ := cmd.Flags().GetBool("replace")
	stats, err := publishGraph(cmd, g, replace)
	if err != nil {
		return err
	}

	fmt.Fprintf(os.Stdout, "Published %d nodes and %d edges to %s (%d batches)\n",
		stats.Nodes, stats.Edges, cfg.Neo4j.URI, stats.Batches)
	return nil
}
