package main

import (
	"fmt"
	"os"

	"github.com/rohankatakam/collabgraph/internal/collab"
	"github.com/rohankatakam/collabgraph/internal/config"
	"github.com/rohankatakam/collabgraph/internal/errors"
	"github.com/rohankatakam/collabgraph/internal/graph"
	"github.com/rohankatakam/collabgraph/internal/models"
	"github.com/rohankatakam/collabgraph/internal/output"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var buildCmd = &cobra.Command{
	Use:   "build [seed ids...]",
	Short: "Build the collaboration graph around seed repositories",
	Long: `Expand the seed repositories two hops through shared active developers, keep the
candidates whose average influence reaches the inclusion threshold, and link every
pair sharing at least edge-threshold developers.

Seeds come from the arguments, or from graph.seeds in the config file.

Examples:
  collabgraph build 41986369
  collabgraph build 41986369 --hop1 20 --workers 16 -o ray.yaml
  collabgraph build --skip-failures --publish`,
	RunE: runBuild,
}

func init() {
	registerBuildFlags(buildCmd)
}

func registerBuildFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "artifact path (default: output.path)")
	cmd.Flags().String("format", "", "artifact format: json or yaml (default: from the output extension)")
	cmd.Flags().Int("workers", 0, "concurrent store lookups")
	cmd.Flags().Bool("skip-failures", false, "skip repositories whose lookups fail instead of aborting")
	cmd.Flags().Int("inclusion-threshold", 0, "minimum average influence for a node")
	cmd.Flags().Int("edge-threshold", 0, "minimum shared developer count for an edge")
	cmd.Flags().Int("hop1", 0, "neighbors kept per seed")
	cmd.Flags().Int("hop2", 0, "neighbors kept per first-hop repository")
	cmd.Flags().Bool("no-cache", false, "bypass the lookup cache")
	cmd.Flags().Bool("publish", false, "also publish the graph to Neo4j")
	cmd.Flags().Bool("replace", false, "with --publish, remove existing relationships first")
	cmd.Flags().Bool("quiet", false, "one-line summary")
	cmd.Flags().Bool("json", false, "machine-readable summary")
}

func runBuild(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	applyBuildFlags(cmd, cfg)

	seedArgs := args
	if len(seedArgs) == 0 {
		seedArgs = cfg.Graph.Seeds
	}
	if len(seedArgs) == 0 {
		return errors.ValidationError("no seed repositories given (pass ids or set graph.seeds)")
	}
	seeds, err := models.ParseRepoIDs(seedArgs)
	if err != nil {
		return errors.ValidationError(err.Error())
	}

	if err := requireConfig(config.ValidationContextBuild); err != nil {
		return err
	}
	path, format, err := artifactTarget(cmd, cfg)
	if err != nil {
		return err
	}
	publish, _ := cmd.Flags().GetBool("publish")
	if publish {
		if err := requireConfig(config.ValidationContextPublish); err != nil {
			return err
		}
	}

	discovery, err := cfg.Windows.Discovery.Window()
	if err != nil {
		return errors.ConfigErrorf("windows.discovery: %v", err)
	}
	scoring, err := cfg.Windows.Scoring.Window()
	if err != nil {
		return errors.ConfigErrorf("windows.scoring: %v", err)
	}

	noCache, _ := cmd.Flags().GetBool("no-cache")
	store, err := openStore(ctx, discovery, scoring, !noCache)
	if err != nil {
		return err
	}
	defer store.Close()

	logger.WithFields(logrus.Fields{
		"discovery": discovery.Key(),
		"scoring":   scoring.Key(),
		"cache":     cfg.Cache.Type,
	}).Info("store ready")

	builder := collab.NewBuilder(store, builderOptions(cfg), logger.Logger)
	g, err := builder.Build(ctx, seeds)
	if err != nil {
		return err
	}

	if err := output.WriteGraph(path, g, format); err != nil {
		return err
	}
	logger.WithFields(logrus.Fields{"path": path, "format": format}).Info("graph written")

	summary := &output.Summary{
		RunID:      runID,
		OutputPath: path,
		Graph:      g,
		Stats:      builder.LastStats(),
	}

	if publish {
		replace, _ := cmd.Flags().GetBool("replace")
		if _, err := publishGraph(cmd, g, replace); err != nil {
			return fmt.Errorf("graph written to %s but publishing failed: %w", path, err)
		}
		summary.Published = true
	}

	return output.NewFormatter(summaryVerbosity(cmd)).Format(summary, os.Stdout)
}

// applyBuildFlags copies explicitly set flags over the loaded config
func applyBuildFlags(cmd *cobra.Command, c *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("output") {
		c.Output.Path, _ = flags.GetString("output")
		if !flags.Changed("format") {
			c.Output.Format = output.FormatForPath(c.Output.Path)
		}
	}
	if flags.Changed("format") {
		c.Output.Format, _ = flags.GetString("format")
	}
	if flags.Changed("workers") {
		c.Graph.Workers, _ = flags.GetInt("workers")
	}
	if flags.Changed("skip-failures") {
		c.Graph.SkipFailures, _ = flags.GetBool("skip-failures")
	}
	if flags.Changed("inclusion-threshold") {
		c.Graph.InclusionThreshold, _ = flags.GetInt("inclusion-threshold")
	}
	if flags.Changed("edge-threshold") {
		c.Graph.EdgeThreshold, _ = flags.GetInt("edge-threshold")
	}
	if flags.Changed("hop1") {
		c.Graph.Hop1Limit, _ = flags.GetInt("hop1")
	}
	if flags.Changed("hop2") {
		c.Graph.Hop2Limit, _ = flags.GetInt("hop2")
	}
}

func builderOptions(c *config.Config) collab.Options {
	return collab.Options{
		InclusionThreshold: c.Graph.InclusionThreshold,
		EdgeThreshold:      c.Graph.EdgeThreshold,
		Hop1Limit:          c.Graph.Hop1Limit,
		Hop2Limit:          c.Graph.Hop2Limit,
		Workers:            c.Graph.Workers,
		SkipFailures:       c.Graph.SkipFailures,
	}
}

// artifactTarget resolves the output path, giving it the extension of the chosen format.
// An explicit -o is kept as given and must not contradict --format.
func artifactTarget(cmd *cobra.Command, c *config.Config) (string, string, error) {
	format := c.Output.Format
	if cmd.Flags().Changed("output") {
		if err := output.CheckPathFormat(c.Output.Path, format); err != nil {
			return "", "", err
		}
		return c.Output.Path, format, nil
	}
	return output.DefaultPath(c.Output.Path, format), format, nil
}

func summaryVerbosity(cmd *cobra.Command) output.VerbosityLevel {
	if quiet, _ := cmd.Flags().GetBool("quiet"); quiet {
		return output.VerbosityQuiet
	}
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return output.VerbosityJSON
	}
	return output.GetDefaultVerbosity()
}

func publishGraph(cmd *cobra.Command, g *models.Graph, replace bool) (*graph.PublishStats, error) {
	ctx := cmd.Context()

	creds := config.NewCredentialManager(config.ModeFor(cfg), logger.Logger)
	if err := creds.ResolveNeo4jPassword(cfg); err != nil {
		return nil, err
	}

	client, err := graph.NewClient(ctx, cfg.Neo4j.URI, cfg.Neo4j.User, cfg.Neo4j.Password, cfg.Neo4j.Database, logger.Logger)
	if err != nil {
		return nil, err
	}
	defer client.Close(ctx)

	return graph.NewPublisher(client).Publish(ctx, g, graph.PublishOptions{
		RunID:   runID,
		Replace: replace,
		Batch:   graph.DefaultBatchConfig(),
	})
}
