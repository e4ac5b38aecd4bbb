package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/rohankatakam/collabgraph/internal/config"
	"github.com/rohankatakam/collabgraph/internal/errors"
	"github.com/rohankatakam/collabgraph/internal/logging"
	"github.com/spf13/cobra"
)

var (
	// Version information (set by build flags)
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"

	cfgFile string
	verbose bool
	logFile string
	logJSON bool
	logger  *logging.Logger
	cfg     *config.Config
	runID   string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		if logger != nil {
			logger.WithFields(errors.Fields(err)).Debug("command failed")
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		cancel()
		os.Exit(errors.ExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:   "collabgraph",
	Short: "Build repository collaboration graphs from shared developer activity",
	Long: `collabgraph expands a set of seed repositories two hops through shared active
developers, keeps the influential ones, and links every pair that shares enough
developers into a weighted graph.`,
	Version:       Version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgFile)
		if err != nil {
			return err
		}

		if logFile == "" {
			logFile = cfg.Log.File
		}
		logger, err = logging.New(logging.Config{
			Verbose:    verbose,
			OutputFile: logFile,
			JSONFormat: logJSON || cfg.Log.JSON,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		runID = uuid.New().String()
		logger.SetRunID(runID)
		logger.WithField("command", cmd.Name()).Debug("configuration loaded")
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Close()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: .collabgraph/config.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", "", "also write logs to this file")
	rootCmd.PersistentFlags().BoolVar(&logJSON, "log-json", false, "force JSON log output")

	rootCmd.SetVersionTemplate(`collabgraph {{.Version}}
Build time: ` + BuildTime + `
Git commit: ` + GitCommit + `
`)

	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(neighborsCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(crawlOrgCmd)
	rootCmd.AddCommand(initLocalCmd)
	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(cacheCmd)
}

// requireConfig validates cfg for a command, logging warnings
func requireConfig(ctx config.ValidationContext) error {
	result := cfg.Validate(ctx)
	for _, w := range result.Warnings {
		logger.Warn(w)
	}
	return cfg.Require(ctx)
}
