package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rohankatakam/collabgraph/internal/config"
	"github.com/rohankatakam/collabgraph/internal/errors"
	"github.com/rohankatakam/collabgraph/internal/github"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var crawlOrgCmd = &cobra.Command{
	Use:   "crawl-org <org>",
	Short: "Export the repositories of a GitHub organization to CSV",
	Long: `List every repository of a GitHub organization and write id, name, description,
URL, fork and star counts and dates to a CSV file.

A token (GITHUB_TOKEN, GH_TOKEN, or the keychain) raises the API rate limit.

Example:
  collabgraph crawl-org ray-project -o ray.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runCrawlOrg,
}

func init() {
	crawlOrgCmd.Flags().StringP("output", "o", "", "CSV path (default: <org>_repos.csv)")
}

func runCrawlOrg(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	org := args[0]

	creds := config.NewCredentialManager(config.ModeFor(cfg), logger.Logger)
	if err := creds.ResolveGitHubToken(cfg); err != nil {
		return err
	}
	if err := requireConfig(config.ValidationContextCrawl); err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("output")
	if path == "" {
		path = org + "_repos.csv"
	}

	client := github.NewClient(cfg.GitHub.Token, cfg.GitHub.RateLimit, cfg.GitHub.PerPage, logger.Logger)
	repos, err := client.ListOrgRepos(ctx, org)
	if err != nil {
		return errors.ExternalErrorf(err, "crawl %s", org)
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return errors.FileSystemErrorf(err, "create %s", dir)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return errors.FileSystemErrorf(err, "create %s", path)
	}
	if err := github.WriteReposCSV(f, repos); err != nil {
		f.Close()
		return errors.FileSystemErrorf(err, "write %s", path)
	}
	if err := f.Close(); err != nil {
		return errors.FileSystemErrorf(err, "close %s", path)
	}

	logger.WithFields(logrus.Fields{"org": org, "repos": len(repos), "path": path}).Info("organization crawled")
	fmt.Fprintf(os.Stdout, "Wrote %d repositories of %s to %s\n", len(repos), org, path)
	return nil
}
