package main

import (
	"fmt"
	"os"

	"github.com/rohankatakam/collabgraph/internal/cache"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Manage the lookup cache",
}

var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Drop every cached lookup",
	Long: `Remove all cached neighbor, relation, influence and name lookups from the
configured cache (cache.type bolt or redis). Use it after the underlying
event data changes within an already cached window.`,
	Args: cobra.NoArgs,
	RunE: runCacheClear,
}

func init() {
	cacheCmd.AddCommand(cacheClearCmd)
}

func runCacheClear(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if cfg.Cache.Type == "" || cfg.Cache.Type == "none" {
		fmt.Fprintln(os.Stdout, "Cache is disabled (cache.type: none), nothing to clear.")
		return nil
	}

	c, err := cache.New(ctx, cacheOptions(cfg), logger.Logger)
	if err != nil {
		return err
	}
	defer c.Close()

	if err := c.Clear(ctx); err != nil {
		return err
	}
	logger.WithField("type", cfg.Cache.Type).Info("cache cleared")
	fmt.Fprintf(os.Stdout, "Cleared %s cache\n", cfg.Cache.Type)
	return nil
}
