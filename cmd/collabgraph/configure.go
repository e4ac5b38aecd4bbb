package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/rohankatakam/collabgraph/internal/config"
	"github.com/spf13/cobra"
)

var configureCmd = &cobra.Command{
	Use:   "configure",
	Short: "Store credentials in the OS keychain",
	Long: `Prompt for the secrets collabgraph needs and store them in the OS keychain, or in
~/.config/collabgraph/credentials.yaml (mode 0600) when no keychain is available.

Without flags every secret is prompted for; press Enter to leave one unchanged.

Examples:
  collabgraph configure
  collabgraph configure --neo4j-password
  collabgraph configure --save-config`,
	RunE: runConfigure,
}

func init() {
	configureCmd.Flags().Bool("store-password", false, "set the analytical store password")
	configureCmd.Flags().Bool("github-token", false, "set the GitHub token used by crawl-org")
	configureCmd.Flags().Bool("neo4j-password", false, "set the Neo4j password used by publish")
	configureCmd.Flags().Bool("save-config", false, "also write the current settings to ~/.collabgraph/config.yaml")
}

func runConfigure(cmd *cobra.Command, args []string) error {
	creds := config.NewCredentialManager(config.ModeFor(cfg), logger.Logger)

	flags := cmd.Flags()
	all := !flags.Changed("store-password") && !flags.Changed("github-token") && !flags.Changed("neo4j-password")
	want := func(name string) bool {
		if all {
			return true
		}
		v, _ := flags.GetBool(name)
		return v
	}

	if creds.Keyring().IsAvailable() {
		fmt.Println("Secrets will be stored in the OS keychain.")
	} else {
		fmt.Printf("OS keychain not available, secrets will be stored in %s\n", creds.CredentialsPath())
	}
	fmt.Println()

	var update config.Credentials
	var err error
	if want("store-password") {
		label := fmt.Sprintf("Store password for %s@%s", cfg.Store.User, cfg.Store.Host)
		if update.StorePassword, err = creds.PromptSecret(label); err != nil {
			return fmt.Errorf("failed to read store password: %w", err)
		}
	}
	if want("github-token") {
		if update.GitHubToken, err = creds.PromptSecret("GitHub token"); err != nil {
			return fmt.Errorf("failed to read GitHub token: %w", err)
		}
	}
	if want("neo4j-password") {
		label := fmt.Sprintf("Neo4j password for %s", cfg.Neo4j.User)
		if update.Neo4jPassword, err = creds.PromptSecret(label); err != nil {
			return fmt.Errorf("failed to read Neo4j password: %w", err)
		}
	}

	if update == (config.Credentials{}) {
		fmt.Println("Nothing to save.")
	} else {
		if err := creds.SaveCredentials(update); err != nil {
			return err
		}
		fmt.Println("Credentials saved.")
	}

	if save, _ := flags.GetBool("save-config"); save {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return fmt.Errorf("failed to locate home directory: %w", err)
		}
		path := filepath.Join(homeDir, ".collabgraph", "config.yaml")
		if err := cfg.Save(path); err != nil {
			return err
		}
		fmt.Printf("Configuration written to %s\n", path)
	}
	return nil
}
