package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/rohankatakam/collabgraph/internal/errors"
	"github.com/sirupsen/logrus"
	"golang.org/x/term"
	"gopkg.in/yaml.v3"
)

// CredentialManager handles credential retrieval with priority chain
// Priority: Environment Variables → Keychain → Credentials File → Interactive Prompt
type CredentialManager struct {
	mode      DeploymentMode
	keyring   *KeyringManager
	credsPath string
	prompt    io.Writer
}

// Credentials is the plaintext fallback file format (written 0600)
type Credentials struct {
	StorePassword string `yaml:"store_password,omitempty"`
	Neo4jPassword string `yaml:"neo4j_password,omitempty"`
	GitHubToken   string `yaml:"github_token,omitempty"`
}

// NewCredentialManager creates a new credential manager
func NewCredentialManager(mode DeploymentMode, logger *logrus.Logger) *CredentialManager {
	homeDir, _ := os.UserHomeDir()
	return &CredentialManager{
		mode:      mode,
		keyring:   NewKeyringManager(logger),
		credsPath: filepath.Join(homeDir, ".config", "collabgraph", "credentials.yaml"),
		prompt:    os.Stderr,
	}
}

// Keyring exposes the keychain backend (used by the configure command)
func (cm *CredentialManager) Keyring() *KeyringManager {
	return cm.keyring
}

// ResolveStorePassword fills cfg.Store.Password unless the env already did.
// An empty password is valid (ClickHouse default user), so it is never an error.
func (cm *CredentialManager) ResolveStorePassword(cfg *Config) error {
	if cfg.Store.Password != "" || cfg.Store.Driver == "sqlite3" || cfg.Store.DSN != "" {
		return nil
	}
	secret, err := cm.lookup(KeyringStorePasswordItem, func(c *Credentials) string { return c.StorePassword })
	if err != nil {
		return err
	}
	if secret == "" && cm.mode.AllowsInteractivePrompts() && isInteractive() {
		fmt.Fprintf(cm.prompt, "Password for %s@%s (Enter for none): ", cfg.Store.User, cfg.Store.Host)
		secret, err = cm.readSecurely()
		if err != nil {
			return errors.ConfigErrorf("failed to read store password: %v", err)
		}
	}
	cfg.Store.Password = secret
	return nil
}

// ResolveNeo4jPassword fills cfg.Neo4j.Password; publishing cannot proceed without it
func (cm *CredentialManager) ResolveNeo4jPassword(cfg *Config) error {
	if cfg.Neo4j.Password != "" {
		return nil
	}
	secret, err := cm.lookup(KeyringNeo4jPasswordItem, func(c *Credentials) string { return c.Neo4jPassword })
	if err != nil {
		return err
	}
	if secret == "" {
		return errors.ConfigErrorf(
			"NEO4J_PASSWORD not found. Set it via:\n"+
				"  1. Environment variable: export NEO4J_PASSWORD=...\n"+
				"  2. Run: collabgraph configure --neo4j-password\n"+
				"  3. Credentials file: %s", cm.credsPath)
	}
	cfg.Neo4j.Password = secret
	return nil
}

// ResolveGitHubToken fills cfg.GitHub.Token. The token is optional for public orgs.
func (cm *CredentialManager) ResolveGitHubToken(cfg *Config) error {
	if cfg.GitHub.Token != "" {
		return nil
	}
	if token := os.Getenv("GH_TOKEN"); token != "" {
		cfg.GitHub.Token = token
		return nil
	}
	secret, err := cm.lookup(KeyringGitHubTokenItem, func(c *Credentials) string { return c.GitHubToken })
	if err != nil {
		return err
	}
	cfg.GitHub.Token = secret
	return nil
}

func (cm *CredentialManager) lookup(item string, fromFile func(*Credentials) string) (string, error) {
	if cm.mode.UsesKeychain() && cm.keyring.IsAvailable() {
		secret, err := cm.keyring.Get(item)
		if err != nil {
			return "", errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityHigh, "keychain lookup failed")
		}
		if secret != "" {
			return secret, nil
		}
	}

	if creds, err := cm.loadCredentialsFile(); err == nil {
		return fromFile(creds), nil
	}
	return "", nil
}

// SaveCredentials saves credentials to keychain (preferred) or credentials file (fallback)
func (cm *CredentialManager) SaveCredentials(creds Credentials) error {
	if cm.keyring.IsAvailable() {
		items := map[string]string{
			KeyringStorePasswordItem: creds.StorePassword,
			KeyringNeo4jPasswordItem: creds.Neo4jPassword,
			KeyringGitHubTokenItem:   creds.GitHubToken,
		}
		for item, secret := range items {
			if secret == "" {
				continue
			}
			if err := cm.keyring.Set(item, secret); err != nil {
				return errors.Wrap(err, errors.ErrorTypeConfig, errors.SeverityHigh,
					"failed to save credentials to keychain")
			}
		}
		return nil
	}

	existing, err := cm.loadCredentialsFile()
	if err != nil {
		existing = &Credentials{}
	}
	if creds.StorePassword != "" {
		existing.StorePassword = creds.StorePassword
	}
	if creds.Neo4jPassword != "" {
		existing.Neo4jPassword = creds.Neo4jPassword
	}
	if creds.GitHubToken != "" {
		existing.GitHubToken = creds.GitHubToken
	}
	return cm.saveCredentialsFile(*existing)
}

// PromptSecret asks for a secret on the terminal without echo
func (cm *CredentialManager) PromptSecret(label string) (string, error) {
	fmt.Fprintf(cm.prompt, "%s: ", label)
	return cm.readSecurely()
}

// CredentialsPath returns the plaintext fallback file location
func (cm *CredentialManager) CredentialsPath() string {
	return cm.credsPath
}

func (cm *CredentialManager) loadCredentialsFile() (*Credentials, error) {
	data, err := os.ReadFile(cm.credsPath)
	if err != nil {
		return nil, err
	}

	var creds Credentials
	if err := yaml.Unmarshal(data, &creds); err != nil {
		return nil, err
	}
	return &creds, nil
}

func (cm *CredentialManager) saveCredentialsFile(creds Credentials) error {
	if err := os.MkdirAll(filepath.Dir(cm.credsPath), 0700); err != nil {
		return err
	}

	data, err := yaml.Marshal(creds)
	if err != nil {
		return err
	}

	// User-only read/write
	return os.WriteFile(cm.credsPath, data, 0600)
}

// readSecurely reads a password/token from stdin without echoing
func (cm *CredentialManager) readSecurely() (string, error) {
	if term.IsTerminal(int(syscall.Stdin)) {
		bytes, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(cm.prompt)
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(bytes)), nil
	}

	// Piped input
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// isInteractive returns true if stdin is a terminal (not piped)
func isInteractive() bool {
	return term.IsTerminal(int(syscall.Stdin))
}
