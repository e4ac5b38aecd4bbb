package config

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/zalando/go-keyring"
)

const (
	// KeyringService is the service name in the OS keychain
	KeyringService = "collabgraph"

	// KeyringStorePasswordItem holds the analytical store password
	KeyringStorePasswordItem = "store-password"

	// KeyringGitHubTokenItem holds the GitHub token used by crawl-org
	KeyringGitHubTokenItem = "github-token"

	// KeyringNeo4jPasswordItem holds the Neo4j password used by publish
	KeyringNeo4jPasswordItem = "neo4j-password"
)

// KeyringManager handles secure credential storage in OS keychain
type KeyringManager struct {
	logger *logrus.Logger
}

// NewKeyringManager creates a new keyring manager
func NewKeyringManager(logger *logrus.Logger) *KeyringManager {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &KeyringManager{logger: logger}
}

// Get returns the secret stored under item, or "" when it was never set
func (km *KeyringManager) Get(item string) (string, error) {
	secret, err := keyring.Get(KeyringService, item)
	if err == keyring.ErrNotFound {
		return "", nil
	}
	if err != nil {
		km.logger.WithError(err).WithField("item", item).Debug("failed to read from keychain")
		return "", fmt.Errorf("failed to read %s from OS keychain: %w", item, err)
	}
	return secret, nil
}

// Set stores secret under item
func (km *KeyringManager) Set(item, secret string) error {
	if secret == "" {
		return fmt.Errorf("%s cannot be empty", item)
	}
	if err := keyring.Set(KeyringService, item, secret); err != nil {
		km.logger.WithError(err).WithField("item", item).Error("failed to save to keychain")
		return fmt.Errorf("failed to save %s to OS keychain: %w", item, err)
	}
	km.logger.WithField("item", item).Info("secret saved to keychain")
	return nil
}

// Delete removes item; deleting a missing item is not an error
func (km *KeyringManager) Delete(item string) error {
	err := keyring.Delete(KeyringService, item)
	if err == keyring.ErrNotFound {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to delete %s from OS keychain: %w", item, err)
	}
	km.logger.WithField("item", item).Info("secret deleted from keychain")
	return nil
}

// IsAvailable checks if OS keychain is available.
// Returns false on headless systems where no secret service is running.
func (km *KeyringManager) IsAvailable() bool {
	_, err := keyring.Get(KeyringService, "test-availability")
	if err == keyring.ErrNotFound {
		return true
	}
	if err != nil {
		km.logger.WithError(err).Debug("keychain not available")
		return false
	}
	return true
}
