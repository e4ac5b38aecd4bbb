package config

import (
	"os"
	"strings"
)

// DeploymentMode represents the deployment context
type DeploymentMode string

const (
	// ModeDevelopment represents running from a source checkout
	// - .env / .env.local supply store credentials
	// - Local SQLite stores are typical
	ModeDevelopment DeploymentMode = "development"

	// ModePackaged represents an installed binary
	// - Credentials via env vars, keychain, or interactive prompt
	ModePackaged DeploymentMode = "packaged"

	// ModeCI represents batch execution (CI pipelines, cron jobs)
	// - All credentials from environment variables
	// - No interactive prompts allowed
	ModeCI DeploymentMode = "ci"
)

// ParseMode maps a user supplied mode name to a DeploymentMode
func ParseMode(mode string) (DeploymentMode, bool) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "development", "dev":
		return ModeDevelopment, true
	case "packaged", "pkg", "production", "prod":
		return ModePackaged, true
	case "ci", "cicd", "batch":
		return ModeCI, true
	}
	return "", false
}

// DetectMode determines the deployment context based on environment
func DetectMode() DeploymentMode {
	if mode, ok := ParseMode(os.Getenv("COLLABGRAPH_MODE")); ok {
		return mode
	}

	if isCI() {
		return ModeCI
	}

	if _, err := os.Stat(".env"); err == nil {
		return ModeDevelopment
	}
	if _, err := os.Stat("go.mod"); err == nil {
		return ModeDevelopment
	}

	return ModePackaged
}

// ModeFor returns the configured mode, falling back to detection
func ModeFor(cfg *Config) DeploymentMode {
	if cfg != nil {
		if mode, ok := ParseMode(cfg.Mode); ok {
			return mode
		}
	}
	return DetectMode()
}

// isCI detects if running in a CI/CD environment
func isCI() bool {
	ciEnvVars := []string{
		"CI",
		"CONTINUOUS_INTEGRATION",
		"GITHUB_ACTIONS",
		"GITLAB_CI",
		"CIRCLECI",
		"JENKINS_URL",
		"BUILDKITE",
		"TF_BUILD",
	}

	for _, envVar := range ciEnvVars {
		if os.Getenv(envVar) != "" {
			return true
		}
	}

	return false
}

// String returns the string representation of the mode
func (m DeploymentMode) String() string {
	return string(m)
}

// AllowsInteractivePrompts returns true if interactive prompts are allowed
func (m DeploymentMode) AllowsInteractivePrompts() bool {
	return m == ModePackaged
}

// UsesKeychain returns true if the OS keychain should be consulted for secrets
func (m DeploymentMode) UsesKeychain() bool {
	return m != ModeCI
}
