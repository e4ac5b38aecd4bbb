package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rohankatakam/collabgraph/internal/models"
	"github.com/spf13/viper"
)

// Config holds all configuration settings
type Config struct {
	// Deployment mode override ("development", "packaged", "ci"); empty = detect
	Mode string `yaml:"mode" mapstructure:"mode"`

	// Analytical store holding the event history and influence time series
	Store StoreConfig `yaml:"store" mapstructure:"store"`

	// Observation windows (discovery and scoring are independent)
	Windows WindowsConfig `yaml:"windows" mapstructure:"windows"`

	// Graph construction parameters
	Graph GraphConfig `yaml:"graph" mapstructure:"graph"`

	// Query-result cache
	Cache CacheConfig `yaml:"cache" mapstructure:"cache"`

	// Artifact output
	Output OutputConfig `yaml:"output" mapstructure:"output"`

	// Optional graph publishing target
	Neo4j Neo4jConfig `yaml:"neo4j" mapstructure:"neo4j"`

	// Organization crawler
	GitHub GitHubConfig `yaml:"github" mapstructure:"github"`

	Log LogConfig `yaml:"log" mapstructure:"log"`
}

type StoreConfig struct {
	Driver        string        `yaml:"driver" mapstructure:"driver"` // "clickhouse", "pgx", "postgres", "sqlite3"
	DSN           string        `yaml:"dsn" mapstructure:"dsn"`       // Overrides host/port/user/database when set
	Host          string        `yaml:"host" mapstructure:"host"`
	Port          int           `yaml:"port" mapstructure:"port"`
	Database      string        `yaml:"database" mapstructure:"database"`
	User          string        `yaml:"user" mapstructure:"user"`
	Password      string        `yaml:"-" mapstructure:"-"` // env or keychain only
	Path          string        `yaml:"path" mapstructure:"path"` // sqlite3 file
	EventsTable   string        `yaml:"events_table" mapstructure:"events_table"`
	OpenrankTable string        `yaml:"openrank_table" mapstructure:"openrank_table"`
	Platform      string        `yaml:"platform" mapstructure:"platform"`
	QueryTimeout  time.Duration `yaml:"query_timeout" mapstructure:"query_timeout"`
	RetryAttempts int           `yaml:"retry_attempts" mapstructure:"retry_attempts"`
	MaxQPS        float64       `yaml:"max_qps" mapstructure:"max_qps"` // 0 = unlimited
}

type WindowConfig struct {
	Start string `yaml:"start" mapstructure:"start"` // YYYY-MM-DD, inclusive
	End   string `yaml:"end" mapstructure:"end"`     // YYYY-MM-DD, exclusive
}

type WindowsConfig struct {
	Discovery WindowConfig `yaml:"discovery" mapstructure:"discovery"`
	Scoring   WindowConfig `yaml:"scoring" mapstructure:"scoring"`
}

type GraphConfig struct {
	Seeds              []string `yaml:"seeds" mapstructure:"seeds"`
	Hop1Limit          int      `yaml:"hop1_limit" mapstructure:"hop1_limit"`
	Hop2Limit          int      `yaml:"hop2_limit" mapstructure:"hop2_limit"`
	InclusionThreshold int      `yaml:"inclusion_threshold" mapstructure:"inclusion_threshold"`
	EdgeThreshold      int      `yaml:"edge_threshold" mapstructure:"edge_threshold"`
	Workers            int      `yaml:"workers" mapstructure:"workers"`
	SkipFailures       bool     `yaml:"skip_failures" mapstructure:"skip_failures"`
}

type CacheConfig struct {
	Type          string        `yaml:"type" mapstructure:"type"` // "none", "bolt", "redis"
	Path          string        `yaml:"path" mapstructure:"path"`
	TTL           time.Duration `yaml:"ttl" mapstructure:"ttl"`
	RedisAddr     string        `yaml:"redis_addr" mapstructure:"redis_addr"`
	RedisPassword string        `yaml:"-" mapstructure:"-"`
	RedisDB       int           `yaml:"redis_db" mapstructure:"redis_db"`
}

type OutputConfig struct {
	Path   string `yaml:"path" mapstructure:"path"`
	Format string `yaml:"format" mapstructure:"format"` // "json", "yaml"
}

type Neo4jConfig struct {
	URI      string `yaml:"uri" mapstructure:"uri"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"-" mapstructure:"-"`
	Database string `yaml:"database" mapstructure:"database"`
}

type GitHubConfig struct {
	Token     string `yaml:"-" mapstructure:"-"`
	RateLimit int    `yaml:"rate_limit" mapstructure:"rate_limit"` // Requests per second
	PerPage   int    `yaml:"per_page" mapstructure:"per_page"`
}

type LogConfig struct {
	File string `yaml:"file" mapstructure:"file"`
	JSON bool   `yaml:"json" mapstructure:"json"`
}

// Default returns default configuration
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	return &Config{
		Store: StoreConfig{
			Driver:        "clickhouse",
			Host:          "localhost",
			Port:          9000,
			Database:      "opensource",
			User:          "default",
			EventsTable:   "opensource.events",
			OpenrankTable: "opensource.global_openrank",
			Platform:      "GitHub",
			QueryTimeout:  60 * time.Second,
			RetryAttempts: 3,
			MaxQPS:        20,
		},
		Windows: WindowsConfig{
			Discovery: WindowConfig{Start: "2023-10-01", End: "2024-10-01"},
			Scoring:   WindowConfig{Start: "2024-01-01", End: "2024-11-01"},
		},
		Graph: GraphConfig{
			Hop1Limit:          10,
			Hop2Limit:          5,
			InclusionThreshold: 40,
			EdgeThreshold:      20,
			Workers:            8,
		},
		Cache: CacheConfig{
			Type: "none",
			Path: filepath.Join(homeDir, ".collabgraph", "cache.db"),
			TTL:  24 * time.Hour,
		},
		Output: OutputConfig{
			Path:   "graph.json",
			Format: "json",
		},
		Neo4j: Neo4jConfig{
			User:     "neo4j",
			Database: "neo4j",
		},
		GitHub: GitHubConfig{
			RateLimit: 10,
			PerPage:   100,
		},
	}
}

// Load loads configuration from file
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()

	v.SetEnvPrefix("COLLABGRAPH")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".collabgraph")
		v.AddConfigPath(".")
		homeDir, _ := os.UserHomeDir()
		v.AddConfigPath(filepath.Join(homeDir, ".collabgraph"))
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence
func loadEnvFiles() {
	envFiles := []string{
		".env.local", // Local overrides (highest precedence)
		".env",
	}

	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			godotenv.Load(file)
		}
	}

	homeDir, _ := os.UserHomeDir()
	homeEnvFile := filepath.Join(homeDir, ".collabgraph", ".env")
	if _, err := os.Stat(homeEnvFile); err == nil {
		godotenv.Load(homeEnvFile)
	}
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(cfg *Config) {
	if mode := os.Getenv("COLLABGRAPH_MODE"); mode != "" {
		cfg.Mode = mode
	}

	// Store configuration (CLICKHOUSE_* names match the hosted dataset docs)
	if driver := os.Getenv("STORE_DRIVER"); driver != "" {
		cfg.Store.Driver = driver
	}
	if dsn := os.Getenv("STORE_DSN"); dsn != "" {
		cfg.Store.DSN = dsn
	}
	if host := os.Getenv("CLICKHOUSE_HOST"); host != "" {
		cfg.Store.Host = host
	}
	if port := os.Getenv("CLICKHOUSE_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			cfg.Store.Port = p
		}
	}
	if user := os.Getenv("CLICKHOUSE_USER"); user != "" {
		cfg.Store.User = user
	}
	if password := os.Getenv("CLICKHOUSE_PASSWORD"); password != "" {
		cfg.Store.Password = password
	}
	if db := os.Getenv("CLICKHOUSE_DATABASE"); db != "" {
		cfg.Store.Database = db
	}
	if path := os.Getenv("STORE_PATH"); path != "" {
		cfg.Store.Path = expandPath(path)
	}

	// Cache configuration
	if cacheType := os.Getenv("CACHE_TYPE"); cacheType != "" {
		cfg.Cache.Type = cacheType
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cfg.Cache.RedisAddr = addr
	}
	if password := os.Getenv("REDIS_PASSWORD"); password != "" {
		cfg.Cache.RedisPassword = password
	}
	if path := os.Getenv("CACHE_PATH"); path != "" {
		cfg.Cache.Path = expandPath(path)
	}

	// Neo4j configuration
	if uri := os.Getenv("NEO4J_URI"); uri != "" {
		cfg.Neo4j.URI = uri
	}
	if user := os.Getenv("NEO4J_USER"); user != "" {
		cfg.Neo4j.User = user
	}
	if password := os.Getenv("NEO4J_PASSWORD"); password != "" {
		cfg.Neo4j.Password = password
	}

	// GitHub configuration
	if token := os.Getenv("GITHUB_TOKEN"); token != "" {
		cfg.GitHub.Token = token
	}
	if rateLimit := os.Getenv("GITHUB_RATE_LIMIT"); rateLimit != "" {
		if rate, err := strconv.Atoi(rateLimit); err == nil {
			cfg.GitHub.RateLimit = rate
		}
	}
}

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if path[0] == '~' {
		homeDir, _ := os.UserHomeDir()
		return filepath.Join(homeDir, path[1:])
	}
	return path
}

// DataSourceName builds the driver DSN from the store settings unless DSN is set explicitly
func (s StoreConfig) DataSourceName() string {
	if s.DSN != "" {
		return s.DSN
	}

	switch s.Driver {
	case "sqlite3":
		return s.Path
	case "pgx", "postgres":
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(s.User, s.Password),
			Host:     fmt.Sprintf("%s:%d", s.Host, s.Port),
			Path:     "/" + s.Database,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	default:
		u := url.URL{
			Scheme: "clickhouse",
			User:   url.UserPassword(s.User, s.Password),
			Host:   fmt.Sprintf("%s:%d", s.Host, s.Port),
			Path:   "/" + s.Database,
		}
		return u.String()
	}
}

// Window parses the configured dates into a half-open window
func (w WindowConfig) Window() (models.Window, error) {
	start, err := time.Parse(time.DateOnly, w.Start)
	if err != nil {
		return models.Window{}, fmt.Errorf("invalid window start %q: %w", w.Start, err)
	}
	end, err := time.Parse(time.DateOnly, w.End)
	if err != nil {
		return models.Window{}, fmt.Errorf("invalid window end %q: %w", w.End, err)
	}
	win := models.Window{Start: start, End: end}
	if err := win.Validate(); err != nil {
		return models.Window{}, err
	}
	return win, nil
}

// Save writes the non-secret settings to path
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("store", c.Store)
	v.Set("windows", c.Windows)
	v.Set("graph", c.Graph)
	v.Set("cache", c.Cache)
	v.Set("output", c.Output)
	v.Set("neo4j", c.Neo4j)
	v.Set("github", c.GitHub)
	v.Set("log", c.Log)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
