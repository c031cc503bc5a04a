package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Database  DatabaseConfig  `yaml:"database"`
	Snapshots SnapshotsConfig `yaml:"snapshots"`
	Graph     GraphConfig     `yaml:"graph"`
	Search    SearchConfig    `yaml:"search"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port     int    `yaml:"port"`
	BasePath string `yaml:"base_path"`
}

// DatabaseConfig holds SQLite settings.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// SnapshotsConfig selects where reconciliation snapshots live.
// Backend "sqlite" uses the application database; "redis" shares
// snapshots between instances.
type SnapshotsConfig struct {
	Backend  string        `yaml:"backend"`
	RedisURL string        `yaml:"redis_url"`
	TTL      time.Duration `yaml:"ttl"`
}

// GraphConfig holds knowledge graph endpoint settings.
type GraphConfig struct {
	APIURL    string        `yaml:"api_url"`
	SPARQLURL string        `yaml:"sparql_url"`
	Language  string        `yaml:"language"`
	Timeout   time.Duration `yaml:"timeout"`
}

// SearchConfig tunes the incremental search layer.
type SearchConfig struct {
	MinQueryLength int           `yaml:"min_query_length"`
	Debounce       time.Duration `yaml:"debounce"`
	Limit          int           `yaml:"limit"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level      string `yaml:"level"`
	Format     string `yaml:"format"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:     8080,
			BasePath: "/",
		},
		Database: DatabaseConfig{
			Path: "/data/wikiportraits.db",
		},
		Snapshots: SnapshotsConfig{
			Backend: "sqlite",
		},
		Graph: GraphConfig{
			APIURL:    "https://www.wikidata.org/w/api.php",
			SPARQLURL: "https://query.wikidata.org/sparql",
			Language:  "en",
			Timeout:   15 * time.Second,
		},
		Search: SearchConfig{
			MinQueryLength: 2,
			Debounce:       300 * time.Millisecond,
			Limit:          10,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "json",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Load reads config from a YAML file (if it exists) and overrides with
// environment variables. Environment variables take precedence.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		if err := cfg.loadFromFile(path); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	cfg.loadFromEnv()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func (c *Config) loadFromFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return yaml.Unmarshal(data, c)
}

func (c *Config) loadFromEnv() {
	if v := os.Getenv("WP_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Server.Port = port
		}
	}
	if v := os.Getenv("WP_BASE_PATH"); v != "" {
		c.Server.BasePath = v
	}
	if v := os.Getenv("WP_DB_PATH"); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv("WP_SNAPSHOT_BACKEND"); v != "" {
		c.Snapshots.Backend = v
	}
	if v := os.Getenv("WP_REDIS_URL"); v != "" {
		c.Snapshots.RedisURL = v
	}
	if v := os.Getenv("WP_GRAPH_API_URL"); v != "" {
		c.Graph.APIURL = v
	}
	if v := os.Getenv("WP_GRAPH_SPARQL_URL"); v != "" {
		c.Graph.SPARQLURL = v
	}
	if v := os.Getenv("WP_GRAPH_LANGUAGE"); v != "" {
		c.Graph.Language = v
	}
	if v := os.Getenv("WP_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("WP_LOG_FORMAT"); v != "" {
		c.Logging.Format = v
	}
	if v := os.Getenv("WP_LOG_FILE"); v != "" {
		c.Logging.File = v
	}
}

func (c *Config) validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}
	switch c.Snapshots.Backend {
	case "sqlite":
	case "redis":
		if c.Snapshots.RedisURL == "" {
			return fmt.Errorf("redis snapshot backend requires redis_url")
		}
	default:
		return fmt.Errorf("unknown snapshot backend: %s", c.Snapshots.Backend)
	}
	if c.Graph.APIURL == "" || c.Graph.SPARQLURL == "" {
		return fmt.Errorf("graph endpoints are required")
	}
	if c.Graph.Language == "" {
		c.Graph.Language = "en"
	}
	if c.Search.MinQueryLength < 1 {
		return fmt.Errorf("min_query_length must be positive")
	}
	if c.Search.Debounce < 0 {
		return fmt.Errorf("search debounce must not be negative")
	}
	if c.Search.Limit < 1 {
		c.Search.Limit = 10
	}
	c.Server.BasePath = strings.TrimRight(c.Server.BasePath, "/")
	return nil
}
