package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigPath is where LoadOrCreate looks for the config file.
const DefaultConfigPath = "~/.config/chronicle/config.yaml"

// Environment variables that override secrets from the config file.
const (
	EnvClassifierAPIKey = "CHRONICLE_CLASSIFIER_API_KEY"
	EnvEmbeddingsAPIKey = "CHRONICLE_EMBEDDINGS_API_KEY"
	EnvDaemonToken      = "CHRONICLE_DAEMON_TOKEN"
)

// Config holds all Chronicle configuration.
type Config struct {
	Retention  RetentionConfig  `yaml:"retention"`
	Capture    CaptureConfig    `yaml:"capture"`
	Extractor  ExtractorConfig  `yaml:"extractor"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Embeddings EmbeddingsConfig `yaml:"embeddings"`
	Storage    StorageConfig    `yaml:"storage"`
	Daemon     DaemonConfig     `yaml:"daemon"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type RetentionConfig struct {
	Days               int `yaml:"days"`
	PruneIntervalHours int `yaml:"prune_interval_hours"`
}

type CaptureConfig struct {
	DenylistDomains   []string `yaml:"denylist_domains"`
	DenylistRegex     []string `yaml:"denylist_regex"`
	ImportConcurrency int      `yaml:"import_concurrency"`
}

type ExtractorConfig struct {
	// Mode is "browser" (headless Chrome), "http" or "none".
	Mode           string `yaml:"mode"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	RemoteURL      string `yaml:"remote_url"`
	UserAgent      string `yaml:"user_agent"`
	MaxChars       int    `yaml:"max_chars"`
}

type ClassifierConfig struct {
	Enabled           bool    `yaml:"enabled"`
	Endpoint          string  `yaml:"endpoint"`
	Model             string  `yaml:"model"`
	APIKey            string  `yaml:"api_key"`
	TimeoutSeconds    int     `yaml:"timeout_seconds"`
	MaxRetries        int     `yaml:"max_retries"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

type EmbeddingsConfig struct {
	// Provider is "hash" (local, no server) or "openai" (any
	// OpenAI-compatible /v1/embeddings endpoint, including Ollama).
	Provider       string `yaml:"provider"`
	Endpoint       string `yaml:"endpoint"`
	Model          string `yaml:"model"`
	APIKey         string `yaml:"api_key"`
	Dimension      int    `yaml:"dimension"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

type StorageConfig struct {
	Path              string `yaml:"path"`
	SQLiteFile        string `yaml:"sqlite_file"`
	Collection        string `yaml:"collection"`
	SQLiteJournalMode string `yaml:"sqlite_journal_mode"`
}

type DaemonConfig struct {
	Host           string `yaml:"host"`
	Port           int    `yaml:"port"`
	AuthToken      string `yaml:"auth_token"`
	MaxRequestSize int    `yaml:"max_request_size"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	File     string `yaml:"file"`
	AuditLog bool   `yaml:"audit_log"`
}

// Load reads a YAML config file at path and merges it with defaults.
// Returns an error if the file cannot be read or contains invalid YAML.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv(EnvClassifierAPIKey); v != "" {
		c.Classifier.APIKey = v
	}
	if v := os.Getenv(EnvEmbeddingsAPIKey); v != "" {
		c.Embeddings.APIKey = v
	}
	if v := os.Getenv(EnvDaemonToken); v != "" {
		c.Daemon.AuthToken = v
	}
}

// DBPath returns the absolute SQLite database path.
func (c *Config) DBPath() (string, error) {
	dir, err := ExpandPath(c.Storage.Path)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, c.Storage.SQLiteFile), nil
}

// ExtractorTimeout is the per-page content extraction bound.
func (c *Config) ExtractorTimeout() time.Duration {
	return secondsOr(c.Extractor.TimeoutSeconds, 10)
}

// ClassifierTimeout is the per-request HTTP timeout for the topic classifier.
func (c *Config) ClassifierTimeout() time.Duration {
	return secondsOr(c.Classifier.TimeoutSeconds, 30)
}

// EmbeddingsTimeout is the per-request HTTP timeout for the embeddings server.
func (c *Config) EmbeddingsTimeout() time.Duration {
	return secondsOr(c.Embeddings.TimeoutSeconds, 30)
}

// RetentionCutoff returns the instant before which entries are pruned, or
// the zero time when retention is disabled (Days <= 0).
func (c *Config) RetentionCutoff(now time.Time) time.Time {
	if c.Retention.Days <= 0 {
		return time.Time{}
	}
	return now.AddDate(0, 0, -c.Retention.Days)
}

func secondsOr(n, def int) time.Duration {
	if n <= 0 {
		n = def
	}
	return time.Duration(n) * time.Second
}

// ExpandPath replaces a leading ~ with the user's home directory.
func ExpandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := ExpandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0600); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		cfg.applyEnv()
		return cfg, nil
	}

	return Load(path)
}
