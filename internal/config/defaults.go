package config

// DefaultConfig returns a Config populated with all default values.
func DefaultConfig() *Config {
	return &Config{
		Retention: RetentionConfig{
			Days:               90,
			PruneIntervalHours: 24,
		},
		Capture: CaptureConfig{
			DenylistDomains:   DefaultDenylistDomains(),
			DenylistRegex:     []string{`.*\.xxx$`},
			ImportConcurrency: 4,
		},
		Extractor: ExtractorConfig{
			Mode:           "http",
			TimeoutSeconds: 10,
			RemoteURL:      "",
			UserAgent:      "Chronicle/1.0 (+local history index)",
			MaxChars:       100000,
		},
		Classifier: ClassifierConfig{
			Enabled:           false,
			Endpoint:          "http://localhost:11434",
			Model:             "llama3.2",
			TimeoutSeconds:    30,
			MaxRetries:        2,
			RequestsPerSecond: 2,
		},
		Embeddings: EmbeddingsConfig{
			Provider:       "hash",
			Endpoint:       "http://localhost:11434",
			Model:          "nomic-embed-text",
			Dimension:      256,
			TimeoutSeconds: 30,
		},
		Storage: StorageConfig{
			Path:              "~/.config/chronicle",
			SQLiteFile:        "chronicle.db",
			Collection:        "browsing_history",
			SQLiteJournalMode: "wal",
		},
		Daemon: DaemonConfig{
			Host:           "127.0.0.1",
			Port:           8721,
			AuthToken:      "",
			MaxRequestSize: 1 << 20,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "text",
			File:     "",
			AuditLog: true,
		},
	}
}
