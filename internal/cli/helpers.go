package cli

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/runnerr0/chronicle-index/internal/classify"
	"github.com/runnerr0/chronicle-index/internal/config"
	"github.com/runnerr0/chronicle-index/internal/embed"
	"github.com/runnerr0/chronicle-index/internal/extract"
	"github.com/runnerr0/chronicle-index/internal/history"
	"github.com/runnerr0/chronicle-index/internal/logging"
	"github.com/runnerr0/chronicle-index/internal/storage"
)

// app is the wiring shared by every subcommand: config, logger, database
// and the history engine on top of it.
type app struct {
	cfg    *config.Config
	dbPath string
	logger *logrus.Logger
	db     *sql.DB
	svc    *history.Service

	closers []io.Closer
}

// loadConfig reads --config when given, otherwise the default path
// (writing defaults on first run).
func loadConfig(globals *GlobalFlags) (*config.Config, error) {
	if globals != nil && globals.Config != "" {
		return config.Load(globals.Config)
	}
	return config.LoadOrCreate()
}

func openApp(globals *GlobalFlags) (*app, error) {
	cfg, err := loadConfig(globals)
	if err != nil {
		return nil, err
	}
	return openAppWithConfig(cfg, globals != nil && globals.Verbose)
}

func openAppWithConfig(cfg *config.Config, verbose bool) (*app, error) {
	dbPath, err := cfg.DBPath()
	if err != nil {
		return nil, err
	}

	logger, logCloser, err := logging.New(cfg.Logging, filepath.Dir(dbPath), verbose)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, dbPath: dbPath, logger: logger, closers: []io.Closer{logCloser}}

	db, err := storage.Open(context.Background(), dbPath, cfg.Storage.SQLiteJournalMode)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.db = db
	a.closers = append([]io.Closer{db}, a.closers...)

	svc, ext, err := newService(db, cfg, logger)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.svc = svc
	a.closers = append([]io.Closer{ext}, a.closers...)
	return a, nil
}

// Close releases the extractor, database and log file, in that order.
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			a.logger.WithError(err).Debug("close failed")
		}
	}
	a.closers = nil
}

// newService builds the history engine and its adapters from cfg.
func newService(db *sql.DB, cfg *config.Config, logger *logrus.Logger) (*history.Service, extract.Extractor, error) {
	embedder, err := newEmbedder(cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	store := storage.NewSQLiteStore(db,
		storage.WithEmbedder(embedder),
		storage.WithLogger(logger),
		storage.WithAuditLog(cfg.Logging.AuditLog),
	)

	ext, err := extract.New(cfg.Extractor, logger)
	if err != nil {
		return nil, nil, err
	}

	patterns, err := compilePatterns(cfg.Capture.DenylistRegex)
	if err != nil {
		ext.Close()
		return nil, nil, err
	}

	opts := []history.Option{
		history.WithLogger(logger),
		history.WithExtractor(ext),
		history.WithCollection(cfg.Storage.Collection),
		history.WithExtractTimeout(cfg.ExtractorTimeout()),
		history.WithDenylist(cfg.Capture.DenylistDomains, patterns...),
	}
	if cfg.Classifier.Enabled {
		opts = append(opts, history.WithClassifier(classify.New(cfg.Classifier, logger)))
	}
	return history.NewService(store, opts...), ext, nil
}

func newEmbedder(cfg *config.Config, logger *logrus.Logger) (embed.Embedder, error) {
	e := cfg.Embeddings
	switch strings.ToLower(e.Provider) {
	case "", "hash":
		return embed.NewHashEmbedder(e.Dimension), nil
	case "openai", "ollama", "http":
		return embed.NewHTTPEmbedder(e.Endpoint, e.Model, e.APIKey, cfg.EmbeddingsTimeout(), logger), nil
	default:
		return nil, fmt.Errorf("unknown embeddings provider %q", e.Provider)
	}
}

func compilePatterns(exprs []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(exprs))
	for _, expr := range exprs {
		re, err := regexp.Compile(expr)
		if err != nil {
			return nil, fmt.Errorf("invalid capture.denylist_regex %q: %w", expr, err)
		}
		out = append(out, re)
	}
	return out, nil
}

func userOf(globals *GlobalFlags) string {
	if globals == nil || globals.User == "" {
		return "local"
	}
	return globals.User
}

func jsonOutput(globals *GlobalFlags) bool {
	return globals != nil && globals.JSON
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// confirm prints prompt and reports whether the next line from in equals want.
func confirm(in io.Reader, prompt, want string) error {
	if in == nil {
		in = os.Stdin
	}
	fmt.Print(prompt)
	scanner := bufio.NewScanner(in)
	if !scanner.Scan() {
		return fmt.Errorf("aborted: no input received")
	}
	if strings.TrimSpace(scanner.Text()) != want {
		return fmt.Errorf("aborted: confirmation text did not match")
	}
	return nil
}

// parseDuration parses a human-friendly duration string like "30d", "7d", "24h", "2w".
func parseDuration(s string) (time.Duration, error) {
	if s == "" {
		return 0, fmt.Errorf("invalid duration: empty string")
	}

	if len(s) < 2 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	suffix := s[len(s)-1]
	numStr := s[:len(s)-1]

	n, err := strconv.Atoi(numStr)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid duration: %q", s)
	}

	switch suffix {
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	case 'm':
		return time.Duration(n) * time.Minute, nil
	default:
		return 0, fmt.Errorf("invalid duration: %q (use d, h, w, or m suffix)", s)
	}
}

// formatDurationHuman formats a duration into a human-readable string like "30 days".
func formatDurationHuman(d time.Duration) string {
	days := int(d.Hours() / 24)
	if days > 0 {
		if days == 1 {
			return "1 day"
		}
		return fmt.Sprintf("%d days", days)
	}
	hours := int(d.Hours())
	if hours > 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return d.String()
}

// formatBytes formats a byte count into a human-readable string.
func formatBytes(b int64) string {
	switch {
	case b >= 1<<30:
		return fmt.Sprintf("%.1f GB", float64(b)/float64(1<<30))
	case b >= 1<<20:
		return fmt.Sprintf("%.1f MB", float64(b)/float64(1<<20))
	case b >= 1<<10:
		return fmt.Sprintf("%.1f KB", float64(b)/float64(1<<10))
	default:
		return fmt.Sprintf("%d B", b)
	}
}

// formatNumber formats an integer with comma separators.
func formatNumber(n int) string {
	s := strconv.Itoa(n)
	if n < 0 || len(s) <= 3 {
		return s
	}

	var result strings.Builder
	remainder := len(s) % 3
	if remainder > 0 {
		result.WriteString(s[:remainder])
	}
	for i := remainder; i < len(s); i += 3 {
		if i > 0 {
			result.WriteString(",")
		}
		result.WriteString(s[i : i+3])
	}
	return result.String()
}

func formatMillis(ms int64) string {
	return time.UnixMilli(ms).Local().Format("2006-01-02 15:04")
}
