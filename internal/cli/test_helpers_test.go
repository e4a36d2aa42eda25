package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/runnerr0/chronicle-index/internal/config"
	"github.com/runnerr0/chronicle-index/internal/history"
)

// captureOutput captures stdout during fn execution and returns it as a string.
func captureOutput(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	w.Close()
	os.Stdout = old

	var buf bytes.Buffer
	_, _ = io.Copy(&buf, r)
	return buf.String()
}

// testConfig returns defaults rooted in a temp dir with extraction off.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Storage.Path = t.TempDir()
	cfg.Extractor.Mode = "none"
	cfg.Logging.File = ""
	cfg.Logging.Level = "error"
	cfg.Daemon.Port = 1
	return cfg
}

// newTestApp opens a fully wired app on a fresh database.
func newTestApp(t *testing.T) *app {
	t.Helper()
	a, err := openAppWithConfig(testConfig(t), false)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	return a
}

// seedVisit ingests one visit for user and returns the stored entry.
// A zero ts means now.
func seedVisit(t *testing.T, a *app, user, url, title string, ts int64) *history.Entry {
	t.Helper()
	if ts == 0 {
		ts = time.Now().UnixMilli()
	}
	res, err := a.svc.Ingest(context.Background(), history.Visit{
		URL: url, Title: title, Timestamp: ts, UserID: user,
	})
	require.NoError(t, err)
	require.False(t, res.Skipped)
	return res.Entry
}
