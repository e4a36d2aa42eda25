package cli

import (
	"context"
	"database/sql"
	"fmt"
	"net"
	"net/http"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/runnerr0/chronicle-index/internal/history"
	"github.com/runnerr0/chronicle-index/internal/storage"
)

type domainCount struct {
	Domain string `json:"domain"`
	Count  int    `json:"count"`
}

// statsJSON is the JSON output structure for the stats command.
type statsJSON struct {
	Version           string                 `json:"version"`
	User              string                 `json:"user"`
	DatabasePath      string                 `json:"database_path"`
	DatabaseSizeBytes int64                  `json:"database_size_bytes"`
	SchemaVersion     int                    `json:"schema_version"`
	RetentionDays     int                    `json:"retention_days"`
	DaemonRunning     bool                   `json:"daemon_running"`
	TotalEntries      int                    `json:"total_entries"`
	TopDomains        []domainCount          `json:"top_domains"`
	Topics            []history.TopicSummary `json:"topics"`
	TimeRanges        history.TimeRanges     `json:"time_ranges"`
}

// Execute implements the go-flags Commander interface for StatsCommand.
func (c *StatsCommand) Execute(args []string) error {
	a, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithApp(context.Background(), a)
}

func (c *StatsCommand) executeWithApp(ctx context.Context, a *app) error {
	stats, err := a.svc.Stats(ctx, userOf(c.globals))
	if err != nil {
		return fmt.Errorf("get stats: %w", err)
	}

	schema, err := storage.NewMigrationRunner(a.db, a.cfg.Storage.SQLiteJournalMode).Version(ctx)
	if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	out := statsJSON{
		Version:           c.version,
		User:              userOf(c.globals),
		DatabasePath:      a.dbPath,
		DatabaseSizeBytes: getDatabaseSize(a.db, a.dbPath),
		SchemaVersion:     schema,
		RetentionDays:     a.cfg.Retention.Days,
		DaemonRunning:     checkDaemon(a.cfg.Daemon.Host, a.cfg.Daemon.Port),
		TotalEntries:      stats.TotalEntries,
		TopDomains:        topDomains(stats.Domains, c.Top),
		Topics:            stats.Topics,
		TimeRanges:        stats.TimeRanges,
	}

	if jsonOutput(c.globals) {
		return printJSON(out)
	}
	printStatsHuman(out)
	return nil
}

// topDomains sorts by count descending, then name, and keeps n (all when n <= 0).
func topDomains(domains map[string]int, n int) []domainCount {
	out := make([]domainCount, 0, len(domains))
	for d, count := range domains {
		out = append(out, domainCount{Domain: d, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Domain < out[j].Domain
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func printStatsHuman(s statsJSON) {
	fmt.Println("Chronicle Stats")
	fmt.Println("===============")
	fmt.Printf("Version:       %s\n", s.Version)
	fmt.Printf("User:          %s\n", s.User)
	fmt.Printf("Database:      %s (%s)\n", s.DatabasePath, formatBytes(s.DatabaseSizeBytes))
	fmt.Printf("Schema:        v%d\n", s.SchemaVersion)
	fmt.Printf("Entries:       %s\n", formatNumber(s.TotalEntries))
	if s.RetentionDays > 0 {
		fmt.Printf("Retention:     %d days\n", s.RetentionDays)
	} else {
		fmt.Println("Retention:     forever")
	}

	tr := s.TimeRanges
	fmt.Println()
	fmt.Println("Visits:")
	fmt.Printf("  %-12s %s\n", "today", formatNumber(tr.Today))
	fmt.Printf("  %-12s %s\n", "yesterday", formatNumber(tr.Yesterday))
	fmt.Printf("  %-12s %s\n", "last week", formatNumber(tr.LastWeek))
	fmt.Printf("  %-12s %s\n", "last month", formatNumber(tr.LastMonth))
	fmt.Printf("  %-12s %s\n", "older", formatNumber(tr.Older))

	if len(s.TopDomains) > 0 {
		fmt.Println()
		fmt.Println("Top Domains:")
		for _, d := range s.TopDomains {
			fmt.Printf("  %-30s %s\n", d.Domain, formatNumber(d.Count))
		}
	}

	if len(s.Topics) > 0 {
		fmt.Println()
		fmt.Println("Topics:")
		for _, t := range s.Topics {
			fmt.Printf("  %-30s %s  (%s → %s)\n", t.Topic, formatNumber(t.Count),
				formatMillis(t.FirstVisit), formatMillis(t.LastVisit))
		}
	}

	fmt.Println()
	if s.DaemonRunning {
		fmt.Println("Daemon:        running")
	} else {
		fmt.Println("Daemon:        not running")
	}
}

// getDatabaseSize returns the database file size in bytes.
// For on-disk databases, it uses os.Stat. Otherwise it
// queries page_count * page_size.
func getDatabaseSize(db *sql.DB, dbPath string) int64 {
	if info, err := os.Stat(dbPath); err == nil {
		return info.Size()
	}

	var pageCount, pageSize int64
	if err := db.QueryRow("PRAGMA page_count").Scan(&pageCount); err != nil {
		return 0
	}
	if err := db.QueryRow("PRAGMA page_size").Scan(&pageSize); err != nil {
		return 0
	}
	return pageCount * pageSize
}

// checkDaemon reports whether a daemon answers /status within 1 second.
func checkDaemon(host string, port int) bool {
	client := &http.Client{Timeout: 1 * time.Second}
	resp, err := client.Get("http://" + net.JoinHostPort(host, strconv.Itoa(port)) + "/status")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}
