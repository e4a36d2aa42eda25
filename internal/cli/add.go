package cli

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/runnerr0/chronicle-index/internal/history"
)

// Execute implements the go-flags Commander interface for AddCommand.
func (c *AddCommand) Execute(args []string) error {
	if c.URL == "" {
		return fmt.Errorf("--url is required for add command")
	}

	a, err := openApp(c.globals)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer a.Close()

	return c.executeWithApp(context.Background(), a)
}

// executeWithApp runs the add logic against a provided app (used by tests).
func (c *AddCommand) executeWithApp(ctx context.Context, a *app) error {
	parsed, err := url.ParseRequestURI(c.URL)
	if err != nil || parsed.Host == "" {
		return fmt.Errorf("invalid URL: %s", c.URL)
	}

	ts := time.Now().UnixMilli()
	if c.At != "" {
		at, err := time.Parse(time.RFC3339, c.At)
		if err != nil {
			return fmt.Errorf("invalid --at value %q: %w", c.At, err)
		}
		ts = at.UnixMilli()
	}

	res, err := a.svc.Ingest(ctx, history.Visit{
		URL:       c.URL,
		Title:     c.Title,
		Timestamp: ts,
		UserID:    userOf(c.globals),
	})
	if err != nil {
		return fmt.Errorf("storing entry: %w", err)
	}

	if jsonOutput(c.globals) {
		return printJSON(res)
	}

	if res.Skipped {
		fmt.Printf("Skipped %s (%s)\n", c.URL, res.SkipReason)
		return nil
	}

	e := res.Entry
	fmt.Printf("Added entry %s (%s)\n", e.ID, formatMillis(e.Timestamp))
	fmt.Printf("  URL:     %s\n", e.URL)
	fmt.Printf("  Title:   %s\n", e.Title)
	fmt.Printf("  Topic:   %s\n", e.Topic)
	fmt.Printf("  Content: %s chars\n", formatNumber(len([]rune(e.Content))))
	return nil
}
