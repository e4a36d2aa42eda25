package cli

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/runnerr0/chronicle-index/internal/history"
)

// Execute implements the go-flags Commander interface for ImportCommand.
func (c *ImportCommand) Execute(args []string) error {
	a, err := openApp(c.globals)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer a.Close()

	return c.executeWithApp(context.Background(), a, args)
}

func (c *ImportCommand) executeWithApp(ctx context.Context, a *app, args []string) error {
	path := c.File
	if path == "" && len(args) > 0 {
		path = args[0]
	}
	if path == "" {
		return fmt.Errorf("import requires a file (use --file or '-' for stdin)")
	}

	var r io.Reader
	if path == "-" {
		r = c.stdin
		if r == nil {
			r = os.Stdin
		}
	} else {
		f, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("open import file: %w", err)
		}
		defer f.Close()
		r = f
	}

	visits, err := readVisits(r, userOf(c.globals), time.Now().UnixMilli())
	if err != nil {
		return err
	}

	concurrency := c.Concurrency
	if concurrency <= 0 {
		concurrency = a.cfg.Capture.ImportConcurrency
	}

	items, sum := a.svc.IngestBatch(ctx, visits, concurrency)

	if jsonOutput(c.globals) {
		failures := []map[string]string{}
		for _, it := range items {
			if it.Err != nil {
				failures = append(failures, map[string]string{"url": it.Visit.URL, "error": it.Err.Error()})
			}
		}
		return printJSON(map[string]any{
			"total":    len(visits),
			"stored":   sum.Stored,
			"skipped":  sum.Skipped,
			"failed":   sum.Failed,
			"failures": failures,
		})
	}

	fmt.Printf("Imported %d visits: %d stored, %d skipped, %d failed\n",
		len(visits), sum.Stored, sum.Skipped, sum.Failed)
	for _, it := range items {
		if it.Err != nil {
			fmt.Printf("  failed: %s: %v\n", it.Visit.URL, it.Err)
		}
	}
	if sum.Failed > 0 && sum.Stored == 0 && sum.Skipped == 0 {
		return fmt.Errorf("all %d visits failed", sum.Failed)
	}
	return nil
}

// readVisits decodes a JSON array of visits or one visit object per line.
// Visits without a userId are assigned defaultUser; visits without a
// timestamp are stamped with now (epoch milliseconds).
func readVisits(r io.Reader, defaultUser string, now int64) ([]history.Visit, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("read import data: %w", err)
	}
	data = bytes.TrimSpace(data)

	var visits []history.Visit
	if len(data) > 0 && data[0] == '[' {
		if err := json.Unmarshal(data, &visits); err != nil {
			return nil, fmt.Errorf("parse JSON array: %w", err)
		}
	} else {
		scanner := bufio.NewScanner(bytes.NewReader(data))
		scanner.Buffer(make([]byte, 64*1024), 4<<20)
		line := 0
		for scanner.Scan() {
			line++
			text := bytes.TrimSpace(scanner.Bytes())
			if len(text) == 0 {
				continue
			}
			var v history.Visit
			if err := json.Unmarshal(text, &v); err != nil {
				return nil, fmt.Errorf("parse line %d: %w", line, err)
			}
			visits = append(visits, v)
		}
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read import data: %w", err)
		}
	}

	for i := range visits {
		if visits[i].UserID == "" {
			visits[i].UserID = defaultUser
		}
		if visits[i].Timestamp == 0 {
			visits[i].Timestamp = now
		}
	}
	return visits, nil
}
