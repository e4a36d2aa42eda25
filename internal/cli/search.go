package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/runnerr0/chronicle-index/internal/history"
)

// Execute implements the go-flags Commander interface for SearchCommand.
func (c *SearchCommand) Execute(args []string) error {
	a, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithApp(context.Background(), a, args)
}

// executeWithApp runs the search against a provided app (for testing).
// Positional arguments form a similarity query; without them the results
// are a plain filtered listing.
func (c *SearchCommand) executeWithApp(ctx context.Context, a *app, args []string) error {
	text := strings.TrimSpace(strings.Join(args, " "))

	q := history.Query{
		UserID: userOf(c.globals),
		Topics: c.Topic,
		Limit:  c.Limit,
	}

	now := time.Now()
	if c.Since != "" || c.Until != "" {
		q.TimeRange = &history.TimeRange{}
	}
	if c.Since != "" {
		dur, err := parseDuration(c.Since)
		if err != nil {
			return fmt.Errorf("invalid --since value %q: %w", c.Since, err)
		}
		start := now.Add(-dur).UnixMilli()
		q.TimeRange.Start = &start
	}
	if c.Until != "" {
		dur, err := parseDuration(c.Until)
		if err != nil {
			return fmt.Errorf("invalid --until value %q: %w", c.Until, err)
		}
		end := now.Add(-dur).UnixMilli()
		q.TimeRange.End = &end
	}
	if text != "" {
		q.Similarity = &history.Similarity{Text: text}
	}

	results, err := a.svc.Query(ctx, q)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if jsonOutput(c.globals) {
		return printJSON(jsonSearchOutput{Count: len(results), Query: text, Results: results})
	}
	c.printHuman(text, results)
	return nil
}

type jsonSearchOutput struct {
	Count   int             `json:"count"`
	Query   string          `json:"query"`
	Results []history.Entry `json:"results"`
}

func (c *SearchCommand) printHuman(query string, results []history.Entry) {
	scope := "since " + c.Since
	if c.Since == "" {
		scope = "all time"
	}

	if len(results) == 0 {
		if query != "" {
			fmt.Printf("No results found for %q (%s)\n", query, scope)
		} else {
			fmt.Printf("No results found (%s)\n", scope)
		}
		return
	}

	resultWord := "results"
	if len(results) == 1 {
		resultWord = "result"
	}
	if query != "" {
		fmt.Printf("Found %d %s for %q (%s)\n\n", len(results), resultWord, query, scope)
	} else {
		fmt.Printf("Found %d %s (%s)\n\n", len(results), resultWord, scope)
	}

	for i, e := range results {
		title := e.Title
		if title == "" {
			title = e.URL
		}
		fmt.Printf("%d. %s", i+1, title)
		if e.Metadata.Domain != "" {
			fmt.Printf(" · %s", e.Metadata.Domain)
		}
		fmt.Println()
		fmt.Printf("   %s\n", e.URL)
		fmt.Printf("   %s · %s · %s\n", formatMillis(e.Timestamp), e.Topic, e.ID)

		if i < len(results)-1 {
			fmt.Println()
		}
	}
}
