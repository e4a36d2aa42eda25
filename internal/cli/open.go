package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/runnerr0/chronicle-index/internal/history"
)

// Execute implements the go-flags Commander interface for OpenCommand.
func (c *OpenCommand) Execute(args []string) error {
	if c.ID == "" && len(args) > 0 {
		c.ID = args[0]
	}
	if c.ID == "" {
		return fmt.Errorf("--id is required for open command")
	}

	a, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithApp(context.Background(), a)
}

func (c *OpenCommand) executeWithApp(ctx context.Context, a *app) error {
	e, err := a.svc.Get(ctx, userOf(c.globals), c.ID)
	if errors.Is(err, history.ErrNotFound) {
		return fmt.Errorf("entry not found: %s", c.ID)
	}
	if err != nil {
		return err
	}

	if jsonOutput(c.globals) || c.Format == "json" {
		return printJSON(e)
	}

	switch c.Format {
	case "raw":
		if e.Content == "" {
			fmt.Println("No content captured")
		} else {
			fmt.Println(e.Content)
		}
	case "md":
		c.outputMarkdown(e)
	default:
		c.outputFull(e)
	}
	return nil
}

func (c *OpenCommand) outputFull(e *history.Entry) {
	fmt.Println(e.ID)
	fmt.Printf("Title:     %s\n", e.Title)
	fmt.Printf("URL:       %s\n", e.URL)
	fmt.Printf("Domain:    %s\n", e.Metadata.Domain)
	fmt.Printf("Path:      %s\n", e.Metadata.Path)
	fmt.Printf("Visited:   %s\n", time.UnixMilli(e.Timestamp).Local().Format("2006-01-02 15:04:05"))
	fmt.Printf("Topic:     %s\n", e.Topic)
	fmt.Println()
	fmt.Println("--- Content ---")
	if e.Content == "" {
		fmt.Println("No content captured")
	} else {
		fmt.Println(e.Content)
	}
}

func (c *OpenCommand) outputMarkdown(e *history.Entry) {
	fmt.Println("---")
	fmt.Printf("id: %s\n", e.ID)
	fmt.Printf("title: %s\n", e.Title)
	fmt.Printf("url: %s\n", e.URL)
	fmt.Printf("domain: %s\n", e.Metadata.Domain)
	fmt.Printf("visited: %s\n", time.UnixMilli(e.Timestamp).UTC().Format(time.RFC3339))
	fmt.Printf("topic: %s\n", e.Topic)
	fmt.Println("---")
	fmt.Println()
	if e.Content == "" {
		fmt.Println("No content captured")
	} else {
		fmt.Println(e.Content)
	}
}
