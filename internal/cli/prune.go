package cli

import (
	"context"
	"fmt"
	"time"
)

// Execute implements the go-flags Commander interface for PruneCommand.
func (c *PruneCommand) Execute(args []string) error {
	a, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithApp(context.Background(), a, time.Now())
}

func (c *PruneCommand) executeWithApp(ctx context.Context, a *app, now time.Time) error {
	var cutoff time.Time
	var period string

	if c.OlderThan != "" {
		d, err := parseDuration(c.OlderThan)
		if err != nil {
			return fmt.Errorf("invalid --older-than value %q: %w", c.OlderThan, err)
		}
		cutoff = now.Add(-d)
		period = formatDurationHuman(d)
	} else {
		cutoff = a.cfg.RetentionCutoff(now)
		if cutoff.IsZero() {
			return fmt.Errorf("retention is disabled (retention.days = %d); use --older-than", a.cfg.Retention.Days)
		}
		period = fmt.Sprintf("%d days", a.cfg.Retention.Days)
	}

	var (
		n   int64
		err error
	)
	if c.DryRun {
		n, err = a.svc.PruneCandidates(ctx, cutoff)
	} else {
		n, err = a.svc.Prune(ctx, cutoff)
	}
	if err != nil {
		return fmt.Errorf("prune failed: %w", err)
	}

	if jsonOutput(c.globals) {
		return printJSON(map[string]any{
			"cutoff":  cutoff.UTC().Format(time.RFC3339),
			"dry_run": c.DryRun,
			"pruned":  n,
		})
	}
	if c.DryRun {
		fmt.Printf("Would prune %d entries older than %s\n", n, period)
	} else {
		fmt.Printf("Pruned %d entries older than %s\n", n, period)
	}
	return nil
}
