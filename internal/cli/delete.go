package cli

import (
	"context"
	"fmt"
)

// Execute implements the go-flags Commander interface for DeleteCommand.
func (c *DeleteCommand) Execute(args []string) error {
	ids := append(c.ID, args...)
	if len(ids) == 0 && !c.All {
		return fmt.Errorf("delete requires --id or --all")
	}
	if len(ids) > 0 && c.All {
		return fmt.Errorf("--id and --all are mutually exclusive")
	}
	c.ID = ids

	a, err := openApp(c.globals)
	if err != nil {
		return err
	}
	defer a.Close()

	return c.executeWithApp(context.Background(), a)
}

func (c *DeleteCommand) executeWithApp(ctx context.Context, a *app) error {
	user := userOf(c.globals)

	if c.All && !c.Force {
		prompt := fmt.Sprintf("Delete ALL history of user %q? Type %q to confirm: ", user, user)
		if err := confirm(c.stdin, prompt, user); err != nil {
			return err
		}
	}

	var ids []string
	if !c.All {
		ids = c.ID
	}
	n, err := a.svc.Delete(ctx, user, ids)
	if err != nil {
		return fmt.Errorf("delete failed: %w", err)
	}

	if jsonOutput(c.globals) {
		return printJSON(map[string]any{"user": user, "deleted": n})
	}
	fmt.Printf("Deleted %d entries for %s\n", n, user)
	return nil
}
