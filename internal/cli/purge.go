package cli

import (
	"fmt"
	"os"
)

// Execute implements the go-flags Commander interface for PurgeCommand.
func (c *PurgeCommand) Execute(args []string) error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}

	cfg, err := loadConfig(c.globals)
	if err != nil {
		return err
	}
	dbPath, err := cfg.DBPath()
	if err != nil {
		return err
	}
	return c.executeWithPath(dbPath)
}

// executeWithPath removes the database at dbPath along with its WAL and
// shared-memory files. The database must not be open.
func (c *PurgeCommand) executeWithPath(dbPath string) error {
	if !c.All {
		return fmt.Errorf("purge requires --all flag for safety")
	}

	if !c.Force {
		fmt.Println("⚠ WARNING: This will permanently delete ALL Chronicle data.")
		fmt.Println("  - Every user's browsing history")
		fmt.Println("  - All extracted content and embeddings")
		fmt.Println("  - The deletion audit log")
		fmt.Println()
		fmt.Println("This action cannot be undone.")
		fmt.Println()
		if err := confirm(c.stdin, `Type "PURGE" to confirm: `, "PURGE"); err != nil {
			return err
		}
	}

	removed := 0
	for _, p := range []string{dbPath, dbPath + "-wal", dbPath + "-shm"} {
		err := os.Remove(p)
		switch {
		case err == nil:
			removed++
		case os.IsNotExist(err):
		default:
			return fmt.Errorf("purge failed: %w", err)
		}
	}

	if jsonOutput(c.globals) {
		return printJSON(map[string]any{
			"purged":  removed > 0,
			"path":    dbPath,
			"message": "all data deleted",
		})
	}

	if removed == 0 {
		fmt.Println("Nothing to purge. Chronicle is empty.")
		return nil
	}
	fmt.Println("Purged all data. Chronicle is empty.")
	return nil
}
