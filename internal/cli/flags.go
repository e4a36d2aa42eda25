package cli

import "io"

// GlobalFlags holds flags available to all subcommands.
type GlobalFlags struct {
	Config  string `long:"config" description:"Path to config file" default:""`
	JSON    bool   `long:"json" description:"Output in JSON format"`
	Verbose bool   `long:"verbose" description:"Enable verbose output"`
	User    string `long:"user" env:"CHRONICLE_USER" description:"History owner for add/search/stats/delete" default:"local"`
	Version bool   `long:"version" description:"Show version and exit"`
}

// AddCommand — index a single visited URL.
type AddCommand struct {
	URL   string `long:"url" description:"URL to record (required)"`
	Title string `long:"title" description:"Page title"`
	At    string `long:"at" description:"Visit time, RFC 3339 (default: now)"`

	globals *GlobalFlags
	version string
}

// ImportCommand — bulk-index visits from a JSON or JSON-lines file.
type ImportCommand struct {
	File        string `long:"file" description:"Input file; '-' reads stdin (default: first argument)"`
	Concurrency int    `long:"concurrency" description:"Parallel ingests (default: capture.import_concurrency)"`

	globals *GlobalFlags
	version string
	stdin   io.Reader
}

// SearchCommand — filter or semantically search the history.
type SearchCommand struct {
	Since string   `long:"since" description:"Only visits newer than duration (e.g., 7d, 24h, 2w)" default:"30d"`
	Until string   `long:"until" description:"Only visits older than duration"`
	Topic []string `long:"topic" description:"Filter by topic (repeatable)"`
	Limit int      `long:"limit" description:"Maximum results" default:"10"`

	globals *GlobalFlags
	version string
}

// OpenCommand — print the full stored content of an entry.
type OpenCommand struct {
	ID     string `long:"id" description:"Entry ID (required)"`
	Format string `long:"format" description:"Output format: full | md | raw | json" default:"full"`

	globals *GlobalFlags
	version string
}

// StatsCommand — per-user history statistics and database health.
type StatsCommand struct {
	Top int `long:"top" description:"Number of domains to list" default:"10"`

	globals *GlobalFlags
	version string
}

// DeleteCommand — remove entries by id, or all of the user's entries.
type DeleteCommand struct {
	ID    []string `long:"id" description:"Entry ID to delete (repeatable)"`
	All   bool     `long:"all" description:"Delete every entry of the user"`
	Force bool     `long:"force" description:"Skip confirmation prompt for --all"`

	globals *GlobalFlags
	version string
	stdin   io.Reader
}

// PruneCommand — apply retention pruning to all users.
type PruneCommand struct {
	OlderThan string `long:"older-than" description:"Override retention period (e.g., 30d)"`
	DryRun    bool   `long:"dry-run" description:"Show what would be pruned without deleting"`

	globals *GlobalFlags
	version string
}

// PurgeCommand — delete ALL Chronicle data with safety confirmation.
type PurgeCommand struct {
	All   bool `long:"all" description:"Required flag to confirm purge intent"`
	Force bool `long:"force" description:"Skip safety confirmation prompt"`

	globals *GlobalFlags
	version string
	stdin   io.Reader
}

// ServeCommand — run the local HTTP daemon.
type ServeCommand struct {
	Host string `long:"host" description:"Override daemon host"`
	Port int    `long:"port" description:"Override daemon port"`

	globals *GlobalFlags
	version string
}
