package cli

import (
	"fmt"
	"os"

	goflags "github.com/jessevdk/go-flags"
)

// commands holds references to all subcommand structs for inspection/testing.
type commands struct {
	Add    *AddCommand
	Import *ImportCommand
	Search *SearchCommand
	Open   *OpenCommand
	Stats  *StatsCommand
	Delete *DeleteCommand
	Prune  *PruneCommand
	Purge  *PurgeCommand
	Serve  *ServeCommand
}

// buildParser constructs the go-flags parser with all subcommands registered.
func buildParser(version string) (*goflags.Parser, *GlobalFlags, *commands) {
	var globals GlobalFlags

	parser := goflags.NewParser(&globals, goflags.Default)
	parser.Name = "chronicle"
	parser.LongDescription = "Local browsing history index: capture, classify, search and recall visited pages."

	cmds := &commands{
		Add:    &AddCommand{globals: &globals, version: version},
		Import: &ImportCommand{globals: &globals, version: version},
		Search: &SearchCommand{globals: &globals, version: version},
		Open:   &OpenCommand{globals: &globals, version: version},
		Stats:  &StatsCommand{globals: &globals, version: version},
		Delete: &DeleteCommand{globals: &globals, version: version},
		Prune:  &PruneCommand{globals: &globals, version: version},
		Purge:  &PurgeCommand{globals: &globals, version: version},
		Serve:  &ServeCommand{globals: &globals, version: version},
	}

	parser.AddCommand("add", "Index a visited URL", "Extract, classify and index a single visited URL.", cmds.Add)
	parser.AddCommand("import", "Bulk-index visits from a file", "Index visits from a JSON array or JSON-lines file ('-' for stdin).", cmds.Import)
	parser.AddCommand("search", "Search indexed history", "Search history by similarity to the query text, with optional time and topic filters.", cmds.Search)
	parser.AddCommand("open", "Print stored content of an entry", "Print the full stored content of a specific entry.", cmds.Open)
	parser.AddCommand("stats", "Show history statistics", "Show per-user domain, topic and recency statistics plus database health.", cmds.Stats)
	parser.AddCommand("delete", "Delete entries", "Delete entries by id, or every entry of the user with --all.", cmds.Delete)
	parser.AddCommand("prune", "Apply retention pruning", "Remove entries older than the retention period for all users.", cmds.Prune)
	parser.AddCommand("purge", "Delete ALL Chronicle data", "Delete ALL Chronicle data. Destructive operation with safety prompt.", cmds.Purge)
	parser.AddCommand("serve", "Run the Chronicle daemon", "Serve the history engine over local HTTP.", cmds.Serve)

	return parser, &globals, cmds
}

// Run is the main entry point for the Chronicle CLI using os.Args.
func Run(version string) error {
	return RunWithArgs(version, nil)
}

// RunWithArgs parses the given args (or os.Args if nil) and executes the matched subcommand.
func RunWithArgs(version string, args []string) error {
	// Handle --version before parser (go-flags requires a subcommand, but
	// --version is valid without one).
	checkArgs := args
	if checkArgs == nil {
		checkArgs = os.Args[1:]
	}
	for _, arg := range checkArgs {
		if arg == "--version" {
			fmt.Printf("chronicle %s\n", version)
			return nil
		}
		if arg == "--" {
			break
		}
	}

	parser, _, _ := buildParser(version)

	var err error
	if args != nil {
		_, err = parser.ParseArgs(args)
	} else {
		_, err = parser.Parse()
	}

	if err != nil {
		if flagsErr, ok := err.(*goflags.Error); ok {
			if flagsErr.Type == goflags.ErrHelp {
				return nil
			}
		}
		return err
	}

	return nil
}
