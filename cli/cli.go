package cli

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"
)

const (
	EnginePattern = "pattern"
	EngineTree    = "tree"
)

// Config holds all the command-line flag values.
type Config struct {
	File        string
	PathSet     bool
	LookupDirs  []string
	Recipe      string
	Engine      string
	Lenient     bool
	DryRun      bool
	Verify      bool
	NoHistory   bool
	Undo        bool
	Redo        bool
	Buffer      bool
	Interactive bool
	Verbose     bool
}

// ParseFlags parses the process arguments.
func ParseFlags() (*Config, error) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs defines and parses command-line flags using pflag.
func ParseArgs(args []string) (*Config, error) {
	cfg := &Config{}
	flags := pflag.NewFlagSet("blockmv", pflag.ContinueOnError)

	flags.StringVarP(&cfg.File, "file", "f", "src/App.js", "Document to patch, relative to the lookup directory.")
	flags.StringSliceVarP(&cfg.LookupDirs, "lookup-dir", "l", []string{}, "Directories to resolve the document in (default: current directory).")
	flags.StringVar(&cfg.Recipe, "recipe", "", "Recipe file (.yaml, .toml, .md) describing the block and anchor. Use '-' to read it from stdin or the clipboard.")
	flags.StringVar(&cfg.Engine, "engine", EnginePattern, "Matching engine: 'pattern' (whitespace-tolerant text) or 'tree' (JSX syntax tree).")
	flags.BoolVar(&cfg.Lenient, "lenient", false, "Remove every copy of the block and drop it silently when the anchor is missing.")
	flags.BoolVarP(&cfg.DryRun, "dry-run", "n", false, "Print the diff instead of writing the document.")
	flags.BoolVar(&cfg.Verify, "verify", false, "Refuse results that no longer parse as JSX.")
	flags.BoolVar(&cfg.NoHistory, "no-history", false, "Do not record the change for undo.")
	flags.BoolVarP(&cfg.Buffer, "buffer", "b", false, "Load the result into a Neovim buffer without saving it to disk.")
	flags.BoolVarP(&cfg.Interactive, "interactive", "i", false, "Preview the diff and confirm before writing.")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "Log debug details to stderr.")

	// Mutually exclusive history group
	flags.BoolVarP(&cfg.Undo, "undo", "u", false, "Undo the last operation.")
	flags.BoolVarP(&cfg.Redo, "redo", "r", false, "Redo the last undone operation.")

	flags.Usage = func() {
		fmt.Println("Usage: blockmv [flags]")
		fmt.Println("\nMove a conditional JSX block out of its container and reattach it before the container's closing tags.")
		fmt.Println("\nExample: blockmv --recipe toggle.yaml -f src/Panel.js")
		fmt.Println("\nFlags:")
		flags.PrintDefaults()
	}

	if err := flags.Parse(args); err != nil {
		return nil, err
	}
	if flags.NArg() > 0 {
		return nil, fmt.Errorf("error: unexpected arguments: %v", flags.Args())
	}
	cfg.PathSet = flags.Changed("file")

	// Validate mutually exclusive flags
	if cfg.Undo && cfg.Redo {
		return nil, fmt.Errorf("error: --undo and --redo are mutually exclusive")
	}
	if cfg.Engine != EnginePattern && cfg.Engine != EngineTree {
		return nil, fmt.Errorf("error: unknown engine %q (want %s or %s)", cfg.Engine, EnginePattern, EngineTree)
	}
	if cfg.Buffer && cfg.DryRun {
		return nil, fmt.Errorf("error: --buffer and --dry-run are mutually exclusive")
	}

	return cfg, nil
}
