package main

import (
	"errors"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/pflag"

	"github.com/sokinpui/blockmv/blockmv"
	"github.com/sokinpui/blockmv/cli"
	"github.com/sokinpui/blockmv/internal/logging"
	"github.com/sokinpui/blockmv/internal/tui"
	"github.com/sokinpui/blockmv/internal/ui"
)

func main() {
	cfg, err := cli.ParseFlags()
	if err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	log, err := logging.New(cfg.Verbose)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	app, err := blockmv.New(cfg, log)
	if err != nil {
		ui.Error("Failed to initialize application: %v", err)
		os.Exit(1)
	}

	if cfg.Interactive && !cfg.Undo && !cfg.Redo {
		final, err := tea.NewProgram(tui.New(app)).Run()
		if err != nil {
			ui.Error("Error running program: %v", err)
			os.Exit(1)
		}
		if m, ok := final.(tui.Model); ok && m.Err() != nil {
			os.Exit(1)
		}
		return
	}

	summary, err := app.Execute()
	if err != nil {
		ui.Error("Error: %v", err)
		var detailed *blockmv.DetailedError
		if errors.As(err, &detailed) {
			fmt.Fprintf(os.Stderr, "\n--- Stack Trace ---\n%s\n", detailed.Stack)
		}
		log.Sync()
		os.Exit(1)
	}
	ui.Outcome(summary)
}
