package ui

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/sokinpui/blockmv/model"
)

var (
	HeaderColor  = color.New(color.FgBlue, color.Bold)
	InfoColor    = color.New(color.FgCyan)
	SuccessColor = color.New(color.FgGreen)
	WarningColor = color.New(color.FgYellow)
	ErrorColor   = color.New(color.FgRed)
	PathColor    = color.New(color.FgYellow)
)

func Header(format string, a ...interface{}) {
	HeaderColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Success(format string, a ...interface{}) {
	SuccessColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Warning(format string, a ...interface{}) {
	WarningColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Error(format string, a ...interface{}) {
	ErrorColor.Fprintf(os.Stderr, format+"\n", a...)
}

func Path(format string, a ...interface{}) {
	PathColor.Fprintf(os.Stderr, "  "+format+"\n", a...)
}

// Line is the plain outcome line for a summary.
func Line(s model.Summary) string {
	if s.Message != "" {
		return s.Message
	}
	switch s.Status {
	case model.StatusMoved:
		return fmt.Sprintf("Moved block in %s", s.Path)
	case model.StatusDryRun:
		return fmt.Sprintf("Dry run: %s left unchanged", s.Path)
	case model.StatusBuffered:
		return fmt.Sprintf("Loaded %s into a Neovim buffer", s.Path)
	default:
		return "Nothing to do."
	}
}

// Outcome prints the diff of a dry run, if any, and the outcome line to stdout.
func Outcome(s model.Summary) {
	if s.Status == model.StatusDryRun && s.Diff != "" {
		fmt.Fprint(color.Output, colorDiff(s.Diff))
	}

	c := InfoColor
	switch s.Status {
	case model.StatusMoved, model.StatusUndone, model.StatusRedone:
		c = SuccessColor
	case model.StatusNotFound:
		c = WarningColor
	}
	c.Fprintln(color.Output, Line(s))
}

func colorDiff(diff string) string {
	lines := strings.SplitAfter(diff, "\n")
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			lines[i] = HeaderColor.Sprint(line)
		case strings.HasPrefix(line, "@@"):
			lines[i] = InfoColor.Sprint(line)
		case strings.HasPrefix(line, "+"):
			lines[i] = SuccessColor.Sprint(line)
		case strings.HasPrefix(line, "-"):
			lines[i] = ErrorColor.Sprint(line)
		}
	}
	return strings.Join(lines, "")
}

// --- Summaries ---

// PrintHistorySummary lists the files an undo or redo restored and the ones it refused.
func PrintHistorySummary(title string, done, failed []string) {
	Header("\n--- %s Summary ---", title)
	if len(done) > 0 {
		Success("Restored %d file(s):", len(done))
		for _, f := range done {
			Path("%s", f)
		}
	}
	if len(failed) > 0 {
		Error("Failed to restore %d file(s):", len(failed))
		for _, f := range failed {
			Path("%s", f)
		}
	}
}
