package patcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sokinpui/blockmv/model"
)

// DefaultIndentUnit is one nesting level when a target does not set its own.
const DefaultIndentUnit = "  "

// Layout controls how a relocated fragment is rendered.
type Layout struct {
	// Indent is the prefix of the fragment's outermost lines. When empty the
	// fragment moves one Unit shallower than where it was found.
	Indent string
	Unit   string
	// Note is the annotation text. Empty means no annotation.
	Note string
}

// LayoutFor resolves the layout configured on a target.
func LayoutFor(target model.Target) Layout {
	l := Layout{
		Indent: target.Indent,
		Unit:   target.IndentUnit,
		Note:   target.Annotation,
	}
	if l.Indent == "" && target.IndentWidth > 0 {
		l.Indent = strings.Repeat(" ", target.IndentWidth)
	}
	if l.Unit == "" {
		l.Unit = DefaultIndentUnit
	}
	return l
}

// jsxCommentRegex matches a line holding only a JSX comment, e.g. {/* Scanner Modal */}.
var jsxCommentRegex = regexp.MustCompile(`^\{/\*\s*(.*?)\s*\*/\}$`)

// lineEnding is the line break used by text, taken from its first line.
func lineEnding(text string) string {
	if i := strings.IndexByte(text, '\n'); i > 0 && text[i-1] == '\r' {
		return "\r\n"
	}
	return "\n"
}

// splitLines breaks a fragment into lines, dropping the final line break and
// any blank lines at either end.
func splitLines(text string) []string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	lines := strings.Split(text, "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[0]) == "" {
		lines = lines[1:]
	}
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

func leadingSpace(line string) string {
	return line[:len(line)-len(strings.TrimLeft(line, " \t"))]
}

// commonIndent is the shortest indentation among non-blank lines.
func commonIndent(lines []string) string {
	indent := ""
	found := false
	for _, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		ws := leadingSpace(line)
		if !found || len(ws) < len(indent) {
			indent = ws
			found = true
		}
	}
	return indent
}

// Reindent moves lines so the outermost ones start with indent. Relative
// nesting is kept, blank lines become empty and trailing blanks are dropped.
func Reindent(lines []string, indent string) []string {
	base := len(commonIndent(lines))
	out := make([]string, len(lines))
	for i, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" {
			continue
		}
		cut := base
		if ws := len(leadingSpace(line)); ws < cut {
			cut = ws
		}
		out[i] = indent + line[cut:]
	}
	return out
}

// Annotate adds the note to a reindented fragment. An opening JSX comment line
// is extended with the note; otherwise a new comment line is prepended.
func Annotate(lines []string, indent, note string) []string {
	if note == "" || len(lines) == 0 {
		return lines
	}
	first := strings.TrimSpace(lines[0])
	if m := jsxCommentRegex.FindStringSubmatch(first); m != nil && m[1] != "" {
		annotated := append([]string{}, lines...)
		annotated[0] = indent + fmt.Sprintf("{/* %s - %s */}", m[1], note)
		return annotated
	}
	return append([]string{indent + noteLine(note)}, lines...)
}

func noteLine(note string) string {
	return fmt.Sprintf("{/* %s */}", note)
}

// Build renders the fragment text at its new location. The result ends with a
// line break so it can be spliced in front of a line, and keeps the fragment's
// line ending.
func Build(text string, layout Layout) string {
	lines := splitLines(text)
	if len(lines) == 0 {
		return ""
	}

	indent := layout.Indent
	if indent == "" {
		original := commonIndent(lines)
		indent = strings.TrimSuffix(original, layout.Unit)
		if indent == original && len(original) >= len(layout.Unit) {
			indent = original[:len(original)-len(layout.Unit)]
		}
	}

	lines = Annotate(Reindent(lines, indent), indent, layout.Note)
	eol := lineEnding(text)
	return strings.Join(lines, eol) + eol
}
