package pattern

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sokinpui/blockmv/model"
)

const (
	// gap separates tokens and lines. Any run of whitespace, newlines included.
	gap = `\s+`
	// lineHead anchors a match at the start of a line, indentation included.
	lineHead = `^[ \t]*`
	// lineTail consumes trailing blanks and the line break, or the end of input.
	lineTail = `[ \t]*(?:\r?\n|\z)`
)

// tokens splits a pattern line into quoted literal tokens.
func tokens(line string) []string {
	fields := strings.Fields(line)
	quoted := make([]string, len(fields))
	for i, f := range fields {
		quoted[i] = regexp.QuoteMeta(f)
	}
	return quoted
}

// body joins the tokens of every non-blank line with flexible whitespace.
func body(lines []string) (string, error) {
	var parts []string
	for _, line := range lines {
		if t := tokens(line); len(t) > 0 {
			parts = append(parts, strings.Join(t, gap))
		}
	}
	if len(parts) == 0 {
		return "", fmt.Errorf("structural pattern has no tokens")
	}
	return strings.Join(parts, gap), nil
}

// Compile builds a multi-line, case-sensitive regular expression from a
// structural pattern. The expression matches whole lines: from the first line's
// indentation through the line break that ends the last line.
func Compile(lines []string) (*regexp.Regexp, error) {
	b, err := body(lines)
	if err != nil {
		return nil, err
	}
	return regexp.Compile(`(?m)` + lineHead + b + lineTail)
}

// CompileAnchor builds the two-group expression for an insertion point.
// Group 1 is the Before half including its line break and any blank lines that
// follow it. Group 2 is the After half starting at its line's indentation.
func CompileAnchor(anchor model.Anchor) (*regexp.Regexp, error) {
	before, err := body(anchor.Before)
	if err != nil {
		return nil, fmt.Errorf("anchor before: %w", err)
	}
	after, err := body(anchor.After)
	if err != nil {
		return nil, fmt.Errorf("anchor after: %w", err)
	}
	expr := `(?m)(` + lineHead + before + `[ \t]*\r?\n(?:[ \t]*\r?\n)*)` +
		`(` + lineHead + after + `)`
	return regexp.Compile(expr)
}

// Locate returns the first match of re in doc.
func Locate(doc string, re *regexp.Regexp) (model.Fragment, error) {
	loc := re.FindStringIndex(doc)
	if loc == nil {
		return model.Fragment{}, model.ErrPatternNotFound
	}
	return model.Fragment{
		Text:  doc[loc[0]:loc[1]],
		Start: loc[0],
		End:   loc[1],
	}, nil
}

// LocateAll returns every match of re in doc in document order.
func LocateAll(doc string, re *regexp.Regexp) []model.Fragment {
	var out []model.Fragment
	for _, loc := range re.FindAllStringIndex(doc, -1) {
		out = append(out, model.Fragment{Text: doc[loc[0]:loc[1]], Start: loc[0], End: loc[1]})
	}
	return out
}

// Count reports how many non-overlapping matches re has in doc.
func Count(doc string, re *regexp.Regexp) int {
	return len(re.FindAllStringIndex(doc, -1))
}

// Guard extracts the identifier of a `{cond && (` line from a structural
// pattern, or "" when the pattern has none.
func Guard(lines []string) string {
	for _, line := range lines {
		if m := guardRegex.FindStringSubmatch(strings.Join(strings.Fields(line), " ")); m != nil {
			return m[1]
		}
	}
	return ""
}

var guardRegex = regexp.MustCompile(`^\{\s*([A-Za-z_$][\w$.]*)\s*&&`)
