package patcher

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/sokinpui/blockmv/internal/pattern"
	"github.com/sokinpui/blockmv/model"
)

// Engine relocates fragments with structural text patterns.
type Engine struct {
	// Lenient restores the unchecked behaviour: no uniqueness checks, and an
	// anchor that does not match silently drops the fragment.
	Lenient bool
	Log     *zap.Logger
}

// New creates a pattern engine.
func New(lenient bool, log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{Lenient: lenient, Log: log}
}

// Remove deletes every occurrence of text from doc and reports how many were removed.
// Callers that need a single removal must check uniqueness first.
func Remove(doc, text string) (string, int) {
	if text == "" {
		return doc, 0
	}
	n := strings.Count(doc, text)
	if n == 0 {
		return doc, 0
	}
	return strings.ReplaceAll(doc, text, ""), n
}

// Splice inserts block between the two halves of the first anchor match.
// It returns the number of anchor matches found; the document is returned
// unchanged when there are none.
func Splice(doc string, anchor *regexp.Regexp, block string) (string, int) {
	matches := anchor.FindAllStringSubmatchIndex(doc, -1)
	if len(matches) == 0 {
		return doc, 0
	}
	// Group 1 ends where group 2 begins.
	at := matches[0][3]
	var b strings.Builder
	b.Grow(len(doc) + len(block))
	b.WriteString(doc[:at])
	b.WriteString(block)
	b.WriteString(doc[at:])
	return b.String(), len(matches)
}

// Relocate locates the target fragment in doc, removes it, and inserts the
// rebuilt fragment before the target anchor. A match that already sits at the
// anchor, with its annotation above it, does not count: the block was moved by
// an earlier run.
func (e *Engine) Relocate(ctx context.Context, doc []byte, target model.Target) (model.Relocation, error) {
	if err := ctx.Err(); err != nil {
		return model.Relocation{}, err
	}
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}
	content := string(doc)
	layout := LayoutFor(target)

	fragmentRe, err := pattern.Compile(target.Fragment)
	if err != nil {
		return model.Relocation{}, fmt.Errorf("invalid fragment pattern: %w", err)
	}
	anchorRe, err := pattern.CompileAnchor(target.Anchor)
	if err != nil {
		return model.Relocation{}, fmt.Errorf("invalid anchor pattern: %w", err)
	}

	var found []model.Fragment
	for _, f := range pattern.LocateAll(content, fragmentRe) {
		if Relocated(content, f, anchorRe, layout.Note) {
			log.Debug("skipping relocated fragment", zap.Int("start", f.Start))
			continue
		}
		found = append(found, f)
	}
	if len(found) == 0 {
		return model.Relocation{}, model.ErrPatternNotFound
	}
	frag := found[0]
	log.Debug("fragment located",
		zap.Int("start", frag.Start),
		zap.Int("end", frag.End),
		zap.Int("lines", strings.Count(frag.Text, "\n")))

	if !e.Lenient {
		if len(found) > 1 {
			return model.Relocation{}, fmt.Errorf("%w: fragment pattern found %d times", model.ErrAmbiguousMatch, len(found))
		}
		if n := strings.Count(content, frag.Text); n > 1 {
			return model.Relocation{}, fmt.Errorf("%w: %d copies", model.ErrDuplicateFragment, n)
		}
	}

	removed, n := Remove(content, frag.Text)
	log.Debug("fragment removed", zap.Int("occurrences", n))

	block := Build(frag.Text, layout)
	out, matches := Splice(removed, anchorRe, block)
	switch {
	case matches == 0 && !e.Lenient:
		return model.Relocation{}, model.ErrAnchorNotFound
	case matches > 1 && !e.Lenient:
		return model.Relocation{}, fmt.Errorf("%w: anchor found %d times", model.ErrAmbiguousMatch, matches)
	case matches == 0:
		log.Warn("anchor not found, fragment dropped")
	}

	inserted := 0
	if matches > 0 {
		inserted = 1
	}
	return model.Relocation{
		Content:  out,
		Fragment: frag,
		Removed:  n,
		Inserted: inserted,
	}, nil
}

// Relocated reports whether f already sits where Splice would put it: directly
// after the Before half of an anchor match, below the annotation line for note.
func Relocated(doc string, f model.Fragment, anchor *regexp.Regexp, note string) bool {
	start := f.Start
	if note != "" {
		lineStart := strings.LastIndex(doc[:start], "\n")
		if start > 0 && lineStart >= 0 {
			prev := strings.LastIndex(doc[:lineStart], "\n") + 1
			if strings.TrimSpace(doc[prev:lineStart]) == noteLine(note) {
				start = prev
			}
		}
	}
	rest := doc[:start] + doc[f.End:]
	for _, m := range anchor.FindAllStringSubmatchIndex(rest, -1) {
		if m[3] == start {
			return true
		}
	}
	return false
}
