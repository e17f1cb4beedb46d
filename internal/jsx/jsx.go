package jsx

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/javascript"
	"go.uber.org/zap"

	"github.com/sokinpui/blockmv/internal/patcher"
	"github.com/sokinpui/blockmv/internal/pattern"
	"github.com/sokinpui/blockmv/model"
)

// Engine relocates a conditional JSX block by walking the syntax tree instead
// of matching text. The block is found by its guard identifier and reattached
// as the last child of the element that encloses its parent element.
type Engine struct {
	Log *zap.Logger
}

// New creates a tree engine.
func New(log *zap.Logger) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	return &Engine{Log: log}
}

func parse(ctx context.Context, src []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(javascript.GetLanguage())
	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("failed to parse document: %w", err)
	}
	return tree, nil
}

// Validate reports ErrInvalidResult when src does not parse cleanly.
func Validate(ctx context.Context, src []byte) error {
	tree, err := parse(ctx, src)
	if err != nil {
		return err
	}
	defer tree.Close()
	if tree.RootNode().HasError() {
		return model.ErrInvalidResult
	}
	return nil
}

// Relocate moves the `{cond && (...)}` block named by the target.
func (e *Engine) Relocate(ctx context.Context, doc []byte, target model.Target) (model.Relocation, error) {
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}

	cond := target.Condition
	if cond == "" {
		cond = pattern.Guard(target.Fragment)
	}
	if cond == "" {
		return model.Relocation{}, fmt.Errorf("target has no guard condition for the tree engine")
	}

	tree, err := parse(ctx, doc)
	if err != nil {
		return model.Relocation{}, err
	}
	defer tree.Close()
	root := tree.RootNode()
	hadErrors := root.HasError()

	var confirm *regexp.Regexp
	if len(target.Fragment) > 0 {
		if confirm, err = pattern.Compile(target.Fragment); err != nil {
			return model.Relocation{}, fmt.Errorf("invalid fragment pattern: %w", err)
		}
	}

	var found []candidate
	walk(root, func(n *sitter.Node) bool {
		if n.Type() != "jsx_expression" || !isGuardedBy(n, cond, doc) {
			return true
		}
		c := spanOf(n, doc)
		// A block that no longer reads like the pattern has already been moved.
		if confirm == nil || confirm.MatchString(string(doc[c.start:c.end])) {
			found = append(found, c)
		}
		return false
	})
	switch {
	case len(found) == 0:
		return model.Relocation{}, model.ErrPatternNotFound
	case len(found) > 1:
		return model.Relocation{}, fmt.Errorf("%w: %d blocks guarded by %s", model.ErrAmbiguousMatch, len(found), cond)
	}
	node, start, end := found[0].node, found[0].start, found[0].end
	log.Debug("guarded block found",
		zap.String("condition", cond),
		zap.Int("line", bytes.Count(doc[:start], []byte("\n"))+1),
		zap.Int("start", start),
		zap.Int("end", end))

	closing := containerClosing(node)
	if closing == nil {
		return model.Relocation{}, fmt.Errorf("%w: no enclosing container for %s", model.ErrAnchorNotFound, cond)
	}
	at := lineStart(doc, tokenStart(doc, closing))
	if at < 0 {
		return model.Relocation{}, fmt.Errorf("%w: container closing tag shares its line", model.ErrAnchorNotFound)
	}

	layout := patcher.LayoutFor(target)
	if layout.Indent == "" {
		layout.Indent = indentAt(doc, at) + layout.Unit
	}
	text := string(doc[start:end])
	block := patcher.Build(text, layout)

	// The container closes after everything it holds, so at >= end.
	var out strings.Builder
	out.Grow(len(doc) + len(block))
	out.Write(doc[:start])
	out.Write(doc[end:at])
	out.WriteString(block)
	out.Write(doc[at:])
	content := out.String()

	if !hadErrors {
		if err := Validate(ctx, []byte(content)); err != nil {
			return model.Relocation{}, err
		}
	}

	return model.Relocation{
		Content:  content,
		Fragment: model.Fragment{Text: text, Start: start, End: end},
		Removed:  1,
		Inserted: 1,
	}, nil
}

type candidate struct {
	node       *sitter.Node
	start, end int
}

// spanOf covers the block, the comment directly above it, and the lines they sit on.
func spanOf(n *sitter.Node, src []byte) candidate {
	start := tokenStart(src, n)
	if comment := leadingComment(n, src); comment != nil {
		start = tokenStart(src, comment)
	}
	start, end := lineSpan(src, start, tokenEnd(src, n))
	return candidate{node: n, start: start, end: end}
}

func isBlank(c byte) bool {
	return c == ' ' || c == '\t' || c == '\r' || c == '\n'
}

// tokenStart is the first non-blank byte of n. JSX children can carry the
// whitespace before them in their range.
func tokenStart(src []byte, n *sitter.Node) int {
	i, end := int(n.StartByte()), int(n.EndByte())
	for i < end && isBlank(src[i]) {
		i++
	}
	return i
}

// tokenEnd is the offset after the last non-blank byte of n.
func tokenEnd(src []byte, n *sitter.Node) int {
	start, j := int(n.StartByte()), int(n.EndByte())
	for j > start && isBlank(src[j-1]) {
		j--
	}
	return j
}

// walk visits named nodes depth first. Returning false skips the children.
func walk(n *sitter.Node, visit func(*sitter.Node) bool) {
	if !visit(n) {
		return
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		walk(n.NamedChild(i), visit)
	}
}

// isGuardedBy reports whether a jsx_expression holds `cond && ...`.
func isGuardedBy(n *sitter.Node, cond string, src []byte) bool {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if child.Type() == "comment" {
			continue
		}
		if child.Type() != "binary_expression" {
			return false
		}
		left := child.ChildByFieldName("left")
		if left == nil || strings.TrimSpace(left.Content(src)) != cond {
			return false
		}
		return hasOperator(child, "&&")
	}
	return false
}

// hasOperator looks for op among the anonymous children of a binary expression.
// The grammar does not expose the operator as a field.
func hasOperator(n *sitter.Node, op string) bool {
	for i := 0; i < int(n.ChildCount()); i++ {
		if c := n.Child(i); !c.IsNamed() && c.Type() == op {
			return true
		}
	}
	return false
}

// isCommentExpression reports whether n is a `{/* ... */}` child.
func isCommentExpression(n *sitter.Node) bool {
	if n.Type() != "jsx_expression" || n.NamedChildCount() == 0 {
		return false
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		if n.NamedChild(i).Type() != "comment" {
			return false
		}
	}
	return true
}

// leadingComment returns the comment expression directly above n, skipping
// whitespace-only text between them.
func leadingComment(n *sitter.Node, src []byte) *sitter.Node {
	for prev := n.PrevNamedSibling(); prev != nil; prev = prev.PrevNamedSibling() {
		if prev.Type() == "jsx_text" && strings.TrimSpace(prev.Content(src)) == "" {
			continue
		}
		if !isCommentExpression(prev) {
			return nil
		}
		// Only a comment on the line directly above belongs to the block.
		if bytes.Count(src[tokenEnd(src, prev):tokenStart(src, n)], []byte("\n")) != 1 {
			return nil
		}
		return prev
	}
	return nil
}

// containerClosing finds the closing tag of the element that encloses the
// element holding n.
func containerClosing(n *sitter.Node) *sitter.Node {
	depth := 0
	for p := n.Parent(); p != nil; p = p.Parent() {
		if p.Type() != "jsx_element" {
			continue
		}
		depth++
		if depth < 2 {
			continue
		}
		for i := 0; i < int(p.ChildCount()); i++ {
			if c := p.Child(i); c.Type() == "jsx_closing_element" {
				return c
			}
		}
		return nil
	}
	return nil
}

// lineStart returns the offset of the line holding pos when only blanks
// precede pos on that line, or -1.
func lineStart(src []byte, pos int) int {
	i := pos
	for i > 0 && (src[i-1] == ' ' || src[i-1] == '\t') {
		i--
	}
	if i > 0 && src[i-1] != '\n' {
		return -1
	}
	return i
}

// lineSpan widens [start, end) to whole lines when the span is alone on them.
func lineSpan(src []byte, start, end int) (int, int) {
	if s := lineStart(src, start); s >= 0 {
		start = s
	}
	j := end
	for j < len(src) && (src[j] == ' ' || src[j] == '\t' || src[j] == '\r') {
		j++
	}
	if j == len(src) {
		return start, j
	}
	if src[j] == '\n' {
		return start, j + 1
	}
	return start, end
}

func indentAt(src []byte, lineStart int) string {
	j := lineStart
	for j < len(src) && (src[j] == ' ' || src[j] == '\t') {
		j++
	}
	return string(src[lineStart:j])
}
