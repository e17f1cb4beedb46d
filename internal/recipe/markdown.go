package recipe

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"gopkg.in/yaml.v3"

	"github.com/sokinpui/blockmv/model"
)

// Block roles recognised in a Markdown recipe.
const (
	roleMeta         = "yaml"
	roleFragment     = "fragment"
	roleAnchorBefore = "anchor-before"
	roleAnchorAfter  = "anchor-after"
)

// CodeBlock represents a parsed code block from markdown content.
type CodeBlock struct {
	// Hint is the content of the paragraph immediately preceding the code block.
	Hint string
	// Lang is the info string of the code block (e.g., "fragment", "yaml").
	Lang string
	// Content is the raw text inside the code block.
	Content string
}

// Role names what a block describes: its info string, or the preceding
// paragraph ("Fragment:") when the fence has none.
func (b CodeBlock) Role() string {
	if b.Lang != "" {
		return strings.ToLower(b.Lang)
	}
	hint := strings.ToLower(strings.TrimSpace(b.Hint))
	hint = strings.TrimSuffix(hint, ":")
	return strings.ReplaceAll(hint, " ", "-")
}

// ExtractCodeBlocks uses a markdown AST to find all fenced code blocks
// and their preceding paragraph, which is treated as a hint.
func ExtractCodeBlocks(source []byte) ([]CodeBlock, error) {
	var blocks []CodeBlock
	parser := goldmark.DefaultParser()
	root := parser.Parse(text.NewReader(source))

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fencedCodeBlock, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		var block CodeBlock
		block.Lang = string(fencedCodeBlock.Language(source))
		block.Content = string(segmentsText(fencedCodeBlock.Lines(), source))

		if prev := fencedCodeBlock.PreviousSibling(); prev != nil {
			if p, ok := prev.(*ast.Paragraph); ok {
				block.Hint = strings.TrimSpace(string(segmentsText(p.Lines(), source)))
			}
		}

		blocks = append(blocks, block)
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}

	return blocks, nil
}

func segmentsText(lines *text.Segments, source []byte) []byte {
	var content bytes.Buffer
	for i := 0; i < lines.Len(); i++ {
		line := lines.At(i)
		content.Write(line.Value(source))
	}
	return content.Bytes()
}

// parseMarkdown builds a target from a Markdown recipe. Pattern blocks hold one
// literal line per line; an optional yaml block carries the remaining fields.
func parseMarkdown(source []byte) (model.Target, error) {
	blocks, err := ExtractCodeBlocks(source)
	if err != nil {
		return model.Target{}, fmt.Errorf("failed to parse markdown recipe: %w", err)
	}

	var target model.Target
	for _, block := range blocks {
		switch block.Role() {
		case roleMeta:
			if err := yaml.Unmarshal([]byte(block.Content), &target); err != nil {
				return model.Target{}, fmt.Errorf("failed to parse recipe metadata: %w", err)
			}
		case roleFragment:
			target.Fragment = patternLines(block.Content)
		case roleAnchorBefore:
			target.Anchor.Before = patternLines(block.Content)
		case roleAnchorAfter:
			target.Anchor.After = patternLines(block.Content)
		}
	}
	return target, nil
}

func patternLines(content string) []string {
	var lines []string
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
