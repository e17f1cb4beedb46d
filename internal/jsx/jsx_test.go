package jsx

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/sokinpui/blockmv/internal/recipe"
	"github.com/sokinpui/blockmv/model"
)

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("..", "patcher", "testdata", name))
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return data
}

func TestRelocateScannerModal(t *testing.T) {
	want := string(readFixture(t, "App.moved.js"))

	got, err := New(nil).Relocate(context.Background(), readFixture(t, "App.js"), recipe.Default())
	if err != nil {
		t.Fatalf("Relocate failed: %v", err)
	}
	if diff := cmp.Diff(want, got.Content); diff != "" {
		t.Errorf("Relocate() mismatch (-want +got):\n%s", diff)
	}

	_, err = New(nil).Relocate(context.Background(), []byte(got.Content), recipe.Default())
	if !errors.Is(err, model.ErrPatternNotFound) {
		t.Errorf("second Relocate() error = %v, want ErrPatternNotFound", err)
	}
}

func TestRelocateDerivedIndent(t *testing.T) {
	doc := `const A = () => (
  <main>
    <aside>
      {open && (
        <Panel/>
      )}
    </aside>
  </main>
);
`
	want := `const A = () => (
  <main>
    <aside>
    </aside>
    {open && (
      <Panel/>
    )}
  </main>
);
`
	got, err := New(nil).Relocate(context.Background(), []byte(doc), model.Target{Condition: "open"})
	if err != nil {
		t.Fatalf("Relocate failed: %v", err)
	}
	if diff := cmp.Diff(want, got.Content); diff != "" {
		t.Errorf("Relocate() mismatch (-want +got):\n%s", diff)
	}
}

func TestRelocateErrors(t *testing.T) {
	tests := []struct {
		name   string
		doc    string
		target model.Target
		want   error
	}{
		{
			name:   "no guarded block",
			doc:    "const A = () => (\n  <main>\n    <p/>\n  </main>\n);\n",
			target: model.Target{Condition: "open"},
			want:   model.ErrPatternNotFound,
		},
		{
			name:   "two guarded blocks",
			doc:    "const A = () => (\n  <main>\n    <aside>\n      {open && <p/>}\n      {open && <q/>}\n    </aside>\n  </main>\n);\n",
			target: model.Target{Condition: "open"},
			want:   model.ErrAmbiguousMatch,
		},
		{
			name:   "no enclosing container",
			doc:    "const A = () => (\n  <aside>\n    {open && (\n      <p/>\n    )}\n  </aside>\n);\n",
			target: model.Target{Condition: "open"},
			want:   model.ErrAnchorNotFound,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(nil).Relocate(context.Background(), []byte(tt.doc), tt.target)
			if !errors.Is(err, tt.want) {
				t.Errorf("Relocate() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestRelocateGuardFromFragment(t *testing.T) {
	doc := "const A = () => (\n  <main>\n    <aside>\n      {open && <p/>}\n    </aside>\n  </main>\n);\n"
	target := model.Target{Fragment: []string{"{open && <p/>}"}}
	got, err := New(nil).Relocate(context.Background(), []byte(doc), target)
	if err != nil {
		t.Fatalf("Relocate failed: %v", err)
	}
	if got.Fragment.Text != "      {open && <p/>}\n" {
		t.Errorf("Fragment.Text = %q", got.Fragment.Text)
	}

	if _, err := New(nil).Relocate(context.Background(), []byte(doc), model.Target{}); err == nil {
		t.Error("expected an error without a guard condition")
	}
}

func findNode(t *testing.T, src []byte, typ string) *sitter.Node {
	t.Helper()
	tree, err := parse(context.Background(), src)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	t.Cleanup(tree.Close)
	var found *sitter.Node
	walk(tree.RootNode(), func(n *sitter.Node) bool {
		if found == nil && n.Type() == typ {
			found = n
		}
		return found == nil
	})
	if found == nil {
		t.Fatalf("no %s node in %q", typ, src)
	}
	return found
}

// Closing tags and expressions can start with the newline before them.
func TestTokenBounds(t *testing.T) {
	src := []byte("const A = () => (\n  <main>\n    <aside>\n      {open && <p/>}\n    </aside>\n  </main>\n);\n")

	closing := findNode(t, src, "jsx_closing_element")
	if got := string(src[tokenStart(src, closing):tokenEnd(src, closing)]); got != "</aside>" {
		t.Errorf("closing token = %q, want </aside>", got)
	}
	at := lineStart(src, tokenStart(src, closing))
	if at < 0 || !strings.HasPrefix(string(src[at:]), "    </aside>\n") {
		t.Errorf("lineStart = %d, want the start of the </aside> line", at)
	}

	expr := findNode(t, src, "jsx_expression")
	c := spanOf(expr, src)
	if got := string(src[c.start:c.end]); got != "      {open && <p/>}\n" {
		t.Errorf("span = %q", got)
	}
}

func TestIsGuardedBy(t *testing.T) {
	tests := []struct {
		name string
		expr string
		want bool
	}{
		{name: "and", expr: "{open && <p/>}", want: true},
		{name: "spaced", expr: "{ open   &&\n  <p/> }", want: true},
		{name: "or", expr: "{open || <p/>}", want: false},
		{name: "other guard", expr: "{shut && <p/>}", want: false},
		{name: "plain value", expr: "{open}", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := []byte("const A = () => (\n  <div>\n    " + tt.expr + "\n  </div>\n);\n")
			n := findNode(t, src, "jsx_expression")
			if got := isGuardedBy(n, "open", src); got != tt.want {
				t.Errorf("isGuardedBy(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestLeadingComment(t *testing.T) {
	tests := []struct {
		name string
		body string
		want bool
	}{
		{name: "line above", body: "    {/* note */}\n    {open && <p/>}\n", want: true},
		{name: "blank line between", body: "    {/* note */}\n\n    {open && <p/>}\n", want: false},
		{name: "no comment", body: "    <q/>\n    {open && <p/>}\n", want: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := []byte("const A = () => (\n  <div>\n" + tt.body + "  </div>\n);\n")
			var guarded *sitter.Node
			tree, err := parse(context.Background(), src)
			if err != nil {
				t.Fatalf("parse failed: %v", err)
			}
			defer tree.Close()
			walk(tree.RootNode(), func(n *sitter.Node) bool {
				if n.Type() == "jsx_expression" && isGuardedBy(n, "open", src) {
					guarded = n
				}
				return guarded == nil
			})
			if guarded == nil {
				t.Fatal("no guarded block")
			}
			if got := leadingComment(guarded, src) != nil; got != tt.want {
				t.Errorf("leadingComment() found = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(context.Background(), readFixture(t, "App.moved.js")); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
	if err := Validate(context.Background(), []byte("const A = (<div>;\n")); !errors.Is(err, model.ErrInvalidResult) {
		t.Errorf("Validate() error = %v, want ErrInvalidResult", err)
	}
}
