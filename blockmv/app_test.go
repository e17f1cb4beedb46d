package blockmv_test

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sokinpui/blockmv/blockmv"
	"github.com/sokinpui/blockmv/cli"
	"github.com/sokinpui/blockmv/model"
)

// fixtureDir is resolved at package init, before any test changes directory.
var fixtureDir, _ = filepath.Abs(filepath.Join("..", "internal", "patcher", "testdata"))

func readFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join(fixtureDir, name))
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return data
}

// setupProject creates a project with src/App.js in a temp dir and moves into it.
func setupProject(t *testing.T, app []byte) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "src"), 0755); err != nil {
		t.Fatalf("mkdir failed: %v", err)
	}
	path := filepath.Join(root, "src", "App.js")
	if err := os.WriteFile(path, app, 0644); err != nil {
		t.Fatalf("failed to write App.js: %v", err)
	}
	chdir(t, root)
	return path
}

func run(t *testing.T, args ...string) (model.Summary, error) {
	t.Helper()
	cfg, err := cli.ParseArgs(args)
	if err != nil {
		t.Fatalf("ParseArgs(%v) failed: %v", args, err)
	}
	app, err := blockmv.New(cfg, nil)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return app.Execute()
}

func assertFile(t *testing.T, path string, want []byte) {
	t.Helper()
	got, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	if diff := cmp.Diff(string(want), string(got)); diff != "" {
		t.Errorf("%s mismatch (-want +got):\n%s", path, diff)
	}
}

func TestExecuteDefault(t *testing.T) {
	path := setupProject(t, readFixture(t, "App.js"))

	summary, err := run(t)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if summary.Status != model.StatusMoved {
		t.Errorf("Status = %v, want moved", summary.Status)
	}
	if summary.Message != "Successfully moved scanner modal outside fixed-bottom-controls" {
		t.Errorf("Message = %q", summary.Message)
	}
	if summary.Path != filepath.Join("src", "App.js") {
		t.Errorf("Path = %q, want src/App.js", summary.Path)
	}
	assertFile(t, path, readFixture(t, "App.moved.js"))

	// The moved block no longer matches, so a second run changes nothing.
	summary, err = run(t)
	if err != nil {
		t.Fatalf("second Execute failed: %v", err)
	}
	if summary.Status != model.StatusNotFound || summary.Message != "Could not find scanner modal pattern" {
		t.Errorf("second run = %v %q, want not-found", summary.Status, summary.Message)
	}
	assertFile(t, path, readFixture(t, "App.moved.js"))
}

func TestExecuteNotFoundLeavesFile(t *testing.T) {
	doc := []byte("export default function App() {\n  return <div />;\n}\n")
	path := setupProject(t, doc)

	summary, err := run(t)
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if summary.Status != model.StatusNotFound {
		t.Errorf("Status = %v, want not-found", summary.Status)
	}
	assertFile(t, path, doc)
}

func TestExecuteDryRun(t *testing.T) {
	path := setupProject(t, readFixture(t, "App.js"))

	summary, err := run(t, "-n")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if summary.Status != model.StatusDryRun {
		t.Errorf("Status = %v, want dry-run", summary.Status)
	}
	if !strings.Contains(summary.Diff, "+        {/* Scanner Modal - Rendered outside fixed-bottom-controls for proper centering */}") {
		t.Errorf("diff lacks the annotated block:\n%s", summary.Diff)
	}
	assertFile(t, path, readFixture(t, "App.js"))
	if _, err := os.Stat(".blockmv"); !os.IsNotExist(err) {
		t.Errorf("dry run should not create history, stat err = %v", err)
	}
}

func TestExecuteUndoRedo(t *testing.T) {
	path := setupProject(t, readFixture(t, "App.js"))

	if _, err := run(t); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}

	summary, err := run(t, "--undo")
	if err != nil {
		t.Fatalf("undo failed: %v", err)
	}
	if summary.Status != model.StatusUndone {
		t.Errorf("Status = %v, want undone", summary.Status)
	}
	assertFile(t, path, readFixture(t, "App.js"))

	summary, err = run(t, "--redo")
	if err != nil {
		t.Fatalf("redo failed: %v", err)
	}
	if summary.Status != model.StatusRedone {
		t.Errorf("Status = %v, want redone", summary.Status)
	}
	assertFile(t, path, readFixture(t, "App.moved.js"))

	summary, err = run(t, "--redo")
	if err != nil {
		t.Fatalf("second redo failed: %v", err)
	}
	if summary.Message != "No operation to redo." {
		t.Errorf("Message = %q", summary.Message)
	}
}

func TestExecuteUndoRefusesEditedFile(t *testing.T) {
	path := setupProject(t, readFixture(t, "App.js"))

	if _, err := run(t); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	edited := []byte("// edited by hand\n")
	if err := os.WriteFile(path, edited, 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := run(t, "-u"); err == nil {
		t.Error("expected undo to refuse an edited file")
	}
	assertFile(t, path, edited)

	// The refused entry is still current once the file is put back.
	if err := os.WriteFile(path, readFixture(t, "App.moved.js"), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	summary, err := run(t, "-u")
	if err != nil {
		t.Fatalf("undo after restoring the file failed: %v", err)
	}
	if summary.Status != model.StatusUndone {
		t.Errorf("Status = %v, want undone", summary.Status)
	}
	assertFile(t, path, readFixture(t, "App.js"))
}

func TestExecuteTreeEngine(t *testing.T) {
	path := setupProject(t, readFixture(t, "App.js"))

	summary, err := run(t, "--engine", "tree", "--no-history")
	if err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	if summary.Status != model.StatusMoved {
		t.Errorf("Status = %v, want moved", summary.Status)
	}
	assertFile(t, path, readFixture(t, "App.moved.js"))
	if _, err := os.Stat(".blockmv"); !os.IsNotExist(err) {
		t.Errorf("--no-history should not create history, stat err = %v", err)
	}
}

func TestExecuteVerify(t *testing.T) {
	path := setupProject(t, readFixture(t, "App.js"))

	if _, err := run(t, "--verify", "--no-history"); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	assertFile(t, path, readFixture(t, "App.moved.js"))
}

func TestExecuteRecipe(t *testing.T) {
	setupProject(t, readFixture(t, "App.js"))

	doc := "<main>\n  <aside>\n    {open && (\n      <Panel/>\n    )}\n  </aside>\n</main>\n"
	want := "<main>\n  <aside>\n  </aside>\n    {/* Moved out of the sidebar */}\n    {open && (\n      <Panel/>\n    )}\n</main>\n"
	if err := os.WriteFile("Panel.jsx", []byte(doc), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	recipe := `fragment:
  - "{open && ("
  - "<Panel/>"
  - ")}"
anchor:
  before: ["</aside>"]
  after: ["</main>"]
indent: "    "
annotation: Moved out of the sidebar
`
	if err := os.WriteFile("toggle.yaml", []byte(recipe), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}

	if _, err := run(t, "--recipe", "toggle.yaml", "-f", "Panel.jsx", "--no-history"); err != nil {
		t.Fatalf("Execute failed: %v", err)
	}
	assertFile(t, "Panel.jsx", []byte(want))
}

func TestExecuteErrors(t *testing.T) {
	t.Run("missing document", func(t *testing.T) {
		chdir(t, t.TempDir())
		if _, err := run(t, "--no-history"); err == nil {
			t.Error("expected an error for a missing document")
		}
	})

	t.Run("ambiguous anchor", func(t *testing.T) {
		doc := readFixture(t, "App.js")
		doc = append(doc, []byte("\nfunction Other() {\n  return (\n    <div>\n      <div>\n        {x && (\n          <div>\n          </div>\n        )}\n      </div>\n    </div>\n  );\n}\n")...)
		path := setupProject(t, doc)

		_, err := run(t, "--no-history")
		if !errors.Is(err, model.ErrAmbiguousMatch) {
			t.Errorf("error = %v, want ErrAmbiguousMatch", err)
		}
		assertFile(t, path, doc)
	})
}
