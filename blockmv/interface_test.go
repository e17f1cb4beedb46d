package blockmv_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/sokinpui/blockmv/blockmv"
	"github.com/sokinpui/blockmv/cli"
	"github.com/sokinpui/blockmv/model"
)

func exampleTarget() model.Target {
	return model.Target{
		Fragment:   []string{"{cond && (", "<X/>", ")}"},
		Anchor:     model.Anchor{Before: []string{"B"}, After: []string{"</container>"}},
		Indent:     "  ",
		Annotation: "moved",
	}
}

func TestMove(t *testing.T) {
	doc := "A\n  {cond && (\n    <X/>\n  )}\nB\n  </container>\nC"
	want := "A\nB\n  {/* moved */}\n  {cond && (\n    <X/>\n  )}\n  </container>\nC"

	got, err := blockmv.Move(doc, exampleTarget(), blockmv.Options{})
	if err != nil {
		t.Fatalf("Move failed: %v", err)
	}
	if diff := cmp.Diff(want, got.Content); diff != "" {
		t.Errorf("Move() mismatch (-want +got):\n%s", diff)
	}

	if _, err := blockmv.Move(got.Content, exampleTarget(), blockmv.Options{}); !errors.Is(err, model.ErrPatternNotFound) {
		t.Errorf("second Move() error = %v, want ErrPatternNotFound", err)
	}
}

func TestMoveLenient(t *testing.T) {
	block := "  {cond && (\n    <X/>\n  )}\n"
	doc := "A\n" + block + "B\n" + block + "  </container>\nC"

	if _, err := blockmv.Move(doc, exampleTarget(), blockmv.Options{}); !errors.Is(err, model.ErrAmbiguousMatch) {
		t.Errorf("strict Move() error = %v, want ErrAmbiguousMatch", err)
	}

	got, err := blockmv.Move(doc, exampleTarget(), blockmv.Options{Lenient: true})
	if err != nil {
		t.Fatalf("lenient Move failed: %v", err)
	}
	if got.Removed != 2 || got.Inserted != 1 {
		t.Errorf("Removed/Inserted = %d/%d, want 2/1", got.Removed, got.Inserted)
	}
}

func TestMoveInvalidTarget(t *testing.T) {
	target := exampleTarget()
	target.Anchor.After = nil
	if _, err := blockmv.Move("A\n", target, blockmv.Options{}); err == nil {
		t.Error("expected an error for a target without an anchor")
	}
}

func TestMoveFile(t *testing.T) {
	root := t.TempDir()
	chdir(t, root)
	path := filepath.Join(root, "Page.jsx")
	doc := "A\n  {cond && (\n    <X/>\n  )}\nB\n  </container>\nC"
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatalf("write failed: %v", err)
	}
	target := exampleTarget()

	summary, err := blockmv.MoveFile(path, blockmv.Options{Target: &target, DryRun: true})
	if err != nil {
		t.Fatalf("dry-run MoveFile failed: %v", err)
	}
	if summary.Status != model.StatusDryRun || summary.Diff == "" {
		t.Errorf("dry run = %v with diff %q", summary.Status, summary.Diff)
	}
	assertFile(t, path, []byte(doc))

	summary, err = blockmv.MoveFile(path, blockmv.Options{Target: &target, Engine: cli.EnginePattern})
	if err != nil {
		t.Fatalf("MoveFile failed: %v", err)
	}
	if summary.Status != model.StatusMoved {
		t.Errorf("Status = %v, want moved", summary.Status)
	}
	assertFile(t, path, []byte("A\nB\n  {/* moved */}\n  {cond && (\n    <X/>\n  )}\n  </container>\nC"))
	if _, err := os.Stat(filepath.Join(root, ".blockmv")); !os.IsNotExist(err) {
		t.Errorf("MoveFile should not record history, stat err = %v", err)
	}
}
