package blockmv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime/debug"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/sokinpui/blockmv/cli"
	"github.com/sokinpui/blockmv/internal/fs"
	"github.com/sokinpui/blockmv/internal/jsx"
	"github.com/sokinpui/blockmv/internal/nvim"
	"github.com/sokinpui/blockmv/internal/patcher"
	"github.com/sokinpui/blockmv/internal/recipe"
	"github.com/sokinpui/blockmv/internal/source"
	"github.com/sokinpui/blockmv/internal/state"
	"github.com/sokinpui/blockmv/internal/ui"
	"github.com/sokinpui/blockmv/model"
)

// Relocator moves a target block within a document.
type Relocator interface {
	Relocate(ctx context.Context, doc []byte, target model.Target) (model.Relocation, error)
}

// App orchestrates the entire application logic.
type App struct {
	cfg            *cli.Config
	stateManager   *state.Manager
	pathResolver   *fs.PathResolver
	sourceProvider *source.SourceProvider
	log            *zap.Logger
	target         *model.Target
}

// Plan is a computed relocation that has not touched the disk yet.
type Plan struct {
	Path       string
	Display    string
	Target     model.Target
	Found      bool
	Before     []byte
	Relocation model.Relocation
	Diff       string
}

// DetailedError enhances a standard error with a stack trace.
type DetailedError struct {
	Err   error
	Stack []byte
}

func (e *DetailedError) Error() string {
	return e.Err.Error()
}

func (e *DetailedError) Unwrap() error {
	return e.Err
}

// New creates a new App instance.
func New(cfg *cli.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	pathResolver, err := fs.NewPathResolver(cfg.LookupDirs)
	if err != nil {
		return nil, err
	}

	a := &App{
		cfg:            cfg,
		pathResolver:   pathResolver,
		sourceProvider: source.New(),
		log:            log,
	}

	if cfg.Undo || cfg.Redo || a.recordsHistory() {
		stateManager, err := state.New()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize state manager: %w", err)
		}
		a.stateManager = stateManager
	}
	return a, nil
}

func (a *App) recordsHistory() bool {
	return !a.cfg.NoHistory && !a.cfg.DryRun && !a.cfg.Buffer
}

func (a *App) relocator() Relocator {
	if a.cfg.Engine == cli.EngineTree {
		return jsx.New(a.log)
	}
	return patcher.New(a.cfg.Lenient, a.log)
}

// Target returns the relocation target for this run: the built-in one, or a
// recipe from a file, stdin or the clipboard. An explicit --file wins over the
// recipe's path.
func (a *App) Target() (model.Target, error) {
	var target model.Target
	switch {
	case a.target != nil:
		target = *a.target
	case a.cfg.Recipe == "":
		target = recipe.Default()
	case a.cfg.Recipe == "-":
		content, err := a.sourceProvider.GetContent()
		if err != nil {
			return model.Target{}, err
		}
		if content == "" {
			return model.Target{}, fmt.Errorf("recipe source is empty")
		}
		data := []byte(content)
		if target, err = recipe.Parse(data, recipe.Detect(data)); err != nil {
			return model.Target{}, err
		}
	default:
		t, err := recipe.Load(a.cfg.Recipe)
		if err != nil {
			return model.Target{}, err
		}
		target = t
	}

	if a.cfg.PathSet || target.Path == "" {
		target.Path = a.cfg.File
	}
	return target, nil
}

// Plan reads the document and computes the relocation without writing anything.
// A missing block is not an error: the plan comes back with Found unset.
func (a *App) Plan(ctx context.Context) (*Plan, error) {
	target, err := a.Target()
	if err != nil {
		return nil, err
	}

	path := a.pathResolver.Resolve(target.Path)
	before, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read document: %w", err)
	}
	plan := &Plan{
		Path:    path,
		Display: a.relativize(path),
		Target:  target,
		Before:  before,
	}

	a.log.Debug("planning relocation",
		zap.String("path", path),
		zap.String("engine", a.cfg.Engine),
		zap.Bool("lenient", a.cfg.Lenient),
		zap.String("target", target.Name))

	rel, err := a.relocator().Relocate(ctx, before, target)
	if errors.Is(err, model.ErrPatternNotFound) {
		return plan, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", plan.Display, err)
	}
	plan.Found = true
	plan.Relocation = rel

	if a.cfg.Verify && a.cfg.Engine != cli.EngineTree {
		// Only hold the result to a standard the input already met.
		if jsx.Validate(ctx, before) == nil {
			if err := jsx.Validate(ctx, []byte(rel.Content)); err != nil {
				return nil, fmt.Errorf("%s: %w", plan.Display, err)
			}
		}
	}

	if plan.Diff, err = patcher.UnifiedDiff(plan.Display, string(before), rel.Content); err != nil {
		return nil, fmt.Errorf("failed to build diff: %w", err)
	}
	return plan, nil
}

// Commit carries out a plan according to the output mode.
func (a *App) Commit(plan *Plan) (model.Summary, error) {
	summary := model.Summary{
		Path:     plan.Display,
		Diff:     plan.Diff,
		Removed:  plan.Relocation.Removed,
		Inserted: plan.Relocation.Inserted,
	}
	if !plan.Found {
		summary.Status = model.StatusNotFound
		summary.Message = plan.Target.NotFoundMessage
		return summary, nil
	}
	if plan.Relocation.Inserted == 0 {
		a.log.Warn("anchor not found, block dropped", zap.String("path", plan.Path))
	}

	switch {
	case a.cfg.DryRun:
		summary.Status = model.StatusDryRun
		return summary, nil
	case a.cfg.Buffer:
		return a.applyToBuffer(plan, summary)
	}

	after := []byte(plan.Relocation.Content)
	if err := fs.WriteFileAtomic(plan.Path, after); err != nil {
		return model.Summary{}, err
	}
	summary.Status = model.StatusMoved
	summary.Message = plan.Target.SuccessMessage

	if a.stateManager != nil && a.recordsHistory() {
		op, err := a.stateManager.Record(plan.Path, plan.Before, after)
		if err == nil {
			err = a.stateManager.Write([]state.Operation{op})
		}
		if err != nil {
			return summary, fmt.Errorf("document written but history not recorded: %w", err)
		}
	}
	return summary, nil
}

func (a *App) applyToBuffer(plan *Plan, summary model.Summary) (model.Summary, error) {
	manager, err := nvim.New()
	if err != nil {
		return model.Summary{}, err
	}
	defer manager.Close()

	if manager.Headless() {
		a.log.Warn("no running Neovim found, buffer is discarded on exit")
	}
	if err := manager.UpdateBuffer(plan.Path, plan.Relocation.Content); err != nil {
		return model.Summary{}, err
	}
	summary.Status = model.StatusBuffered
	return summary, nil
}

// Execute executes the main application logic based on parsed flags.
func (a *App) Execute() (summary model.Summary, err error) {
	// Centralized panic recovery.
	defer func() {
		if r := recover(); r != nil {
			err = &DetailedError{
				Err:   fmt.Errorf("internal panic: %v", r),
				Stack: debug.Stack(),
			}
		}
	}()

	switch {
	case a.cfg.Undo:
		return a.undoLastOperation()
	case a.cfg.Redo:
		return a.redoLastOperation()
	}

	plan, err := a.Plan(context.Background())
	if err != nil {
		return model.Summary{}, err
	}
	return a.Commit(plan)
}

// undoLastOperation handles the undo logic.
func (a *App) undoLastOperation() (model.Summary, error) {
	ops := a.stateManager.GetOperationsToUndo()
	if len(ops) == 0 {
		return model.Summary{Message: "No operation to undo."}, nil
	}
	summary, err := a.restore("Undo", ops, a.stateManager.Undo, model.StatusUndone, "Undid last operation.")
	if err != nil {
		return summary, err
	}
	return summary, a.stateManager.CompleteUndo()
}

// redoLastOperation handles the redo logic.
func (a *App) redoLastOperation() (model.Summary, error) {
	ops := a.stateManager.GetOperationsToRedo()
	if len(ops) == 0 {
		return model.Summary{Message: "No operation to redo."}, nil
	}
	summary, err := a.restore("Redo", ops, a.stateManager.Redo, model.StatusRedone, "Redid last undone operation.")
	if err != nil {
		return summary, err
	}
	return summary, a.stateManager.CompleteRedo()
}

// restore applies every operation of a history entry. The entry stays current
// when any file is refused, so the same command can be retried.
func (a *App) restore(title string, ops []state.Operation, apply func(state.Operation) error, status model.Status, message string) (model.Summary, error) {
	var errs error
	var done, failed []string
	for _, op := range ops {
		if err := apply(op); err != nil {
			errs = multierr.Append(errs, err)
			failed = append(failed, a.relativize(op.Path))
			continue
		}
		done = append(done, a.relativize(op.Path))
		a.log.Debug("restored", zap.String("path", op.Path), zap.Stringer("status", status))
	}
	ui.PrintHistorySummary(title, done, failed)
	if errs != nil {
		return model.Summary{}, errs
	}

	summary := model.Summary{Status: status, Message: message}
	if len(ops) == 1 {
		summary.Path = done[0]
	}
	return summary, nil
}

// relativize converts an absolute file path to be relative to the current
// working directory for cleaner display.
func (a *App) relativize(path string) string {
	wd, err := os.Getwd()
	if err != nil {
		return path
	}
	rel, err := filepath.Rel(wd, path)
	if err != nil {
		return path
	}
	return rel
}
