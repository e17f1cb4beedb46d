package blockmv

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/sokinpui/blockmv/cli"
	"github.com/sokinpui/blockmv/internal/recipe"
	"github.com/sokinpui/blockmv/model"
)

// Options for using blockmv as a library.
type Options struct {
	// Engine is cli.EnginePattern (default) or cli.EngineTree.
	Engine string
	// Lenient removes every copy of the block and drops it when the anchor is missing.
	Lenient bool
	// Verify refuses results that no longer parse as JSX.
	Verify bool
	// DryRun computes the diff without writing the file.
	DryRun bool
	// Target overrides the built-in target in MoveFile.
	Target *model.Target
	Log    *zap.Logger
}

func (o Options) config() *cli.Config {
	engine := o.Engine
	if engine == "" {
		engine = cli.EnginePattern
	}
	return &cli.Config{
		Engine:    engine,
		Lenient:   o.Lenient,
		Verify:    o.Verify,
		DryRun:    o.DryRun,
		NoHistory: true,
	}
}

// Move relocates the target block in content and returns the new document.
// Nothing is read from or written to disk.
func Move(content string, target model.Target, opts Options) (model.Relocation, error) {
	if err := recipe.Validate(target); err != nil {
		return model.Relocation{}, err
	}
	app := &App{cfg: opts.config(), log: opts.Log}
	if app.log == nil {
		app.log = zap.NewNop()
	}
	return app.relocator().Relocate(context.Background(), []byte(content), target)
}

// MoveFile relocates the block in the file at path and writes the result.
// No undo history is recorded.
func MoveFile(path string, opts Options) (model.Summary, error) {
	cfg := opts.config()
	cfg.File = path
	cfg.PathSet = true

	app, err := New(cfg, opts.Log)
	if err != nil {
		return model.Summary{}, fmt.Errorf("failed to initialize blockmv app: %w", err)
	}
	app.target = opts.Target
	return app.Execute()
}
