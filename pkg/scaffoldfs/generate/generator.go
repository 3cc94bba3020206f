// Package generate materializes a validated scaffold specification on a
// filesystem under transactional protection: every mutation is logged and
// paired with an undo action, and any failure rolls the whole run back.
package generate

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/core"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/filesystem"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/spec"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/txn"
)

// Options carries the caller-expanded values a generation run writes
// verbatim into metadata files.
type Options struct {
	Actor     string
	Timestamp string
}

// Result reports what a generation run created. Paths are relative to the
// generation base and listed in creation order. On failure, Rollback carries
// the outcome of the rollback sweep that already ran.
type Result struct {
	CreatedDirs  []string
	CreatedFiles []string
	Success      bool
	Rollback     *txn.RollbackReport
}

// Generator walks a specification tree and materializes it through the
// transaction manager. It holds the manager only while a run is active and
// is the sole component touching the filesystem during one.
type Generator struct {
	fsys   filesystem.FullFileSystem
	txm    *txn.Manager
	logger zerolog.Logger
}

// NewGenerator creates a scaffold generator over the given filesystem and
// transaction manager.
func NewGenerator(fsys filesystem.FullFileSystem, txm *txn.Manager, logger zerolog.Logger) *Generator {
	return &Generator{
		fsys:   fsys,
		txm:    txm,
		logger: logger.With().Str("component", "generator").Logger(),
	}
}

// Generate materializes the tree rooted at root. The run either commits
// fully or is rolled back before returning: a non-nil error means the
// filesystem was restored to its prior state, except for any paths named in
// the result's rollback warnings.
//
// Re-running over an existing compatible tree is a no-op per node: existing
// directories are accepted as already satisfied, and a node whose integrity
// directory went missing gets it recreated.
func (g *Generator) Generate(root *spec.DirectoryNode, opts Options) (result *Result, err error) {
	result = &Result{}

	pre := NewPreflight(g.fsys, g.txm)
	if err := pre.Validate(root); err != nil {
		return result, err
	}

	if _, err := g.txm.Begin("scaffold " + root.Name); err != nil {
		return result, err
	}

	// Safety net: any exit that leaves the transaction open (including a
	// panic below) triggers a best-effort rollback. Advisory only; the
	// explicit failure paths roll back themselves.
	defer func() {
		if g.txm.Active() {
			report, rbErr := g.txm.Rollback()
			if rbErr == nil {
				result.Rollback = &report
			}
		}
	}()

	plan, err := BuildPlan(root, opts)
	if err != nil {
		_ = g.txm.Abort()
		return result, fmt.Errorf("plan scaffold %s: %w", root.Name, err)
	}

	g.logger.Info().
		Str("root", root.Name).
		Int("nodes", root.CountNodes()).
		Int("steps", len(plan.Steps)).
		Msg("starting scaffold generation")

	for _, step := range plan.Steps {
		if err := g.applyStep(step, result); err != nil {
			return g.fail(result, err)
		}
	}

	enforcer := NewEnforcer(g.fsys, g.txm, g.logger)
	if err := enforcer.Apply(root.Name); err != nil {
		return g.fail(result, err)
	}

	if err := g.txm.Commit(); err != nil {
		return g.fail(result, err)
	}

	result.Success = true
	g.logger.Info().
		Str("root", root.Name).
		Int("dirs_created", len(result.CreatedDirs)).
		Int("files_created", len(result.CreatedFiles)).
		Msg("scaffold generation committed")
	return result, nil
}

func (g *Generator) applyStep(step *Step, result *Result) error {
	info, statErr := g.fsys.Lstat(step.Path)
	exists := statErr == nil
	if statErr != nil && !errors.Is(statErr, fs.ErrNotExist) {
		return &core.CreationError{Op: step.Kind, Path: step.Path, Err: statErr}
	}

	switch step.Kind {
	case core.OpMakeDir:
		if exists {
			if info.IsDir() {
				// Already satisfied; idempotent re-runs land here.
				g.logger.Debug().Str("path", step.Path).Msg("directory already exists, skipping")
				return nil
			}
			return &core.CreationError{
				Op:   step.Kind,
				Path: step.Path,
				Err:  fmt.Errorf("a non-directory occupies the path"),
			}
		}
		if err := g.fsys.Mkdir(step.Path, step.Mode); err != nil {
			return &core.CreationError{Op: step.Kind, Path: step.Path, Err: err}
		}
		if err := g.logApplied(step, core.UndoRemoveTree); err != nil {
			return err
		}
		result.CreatedDirs = append(result.CreatedDirs, step.Path)
		return nil

	case core.OpCreateFile:
		if exists {
			if info.IsDir() {
				return &core.CreationError{
					Op:   step.Kind,
					Path: step.Path,
					Err:  fmt.Errorf("a directory occupies the path"),
				}
			}
			g.logger.Debug().Str("path", step.Path).Msg("metadata file already exists, skipping")
			return nil
		}
		if err := g.fsys.WriteFile(step.Path, step.Content, step.Mode); err != nil {
			return &core.CreationError{Op: step.Kind, Path: step.Path, Err: err}
		}
		if err := g.logApplied(step, core.UndoRemoveFile); err != nil {
			return err
		}
		result.CreatedFiles = append(result.CreatedFiles, step.Path)
		return nil

	default:
		return &core.CreationError{
			Op:   step.Kind,
			Path: step.Path,
			Err:  fmt.Errorf("unsupported plan step kind"),
		}
	}
}

// logApplied records the operation and its undo. The undo entry goes in
// only after the mutation succeeded, so the rollback log never names a
// change that did not happen.
func (g *Generator) logApplied(step *Step, undo core.UndoKind) error {
	if err := g.txm.LogOperation(txn.Operation{
		Kind: step.Kind,
		Path: step.Path,
		Mode: step.Mode,
	}); err != nil {
		return err
	}
	return g.txm.RecordUndo(txn.UndoAction{
		Kind: undo,
		Path: step.Path,
	})
}

func (g *Generator) fail(result *Result, cause error) (*Result, error) {
	g.logger.Error().Err(cause).Msg("scaffold generation failed, rolling back")

	if g.txm.Active() {
		report, rbErr := g.txm.Rollback()
		if rbErr != nil {
			return result, fmt.Errorf("%w (additionally, rollback could not run: %v)", cause, rbErr)
		}
		result.Rollback = &report
		if !report.Complete() {
			g.logger.Warn().
				Int("failed_undo_steps", report.Failed).
				Msg("rollback incomplete, inspect target for leftover paths")
		}
	}
	return result, cause
}
