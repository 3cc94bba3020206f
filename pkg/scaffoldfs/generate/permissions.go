package generate

import (
	"io/fs"
	"strings"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/core"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/filesystem"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/txn"
)

// Enforcer applies permission classes across a materialized subtree in a
// single pass: the default class everywhere first, then the restricted class
// on integrity directories and their contents. Applying restricted paths
// last means a default pass can never widen deliberately narrowed bits.
type Enforcer struct {
	fsys   filesystem.FullFileSystem
	txm    *txn.Manager
	logger zerolog.Logger
}

// NewEnforcer creates a permission enforcer that logs its chmods through
// the given transaction manager.
func NewEnforcer(fsys filesystem.FullFileSystem, txm *txn.Manager, logger zerolog.Logger) *Enforcer {
	return &Enforcer{
		fsys:   fsys,
		txm:    txm,
		logger: logger.With().Str("component", "enforcer").Logger(),
	}
}

type permTarget struct {
	path string
	mode fs.FileMode
}

// Apply walks the subtree rooted at the given path and assigns each entry
// its permission class. Every chmod that changes bits is logged with the
// prior mode recorded, so rollback restores exact original permissions even
// over pre-existing paths.
func (e *Enforcer) Apply(root string) error {
	var defaults, restricted []permTarget

	err := fs.WalkDir(e.fsys, root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		target := permTarget{path: p, mode: classMode(p, d.IsDir())}
		if IsRestrictedPath(p) {
			restricted = append(restricted, target)
		} else {
			defaults = append(defaults, target)
		}
		return nil
	})
	if err != nil {
		return &core.CreationError{Op: core.OpChmod, Path: root, Err: err}
	}

	e.logger.Debug().
		Str("root", root).
		Int("default_paths", len(defaults)).
		Int("restricted_paths", len(restricted)).
		Msg("applying permission classes")

	// Restricted paths go last so nothing widens them afterwards.
	for _, target := range append(defaults, restricted...) {
		if err := e.chmod(target); err != nil {
			return err
		}
	}
	return nil
}

func (e *Enforcer) chmod(target permTarget) error {
	info, err := e.fsys.Stat(target.path)
	if err != nil {
		return &core.CreationError{Op: core.OpChmod, Path: target.path, Err: err}
	}
	prior := info.Mode().Perm()
	if prior == target.mode {
		return nil
	}

	if err := e.fsys.Chmod(target.path, target.mode); err != nil {
		return &core.CreationError{Op: core.OpChmod, Path: target.path, Err: err}
	}
	if err := e.txm.LogOperation(txn.Operation{
		Kind: core.OpChmod,
		Path: target.path,
		Mode: target.mode,
	}); err != nil {
		return err
	}
	if err := e.txm.RecordUndo(txn.UndoAction{
		Kind:      core.UndoRestoreMode,
		Path:      target.path,
		PriorMode: prior,
	}); err != nil {
		return err
	}

	e.logger.Debug().
		Str("path", target.path).
		Str("prior", prior.String()).
		Str("mode", target.mode.String()).
		Msg("permissions adjusted")
	return nil
}

// IsRestrictedPath reports whether a slash-separated path belongs to the
// restricted permission class: an integrity directory or anything beneath
// one.
func IsRestrictedPath(p string) bool {
	for _, elem := range strings.Split(p, "/") {
		if elem == core.MetaDirName {
			return true
		}
	}
	return false
}

func classMode(p string, isDir bool) fs.FileMode {
	restricted := IsRestrictedPath(p)
	switch {
	case isDir && restricted:
		return core.RestrictedDirMode
	case isDir:
		return core.DefaultDirMode
	case restricted:
		return core.RestrictedFileMode
	default:
		return core.DefaultFileMode
	}
}
