// Package scaffoldfs materializes declared directory trees on disk with
// all-or-nothing semantics: a scaffold run either fully succeeds or leaves
// the filesystem exactly as it was, modulo explicitly reported rollback
// warnings. The heavy lifting lives in the subpackages (spec, txn,
// generate); this package wires them together behind a small API.
package scaffoldfs

import (
	"errors"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/core"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/filesystem"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/generate"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/spec"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/txn"
)

// Engine ties one filesystem, one transaction manager and one generator
// together. Engines are independent; tests can run several side by side.
type Engine struct {
	fsys filesystem.FullFileSystem
	txm  *txn.Manager
	gen  *generate.Generator
}

// New creates an engine over the given filesystem.
func New(fsys filesystem.FullFileSystem, logger zerolog.Logger) *Engine {
	txm := txn.NewManager(fsys, logger)
	return &Engine{
		fsys: fsys,
		txm:  txm,
		gen:  generate.NewGenerator(fsys, txm, logger),
	}
}

// Generate materializes the specification tree under the engine's
// filesystem root.
func (e *Engine) Generate(root *spec.DirectoryNode, opts generate.Options) (*generate.Result, error) {
	return e.gen.Generate(root, opts)
}

// Txn exposes the engine's transaction manager, mainly for callers that
// want to inspect lifecycle state.
func (e *Engine) Txn() *txn.Manager {
	return e.txm
}

// GenerateAt is the convenience entry point for OS paths: it validates the
// base target, roots a filesystem at it and runs one generation. An absent
// base directory is created first; it sits outside the transaction, so a
// failed run removes it again only when it is left empty.
func GenerateAt(basePath string, root *spec.DirectoryNode, opts generate.Options, logger zerolog.Logger) (*generate.Result, error) {
	if err := generate.ValidateBase(basePath); err != nil {
		return &generate.Result{}, err
	}

	createdBase := false
	if _, err := os.Stat(basePath); errors.Is(err, fs.ErrNotExist) {
		if err := os.Mkdir(basePath, core.DefaultDirMode); err != nil {
			return &generate.Result{}, &core.PreflightError{Path: basePath, Reason: "cannot create base directory", Err: err}
		}
		createdBase = true
	}

	result, err := New(filesystem.NewOSFileSystem(basePath), logger).Generate(root, opts)
	if err != nil && createdBase {
		_ = os.Remove(basePath)
	}
	return result, err
}
