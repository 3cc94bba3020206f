package generate

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"golang.org/x/sys/unix"

	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/core"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/filesystem"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/spec"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/txn"
)

// Preflight checks a generation run before any transaction opens. Failures
// here are the cheap path of the all-or-nothing contract: nothing was
// mutated, so nothing needs rolling back.
type Preflight struct {
	fsys filesystem.FullFileSystem
	txm  *txn.Manager
}

// NewPreflight creates a validator bound to the same filesystem and
// transaction manager the generator will use.
func NewPreflight(fsys filesystem.FullFileSystem, txm *txn.Manager) *Preflight {
	return &Preflight{fsys: fsys, txm: txm}
}

// Validate checks that the transaction manager is idle and that no intended
// path currently exists with a conflicting type: a file where a directory is
// required, or a directory where the metadata file goes.
func (p *Preflight) Validate(root *spec.DirectoryNode) error {
	if p.txm.Active() {
		return &core.PreflightError{
			Path:   root.Name,
			Reason: "transaction manager is busy",
			Err:    core.ErrAlreadyActive,
		}
	}

	return root.Walk(func(rel string, node *spec.DirectoryNode) error {
		if err := p.requireDirOrAbsent(rel); err != nil {
			return err
		}
		if !node.RequiresIntegrityDir {
			return nil
		}
		metaPath := path.Join(rel, core.MetaDirName)
		if err := p.requireDirOrAbsent(metaPath); err != nil {
			return err
		}
		if node.MetadataLevel == core.LevelNone {
			return nil
		}
		filePath := path.Join(metaPath, node.Name+".meta")
		info, err := p.fsys.Lstat(filePath)
		if err == nil && info.IsDir() {
			return &core.PreflightError{
				Path:   filePath,
				Reason: "a directory occupies the metadata file path",
			}
		}
		return nil
	})
}

func (p *Preflight) requireDirOrAbsent(rel string) error {
	info, err := p.fsys.Lstat(rel)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return &core.PreflightError{Path: rel, Reason: "cannot stat path", Err: err}
	}
	if !info.IsDir() {
		return &core.PreflightError{
			Path:   rel,
			Reason: "path exists but is not a directory",
		}
	}
	return nil
}

// ValidateBase checks the OS-level target before a rooted filesystem is
// constructed over it: the base's parent must exist, and whichever of the
// base or its parent will receive the first mkdir must be a writable,
// traversable directory. Writability is probed with access(2) rather than
// inferred from stat bits, which would be wrong under ACLs.
func ValidateBase(basePath string) error {
	parent := filepath.Dir(basePath)
	if info, err := os.Stat(parent); err != nil {
		return &core.PreflightError{Path: parent, Reason: "base parent does not exist", Err: err}
	} else if !info.IsDir() {
		return &core.PreflightError{Path: parent, Reason: "base parent is not a directory"}
	}

	probe := basePath
	info, err := os.Stat(basePath)
	switch {
	case err == nil:
		if !info.IsDir() {
			return &core.PreflightError{Path: basePath, Reason: "base path exists but is not a directory"}
		}
	case errors.Is(err, fs.ErrNotExist):
		probe = parent
	default:
		return &core.PreflightError{Path: basePath, Reason: "cannot stat base path", Err: err}
	}

	if err := unix.Access(probe, unix.W_OK|unix.X_OK); err != nil {
		return &core.PreflightError{Path: probe, Reason: "target is not writable", Err: err}
	}
	return nil
}
