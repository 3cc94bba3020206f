package filesystem

import (
	"io/fs"
	"path"
	"strings"
	"testing/fstest"
)

// OwnerInfo records the uid/gid assigned to a test filesystem entry via
// Chown. It is exposed through fs.FileInfo.Sys().
type OwnerInfo struct {
	UID int
	GID int
}

// TestFileSystem extends fstest.MapFS to implement FullFileSystem, so
// scaffold runs can be exercised without touching the real disk.
//
// FailOn, when set, is consulted before every write operation; returning a
// non-nil error makes that operation fail without mutating anything. Tests
// use it to simulate permission denials at precise points.
type TestFileSystem struct {
	fstest.MapFS
	FailOn func(op, name string) error
}

// NewTestFileSystem creates a new test filesystem based on fstest.MapFS.
func NewTestFileSystem() *TestFileSystem {
	return &TestFileSystem{
		MapFS: make(fstest.MapFS),
	}
}

func (tfs *TestFileSystem) fail(op, name string) error {
	if tfs.FailOn == nil {
		return nil
	}
	return tfs.FailOn(op, name)
}

// WriteFile implements WriteFS.
func (tfs *TestFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "writefile", Path: name, Err: fs.ErrInvalid}
	}
	if err := tfs.fail("writefile", name); err != nil {
		return &fs.PathError{Op: "writefile", Path: name, Err: err}
	}
	if existing, ok := tfs.MapFS[name]; ok && existing.Mode.IsDir() {
		return &fs.PathError{Op: "writefile", Path: name, Err: fs.ErrExist}
	}
	tfs.MapFS[name] = &fstest.MapFile{
		Data: data,
		Mode: perm,
	}
	return nil
}

// Mkdir implements WriteFS. The parent must already exist and the path must
// not, matching os.Mkdir.
func (tfs *TestFileSystem) Mkdir(name string, perm fs.FileMode) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "mkdir", Path: name, Err: fs.ErrInvalid}
	}
	if err := tfs.fail("mkdir", name); err != nil {
		return &fs.PathError{Op: "mkdir", Path: name, Err: err}
	}
	if _, ok := tfs.MapFS[name]; ok {
		return &fs.PathError{Op: "mkdir", Path: name, Err: fs.ErrExist}
	}
	if parent := path.Dir(name); parent != "." {
		info, ok := tfs.MapFS[parent]
		if !ok {
			return &fs.PathError{Op: "mkdir", Path: name, Err: fs.ErrNotExist}
		}
		if !info.Mode.IsDir() {
			return &fs.PathError{Op: "mkdir", Path: name, Err: fs.ErrInvalid}
		}
	}
	tfs.MapFS[name] = &fstest.MapFile{
		Mode: perm | fs.ModeDir,
	}
	return nil
}

// MkdirAll implements WriteFS.
func (tfs *TestFileSystem) MkdirAll(name string, perm fs.FileMode) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "mkdirall", Path: name, Err: fs.ErrInvalid}
	}
	if err := tfs.fail("mkdirall", name); err != nil {
		return &fs.PathError{Op: "mkdirall", Path: name, Err: err}
	}
	elems := strings.Split(name, "/")
	for i := range elems {
		p := strings.Join(elems[:i+1], "/")
		if existing, ok := tfs.MapFS[p]; ok {
			if !existing.Mode.IsDir() {
				return &fs.PathError{Op: "mkdirall", Path: p, Err: fs.ErrExist}
			}
			continue
		}
		tfs.MapFS[p] = &fstest.MapFile{
			Mode: perm | fs.ModeDir,
		}
	}
	return nil
}

// Remove implements WriteFS. Directories must be empty, matching os.Remove.
func (tfs *TestFileSystem) Remove(name string) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrInvalid}
	}
	if err := tfs.fail("remove", name); err != nil {
		return &fs.PathError{Op: "remove", Path: name, Err: err}
	}
	entry, ok := tfs.MapFS[name]
	if !ok {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrNotExist}
	}
	if entry.Mode.IsDir() {
		prefix := name + "/"
		for p := range tfs.MapFS {
			if strings.HasPrefix(p, prefix) {
				return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrInvalid}
			}
		}
	}
	delete(tfs.MapFS, name)
	return nil
}

// RemoveAll implements WriteFS.
func (tfs *TestFileSystem) RemoveAll(name string) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "removeall", Path: name, Err: fs.ErrInvalid}
	}
	if err := tfs.fail("removeall", name); err != nil {
		return &fs.PathError{Op: "removeall", Path: name, Err: err}
	}
	delete(tfs.MapFS, name)
	prefix := name + "/"
	for p := range tfs.MapFS {
		if strings.HasPrefix(p, prefix) {
			delete(tfs.MapFS, p)
		}
	}
	return nil
}

// Chmod implements WriteFS, preserving non-permission mode bits.
func (tfs *TestFileSystem) Chmod(name string, mode fs.FileMode) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "chmod", Path: name, Err: fs.ErrInvalid}
	}
	if err := tfs.fail("chmod", name); err != nil {
		return &fs.PathError{Op: "chmod", Path: name, Err: err}
	}
	entry, ok := tfs.MapFS[name]
	if !ok {
		return &fs.PathError{Op: "chmod", Path: name, Err: fs.ErrNotExist}
	}
	entry.Mode = entry.Mode&^fs.ModePerm | mode.Perm()
	return nil
}

// Chown implements WriteFS, recording ownership in the entry's Sys value.
func (tfs *TestFileSystem) Chown(name string, uid, gid int) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "chown", Path: name, Err: fs.ErrInvalid}
	}
	if err := tfs.fail("chown", name); err != nil {
		return &fs.PathError{Op: "chown", Path: name, Err: err}
	}
	entry, ok := tfs.MapFS[name]
	if !ok {
		return &fs.PathError{Op: "chown", Path: name, Err: fs.ErrNotExist}
	}
	entry.Sys = &OwnerInfo{UID: uid, GID: gid}
	return nil
}

// Lstat implements FullFileSystem. The test filesystem holds no symlinks,
// so Lstat and Stat agree.
func (tfs *TestFileSystem) Lstat(name string) (fs.FileInfo, error) {
	return tfs.Stat(name)
}
