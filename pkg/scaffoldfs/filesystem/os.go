package filesystem

import (
	"io/fs"
	"os"
	"path/filepath"
)

// OSFileSystem implements FullFileSystem against the OS filesystem, rooted
// at a directory. All paths are slash-separated and relative to the root,
// which keeps the scaffold engine oblivious to where on disk it operates.
type OSFileSystem struct {
	root string
}

// NewOSFileSystem creates a new OS-based filesystem rooted at the given path.
func NewOSFileSystem(root string) *OSFileSystem {
	return &OSFileSystem{root: root}
}

// Root returns the OS path this filesystem is rooted at.
func (osfs *OSFileSystem) Root() string {
	return osfs.root
}

// Open implements fs.FS.
func (osfs *OSFileSystem) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	return os.Open(filepath.Join(osfs.root, name))
}

// Stat implements StatFS.
func (osfs *OSFileSystem) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	return os.Stat(filepath.Join(osfs.root, name))
}

// Lstat implements FullFileSystem.
func (osfs *OSFileSystem) Lstat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "lstat", Path: name, Err: fs.ErrInvalid}
	}
	return os.Lstat(filepath.Join(osfs.root, name))
}

// WriteFile implements WriteFS.
func (osfs *OSFileSystem) WriteFile(name string, data []byte, perm fs.FileMode) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "writefile", Path: name, Err: fs.ErrInvalid}
	}
	return os.WriteFile(filepath.Join(osfs.root, name), data, perm)
}

// Mkdir implements WriteFS.
func (osfs *OSFileSystem) Mkdir(name string, perm fs.FileMode) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "mkdir", Path: name, Err: fs.ErrInvalid}
	}
	return os.Mkdir(filepath.Join(osfs.root, name), perm)
}

// MkdirAll implements WriteFS.
func (osfs *OSFileSystem) MkdirAll(path string, perm fs.FileMode) error {
	if !fs.ValidPath(path) {
		return &fs.PathError{Op: "mkdirall", Path: path, Err: fs.ErrInvalid}
	}
	return os.MkdirAll(filepath.Join(osfs.root, path), perm)
}

// Remove implements WriteFS.
func (osfs *OSFileSystem) Remove(name string) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "remove", Path: name, Err: fs.ErrInvalid}
	}
	return os.Remove(filepath.Join(osfs.root, name))
}

// RemoveAll implements WriteFS.
func (osfs *OSFileSystem) RemoveAll(name string) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "removeall", Path: name, Err: fs.ErrInvalid}
	}
	return os.RemoveAll(filepath.Join(osfs.root, name))
}

// Chmod implements WriteFS.
func (osfs *OSFileSystem) Chmod(name string, mode fs.FileMode) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "chmod", Path: name, Err: fs.ErrInvalid}
	}
	return os.Chmod(filepath.Join(osfs.root, name), mode)
}

// Chown implements WriteFS.
func (osfs *OSFileSystem) Chown(name string, uid, gid int) error {
	if !fs.ValidPath(name) {
		return &fs.PathError{Op: "chown", Path: name, Err: fs.ErrInvalid}
	}
	return os.Chown(filepath.Join(osfs.root, name), uid, gid)
}
