package filesystem

import (
	"errors"
	"io/fs"
	"testing"
)

func TestTestFileSystemMkdir(t *testing.T) {
	t.Run("creates directory under existing parent", func(t *testing.T) {
		tfs := NewTestFileSystem()
		if err := tfs.Mkdir("a", 0o755); err != nil {
			t.Fatalf("Mkdir(a) failed: %v", err)
		}
		if err := tfs.Mkdir("a/b", 0o700); err != nil {
			t.Fatalf("Mkdir(a/b) failed: %v", err)
		}
		info, err := tfs.Stat("a/b")
		if err != nil {
			t.Fatalf("Stat failed: %v", err)
		}
		if !info.IsDir() || info.Mode().Perm() != 0o700 {
			t.Errorf("a/b info = %v", info.Mode())
		}
	})

	t.Run("fails without parent", func(t *testing.T) {
		tfs := NewTestFileSystem()
		if err := tfs.Mkdir("a/b", 0o755); !errors.Is(err, fs.ErrNotExist) {
			t.Errorf("Mkdir without parent returned %v, want ErrNotExist", err)
		}
	})

	t.Run("fails on existing path", func(t *testing.T) {
		tfs := NewTestFileSystem()
		if err := tfs.Mkdir("a", 0o755); err != nil {
			t.Fatalf("Mkdir failed: %v", err)
		}
		if err := tfs.Mkdir("a", 0o755); !errors.Is(err, fs.ErrExist) {
			t.Errorf("second Mkdir returned %v, want ErrExist", err)
		}
	})
}

func TestTestFileSystemRemove(t *testing.T) {
	t.Run("refuses non-empty directory", func(t *testing.T) {
		tfs := NewTestFileSystem()
		if err := tfs.Mkdir("a", 0o755); err != nil {
			t.Fatalf("Mkdir failed: %v", err)
		}
		if err := tfs.WriteFile("a/f", []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if err := tfs.Remove("a"); err == nil {
			t.Error("Remove of non-empty directory should fail")
		}
	})

	t.Run("removeall clears the subtree", func(t *testing.T) {
		tfs := NewTestFileSystem()
		if err := tfs.Mkdir("a", 0o755); err != nil {
			t.Fatalf("Mkdir failed: %v", err)
		}
		if err := tfs.WriteFile("a/f", []byte("x"), 0o644); err != nil {
			t.Fatalf("WriteFile failed: %v", err)
		}
		if err := tfs.RemoveAll("a"); err != nil {
			t.Fatalf("RemoveAll failed: %v", err)
		}
		if len(tfs.MapFS) != 0 {
			t.Errorf("entries left: %v", tfs.MapFS)
		}
	})
}

func TestTestFileSystemChmodChown(t *testing.T) {
	tfs := NewTestFileSystem()
	if err := tfs.Mkdir("a", 0o755); err != nil {
		t.Fatalf("Mkdir failed: %v", err)
	}

	if err := tfs.Chmod("a", 0o700); err != nil {
		t.Fatalf("Chmod failed: %v", err)
	}
	info, err := tfs.Stat("a")
	if err != nil {
		t.Fatalf("Stat failed: %v", err)
	}
	if info.Mode().Perm() != 0o700 {
		t.Errorf("mode = %o, want 700", info.Mode().Perm())
	}
	if !info.IsDir() {
		t.Error("chmod must not drop the directory bit")
	}

	if err := tfs.Chown("a", 10, 20); err != nil {
		t.Fatalf("Chown failed: %v", err)
	}
	info, _ = tfs.Stat("a")
	owner, ok := info.Sys().(*OwnerInfo)
	if !ok || owner.UID != 10 || owner.GID != 20 {
		t.Errorf("owner = %+v", info.Sys())
	}

	if err := tfs.Chmod("missing", 0o700); !errors.Is(err, fs.ErrNotExist) {
		t.Errorf("Chmod on missing path returned %v, want ErrNotExist", err)
	}
}

func TestTestFileSystemFailureInjection(t *testing.T) {
	tfs := NewTestFileSystem()
	boom := errors.New("boom")
	tfs.FailOn = func(op, name string) error {
		if op == "mkdir" && name == "blocked" {
			return boom
		}
		return nil
	}

	if err := tfs.Mkdir("ok", 0o755); err != nil {
		t.Fatalf("Mkdir(ok) failed: %v", err)
	}
	if err := tfs.Mkdir("blocked", 0o755); !errors.Is(err, boom) {
		t.Errorf("Mkdir(blocked) returned %v, want injected error", err)
	}
	if _, err := tfs.Stat("blocked"); err == nil {
		t.Error("failed Mkdir must not create the entry")
	}
}
