package generate_test

import (
	"errors"
	"io"
	"io/fs"
	"strings"
	"testing"

	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/core"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/filesystem"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/generate"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/spec"
	"github.com/arthur-debert/scaffoldfs/pkg/scaffoldfs/txn"
)

var testOpts = generate.Options{Actor: "tester", Timestamp: "2026-08-31T00:00:00Z"}

func newEngine(t *testing.T) (*generate.Generator, *txn.Manager, *filesystem.TestFileSystem) {
	t.Helper()
	tfs := filesystem.NewTestFileSystem()
	logger := scaffoldfs.NewTestLogger(io.Discard, 0)
	txm := txn.NewManager(tfs, logger)
	return generate.NewGenerator(tfs, txm, logger), txm, tfs
}

func projectTree() *spec.DirectoryNode {
	return &spec.DirectoryNode{
		Name:                 "proj",
		RequiresIntegrityDir: true,
		MetadataLevel:        core.LevelProject,
		Children: []*spec.DirectoryNode{
			{Name: "data"},
		},
	}
}

func TestGenerateProjectScenario(t *testing.T) {
	gen, txm, tfs := newEngine(t)

	result, err := gen.Generate(projectTree(), testOpts)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !result.Success {
		t.Fatal("result should report success")
	}

	for _, dir := range []string{"proj", "proj/.meta", "proj/data"} {
		info, err := tfs.Stat(dir)
		if err != nil {
			t.Fatalf("%s missing: %v", dir, err)
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}

	// Integrity directory is owner-only; regular directories are world-readable.
	if info, _ := tfs.Stat("proj/.meta"); info.Mode().Perm() != core.RestrictedDirMode {
		t.Errorf("proj/.meta mode = %o, want %o", info.Mode().Perm(), core.RestrictedDirMode)
	}
	if info, _ := tfs.Stat("proj/data"); info.Mode().Perm() != core.DefaultDirMode {
		t.Errorf("proj/data mode = %o, want %o", info.Mode().Perm(), core.DefaultDirMode)
	}

	content, err := fs.ReadFile(tfs, "proj/.meta/proj.meta")
	if err != nil {
		t.Fatalf("metadata file missing: %v", err)
	}
	for _, want := range []string{"name = proj", "level = project", "created_by = tester", "created_at = 2026-08-31T00:00:00Z"} {
		if !strings.Contains(string(content), want) {
			t.Errorf("metadata missing %q, got:\n%s", want, content)
		}
	}
	if info, _ := tfs.Stat("proj/.meta/proj.meta"); info.Mode().Perm() != core.RestrictedFileMode {
		t.Errorf("metadata file mode = %o, want %o", info.Mode().Perm(), core.RestrictedFileMode)
	}

	wantDirs := []string{"proj", "proj/.meta", "proj/data"}
	if len(result.CreatedDirs) != len(wantDirs) {
		t.Fatalf("created dirs = %v, want %v", result.CreatedDirs, wantDirs)
	}
	for i, dir := range wantDirs {
		if result.CreatedDirs[i] != dir {
			t.Errorf("created dir %d = %s, want %s", i, result.CreatedDirs[i], dir)
		}
	}
	if len(result.CreatedFiles) != 1 || result.CreatedFiles[0] != "proj/.meta/proj.meta" {
		t.Errorf("created files = %v", result.CreatedFiles)
	}

	if txm.Active() {
		t.Error("transaction should be finalized after a successful run")
	}
}

func TestGenerateIsIdempotent(t *testing.T) {
	gen, _, tfs := newEngine(t)

	if _, err := gen.Generate(projectTree(), testOpts); err != nil {
		t.Fatalf("first Generate failed: %v", err)
	}
	before := len(tfs.MapFS)

	result, err := gen.Generate(projectTree(), testOpts)
	if err != nil {
		t.Fatalf("second Generate failed: %v", err)
	}
	if !result.Success {
		t.Fatal("re-run should succeed as a no-op")
	}
	if len(result.CreatedDirs) != 0 || len(result.CreatedFiles) != 0 {
		t.Errorf("re-run created paths: dirs=%v files=%v", result.CreatedDirs, result.CreatedFiles)
	}
	if len(tfs.MapFS) != before {
		t.Errorf("re-run changed entry count from %d to %d", before, len(tfs.MapFS))
	}
}

func TestGenerateRepairsMissingIntegrityDir(t *testing.T) {
	gen, _, tfs := newEngine(t)

	if _, err := gen.Generate(projectTree(), testOpts); err != nil {
		t.Fatalf("first Generate failed: %v", err)
	}

	// Simulate an integrity directory lost between runs. The parent still
	// exists, so the re-run must recreate only the missing piece.
	if err := tfs.RemoveAll("proj/.meta"); err != nil {
		t.Fatalf("RemoveAll failed: %v", err)
	}

	result, err := gen.Generate(projectTree(), testOpts)
	if err != nil {
		t.Fatalf("repair Generate failed: %v", err)
	}
	if len(result.CreatedDirs) != 1 || result.CreatedDirs[0] != "proj/.meta" {
		t.Errorf("created dirs = %v, want just proj/.meta", result.CreatedDirs)
	}
	if len(result.CreatedFiles) != 1 || result.CreatedFiles[0] != "proj/.meta/proj.meta" {
		t.Errorf("created files = %v, want just the metadata file", result.CreatedFiles)
	}
	if info, err := tfs.Stat("proj/.meta"); err != nil || info.Mode().Perm() != core.RestrictedDirMode {
		t.Errorf("recreated integrity dir wrong: info=%v err=%v", info, err)
	}
}

func TestGenerateRollsBackOnFailure(t *testing.T) {
	gen, txm, tfs := newEngine(t)

	denied := errors.New("permission denied")
	tfs.FailOn = func(op, name string) error {
		if op == "mkdir" && name == "proj/data" {
			return denied
		}
		return nil
	}

	result, err := gen.Generate(projectTree(), testOpts)
	if err == nil {
		t.Fatal("Generate should fail")
	}

	var creationErr *core.CreationError
	if !errors.As(err, &creationErr) {
		t.Fatalf("error = %v, want CreationError", err)
	}
	if creationErr.Path != "proj/data" || creationErr.Op != core.OpMakeDir {
		t.Errorf("creation error = %+v", creationErr)
	}
	if !errors.Is(err, denied) {
		t.Errorf("cause not preserved: %v", err)
	}

	// Atomicity: nothing the run created may survive.
	if len(tfs.MapFS) != 0 {
		t.Errorf("paths left behind after rollback: %v", tfs.MapFS)
	}
	if result.Rollback == nil || !result.Rollback.Complete() {
		t.Errorf("rollback report = %+v, want complete", result.Rollback)
	}
	if txm.Active() {
		t.Error("transaction should be finalized after rollback")
	}
}

func TestGenerateSurfacesRollbackWarnings(t *testing.T) {
	gen, txm, tfs := newEngine(t)

	tfs.FailOn = func(op, name string) error {
		switch {
		case op == "mkdir" && name == "proj/data":
			return errors.New("disk full")
		case op == "removeall" && name == "proj":
			// The first undo target refuses to go away.
			return errors.New("permission denied")
		}
		return nil
	}

	result, err := gen.Generate(projectTree(), testOpts)
	if err == nil {
		t.Fatal("Generate should fail")
	}
	if result.Rollback == nil {
		t.Fatal("failure must carry a rollback report")
	}
	if result.Rollback.Complete() {
		t.Error("rollback should be incomplete")
	}
	if len(result.Rollback.Warnings) == 0 {
		t.Fatal("rollback warnings should not be empty")
	}

	found := false
	for _, warning := range result.Rollback.Warnings {
		if warning.Path == "proj" {
			found = true
		}
	}
	if !found {
		t.Errorf("warnings %v should name proj", result.Rollback.Warnings)
	}

	// Remaining undo steps still ran: the integrity subtree is gone even
	// though removing proj itself was denied.
	if _, err := tfs.Stat("proj/.meta"); err == nil {
		t.Error("proj/.meta should have been removed by the remaining undo steps")
	}
	if txm.Active() {
		t.Error("transaction should be finalized even after partial rollback")
	}
}

func TestGenerateRejectsConflictingFile(t *testing.T) {
	gen, _, tfs := newEngine(t)

	// A file sits where the spec requires a directory.
	if err := tfs.WriteFile("proj", []byte("occupied"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := gen.Generate(projectTree(), testOpts)
	var preflightErr *core.PreflightError
	if !errors.As(err, &preflightErr) {
		t.Fatalf("error = %v, want PreflightError", err)
	}
	if preflightErr.Path != "proj" {
		t.Errorf("preflight error path = %s, want proj", preflightErr.Path)
	}

	// The conflicting file must be untouched.
	content, err := fs.ReadFile(tfs, "proj")
	if err != nil || string(content) != "occupied" {
		t.Errorf("conflicting file changed: %q, %v", content, err)
	}
}

func TestGenerateRequiresIdleManager(t *testing.T) {
	gen, txm, _ := newEngine(t)

	if _, err := txm.Begin("external"); err != nil {
		t.Fatalf("Begin failed: %v", err)
	}

	_, err := gen.Generate(projectTree(), testOpts)
	var preflightErr *core.PreflightError
	if !errors.As(err, &preflightErr) {
		t.Fatalf("error = %v, want PreflightError", err)
	}
	if !errors.Is(err, core.ErrAlreadyActive) {
		t.Errorf("cause = %v, want ErrAlreadyActive", err)
	}
}

func TestPermissionClassSeparation(t *testing.T) {
	gen, _, tfs := newEngine(t)

	tree := &spec.DirectoryNode{
		Name:                 "ws",
		RequiresIntegrityDir: true,
		MetadataLevel:        core.LevelWorkspace,
		Children: []*spec.DirectoryNode{
			{
				Name:                 "study-a",
				RequiresIntegrityDir: true,
				MetadataLevel:        core.LevelStudy,
				Children: []*spec.DirectoryNode{
					{Name: "raw"},
				},
			},
			{Name: "shared"},
		},
	}

	if _, err := gen.Generate(tree, testOpts); err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	for path, entry := range tfs.MapFS {
		restricted := generate.IsRestrictedPath(path)
		perm := entry.Mode.Perm()
		switch {
		case entry.Mode.IsDir() && restricted:
			if perm != core.RestrictedDirMode {
				t.Errorf("%s: mode %o, want %o", path, perm, core.RestrictedDirMode)
			}
		case entry.Mode.IsDir():
			if perm != core.DefaultDirMode {
				t.Errorf("%s: mode %o, want %o", path, perm, core.DefaultDirMode)
			}
		case restricted:
			if perm != core.RestrictedFileMode {
				t.Errorf("%s: mode %o, want %o", path, perm, core.RestrictedFileMode)
			}
		default:
			if perm != core.DefaultFileMode {
				t.Errorf("%s: mode %o, want %o", path, perm, core.DefaultFileMode)
			}
		}
	}

	// Both integrity levels got their metadata files.
	for _, file := range []string{"ws/.meta/ws.meta", "ws/study-a/.meta/study-a.meta"} {
		if _, err := tfs.Stat(file); err != nil {
			t.Errorf("%s missing: %v", file, err)
		}
	}
}

func TestGeneratePreservesDeclarationOrder(t *testing.T) {
	gen, _, _ := newEngine(t)

	tree := &spec.DirectoryNode{
		Name: "root",
		Children: []*spec.DirectoryNode{
			{Name: "zeta"},
			{Name: "alpha", Children: []*spec.DirectoryNode{{Name: "inner"}}},
			{Name: "mid"},
		},
	}

	result, err := gen.Generate(tree, testOpts)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	want := []string{"root", "root/zeta", "root/alpha", "root/alpha/inner", "root/mid"}
	if len(result.CreatedDirs) != len(want) {
		t.Fatalf("created dirs = %v, want %v", result.CreatedDirs, want)
	}
	for i := range want {
		if result.CreatedDirs[i] != want[i] {
			t.Errorf("created dir %d = %s, want %s", i, result.CreatedDirs[i], want[i])
		}
	}
}
