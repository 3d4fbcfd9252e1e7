package workdir

import (
	"os"
	"path/filepath"
	"testing"
)

func TestResolveBaseDir_UsesAncestorDtfFromSubdir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, ".dtf"), 0755); err != nil {
		t.Fatalf("create .dtf: %v", err)
	}

	subdir := filepath.Join(root, "nested", "dir")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("create subdir: %v", err)
	}

	got := ResolveBaseDir(subdir)
	assertSamePath(t, root, got)
}

func TestResolveBaseDir_NearestDtfWins(t *testing.T) {
	root := t.TempDir()
	inner := filepath.Join(root, "inner")
	for _, d := range []string{filepath.Join(root, ".dtf"), filepath.Join(inner, ".dtf")} {
		if err := os.MkdirAll(d, 0755); err != nil {
			t.Fatalf("create %s: %v", d, err)
		}
	}

	got := ResolveBaseDir(filepath.Join(inner))
	assertSamePath(t, inner, got)
}

func TestResolveBaseDir_FollowsDtfRootFromSubdir(t *testing.T) {
	repo := t.TempDir()
	sharedRoot := filepath.Join(t.TempDir(), "shared-root")
	if err := os.MkdirAll(sharedRoot, 0755); err != nil {
		t.Fatalf("create shared root: %v", err)
	}

	if err := os.WriteFile(filepath.Join(repo, dtfRootFile), []byte(sharedRoot+"\n"), 0644); err != nil {
		t.Fatalf("write %s: %v", dtfRootFile, err)
	}

	subdir := filepath.Join(repo, "nested", "dir")
	if err := os.MkdirAll(subdir, 0755); err != nil {
		t.Fatalf("create subdir: %v", err)
	}

	got := ResolveBaseDir(subdir)
	assertSamePath(t, sharedRoot, got)
}

func TestResolveBaseDir_ResolvesRelativeDtfRootPath(t *testing.T) {
	parent := t.TempDir()
	repo := filepath.Join(parent, "repo")
	if err := os.MkdirAll(repo, 0755); err != nil {
		t.Fatalf("create repo dir: %v", err)
	}
	sharedRoot := filepath.Join(parent, "shared")
	if err := os.MkdirAll(sharedRoot, 0755); err != nil {
		t.Fatalf("create shared root: %v", err)
	}

	if err := os.WriteFile(filepath.Join(repo, dtfRootFile), []byte("../shared"), 0644); err != nil {
		t.Fatalf("write %s: %v", dtfRootFile, err)
	}

	got := ResolveBaseDir(repo)
	assertSamePath(t, sharedRoot, got)
}

func TestResolveBaseDir_EmptyDtfRootIgnored(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, dtfRootFile), []byte("  \n"), 0644); err != nil {
		t.Fatalf("write %s: %v", dtfRootFile, err)
	}
	if err := os.MkdirAll(filepath.Join(root, ".dtf"), 0755); err != nil {
		t.Fatalf("create .dtf: %v", err)
	}

	got := ResolveBaseDir(root)
	assertSamePath(t, root, got)
}

func TestResolveBaseDir_NoMarkersUnchanged(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "plain")
	if err := os.MkdirAll(dir, 0755); err != nil {
		t.Fatalf("create dir: %v", err)
	}
	// An ancestor of the temp dir could hold .dtf on a developer machine,
	// so only assert when none does.
	if got := ResolveBaseDir(dir); got != dir {
		if _, err := os.Stat(filepath.Join(got, ".dtf")); err != nil {
			t.Fatalf("expected %q, got %q", dir, got)
		}
	}
}

func assertSamePath(t *testing.T, want string, got string) {
	t.Helper()

	wantResolved, wantErr := filepath.EvalSymlinks(want)
	if wantErr != nil {
		wantResolved = filepath.Clean(want)
	}

	gotResolved, gotErr := filepath.EvalSymlinks(got)
	if gotErr != nil {
		gotResolved = filepath.Clean(got)
	}

	if wantResolved != gotResolved {
		t.Fatalf("expected %q, got %q", wantResolved, gotResolved)
	}
}
