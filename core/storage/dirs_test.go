package storage

import (
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func resetGlobalDirs() {
	globalDirsOnce = sync.Once{}
	globalDirs = nil
	globalDirsErr = nil
}

func TestResolveDirs(t *testing.T) {
	resetGlobalDirs()

	dirs, err := ResolveDirs()
	if err != nil {
		t.Fatalf("ResolveDirs failed: %v", err)
	}

	if dirs.Config == "" {
		t.Error("Config dir should not be empty")
	}
	if dirs.Data == "" {
		t.Error("Data dir should not be empty")
	}

	if !strings.Contains(dirs.Config, AppName) {
		t.Errorf("Config dir should contain %q: %s", AppName, dirs.Config)
	}
}

func TestResolveDirsXDGOverride(t *testing.T) {
	resetGlobalDirs()
	defer resetGlobalDirs()

	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	dirs, err := ResolveDirs()
	if err != nil {
		t.Fatalf("ResolveDirs failed: %v", err)
	}

	expected := filepath.Join(tmpDir, AppName)
	if dirs.Config != expected {
		t.Errorf("XDG override failed: got %s, want %s", dirs.Config, expected)
	}
}

func TestResolveProjectDirs(t *testing.T) {
	projectRoot := "/test/project"
	dirs := ResolveProjectDirs(projectRoot)

	if dirs.Root != filepath.Join(projectRoot, ".ctxsync") {
		t.Errorf("Root: got %s, want %s", dirs.Root, filepath.Join(projectRoot, ".ctxsync"))
	}
	if dirs.Config != filepath.Join(projectRoot, ".ctxsync", "config.yaml") {
		t.Errorf("Config: got %s", dirs.Config)
	}
	if dirs.Local != filepath.Join(projectRoot, ".ctxsync", "local") {
		t.Errorf("Local: got %s", dirs.Local)
	}
}

func TestProjectHash(t *testing.T) {
	hash1 := ProjectHash("/project/one")
	hash2 := ProjectHash("/project/two")
	hash3 := ProjectHash("/project/one")

	if hash1 == hash2 {
		t.Error("Different projects should have different hashes")
	}
	if hash1 != hash3 {
		t.Error("Same project should have same hash")
	}
	if len(hash1) != 16 {
		t.Errorf("Hash should be 16 chars, got %d", len(hash1))
	}
}

func TestJournalPath(t *testing.T) {
	dirs := &Dirs{Data: "/data"}

	got := dirs.JournalPath("/project/one")
	want := filepath.Join("/data", "projects", ProjectHash("/project/one"), "journal.db")
	if got != want {
		t.Errorf("JournalPath: got %s, want %s", got, want)
	}
}
