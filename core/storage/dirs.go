// Package storage provides platform-native directory resolution with XDG support.
package storage

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"sync"
)

// AppName is the directory name used under every base directory.
const AppName = "ctxsync"

// ProjectDirName is the per-project directory holding config and artifacts.
const ProjectDirName = ".ctxsync"

// Dirs provides platform-native directory resolution with XDG support.
type Dirs struct {
	Config string // User configuration
	Data   string // Persistent data (per-project journals)
}

// ProjectDirs returns project-local directories.
type ProjectDirs struct {
	Root   string // .ctxsync/
	Config string // .ctxsync/config.yaml (committed)
	Local  string // .ctxsync/local/ (gitignored)
}

var (
	globalDirs     *Dirs
	globalDirsOnce sync.Once
	globalDirsErr  error
)

// ResolveDirs returns platform-appropriate directories.
// Results are cached after first call.
func ResolveDirs() (*Dirs, error) {
	globalDirsOnce.Do(func() {
		globalDirs, globalDirsErr = resolveDirsImpl()
	})
	return globalDirs, globalDirsErr
}

func resolveDirsImpl() (*Dirs, error) {
	dirs := &Dirs{
		Config: resolveDir("XDG_CONFIG_HOME", platformConfigDefault()),
		Data:   resolveDir("XDG_DATA_HOME", platformDataDefault()),
	}
	return dirs, nil
}

func resolveDir(envVar, fallback string) string {
	if dir := os.Getenv(envVar); dir != "" {
		return filepath.Join(dir, AppName)
	}
	return fallback
}

// ResolveProjectDirs returns project-local directories for the given project root.
func ResolveProjectDirs(projectRoot string) *ProjectDirs {
	root := filepath.Join(projectRoot, ProjectDirName)
	return &ProjectDirs{
		Root:   root,
		Config: filepath.Join(root, "config.yaml"),
		Local:  filepath.Join(root, "local"),
	}
}

// ProjectHash generates a consistent hash for a project path.
// Used for per-project journal isolation.
func ProjectHash(projectRoot string) string {
	absPath, err := filepath.Abs(projectRoot)
	if err != nil {
		absPath = projectRoot
	}
	hash := sha256.Sum256([]byte(absPath))
	return hex.EncodeToString(hash[:8]) // 16 chars
}

// ConfigDir returns the config subdirectory path.
func (d *Dirs) ConfigDir(subpath ...string) string {
	return filepath.Join(append([]string{d.Config}, subpath...)...)
}

// DataDir returns the data subdirectory path.
func (d *Dirs) DataDir(subpath ...string) string {
	return filepath.Join(append([]string{d.Data}, subpath...)...)
}

// ProjectDataDir returns the project-specific data directory.
func (d *Dirs) ProjectDataDir(projectRoot string) string {
	return d.DataDir("projects", ProjectHash(projectRoot))
}

// JournalPath returns the default commit journal database for a project.
func (d *Dirs) JournalPath(projectRoot string) string {
	return filepath.Join(d.ProjectDataDir(projectRoot), "journal.db")
}
