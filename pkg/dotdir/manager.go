// Package dotdir resolves the .ragline/ directory holding config.toml,
// credentials.toml and the default SQLite databases.
package dotdir

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DirName is the name of the ragline directory.
	DirName = ".ragline"

	// DatabaseFile is the default SQLite database of the document registry.
	DatabaseFile = "ragline.sqlite"

	// VectorFile is the default database of the sqlite vector store.
	VectorFile = "vectors.sqlite"
)

// Source records which rule selected a directory.
type Source int

const (
	SourceOverride Source = iota
	SourceLocal
	SourceHome
)

func (s Source) String() string {
	switch s {
	case SourceOverride:
		return "override"
	case SourceLocal:
		return "local"
	default:
		return "home"
	}
}

// Location is a resolved directory and the rule that chose it.
type Location struct {
	Path   string
	Source Source
}

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Resolve picks the directory without touching the filesystem beyond a stat:
//  1. overrideDir when set
//  2. ./.ragline/ when it exists
//  3. ~/.ragline/
func (m *Manager) Resolve(overrideDir string) (Location, error) {
	if overrideDir != "" {
		abs, err := filepath.Abs(overrideDir)
		if err != nil {
			return Location{}, fmt.Errorf("resolving %s: %w", overrideDir, err)
		}
		return Location{Path: abs, Source: SourceOverride}, nil
	}

	local, err := m.Local()
	if err != nil {
		return Location{}, err
	}
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return Location{Path: local, Source: SourceLocal}, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return Location{}, fmt.Errorf("getting home directory: %w", err)
	}
	return Location{Path: filepath.Join(home, DirName), Source: SourceHome}, nil
}

// Target resolves the directory and creates it if missing.
func (m *Manager) Target(overrideDir string) (string, error) {
	loc, err := m.Resolve(overrideDir)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(loc.Path, 0o755); err != nil {
		return "", fmt.Errorf("creating ragline directory %s: %w", loc.Path, err)
	}
	return loc.Path, nil
}

// Local returns the path of ./.ragline/ in the working directory, whether or
// not it exists.
func (m *Manager) Local() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting current directory: %w", err)
	}
	return filepath.Join(cwd, DirName), nil
}

// InitLocal creates ./.ragline/ and reports whether it was newly created.
func (m *Manager) InitLocal() (string, bool, error) {
	dir, err := m.Local()
	if err != nil {
		return "", false, err
	}

	_, statErr := os.Stat(dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", false, fmt.Errorf("creating ragline directory %s: %w", dir, err)
	}
	return dir, errors.Is(statErr, os.ErrNotExist), nil
}

// DataPath returns the absolute path of name inside the resolved directory.
// An absolute name is returned unchanged.
func (m *Manager) DataPath(overrideDir, name string) (string, error) {
	if name == "" {
		return "", errors.New("data file name is required")
	}
	if filepath.IsAbs(name) {
		return name, nil
	}

	dir, err := m.Target(overrideDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}
