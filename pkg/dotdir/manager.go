// Package dotdir resolves the .flowstream/ directory that holds the config
// file and the chat command's thread state.
package dotdir

import (
	"fmt"
	"os"
	"path/filepath"
)

// DirName is the name of the flowstream directory.
const DirName = ".flowstream"

type Manager struct{}

func NewManager() *Manager {
	return &Manager{}
}

// Target returns the absolute path to a .flowstream/ directory, creating it
// when missing. Order of precedence:
//  1. Provided override
//  2. Local ./.flowstream/ dir
//  3. Home ~/.flowstream/ dir
func (m *Manager) Target(overrideDir string) (string, error) {
	var dir string

	switch {
	case overrideDir != "":
		dir = overrideDir

	case m.localDirExists():
		cwd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("getting current directory: %w", err)
		}
		dir = filepath.Join(cwd, DirName)

	default:
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		dir = filepath.Join(home, DirName)
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating flowstream directory %s: %w", dir, err)
	}

	return filepath.Abs(dir)
}

// Exists reports whether a .flowstream/ directory is present in the working
// directory or the home directory, without creating one.
func (m *Manager) Exists() bool {
	if m.localDirExists() {
		return true
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(home, DirName))
	return err == nil && info.IsDir()
}

func (m *Manager) localDirExists() bool {
	cwd, err := os.Getwd()
	if err != nil {
		return false
	}

	info, err := os.Stat(filepath.Join(cwd, DirName))
	return err == nil && info.IsDir()
}
