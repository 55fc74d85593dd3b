package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the rxdecode home directory.
	DefaultDirName = ".rxdecode"

	// DataDirName is the subdirectory for reference data.
	DataDirName = "data"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"

	// VocabularyFileName is the reference vocabulary inside the data directory.
	VocabularyFileName = "vocabulary.json"
)

// Dir represents the rxdecode home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.rxdecode).
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}

	return &Dir{path: path}, nil
}

// Path returns the root path of the home directory.
func (d *Dir) Path() string {
	return d.path
}

// DataPath returns the path to the data directory.
func (d *Dir) DataPath() string {
	return filepath.Join(d.path, DataDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// VocabularyPath returns the default reference vocabulary location.
func (d *Dir) VocabularyPath() string {
	return filepath.Join(d.DataPath(), VocabularyFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	// Create data directory (this also creates the parent)
	if err := os.MkdirAll(d.DataPath(), 0o755); err != nil {
		return fmt.Errorf("failed to create data directory: %w", err)
	}
	return nil
}

// Exists returns true if the home directory exists.
func (d *Dir) Exists() bool {
	_, err := os.Stat(d.path)
	return err == nil
}

// ConfigExists returns true if the config file exists in the home directory.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}

// VocabularyExists returns true if the vocabulary file exists in the data directory.
func (d *Dir) VocabularyExists() bool {
	_, err := os.Stat(d.VocabularyPath())
	return err == nil
}

// WriteVocabulary writes data to VocabularyPath unless a file is already there.
// It reports whether it wrote.
func (d *Dir) WriteVocabulary(data []byte) (bool, error) {
	if d.VocabularyExists() {
		return false, nil
	}
	if err := d.EnsureExists(); err != nil {
		return false, err
	}
	if err := os.WriteFile(d.VocabularyPath(), data, 0o644); err != nil {
		return false, fmt.Errorf("failed to write vocabulary: %w", err)
	}
	return true, nil
}
