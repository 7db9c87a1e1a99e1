package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is the default name for the ocrsum home directory.
	DefaultDirName = ".ocrsum"

	// InputDirName is the subdirectory for documents queued for processing.
	InputDirName = "input"

	// OutputDirName is the subdirectory for result files and audit logs.
	OutputDirName = "output"

	// LogsDirName is the subdirectory for application logs.
	LogsDirName = "logs"

	// ConfigFileName is the default config file name.
	ConfigFileName = "config.yaml"
)

// Dir represents the ocrsum home directory structure.
type Dir struct {
	path string
}

// New creates a new Dir with the given path.
// If path is empty, uses the default (~/.ocrsum).
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

// InputPath returns the path to the input directory.
func (d *Dir) InputPath() string {
	return filepath.Join(d.path, InputDirName)
}

// OutputPath returns the path to the output directory.
func (d *Dir) OutputPath() string {
	return filepath.Join(d.path, OutputDirName)
}

// LogsPath returns the path to the logs directory.
func (d *Dir) LogsPath() string {
	return filepath.Join(d.path, LogsDirName)
}

// ConfigPath returns the path to the default config file.
func (d *Dir) ConfigPath() string {
	return filepath.Join(d.path, ConfigFileName)
}

// EnsureExists creates the home directory and subdirectories if they don't exist.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.InputPath(), d.OutputPath(), d.LogsPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
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
