package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// PathValidator keeps tool inputs inside the configured directory
type PathValidator struct {
	configuredDirectory string
}

// NewPathValidator creates a new path validator for the given directory.
// The directory does not have to exist yet.
func NewPathValidator(configuredDirectory string) (*PathValidator, error) {
	if configuredDirectory == "" {
		return nil, fmt.Errorf("configured directory cannot be empty")
	}

	abs, err := filepath.Abs(configuredDirectory)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve configured directory: %w", err)
	}

	return &PathValidator{configuredDirectory: filepath.Clean(abs)}, nil
}

// ValidatePath checks that path, after cleaning and symlink resolution, is inside the configured directory
func (v *PathValidator) ValidatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path cannot be empty")
	}

	isWithin, err := v.IsPathWithinDirectory(path)
	if err != nil {
		return fmt.Errorf("path validation failed: %w", err)
	}
	if !isWithin {
		return fmt.Errorf("path is outside configured directory: %s", path)
	}

	return nil
}

// IsPathWithinDirectory reports whether path is the configured directory or below it.
// Both the literal path and its symlink target must stay inside.
func (v *PathValidator) IsPathWithinDirectory(path string) (bool, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return false, fmt.Errorf("failed to resolve path: %w", err)
	}
	cleanPath := filepath.Clean(absPath)

	roots := []string{v.configuredDirectory}
	if resolved, err := filepath.EvalSymlinks(v.configuredDirectory); err == nil && resolved != v.configuredDirectory {
		roots = append(roots, resolved)
	}

	if !withinAny(cleanPath, roots) {
		return false, nil
	}

	if resolved, err := filepath.EvalSymlinks(cleanPath); err == nil {
		return withinAny(resolved, roots), nil
	} else if !os.IsNotExist(err) {
		return false, fmt.Errorf("failed to evaluate symlinks: %w", err)
	}

	return true, nil
}

func withinAny(path string, roots []string) bool {
	for _, root := range roots {
		rel, err := filepath.Rel(root, path)
		if err != nil {
			continue
		}
		if rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))) {
			return true
		}
	}
	return false
}

// GetConfiguredDirectory returns the configured directory path
func (v *PathValidator) GetConfiguredDirectory() string {
	return v.configuredDirectory
}

// NormalizePath resolves relative paths against the configured directory and validates the result
func (v *PathValidator) NormalizePath(path string) (string, error) {
	if path == "" {
		return "", fmt.Errorf("path cannot be empty")
	}

	if !filepath.IsAbs(path) {
		path = filepath.Join(v.configuredDirectory, path)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("failed to resolve path: %w", err)
	}

	if err := v.ValidatePath(absPath); err != nil {
		return "", err
	}

	return absPath, nil
}

// ValidateDirectory checks that dirPath is inside the configured directory and,
// when it exists, is a directory
func (v *PathValidator) ValidateDirectory(dirPath string) error {
	if err := v.ValidatePath(dirPath); err != nil {
		return err
	}

	info, err := os.Stat(dirPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("cannot access directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path is not a directory: %s", dirPath)
	}

	return nil
}

// SanitizePath strips NUL bytes and normalizes the path
func (v *PathValidator) SanitizePath(path string) (string, error) {
	return v.NormalizePath(strings.ReplaceAll(path, "\x00", ""))
}
