// Package security guards the files the CLI writes: export file names are
// derived from sensor IDs and must never escape the chosen directory.
package security

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// maxFilenameLen bounds names produced by SanitizeFilename.
const maxFilenameLen = 128

// canonical returns the absolute form of path with symlinks resolved on its
// longest existing prefix, so a link inside a directory cannot point a
// not-yet-created file somewhere else.
func canonical(path string) (string, error) {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	existing, rest := abs, ""
	for {
		if resolved, err := filepath.EvalSymlinks(existing); err == nil {
			return filepath.Join(resolved, rest), nil
		}
		parent := filepath.Dir(existing)
		if parent == existing {
			return abs, nil
		}
		rest = filepath.Join(filepath.Base(existing), rest)
		existing = parent
	}
}

// WithinDirectory returns an error unless path resolves to dir or a
// location below it.
func WithinDirectory(path, dir string) error {
	p, err := canonical(path)
	if err != nil {
		return err
	}
	d, err := canonical(dir)
	if err != nil {
		return err
	}
	rel, err := filepath.Rel(d, p)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return fmt.Errorf("path traversal detected: %s escapes %s", path, dir)
	}
	return nil
}

// WithinAny returns nil when path is inside at least one of dirs.
func WithinAny(path string, dirs []string) error {
	if len(dirs) == 0 {
		return fmt.Errorf("no allowed directories specified")
	}
	for _, dir := range dirs {
		if WithinDirectory(path, dir) == nil {
			return nil
		}
	}
	return fmt.Errorf("path %s must be within one of %v", path, dirs)
}

// DefaultExportDirs are the working directory and the system temp
// directory.
func DefaultExportDirs() ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("failed to get working directory: %w", err)
	}
	return []string{cwd, os.TempDir()}, nil
}

// ExportFile returns dir/<SanitizeFilename(name)><ext>. dir must lie within
// one of allowed, and the file within dir.
func ExportFile(dir, name, ext string, allowed []string) (string, error) {
	if err := WithinAny(dir, allowed); err != nil {
		return "", err
	}
	file := filepath.Join(dir, SanitizeFilename(name)+ext)
	if err := WithinDirectory(file, dir); err != nil {
		return "", err
	}
	return file, nil
}

// SanitizeFilename turns an arbitrary identifier into a file name of ASCII
// letters, digits, '.', '_' and '-'. Runs of other characters collapse to
// one underscore; leading and trailing dots and underscores are dropped.
func SanitizeFilename(s string) string {
	var b strings.Builder
	underscore := false
	for _, r := range s {
		if b.Len() >= maxFilenameLen {
			break
		}
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
			underscore = r == '_'
		case !underscore:
			b.WriteByte('_')
			underscore = true
		}
	}
	if out := strings.Trim(b.String(), "._"); out != "" {
		return out
	}
	return "unknown"
}
