// Package fsutil implements the on-disk write discipline shared by every
// store in this module: files are rewritten whole to a temporary sibling
// and atomically renamed into place, so a crashed writer leaves either the
// old file or the new one, never a half-written hybrid.
package fsutil

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// ErrDecode marks a file that exists but failed to parse. Callers translate
// it into their own corrupt-state error rather than discarding the file.
var ErrDecode = errors.New("fsutil: decode failed")

// WriteAtomic writes data to path via a temp file in the same directory
// followed by a rename. Parent directories are created on demand.
func WriteAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("fsutil: mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("fsutil: create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("fsutil: write %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("fsutil: close %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("fsutil: rename %s: %w", path, err)
	}
	return nil
}

// SaveJSON marshals v with two-space indentation and writes it atomically.
func SaveJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("fsutil: marshal %s: %w", path, err)
	}
	return WriteAtomic(path, data)
}

// LoadJSON reads path into v. A missing file surfaces as fs.ErrNotExist;
// a parse failure wraps ErrDecode.
func LoadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("fsutil: read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("fsutil: parse %s: %v: %w", path, err, ErrDecode)
	}
	return nil
}

// SaveYAML marshals v to YAML and writes it atomically.
func SaveYAML(path string, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("fsutil: marshal %s: %w", path, err)
	}
	return WriteAtomic(path, data)
}

// LoadYAML reads path into v with the same error contract as LoadJSON.
func LoadYAML(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("fsutil: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("fsutil: parse %s: %v: %w", path, err, ErrDecode)
	}
	return nil
}
