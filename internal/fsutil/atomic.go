package fsutil

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// AtomicWrite writes data to path via a temp file in the same directory
// followed by rename, so a reader never observes a partial file.
func AtomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", dir, err)
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("writing temp file %s: %w", tmpPath, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("syncing temp file %s: %w", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("closing temp file %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("renaming %s to %s: %w", tmpPath, path, err)
	}
	return nil
}

// WriteJSON marshals v and writes it atomically.
func WriteJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", path, err)
	}
	return AtomicWrite(path, data)
}

// ReadJSON reads path and unmarshals into v. Returns os.ErrNotExist
// unmodified so callers can distinguish "missing" from other failures.
func ReadJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

// Backup copies the contents of path into backupDir, tagged with a
// timestamp so writers can later prove "a backup newer than pre-state
// exists" per the scheduling invariant. Missing source is not an error —
// the first mutation of a not-yet-created file has nothing to snapshot.
func Backup(path, backupDir string, now time.Time) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("reading %s for backup: %w", path, err)
	}
	if err := os.MkdirAll(backupDir, 0o755); err != nil {
		return fmt.Errorf("creating backup directory %s: %w", backupDir, err)
	}
	name := fmt.Sprintf("%s.%s.bak", filepath.Base(path), now.UTC().Format("20060102T150405.000000000Z"))
	return AtomicWrite(filepath.Join(backupDir, name), data)
}
