// Package store provides the plain-file entity stores: agents, tasks and
// projects, and goals. Each store is one JSON file, written atomically via a
// temp file and rename, and independently readable: no store depends on
// another's format, so any one of them can be recovered or inspected alone.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// readJSON loads a JSON file into v. A missing file is not an error; it
// reports found=false so a fresh store starts empty.
func readJSON(path string, v interface{}) (found bool, err error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("parse %s: %w", path, err)
	}
	return true, nil
}

// writeJSON persists v atomically: marshal, write to a temp file alongside
// the target, then rename over it.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}
