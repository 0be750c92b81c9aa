package state

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// LoadJSONFile decodes path into T. A missing file yields the zero value.
func LoadJSONFile[T any](path string) (T, error) {
	var zero T
	return LoadJSONFileOr(path, zero)
}

// LoadJSONFileOr decodes path into T, returning fallback when the file does
// not exist or is empty.
func LoadJSONFileOr[T any](path string, fallback T) (T, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return fallback, nil
		}
		return fallback, err
	}
	if len(b) == 0 {
		return fallback, nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return fallback, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return v, nil
}

func SaveJSONFile(path string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return writeAtomic(path, b)
}

func SaveJSONFileIndented(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return writeAtomic(path, append(b, '\n'))
}

func writeAtomic(path string, b []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return err
	}
	_ = os.Remove(path) // Windows rename doesn't overwrite.
	return os.Rename(tmp, path)
}
