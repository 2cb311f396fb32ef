package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// ErrUnknownKey is returned when saving a key that has no default.
var ErrUnknownKey = errors.New("unknown config key")

// Set writes key=value into the YAML config file at path, creating the file
// and its directory if needed. Other keys in the file are preserved.
func Set(path, key, value string) error {
	if err := checkKey(key); err != nil {
		return err
	}
	existing, err := readFile(path)
	if err != nil {
		return err
	}
	existing[key] = parseValue(value)

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	return writeFile(path, existing)
}

// Unset removes key from the YAML config file at path. A missing file or key
// is not an error.
func Unset(path, key string) error {
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return nil
	}
	existing, err := readFile(path)
	if err != nil {
		return err
	}
	if _, ok := existing[key]; !ok {
		return nil
	}
	delete(existing, key)
	return writeFile(path, existing)
}

// KnownKeys returns every configuration key in sorted order.
func KnownKeys() []string {
	keys := make([]string, 0, len(Defaults()))
	for k := range Defaults() {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func checkKey(key string) error {
	if _, ok := Defaults()[key]; !ok {
		return fmt.Errorf("%w: %s\n\nValid keys: %s", ErrUnknownKey, key, strings.Join(KnownKeys(), ", "))
	}
	return nil
}

func readFile(path string) (map[string]any, error) {
	existing := make(map[string]any)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return existing, nil
	}
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, &existing); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if existing == nil {
		existing = make(map[string]any)
	}
	return existing, nil
}

// writeFile uses 0600 because the file may hold tokens and secrets.
func writeFile(path string, values map[string]any) error {
	data, err := yaml.Marshal(values)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// parseValue converts string values to appropriate types for YAML.
func parseValue(value string) any {
	switch strings.ToLower(value) {
	case "true":
		return true
	case "false":
		return false
	}
	return value
}
