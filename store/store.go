// Package store persists pattern bank snapshots as JSON files under the
// user config directory. The playback core never touches this package; it
// is the load/save-by-name boundary around it.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go-pulse/sequencer"
)

// Dir returns the bank storage directory, creating it if needed.
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	dir := filepath.Join(home, ".config", "go-pulse", "banks")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	return dir, nil
}

func bankPath(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, "/\\") {
		return "", fmt.Errorf("invalid bank name %q", name)
	}
	dir, err := Dir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name+".json"), nil
}

// Save writes a bank set under the given name, replacing any previous
// snapshot with that name.
func Save(name string, b *sequencer.BankSet) error {
	path, err := bankPath(name)
	if err != nil {
		return err
	}
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Load reads the named bank set.
func Load(name string) (*sequencer.BankSet, error) {
	path, err := bankPath(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var b sequencer.BankSet
	if err := json.Unmarshal(data, &b); err != nil {
		return nil, fmt.Errorf("bank %q: %w", name, err)
	}
	for _, p := range b.Slots {
		if p == nil {
			continue
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("bank %q: %w", name, err)
		}
	}
	return &b, nil
}

// List returns the saved bank names, sorted.
func List() ([]string, error) {
	dir, err := Dir()
	if err != nil {
		return nil, err
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a saved bank.
func Delete(name string) error {
	path, err := bankPath(name)
	if err != nil {
		return err
	}
	return os.Remove(path)
}
