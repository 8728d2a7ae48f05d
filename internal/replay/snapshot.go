package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"poolotto/internal/contract"
)

// LoadSnapshot reads contract state from a JSON snapshot file.
func LoadSnapshot(path string) (*contract.State, bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read snapshot: %w", err)
	}

	var state contract.State
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, false, fmt.Errorf("parse snapshot: %w", err)
	}
	state.Init()
	return &state, true, nil
}

// SaveSnapshot writes contract state to a JSON snapshot file atomically.
func SaveSnapshot(path string, state *contract.State) error {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create snapshot dir: %w", err)
		}
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write snapshot tmp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}

	return nil
}
