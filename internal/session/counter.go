package session

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// counterFile is the tiny persisted JSON document holding the session
// counter: {"session_counter": N}.
type counterFile struct {
	SessionCounter int `json:"session_counter"`
}

// NextCounter reads, increments and writes back the persisted session
// counter, returning the new value. A missing or corrupt file is treated as
// zero, so the first session is 1. The counter strictly increases across all
// runs of the process.
func NextCounter(path string) (int, error) {
	var cf counterFile
	if raw, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(raw, &cf); err != nil {
			cf.SessionCounter = 0
		}
	}

	cf.SessionCounter++

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("create counter directory: %w", err)
	}
	raw, err := json.Marshal(cf)
	if err != nil {
		return 0, err
	}
	if err := os.WriteFile(path, raw, 0o644); err != nil {
		return 0, fmt.Errorf("write counter file: %w", err)
	}
	return cf.SessionCounter, nil
}
