package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"stuytown-watcher/models"
	"stuytown-watcher/utils"
)

// JSONStore persists KnownState as an indented JSON file keyed by address.
// The file is rewritten whole on every save via a temp-file rename, so a
// crash mid-write never leaves a truncated state file behind.
type JSONStore struct {
	path   string
	logger *utils.Logger
}

// NewJSONStore creates a store backed by the file at path.
func NewJSONStore(path string, logger *utils.Logger) *JSONStore {
	return &JSONStore{path: path, logger: logger}
}

// Load reads the prior state. A missing, unreadable, or corrupt file is
// logged and reported as an empty state — never an error.
func (s *JSONStore) Load() models.KnownState {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.logger.Info("[store] No existing state file at %s, starting fresh", s.path)
		return models.KnownState{}
	}
	if err != nil {
		s.logger.Error("[store] Failed to read state file %s: %v", s.path, err)
		return models.KnownState{}
	}

	var state models.KnownState
	if err := json.Unmarshal(data, &state); err != nil {
		s.logger.Error("[store] Corrupt state file %s, starting fresh: %v", s.path, err)
		return models.KnownState{}
	}
	if state == nil {
		state = models.KnownState{}
	}

	s.logger.Info("[store] Loaded %d known listings from %s", len(state), s.path)
	return state
}

// Save serializes the full state, replacing any prior file content.
func (s *JSONStore) Save(state models.KnownState) error {
	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return fmt.Errorf("store: marshal state: %w", err)
	}

	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("store: create state dir: %w", err)
		}
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("store: write state: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("store: replace state file: %w", err)
	}

	s.logger.Info("[store] Saved %d listings to %s", len(state), s.path)
	return nil
}
