package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// JSONStore implements Store using a JSON file
type JSONStore struct {
	filePath string
	mu       sync.RWMutex
	data     *Snapshot
}

// NewJSONStore opens or creates the journal file at filePath
func NewJSONStore(filePath string) (*JSONStore, error) {
	store := &JSONStore{
		filePath: filePath,
		data:     &Snapshot{},
	}

	if err := store.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load journal: %w", err)
		}
		// File doesn't exist, create it
		if err := store.save(); err != nil {
			return nil, fmt.Errorf("failed to create journal file: %w", err)
		}
	}

	return store, nil
}

func (s *JSONStore) Save(snapshot Snapshot) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.data = &snapshot
	return s.save()
}

func (s *JSONStore) Load() (Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return *s.data, nil
}

// Close releases resources (no-op for JSON store)
func (s *JSONStore) Close() error {
	return nil
}

// load reads data from the JSON file
func (s *JSONStore) load() error {
	file, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	// Handle empty file
	if len(file) == 0 {
		return nil
	}

	return json.Unmarshal(file, s.data)
}

// save writes data to the JSON file
func (s *JSONStore) save() error {
	data, err := json.MarshalIndent(s.data, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal journal: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.filePath), 0755); err != nil {
		return fmt.Errorf("failed to create journal directory: %w", err)
	}

	return os.WriteFile(s.filePath, data, 0644)
}
