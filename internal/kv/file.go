package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// File keeps all slots in one JSON object on disk
type File struct {
	path string
	mu   sync.Mutex
}

// NewFile creates a file-backed store at path. The file is created on first Set.
func NewFile(path string) (*File, error) {
	if path == "" {
		return nil, errors.New("file storage: path cannot be empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &File{path: path}, nil
}

// Path returns the backing file path
func (f *File) Path() string { return f.path }

func (f *File) Get(_ context.Context, key string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	slots, err := f.readUnlocked()
	if err != nil {
		return "", false, err
	}
	v, ok := slots[key]
	return v, ok, nil
}

func (f *File) Set(_ context.Context, key, value string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	slots, err := f.readUnlocked()
	if err != nil {
		return err
	}
	slots[key] = value
	return f.writeUnlocked(slots)
}

func (f *File) Close() error { return nil }

// readUnlocked loads the slot map (must be called with lock held)
func (f *File) readUnlocked() (map[string]string, error) {
	data, err := os.ReadFile(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]string{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read storage file: %w", err)
	}
	if len(data) == 0 {
		return map[string]string{}, nil
	}

	slots := map[string]string{}
	if err := json.Unmarshal(data, &slots); err != nil {
		// Corrupted file - backup and start fresh
		_ = os.Rename(f.path, f.path+".backup")
		return map[string]string{}, nil
	}
	return slots, nil
}

// writeUnlocked persists the slot map atomically (must be called with lock held)
func (f *File) writeUnlocked(slots map[string]string) error {
	data, err := json.MarshalIndent(slots, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal storage: %w", err)
	}

	tempPath := f.path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tempPath, f.path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename temp file: %w", err)
	}
	return nil
}
