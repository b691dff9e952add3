// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package storage persists chat state for the chatbot application.
package storage

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/Jhonatan1998P/chatbot/internal/util"
)

// KV is the durable medium the store writes through to. Implementations must
// make Set durable before returning; the store treats a returned nil as
// "committed".
type KV interface {
	// Get returns the value for key, with found=false when the key has
	// never been written.
	Get(key string) (value []byte, found bool, err error)
	// Set durably writes the value for key, replacing any previous value.
	Set(key string, value []byte) error
	// Close releases any resources held by the backend.
	Close() error
}

// ============================================================================
// FILE BACKEND
// ============================================================================

// FileKV stores each key as a JSON file under a directory, written atomically
// with fsync so a crash never leaves a torn blob.
type FileKV struct {
	dir string
}

// NewFileKV creates a file-backed KV rooted at dir.
func NewFileKV(dir string) *FileKV {
	return &FileKV{dir: dir}
}

func (f *FileKV) path(key string) string {
	return filepath.Join(f.dir, key+".json")
}

func (f *FileKV) Get(key string) ([]byte, bool, error) {
	data, err := os.ReadFile(f.path(key))
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return data, true, nil
}

func (f *FileKV) Set(key string, value []byte) error {
	// Chat content is private; keep the blob owner-only.
	if err := util.AtomicWriteFile(f.path(key), value, 0600); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (f *FileKV) Close() error { return nil }

// ============================================================================
// MEMORY BACKEND
// ============================================================================

// MemoryKV is an in-memory KV for tests and ephemeral sessions.
type MemoryKV struct {
	mu   sync.Mutex
	data map[string][]byte
}

// NewMemoryKV creates an empty in-memory KV.
func NewMemoryKV() *MemoryKV {
	return &MemoryKV{data: make(map[string][]byte)}
}

func (m *MemoryKV) Get(key string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	cp := make([]byte, len(v))
	copy(cp, v)
	return cp, true, nil
}

func (m *MemoryKV) Set(key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(value))
	copy(cp, value)
	m.data[key] = cp
	return nil
}

func (m *MemoryKV) Close() error { return nil }
