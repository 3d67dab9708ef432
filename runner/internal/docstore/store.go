package docstore

import (
	"context"
	"errors"
	"io/fs"
	"sync"
)

// ErrNotExist is matched (errors.Is) by Load errors for missing documents.
var ErrNotExist = fs.ErrNotExist

// Store holds one config document.
type Store interface {
	// Load returns the document bytes.
	Load(ctx context.Context) ([]byte, error)

	// Save replaces the document with data.
	Save(ctx context.Context, data []byte) error

	// Location describes where the document lives, for logs and errors.
	Location() string
}

// MemStore is an in-memory Store. The zero value holds no document.
type MemStore struct {
	mu     sync.Mutex
	data   []byte
	exists bool
	saves  int

	// SaveErr, when set, is returned by every Save.
	SaveErr error
}

// NewMemStore returns a MemStore holding data.
func NewMemStore(data []byte) *MemStore {
	return &MemStore{data: append([]byte(nil), data...), exists: true}
}

func (m *MemStore) Load(context.Context) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.exists {
		return nil, &fs.PathError{Op: "load", Path: m.Location(), Err: fs.ErrNotExist}
	}
	return append([]byte(nil), m.data...), nil
}

func (m *MemStore) Save(_ context.Context, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.data = append([]byte(nil), data...)
	m.exists = true
	m.saves++
	return nil
}

func (m *MemStore) Location() string { return "memory" }

// Saves returns how many times Save succeeded.
func (m *MemStore) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// IsNotExist reports whether err means the document does not exist.
func IsNotExist(err error) bool {
	return errors.Is(err, ErrNotExist)
}
