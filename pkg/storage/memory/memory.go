// Package memory provides an in-process storage.Store, used by tests and by
// single-process development setups.
package memory

import (
	"bytes"
	"context"
	"sort"
	"strings"
	"sync"

	"typowatch/pkg/storage"
)

// Store keeps values in a map guarded by a mutex. Values are copied on the way
// in and out so callers cannot mutate stored data.
type Store struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

// Get implements storage.Store.
func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}

	v, ok := s.data[key]
	if !ok {
		return nil, nil
	}

	return bytes.Clone(v), nil
}

// Put implements storage.Store.
func (s *Store) Put(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	s.data[key] = bytes.Clone(value)

	return nil
}

// Delete implements storage.Store.
func (s *Store) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return storage.ErrClosed
	}
	delete(s.data, key)

	return nil
}

// ScanPrefix implements storage.Store.
func (s *Store) ScanPrefix(_ context.Context, prefix string) ([]storage.KV, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, storage.ErrClosed
	}

	var out []storage.KV
	for k, v := range s.data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, storage.KV{Key: k, Value: bytes.Clone(v)})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })

	return out, nil
}

// CompareAndSwap implements storage.Swapper.
func (s *Store) CompareAndSwap(_ context.Context, key string, prev, next []byte) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false, storage.ErrClosed
	}

	cur, ok := s.data[key]
	switch {
	case prev == nil && ok:
		return false, nil
	case prev != nil && (!ok || !bytes.Equal(cur, prev)):
		return false, nil
	}
	s.data[key] = bytes.Clone(next)

	return true, nil
}

// Close implements storage.Store. Later calls fail with storage.ErrClosed.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true

	return nil
}

// Len returns the number of stored keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.data)
}

var (
	_ storage.Store   = (*Store)(nil)
	_ storage.Swapper = (*Store)(nil)
)

// New returns an empty Store.
func New() *Store {
	return &Store{data: make(map[string][]byte)}
}
