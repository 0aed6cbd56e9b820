// Package storage defines the key-value store the repository persists its
// records in, together with the job storage used to enqueue background work.
// Backends (in-memory, PostgreSQL, Redis) live in sub-packages.
//
//go:generate mockgen -package mockstorage -source=interface.go -destination=mock/mockstorage.go *
package storage

import "context"

// KV is a single key and its stored value.
type KV struct {
	Key   string
	Value []byte
}

// Store is an opaque key-value store. Writes are atomic at the single-key
// level; no multi-key transactions are assumed.
type Store interface {
	// Get returns the value stored under key, or nil when the key does not exist.
	Get(ctx context.Context, key string) ([]byte, error)
	// Put creates or overwrites the value stored under key.
	Put(ctx context.Context, key string, value []byte) error
	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error
	// ScanPrefix returns every key starting with prefix, ordered by key.
	ScanPrefix(ctx context.Context, prefix string) ([]KV, error)
	// Close releases any resources held by the store.
	Close() error
}

// Swapper is implemented by stores that can atomically replace a value only
// when it still holds an expected content.
type Swapper interface {
	// CompareAndSwap stores next under key if the current value equals prev.
	// A nil prev means the key must not exist yet. It reports whether the
	// value was replaced.
	CompareAndSwap(ctx context.Context, key string, prev, next []byte) (bool, error)
}
