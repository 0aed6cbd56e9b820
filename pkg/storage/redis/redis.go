// Package redis provides the Redis backend of storage.Store. Keys are stored
// under a namespace prefix so several deployments can share one instance.
package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"typowatch/pkg/storage"
)

// Options configures the Redis connection.
type Options struct {
	// URL is the redis:// connection URL.
	URL string
	// Namespace is prepended to every key, e.g. "typowatch:".
	Namespace string
	// PoolSize is the maximum number of socket connections.
	PoolSize int
	// MinIdleConns is the minimum number of idle connections kept open.
	MinIdleConns int
	// DialTimeout bounds establishing new connections.
	DialTimeout time.Duration
	// ReadTimeout bounds socket reads.
	ReadTimeout time.Duration
	// WriteTimeout bounds socket writes.
	WriteTimeout time.Duration
	// ScanCount is the COUNT hint passed to SCAN.
	ScanCount int64
}

// compareAndSwap replaces KEYS[1] with ARGV[3] when it is absent (ARGV[1] ==
// "1") or currently equals ARGV[2].
//
//nolint: gochecknoglobals
var compareAndSwap = redis.NewScript(`
local cur = redis.call('GET', KEYS[1])
if ARGV[1] == '1' then
  if cur then return 0 end
else
  if (not cur) or cur ~= ARGV[2] then return 0 end
end
redis.call('SET', KEYS[1], ARGV[3])
return 1
`)

// Store implements storage.Store and storage.Swapper on top of go-redis.
type Store struct {
	client    *redis.Client
	namespace string
	scanCount int64
}

// New connects to Redis and verifies the connection with a PING.
func New(ctx context.Context, options Options) (*Store, error) {
	opts, err := redis.ParseURL(options.URL)
	if err != nil {
		return nil, fmt.Errorf("could not parse redis URL: %w", err)
	}
	if options.PoolSize > 0 {
		opts.PoolSize = options.PoolSize
	}
	if options.MinIdleConns > 0 {
		opts.MinIdleConns = options.MinIdleConns
	}
	if options.DialTimeout > 0 {
		opts.DialTimeout = options.DialTimeout
	}
	if options.ReadTimeout > 0 {
		opts.ReadTimeout = options.ReadTimeout
	}
	if options.WriteTimeout > 0 {
		opts.WriteTimeout = options.WriteTimeout
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return NewFromClient(client, options.Namespace, options.ScanCount), nil
}

// NewFromClient wraps an existing client.
func NewFromClient(client *redis.Client, namespace string, scanCount int64) *Store {
	if scanCount <= 0 {
		scanCount = 100
	}

	return &Store{client: client, namespace: namespace, scanCount: scanCount}
}

// Get implements storage.Store.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.client.Get(ctx, s.namespace+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("could not get key from redis: %w", err)
	}

	return v, nil
}

// Put implements storage.Store.
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := s.client.Set(ctx, s.namespace+key, value, 0).Err(); err != nil {
		return fmt.Errorf("could not set key in redis: %w", err)
	}

	return nil
}

// Delete implements storage.Store.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.namespace+key).Err(); err != nil {
		return fmt.Errorf("could not delete key from redis: %w", err)
	}

	return nil
}

// ScanPrefix implements storage.Store. Keys are collected with SCAN and read
// with a single MGET; keys deleted in between are skipped.
func (s *Store) ScanPrefix(ctx context.Context, prefix string) ([]storage.KV, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, escapeGlob(s.namespace+prefix)+"*", s.scanCount).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("could not scan redis keys: %w", err)
	}
	if len(keys) == 0 {
		return nil, nil
	}
	keys = uniqueSorted(keys)

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("could not read redis keys: %w", err)
	}

	out := make([]storage.KV, 0, len(keys))
	for i, v := range values {
		str, ok := v.(string)
		if !ok {
			continue
		}
		out = append(out, storage.KV{Key: strings.TrimPrefix(keys[i], s.namespace), Value: []byte(str)})
	}

	return out, nil
}

// CompareAndSwap implements storage.Swapper with a Lua script so the check and
// the write happen atomically on the server.
func (s *Store) CompareAndSwap(ctx context.Context, key string, prev, next []byte) (bool, error) {
	absent := "0"
	if prev == nil {
		absent = "1"
	}

	n, err := compareAndSwap.Run(ctx, s.client, []string{s.namespace + key}, absent, prev, next).Int()
	if err != nil {
		return false, fmt.Errorf("could not swap key in redis: %w", err)
	}

	return n == 1, nil
}

// Health checks if the Redis connection is healthy.
func (s *Store) Health(ctx context.Context) error {
	return s.client.Ping(ctx).Err() //nolint: wrapcheck
}

// Close implements storage.Store.
func (s *Store) Close() error {
	return s.client.Close() //nolint: wrapcheck
}

var (
	_ storage.Store   = (*Store)(nil)
	_ storage.Swapper = (*Store)(nil)
)

// uniqueSorted sorts keys and drops the duplicates SCAN may return when the
// keyspace is rehashed during iteration.
func uniqueSorted(keys []string) []string {
	slices.Sort(keys)

	return slices.Compact(keys)
}

// escapeGlob escapes the characters SCAN MATCH treats as patterns.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}

	return b.String()
}
