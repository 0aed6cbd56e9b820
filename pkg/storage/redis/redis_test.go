package redis_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"typowatch/pkg/storage"
	"typowatch/pkg/storage/redis"
)

func setupTestRedis(t *testing.T, namespace string) *redis.Store {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379"},
			WaitingFor:   wait.ForListeningPort("6379"),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	s, err := redis.New(ctx, redis.Options{
		URL:       fmt.Sprintf("redis://%s:%d/0", host, port.Int()),
		Namespace: namespace,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	return s
}

func TestStore_GetPutDelete(t *testing.T) {
	s := setupTestRedis(t, "test:")
	ctx := context.Background()

	v, err := s.Get(ctx, "domain:a.com")
	require.NoError(t, err)
	require.Nil(t, v)

	bin := []byte{0xa1, 0x00, 0xff}
	require.NoError(t, s.Put(ctx, "domain:a.com", bin))
	v, err = s.Get(ctx, "domain:a.com")
	require.NoError(t, err)
	require.Equal(t, bin, v)

	require.NoError(t, s.Delete(ctx, "domain:a.com"))
	v, err = s.Get(ctx, "domain:a.com")
	require.NoError(t, err)
	require.Nil(t, v)

	require.NoError(t, s.Health(ctx))
}

func TestStore_ScanPrefix(t *testing.T) {
	s := setupTestRedis(t, "test:")
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "email_sub:2", []byte("b")))
	require.NoError(t, s.Put(ctx, "email_sub:1", []byte("a")))
	require.NoError(t, s.Put(ctx, "domain:a.com", []byte("c")))
	// glob characters in keys are matched literally
	require.NoError(t, s.Put(ctx, "weird*:1", []byte("d")))
	require.NoError(t, s.Put(ctx, "weirdo:1", []byte("e")))

	kvs, err := s.ScanPrefix(ctx, "email_sub:")
	require.NoError(t, err)
	require.Equal(t, []storage.KV{
		{Key: "email_sub:1", Value: []byte("a")},
		{Key: "email_sub:2", Value: []byte("b")},
	}, kvs)

	kvs, err = s.ScanPrefix(ctx, "weird*")
	require.NoError(t, err)
	require.Equal(t, []storage.KV{{Key: "weird*:1", Value: []byte("d")}}, kvs)

	kvs, err = s.ScanPrefix(ctx, "delta_report:")
	require.NoError(t, err)
	require.Empty(t, kvs)
}

func TestStore_CompareAndSwap(t *testing.T) {
	s := setupTestRedis(t, "")
	ctx := context.Background()

	swapped, err := s.CompareAndSwap(ctx, "k", nil, []byte("v1"))
	require.NoError(t, err)
	require.True(t, swapped)

	swapped, err = s.CompareAndSwap(ctx, "k", nil, []byte("v1"))
	require.NoError(t, err)
	require.False(t, swapped)

	swapped, err = s.CompareAndSwap(ctx, "k", []byte("stale"), []byte("v2"))
	require.NoError(t, err)
	require.False(t, swapped)

	swapped, err = s.CompareAndSwap(ctx, "k", []byte("v1"), []byte("v2"))
	require.NoError(t, err)
	require.True(t, swapped)

	v, err := s.Get(ctx, "k")
	require.NoError(t, err)
	require.Equal(t, []byte("v2"), v)
}

func TestUniqueSorted(t *testing.T) {
	for name, tt := range map[string]struct {
		in   []string
		want []string
	}{
		"repeated keys": {
			in:   []string{"t:email_sub:2", "t:email_sub:1", "t:email_sub:2", "t:email_sub:1", "t:email_sub:3"},
			want: []string{"t:email_sub:1", "t:email_sub:2", "t:email_sub:3"},
		},
		"already unique": {
			in:   []string{"t:domain:b.com", "t:domain:a.com"},
			want: []string{"t:domain:a.com", "t:domain:b.com"},
		},
		"single": {
			in:   []string{"t:domain:a.com"},
			want: []string{"t:domain:a.com"},
		},
	} {
		t.Run(name, func(t *testing.T) {
			require.Equal(t, tt.want, redis.UniqueSorted(tt.in))
		})
	}
}
