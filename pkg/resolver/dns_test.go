package resolver_test

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"typowatch/pkg/domain"
	"typowatch/pkg/resolver"
)

func TestDNS_Resolve(t *testing.T) {
	tests := []struct {
		name     string
		ips      []net.IP
		err      error
		expected domain.Resolution
	}{
		{
			name:     "resolves",
			ips:      []net.IP{net.ParseIP("192.0.2.10"), net.ParseIP("192.0.2.11")},
			expected: domain.Resolution{IP: "192.0.2.10"},
		},
		{
			name:     "does not exist",
			err:      &net.DNSError{Err: "no such host", Name: "aa.com", IsNotFound: true},
			expected: domain.Resolution{},
		},
		{
			name:     "no addresses",
			expected: domain.Resolution{},
		},
		{
			name:     "server failure",
			err:      &net.DNSError{Err: "server misbehaving", Name: "aa.com", IsTemporary: true},
			expected: domain.Resolution{Error: true},
		},
		{
			name:     "other error",
			err:      errors.New("boom"),
			expected: domain.Resolution{Error: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := resolver.NewWithLookup(resolver.Options{}, func(_ context.Context, network, host string) ([]net.IP, error) {
				require.Equal(t, "ip4", network)
				require.Equal(t, "aa.com", host)

				return tt.ips, tt.err
			})

			require.Equal(t, tt.expected, r.Resolve(context.Background(), "aa.com"))
		})
	}
}

func TestDNS_ResolveTimeout(t *testing.T) {
	r := resolver.NewWithLookup(resolver.Options{Timeout: 10 * time.Millisecond},
		func(ctx context.Context, _, _ string) ([]net.IP, error) {
			deadline, ok := ctx.Deadline()
			require.True(t, ok)
			require.WithinDuration(t, time.Now().Add(10*time.Millisecond), deadline, time.Second)
			<-ctx.Done()

			return nil, ctx.Err()
		})

	res := r.Resolve(context.Background(), "aa.com")
	require.True(t, res.Error)
	require.False(t, res.Resolved())
}
