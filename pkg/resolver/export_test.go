package resolver

import (
	"context"
	"net"
)

type LookupFunc func(ctx context.Context, network, host string) ([]net.IP, error)

func (f LookupFunc) LookupIP(ctx context.Context, network, host string) ([]net.IP, error) {
	return f(ctx, network, host)
}

// NewWithLookup exposes a DNS resolver backed by a fake lookup function.
func NewWithLookup(options Options, lookup LookupFunc) *DNS {
	return &DNS{options: options, lookuper: lookup}
}
