package resolver

import (
	"context"
	"errors"
	"net"
	"time"

	"go.uber.org/zap"

	"typowatch/pkg/domain"
	"typowatch/pkg/logger"
)

// Options configure DNS resolution.
type Options struct {
	// Timeout bounds a single lookup.
	Timeout time.Duration
	// Server is an optional "host:port" of the DNS server to query instead of
	// the system resolver.
	Server string
}

type ipLookuper interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
}

// DNS resolves names to their first IPv4 address.
type DNS struct {
	options  Options
	lookuper ipLookuper
}

// Resolve implements Resolver. A name that does not exist yields an empty
// Resolution; any other failure, including a timeout, sets Error.
func (d *DNS) Resolve(ctx context.Context, name string) domain.Resolution {
	if d.options.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.options.Timeout)
		defer cancel()
	}

	ips, err := d.lookuper.LookupIP(ctx, "ip4", name)
	if err != nil {
		var dnsErr *net.DNSError
		if errors.As(err, &dnsErr) && dnsErr.IsNotFound {
			return domain.Resolution{}
		}
		logger.Debug(ctx, "could not resolve variant", zap.String("name", name), zap.Error(err))

		return domain.Resolution{Error: true}
	}
	if len(ips) == 0 {
		return domain.Resolution{}
	}

	return domain.Resolution{IP: ips[0].String()}
}

// New creates a DNS Resolver. When options.Server is set, queries go to that
// server through the pure Go resolver.
func New(options Options) *DNS {
	r := &net.Resolver{}
	if options.Server != "" {
		dialer := &net.Dialer{Timeout: options.Timeout}
		r = &net.Resolver{
			PreferGo: true,
			Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
				return dialer.DialContext(ctx, network, options.Server)
			},
		}
	}

	return &DNS{options: options, lookuper: r}
}
