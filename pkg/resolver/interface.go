// Package resolver looks up the addresses of generated domain variants.
package resolver

import (
	"context"

	"typowatch/pkg/domain"
)

// Resolver resolves a single name. Lookup failures are reported in the
// returned Resolution rather than as an error, so one failed variant never
// fails a whole report.
//
//go:generate mockgen -package mockresolver -source=interface.go -destination=mock/mockresolver.go *
type Resolver interface {
	Resolve(ctx context.Context, name string) domain.Resolution
}
