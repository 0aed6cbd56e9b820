package deltas

import "context"

// Processor recomputes the delta report of a domain.
//
//go:generate mockgen -package mockdeltas -source=interface.go -destination=mock/mockdeltas.go *
type Processor interface {
	// ProcessDomain resolves every variant of name and stores the result as the
	// domain's new delta report. Unregistered domains are left alone. Only
	// storage failures are returned for retry.
	ProcessDomain(ctx context.Context, name string) error
}
