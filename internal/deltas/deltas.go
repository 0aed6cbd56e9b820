// Package deltas computes the delta reports of monitored domains.
package deltas

import (
	"context"
	"fmt"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"typowatch/internal/config"
	"typowatch/pkg/domain"
	"typowatch/pkg/domainname"
	"typowatch/pkg/fuzzer"
	"typowatch/pkg/logger"
	"typowatch/pkg/repository"
	"typowatch/pkg/resolver"
)

// Options configure how delta reports are computed.
type Options struct {
	// ResolveConcurrency bounds the number of variants resolved at once.
	ResolveConcurrency int
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		ResolveConcurrency: cfg.Deltas.ResolveConcurrency,
	}
}

// service is the concrete implementation of the Processor interface.
type service struct {
	options  Options
	repo     *repository.Repository
	fuzzer   fuzzer.Fuzzer
	resolver resolver.Resolver
	clock    clockwork.Clock
}

// ProcessDomain implements Processor. A report is written on every call, even
// when nothing changed, because subscribers key their notifications on the
// report timestamp. Domains that are not registered are skipped.
func (s *service) ProcessDomain(ctx context.Context, name string) error {
	name, err := domainname.Normalize(name)
	if err != nil {
		return err
	}
	ctx = logger.WithFields(ctx, zap.String("domain", name))

	registered, err := s.repo.IsDomainRegistered(ctx, name)
	if err != nil {
		return fmt.Errorf("could not check registration: %w", err)
	}
	if !registered {
		logger.Info(ctx, "domain is not registered, skipping delta report")

		return nil
	}

	variants, err := s.fuzzer.Variants(name)
	if err != nil {
		return fmt.Errorf("could not generate variants: %w", err)
	}

	records, err := s.resolve(ctx, variants)
	if err != nil {
		return err
	}

	previous, err := s.repo.GetDeltaReport(ctx, name)
	if err != nil {
		return fmt.Errorf("could not get previous report: %w", err)
	}

	report := Diff(previous, records)
	if err := s.repo.UpdateDeltaReport(ctx, name, report, s.clock.Now()); err != nil {
		return fmt.Errorf("could not update report: %w", err)
	}

	logger.Info(ctx, "delta report updated",
		zap.Int("variants", len(records)),
		zap.Int("new", len(report.New)),
		zap.Int("updated", len(report.Updated)),
		zap.Int("deleted", len(report.Deleted)))

	return nil
}

// resolve looks up every variant and returns the records in variant order.
func (s *service) resolve(ctx context.Context, variants []domain.Variant) ([]domain.Record, error) {
	records := make([]domain.Record, len(variants))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(s.options.ResolveConcurrency, 1))
	for i, v := range variants {
		g.Go(func() error {
			records[i] = domain.Record{Variant: v, Resolution: s.resolver.Resolve(gctx, v.Domain)}

			return nil
		})
	}
	_ = g.Wait()

	// a cancelled run would record every remaining lookup as failed
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("resolution interrupted: %w", err)
	}

	return records, nil
}

// New creates a Processor that stores its reports in repo.
func New(
	repo *repository.Repository,
	fz fuzzer.Fuzzer,
	rs resolver.Resolver,
	clock clockwork.Clock,
	options Options,
) Processor {
	return &service{
		options:  options,
		repo:     repo,
		fuzzer:   fz,
		resolver: rs,
		clock:    clock,
	}
}
