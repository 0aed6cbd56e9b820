// Package notify decides when subscribers are emailed about their domain's
// delta report and sends the emails.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"typowatch/internal/config"
	"typowatch/pkg/domain"
	"typowatch/pkg/logger"
	"typowatch/pkg/mailer"
	"typowatch/pkg/repository"
	"typowatch/pkg/serrors"
)

// Options configure when notifications are sent and how they link back.
type Options struct {
	// MinInterval is the minimum time between two emails to one subscription.
	MinInterval time.Duration
	// MaxReportAge holds back reports older than this.
	MaxReportAge time.Duration
	// BaseURL is the public address used for report and unsubscribe links.
	BaseURL string
}

// NewOptions constructs an Options value from the provided application config.
func NewOptions(cfg *config.Config) Options {
	return Options{
		MinInterval:  cfg.Emails.MinInterval,
		MaxReportAge: cfg.Emails.MaxReportAge,
		BaseURL:      cfg.Site.BaseURL,
	}
}

// service is the concrete implementation of the Processor interface.
type service struct {
	options Options
	repo    *repository.Repository
	mailer  mailer.Mailer
	clock   clockwork.Clock
}

// ProcessSub implements Processor.
//
// The first run for a subscription only registers its domain for delta
// reports. Later runs mail the current report once the Gate allows it. The
// send is claimed in storage before the mailer is called, so two concurrent
// runs for the same subscription cannot both send; a failed send gives the
// claim back and is returned for retry.
func (s *service) ProcessSub(ctx context.Context, id domain.SubscriptionID, sub domain.Subscription) error {
	ctx = logger.WithFields(ctx, zap.String("subscription", string(id)))

	current, err := s.repo.GetSubscription(ctx, id)
	if err != nil {
		return fmt.Errorf("could not get subscription: %w", err)
	}
	if current == nil {
		logger.Debug(ctx, "subscription is gone, nothing to do")

		return nil
	}
	if sub.Email == "" {
		sub.Email = current.Email
	}
	if sub.Domain == "" {
		sub.Domain = current.Domain
	}
	sub.ID = id
	ctx = logger.WithFields(ctx, zap.String("domain", sub.Domain))

	registered, err := s.repo.IsDomainRegistered(ctx, sub.Domain)
	if err != nil {
		return fmt.Errorf("could not check registration: %w", err)
	}
	if !registered {
		if err := s.repo.RegisterDomainForDelta(ctx, sub.Domain); err != nil {
			return fmt.Errorf("could not register domain: %w", err)
		}
		logger.Info(ctx, "domain registered for delta reports")

		return nil
	}

	report, err := s.repo.GetDeltaReport(ctx, sub.Domain)
	if err != nil {
		return fmt.Errorf("could not get report: %w", err)
	}
	if report == nil {
		logger.Debug(ctx, "no report yet")

		return nil
	}

	now := s.clock.Now()
	if !Gate(s.options, now, current.LastEmailSentAt, report.ComputedAt) {
		logger.Debug(ctx, "email not due", zap.Time("computedAt", report.ComputedAt))

		return nil
	}

	return s.send(ctx, sub, current.LastEmailSentAt, *report, now)
}

func (s *service) send(
	ctx context.Context,
	sub domain.Subscription,
	lastSent *time.Time,
	report domain.DeltaReport,
	now time.Time,
) error {
	msg, err := Compose(s.options, sub, report)
	if err != nil {
		return err
	}

	claimed, err := s.repo.ClaimEmailSend(ctx, sub.ID, lastSent, now)
	if errors.Is(err, serrors.ErrNotFound) {
		logger.Debug(ctx, "subscription vanished before sending")

		return nil
	}
	if err != nil {
		return fmt.Errorf("could not claim email: %w", err)
	}
	if !claimed {
		logger.Info(ctx, "email already sent by a concurrent run")

		return nil
	}

	if err := s.mailer.Send(ctx, msg); err != nil {
		if rerr := s.repo.ReleaseEmailSend(ctx, sub.ID, now, lastSent); rerr != nil {
			logger.Error(ctx, "could not release email claim", zap.Error(rerr))
		}

		return fmt.Errorf("could not send email: %w", err)
	}
	logger.Info(ctx, "notification sent", zap.Time("computedAt", report.ComputedAt))

	return nil
}

// New creates a Processor that reads state from repo and delivers through m.
func New(repo *repository.Repository, m mailer.Mailer, clock clockwork.Clock, options Options) Processor {
	return &service{
		options: options,
		repo:    repo,
		mailer:  m,
		clock:   clock,
	}
}
