// Package repository is the typed schema the workers and the API use to read
// and write monitoring state. It owns the key layout of the underlying
// storage.Store and the encoding of every stored record.
package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jonboulle/clockwork"

	"typowatch/pkg/codec"
	"typowatch/pkg/domain"
	"typowatch/pkg/domainname"
	"typowatch/pkg/serrors"
	"typowatch/pkg/storage"
)

const (
	domainPrefix       = "domain:"
	deltaReportPrefix  = "delta_report:"
	subscriptionPrefix = "email_sub:"

	// maxSwapAttempts bounds how often a read-modify-write is retried when a
	// concurrent writer changed the record between the read and the swap.
	maxSwapAttempts = 5
)

// Repository persists registrations, delta reports and subscriptions in a
// storage.Store. It holds no state of its own between calls.
type Repository struct {
	store    storage.Store
	swapper  storage.Swapper
	clock    clockwork.Clock
	validate *validator.Validate
}

// New creates a Repository over store. When store also implements
// storage.Swapper, subscription updates are applied with compare-and-swap;
// otherwise they fall back to read-check-write.
func New(store storage.Store, clock clockwork.Clock) *Repository {
	swapper, _ := store.(storage.Swapper)

	return &Repository{
		store:    store,
		swapper:  swapper,
		clock:    clock,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

func domainKey(name string) string                    { return domainPrefix + name }
func deltaReportKey(name string) string               { return deltaReportPrefix + name }
func subscriptionKey(id domain.SubscriptionID) string { return subscriptionPrefix + string(id) }

// IsDomainRegistered reports whether name is actively monitored.
func (r *Repository) IsDomainRegistered(ctx context.Context, name string) (bool, error) {
	reg, err := r.registration(ctx, name)
	if err != nil {
		return false, err
	}

	return reg != nil, nil
}

// Registration returns the registration of name, or nil when it is not registered.
func (r *Repository) Registration(ctx context.Context, name string) (*domain.Registration, error) {
	return r.registration(ctx, name)
}

// RegisterDomainForDelta marks name as actively monitored. Registering an
// already registered domain is a no-op.
func (r *Repository) RegisterDomainForDelta(ctx context.Context, name string) error {
	name, err := domainname.Normalize(name)
	if err != nil {
		return err
	}

	now := r.now()
	value, err := codec.Marshal(domain.Registration{Domain: name, RegisteredAt: now, LastReadAt: now})
	if err != nil {
		return serrors.Wrap(serrors.ErrInternal, err, "could not encode registration")
	}

	key := domainKey(name)
	if r.swapper != nil {
		// losing the race means somebody else registered it first, which is fine
		if _, err := r.swapper.CompareAndSwap(ctx, key, nil, value); err != nil {
			return serrors.Wrap(serrors.ErrStorage, err, "could not register domain %q", name)
		}

		return nil
	}

	existing, err := r.store.Get(ctx, key)
	if err != nil {
		return serrors.Wrap(serrors.ErrStorage, err, "could not read registration of %q", name)
	}
	if existing != nil {
		return nil
	}
	if err := r.store.Put(ctx, key, value); err != nil {
		return serrors.Wrap(serrors.ErrStorage, err, "could not register domain %q", name)
	}

	return nil
}

// DeregisterDomain stops monitoring name and drops its delta report. The
// registration goes first so a report never outlives it while still registered.
func (r *Repository) DeregisterDomain(ctx context.Context, name string) error {
	name, err := domainname.Normalize(name)
	if err != nil {
		return err
	}

	if err := r.store.Delete(ctx, domainKey(name)); err != nil {
		return serrors.Wrap(serrors.ErrStorage, err, "could not delete registration of %q", name)
	}
	if err := r.store.Delete(ctx, deltaReportKey(name)); err != nil {
		return serrors.Wrap(serrors.ErrStorage, err, "could not delete delta report of %q", name)
	}

	return nil
}

// RegisteredDomains lists every registration ordered by domain name.
func (r *Repository) RegisteredDomains(ctx context.Context) ([]domain.Registration, error) {
	kvs, err := r.store.ScanPrefix(ctx, domainPrefix)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrStorage, err, "could not list registrations")
	}

	res := make([]domain.Registration, 0, len(kvs))
	for _, kv := range kvs {
		var reg domain.Registration
		if err := codec.Unmarshal(kv.Value, &reg); err != nil {
			return nil, serrors.Wrap(serrors.ErrInternal, err, "could not decode %s", kv.Key)
		}
		res = append(res, reg)
	}

	return res, nil
}

// MarkDeltaReportRead refreshes the LastReadAt of name's registration. It is a
// no-op for domains that are not registered.
func (r *Repository) MarkDeltaReportRead(ctx context.Context, name string) error {
	name, err := domainname.Normalize(name)
	if err != nil {
		return err
	}

	key := domainKey(name)
	for range maxSwapAttempts {
		raw, err := r.store.Get(ctx, key)
		if err != nil {
			return serrors.Wrap(serrors.ErrStorage, err, "could not read registration of %q", name)
		}
		if raw == nil {
			return nil
		}

		var reg domain.Registration
		if err := codec.Unmarshal(raw, &reg); err != nil {
			return serrors.Wrap(serrors.ErrInternal, err, "could not decode %s", key)
		}
		reg.LastReadAt = r.now()

		swapped, err := r.swap(ctx, key, raw, reg)
		if err != nil {
			return err
		}
		if swapped {
			return nil
		}
	}

	return serrors.With(serrors.ErrConflict, "registration of %q keeps changing", name)
}

// UpdateDeltaReport overwrites the current delta report of name with report
// stamped at computedAt. The write is a single-key overwrite so readers never
// observe a partial report.
func (r *Repository) UpdateDeltaReport(
	ctx context.Context,
	name string,
	report domain.DeltaReport,
	computedAt time.Time,
) error {
	name, err := domainname.Normalize(name)
	if err != nil {
		return err
	}

	report.Domain = name
	report.ComputedAt = computedAt.UTC()

	value, err := codec.Marshal(report)
	if err != nil {
		return serrors.Wrap(serrors.ErrInternal, err, "could not encode delta report")
	}
	if err := r.store.Put(ctx, deltaReportKey(name), value); err != nil {
		return serrors.Wrap(serrors.ErrStorage, err, "could not store delta report of %q", name)
	}

	return nil
}

// GetDeltaReport returns the current delta report of name, or nil when none
// has been computed yet.
func (r *Repository) GetDeltaReport(ctx context.Context, name string) (*domain.DeltaReport, error) {
	name, err := domainname.Normalize(name)
	if err != nil {
		return nil, err
	}

	var report domain.DeltaReport
	found, err := r.get(ctx, deltaReportKey(name), &report)
	if err != nil || !found {
		return nil, err
	}

	return &report, nil
}

// SubscribeEmail creates or overwrites subscription id for email on name with
// no email sent yet. It does not register the domain for delta computation.
func (r *Repository) SubscribeEmail(ctx context.Context, id domain.SubscriptionID, email, name string) error {
	if strings.TrimSpace(string(id)) == "" {
		return serrors.With(serrors.ErrValidation, "subscription id is required")
	}
	email = strings.TrimSpace(email)
	if err := r.validate.VarCtx(ctx, email, "required,email"); err != nil {
		return serrors.Wrap(serrors.ErrValidation, err, "invalid email %q", email)
	}
	name, err := domainname.Normalize(name)
	if err != nil {
		return err
	}

	value, err := codec.Marshal(domain.Subscription{
		ID:        id,
		Email:     email,
		Domain:    name,
		CreatedAt: r.now(),
	})
	if err != nil {
		return serrors.Wrap(serrors.ErrInternal, err, "could not encode subscription")
	}
	if err := r.store.Put(ctx, subscriptionKey(id), value); err != nil {
		return serrors.Wrap(serrors.ErrStorage, err, "could not store subscription %s", id)
	}

	return nil
}

// GetSubscription returns subscription id, or nil when it does not exist.
func (r *Repository) GetSubscription(ctx context.Context, id domain.SubscriptionID) (*domain.Subscription, error) {
	var sub domain.Subscription
	found, err := r.get(ctx, subscriptionKey(id), &sub)
	if err != nil || !found {
		return nil, err
	}

	return &sub, nil
}

// Subscriptions lists every subscription ordered by id.
func (r *Repository) Subscriptions(ctx context.Context) ([]domain.Subscription, error) {
	kvs, err := r.store.ScanPrefix(ctx, subscriptionPrefix)
	if err != nil {
		return nil, serrors.Wrap(serrors.ErrStorage, err, "could not list subscriptions")
	}

	res := make([]domain.Subscription, 0, len(kvs))
	for _, kv := range kvs {
		var sub domain.Subscription
		if err := codec.Unmarshal(kv.Value, &sub); err != nil {
			return nil, serrors.Wrap(serrors.ErrInternal, err, "could not decode %s", kv.Key)
		}
		res = append(res, sub)
	}

	return res, nil
}

// Unsubscribe deletes subscription id. It returns a not-found error when the
// subscription does not exist.
func (r *Repository) Unsubscribe(ctx context.Context, id domain.SubscriptionID) error {
	sub, err := r.GetSubscription(ctx, id)
	if err != nil {
		return err
	}
	if sub == nil {
		return serrors.With(serrors.ErrNotFound, "subscription %s not found", id)
	}
	if err := r.store.Delete(ctx, subscriptionKey(id)); err != nil {
		return serrors.Wrap(serrors.ErrStorage, err, "could not delete subscription %s", id)
	}

	return nil
}

// UpdateLastEmailSubSentDate sets only the LastEmailSentAt of subscription id.
// It returns a not-found error when the subscription no longer exists.
func (r *Repository) UpdateLastEmailSubSentDate(ctx context.Context, id domain.SubscriptionID, sentAt time.Time) error {
	sentAt = sentAt.UTC()
	_, err := r.mutateSubscription(ctx, id, func(sub *domain.Subscription) bool {
		sub.LastEmailSentAt = &sentAt

		return true
	})

	return err
}

// ClaimEmailSend moves the LastEmailSentAt of subscription id from observed to
// sentAt, provided it still equals observed. It reports false when another
// invocation moved the field first, so at most one caller wins per value.
func (r *Repository) ClaimEmailSend(
	ctx context.Context,
	id domain.SubscriptionID,
	observed *time.Time,
	sentAt time.Time,
) (bool, error) {
	sentAt = sentAt.UTC()

	return r.mutateSubscription(ctx, id, func(sub *domain.Subscription) bool {
		if !sameTime(sub.LastEmailSentAt, observed) {
			return false
		}
		sub.LastEmailSentAt = &sentAt

		return true
	})
}

// ReleaseEmailSend reverts a claim made with ClaimEmailSend back to previous.
// Nothing happens when the claim was already superseded or the subscription
// is gone.
func (r *Repository) ReleaseEmailSend(
	ctx context.Context,
	id domain.SubscriptionID,
	claimed time.Time,
	previous *time.Time,
) error {
	_, err := r.mutateSubscription(ctx, id, func(sub *domain.Subscription) bool {
		if !sameTime(sub.LastEmailSentAt, &claimed) {
			return false
		}
		if previous == nil {
			sub.LastEmailSentAt = nil
		} else {
			p := previous.UTC()
			sub.LastEmailSentAt = &p
		}

		return true
	})
	if errors.Is(err, serrors.ErrNotFound) {
		return nil
	}

	return err
}

// mutateSubscription applies mutate to the stored subscription id and writes
// it back. mutate returning false leaves the record untouched.
func (r *Repository) mutateSubscription(
	ctx context.Context,
	id domain.SubscriptionID,
	mutate func(sub *domain.Subscription) bool,
) (bool, error) {
	key := subscriptionKey(id)
	for range maxSwapAttempts {
		raw, err := r.store.Get(ctx, key)
		if err != nil {
			return false, serrors.Wrap(serrors.ErrStorage, err, "could not read subscription %s", id)
		}
		if raw == nil {
			return false, serrors.With(serrors.ErrNotFound, "subscription %s not found", id)
		}

		var sub domain.Subscription
		if err := codec.Unmarshal(raw, &sub); err != nil {
			return false, serrors.Wrap(serrors.ErrInternal, err, "could not decode %s", key)
		}
		if !mutate(&sub) {
			return false, nil
		}

		swapped, err := r.swap(ctx, key, raw, sub)
		if err != nil {
			return false, err
		}
		if swapped {
			return true, nil
		}
	}

	return false, serrors.With(serrors.ErrConflict, "subscription %s keeps changing", id)
}

// swap writes v under key if the stored value is still prev.
func (r *Repository) swap(ctx context.Context, key string, prev []byte, v any) (bool, error) {
	next, err := codec.Marshal(v)
	if err != nil {
		return false, serrors.Wrap(serrors.ErrInternal, err, "could not encode %s", key)
	}

	if r.swapper != nil {
		swapped, err := r.swapper.CompareAndSwap(ctx, key, prev, next)
		if err != nil {
			return false, serrors.Wrap(serrors.ErrStorage, err, "could not update %s", key)
		}

		return swapped, nil
	}

	if err := r.store.Put(ctx, key, next); err != nil {
		return false, serrors.Wrap(serrors.ErrStorage, err, "could not update %s", key)
	}

	return true, nil
}

func (r *Repository) registration(ctx context.Context, name string) (*domain.Registration, error) {
	name, err := domainname.Normalize(name)
	if err != nil {
		return nil, err
	}

	var reg domain.Registration
	found, err := r.get(ctx, domainKey(name), &reg)
	if err != nil || !found {
		return nil, err
	}

	return &reg, nil
}

func (r *Repository) get(ctx context.Context, key string, v any) (bool, error) {
	raw, err := r.store.Get(ctx, key)
	if err != nil {
		return false, serrors.Wrap(serrors.ErrStorage, err, "could not read %s", key)
	}
	if raw == nil {
		return false, nil
	}
	if err := codec.Unmarshal(raw, v); err != nil {
		return false, serrors.Wrap(serrors.ErrInternal, fmt.Errorf("%s: %w", key, err), "could not decode record")
	}

	return true, nil
}

func (r *Repository) now() time.Time { return r.clock.Now().UTC() }

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	return a.Equal(*b)
}
