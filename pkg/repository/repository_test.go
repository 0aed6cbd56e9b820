package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"typowatch/pkg/domain"
	"typowatch/pkg/repository"
	"typowatch/pkg/serrors"
	"typowatch/pkg/storage"
	"typowatch/pkg/storage/memory"
	mockstorage "typowatch/pkg/storage/mock"
)

const (
	subID    = domain.SubscriptionID("1234")
	email    = "a@b.example"
	watchDom = "www.example.com"
)

//nolint: gochecknoglobals
var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// plainStore hides CompareAndSwap so the read-check-write fallback is exercised.
type plainStore struct{ storage.Store }

func newTestRepository(t *testing.T) (*repository.Repository, *clockwork.FakeClock) {
	t.Helper()

	clock := clockwork.NewFakeClockAt(epoch)

	return repository.New(memory.New(), clock), clock
}

func TestRepository_SubscribeDoesNotRegister(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	require.NoError(t, repo.SubscribeEmail(ctx, subID, email, "WWW.Example.COM."))

	registered, err := repo.IsDomainRegistered(ctx, watchDom)
	require.NoError(t, err)
	require.False(t, registered)

	sub, err := repo.GetSubscription(ctx, subID)
	require.NoError(t, err)
	require.NotNil(t, sub)
	require.Equal(t, subID, sub.ID)
	require.Equal(t, email, sub.Email)
	require.Equal(t, watchDom, sub.Domain)
	require.True(t, sub.CreatedAt.Equal(epoch))
	require.Nil(t, sub.LastEmailSentAt)
}

func TestRepository_SubscribeEmail_Validation(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	tests := []struct {
		name   string
		id     domain.SubscriptionID
		email  string
		domain string
	}{
		{name: "empty id", id: "", email: email, domain: watchDom},
		{name: "bad email", id: subID, email: "not-an-email", domain: watchDom},
		{name: "empty email", id: subID, email: " ", domain: watchDom},
		{name: "bad domain", id: subID, email: email, domain: "no_dots"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.SubscribeEmail(ctx, tt.id, tt.email, tt.domain)
			require.ErrorIs(t, err, serrors.ErrValidation)
		})
	}

	subs, err := repo.Subscriptions(ctx)
	require.NoError(t, err)
	require.Empty(t, subs)
}

func TestRepository_ResubscribeResetsLastSent(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	require.NoError(t, repo.SubscribeEmail(ctx, subID, email, watchDom))
	require.NoError(t, repo.UpdateLastEmailSubSentDate(ctx, subID, epoch))
	require.NoError(t, repo.SubscribeEmail(ctx, subID, email, watchDom))

	sub, err := repo.GetSubscription(ctx, subID)
	require.NoError(t, err)
	require.Nil(t, sub.LastEmailSentAt)
}

func TestRepository_RegisterDomainForDelta_Idempotent(t *testing.T) {
	for name, store := range map[string]storage.Store{
		"swapper": memory.New(),
		"plain":   plainStore{memory.New()},
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := clockwork.NewFakeClockAt(epoch)
			repo := repository.New(store, clock)

			require.NoError(t, repo.RegisterDomainForDelta(ctx, watchDom))
			clock.Advance(time.Hour)
			require.NoError(t, repo.RegisterDomainForDelta(ctx, watchDom))

			reg, err := repo.Registration(ctx, watchDom)
			require.NoError(t, err)
			require.NotNil(t, reg)
			require.True(t, reg.RegisteredAt.Equal(epoch), "second registration must not reset the first")

			regs, err := repo.RegisteredDomains(ctx)
			require.NoError(t, err)
			require.Len(t, regs, 1)
			require.Equal(t, watchDom, regs[0].Domain)
		})
	}
}

func TestRepository_MarkDeltaReportRead(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepository(t)

	// unregistered domains are left alone
	require.NoError(t, repo.MarkDeltaReportRead(ctx, watchDom))
	registered, err := repo.IsDomainRegistered(ctx, watchDom)
	require.NoError(t, err)
	require.False(t, registered)

	require.NoError(t, repo.RegisterDomainForDelta(ctx, watchDom))
	clock.Advance(48 * time.Hour)
	require.NoError(t, repo.MarkDeltaReportRead(ctx, watchDom))

	reg, err := repo.Registration(ctx, watchDom)
	require.NoError(t, err)
	require.True(t, reg.RegisteredAt.Equal(epoch))
	require.True(t, reg.LastReadAt.Equal(epoch.Add(48*time.Hour)))
}

func TestRepository_DeltaReportOverwrite(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepository(t)

	report, err := repo.GetDeltaReport(ctx, watchDom)
	require.NoError(t, err)
	require.Nil(t, report)

	first := domain.DeltaReport{Records: []domain.Record{
		{Variant: domain.Variant{Fuzzer: "Addition", Domain: "wwwa.example.com"}},
	}}
	require.NoError(t, repo.UpdateDeltaReport(ctx, watchDom, first, clock.Now()))

	clock.Advance(time.Minute)
	second := domain.DeltaReport{Records: []domain.Record{
		{
			Variant:    domain.Variant{Fuzzer: "Addition", Domain: "wwwa.example.com"},
			Resolution: domain.Resolution{IP: "192.0.2.7"},
		},
	}}
	require.NoError(t, repo.UpdateDeltaReport(ctx, watchDom, second, clock.Now()))

	report, err = repo.GetDeltaReport(ctx, watchDom)
	require.NoError(t, err)
	require.NotNil(t, report)
	require.Equal(t, watchDom, report.Domain)
	require.True(t, report.ComputedAt.Equal(epoch.Add(time.Minute)))
	require.Equal(t, "192.0.2.7", report.Records[0].IP)
}

func TestRepository_DeregisterDomain(t *testing.T) {
	ctx := context.Background()
	repo, clock := newTestRepository(t)

	require.NoError(t, repo.RegisterDomainForDelta(ctx, watchDom))
	require.NoError(t, repo.UpdateDeltaReport(ctx, watchDom, domain.DeltaReport{}, clock.Now()))
	require.NoError(t, repo.DeregisterDomain(ctx, watchDom))

	registered, err := repo.IsDomainRegistered(ctx, watchDom)
	require.NoError(t, err)
	require.False(t, registered)

	report, err := repo.GetDeltaReport(ctx, watchDom)
	require.NoError(t, err)
	require.Nil(t, report)
}

func TestRepository_Unsubscribe(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	require.ErrorIs(t, repo.Unsubscribe(ctx, subID), serrors.ErrNotFound)

	require.NoError(t, repo.SubscribeEmail(ctx, subID, email, watchDom))
	require.NoError(t, repo.Unsubscribe(ctx, subID))

	sub, err := repo.GetSubscription(ctx, subID)
	require.NoError(t, err)
	require.Nil(t, sub)
}

func TestRepository_UpdateLastEmailSubSentDate_NotFound(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	err := repo.UpdateLastEmailSubSentDate(ctx, subID, epoch)
	require.ErrorIs(t, err, serrors.ErrNotFound)
}

func TestRepository_ClaimEmailSend(t *testing.T) {
	for name, store := range map[string]storage.Store{
		"swapper": memory.New(),
		"plain":   plainStore{memory.New()},
	} {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			repo := repository.New(store, clockwork.NewFakeClockAt(epoch))
			require.NoError(t, repo.SubscribeEmail(ctx, subID, email, watchDom))

			claimed, err := repo.ClaimEmailSend(ctx, subID, nil, epoch)
			require.NoError(t, err)
			require.True(t, claimed)

			// a second invocation that read the same stale value loses
			claimed, err = repo.ClaimEmailSend(ctx, subID, nil, epoch.Add(time.Second))
			require.NoError(t, err)
			require.False(t, claimed)

			sub, err := repo.GetSubscription(ctx, subID)
			require.NoError(t, err)
			require.NotNil(t, sub.LastEmailSentAt)
			require.True(t, sub.LastEmailSentAt.Equal(epoch))

			next := epoch.Add(24 * time.Hour)
			claimed, err = repo.ClaimEmailSend(ctx, subID, sub.LastEmailSentAt, next)
			require.NoError(t, err)
			require.True(t, claimed)

			require.NoError(t, repo.ReleaseEmailSend(ctx, subID, next, sub.LastEmailSentAt))
			sub, err = repo.GetSubscription(ctx, subID)
			require.NoError(t, err)
			require.True(t, sub.LastEmailSentAt.Equal(epoch))

			// releasing a superseded claim changes nothing
			require.NoError(t, repo.ReleaseEmailSend(ctx, subID, next, nil))
			sub, err = repo.GetSubscription(ctx, subID)
			require.NoError(t, err)
			require.True(t, sub.LastEmailSentAt.Equal(epoch))
		})
	}
}

func TestRepository_ClaimEmailSend_NotFound(t *testing.T) {
	ctx := context.Background()
	repo, _ := newTestRepository(t)

	_, err := repo.ClaimEmailSend(ctx, subID, nil, epoch)
	require.ErrorIs(t, err, serrors.ErrNotFound)

	require.NoError(t, repo.ReleaseEmailSend(ctx, subID, epoch, nil))
}

func TestRepository_ClaimEmailSend_ConcurrentWriter(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	backing := memory.New()
	repo := repository.New(backing, clockwork.NewFakeClockAt(epoch))
	require.NoError(t, repo.SubscribeEmail(ctx, subID, email, watchDom))

	// another worker claims between our read and our swap
	st := &racingStore{Store: backing, swap: mockstorage.NewMockSwapper(ctrl)}
	st.swap.EXPECT().CompareAndSwap(gomock.Any(), "email_sub:1234", gomock.Any(), gomock.Any()).
		DoAndReturn(func(ctx context.Context, key string, _, _ []byte) (bool, error) {
			require.NoError(t, repo.UpdateLastEmailSubSentDate(ctx, subID, epoch))

			return false, nil
		})

	claimed, err := repository.New(st, clockwork.NewFakeClockAt(epoch)).
		ClaimEmailSend(ctx, subID, nil, epoch.Add(time.Second))
	require.NoError(t, err)
	require.False(t, claimed, "re-read must see the competing claim")
}

type racingStore struct {
	storage.Store
	swap *mockstorage.MockSwapper
}

func (s *racingStore) CompareAndSwap(ctx context.Context, key string, prev, next []byte) (bool, error) {
	return s.swap.CompareAndSwap(ctx, key, prev, next)
}

func TestRepository_StorageErrors(t *testing.T) {
	ctx := context.Background()
	ctrl := gomock.NewController(t)
	st := mockstorage.NewMockStore(ctrl)
	repo := repository.New(st, clockwork.NewFakeClockAt(epoch))
	boom := errors.New("connection reset")

	st.EXPECT().Put(gomock.Any(), "delta_report:"+watchDom, gomock.Any()).Return(boom)
	err := repo.UpdateDeltaReport(ctx, watchDom, domain.DeltaReport{}, epoch)
	require.ErrorIs(t, err, serrors.ErrStorage)
	require.ErrorIs(t, err, boom)

	st.EXPECT().Get(gomock.Any(), "domain:"+watchDom).Return(nil, boom)
	_, err = repo.IsDomainRegistered(ctx, watchDom)
	require.ErrorIs(t, err, serrors.ErrStorage)

	st.EXPECT().ScanPrefix(gomock.Any(), "email_sub:").Return(nil, boom)
	_, err = repo.Subscriptions(ctx)
	require.ErrorIs(t, err, serrors.ErrStorage)

	st.EXPECT().Get(gomock.Any(), "email_sub:1234").Return([]byte{0xff, 0x00}, nil)
	_, err = repo.GetSubscription(ctx, subID)
	require.ErrorIs(t, err, serrors.ErrInternal)
}
