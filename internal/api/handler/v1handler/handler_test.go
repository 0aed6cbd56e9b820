package v1handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"typowatch/internal/api/handler/v1handler"
	"typowatch/internal/deltas"
	"typowatch/pkg/domain"
	"typowatch/pkg/domainname"
	"typowatch/pkg/logger"
	"typowatch/pkg/repository"
	"typowatch/pkg/serrors"
	"typowatch/pkg/storage/memory"
	mockstorage "typowatch/pkg/storage/mock"
)

//nolint: gochecknoglobals
var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func TestMain(m *testing.M) {
	logger.Setup(logger.DevelopmentEnvironment)
	m.Run()
}

type fixture struct {
	repo   *repository.Repository
	jobs   *mockstorage.MockJobStorage
	clock  *clockwork.FakeClock
	router http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	clock := clockwork.NewFakeClockAt(epoch)
	repo := repository.New(memory.New(), clock)
	jobs := mockstorage.NewMockJobStorage(gomock.NewController(t))
	h := v1handler.New(v1handler.Deps{Repo: repo, Jobs: jobs}, v1handler.Options{DeltasMaxAttempts: 3})

	r := chi.NewRouter()
	r.Route("/v1", h.Routes)

	return &fixture{repo: repo, jobs: jobs, clock: clock, router: r}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()

	var out T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&out))

	return out
}

func TestNewError(t *testing.T) {
	h := v1handler.New(v1handler.Deps{}, v1handler.Options{})
	ctx := context.Background()

	tests := []struct {
		name    string
		err     error
		status  int
		code    string
		message string
	}{
		{
			name:    "plain error is internal",
			err:     errors.New("boom"),
			status:  http.StatusInternalServerError,
			code:    serrors.ErrInternal.Error(),
			message: "internal error",
		},
		{
			name:    "storage error is internal",
			err:     serrors.Wrap(serrors.ErrStorage, errors.New("conn reset"), "could not get"),
			status:  http.StatusInternalServerError,
			code:    serrors.ErrInternal.Error(),
			message: "internal error",
		},
		{
			name:    "bare not found kind",
			err:     serrors.ErrNotFound,
			status:  http.StatusNotFound,
			code:    serrors.ErrNotFound.Error(),
			message: serrors.ErrNotFound.Error(),
		},
		{
			name:    "validation keeps its message",
			err:     serrors.With(serrors.ErrValidation, "invalid email"),
			status:  http.StatusBadRequest,
			code:    serrors.ErrValidation.Error(),
			message: "invalid email",
		},
		{
			name:    "conflict",
			err:     serrors.KindOnly(serrors.ErrConflict),
			status:  http.StatusConflict,
			code:    serrors.ErrConflict.Error(),
			message: serrors.ErrConflict.Error(),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, res := h.NewError(ctx, tt.err)
			require.Equal(t, tt.status, status)
			require.Equal(t, tt.code, res.Code)
			require.Equal(t, tt.message, res.Message)
		})
	}
}

func TestSubscriptions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.do(t, http.MethodPost, "/v1/subscriptions", v1handler.CreateSubscriptionRequest{
		Email:  "someone@example.org",
		Domain: domainname.EncodeHex("www.example.com"),
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[v1handler.CreateSubscriptionResponse](t, rec)
	require.Equal(t, "www.example.com", created.Domain)
	_, err := uuid.Parse(string(created.ID))
	require.NoError(t, err)

	registered, err := f.repo.IsDomainRegistered(ctx, "www.example.com")
	require.NoError(t, err)
	require.False(t, registered, "subscribing does not register the domain")

	rec = f.do(t, http.MethodGet, "/v1/subscriptions/"+string(created.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	sub := decode[domain.Subscription](t, rec)
	require.Equal(t, "someone@example.org", sub.Email)
	require.Nil(t, sub.LastEmailSentAt)

	rec = f.do(t, http.MethodDelete, "/v1/subscriptions/"+string(created.ID), nil)
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = f.do(t, http.MethodGet, "/v1/subscriptions/"+string(created.ID), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	rec = f.do(t, http.MethodDelete, "/v1/subscriptions/"+string(created.ID), nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateSubscription_Invalid(t *testing.T) {
	f := newFixture(t)

	tests := []struct {
		name string
		body any
	}{
		{name: "not json", body: "{"},
		{name: "bad email", body: v1handler.CreateSubscriptionRequest{Email: "nope", Domain: "example.com"}},
		{name: "bad domain", body: v1handler.CreateSubscriptionRequest{Email: "a@example.org", Domain: "-bad-.com"}},
		{name: "empty domain", body: v1handler.CreateSubscriptionRequest{Email: "a@example.org"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.do(t, http.MethodPost, "/v1/subscriptions", tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)
			res := decode[v1handler.ErrorResponse](t, rec)
			require.Equal(t, serrors.ErrValidation.Error(), res.Code)
		})
	}

	subs, err := f.repo.Subscriptions(context.Background())
	require.NoError(t, err)
	require.Empty(t, subs)
}

func TestUnsubscribeLink(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.repo.SubscribeEmail(context.Background(), "sub-1", "a@example.org", "example.com"))

	for range 2 {
		rec := f.do(t, http.MethodGet, "/v1/subscriptions/sub-1/unsubscribe", nil)
		require.Equal(t, http.StatusOK, rec.Code)
		require.Contains(t, rec.Body.String(), "unsubscribed")
	}

	sub, err := f.repo.GetSubscription(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Nil(t, sub)
}

func TestGetDomain(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/v1/domains/example.com", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, v1handler.DomainResponse{Domain: "example.com"}, decode[v1handler.DomainResponse](t, rec))

	require.NoError(t, f.repo.RegisterDomainForDelta(context.Background(), "example.com"))

	rec = f.do(t, http.MethodGet, "/v1/domains/"+domainname.EncodeHex("example.com"), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, v1handler.DomainResponse{Domain: "example.com", Registered: true},
		decode[v1handler.DomainResponse](t, rec))

	rec = f.do(t, http.MethodGet, "/v1/domains/not_a_domain!", nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetReport(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	rec := f.do(t, http.MethodGet, "/v1/domains/example.com/report", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, f.repo.RegisterDomainForDelta(ctx, "example.com"))
	report := domain.DeltaReport{
		Records: []domain.Record{{
			Variant:    domain.Variant{Fuzzer: "Addition", Domain: "examplea.com"},
			Resolution: domain.Resolution{IP: "192.0.2.1"},
		}},
		New: []domain.Change{{Domain: "examplea.com", NewIP: "192.0.2.1"}},
	}
	require.NoError(t, f.repo.UpdateDeltaReport(ctx, "example.com", report, f.clock.Now()))

	f.clock.Advance(time.Hour)
	rec = f.do(t, http.MethodGet, "/v1/domains/example.com/report", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[domain.DeltaReport](t, rec)
	require.Equal(t, "example.com", got.Domain)
	require.Equal(t, report.New, got.New)

	reg, err := f.repo.Registration(ctx, "example.com")
	require.NoError(t, err)
	require.Equal(t, epoch.Add(time.Hour), reg.LastReadAt.UTC())
}

func TestRefresh(t *testing.T) {
	f := newFixture(t)

	gomock.InOrder(
		f.jobs.EXPECT().AddJob(gomock.Any(), deltas.JobArgs{Domain: "example.com", MaxAttempts: 3}, gomock.Nil()).
			Return(true, nil),
		f.jobs.EXPECT().AddJob(gomock.Any(), deltas.JobArgs{Domain: "example.com", MaxAttempts: 3}, gomock.Nil()).
			Return(false, nil),
	)

	rec := f.do(t, http.MethodPost, "/v1/domains/example.com/refresh", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, v1handler.RefreshResponse{Domain: "example.com", Queued: true},
		decode[v1handler.RefreshResponse](t, rec))

	rec = f.do(t, http.MethodPost, "/v1/domains/example.com/refresh", nil)
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.False(t, decode[v1handler.RefreshResponse](t, rec).Queued)

	registered, err := f.repo.IsDomainRegistered(context.Background(), "example.com")
	require.NoError(t, err)
	require.True(t, registered)
}

func TestRefresh_QueueFailure(t *testing.T) {
	f := newFixture(t)
	f.jobs.EXPECT().AddJob(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, errors.New("db down"))

	rec := f.do(t, http.MethodPost, "/v1/domains/example.com/refresh", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, serrors.ErrInternal.Error(), decode[v1handler.ErrorResponse](t, rec).Code)
}
