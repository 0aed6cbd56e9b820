package deltas_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"typowatch/internal/deltas"
	"typowatch/pkg/domain"
)

func record(name, ip string, failed bool) domain.Record {
	return domain.Record{
		Variant:    domain.Variant{Fuzzer: "Addition", Domain: name},
		Resolution: domain.Resolution{IP: ip, Error: failed},
	}
}

func TestDiff(t *testing.T) {
	previous := &domain.DeltaReport{Records: []domain.Record{
		record("same.com", "192.0.2.1", false),
		record("moved.com", "192.0.2.2", false),
		record("gone.com", "192.0.2.3", false),
		record("flaky.com", "", true),
		record("fresh.com", "", false),
	}}
	current := []domain.Record{
		record("same.com", "192.0.2.1", false),
		record("moved.com", "192.0.2.20", false),
		record("gone.com", "", false),
		record("flaky.com", "192.0.2.4", false),
		record("fresh.com", "192.0.2.5", false),
		record("broken.com", "", true),
	}

	report := deltas.Diff(previous, current)
	require.Equal(t, current, report.Records)
	require.Equal(t, []domain.Change{{Domain: "fresh.com", NewIP: "192.0.2.5"}}, report.New)
	require.Equal(t, []domain.Change{{Domain: "moved.com", OldIP: "192.0.2.2", NewIP: "192.0.2.20"}}, report.Updated)
	require.Equal(t, []domain.Change{{Domain: "gone.com", OldIP: "192.0.2.3"}}, report.Deleted)
}

func TestDiff_NoPrevious(t *testing.T) {
	report := deltas.Diff(nil, []domain.Record{
		record("a.com", "192.0.2.1", false),
		record("aa.com", "", false),
	})

	require.Equal(t, []domain.Change{{Domain: "a.com", NewIP: "192.0.2.1"}}, report.New)
	require.Empty(t, report.Updated)
	require.Empty(t, report.Deleted)
}
