package deltas

import "typowatch/pkg/domain"

// Diff builds a report from records and lists how they moved since previous.
// Without a previous report every resolving variant counts as new. Failed
// lookups on either side are left out of the comparison.
func Diff(previous *domain.DeltaReport, records []domain.Record) domain.DeltaReport {
	report := domain.DeltaReport{Records: records}

	before := make(map[string]domain.Resolution)
	if previous != nil {
		for _, r := range previous.Records {
			before[r.Domain] = r.Resolution
		}
	}

	for _, r := range records {
		if r.Error {
			continue
		}
		old, seen := before[r.Domain]
		if seen && old.Error {
			continue
		}

		switch {
		case r.Resolved() && !old.Resolved():
			report.New = append(report.New, domain.Change{Domain: r.Domain, NewIP: r.IP})
		case r.Resolved() && old.IP != r.IP:
			report.Updated = append(report.Updated, domain.Change{Domain: r.Domain, OldIP: old.IP, NewIP: r.IP})
		case !r.Resolved() && old.Resolved():
			report.Deleted = append(report.Deleted, domain.Change{Domain: r.Domain, OldIP: old.IP})
		}
	}

	return report
}
