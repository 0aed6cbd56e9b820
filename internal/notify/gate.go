package notify

import "time"

// Gate reports whether a subscriber whose last email went out at lastSent
// (nil for never) is due an email for a report computed at computedAt.
//
// The report must be newer than the last email, the last email must be at
// least MinInterval old, and the report must not be older than MaxReportAge
// since such a report is about to be replaced by the next delta run.
func Gate(options Options, now time.Time, lastSent *time.Time, computedAt time.Time) bool {
	if options.MaxReportAge > 0 && now.Sub(computedAt) > options.MaxReportAge {
		return false
	}
	if lastSent == nil {
		return true
	}

	return computedAt.After(*lastSent) && now.Sub(*lastSent) >= options.MinInterval
}
