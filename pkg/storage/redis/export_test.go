package redis

// UniqueSorted exposes the SCAN result normalization to tests.
func UniqueSorted(keys []string) []string { return uniqueSorted(keys) }
