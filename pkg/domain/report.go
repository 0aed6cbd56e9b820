package domain

import "time"

// Registration marks a domain as actively monitored by the delta worker.
type Registration struct {
	// Domain is the normalized domain name.
	Domain string `cbor:"domain" json:"domain"`
	// RegisteredAt is when the domain was first registered for delta computation.
	RegisteredAt time.Time `cbor:"registered_at" json:"registeredAt"`
	// LastReadAt is the last time a subscriber or the API consumed the domain's report.
	LastReadAt time.Time `cbor:"last_read_at" json:"lastReadAt"`
}

// Variant is a candidate lookalike domain produced by a fuzzer.
type Variant struct {
	// Fuzzer names the permutation that produced the variant, e.g. "Addition".
	Fuzzer string `cbor:"fuzzer" json:"fuzzer"`
	// Domain is the generated domain name.
	Domain string `cbor:"domain" json:"domain"`
}

// Resolution is the outcome of resolving a single variant. An empty IP with
// Error unset means the name does not resolve; Error set means the lookup
// itself failed.
type Resolution struct {
	IP    string `cbor:"ip"    json:"ip"`
	Error bool   `cbor:"error" json:"error"`
}

// Resolved reports whether the variant resolved to an address.
func (r Resolution) Resolved() bool { return !r.Error && r.IP != "" }

// Record is one entry of a delta report: a variant and its resolution.
type Record struct {
	Variant
	Resolution
}

// Change describes how a single variant's resolution moved between two
// consecutive reports.
type Change struct {
	Domain string `cbor:"domain"           json:"domain"`
	OldIP  string `cbor:"old_ip,omitempty" json:"oldIp,omitempty"`
	NewIP  string `cbor:"new_ip,omitempty" json:"newIp,omitempty"`
}

// DeltaReport is the current fuzzy-domain resolution snapshot of a domain.
type DeltaReport struct {
	// Domain is the monitored domain the report belongs to.
	Domain string `cbor:"domain" json:"domain"`
	// Records holds one entry per generated variant, in fuzzer order.
	Records []Record `cbor:"records" json:"records"`
	// New lists variants that resolve now but did not in the previous report.
	New []Change `cbor:"new,omitempty" json:"new,omitempty"`
	// Updated lists variants whose address changed since the previous report.
	Updated []Change `cbor:"updated,omitempty" json:"updated,omitempty"`
	// Deleted lists variants that resolved previously but no longer do.
	Deleted []Change `cbor:"deleted,omitempty" json:"deleted,omitempty"`
	// ComputedAt is when the delta worker produced the report.
	ComputedAt time.Time `cbor:"computed_at" json:"computedAt"`
}

// HasChanges reports whether the report differs from its predecessor.
func (r DeltaReport) HasChanges() bool {
	return len(r.New)+len(r.Updated)+len(r.Deleted) > 0
}
