package domainname

import (
	"net/url"
	"strings"
	"unicode"
)

// ParseQuery splits free-form input (newlines, tabs, spaces or commas) into a
// list of normalized domains. URLs are reduced to their host, invalid entries
// are dropped and duplicates are removed while preserving the input order.
func ParseQuery(in string) []string {
	fields := strings.FieldsFunc(in, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})

	seen := make(map[string]struct{}, len(fields))
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		name, err := Normalize(hostOf(f))
		if err != nil {
			continue
		}
		if _, ok := seen[name]; ok {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}

	return out
}

// hostOf extracts the host from URL-looking input and returns other input
// unchanged.
func hostOf(in string) string {
	if !strings.Contains(in, "://") {
		return in
	}

	u, err := url.Parse(in)
	if err != nil {
		return in
	}

	return u.Hostname()
}
