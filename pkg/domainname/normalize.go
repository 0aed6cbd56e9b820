// Package domainname validates, normalizes and decodes the domain names that
// subscribers submit.
package domainname

import (
	"strings"

	"golang.org/x/net/idna"

	"typowatch/pkg/serrors"
)

const (
	maxNameLength  = 253
	maxLabelLength = 63
)

// profile converts names to their ASCII (punycode) form and enforces the
// STD3 host name rules used by DNS lookups.
var profile = idna.New( //nolint: gochecknoglobals
	idna.MapForLookup(),
	idna.BidiRule(),
	idna.StrictDomainName(true),
	idna.ValidateLabels(true),
	idna.VerifyDNSLength(true),
)

// Normalize returns the canonical form of name: trimmed, lower-cased, without
// a trailing root dot and converted to ASCII. It returns an ErrValidation
// error when name is not a valid multi-label host name.
func Normalize(name string) (string, error) {
	name = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(name)), ".")
	if name == "" {
		return "", serrors.With(serrors.ErrValidation, "empty domain")
	}

	ascii, err := profile.ToASCII(name)
	if err != nil {
		return "", serrors.Wrap(serrors.ErrValidation, err, "invalid domain %q", name)
	}
	if len(ascii) > maxNameLength {
		return "", serrors.With(serrors.ErrValidation, "domain %q is too long", name)
	}

	labels := strings.Split(ascii, ".")
	if len(labels) < 2 {
		return "", serrors.With(serrors.ErrValidation, "domain %q has no top-level domain", name)
	}
	for _, label := range labels {
		if label == "" || len(label) > maxLabelLength {
			return "", serrors.With(serrors.ErrValidation, "domain %q has an invalid label", name)
		}
	}

	return ascii, nil
}

// Valid reports whether name normalizes successfully.
func Valid(name string) bool {
	_, err := Normalize(name)

	return err == nil
}
