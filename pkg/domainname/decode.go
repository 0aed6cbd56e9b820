package domainname

import (
	"encoding/base64"
	"encoding/hex"

	"typowatch/pkg/serrors"
)

// Strategy turns a submitted value into a candidate domain name. It returns
// false when the value is not in the strategy's encoding.
type Strategy struct {
	Name   string
	Decode func(in string) (string, bool)
}

// Hex decodes hex-encoded names, the encoding used in report links.
var Hex = Strategy{ //nolint: gochecknoglobals
	Name: "hex",
	Decode: func(in string) (string, bool) {
		b, err := hex.DecodeString(in)
		if err != nil {
			return "", false
		}

		return string(b), true
	},
}

// Base64 decodes the legacy base64 link encoding.
var Base64 = Strategy{ //nolint: gochecknoglobals
	Name: "base64",
	Decode: func(in string) (string, bool) {
		b, err := base64.StdEncoding.DecodeString(in)
		if err != nil {
			return "", false
		}

		return string(b), true
	},
}

// Raw accepts the value as-is.
var Raw = Strategy{ //nolint: gochecknoglobals
	Name:   "raw",
	Decode: func(in string) (string, bool) { return in, true },
}

// DefaultStrategies is the order in which submitted values are tried.
var DefaultStrategies = []Strategy{Hex, Base64, Raw} //nolint: gochecknoglobals

// Decode tries each strategy in order and returns the first candidate that
// normalizes to a valid domain. A strategy whose output does not validate
// falls through to the next one.
func Decode(in string, strategies ...Strategy) (string, error) {
	if len(strategies) == 0 {
		strategies = DefaultStrategies
	}
	if in == "" {
		return "", serrors.With(serrors.ErrValidation, "empty domain")
	}

	for _, s := range strategies {
		candidate, ok := s.Decode(in)
		if !ok {
			continue
		}
		if name, err := Normalize(candidate); err == nil {
			return name, nil
		}
	}

	return "", serrors.With(serrors.ErrValidation, "could not decode domain %q", in)
}

// EncodeHex returns the hex form of name used in links.
func EncodeHex(name string) string {
	return hex.EncodeToString([]byte(name))
}
