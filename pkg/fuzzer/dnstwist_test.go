package fuzzer_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"typowatch/pkg/domain"
	"typowatch/pkg/domainname"
	"typowatch/pkg/fuzzer"
	"typowatch/pkg/serrors"
)

func TestDnstwist_SingleLetter(t *testing.T) {
	variants, err := fuzzer.New().Variants("a.com")
	require.NoError(t, err)

	expected := []domain.Variant{{Fuzzer: fuzzer.Original, Domain: "a.com"}}
	for c := 'a'; c <= 'z'; c++ {
		expected = append(expected, domain.Variant{Fuzzer: fuzzer.Addition, Domain: "a" + string(c) + ".com"})
	}
	for _, d := range []string{"c", "e", "i", "q"} {
		expected = append(expected, domain.Variant{Fuzzer: fuzzer.Bitsquatting, Domain: d + ".com"})
	}
	for _, d := range []string{"w", "s", "z", "y", "2", "1"} {
		expected = append(expected, domain.Variant{Fuzzer: fuzzer.Replacement, Domain: d + ".com"})
	}
	for _, d := range []string{"o", "u"} {
		expected = append(expected, domain.Variant{Fuzzer: fuzzer.VowelSwap, Domain: d + ".com"})
	}
	for _, d := range []string{"wwa", "wwwa", "www-a", "acom"} {
		expected = append(expected, domain.Variant{Fuzzer: fuzzer.Various, Domain: d + ".com"})
	}

	require.Equal(t, expected, variants)
}

func TestDnstwist_Properties(t *testing.T) {
	f := fuzzer.New()

	variants, err := f.Variants("WWW.Example.com")
	require.NoError(t, err)
	require.Equal(t, domain.Variant{Fuzzer: fuzzer.Original, Domain: "www.example.com"}, variants[0])

	seen := make(map[string]string, len(variants))
	for _, v := range variants {
		_, dup := seen[v.Domain]
		require.False(t, dup, "duplicate variant %s", v.Domain)
		seen[v.Domain] = v.Fuzzer
		require.True(t, domainname.Valid(v.Domain), "invalid variant %s", v.Domain)
	}

	require.Equal(t, fuzzer.Omission, seen["wwwexample.com"])
	require.Equal(t, fuzzer.Homoglyph, seen["www.examp1e.com"])
	require.Equal(t, fuzzer.Hyphenation, seen["www.exam-ple.com"])
	require.Equal(t, fuzzer.Subdomain, seen["www.exa.mple.com"])
	require.Equal(t, fuzzer.Transposition, seen["www.exmaple.com"])
	require.NotContains(t, seen, "www-.example.com")

	again, err := f.Variants("www.example.com")
	require.NoError(t, err)
	require.Equal(t, variants, again, "order must be deterministic")
}

func TestDnstwist_InvalidDomain(t *testing.T) {
	_, err := fuzzer.New().Variants(`\.38iusd-s-da   aswd?`)
	require.ErrorIs(t, err, serrors.ErrValidation)
}
