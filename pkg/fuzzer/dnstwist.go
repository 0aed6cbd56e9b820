package fuzzer

import (
	"strings"

	"typowatch/pkg/domain"
	"typowatch/pkg/domainname"
)

// Names of the permutations, as shown in reports.
const (
	Original      = "Original*"
	Addition      = "Addition"
	Bitsquatting  = "Bitsquatting"
	Homoglyph     = "Homoglyph"
	Hyphenation   = "Hyphenation"
	Insertion     = "Insertion"
	Omission      = "Omission"
	Repetition    = "Repetition"
	Replacement   = "Replacement"
	Subdomain     = "Subdomain"
	Transposition = "Transposition"
	VowelSwap     = "Vowel swap"
	Various       = "Various"
)

const vowels = "aeiou"

// permutation turns the part of a name left of its top-level domain into
// candidate replacements for that part.
type permutation struct {
	name     string
	generate func(label, tld string) []string
}

// Dnstwist is the built-in Fuzzer. It applies the classic dnstwist
// permutations to everything left of the top-level domain and keeps the
// first occurrence of every valid candidate.
type Dnstwist struct {
	permutations []permutation
}

// New returns the built-in Fuzzer.
func New() *Dnstwist {
	return &Dnstwist{permutations: []permutation{
		{Addition, addition},
		{Bitsquatting, bitsquatting},
		{Homoglyph, homoglyph},
		{Hyphenation, hyphenation},
		{Insertion, insertion},
		{Omission, omission},
		{Repetition, repetition},
		{Replacement, replacement},
		{Subdomain, subdomain},
		{Transposition, transposition},
		{VowelSwap, vowelSwap},
		{Various, various},
	}}
}

// Variants implements Fuzzer. The original name always comes first.
func (d *Dnstwist) Variants(name string) ([]domain.Variant, error) {
	name, err := domainname.Normalize(name)
	if err != nil {
		return nil, err
	}

	dot := strings.LastIndexByte(name, '.')
	label, tld := name[:dot], name[dot+1:]

	res := []domain.Variant{{Fuzzer: Original, Domain: name}}
	seen := map[string]struct{}{name: {}}
	for _, p := range d.permutations {
		for _, candidate := range p.generate(label, tld) {
			full := candidate + "." + tld
			if _, ok := seen[full]; ok {
				continue
			}
			if normalized, err := domainname.Normalize(full); err != nil || normalized != full {
				continue
			}
			seen[full] = struct{}{}
			res = append(res, domain.Variant{Fuzzer: p.name, Domain: full})
		}
	}

	return res, nil
}

func addition(label, _ string) []string {
	res := make([]string, 0, 'z'-'a'+1)
	for c := 'a'; c <= 'z'; c++ {
		res = append(res, label+string(c))
	}

	return res
}

func bitsquatting(label, _ string) []string {
	var res []string
	for i := range len(label) {
		for mask := 1; mask < 256; mask <<= 1 {
			b := label[i] ^ byte(mask)
			if (b >= 'a' && b <= 'z') || (b >= '0' && b <= '9') || b == '-' {
				res = append(res, label[:i]+string(b)+label[i+1:])
			}
		}
	}

	return res
}

func homoglyph(label, _ string) []string {
	var res []string
	for i, c := range label {
		for _, g := range homoglyphs[c] {
			res = append(res, label[:i]+g+label[i+1:])
		}
	}

	return res
}

func hyphenation(label, _ string) []string {
	var res []string
	for i := 1; i < len(label); i++ {
		res = append(res, label[:i]+"-"+label[i:])
	}

	return res
}

func insertion(label, _ string) []string {
	var res []string
	for i := 1; i < len(label)-1; i++ {
		for _, kb := range keyboards {
			for _, c := range kb[rune(label[i])] {
				res = append(res,
					label[:i]+string(c)+label[i:],
					label[:i+1]+string(c)+label[i+1:])
			}
		}
	}

	return res
}

func omission(label, _ string) []string {
	res := make([]string, 0, len(label))
	for i := range len(label) {
		res = append(res, label[:i]+label[i+1:])
	}

	return res
}

func repetition(label, _ string) []string {
	var res []string
	for i := range len(label) {
		if c := label[i]; c >= 'a' && c <= 'z' {
			res = append(res, label[:i]+string(c)+label[i:])
		}
	}

	return res
}

func replacement(label, _ string) []string {
	var res []string
	for i := range len(label) {
		for _, kb := range keyboards {
			for _, c := range kb[rune(label[i])] {
				res = append(res, label[:i]+string(c)+label[i+1:])
			}
		}
	}

	return res
}

func subdomain(label, _ string) []string {
	var res []string
	for i := 1; i < len(label); i++ {
		if strings.ContainsAny(label[i-1:i+1], "-.") {
			continue
		}
		res = append(res, label[:i]+"."+label[i:])
	}

	return res
}

func transposition(label, _ string) []string {
	var res []string
	for i := range len(label) - 1 {
		if label[i] != label[i+1] {
			res = append(res, label[:i]+string(label[i+1])+string(label[i])+label[i+2:])
		}
	}

	return res
}

func vowelSwap(label, _ string) []string {
	var res []string
	for i := range len(label) {
		if !strings.ContainsRune(vowels, rune(label[i])) {
			continue
		}
		for _, v := range vowels {
			if byte(v) != label[i] {
				res = append(res, label[:i]+string(v)+label[i+1:])
			}
		}
	}

	return res
}

func various(label, tld string) []string {
	return []string{"ww" + label, "www" + label, "www-" + label, label + tld}
}
