// Package fuzzer generates lookalike permutations of a domain name.
package fuzzer

import "typowatch/pkg/domain"

// Fuzzer produces the candidate variants of a domain. The result must be
// deterministic for a given name, including its order, because reports
// keep records in the order variants were generated.
//
//go:generate mockgen -package mockfuzzer -source=interface.go -destination=mock/mockfuzzer.go *
type Fuzzer interface {
	Variants(name string) ([]domain.Variant, error)
}
