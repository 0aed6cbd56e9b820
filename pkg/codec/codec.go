// Package codec encodes the records persisted in the key-value store.
//
// Values are CBOR with Core Deterministic Encoding: the same logical record
// always produces identical bytes, which lets stores implement
// compare-and-swap by comparing raw values.
package codec

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

var (
	encMode cbor.EncMode //nolint: gochecknoglobals
	decMode cbor.DecMode //nolint: gochecknoglobals
)

func init() { //nolint: gochecknoinits
	var err error

	encOptions := cbor.CoreDetEncOptions()
	// keep nanoseconds, report timestamps are compared for strict ordering
	encOptions.Time = cbor.TimeRFC3339Nano
	encMode, err = encOptions.EncMode()
	if err != nil {
		panic("codec: could not initialize CBOR encoder: " + err.Error())
	}

	decMode, err = cbor.DecOptions{}.DecMode()
	if err != nil {
		panic("codec: could not initialize CBOR decoder: " + err.Error())
	}
}

// Marshal encodes v.
func Marshal(v any) ([]byte, error) {
	b, err := encMode.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("could not encode value: %w", err)
	}

	return b, nil
}

// Unmarshal decodes data into v.
func Unmarshal(data []byte, v any) error {
	if err := decMode.Unmarshal(data, v); err != nil {
		return fmt.Errorf("could not decode value: %w", err)
	}

	return nil
}
