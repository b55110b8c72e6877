package conv

import (
	"fmt"
)

// Integer is any built-in integer type.
type Integer interface {
	~int | ~int8 | ~int16 | ~int32 | ~int64 |
		~uint | ~uint8 | ~uint16 | ~uint32 | ~uint64 | ~uintptr
}

// Narrow converts v to To, failing when the value does not survive the
// conversion unchanged.
func Narrow[To, From Integer](v From) (To, error) {
	out := To(v)
	if From(out) != v || (out < 0) != (v < 0) {
		var zero To
		return zero, fmt.Errorf("integer overflow: %d cannot be converted to %T", v, zero)
	}
	return out, nil
}

// MustNarrow is Narrow for values whose range the caller has already checked.
// It panics on overflow.
func MustNarrow[To, From Integer](v From) To {
	out, err := Narrow[To](v)
	if err != nil {
		panic(err)
	}
	return out
}
