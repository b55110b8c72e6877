// Package conv provides checked integer conversions for values read from
// untrusted input such as point catalog headers and block sizes.
//
// For conversions that are provably safe by construction (loop indices,
// bounded counters), use direct type casts instead.
package conv
