package storage

import "errors"

// Sentinel errors surfaced by Store operations. The command package maps
// these to wire error replies without string matching (spec.md §7).
var (
	// ErrWrongType is returned when a command targets a key holding a
	// different value kind (e.g. GET on a stream).
	ErrWrongType = errors.New("WRONGTYPE Operation against a key holding the wrong kind of value")

	// ErrNotInteger is returned when a stored or supplied value cannot be
	// parsed as the integer an operation requires.
	ErrNotInteger = errors.New("ERR value is not an integer or out of range")

	// ErrNotFloat is returned when a stored or supplied value cannot be
	// parsed as the float an operation requires.
	ErrNotFloat = errors.New("ERR value is not a valid float")

	// ErrOverflow is returned when an integer increment/decrement would
	// wrap past the representable range.
	ErrOverflow = errors.New("ERR increment or decrement would overflow")
)
