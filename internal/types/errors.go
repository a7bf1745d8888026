package types

import "errors"

var (
	// ErrMarkerNotFound indicates the bootstrap JSON marker is absent from the
	// page body (layout change, consent wall, or an error interstitial).
	ErrMarkerNotFound = errors.New("bootstrap marker not found")

	// ErrUnterminatedStructure indicates brace scanning hit end-of-input before
	// the structure closed.
	ErrUnterminatedStructure = errors.New("unterminated structure")

	// ErrMalformedPayload indicates the delimited substring is not valid JSON.
	ErrMalformedPayload = errors.New("malformed payload")

	// ErrSchemaMismatch indicates no known renderer path yielded an item array.
	ErrSchemaMismatch = errors.New("schema mismatch")

	// ErrNetwork indicates a fetch failure (timeout, non-2xx, connection error).
	ErrNetwork = errors.New("network error")

	// ErrCacheIO indicates a cache read/write problem. Always treated as a miss.
	ErrCacheIO = errors.New("cache i/o error")

	// ErrToolMissing indicates a required external executable is not on PATH. Fatal.
	ErrToolMissing = errors.New("external tool missing")

	// ErrToolFailed indicates an external process ran and exited non-zero.
	ErrToolFailed = errors.New("external tool failed")

	// ErrNoResults indicates extraction succeeded but produced no records.
	ErrNoResults = errors.New("no results")
)
