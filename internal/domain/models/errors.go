package models

import "errors"

// Failure categories shared across the store, remote client and sync layers.
// Callers match them with errors.Is; concrete causes are wrapped alongside.
var (
	// ErrNetwork covers timeouts, connection failures and non-success
	// responses from the remote inventory endpoint.
	ErrNetwork = errors.New("remote endpoint unreachable")

	// ErrParse indicates a response envelope or record that does not match
	// the wire schema.
	ErrParse = errors.New("malformed remote payload")

	// ErrNoData means the network failed and no usable cache exists. It is
	// terminal for the caller and always wraps the underlying network error.
	ErrNoData = errors.New("no remote data and no cached snapshot")

	// ErrStorage is a local persistence failure. It is surfaced to callers
	// so they can degrade explicitly instead of continuing on an empty store.
	ErrStorage = errors.New("local storage failure")
)
