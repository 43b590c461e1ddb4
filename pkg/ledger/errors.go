// Copyright 2025 Certen Protocol
//
// Package ledger provides sentinel errors for ledger operations.

package ledger

import "errors"

// Sentinel errors for ledger store lookups. Store methods return these
// instead of (nil, nil) so callers can distinguish "not written yet" from
// a decode failure.
var (
	// ErrNotFound is returned when a requested key has no value in the store.
	ErrNotFound = errors.New("ledger: key not found")

	// ErrChainMetaNotFound is returned when no chain tip has been recorded yet.
	ErrChainMetaNotFound = errors.New("ledger: chain metadata not found")
)
