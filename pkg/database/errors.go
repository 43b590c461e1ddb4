// Copyright 2025 Certen Protocol
//
// Package database provides sentinel errors for repository operations.

package database

import "errors"

// Sentinel errors for archive repository operations.
var (
	// ErrNotFound is returned when a requested entity is not found.
	ErrNotFound = errors.New("entity not found")

	// ErrBlockNotFound is returned when a block is not found in the archive.
	ErrBlockNotFound = errors.New("block not found")

	// ErrJobNotFound is returned when a job is not found in the archive.
	ErrJobNotFound = errors.New("job not found")
)
