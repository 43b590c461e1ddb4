// Copyright 2025 Certen Protocol

package consensus

import (
	"errors"
	"fmt"
)

// ErrSolutionMismatch is returned when a solution's job ID does not match
// the job it is being verified against.
var ErrSolutionMismatch = errors.New("consensus: solution does not match job")

// ErrSubjectiveJob is returned when a Schelling-point job is submitted to
// the deterministic verification path; those jobs are routed through the
// schelling package instead.
var ErrSubjectiveJob = errors.New("consensus: subjective jobs require Schelling consensus")

// ErrInvalidParent is returned when a block's parent hash or height does
// not chain from the given parent.
var ErrInvalidParent = errors.New("consensus: invalid parent block")

// ErrInsufficientConsensus is returned when a block has not collected the
// 66% attestation threshold.
type ErrInsufficientConsensus struct {
	Percentage float64
}

func (e *ErrInsufficientConsensus) Error() string {
	return fmt.Sprintf("consensus: insufficient consensus: %.1f%% < 66%%", e.Percentage)
}

// ErrNoVerificationsPending is returned when block production is attempted
// with no pending verifications to include.
var ErrNoVerificationsPending = errors.New("consensus: no verifications pending")
