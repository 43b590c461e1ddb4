// Copyright 2025 Certen Protocol

package safety

import "errors"

var (
	// ErrSessionNotFound is returned by operations against an unknown
	// review session.
	ErrSessionNotFound = errors.New("safety: review session not found")
	// ErrNotEnoughReviewers is returned when fewer reviewers are
	// available than a request requires.
	ErrNotEnoughReviewers = errors.New("safety: not enough available reviewers")
	// ErrWrongPhase is returned when an operation is attempted outside
	// its required session phase.
	ErrWrongPhase = errors.New("safety: session not in required phase")
	// ErrCommitPhaseExpired is returned by SubmitCommit once the commit
	// deadline has passed.
	ErrCommitPhaseExpired = errors.New("safety: commit phase expired")
	// ErrReviewerNotSelected is returned when a commit or reveal comes
	// from a reviewer not selected for the session.
	ErrReviewerNotSelected = errors.New("safety: reviewer not selected for this session")
	// ErrDuplicateCommit is returned on a second commit from the same
	// reviewer.
	ErrDuplicateCommit = errors.New("safety: reviewer already submitted commit")
	// ErrDuplicateReveal is returned on a second reveal from the same
	// reviewer.
	ErrDuplicateReveal = errors.New("safety: reviewer already revealed vote")
	// ErrNoMatchingCommit is returned when a reveal has no corresponding
	// commit on file.
	ErrNoMatchingCommit = errors.New("safety: no commit found for this reviewer")
	// ErrCommitmentMismatch is returned when a reveal does not match its
	// commitment.
	ErrCommitmentMismatch = errors.New("safety: vote does not match commitment")
	// ErrNoVotes is returned by finalization when no votes were
	// revealed.
	ErrNoVotes = errors.New("safety: no votes received")
)
