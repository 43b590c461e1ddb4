// Copyright 2025 Certen Protocol

package schelling

import (
	"sync"

	"github.com/hardclaw/node/pkg/commitreveal"
	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/types"
)

// Phase is a voting round's current stage.
type Phase uint8

const (
	PhaseCommit Phase = iota
	PhaseReveal
	PhaseComplete
)

func (p Phase) String() string {
	switch p {
	case PhaseCommit:
		return "commit"
	case PhaseReveal:
		return "reveal"
	case PhaseComplete:
		return "complete"
	default:
		return "unknown"
	}
}

// Round is a single Schelling-point voting round over one solution. Its
// per-voter bookkeeping is a commitreveal.Container. The safety-review
// panel in pkg/safety keeps its own commit and vote lists and does not use
// that container.
type Round struct {
	mu sync.RWMutex

	SolutionID  types.Id
	phase       Phase
	CommitStart types.Timestamp
	RevealStart types.Timestamp
	EndTime     types.Timestamp
	votes       *commitreveal.Container[crypto.Address, *types.VerificationVote]
}

// NewRound starts a fresh commit-phase round for solutionID, with commit
// and reveal windows of the given durations starting at now.
func NewRound(solutionID types.Id, now types.Timestamp, commitDurationMs, revealDurationMs int64) *Round {
	return &Round{
		SolutionID:  solutionID,
		phase:       PhaseCommit,
		CommitStart: now,
		RevealStart: now + types.Timestamp(commitDurationMs),
		EndTime:     now + types.Timestamp(commitDurationMs) + types.Timestamp(revealDurationMs),
		votes:       commitreveal.New[crypto.Address, *types.VerificationVote](),
	}
}

// Phase returns the round's current stage.
func (r *Round) Phase() Phase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.phase
}

// CheckPhaseTransition advances the round's phase if now has crossed the
// relevant boundary.
func (r *Round) CheckPhaseTransition(now types.Timestamp) {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.phase {
	case PhaseCommit:
		if now >= r.RevealStart {
			r.phase = PhaseReveal
		}
	case PhaseReveal:
		if now >= r.EndTime {
			r.phase = PhaseComplete
		}
	}
}

// ForcePhase sets the round's phase directly, bypassing time-based
// transition. Intended for tests and operator-driven emergency closes.
func (r *Round) ForcePhase(phase Phase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase = phase
}

// AddCommitment records voter's public commitment (the vote and quality
// score remain hidden until reveal).
func (r *Round) AddCommitment(vote *types.VerificationVote) error {
	if err := r.votes.Add(vote.Voter.Address(), vote.PublicCommitment()); err != nil {
		return ErrDuplicateVote
	}
	return nil
}

// RevealVote reveals voter's committed vote and quality score, verifying
// against the stored commitment.
func (r *Round) RevealVote(voter crypto.PublicKey, vote types.VoteResult, qualityScore uint8, nonce [crypto.NonceSize]byte) error {
	commitment, exists := r.votes.Get(voter.Address())
	if !exists {
		return ErrVoterNotFound
	}
	if err := commitment.Reveal(vote, qualityScore, nonce); err != nil {
		return ErrCommitmentMismatch
	}
	r.votes.Replace(voter.Address(), commitment)
	return nil
}

// TallyVotes computes the voting results over every revealed vote.
func (r *Round) TallyVotes() types.VotingResults {
	return types.TallyVotes(r.SolutionID, r.votes.Values())
}

// CommitmentCount returns the number of voters who have committed.
func (r *Round) CommitmentCount() int {
	return r.votes.Len()
}

// RevealCount returns the number of voters who have revealed.
func (r *Round) RevealCount() int {
	return r.votes.Count(func(v *types.VerificationVote) bool { return v.IsRevealed() })
}

// HasQuorum reports whether at least minVoters have revealed.
func (r *Round) HasQuorum(minVoters int) bool {
	return r.RevealCount() >= minVoters
}

// Votes returns every voter's vote record, keyed by address.
func (r *Round) Votes() map[crypto.Address]*types.VerificationVote {
	return r.votes.Snapshot()
}
