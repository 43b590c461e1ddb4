// Copyright 2025 Certen Protocol

package schelling

import (
	"sync"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/types"
)

// Config tunes a Schelling consensus deployment.
type Config struct {
	// SolverRedundancy is the number of independent solvers a subjective
	// job is fanned out to.
	SolverRedundancy int
	// MinVoters is the number of revealed votes a round needs for its tally
	// to count; below it, FinalizeRound records an outcome that is not
	// accepted and has no tally.
	MinVoters int
	CommitPhaseMs      int64
	RevealPhaseMs      int64
	QualityThreshold   uint8
	DeviantSlashPercent uint8
}

// DefaultConfig matches the protocol's reference parameters.
func DefaultConfig() Config {
	return Config{
		SolverRedundancy:    5,
		MinVoters:           3,
		CommitPhaseMs:       30_000,
		RevealPhaseMs:       30_000,
		QualityThreshold:    70,
		DeviantSlashPercent: 5,
	}
}

// Outcome is the result of a finalized voting round.
type Outcome struct {
	SolutionID  types.Id
	Accepted    bool
	Results     types.VotingResults
	Deviants    []crypto.PublicKey
	FinalizedAt types.Timestamp
}

// Consensus manages concurrent Schelling-point voting rounds.
type Consensus struct {
	mu             sync.Mutex
	config         Config
	activeRounds   map[types.Id]*Round
	completedOutcomes map[types.Id]Outcome
}

// NewConsensus creates a consensus manager with the given config.
func NewConsensus(config Config) *Consensus {
	return &Consensus{
		config:            config,
		activeRounds:      make(map[types.Id]*Round),
		completedOutcomes: make(map[types.Id]Outcome),
	}
}

// Config returns the manager's configuration.
func (c *Consensus) Config() Config {
	return c.config
}

// StartRound opens a new voting round for solutionID.
func (c *Consensus) StartRound(solutionID types.Id, now types.Timestamp) (*Round, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.activeRounds[solutionID]; exists {
		return nil, ErrRoundAlreadyExists
	}

	round := NewRound(solutionID, now, c.config.CommitPhaseMs, c.config.RevealPhaseMs)
	c.activeRounds[solutionID] = round
	return round, nil
}

// SubmitCommitment records a vote commitment against an active round's
// commit phase.
func (c *Consensus) SubmitCommitment(solutionID types.Id, vote *types.VerificationVote) error {
	c.mu.Lock()
	round, exists := c.activeRounds[solutionID]
	c.mu.Unlock()
	if !exists {
		return ErrRoundNotFound
	}

	if round.Phase() != PhaseCommit {
		return &WrongPhaseError{Expected: PhaseCommit, Actual: round.Phase()}
	}
	return round.AddCommitment(vote)
}

// RevealVote reveals a voter's committed vote against an active round's
// reveal phase.
func (c *Consensus) RevealVote(solutionID types.Id, voter crypto.PublicKey, vote types.VoteResult, qualityScore uint8, nonce [crypto.NonceSize]byte) error {
	c.mu.Lock()
	round, exists := c.activeRounds[solutionID]
	c.mu.Unlock()
	if !exists {
		return ErrRoundNotFound
	}

	if round.Phase() != PhaseReveal {
		return &WrongPhaseError{Expected: PhaseReveal, Actual: round.Phase()}
	}
	return round.RevealVote(voter, vote, qualityScore, nonce)
}

// FinalizeRound tallies a completed round's votes, determines acceptance,
// identifies deviant voters, and moves the round out of the active set.
func (c *Consensus) FinalizeRound(solutionID types.Id, now types.Timestamp) (Outcome, error) {
	c.mu.Lock()
	round, exists := c.activeRounds[solutionID]
	if exists {
		delete(c.activeRounds, solutionID)
	}
	c.mu.Unlock()

	if !exists {
		return Outcome{}, ErrRoundNotFound
	}
	if round.Phase() != PhaseComplete {
		return Outcome{}, ErrRoundNotComplete
	}

	if !round.HasQuorum(c.config.MinVoters) {
		outcome := Outcome{SolutionID: solutionID, FinalizedAt: now}
		c.mu.Lock()
		c.completedOutcomes[solutionID] = outcome
		c.mu.Unlock()
		return outcome, nil
	}

	results := round.TallyVotes()

	accepted := results.Majority != nil &&
		*results.Majority == types.VoteAccept &&
		results.AverageQuality >= float64(c.config.QualityThreshold)

	var deviants []crypto.PublicKey
	if results.Majority != nil {
		for _, vote := range round.Votes() {
			if !vote.IsRevealed() {
				continue
			}
			if vote.Vote != *results.Majority && vote.Vote != types.VoteAbstain {
				deviants = append(deviants, vote.Voter)
			}
		}
	}

	outcome := Outcome{
		SolutionID:  solutionID,
		Accepted:    accepted,
		Results:     results,
		Deviants:    deviants,
		FinalizedAt: now,
	}

	c.mu.Lock()
	c.completedOutcomes[solutionID] = outcome
	c.mu.Unlock()

	return outcome, nil
}

// GetRound returns the active round for solutionID, if any.
func (c *Consensus) GetRound(solutionID types.Id) (*Round, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.activeRounds[solutionID]
	return r, ok
}

// GetOutcome returns a previously finalized round's outcome.
func (c *Consensus) GetOutcome(solutionID types.Id) (Outcome, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	o, ok := c.completedOutcomes[solutionID]
	return o, ok
}

// Tick advances every active round's phase according to now.
func (c *Consensus) Tick(now types.Timestamp) {
	c.mu.Lock()
	rounds := make([]*Round, 0, len(c.activeRounds))
	for _, r := range c.activeRounds {
		rounds = append(rounds, r)
	}
	c.mu.Unlock()

	for _, r := range rounds {
		r.CheckPhaseTransition(now)
	}
}
