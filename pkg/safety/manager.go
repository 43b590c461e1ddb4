// Copyright 2025 Certen Protocol

package safety

import (
	"sort"
	"sync"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/types"
)

// commitPhaseDurationMs and revealPhaseDurationMs bound each review
// session's two phases.
const (
	commitPhaseDurationMs = 300_000
	revealPhaseDurationMs = 300_000
)

// Manager orchestrates safety review sessions end to end: reviewer
// selection, commit-reveal voting, consensus, and payout/reputation
// bookkeeping.
type Manager struct {
	mu           sync.Mutex
	sessions     map[crypto.Hash]*Session
	reputations  map[crypto.PublicKey]*Reputation
	consensus    *ConsensusEngine
	incentives   *Incentives
}

// NewManager creates an empty safety review manager.
func NewManager() *Manager {
	return &Manager{
		sessions:    make(map[crypto.Hash]*Session),
		reputations: make(map[crypto.PublicKey]*Reputation),
		consensus:   NewConsensusEngine(),
		incentives:  NewIncentives(),
	}
}

// StartReview opens a new review session for request, selecting
// reviewers from availableReviewers weighted by reputation (highest
// trust first).
func (m *Manager) StartReview(request Request, availableReviewers []crypto.PublicKey, now types.Timestamp) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	selected, err := m.selectReviewers(availableReviewers, request.MinReviewers)
	if err != nil {
		return nil, err
	}

	session := &Session{
		Request:           request,
		SelectedReviewers: selected,
		Phase:             PhaseCommit,
		CommitDeadline:    now + commitPhaseDurationMs,
		RevealDeadline:    now + commitPhaseDurationMs + revealPhaseDurationMs,
	}
	m.sessions[request.CodeHash] = session
	return session, nil
}

func (m *Manager) selectReviewers(available []crypto.PublicKey, count int) ([]crypto.PublicKey, error) {
	if len(available) < count {
		return nil, ErrNotEnoughReviewers
	}

	type weighted struct {
		key   crypto.PublicKey
		trust float64
	}
	ranked := make([]weighted, len(available))
	for i, pk := range available {
		trust := 0.5
		if rep, ok := m.reputations[pk]; ok {
			trust = rep.TrustScore()
		}
		ranked[i] = weighted{key: pk, trust: trust}
	}

	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].trust > ranked[j].trust })

	selected := make([]crypto.PublicKey, count)
	for i := 0; i < count; i++ {
		selected[i] = ranked[i].key
	}
	return selected, nil
}

// SubmitCommit records a reviewer's hidden vote commitment against an
// active session's commit phase.
func (m *Manager) SubmitCommit(codeHash crypto.Hash, commit Commit, now types.Timestamp) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[codeHash]
	if !ok {
		return ErrSessionNotFound
	}
	if session.Phase != PhaseCommit {
		return ErrWrongPhase
	}
	if now > session.CommitDeadline {
		session.Phase = PhaseReveal
		return ErrCommitPhaseExpired
	}
	if !containsKey(session.SelectedReviewers, commit.Reviewer) {
		return ErrReviewerNotSelected
	}
	for _, c := range session.Commits {
		if c.Reviewer == commit.Reviewer {
			return ErrDuplicateCommit
		}
	}

	session.Commits = append(session.Commits, commit)
	return nil
}

// RevealVote reveals a reviewer's committed vote. Finalization happens
// automatically once every committed reviewer has revealed, or once the
// reveal deadline passes.
func (m *Manager) RevealVote(codeHash crypto.Hash, vote Vote, now types.Timestamp) (*Consensus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[codeHash]
	if !ok {
		return nil, ErrSessionNotFound
	}

	if session.Phase == PhaseCommit && now > session.CommitDeadline {
		session.Phase = PhaseReveal
	}
	if session.Phase != PhaseReveal {
		return nil, ErrWrongPhase
	}
	if now > session.RevealDeadline {
		return m.finalizeLocked(codeHash, now)
	}

	var matchedCommit *Commit
	for i := range session.Commits {
		if session.Commits[i].Reviewer == vote.Reviewer {
			matchedCommit = &session.Commits[i]
			break
		}
	}
	if matchedCommit == nil {
		return nil, ErrNoMatchingCommit
	}
	if !vote.VerifyCommitment(*matchedCommit) {
		return nil, ErrCommitmentMismatch
	}
	for _, v := range session.Votes {
		if v.Reviewer == vote.Reviewer {
			return nil, ErrDuplicateReveal
		}
	}

	session.Votes = append(session.Votes, vote)

	if len(session.Votes) == len(session.Commits) {
		return m.finalizeLocked(codeHash, now)
	}
	return nil, nil
}

func (m *Manager) finalizeLocked(codeHash crypto.Hash, now types.Timestamp) (*Consensus, error) {
	session := m.sessions[codeHash]

	if len(session.Votes) == 0 {
		session.Phase = PhaseExpired
		return nil, ErrNoVotes
	}

	consensus := NewConsensus(codeHash, session.Votes)
	payouts := m.incentives.CalculatePayouts(consensus, session.Request.GasAmount, m.reputations)

	for _, vote := range session.Votes {
		rep, ok := m.reputations[vote.Reviewer]
		if !ok {
			rep = NewReputation(vote.Reviewer)
			m.reputations[vote.Reviewer] = rep
		}

		wasInMajority := true
		switch consensus.Decision {
		case DecisionApprovedStrong, DecisionApprovedWeak:
			wasInMajority = vote.Verdict == VerdictSafe
		case DecisionRejectedStrong, DecisionRejectedWeak:
			wasInMajority = vote.Verdict == VerdictUnsafe
		}
		rep.UpdateAfterReview(wasInMajority, consensus.OutlierFraction())
	}

	_ = payouts // caller retrieves payouts separately via Payouts, if needed
	session.Phase = PhaseComplete
	return &consensus, nil
}

// Payouts computes the gas distribution for a finalized session's
// consensus, using the manager's current reputation table.
func (m *Manager) Payouts(consensus Consensus, totalGas uint64) Payouts {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.incentives.CalculatePayouts(consensus, totalGas, m.reputations)
}

// Reputation returns the tracked reputation for reviewer, if any.
func (m *Manager) Reputation(reviewer crypto.PublicKey) (*Reputation, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rep, ok := m.reputations[reviewer]
	return rep, ok
}

// GetSession returns the review session for codeHash, if any.
func (m *Manager) GetSession(codeHash crypto.Hash) (*Session, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[codeHash]
	return s, ok
}

func containsKey(keys []crypto.PublicKey, target crypto.PublicKey) bool {
	for _, k := range keys {
		if k == target {
			return true
		}
	}
	return false
}
