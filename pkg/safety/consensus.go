// Copyright 2025 Certen Protocol

package safety

import "github.com/hardclaw/node/pkg/crypto"

// ConsensusEngine tallies safety review votes and flags suspicious
// voting patterns.
type ConsensusEngine struct {
	MinReviewers    int
	CommitTimeoutMs int64
	RevealTimeoutMs int64
}

// NewConsensusEngine creates an engine with the protocol's reference
// parameters: 5 reviewers, 5 minutes per phase.
func NewConsensusEngine() *ConsensusEngine {
	return &ConsensusEngine{
		MinReviewers:    5,
		CommitTimeoutMs: 300_000,
		RevealTimeoutMs: 300_000,
	}
}

// CalculateConsensus tallies votes into a Consensus.
func (e *ConsensusEngine) CalculateConsensus(codeHash crypto.Hash, votes []Vote) Consensus {
	return NewConsensus(codeHash, votes)
}

// IsValidConsensus reports whether consensus had enough participation to
// act on.
func (e *ConsensusEngine) IsValidConsensus(consensus Consensus) bool {
	if consensus.TotalReviewers < e.MinReviewers {
		return false
	}
	return consensus.Decision != DecisionInsufficientVotes
}

// SchellingReward pairs a reviewer with their Schelling-point reward
// multiplier.
type SchellingReward struct {
	Reviewer crypto.PublicKey
	Reward   float64
}

// CalculateSchellingRewards rewards reviewers for matching the eventual
// majority verdict and scales the reward by their stated confidence.
// Returns nil when the decision carries no clear majority.
func (e *ConsensusEngine) CalculateSchellingRewards(consensus Consensus) []SchellingReward {
	var majorityVerdict Verdict
	switch consensus.Decision {
	case DecisionApprovedStrong, DecisionApprovedWeak:
		majorityVerdict = VerdictSafe
	case DecisionRejectedStrong, DecisionRejectedWeak:
		majorityVerdict = VerdictUnsafe
	default:
		return nil
	}

	rewards := make([]SchellingReward, 0, len(consensus.Votes))
	for _, vote := range consensus.Votes {
		reward := 1.0
		if vote.Verdict == majorityVerdict {
			reward *= 1.5
		} else {
			reward *= 0.5
		}
		reward *= vote.Confidence
		rewards = append(rewards, SchellingReward{Reviewer: vote.Reviewer, Reward: reward})
	}
	return rewards
}

// AnomalyKind classifies a detected voting anomaly.
type AnomalyKind uint8

const (
	AnomalyUnanimousVote AnomalyKind = iota
	AnomalyLowConfidence
	AnomalyPotentialAttack
)

// Anomaly flags a suspicious pattern in a review's votes: unanimous
// outcomes suggest collusion, widespread low confidence suggests
// reviewers without real signal.
type Anomaly struct {
	Kind                  AnomalyKind
	CodeHash              crypto.Hash
	Verdict               Verdict
	LowConfidenceFraction float64
	SuspiciousReviewers   []crypto.PublicKey
}

// DetectAnomalies scans a tallied consensus for collusion or
// low-signal-voting patterns.
func (e *ConsensusEngine) DetectAnomalies(consensus Consensus) []Anomaly {
	var alerts []Anomaly

	if consensus.TotalReviewers > 0 &&
		(consensus.SafeVotes == consensus.TotalReviewers || consensus.UnsafeVotes == consensus.TotalReviewers) {
		verdict := VerdictUnsafe
		if consensus.SafeVotes == consensus.TotalReviewers {
			verdict = VerdictSafe
		}
		alerts = append(alerts, Anomaly{Kind: AnomalyUnanimousVote, CodeHash: consensus.CodeHash, Verdict: verdict})
	}

	if consensus.TotalReviewers > 0 {
		lowConfidenceCount := 0
		for _, v := range consensus.Votes {
			if v.Confidence < 0.3 {
				lowConfidenceCount++
			}
		}
		fraction := float64(lowConfidenceCount) / float64(consensus.TotalReviewers)
		if fraction > 0.5 {
			alerts = append(alerts, Anomaly{Kind: AnomalyLowConfidence, CodeHash: consensus.CodeHash, LowConfidenceFraction: fraction})
		}
	}

	return alerts
}
