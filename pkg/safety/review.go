// Copyright 2025 Certen Protocol

// Package safety implements crypto-economic review of verification code
// before it is allowed to execute: a panel of validators commits and
// reveals safety verdicts Schelling-style, exactly like solution voting,
// but judging the code itself rather than its output.
package safety

import (
	"encoding/binary"
	"math"

	"github.com/hardclaw/node/pkg/crypto"
)

// Verdict is a reviewer's judgment of verification code.
type Verdict uint8

const (
	VerdictSafe Verdict = iota
	VerdictUnsafe
	VerdictUncertain
)

// Score maps a verdict to {-1, 0, +1} for consensus arithmetic.
func (v Verdict) Score() int8 {
	switch v {
	case VerdictSafe:
		return 1
	case VerdictUnsafe:
		return -1
	default:
		return 0
	}
}

// Commit is a reviewer's hidden vote commitment.
type Commit struct {
	VoteHash  crypto.Hash
	Reviewer  crypto.PublicKey
	Signature crypto.Signature
	Timestamp int64
}

// Vote is a reviewer's revealed safety verdict.
type Vote struct {
	CodeHash   crypto.Hash
	Verdict    Verdict
	Confidence float64 // 0.0 to 1.0
	Reasoning  string
	Reviewer   crypto.PublicKey
	Nonce      [crypto.NonceSize]byte
	Signature  crypto.Signature
}

// CommitmentHash computes the hash a reviewer must have committed to
// before revealing this vote.
func (v Vote) CommitmentHash() crypto.Hash {
	h := crypto.NewHasher()
	h.Update(v.CodeHash[:])
	h.Update([]byte{byte(v.Verdict.Score())})
	var confBits [8]byte
	binary.LittleEndian.PutUint64(confBits[:], math.Float64bits(v.Confidence))
	h.Update(confBits[:])
	h.Update(v.Nonce[:])
	return h.Finalize()
}

// VerifyCommitment reports whether v matches its earlier commitment.
func (v Vote) VerifyCommitment(commit Commit) bool {
	return v.CommitmentHash() == commit.VoteHash && v.Reviewer == commit.Reviewer
}

// Decision is the aggregate outcome of a safety review.
type Decision uint8

const (
	DecisionApprovedStrong Decision = iota // >= 2/3 safe
	DecisionApprovedWeak                   // >= 1/2 safe
	DecisionRejectedWeak                   // >= 1/2 unsafe
	DecisionRejectedStrong                 // >= 2/3 unsafe
	DecisionNoConsensus
	DecisionInsufficientVotes
)

// IsApproved reports whether the decision allows the code to execute.
func (d Decision) IsApproved() bool {
	return d == DecisionApprovedStrong || d == DecisionApprovedWeak
}

// GasPenaltyMultiplier scales the submitter's gas penalty: 0 means no
// penalty (full refund), 2 means double penalty.
func (d Decision) GasPenaltyMultiplier() float64 {
	switch d {
	case DecisionRejectedStrong:
		return 2.0
	case DecisionRejectedWeak:
		return 1.0
	case DecisionNoConsensus:
		return 0.5
	default: // approved or insufficient votes
		return 0.0
	}
}

// ReviewerPayoutMultiplier scales the pool of gas allocated to reviewers.
func (d Decision) ReviewerPayoutMultiplier() float64 {
	switch d {
	case DecisionRejectedStrong:
		return 2.0
	case DecisionRejectedWeak:
		return 1.5
	case DecisionApprovedStrong, DecisionApprovedWeak:
		return 0.1
	case DecisionNoConsensus:
		return 0.05
	default: // insufficient votes
		return 0.0
	}
}

// Consensus is the tallied result of a safety review's revealed votes.
type Consensus struct {
	CodeHash        crypto.Hash
	TotalReviewers  int
	SafeVotes       int
	UnsafeVotes     int
	UncertainVotes  int
	Decision        Decision
	AverageConfidence float64
	Votes           []Vote
}

// NewConsensus tallies votes into a Consensus.
func NewConsensus(codeHash crypto.Hash, votes []Vote) Consensus {
	var safe, unsafeCount, uncertain int
	var confidenceSum float64
	for _, v := range votes {
		switch v.Verdict {
		case VerdictSafe:
			safe++
		case VerdictUnsafe:
			unsafeCount++
		case VerdictUncertain:
			uncertain++
		}
		confidenceSum += v.Confidence
	}

	avgConfidence := 0.0
	if len(votes) > 0 {
		avgConfidence = confidenceSum / float64(len(votes))
	}

	return Consensus{
		CodeHash:          codeHash,
		TotalReviewers:    len(votes),
		SafeVotes:         safe,
		UnsafeVotes:       unsafeCount,
		UncertainVotes:    uncertain,
		Decision:          decide(len(votes), safe, unsafeCount),
		AverageConfidence: avgConfidence,
		Votes:             votes,
	}
}

func decide(total, safe, unsafeCount int) Decision {
	if total == 0 {
		return DecisionInsufficientVotes
	}

	unsafeRatio := float64(unsafeCount) / float64(total)
	safeRatio := float64(safe) / float64(total)

	switch {
	case unsafeRatio >= 2.0/3.0:
		return DecisionRejectedStrong
	case unsafeRatio >= 0.5:
		return DecisionRejectedWeak
	case safeRatio >= 2.0/3.0:
		return DecisionApprovedStrong
	case safeRatio >= 0.5:
		return DecisionApprovedWeak
	default:
		return DecisionNoConsensus
	}
}

// OutlierFraction is the share of votes that fell in the minority.
func (c Consensus) OutlierFraction() float64 {
	if c.TotalReviewers == 0 {
		return 0
	}

	var majorityVotes int
	switch c.Decision {
	case DecisionApprovedStrong, DecisionApprovedWeak:
		majorityVotes = c.SafeVotes
	case DecisionRejectedStrong, DecisionRejectedWeak:
		majorityVotes = c.UnsafeVotes
	default:
		return 0
	}

	minorityVotes := c.TotalReviewers - majorityVotes - c.UncertainVotes
	return float64(minorityVotes) / float64(c.TotalReviewers)
}

// Reputation tracks a reviewer's historical accuracy and any active
// outlier penalty.
type Reputation struct {
	Reviewer              crypto.PublicKey
	TotalReviews          uint64
	ConsensusAgreements   uint64
	OutlierCount          uint64
	PenaltyMultiplier     float64
	PenaltyBlocksRemaining uint64
	AccuracyEMA           float64
}

// NewReputation starts a reviewer at a neutral trust score.
func NewReputation(reviewer crypto.PublicKey) *Reputation {
	return &Reputation{
		Reviewer:          reviewer,
		PenaltyMultiplier: 1.0,
		AccuracyEMA:       0.5,
	}
}

// accuracyEMAAlpha smooths historical accuracy across reviews.
const accuracyEMAAlpha = 0.1

// UpdateAfterReview folds a completed review's result into the
// reviewer's history. Outlier: in the minority by less than 1/6 of votes.
func (r *Reputation) UpdateAfterReview(wasInMajority bool, outlierFraction float64) {
	r.TotalReviews++
	if wasInMajority {
		r.ConsensusAgreements++
	}

	if outlierFraction < 1.0/6.0 {
		r.OutlierCount++
		r.PenaltyBlocksRemaining = 10
		r.PenaltyMultiplier *= 0.95
	}

	accuracy := 0.0
	if wasInMajority {
		accuracy = 1.0
	}
	r.AccuracyEMA = accuracyEMAAlpha*accuracy + (1-accuracyEMAAlpha)*r.AccuracyEMA

	if wasInMajority && r.PenaltyBlocksRemaining > 0 {
		r.PenaltyBlocksRemaining--
		if r.PenaltyBlocksRemaining == 0 {
			r.PenaltyMultiplier = math.Min(r.PenaltyMultiplier*1.05, 1.0)
		}
	}
}

// EffectivePayoutMultiplier is the multiplier currently applied to this
// reviewer's payouts.
func (r *Reputation) EffectivePayoutMultiplier() float64 {
	if r.PenaltyBlocksRemaining > 0 {
		return r.PenaltyMultiplier
	}
	return 1.0
}

// TrustScore combines agreement ratio, outlier penalty, and accuracy EMA
// into a single 0.0-1.0 trust figure. Reviewers with fewer than 10
// reviews are treated as neutral (0.5): not enough history to judge.
func (r *Reputation) TrustScore() float64 {
	if r.TotalReviews < 10 {
		return 0.5
	}

	agreementRatio := float64(r.ConsensusAgreements) / float64(r.TotalReviews)
	outlierPenalty := 1.0 - math.Min(float64(r.OutlierCount)/float64(r.TotalReviews), 0.5)

	return 0.4*agreementRatio + 0.3*outlierPenalty + 0.3*r.AccuracyEMA
}

// Request asks a panel of reviewers to judge code's safety before it is
// allowed to execute against real job solutions.
type Request struct {
	CodeHash     crypto.Hash
	Code         string
	Language     string
	Submitter    crypto.PublicKey
	GasAmount    uint64
	Deadline     int64
	MinReviewers int
}

// Phase is a review session's current stage.
type Phase uint8

const (
	PhaseSelection Phase = iota
	PhaseCommit
	PhaseReveal
	PhaseComplete
	PhaseExpired
)

// Session tracks one in-progress safety review.
type Session struct {
	Request            Request
	SelectedReviewers  []crypto.PublicKey
	Commits            []Commit
	Votes              []Vote
	Phase              Phase
	CommitDeadline     int64
	RevealDeadline     int64
}
