// Copyright 2025 Certen Protocol

package safety

import "github.com/hardclaw/node/pkg/crypto"

// Incentives computes gas payouts for a completed safety review: who
// gets paid, who gets refunded, and what gets burned.
type Incentives struct {
	BaseReviewerFee     float64 // fraction of total gas paid to reviewers
	MaliciousCatchBonus float64
	OutlierPenalty      float64
}

// NewIncentives creates an incentive calculator with the protocol's
// reference parameters.
func NewIncentives() *Incentives {
	return &Incentives{
		BaseReviewerFee:     0.1,
		MaliciousCatchBonus: 2.0,
		OutlierPenalty:      0.05,
	}
}

// ReviewerPayout is one reviewer's share of a review's gas pool.
type ReviewerPayout struct {
	Reviewer             crypto.PublicKey
	Amount               uint64
	WasInMajority        bool
	ReputationMultiplier float64
}

// Payouts is the full distribution of a review's gas across reviewers,
// the submitter, and the burn sink.
type Payouts struct {
	TotalGas         uint64
	Decision         Decision
	ReviewerPayouts  []ReviewerPayout
	SubmitterRefund  uint64
	Burned           uint64
}

// CalculatePayouts distributes totalGas across reviewers (weighted by
// confidence, majority alignment, and reputation), the submitter, and
// the burn sink, according to consensus's decision.
func (inc *Incentives) CalculatePayouts(consensus Consensus, totalGas uint64, reputations map[crypto.PublicKey]*Reputation) Payouts {
	payouts := Payouts{TotalGas: totalGas, Decision: consensus.Decision}

	reviewerPayoutMult := consensus.Decision.ReviewerPayoutMultiplier()
	reviewerPool := uint64(float64(totalGas) * inc.BaseReviewerFee * reviewerPayoutMult)

	totalWeight := 0.0
	weights := make([]float64, len(consensus.Votes))
	for i, vote := range consensus.Votes {
		weights[i] = inc.reviewerWeight(vote, consensus, reputations)
		totalWeight += weights[i]
	}

	for i, vote := range consensus.Votes {
		var basePayout uint64
		if totalWeight > 0 {
			basePayout = uint64(float64(reviewerPool) * (weights[i] / totalWeight))
		}

		reputationMult := 1.0
		if rep, ok := reputations[vote.Reviewer]; ok {
			reputationMult = rep.EffectivePayoutMultiplier()
		}

		payouts.ReviewerPayouts = append(payouts.ReviewerPayouts, ReviewerPayout{
			Reviewer:             vote.Reviewer,
			Amount:               uint64(float64(basePayout) * reputationMult),
			WasInMajority:        inc.wasInMajority(vote, consensus),
			ReputationMultiplier: reputationMult,
		})
	}

	var totalReviewerPayout uint64
	for _, p := range payouts.ReviewerPayouts {
		totalReviewerPayout += p.Amount
	}

	switch consensus.Decision {
	case DecisionApprovedStrong, DecisionApprovedWeak:
		payouts.SubmitterRefund = totalGas - totalReviewerPayout
		payouts.Burned = 0
	case DecisionRejectedWeak, DecisionRejectedStrong:
		payouts.SubmitterRefund = 0
		payouts.Burned = totalGas - totalReviewerPayout
	case DecisionNoConsensus:
		payouts.SubmitterRefund = uint64(float64(totalGas) * 0.5)
		payouts.Burned = totalGas - totalReviewerPayout - payouts.SubmitterRefund
	case DecisionInsufficientVotes:
		payouts.SubmitterRefund = totalGas
		payouts.Burned = 0
	}

	return payouts
}

func (inc *Incentives) reviewerWeight(vote Vote, consensus Consensus, reputations map[crypto.PublicKey]*Reputation) float64 {
	weight := vote.Confidence

	if inc.wasInMajority(vote, consensus) {
		weight *= 1.5
	} else {
		weight *= 0.5
	}

	if rep, ok := reputations[vote.Reviewer]; ok {
		weight *= 0.5 + rep.TrustScore()
	}

	return weight
}

func (inc *Incentives) wasInMajority(vote Vote, consensus Consensus) bool {
	switch consensus.Decision {
	case DecisionApprovedStrong, DecisionApprovedWeak:
		return vote.Verdict == VerdictSafe
	case DecisionRejectedStrong, DecisionRejectedWeak:
		return vote.Verdict == VerdictUnsafe
	default:
		return true
	}
}

// EstimatedEarnings summarizes a reviewer's expected income across
// possible review outcomes.
type EstimatedEarnings struct {
	Scenarios     []ScenarioPayout
	ExpectedValue float64
}

// ScenarioPayout names one hypothetical review outcome and its payout.
type ScenarioPayout struct {
	Name   string
	Amount uint64
}

// EstimateEarnings projects a reviewer's payout across the canonical set
// of outcome scenarios, assuming equal likelihood of each.
func (inc *Incentives) EstimateEarnings(gasAmount uint64, numReviewers int, reputationMult float64) EstimatedEarnings {
	type scenario struct {
		name        string
		payoutMult  float64
		isMajority  bool
	}
	scenarios := []scenario{
		{"approved_majority", 0.1, true},
		{"approved_minority", 0.1, false},
		{"rejected_weak_majority", 1.5, true},
		{"rejected_weak_minority", 1.5, false},
		{"rejected_strong_majority", 2.0, true},
		{"rejected_strong_minority", 2.0, false},
	}

	earnings := EstimatedEarnings{}
	for _, s := range scenarios {
		basePool := uint64(float64(gasAmount) * inc.BaseReviewerFee * s.payoutMult)
		perReviewer := basePool / uint64(numReviewers)

		majorityMult := 0.5
		if s.isMajority {
			majorityMult = 1.5
		}
		finalPayout := uint64(float64(perReviewer) * majorityMult * reputationMult)
		earnings.Scenarios = append(earnings.Scenarios, ScenarioPayout{Name: s.name, Amount: finalPayout})
	}

	var sum float64
	for _, s := range earnings.Scenarios {
		sum += float64(s.Amount)
	}
	earnings.ExpectedValue = sum / float64(len(earnings.Scenarios))

	return earnings
}
