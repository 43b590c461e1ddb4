// Copyright 2025 Certen Protocol

// Package tokenomics implements HCLAW's fee distribution, burn tracking,
// and elastic supply/difficulty adjustment.
package tokenomics

import (
	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/types"
)

// FeeDistribution is the split of a completed job's bounty between the
// solver, the verifier, and the burn.
type FeeDistribution struct {
	Solver         crypto.Address
	SolverAmount   types.Amount
	Verifier       crypto.Address
	VerifierAmount types.Amount
	BurnAmount     types.Amount
}

// FeeDistributor splits a bounty into solver/verifier/burn shares
// summing to 100%.
type FeeDistributor struct {
	SolverShare   uint8
	VerifierShare uint8
	BurnShare     uint8
}

// NewFeeDistributor constructs a distributor from percentage shares.
func NewFeeDistributor(solverShare, verifierShare, burnShare uint8) *FeeDistributor {
	return &FeeDistributor{
		SolverShare:   solverShare,
		VerifierShare: verifierShare,
		BurnShare:     burnShare,
	}
}

// Distribute splits bounty between solver, verifier, and burn according to
// the configured shares. Solver and verifier shares are computed directly;
// burn takes the remainder so solver + verifier + burn == bounty exactly,
// regardless of Percentage's floor-division truncation.
func (d *FeeDistributor) Distribute(bounty types.Amount, solver, verifier crypto.Address) FeeDistribution {
	solverAmount := bounty.Percentage(d.SolverShare)
	verifierAmount := bounty.Percentage(d.VerifierShare)
	burnAmount := bounty.SaturatingSub(solverAmount).SaturatingSub(verifierAmount)

	return FeeDistribution{
		Solver:         solver,
		SolverAmount:   solverAmount,
		Verifier:       verifier,
		VerifierAmount: verifierAmount,
		BurnAmount:     burnAmount,
	}
}
