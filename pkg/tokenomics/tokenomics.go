// Copyright 2025 Certen Protocol

package tokenomics

import (
	"fmt"

	"github.com/holiman/uint256"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/types"
)

// Config holds the tunable parameters of the token economics engine.
type Config struct {
	// SolverShare, VerifierShare, and BurnShare are percentages (0-100)
	// of a completed job's bounty and must sum to 100.
	SolverShare   uint8
	VerifierShare uint8
	BurnShare     uint8

	// MinBurnToRequest is the minimum burn-to-request fee required to
	// submit a job, an anti-Sybil measure.
	MinBurnToRequest types.Amount

	// TargetBlockReward is the base block reward before difficulty
	// adjustment.
	TargetBlockReward types.Amount
}

// DefaultConfig returns the protocol's default economics: 95% solver, 4%
// verifier, 1% burn.
func DefaultConfig() Config {
	return Config{
		SolverShare:        95,
		VerifierShare:      4,
		BurnShare:          1,
		MinBurnToRequest:   types.AmountFromRaw(uint256.NewInt(1_000_000_000_000_000)),
		TargetBlockReward:  types.AmountFromHclaw(10),
	}
}

// IsValid reports whether the configured shares sum to exactly 100.
func (c Config) IsValid() bool {
	sum := int(c.SolverShare) + int(c.VerifierShare) + int(c.BurnShare)
	return sum == 100
}

// InsufficientBurnError reports a job submission burn below the protocol
// minimum.
type InsufficientBurnError struct {
	Required types.Amount
	Provided types.Amount
}

func (e *InsufficientBurnError) Error() string {
	return fmt.Sprintf("tokenomics: insufficient burn: required %s, provided %s", e.Required, e.Provided)
}

// Engine is the central token economics component: fee distribution, burn
// tracking, and elastic supply/difficulty management.
type Engine struct {
	config      Config
	distributor *FeeDistributor
	burns       *BurnManager
	supply      *SupplyManager
}

// NewEngine constructs an engine from config, panicking if the shares do
// not sum to 100 — this is a programmer error in wiring, not a runtime
// condition callers should expect to recover from.
func NewEngine(config Config) *Engine {
	if !config.IsValid() {
		panic("tokenomics: fee shares must sum to 100")
	}
	return &Engine{
		config:      config,
		distributor: NewFeeDistributor(config.SolverShare, config.VerifierShare, config.BurnShare),
		burns:       NewBurnManager(),
		supply:      NewSupplyManager(),
	}
}

// NewDefaultEngine constructs an engine using DefaultConfig.
func NewDefaultEngine() *Engine {
	return NewEngine(DefaultConfig())
}

// ProcessJobCompletion distributes a completed job's bounty among the
// solver, verifier, and burn, recording the burn.
func (e *Engine) ProcessJobCompletion(bounty types.Amount, solver, verifier crypto.Address, now types.Timestamp) FeeDistribution {
	distribution := e.distributor.Distribute(bounty, solver, verifier)
	e.burns.Burn(distribution.BurnAmount, BurnReasonJobFee, now)
	e.supply.RecordBurn(distribution.BurnAmount)
	return distribution
}

// ProcessJobSubmission validates and records a job's anti-Sybil
// burn-to-request fee.
func (e *Engine) ProcessJobSubmission(burnAmount types.Amount, now types.Timestamp) error {
	if burnAmount.LessThan(e.config.MinBurnToRequest) {
		return &InsufficientBurnError{Required: e.config.MinBurnToRequest, Provided: burnAmount}
	}
	e.burns.Burn(burnAmount, BurnReasonJobSubmission, now)
	e.supply.RecordBurn(burnAmount)
	return nil
}

// CalculateBlockReward computes the elastic block reward: the target
// reward scaled down as difficulty rises, floored at 1 base unit.
func (e *Engine) CalculateBlockReward(difficulty uint64) types.Amount {
	if difficulty == 0 {
		return e.config.TargetBlockReward
	}

	base := e.config.TargetBlockReward.Raw()
	numerator := new(uint256.Int).Mul(base, uint256.NewInt(1000))
	denominator := uint256.NewInt(1000 + difficulty)
	adjusted := new(uint256.Int).Div(numerator, denominator)

	reward := types.AmountFromRaw(adjusted)
	one := types.AmountFromRaw(uint256.NewInt(1))
	if reward.LessThan(one) {
		return one
	}
	return reward
}

// SupplyMetrics returns the current supply metrics snapshot.
func (e *Engine) SupplyMetrics() SupplyMetrics {
	return e.supply.Metrics()
}

// Supply exposes the underlying supply manager for block-production
// wiring (recording mints, stake changes, and block times).
func (e *Engine) Supply() *SupplyManager {
	return e.supply
}

// TotalBurned returns the cumulative amount burned across all reasons.
func (e *Engine) TotalBurned() types.Amount {
	return e.burns.TotalBurned()
}

// Config returns the engine's economics configuration.
func (e *Engine) Config() Config {
	return e.config
}
