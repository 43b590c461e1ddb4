// Copyright 2025 Certen Protocol

package tokenomics

import (
	"math/big"
	"sync"

	"github.com/hardclaw/node/pkg/types"
)

// Default difficulty-adjustment parameters.
const (
	DefaultTargetBlockTimeMs  uint64 = 1000
	DefaultAdjustmentWindow   uint64 = 100
)

// SupplyMetrics is a point-in-time snapshot of token supply.
type SupplyMetrics struct {
	TotalMinted          types.Amount
	TotalBurned          types.Amount
	CirculatingSupply    types.Amount
	TotalStaked          types.Amount
	EffectiveCirculating types.Amount
}

// CalculateEffective returns circulating supply net of staked tokens.
func (m SupplyMetrics) CalculateEffective() types.Amount {
	return m.CirculatingSupply.SaturatingSub(m.TotalStaked)
}

// NetSupply returns minted minus burned.
func (m SupplyMetrics) NetSupply() types.Amount {
	return m.TotalMinted.SaturatingSub(m.TotalBurned)
}

// BurnRate returns burned/minted as a percentage, or 0 if nothing has been
// minted.
func (m SupplyMetrics) BurnRate() float64 {
	if m.TotalMinted.IsZero() {
		return 0
	}
	minted := new(big.Float).SetInt(m.TotalMinted.Raw().ToBig())
	burned := new(big.Float).SetInt(m.TotalBurned.Raw().ToBig())
	rate := new(big.Float).Quo(burned, minted)
	result, _ := rate.Float64()
	return result * 100
}

// StakeRate returns staked/circulating as a percentage, or 0 if nothing is
// circulating.
func (m SupplyMetrics) StakeRate() float64 {
	if m.CirculatingSupply.IsZero() {
		return 0
	}
	circulating := new(big.Float).SetInt(m.CirculatingSupply.Raw().ToBig())
	staked := new(big.Float).SetInt(m.TotalStaked.Raw().ToBig())
	rate := new(big.Float).Quo(staked, circulating)
	result, _ := rate.Float64()
	return result * 100
}

// SupplyManager tracks mint/burn/stake activity and adjusts mining
// difficulty from recent block production times. Safe for concurrent use.
type SupplyManager struct {
	mu                sync.Mutex
	metrics           SupplyMetrics
	difficulty        uint64
	targetBlockTimeMs uint64
	adjustmentWindow  uint64
	recentBlockTimes  []uint64
}

// NewSupplyManager creates a supply manager with the protocol defaults.
func NewSupplyManager() *SupplyManager {
	return &SupplyManager{
		difficulty:        1,
		targetBlockTimeMs: DefaultTargetBlockTimeMs,
		adjustmentWindow:  DefaultAdjustmentWindow,
	}
}

// RecordMint credits amount to both total minted and circulating supply.
func (m *SupplyManager) RecordMint(amount types.Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics.TotalMinted = m.metrics.TotalMinted.SaturatingAdd(amount)
	m.metrics.CirculatingSupply = m.metrics.CirculatingSupply.SaturatingAdd(amount)
	m.updateEffectiveLocked()
}

// RecordBurn debits amount from circulating supply and credits total
// burned.
func (m *SupplyManager) RecordBurn(amount types.Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics.TotalBurned = m.metrics.TotalBurned.SaturatingAdd(amount)
	m.metrics.CirculatingSupply = m.metrics.CirculatingSupply.SaturatingSub(amount)
	m.updateEffectiveLocked()
}

// RecordStakeChange applies a net stake/unstake delta.
func (m *SupplyManager) RecordStakeChange(staked, unstaked types.Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics.TotalStaked = m.metrics.TotalStaked.SaturatingAdd(staked).SaturatingSub(unstaked)
	m.updateEffectiveLocked()
}

func (m *SupplyManager) updateEffectiveLocked() {
	m.metrics.EffectiveCirculating = m.metrics.CalculateEffective()
}

// RecordBlockTime feeds a new block production time into the difficulty
// adjustment window, re-adjusting difficulty once the window fills.
func (m *SupplyManager) RecordBlockTime(blockTimeMs uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.recentBlockTimes = append(m.recentBlockTimes, blockTimeMs)
	if uint64(len(m.recentBlockTimes)) > m.adjustmentWindow {
		m.recentBlockTimes = m.recentBlockTimes[1:]
	}

	if uint64(len(m.recentBlockTimes)) >= m.adjustmentWindow {
		m.adjustDifficultyLocked()
	}
}

func (m *SupplyManager) adjustDifficultyLocked() {
	if len(m.recentBlockTimes) == 0 {
		return
	}

	var sum uint64
	for _, t := range m.recentBlockTimes {
		sum += t
	}
	avg := sum / uint64(len(m.recentBlockTimes))

	switch {
	case avg < m.targetBlockTimeMs*9/10:
		m.difficulty++
	case avg > m.targetBlockTimeMs*11/10:
		if m.difficulty > 1 {
			m.difficulty--
		}
	}
}

// Metrics returns the current supply metrics snapshot.
func (m *SupplyManager) Metrics() SupplyMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.metrics
}

// Difficulty returns the current mining difficulty.
func (m *SupplyManager) Difficulty() uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.difficulty
}

// AverageBlockTime returns the mean of the recent block times, if any have
// been recorded.
func (m *SupplyManager) AverageBlockTime() (uint64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.recentBlockTimes) == 0 {
		return 0, false
	}
	var sum uint64
	for _, t := range m.recentBlockTimes {
		sum += t
	}
	return sum / uint64(len(m.recentBlockTimes)), true
}
