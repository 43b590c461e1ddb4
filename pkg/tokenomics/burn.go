// Copyright 2025 Certen Protocol

package tokenomics

import (
	"sync"

	"github.com/hardclaw/node/pkg/types"
)

// BurnReason identifies why tokens were permanently removed from supply.
type BurnReason uint8

const (
	BurnReasonJobFee BurnReason = iota
	BurnReasonJobSubmission
	BurnReasonSlashing
	BurnReasonManual
)

// BurnEvent records a single burn for audit/history purposes.
type BurnEvent struct {
	Amount    types.Amount
	Reason    BurnReason
	Timestamp types.Timestamp
}

// defaultMaxBurnHistory bounds BurnManager's retained history.
const defaultMaxBurnHistory = 10_000

// BurnManager tracks cumulative burns by reason and a bounded recent
// history. Safe for concurrent use.
type BurnManager struct {
	mu            sync.Mutex
	totalBurned   types.Amount
	burnsByReason map[BurnReason]types.Amount
	history       []BurnEvent
	maxHistory    int
}

// NewBurnManager creates an empty burn manager.
func NewBurnManager() *BurnManager {
	return &BurnManager{
		burnsByReason: make(map[BurnReason]types.Amount),
		maxHistory:    defaultMaxBurnHistory,
	}
}

// Burn records amount as permanently removed from supply for reason.
func (m *BurnManager) Burn(amount types.Amount, reason BurnReason, now types.Timestamp) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.totalBurned = m.totalBurned.SaturatingAdd(amount)
	m.burnsByReason[reason] = m.burnsByReason[reason].SaturatingAdd(amount)

	m.history = append(m.history, BurnEvent{Amount: amount, Reason: reason, Timestamp: now})
	if len(m.history) > m.maxHistory {
		m.history = m.history[1:]
	}
}

// TotalBurned returns the cumulative amount ever burned.
func (m *BurnManager) TotalBurned() types.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.totalBurned
}

// BurnedFor returns the cumulative amount burned for a specific reason.
func (m *BurnManager) BurnedFor(reason BurnReason) types.Amount {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.burnsByReason[reason]
}

// BurnStats is a point-in-time summary of burn activity.
type BurnStats struct {
	TotalBurned     types.Amount
	JobFeeBurns     types.Amount
	SubmissionBurns types.Amount
	SlashBurns      types.Amount
	BurnCount       int
}

// Stats returns a summary snapshot of all burn activity.
func (m *BurnManager) Stats() BurnStats {
	m.mu.Lock()
	defer m.mu.Unlock()
	return BurnStats{
		TotalBurned:     m.totalBurned,
		JobFeeBurns:     m.burnsByReason[BurnReasonJobFee],
		SubmissionBurns: m.burnsByReason[BurnReasonJobSubmission],
		SlashBurns:      m.burnsByReason[BurnReasonSlashing],
		BurnCount:       len(m.history),
	}
}

// RecentBurns returns the last limit burn events, oldest first within the
// returned window.
func (m *BurnManager) RecentBurns(limit int) []BurnEvent {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := len(m.history) - limit
	if start < 0 {
		start = 0
	}
	out := make([]BurnEvent, len(m.history)-start)
	copy(out, m.history[start:])
	return out
}
