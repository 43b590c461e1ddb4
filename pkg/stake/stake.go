// Copyright 2025 Certen Protocol

// Package stake implements verifier staking, unbonding, and slashing.
package stake

import (
	"errors"
	"fmt"
	"sync"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/types"
)

// DefaultUnbondingPeriodMs is the time a verifier must wait after
// beginning unstaking before the stake is withdrawable: 7 days.
const DefaultUnbondingPeriodMs = 7 * 24 * 60 * 60 * 1000

// DefaultMinStakeHclaw is the minimum stake, in whole HCLAW, required to
// participate as a verifier.
const DefaultMinStakeHclaw = 1000

// SlashingReason identifies why a verifier's stake was slashed, carrying
// whatever payload identifies the offending event.
type SlashingReason struct {
	Kind                Kind
	SolutionID          types.Id // HoneyPotApproval
	Details             string   // InvalidVerification
	BlockHash1          crypto.Hash
	BlockHash2          crypto.Hash // DoubleSigning
	OfflineDurationSecs uint64      // Downtime
}

// Kind enumerates the slash reasons.
type Kind uint8

const (
	KindHoneyPotApproval Kind = iota
	KindInvalidVerification
	KindDoubleSigning
	KindDowntime
)

// SlashPercentage returns the percentage of the (pre-slash) staked amount
// this reason removes.
func (r SlashingReason) SlashPercentage() uint8 {
	switch r.Kind {
	case KindHoneyPotApproval:
		return 100
	case KindDoubleSigning:
		return 100
	case KindInvalidVerification:
		return 10
	case KindDowntime:
		return 1
	default:
		return 0
	}
}

// SlashEvent records a single slashing application for audit purposes.
type SlashEvent struct {
	Verifier crypto.PublicKey
	Reason   SlashingReason
	Amount   types.Amount
	At       types.Timestamp
}

// StakeInfo is one verifier's staking record.
type StakeInfo struct {
	Verifier      crypto.PublicKey
	Amount        types.Amount
	TotalSlashed  types.Amount
	IsActive      bool
	IsUnstaking   bool
	WithdrawableAt types.Timestamp
}

// EffectiveStake is the stake amount net of all slashing applied so far.
func (s StakeInfo) EffectiveStake() types.Amount {
	return s.Amount.SaturatingSub(s.TotalSlashed)
}

// CanVerify reports whether this verifier is eligible to verify: active
// and meeting minStake on its effective (post-slash) stake.
func (s StakeInfo) CanVerify(minStake types.Amount) bool {
	return s.IsActive && !s.EffectiveStake().LessThan(minStake)
}

var (
	// ErrNotFound is returned when a verifier has no stake record.
	ErrNotFound = errors.New("stake: not found")
	// ErrAlreadyUnstaking is returned by BeginUnstake on a record already
	// unstaking.
	ErrAlreadyUnstaking = errors.New("stake: already unstaking")
	// ErrNotUnstaking is returned by CompleteUnstake on a record that
	// never began unstaking.
	ErrNotUnstaking = errors.New("stake: not unstaking")
)

// InsufficientStakeError reports a stake amount below the manager's
// minimum.
type InsufficientStakeError struct {
	Have types.Amount
	Need types.Amount
}

func (e *InsufficientStakeError) Error() string {
	return fmt.Sprintf("stake: insufficient stake: have %s, need %s", e.Have, e.Need)
}

// UnbondingNotCompleteError reports that CompleteUnstake was called before
// the unbonding period elapsed.
type UnbondingNotCompleteError struct {
	ReadyAt types.Timestamp
}

func (e *UnbondingNotCompleteError) Error() string {
	return fmt.Sprintf("stake: unbonding not complete, ready at %d", e.ReadyAt)
}

// Manager tracks every verifier's StakeInfo and enforces the
// stake/unbond/slash state machine. All methods are safe for concurrent
// use.
type Manager struct {
	mu               sync.RWMutex
	stakes           map[crypto.Address]*StakeInfo
	events           []SlashEvent
	minStake         types.Amount
	unbondingPeriod  types.Timestamp
}

// NewManager creates a stake manager with the protocol defaults.
func NewManager() *Manager {
	return &Manager{
		stakes:          make(map[crypto.Address]*StakeInfo),
		minStake:        types.AmountFromHclaw(DefaultMinStakeHclaw),
		unbondingPeriod: DefaultUnbondingPeriodMs,
	}
}

// MinStake returns the manager's minimum per-call stake requirement.
func (m *Manager) MinStake() types.Amount {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.minStake
}

// SetMinStake overrides the default minimum stake.
func (m *Manager) SetMinStake(amount types.Amount) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.minStake = amount
}

// Stake adds amount to verifier's stake, activating the record if this is
// its first deposit. amount itself (not the cumulative total) must meet
// the minimum stake.
func (m *Manager) Stake(verifier crypto.PublicKey, amount types.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if amount.LessThan(m.minStake) {
		return &InsufficientStakeError{Have: amount, Need: m.minStake}
	}

	addr := verifier.Address()
	info, exists := m.stakes[addr]
	if !exists {
		info = &StakeInfo{Verifier: verifier}
		m.stakes[addr] = info
	}
	info.Amount = info.Amount.SaturatingAdd(amount)
	info.IsActive = true
	return nil
}

// Restore inserts a previously-persisted stake record directly, bypassing
// Stake's minimum-amount check. Used at startup to rebuild the in-memory
// manager from the ledger store without re-validating deposits that were
// already accepted in a prior run.
func (m *Manager) Restore(info StakeInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := info
	m.stakes[info.Verifier.Address()] = &copied
}

// Get returns a copy of verifier's stake record.
func (m *Manager) Get(verifier crypto.Address) (StakeInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info, exists := m.stakes[verifier]
	if !exists {
		return StakeInfo{}, ErrNotFound
	}
	return *info, nil
}

// BeginUnstake marks verifier's stake as unbonding, setting the time it
// becomes withdrawable.
func (m *Manager) BeginUnstake(verifier crypto.Address, now types.Timestamp) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, exists := m.stakes[verifier]
	if !exists {
		return ErrNotFound
	}
	if info.IsUnstaking {
		return ErrAlreadyUnstaking
	}

	info.IsActive = false
	info.IsUnstaking = true
	info.WithdrawableAt = now + m.unbondingPeriod
	return nil
}

// CompleteUnstake finalizes an unbonding stake once the unbonding period
// has elapsed, removing the record and returning the withdrawn (effective,
// post-slash) amount.
func (m *Manager) CompleteUnstake(verifier crypto.Address, now types.Timestamp) (types.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, exists := m.stakes[verifier]
	if !exists {
		return types.Zero, ErrNotFound
	}
	if !info.IsUnstaking {
		return types.Zero, ErrNotUnstaking
	}
	if now < info.WithdrawableAt {
		return types.Zero, &UnbondingNotCompleteError{ReadyAt: info.WithdrawableAt}
	}

	withdrawn := info.EffectiveStake()
	delete(m.stakes, verifier)
	return withdrawn, nil
}

// Slash applies reason's percentage against the verifier's original staked
// amount (not the current effective stake — slashes do not compound; see
// the project's design notes) and records a SlashEvent. A 100% slash
// deactivates the verifier.
func (m *Manager) Slash(verifier crypto.Address, reason SlashingReason, now types.Timestamp) (types.Amount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	info, exists := m.stakes[verifier]
	if !exists {
		return types.Zero, ErrNotFound
	}

	amount := info.Amount.Percentage(reason.SlashPercentage())
	info.TotalSlashed = info.TotalSlashed.SaturatingAdd(amount)

	if reason.SlashPercentage() >= 100 {
		info.IsActive = false
	}

	m.events = append(m.events, SlashEvent{
		Verifier: info.Verifier,
		Reason:   reason,
		Amount:   amount,
		At:       now,
	})

	return amount, nil
}

// Events returns every slash event recorded so far, oldest first.
func (m *Manager) Events() []SlashEvent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SlashEvent, len(m.events))
	copy(out, m.events)
	return out
}

// ActiveVerifierCount returns the number of verifiers currently eligible
// to verify under minStake.
func (m *Manager) ActiveVerifierCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := 0
	for _, info := range m.stakes {
		if info.CanVerify(m.minStake) {
			count++
		}
	}
	return count
}
