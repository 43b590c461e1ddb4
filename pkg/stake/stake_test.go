// Copyright 2025 Certen Protocol

package stake

import (
	"testing"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/types"
)

func TestStakeBelowMinimumRejected(t *testing.T) {
	m := NewManager()
	kp, _ := crypto.GenerateKeypair()

	err := m.Stake(kp.PublicKey(), types.AmountFromHclaw(1))
	if _, ok := err.(*InsufficientStakeError); !ok {
		t.Fatalf("expected InsufficientStakeError, got %v", err)
	}
}

func TestStakeAndActivate(t *testing.T) {
	m := NewManager()
	kp, _ := crypto.GenerateKeypair()

	if err := m.Stake(kp.PublicKey(), types.AmountFromHclaw(1000)); err != nil {
		t.Fatalf("stake: %v", err)
	}
	if err := m.Stake(kp.PublicKey(), types.AmountFromHclaw(1000)); err != nil {
		t.Fatalf("stake again: %v", err)
	}

	info, err := m.Get(kp.PublicKey().Address())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !info.IsActive {
		t.Fatal("expected verifier to be active")
	}
	if info.Amount != types.AmountFromHclaw(2000) {
		t.Fatalf("expected cumulative 2000 HCLAW, got %s", info.Amount)
	}
	if m.ActiveVerifierCount() != 1 {
		t.Fatalf("expected 1 active verifier, got %d", m.ActiveVerifierCount())
	}
}

func TestSlashHoneyPotApprovalDeactivates(t *testing.T) {
	m := NewManager()
	kp, _ := crypto.GenerateKeypair()
	if err := m.Stake(kp.PublicKey(), types.AmountFromHclaw(1000)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	amount, err := m.Slash(kp.PublicKey().Address(), SlashingReason{Kind: KindHoneyPotApproval}, 100)
	if err != nil {
		t.Fatalf("slash: %v", err)
	}
	if amount != types.AmountFromHclaw(1000) {
		t.Fatalf("expected full 1000 HCLAW slashed, got %s", amount)
	}

	info, err := m.Get(kp.PublicKey().Address())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if info.IsActive {
		t.Fatal("expected a 100%% slash to deactivate the verifier")
	}
	if m.ActiveVerifierCount() != 0 {
		t.Fatalf("expected 0 active verifiers after full slash, got %d", m.ActiveVerifierCount())
	}

	events := m.Events()
	if len(events) != 1 || events[0].Reason.Kind != KindHoneyPotApproval {
		t.Fatalf("expected 1 recorded honey pot slash event, got %+v", events)
	}
}

func TestSlashPartialKeepsVerifierActive(t *testing.T) {
	m := NewManager()
	kp, _ := crypto.GenerateKeypair()
	if err := m.Stake(kp.PublicKey(), types.AmountFromHclaw(1000)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	if _, err := m.Slash(kp.PublicKey().Address(), SlashingReason{Kind: KindInvalidVerification}, 100); err != nil {
		t.Fatalf("slash: %v", err)
	}

	info, err := m.Get(kp.PublicKey().Address())
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if !info.IsActive {
		t.Fatal("expected a 10%% slash to leave the verifier active")
	}
	want := types.AmountFromHclaw(1000).Percentage(10)
	if info.TotalSlashed != want {
		t.Fatalf("expected %s slashed, got %s", want, info.TotalSlashed)
	}
	if !info.CanVerify(m.MinStake()) {
		t.Fatal("expected effective stake to still clear the minimum")
	}
}

func TestUnstakeLifecycle(t *testing.T) {
	m := NewManager()
	kp, _ := crypto.GenerateKeypair()
	addr := kp.PublicKey().Address()
	if err := m.Stake(kp.PublicKey(), types.AmountFromHclaw(1000)); err != nil {
		t.Fatalf("stake: %v", err)
	}

	if err := m.BeginUnstake(addr, 0); err != nil {
		t.Fatalf("begin unstake: %v", err)
	}
	if err := m.BeginUnstake(addr, 0); err != ErrAlreadyUnstaking {
		t.Fatalf("expected ErrAlreadyUnstaking, got %v", err)
	}

	if _, err := m.CompleteUnstake(addr, 1); err == nil {
		t.Fatal("expected unbonding-not-complete error before the period elapses")
	} else if _, ok := err.(*UnbondingNotCompleteError); !ok {
		t.Fatalf("expected UnbondingNotCompleteError, got %v", err)
	}

	withdrawn, err := m.CompleteUnstake(addr, DefaultUnbondingPeriodMs+1)
	if err != nil {
		t.Fatalf("complete unstake: %v", err)
	}
	if withdrawn != types.AmountFromHclaw(1000) {
		t.Fatalf("expected 1000 HCLAW withdrawn, got %s", withdrawn)
	}

	if _, err := m.Get(addr); err != ErrNotFound {
		t.Fatalf("expected record removed after completing unstake, got %v", err)
	}
}

func TestGetUnknownVerifier(t *testing.T) {
	m := NewManager()
	kp, _ := crypto.GenerateKeypair()
	if _, err := m.Get(kp.PublicKey().Address()); err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
