// Copyright 2025 Certen Protocol

package tokenomics

import (
	"testing"

	"github.com/holiman/uint256"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/types"
)

func testAddresses(t *testing.T) (crypto.Address, crypto.Address) {
	t.Helper()
	solver, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("generate solver keypair: %v", err)
	}
	verifier, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("generate verifier keypair: %v", err)
	}
	return solver.PublicKey().Address(), verifier.PublicKey().Address()
}

func TestDistributeConservesBounty(t *testing.T) {
	d := NewFeeDistributor(95, 4, 1)
	solver, verifier := testAddresses(t)

	// 103 base units at 95/4/1 would floor to 97+4+1=102 if each share
	// were computed independently, silently losing 1 unit.
	bounty := types.AmountFromRaw(uint256.NewInt(103))
	dist := d.Distribute(bounty, solver, verifier)

	sum := dist.SolverAmount.SaturatingAdd(dist.VerifierAmount).SaturatingAdd(dist.BurnAmount)
	if sum != bounty {
		t.Fatalf("expected solver+verifier+burn to equal bounty %s exactly, got %s", bounty, sum)
	}
}

func TestDistributeConservesBountyAcrossRange(t *testing.T) {
	d := NewFeeDistributor(95, 4, 1)
	solver, verifier := testAddresses(t)

	for raw := uint64(0); raw < 300; raw++ {
		bounty := types.AmountFromRaw(uint256.NewInt(raw))
		dist := d.Distribute(bounty, solver, verifier)
		sum := dist.SolverAmount.SaturatingAdd(dist.VerifierAmount).SaturatingAdd(dist.BurnAmount)
		if sum != bounty {
			t.Fatalf("raw=%d: expected conservation, got sum %s for bounty %s", raw, sum, bounty)
		}
	}
}

func TestDistributeAssignsRecipients(t *testing.T) {
	d := NewFeeDistributor(95, 4, 1)
	solver, verifier := testAddresses(t)
	bounty := types.AmountFromHclaw(100)

	dist := d.Distribute(bounty, solver, verifier)
	if dist.Solver != solver {
		t.Fatal("expected solver address to be recorded")
	}
	if dist.Verifier != verifier {
		t.Fatal("expected verifier address to be recorded")
	}
}

func TestConfigIsValid(t *testing.T) {
	valid := Config{SolverShare: 95, VerifierShare: 4, BurnShare: 1}
	if !valid.IsValid() {
		t.Fatal("expected 95+4+1 to be valid")
	}
	invalid := Config{SolverShare: 95, VerifierShare: 4, BurnShare: 2}
	if invalid.IsValid() {
		t.Fatal("expected shares not summing to 100 to be invalid")
	}
}

func TestNewEnginePanicsOnInvalidShares(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected NewEngine to panic on shares not summing to 100")
		}
	}()
	NewEngine(Config{SolverShare: 50, VerifierShare: 50, BurnShare: 50})
}

func TestProcessJobCompletionRecordsBurn(t *testing.T) {
	engine := NewDefaultEngine()
	solver, verifier := testAddresses(t)

	dist := engine.ProcessJobCompletion(types.AmountFromHclaw(100), solver, verifier, 0)
	if engine.TotalBurned() != dist.BurnAmount {
		t.Fatalf("expected total burned %s to match distribution burn %s", engine.TotalBurned(), dist.BurnAmount)
	}
	if engine.SupplyMetrics().TotalBurned != dist.BurnAmount {
		t.Fatalf("expected supply metrics burned to match, got %s", engine.SupplyMetrics().TotalBurned)
	}
}

func TestProcessJobSubmissionRejectsLowBurn(t *testing.T) {
	engine := NewDefaultEngine()
	err := engine.ProcessJobSubmission(types.AmountFromRaw(uint256.NewInt(1)), 0)
	if _, ok := err.(*InsufficientBurnError); !ok {
		t.Fatalf("expected InsufficientBurnError, got %v", err)
	}
}

func TestCalculateBlockRewardDecreasesWithDifficulty(t *testing.T) {
	engine := NewDefaultEngine()

	base := engine.CalculateBlockReward(0)
	harder := engine.CalculateBlockReward(1000)
	if !harder.LessThan(base) {
		t.Fatalf("expected reward at higher difficulty (%s) to be less than base (%s)", harder, base)
	}

	tiny := NewEngine(Config{
		SolverShare: 95, VerifierShare: 4, BurnShare: 1,
		TargetBlockReward: types.AmountFromRaw(uint256.NewInt(1)),
	})
	one := types.AmountFromRaw(uint256.NewInt(1))
	if floor := tiny.CalculateBlockReward(1); floor != one {
		t.Fatalf("expected reward to floor at 1 base unit, got %s", floor)
	}
}

func TestBurnManagerTracksTotalsByReason(t *testing.T) {
	m := NewBurnManager()
	m.Burn(types.AmountFromHclaw(10), BurnReasonJobFee, 0)
	m.Burn(types.AmountFromHclaw(5), BurnReasonSlashing, 1)

	if m.TotalBurned() != types.AmountFromHclaw(15) {
		t.Fatalf("expected total burned 15, got %s", m.TotalBurned())
	}
	if m.BurnedFor(BurnReasonJobFee) != types.AmountFromHclaw(10) {
		t.Fatalf("expected job-fee burns 10, got %s", m.BurnedFor(BurnReasonJobFee))
	}

	stats := m.Stats()
	if stats.BurnCount != 2 {
		t.Fatalf("expected 2 recorded burn events, got %d", stats.BurnCount)
	}
}

func TestSupplyManagerDifficultyAdjustsUpOnFastBlocks(t *testing.T) {
	m := NewSupplyManager()
	start := m.Difficulty()

	for i := uint64(0); i < DefaultAdjustmentWindow; i++ {
		m.RecordBlockTime(DefaultTargetBlockTimeMs / 2)
	}

	if m.Difficulty() <= start {
		t.Fatalf("expected difficulty to rise above %d after a run of fast blocks, got %d", start, m.Difficulty())
	}
}

func TestSupplyManagerDifficultyAdjustsDownOnSlowBlocks(t *testing.T) {
	m := NewSupplyManager()
	for i := uint64(0); i < DefaultAdjustmentWindow; i++ {
		m.RecordBlockTime(DefaultTargetBlockTimeMs / 2)
	}
	raised := m.Difficulty()

	for i := uint64(0); i < DefaultAdjustmentWindow; i++ {
		m.RecordBlockTime(DefaultTargetBlockTimeMs * 2)
	}
	if m.Difficulty() >= raised {
		t.Fatalf("expected difficulty to fall below %d after a run of slow blocks, got %d", raised, m.Difficulty())
	}
}

func TestSupplyManagerMintBurnMetrics(t *testing.T) {
	m := NewSupplyManager()
	m.RecordMint(types.AmountFromHclaw(100))
	m.RecordBurn(types.AmountFromHclaw(10))
	m.RecordStakeChange(types.AmountFromHclaw(20), types.AmountFromHclaw(5))

	metrics := m.Metrics()
	if metrics.NetSupply() != types.AmountFromHclaw(90) {
		t.Fatalf("expected net supply 90, got %s", metrics.NetSupply())
	}
	if metrics.TotalStaked != types.AmountFromHclaw(15) {
		t.Fatalf("expected total staked 15, got %s", metrics.TotalStaked)
	}
	wantEffective := metrics.CirculatingSupply.SaturatingSub(metrics.TotalStaked)
	if metrics.EffectiveCirculating != wantEffective {
		t.Fatalf("expected effective circulating %s, got %s", wantEffective, metrics.EffectiveCirculating)
	}
}
