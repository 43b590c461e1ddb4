// Copyright 2025 Certen Protocol

package state

import (
	"testing"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/types"
)

func testBlock(height uint64, parent crypto.Hash) *types.Block {
	header := types.BlockHeader{
		Height:     height,
		ParentHash: parent,
		Timestamp:  int64(height) * 1000,
		Version:    types.ProtocolVersion,
	}
	return &types.Block{Header: header, Hash: header.ComputeHash()}
}

func TestAccountCreditDebit(t *testing.T) {
	acct := NewAccountState(types.AmountFromHclaw(100))

	acct.Credit(types.AmountFromHclaw(50))
	if acct.Balance != types.AmountFromHclaw(150) {
		t.Fatalf("expected balance 150 after credit, got %s", acct.Balance)
	}

	if err := acct.Debit(types.AmountFromHclaw(200)); err == nil {
		t.Fatal("expected insufficient balance error")
	} else if _, ok := err.(*InsufficientBalanceError); !ok {
		t.Fatalf("expected InsufficientBalanceError, got %v", err)
	}

	if err := acct.Debit(types.AmountFromHclaw(150)); err != nil {
		t.Fatalf("debit: %v", err)
	}
	if !acct.Balance.IsZero() {
		t.Fatalf("expected zero balance after debiting in full, got %s", acct.Balance)
	}
}

func TestAvailableBalanceExcludesStaked(t *testing.T) {
	acct := NewAccountState(types.AmountFromHclaw(100))
	acct.Staked = types.AmountFromHclaw(40)

	if acct.AvailableBalance() != types.AmountFromHclaw(60) {
		t.Fatalf("expected available balance 60, got %s", acct.AvailableBalance())
	}
	if err := acct.Debit(types.AmountFromHclaw(70)); err == nil {
		t.Fatal("expected debit beyond available (unstaked) balance to fail")
	}
}

func TestGetOrCreateAccount(t *testing.T) {
	s := New()
	kp, _ := crypto.GenerateKeypair()
	addr := kp.PublicKey().Address()

	if _, ok := s.GetAccount(addr); ok {
		t.Fatal("expected unknown account to be absent")
	}
	if bal := s.BalanceOf(addr); !bal.IsZero() {
		t.Fatalf("expected zero balance for unknown account, got %s", bal)
	}

	acct := s.GetOrCreateAccount(addr)
	acct.Credit(types.AmountFromHclaw(10))

	got, ok := s.GetAccount(addr)
	if !ok {
		t.Fatal("expected account to now exist")
	}
	if got.Balance != types.AmountFromHclaw(10) {
		t.Fatalf("expected balance 10, got %s", got.Balance)
	}
}

func TestTransfer(t *testing.T) {
	s := New()
	alice, _ := crypto.GenerateKeypair()
	bob, _ := crypto.GenerateKeypair()
	aliceAddr, bobAddr := alice.PublicKey().Address(), bob.PublicKey().Address()

	s.GetOrCreateAccount(aliceAddr).Credit(types.AmountFromHclaw(100))

	if err := s.Transfer(aliceAddr, bobAddr, types.AmountFromHclaw(40)); err != nil {
		t.Fatalf("transfer: %v", err)
	}
	if bal := s.BalanceOf(aliceAddr); bal != types.AmountFromHclaw(60) {
		t.Fatalf("expected alice balance 60, got %s", bal)
	}
	if bal := s.BalanceOf(bobAddr); bal != types.AmountFromHclaw(40) {
		t.Fatalf("expected bob balance 40, got %s", bal)
	}

	if err := s.Transfer(aliceAddr, bobAddr, types.AmountFromHclaw(1000)); err == nil {
		t.Fatal("expected transfer beyond balance to fail")
	}
}

func TestApplyBlockSequencing(t *testing.T) {
	s := New()
	genesis := testBlock(0, crypto.Hash{})
	if err := s.ApplyBlock(genesis); err != nil {
		t.Fatalf("apply genesis: %v", err)
	}

	tip, ok := s.Tip()
	if !ok || tip.Hash != genesis.Hash {
		t.Fatal("expected tip to be genesis")
	}
	if s.Height() != 0 {
		t.Fatalf("expected height 0, got %d", s.Height())
	}

	next := testBlock(1, genesis.Hash)
	if err := s.ApplyBlock(next); err != nil {
		t.Fatalf("apply next: %v", err)
	}
	if s.Height() != 1 {
		t.Fatalf("expected height 1, got %d", s.Height())
	}

	stored, ok := s.GetBlockAtHeight(1)
	if !ok || stored.Hash != next.Hash {
		t.Fatal("expected GetBlockAtHeight(1) to return the second block")
	}
}

func TestApplyBlockRejectsWrongParent(t *testing.T) {
	s := New()
	genesis := testBlock(0, crypto.Hash{})
	if err := s.ApplyBlock(genesis); err != nil {
		t.Fatalf("apply genesis: %v", err)
	}

	wrongParent := testBlock(1, crypto.Hash{0xFF})
	if err := s.ApplyBlock(wrongParent); err != ErrInvalidParent {
		t.Fatalf("expected ErrInvalidParent, got %v", err)
	}
}

func TestApplyBlockRejectsWrongHeight(t *testing.T) {
	s := New()
	genesis := testBlock(0, crypto.Hash{})
	if err := s.ApplyBlock(genesis); err != nil {
		t.Fatalf("apply genesis: %v", err)
	}

	skipped := testBlock(5, genesis.Hash)
	err := s.ApplyBlock(skipped)
	if _, ok := err.(*InvalidHeightError); !ok {
		t.Fatalf("expected InvalidHeightError, got %v", err)
	}
}

func TestApplyBlockRejectsNonZeroGenesisHeight(t *testing.T) {
	s := New()
	bad := testBlock(1, crypto.Hash{})
	err := s.ApplyBlock(bad)
	if _, ok := err.(*InvalidHeightError); !ok {
		t.Fatalf("expected InvalidHeightError for non-zero genesis, got %v", err)
	}
}

func TestComputeStateRootDeterministic(t *testing.T) {
	s1, s2 := New(), New()
	kp1, _ := crypto.GenerateKeypair()
	kp2, _ := crypto.GenerateKeypair()
	addr1, addr2 := kp1.PublicKey().Address(), kp2.PublicKey().Address()

	s1.GetOrCreateAccount(addr1).Credit(types.AmountFromHclaw(10))
	s1.GetOrCreateAccount(addr2).Credit(types.AmountFromHclaw(20))

	s2.GetOrCreateAccount(addr2).Credit(types.AmountFromHclaw(20))
	s2.GetOrCreateAccount(addr1).Credit(types.AmountFromHclaw(10))

	if s1.ComputeStateRoot() != s2.ComputeStateRoot() {
		t.Fatal("expected state root to be independent of account insertion order")
	}
}

func TestStoreAndGetJobSolution(t *testing.T) {
	s := New()
	kp, _ := crypto.GenerateKeypair()
	spec := types.VerificationSpec{Kind: types.VerificationKindHashMatch, ExpectedHash: crypto.HashData([]byte("x"))}
	job, err := types.NewJobPacket(kp, types.JobTypeDeterministic, []byte("in"), "d",
		types.AmountFromHclaw(1), types.AmountFromHclaw(1), spec, 0, 1000)
	if err != nil {
		t.Fatalf("new job: %v", err)
	}
	s.StoreJob(job)
	if got, ok := s.GetJob(job.ID); !ok || got.ID != job.ID {
		t.Fatal("expected job to be retrievable")
	}

	sol := types.NewSolutionCandidate(kp, job.ID, []byte("out"), 0)
	s.StoreSolution(sol)
	if got, ok := s.GetSolution(sol.ID); !ok || got.ID != sol.ID {
		t.Fatal("expected solution to be retrievable")
	}
}
