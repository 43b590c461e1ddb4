// Copyright 2025 Certen Protocol

package consensus

import (
	"context"
	"testing"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/sandbox"
	"github.com/hardclaw/node/pkg/types"
)

func TestBlockProducerCreation(t *testing.T) {
	kp, _ := crypto.GenerateKeypair()
	pov := NewProofOfVerification(sandbox.NewDefaultRegistry(sandbox.DefaultConfig()), nil)
	producer := NewBlockProducer(kp, pov, DefaultBlockProducerConfig())

	if producer.PendingCount() != 0 {
		t.Fatal("expected no pending verifications")
	}
	if producer.ShouldProduceBlock() {
		t.Fatal("expected not ready to produce a block yet")
	}
}

func TestVerifyAndProduce(t *testing.T) {
	kp, _ := crypto.GenerateKeypair()
	pov := NewProofOfVerification(sandbox.NewDefaultRegistry(sandbox.DefaultConfig()), nil)
	producer := NewBlockProducer(kp, pov, DefaultBlockProducerConfig())

	job, solution, _, _ := testJobAndSolution(t)

	result, err := producer.VerifySolution(context.Background(), job, solution)
	if err != nil {
		t.Fatalf("verify solution: %v", err)
	}
	if !result.Passed {
		t.Fatal("expected solution to pass verification")
	}
	if producer.PendingCount() != 1 {
		t.Fatalf("expected 1 pending verification, got %d", producer.PendingCount())
	}
	if !producer.ShouldProduceBlock() {
		t.Fatal("expected producer to be ready")
	}

	block, err := producer.ProduceBlock(crypto.ZeroHash)
	if err != nil {
		t.Fatalf("produce block: %v", err)
	}
	if block.Header.Height != 1 {
		t.Fatalf("expected height 1, got %d", block.Header.Height)
	}
	if len(block.Verifications) != 1 {
		t.Fatalf("expected 1 verification in block, got %d", len(block.Verifications))
	}
	if len(block.Attestations) == 0 {
		t.Fatal("expected the producer's own attestation to be attached")
	}
}

func TestFailedVerificationNotQueued(t *testing.T) {
	kp, _ := crypto.GenerateKeypair()
	pov := NewProofOfVerification(sandbox.NewDefaultRegistry(sandbox.DefaultConfig()), nil)
	producer := NewBlockProducer(kp, pov, DefaultBlockProducerConfig())

	job, _, _, solver := testJobAndSolution(t)
	badSolution := types.NewSolutionCandidate(solver, job.ID, []byte("wrong output"), types.NowMillis())

	result, err := producer.VerifySolution(context.Background(), job, badSolution)
	if err != nil {
		t.Fatalf("verify solution: %v", err)
	}
	if result.Passed {
		t.Fatal("expected verification to fail")
	}
	if producer.PendingCount() != 0 {
		t.Fatalf("expected 0 pending verifications, got %d", producer.PendingCount())
	}
}
