// Copyright 2025 Certen Protocol

package schelling

import (
	"testing"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/types"
)

func TestRoundCommitRevealAccept(t *testing.T) {
	consensus := NewConsensus(DefaultConfig())
	solutionID := crypto.HashData([]byte("solution"))

	if _, err := consensus.StartRound(solutionID, 0); err != nil {
		t.Fatalf("start round: %v", err)
	}

	type voter struct {
		kp   *crypto.Keypair
		vote *types.VerificationVote
	}
	voters := make([]voter, 3)
	for i := range voters {
		kp, err := crypto.GenerateKeypair()
		if err != nil {
			t.Fatalf("generate keypair: %v", err)
		}
		vote, err := types.CommitVote(kp.PublicKey(), solutionID, types.VoteAccept, 90)
		if err != nil {
			t.Fatalf("commit vote: %v", err)
		}
		voters[i] = voter{kp: kp, vote: vote}
		if err := consensus.SubmitCommitment(solutionID, vote); err != nil {
			t.Fatalf("submit commitment %d: %v", i, err)
		}
	}

	round, ok := consensus.GetRound(solutionID)
	if !ok {
		t.Fatal("expected round to exist")
	}
	if round.CommitmentCount() != len(voters) {
		t.Fatalf("expected %d commitments, got %d", len(voters), round.CommitmentCount())
	}
	round.ForcePhase(PhaseReveal)

	for i, v := range voters {
		if err := consensus.RevealVote(solutionID, v.kp.PublicKey(), types.VoteAccept, 90, v.vote.Nonce); err != nil {
			t.Fatalf("reveal vote %d: %v", i, err)
		}
	}
	if round.RevealCount() != len(voters) {
		t.Fatalf("expected %d reveals, got %d", len(voters), round.RevealCount())
	}

	round.ForcePhase(PhaseComplete)
	outcome, err := consensus.FinalizeRound(solutionID, 1000)
	if err != nil {
		t.Fatalf("finalize round: %v", err)
	}
	if !outcome.Accepted {
		t.Fatal("expected unanimous high-quality accept votes to finalize as accepted")
	}
	if len(outcome.Deviants) != 0 {
		t.Fatalf("expected no deviants on a unanimous round, got %d", len(outcome.Deviants))
	}
}

func TestRoundRevealWrongNonceFails(t *testing.T) {
	consensus := NewConsensus(DefaultConfig())
	solutionID := crypto.HashData([]byte("solution-bad-reveal"))
	if _, err := consensus.StartRound(solutionID, 0); err != nil {
		t.Fatalf("start round: %v", err)
	}

	kp, _ := crypto.GenerateKeypair()
	vote, err := types.CommitVote(kp.PublicKey(), solutionID, types.VoteAccept, 90)
	if err != nil {
		t.Fatalf("commit vote: %v", err)
	}
	if err := consensus.SubmitCommitment(solutionID, vote); err != nil {
		t.Fatalf("submit commitment: %v", err)
	}

	round, _ := consensus.GetRound(solutionID)
	round.ForcePhase(PhaseReveal)

	wrongNonce, err := types.CommitVote(kp.PublicKey(), solutionID, types.VoteAccept, 90)
	if err != nil {
		t.Fatalf("generate mismatched vote: %v", err)
	}
	if err := consensus.RevealVote(solutionID, kp.PublicKey(), types.VoteAccept, 90, wrongNonce.Nonce); err != ErrCommitmentMismatch {
		t.Fatalf("expected ErrCommitmentMismatch, got %v", err)
	}
}

func TestRoundFinalizeDetectsDeviants(t *testing.T) {
	consensus := NewConsensus(DefaultConfig())
	solutionID := crypto.HashData([]byte("solution-deviant"))

	if _, err := consensus.StartRound(solutionID, 0); err != nil {
		t.Fatalf("start round: %v", err)
	}

	majority := make([]*crypto.Keypair, 2)
	majorityVotes := make([]*types.VerificationVote, 2)
	for i := range majority {
		kp, _ := crypto.GenerateKeypair()
		majority[i] = kp
		vote, err := types.CommitVote(kp.PublicKey(), solutionID, types.VoteAccept, 95)
		if err != nil {
			t.Fatalf("commit majority vote %d: %v", i, err)
		}
		majorityVotes[i] = vote
		if err := consensus.SubmitCommitment(solutionID, vote); err != nil {
			t.Fatalf("submit majority commitment %d: %v", i, err)
		}
	}

	deviantKey, _ := crypto.GenerateKeypair()
	deviantVote, err := types.CommitVote(deviantKey.PublicKey(), solutionID, types.VoteReject, 10)
	if err != nil {
		t.Fatalf("commit deviant vote: %v", err)
	}
	if err := consensus.SubmitCommitment(solutionID, deviantVote); err != nil {
		t.Fatalf("submit deviant commitment: %v", err)
	}

	round, _ := consensus.GetRound(solutionID)
	round.ForcePhase(PhaseReveal)

	for i, kp := range majority {
		if err := consensus.RevealVote(solutionID, kp.PublicKey(), types.VoteAccept, 95, majorityVotes[i].Nonce); err != nil {
			t.Fatalf("reveal majority vote %d: %v", i, err)
		}
	}
	if err := consensus.RevealVote(solutionID, deviantKey.PublicKey(), types.VoteReject, 10, deviantVote.Nonce); err != nil {
		t.Fatalf("reveal deviant vote: %v", err)
	}

	round.ForcePhase(PhaseComplete)
	outcome, err := consensus.FinalizeRound(solutionID, 1000)
	if err != nil {
		t.Fatalf("finalize round: %v", err)
	}
	if !outcome.Accepted {
		t.Fatal("expected round to accept on 2-1 majority above the quality threshold")
	}
	if len(outcome.Deviants) != 1 {
		t.Fatalf("expected exactly 1 deviant, got %d", len(outcome.Deviants))
	}
	if outcome.Deviants[0] != deviantKey.PublicKey() {
		t.Fatal("expected the reject voter to be flagged as the deviant")
	}

	if _, stillActive := consensus.GetRound(solutionID); stillActive {
		t.Fatal("expected round to be removed from the active set after finalize")
	}
	if _, ok := consensus.GetOutcome(solutionID); !ok {
		t.Fatal("expected outcome to be retrievable after finalize")
	}
}

func TestRoundFinalizeWithoutQuorum(t *testing.T) {
	config := DefaultConfig()
	config.MinVoters = 3
	consensus := NewConsensus(config)
	solutionID := crypto.HashData([]byte("solution-no-quorum"))

	if _, err := consensus.StartRound(solutionID, 0); err != nil {
		t.Fatalf("start round: %v", err)
	}

	voters := make([]*crypto.Keypair, 2)
	votes := make([]*types.VerificationVote, 2)
	for i := range voters {
		kp, _ := crypto.GenerateKeypair()
		voters[i] = kp
		vote, err := types.CommitVote(kp.PublicKey(), solutionID, types.VoteAccept, 95)
		if err != nil {
			t.Fatalf("commit vote %d: %v", i, err)
		}
		votes[i] = vote
		if err := consensus.SubmitCommitment(solutionID, vote); err != nil {
			t.Fatalf("submit commitment %d: %v", i, err)
		}
	}

	round, _ := consensus.GetRound(solutionID)
	round.ForcePhase(PhaseReveal)
	for i, kp := range voters {
		if err := consensus.RevealVote(solutionID, kp.PublicKey(), types.VoteAccept, 95, votes[i].Nonce); err != nil {
			t.Fatalf("reveal vote %d: %v", i, err)
		}
	}

	round.ForcePhase(PhaseComplete)
	outcome, err := consensus.FinalizeRound(solutionID, 1000)
	if err != nil {
		t.Fatalf("finalize round: %v", err)
	}
	if outcome.Accepted {
		t.Fatal("expected a round below MinVoters quorum to not accept")
	}
	if len(outcome.Deviants) != 0 {
		t.Fatalf("expected no deviants slashed below quorum, got %d", len(outcome.Deviants))
	}
	if outcome.Results.Majority != nil {
		t.Fatal("expected no tally to be computed below quorum")
	}
}

func TestSubmitCommitmentUnknownRound(t *testing.T) {
	consensus := NewConsensus(DefaultConfig())
	kp, _ := crypto.GenerateKeypair()
	vote, _ := types.CommitVote(kp.PublicKey(), crypto.ZeroHash, types.VoteAccept, 80)

	if err := consensus.SubmitCommitment(crypto.ZeroHash, vote); err != ErrRoundNotFound {
		t.Fatalf("expected ErrRoundNotFound, got %v", err)
	}
}

func TestSubmitCommitmentWrongPhase(t *testing.T) {
	consensus := NewConsensus(DefaultConfig())
	solutionID := crypto.HashData([]byte("wrong-phase"))
	round, err := consensus.StartRound(solutionID, 0)
	if err != nil {
		t.Fatalf("start round: %v", err)
	}
	round.ForcePhase(PhaseReveal)

	kp, _ := crypto.GenerateKeypair()
	vote, _ := types.CommitVote(kp.PublicKey(), solutionID, types.VoteAccept, 80)
	err = consensus.SubmitCommitment(solutionID, vote)
	if _, ok := err.(*WrongPhaseError); !ok {
		t.Fatalf("expected WrongPhaseError, got %v", err)
	}
}

func TestTick(t *testing.T) {
	consensus := NewConsensus(Config{
		SolverRedundancy:    1,
		MinVoters:           1,
		CommitPhaseMs:       10,
		RevealPhaseMs:       10,
		QualityThreshold:    50,
		DeviantSlashPercent: 5,
	})
	solutionID := crypto.HashData([]byte("tick"))
	if _, err := consensus.StartRound(solutionID, 0); err != nil {
		t.Fatalf("start round: %v", err)
	}

	consensus.Tick(5)
	round, _ := consensus.GetRound(solutionID)
	if round.Phase() != PhaseCommit {
		t.Fatalf("expected still commit phase at t=5, got %s", round.Phase())
	}

	consensus.Tick(15)
	if round.Phase() != PhaseReveal {
		t.Fatalf("expected reveal phase at t=15, got %s", round.Phase())
	}

	consensus.Tick(25)
	if round.Phase() != PhaseComplete {
		t.Fatalf("expected complete phase at t=25, got %s", round.Phase())
	}
}
