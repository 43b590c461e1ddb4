// Copyright 2025 Certen Protocol

package safety

import (
	"crypto/rand"
	"testing"

	"github.com/hardclaw/node/pkg/crypto"
)

func TestManagerFullReviewCycle(t *testing.T) {
	m := NewManager()
	codeHash := crypto.HashData([]byte("verify() { return true; }"))

	var reviewers []*crypto.Keypair
	var pubKeys []crypto.PublicKey
	for i := 0; i < 3; i++ {
		kp, err := crypto.GenerateKeypair()
		if err != nil {
			t.Fatalf("generate keypair: %v", err)
		}
		reviewers = append(reviewers, kp)
		pubKeys = append(pubKeys, kp.PublicKey())
	}

	request := Request{CodeHash: codeHash, Code: "verify() {}", Language: "javascript", GasAmount: 1000, MinReviewers: 3}
	session, err := m.StartReview(request, pubKeys, 0)
	if err != nil {
		t.Fatalf("start review: %v", err)
	}
	if len(session.SelectedReviewers) != 3 {
		t.Fatalf("expected 3 selected reviewers, got %d", len(session.SelectedReviewers))
	}

	votes := make([]Vote, 3)
	for i, kp := range reviewers {
		var nonce [crypto.NonceSize]byte
		_, _ = rand.Read(nonce[:])
		vote := Vote{CodeHash: codeHash, Verdict: VerdictSafe, Confidence: 0.9, Reviewer: kp.PublicKey(), Nonce: nonce}
		votes[i] = vote

		commit := Commit{VoteHash: vote.CommitmentHash(), Reviewer: kp.PublicKey(), Timestamp: 0}
		if err := m.SubmitCommit(codeHash, commit, 0); err != nil {
			t.Fatalf("submit commit %d: %v", i, err)
		}
	}

	var consensus *Consensus
	for i, vote := range votes {
		c, err := m.RevealVote(codeHash, vote, commitPhaseDurationMs+1)
		if err != nil {
			t.Fatalf("reveal vote %d: %v", i, err)
		}
		if c != nil {
			consensus = c
		}
	}

	if consensus == nil {
		t.Fatal("expected consensus after final reveal")
	}
	if !consensus.Decision.IsApproved() {
		t.Fatalf("expected approved decision, got %v", consensus.Decision)
	}

	for _, kp := range reviewers {
		rep, ok := m.Reputation(kp.PublicKey())
		if !ok {
			t.Fatalf("expected reputation to be tracked for %s", kp.PublicKey())
		}
		if rep.TotalReviews != 1 {
			t.Fatalf("expected 1 tracked review, got %d", rep.TotalReviews)
		}
	}
}

func TestManagerNotEnoughReviewers(t *testing.T) {
	m := NewManager()
	codeHash := crypto.HashData([]byte("code"))
	kp, _ := crypto.GenerateKeypair()

	_, err := m.StartReview(Request{CodeHash: codeHash, MinReviewers: 3}, []crypto.PublicKey{kp.PublicKey()}, 0)
	if err != ErrNotEnoughReviewers {
		t.Fatalf("expected ErrNotEnoughReviewers, got %v", err)
	}
}
