// Copyright 2025 Certen Protocol

package server

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/schelling"
	"github.com/hardclaw/node/pkg/types"
)

func TestSchellingCommitAndReveal(t *testing.T) {
	config := schelling.DefaultConfig()
	config.MinVoters = 1
	consensus := schelling.NewConsensus(config)
	h := NewSchellingHandlers(consensus, nil)

	solutionID := crypto.HashData([]byte("solution-under-vote"))
	if _, err := consensus.StartRound(solutionID, types.NowMillis()); err != nil {
		t.Fatalf("start round: %v", err)
	}

	voter, _ := crypto.GenerateKeypair()
	vote, err := types.CommitVote(voter.PublicKey(), solutionID, types.VoteAccept, 90)
	if err != nil {
		t.Fatalf("commit vote: %v", err)
	}

	commitBody, _ := json.Marshal(commitRequest{
		Voter:      voter.PublicKey().Hex(),
		Commitment: hex.EncodeToString(vote.Commitment.Bytes()),
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/schelling/"+solutionID.Hex()+"/commit", bytes.NewReader(commitBody))
	rec := httptest.NewRecorder()
	h.dispatch(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("commit: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	round, ok := consensus.GetRound(solutionID)
	if !ok {
		t.Fatal("expected round to exist")
	}
	round.ForcePhase(schelling.PhaseReveal)

	revealBody, _ := json.Marshal(revealRequest{
		Voter:        voter.PublicKey().Hex(),
		Vote:         uint8(types.VoteAccept),
		QualityScore: 90,
		Nonce:        hex.EncodeToString(vote.Nonce[:]),
	})
	req = httptest.NewRequest(http.MethodPost, "/v1/schelling/"+solutionID.Hex()+"/reveal", bytes.NewReader(revealBody))
	rec = httptest.NewRecorder()
	h.dispatch(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("reveal: expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	round.ForcePhase(schelling.PhaseComplete)
	outcome, err := consensus.FinalizeRound(solutionID, types.NowMillis())
	if err != nil {
		t.Fatalf("finalize round: %v", err)
	}
	if !outcome.Accepted {
		t.Error("expected round to accept with a single unanimous high-quality vote")
	}
}

func TestSchellingCommitUnknownRound(t *testing.T) {
	consensus := schelling.NewConsensus(schelling.DefaultConfig())
	h := NewSchellingHandlers(consensus, nil)

	voter, _ := crypto.GenerateKeypair()
	body, _ := json.Marshal(commitRequest{
		Voter:      voter.PublicKey().Hex(),
		Commitment: hex.EncodeToString(make([]byte, 32)),
	})
	req := httptest.NewRequest(http.MethodPost, "/v1/schelling/"+crypto.ZeroHash.Hex()+"/commit", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.dispatch(rec, req)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 for unknown round, got %d", rec.Code)
	}
}
