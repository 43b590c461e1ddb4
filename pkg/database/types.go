// Copyright 2025 Certen Protocol
//
// Database types for the HardClaw historical archive. These mirror the
// schema in migrations/001_initial_schema.sql and exist for SQL analytics
// and dashboards; the authoritative chain state lives in pkg/ledger.

package database

import "time"

// BlockRecord is an archived block header summary.
type BlockRecord struct {
	Height             uint64    `db:"height" json:"height"`
	Hash               string    `db:"hash" json:"hash"`
	ParentHash         string    `db:"parent_hash" json:"parent_hash"`
	StateRoot          string    `db:"state_root" json:"state_root"`
	Proposer           string    `db:"proposer" json:"proposer"`
	TimestampMs        int64     `db:"timestamp_ms" json:"timestamp_ms"`
	VerificationCount  int       `db:"verification_count" json:"verification_count"`
	AttestationCount   int       `db:"attestation_count" json:"attestation_count"`
	ConsensusPct       float64   `db:"consensus_pct" json:"consensus_pct"`
	InsertedAt         time.Time `db:"inserted_at" json:"inserted_at"`
}

// JobRecord is an archived job packet summary.
type JobRecord struct {
	ID               string    `db:"id" json:"id"`
	JobType          string    `db:"job_type" json:"job_type"`
	Status           string    `db:"status" json:"status"`
	RequesterAddr    string    `db:"requester_addr" json:"requester_addr"`
	BountyHclaw      string    `db:"bounty_hclaw" json:"bounty_hclaw"`
	BurnFeeHclaw     string    `db:"burn_fee_hclaw" json:"burn_fee_hclaw"`
	VerificationKind string    `db:"verification_kind" json:"verification_kind"`
	CreatedAtMs      int64     `db:"created_at_ms" json:"created_at_ms"`
	ExpiresAtMs      int64     `db:"expires_at_ms" json:"expires_at_ms"`
	InsertedAt       time.Time `db:"inserted_at" json:"inserted_at"`
}

// SolutionRecord is an archived solution candidate summary.
type SolutionRecord struct {
	ID             string    `db:"id" json:"id"`
	JobID          string    `db:"job_id" json:"job_id"`
	SolverAddr     string    `db:"solver_addr" json:"solver_addr"`
	Status         string    `db:"status" json:"status"`
	IsHoneyPot     bool      `db:"is_honey_pot" json:"is_honey_pot"`
	SubmittedAtMs  int64     `db:"submitted_at_ms" json:"submitted_at_ms"`
	InsertedAt     time.Time `db:"inserted_at" json:"inserted_at"`
}

// VerificationRecord is an archived verification result.
type VerificationRecord struct {
	SolutionID   string `db:"solution_id" json:"solution_id"`
	JobID        string `db:"job_id" json:"job_id"`
	Verifier     string `db:"verifier" json:"verifier"`
	Passed       bool   `db:"passed" json:"passed"`
	VerifiedAtMs int64  `db:"verified_at_ms" json:"verified_at_ms"`
	BlockHeight  uint64 `db:"block_height" json:"block_height"`
}
