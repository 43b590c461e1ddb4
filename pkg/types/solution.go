// Copyright 2025 Certen Protocol

package types

import (
	"encoding/binary"
	"errors"

	"github.com/hardclaw/node/pkg/crypto"
)

// SolutionStatus tracks a solution's verification lifecycle.
type SolutionStatus uint8

const (
	SolutionStatusPending SolutionStatus = iota
	SolutionStatusVerifying
	SolutionStatusVerified
	SolutionStatusRejected
	SolutionStatusHoneyPot
)

// SolutionCandidate is a solver's submitted answer to a job.
type SolutionCandidate struct {
	ID          Id
	JobID       Id
	Solver      crypto.PublicKey
	SolverAddr  crypto.Address
	Output      []byte
	OutputHash  crypto.Hash
	Status      SolutionStatus
	SubmittedAt Timestamp
	Signature   crypto.Signature

	// IsHoneyPot marks a fabricated solution used to trap lazy verifiers.
	// It is not part of the solution ID or the signed bytes; it is carried
	// in the struct's JSON encoding and stored by the archive.
	IsHoneyPot bool
}

// ErrInvalidSolutionSignature is returned when a solution's signature does
// not verify against its solver.
var ErrInvalidSolutionSignature = errors.New("types: invalid solution signature")

// NewSolutionCandidate constructs, hashes, and signs a new solution.
func NewSolutionCandidate(keypair *crypto.Keypair, jobID Id, output []byte, submittedAt Timestamp) *SolutionCandidate {
	sol := &SolutionCandidate{
		JobID:       jobID,
		Solver:      keypair.PublicKey(),
		SolverAddr:  keypair.Address(),
		Output:      output,
		OutputHash:  crypto.HashData(output),
		Status:      SolutionStatusPending,
		SubmittedAt: submittedAt,
	}
	sol.ID = sol.ComputeID()
	sol.Signature = keypair.Sign(sol.SigningBytes())
	return sol
}

// NewHoneyPotSolution builds a fabricated solution attributed to
// keypair, marked IsHoneyPot so the mempool and verifiers can route it
// through the honey-pot detection path instead of normal payout.
func NewHoneyPotSolution(keypair *crypto.Keypair, jobID Id, fakeOutput []byte, submittedAt Timestamp) *SolutionCandidate {
	sol := NewSolutionCandidate(keypair, jobID, fakeOutput, submittedAt)
	sol.IsHoneyPot = true
	return sol
}

// ComputeID hashes job_id || solver || output_hash || submitted_at(LE).
func (s *SolutionCandidate) ComputeID() Id {
	h := crypto.NewHasher()
	h.Update(s.JobID[:])
	h.Update(s.Solver[:])
	h.Update(s.OutputHash[:])
	submitted := make([]byte, 8)
	binary.LittleEndian.PutUint64(submitted, uint64(s.SubmittedAt))
	h.Update(submitted)
	return h.Finalize()
}

// SigningBytes returns id || job_id || solver || output_hash ||
// submitted_at(LE).
func (s *SolutionCandidate) SigningBytes() []byte {
	buf := make([]byte, 0, 32*4+8)
	buf = append(buf, s.ID[:]...)
	buf = append(buf, s.JobID[:]...)
	buf = append(buf, s.Solver[:]...)
	buf = append(buf, s.OutputHash[:]...)
	submitted := make([]byte, 8)
	binary.LittleEndian.PutUint64(submitted, uint64(s.SubmittedAt))
	buf = append(buf, submitted...)
	return buf
}

// VerifySignature checks the solver's signature over SigningBytes.
func (s *SolutionCandidate) VerifySignature() error {
	if err := crypto.Verify(s.Solver, s.SigningBytes(), s.Signature); err != nil {
		return ErrInvalidSolutionSignature
	}
	return nil
}

// IsPending reports whether the solution is still awaiting verification.
func (s *SolutionCandidate) IsPending() bool {
	return s.Status == SolutionStatusPending
}

// IsVerified reports whether the solution passed verification.
func (s *SolutionCandidate) IsVerified() bool {
	return s.Status == SolutionStatusVerified
}

// MarkVerified transitions the solution to Verified.
func (s *SolutionCandidate) MarkVerified() {
	s.Status = SolutionStatusVerified
}

// MarkRejected transitions the solution to Rejected.
func (s *SolutionCandidate) MarkRejected() {
	s.Status = SolutionStatusRejected
}
