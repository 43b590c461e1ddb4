// Copyright 2025 Certen Protocol

package types

import (
	"encoding/binary"
	"errors"

	"github.com/hardclaw/node/pkg/crypto"
)

// JobType distinguishes deterministically-verifiable jobs from subjective
// ones that require Schelling-point consensus.
type JobType uint8

const (
	JobTypeDeterministic JobType = iota
	JobTypeSubjective
)

// JobStatus tracks a job's lifecycle.
type JobStatus uint8

const (
	JobStatusPending JobStatus = iota
	JobStatusClaimed
	JobStatusVerifying
	JobStatusCompleted
	JobStatusExpired
	JobStatusDisputed
)

// VerificationKind tags which verification method a job requires.
type VerificationKind uint8

const (
	VerificationKindHashMatch VerificationKind = iota
	VerificationKindWasmVerifier
	VerificationKindPythonScript
	VerificationKindJavaScriptScript
	VerificationKindSchellingPoint
)

// VerificationSpec is a tagged union describing how a job's solutions must
// be verified. Exactly one of the kind-specific field groups is populated,
// selected by Kind.
type VerificationSpec struct {
	Kind VerificationKind

	// HashMatch
	ExpectedHash crypto.Hash

	// WasmVerifier
	ModuleHash crypto.Hash
	EntryPoint string

	// PythonScript / JavaScriptScript
	CodeHash crypto.Hash
	Code     string

	// SchellingPoint
	MinVoters       int
	QualityThreshold uint8
}

// Bytes returns the deterministic byte encoding of the spec used when it
// participates in a hash or signature.
func (v VerificationSpec) Bytes() []byte {
	buf := []byte{byte(v.Kind)}
	switch v.Kind {
	case VerificationKindHashMatch:
		buf = append(buf, v.ExpectedHash[:]...)
	case VerificationKindWasmVerifier:
		buf = append(buf, v.ModuleHash[:]...)
		buf = append(buf, []byte(v.EntryPoint)...)
	case VerificationKindPythonScript, VerificationKindJavaScriptScript:
		buf = append(buf, v.CodeHash[:]...)
	case VerificationKindSchellingPoint:
		minVoters := make([]byte, 8)
		binary.LittleEndian.PutUint64(minVoters, uint64(v.MinVoters))
		buf = append(buf, minVoters...)
		buf = append(buf, v.QualityThreshold)
	}
	return buf
}

// JobPacket is a requester's posted unit of work.
type JobPacket struct {
	ID              Id
	JobType         JobType
	Status          JobStatus
	Requester       crypto.PublicKey
	RequesterAddr   crypto.Address
	Input           []byte
	Description     string
	Bounty          Amount
	BurnFee         Amount
	Verification    VerificationSpec
	CreatedAt       Timestamp
	ExpiresAt       Timestamp
	Signature       crypto.Signature
}

// ErrJobExpired is returned by operations that require an unexpired job.
var ErrJobExpired = errors.New("types: job expired")

// ErrInvalidJobSignature is returned when a job's signature does not
// verify against its requester.
var ErrInvalidJobSignature = errors.New("types: invalid job signature")

// ErrBurnFeeTooLow is returned when a job's burn fee is below the protocol
// minimum submission burn.
var ErrBurnFeeTooLow = errors.New("types: burn fee below minimum")

// ErrExpiryBeforeCreation is returned when expires_at <= created_at.
var ErrExpiryBeforeCreation = errors.New("types: expires_at must be after created_at")

// NewJobPacket constructs, hashes, and signs a new job packet.
func NewJobPacket(
	keypair *crypto.Keypair,
	jobType JobType,
	input []byte,
	description string,
	bounty, burnFee Amount,
	verification VerificationSpec,
	createdAt, expiresAt Timestamp,
) (*JobPacket, error) {
	if expiresAt <= createdAt {
		return nil, ErrExpiryBeforeCreation
	}

	job := &JobPacket{
		JobType:       jobType,
		Status:        JobStatusPending,
		Requester:     keypair.PublicKey(),
		RequesterAddr: keypair.Address(),
		Input:         input,
		Description:   description,
		Bounty:        bounty,
		BurnFee:       burnFee,
		Verification:  verification,
		CreatedAt:     createdAt,
		ExpiresAt:     expiresAt,
	}
	job.ID = job.ComputeID()
	job.Signature = keypair.Sign(job.SigningBytes())
	return job, nil
}

// ComputeID hashes requester || input || description || bounty.raw(LE) ||
// created_at(LE), matching the reference implementation's id derivation.
func (j *JobPacket) ComputeID() Id {
	h := crypto.NewHasher()
	h.Update(j.Requester[:])
	h.Update(j.Input)
	h.Update([]byte(j.Description))
	rawBytes := j.Bounty.RawBytes()
	h.Update(rawBytes[:])
	createdAt := make([]byte, 8)
	binary.LittleEndian.PutUint64(createdAt, uint64(j.CreatedAt))
	h.Update(createdAt)
	return h.Finalize()
}

// SigningBytes returns the bytes the requester's signature covers:
// id || job_type || requester || input || bounty.raw(LE) || burn_fee.raw(LE)
// || created_at(LE) || expires_at(LE).
func (j *JobPacket) SigningBytes() []byte {
	buf := make([]byte, 0, 128+len(j.Input))
	buf = append(buf, j.ID[:]...)
	buf = append(buf, byte(j.JobType))
	buf = append(buf, j.Requester[:]...)
	buf = append(buf, j.Input...)

	bounty := j.Bounty.RawBytes()
	buf = append(buf, bounty[:]...)
	burn := j.BurnFee.RawBytes()
	buf = append(buf, burn[:]...)

	created := make([]byte, 8)
	binary.LittleEndian.PutUint64(created, uint64(j.CreatedAt))
	buf = append(buf, created...)

	expires := make([]byte, 8)
	binary.LittleEndian.PutUint64(expires, uint64(j.ExpiresAt))
	buf = append(buf, expires...)

	return buf
}

// VerifySignature checks the requester's signature over SigningBytes.
func (j *JobPacket) VerifySignature() error {
	if err := crypto.Verify(j.Requester, j.SigningBytes(), j.Signature); err != nil {
		return ErrInvalidJobSignature
	}
	return nil
}

// IsExpired reports whether now is at or past ExpiresAt.
func (j *JobPacket) IsExpired(now Timestamp) bool {
	return now >= j.ExpiresAt
}

// IsValid reports whether the job is unexpired and still pending.
func (j *JobPacket) IsValid(now Timestamp) bool {
	return !j.IsExpired(now) && j.Status == JobStatusPending
}

// TotalCost is the bounty plus the burn fee, saturating at MaxSupply.
func (j *JobPacket) TotalCost() Amount {
	return j.Bounty.SaturatingAdd(j.BurnFee)
}
