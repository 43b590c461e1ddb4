// Copyright 2025 Certen Protocol

package types

import (
	"encoding/binary"
	"errors"
	"math"

	"github.com/hardclaw/node/pkg/crypto"
)

// ProtocolVersion is embedded in every block header.
const ProtocolVersion uint32 = 1

// BlockHeader carries a block's summary fields; its hash is the block's
// identity.
type BlockHeader struct {
	Height            uint64
	ParentHash        crypto.Hash
	SolutionsRoot     crypto.Hash
	StateRoot         crypto.Hash
	Timestamp         Timestamp
	Proposer          crypto.PublicKey
	VerificationCount uint64
	Version           uint32
}

// ComputeHash hashes height(LE) || parent_hash || solutions_root ||
// state_root || timestamp(LE) || proposer || verification_count(LE) ||
// version(LE).
func (h BlockHeader) ComputeHash() crypto.Hash {
	hasher := crypto.NewHasher()

	height := make([]byte, 8)
	binary.LittleEndian.PutUint64(height, h.Height)
	hasher.Update(height)

	hasher.Update(h.ParentHash[:])
	hasher.Update(h.SolutionsRoot[:])
	hasher.Update(h.StateRoot[:])

	ts := make([]byte, 8)
	binary.LittleEndian.PutUint64(ts, uint64(h.Timestamp))
	hasher.Update(ts)

	hasher.Update(h.Proposer[:])

	vc := make([]byte, 8)
	binary.LittleEndian.PutUint64(vc, h.VerificationCount)
	hasher.Update(vc)

	version := make([]byte, 4)
	binary.LittleEndian.PutUint32(version, h.Version)
	hasher.Update(version)

	return hasher.Finalize()
}

// VerifierAttestation is a verifier's signed endorsement of a block and
// the solutions within it that verifier itself checked.
type VerifierAttestation struct {
	Verifier          crypto.PublicKey
	BlockHash         crypto.Hash
	VerifiedSolutions []Id
	Signature         crypto.Signature
}

// SigningBytes returns verifier || block_hash || each verified solution id
// concatenated in order.
func (a *VerifierAttestation) SigningBytes() []byte {
	buf := make([]byte, 0, 32*2+32*len(a.VerifiedSolutions))
	buf = append(buf, a.Verifier[:]...)
	buf = append(buf, a.BlockHash[:]...)
	for _, id := range a.VerifiedSolutions {
		buf = append(buf, id[:]...)
	}
	return buf
}

// ErrInvalidAttestationSignature is returned when an attestation's
// signature does not verify.
var ErrInvalidAttestationSignature = errors.New("types: invalid attestation signature")

// NewVerifierAttestation constructs and signs an attestation.
func NewVerifierAttestation(keypair *crypto.Keypair, blockHash crypto.Hash, verifiedSolutions []Id) *VerifierAttestation {
	a := &VerifierAttestation{
		Verifier:          keypair.PublicKey(),
		BlockHash:         blockHash,
		VerifiedSolutions: verifiedSolutions,
	}
	a.Signature = keypair.Sign(a.SigningBytes())
	return a
}

// VerifySignature checks the verifier's signature over SigningBytes.
func (a *VerifierAttestation) VerifySignature() error {
	if err := crypto.Verify(a.Verifier, a.SigningBytes(), a.Signature); err != nil {
		return ErrInvalidAttestationSignature
	}
	return nil
}

// Block is a proposed unit of chain progress: a batch of verified
// solutions plus the attestations that endorse them.
type Block struct {
	Header            BlockHeader
	Hash              crypto.Hash
	Verifications     []*VerificationResult
	Attestations      []*VerifierAttestation
	ProposerSignature crypto.Signature
}

// BlockError reports a structural defect found while validating a block.
type BlockError struct {
	Reason string
}

func (e *BlockError) Error() string {
	return "types: invalid block: " + e.Reason
}

// NewBlock constructs, hashes, and signs a new block proposal.
func NewBlock(keypair *crypto.Keypair, height uint64, parentHash crypto.Hash, verifications []*VerificationResult, stateRoot crypto.Hash, timestamp Timestamp) *Block {
	ids := make([]Id, len(verifications))
	for i, v := range verifications {
		ids[i] = v.SolutionID
	}
	solutionsRoot := crypto.MerkleRoot(ids)

	header := BlockHeader{
		Height:            height,
		ParentHash:        parentHash,
		SolutionsRoot:     solutionsRoot,
		StateRoot:         stateRoot,
		Timestamp:         timestamp,
		Proposer:          keypair.PublicKey(),
		VerificationCount: uint64(len(verifications)),
		Version:           ProtocolVersion,
	}

	block := &Block{
		Header:        header,
		Hash:          header.ComputeHash(),
		Verifications: verifications,
	}
	block.ProposerSignature = keypair.Sign(block.SigningBytes())
	return block
}

// Genesis builds the height-0 block with no parent, no verifications, and
// the zero state root.
func Genesis(keypair *crypto.Keypair, timestamp Timestamp) *Block {
	return NewBlock(keypair, 0, crypto.ZeroHash, nil, crypto.ZeroHash, timestamp)
}

// AddAttestation appends a verifier's attestation to the block.
func (b *Block) AddAttestation(a *VerifierAttestation) {
	b.Attestations = append(b.Attestations, a)
}

// ConsensusThreshold returns ceil(0.66 * totalVerifiers) attestations
// required for finality. A totalVerifiers of 0 can never reach consensus.
func ConsensusThreshold(totalVerifiers int) int {
	if totalVerifiers == 0 {
		return 0
	}
	return int(math.Ceil(float64(totalVerifiers) * 0.66))
}

// HasConsensus reports whether the block has collected at least the 66%
// attestation threshold among totalVerifiers active verifiers. A
// totalVerifiers of 0 always returns false (there is no verifier set to
// reach consensus against) — this degenerate genesis-time behavior is
// intentional, see the project's design notes.
func (b *Block) HasConsensus(totalVerifiers int) bool {
	if totalVerifiers == 0 {
		return false
	}
	threshold := ConsensusThreshold(totalVerifiers)
	return len(b.Attestations) >= threshold
}

// ConsensusPercentage returns the fraction of totalVerifiers that have
// attested, as a percentage in [0, 100].
func (b *Block) ConsensusPercentage(totalVerifiers int) float64 {
	if totalVerifiers == 0 {
		return 0
	}
	return float64(len(b.Attestations)) / float64(totalVerifiers) * 100
}

// SigningBytes returns the bytes the proposer's signature covers: hash ||
// each verification's solution_id concatenated in order.
func (b *Block) SigningBytes() []byte {
	buf := make([]byte, 0, 32+32*len(b.Verifications))
	buf = append(buf, b.Hash[:]...)
	for _, v := range b.Verifications {
		buf = append(buf, v.SolutionID[:]...)
	}
	return buf
}

// VerifyIntegrity checks the block's internal consistency: the header hash
// matches Hash, the solutions root matches the verification set, and every
// attestation's signature verifies.
func (b *Block) VerifyIntegrity() error {
	if b.Header.ComputeHash() != b.Hash {
		return &BlockError{Reason: "hash mismatch"}
	}

	ids := make([]Id, len(b.Verifications))
	for i, v := range b.Verifications {
		ids[i] = v.SolutionID
	}
	if crypto.MerkleRoot(ids) != b.Header.SolutionsRoot {
		return &BlockError{Reason: "solutions root mismatch"}
	}

	for _, a := range b.Attestations {
		if err := a.VerifySignature(); err != nil {
			return &BlockError{Reason: "invalid attestation: " + err.Error()}
		}
	}

	return nil
}
