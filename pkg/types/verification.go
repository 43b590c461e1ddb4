// Copyright 2025 Certen Protocol

package types

import (
	"encoding/binary"
	"errors"

	"github.com/hardclaw/node/pkg/crypto"
)

// VerificationResult is a verifier's signed pass/fail judgment on a
// solution.
type VerificationResult struct {
	SolutionID Id
	JobID      Id
	Verifier   crypto.PublicKey
	Passed     bool
	VerifiedAt Timestamp
	Signature  crypto.Signature
}

// ErrInvalidResultSignature is returned when a result's signature does not
// verify against its verifier.
var ErrInvalidResultSignature = errors.New("types: invalid verification result signature")

// NewVerificationResult constructs and signs a verification result.
func NewVerificationResult(keypair *crypto.Keypair, solutionID, jobID Id, passed bool, verifiedAt Timestamp) *VerificationResult {
	r := &VerificationResult{
		SolutionID: solutionID,
		JobID:      jobID,
		Verifier:   keypair.PublicKey(),
		Passed:     passed,
		VerifiedAt: verifiedAt,
	}
	r.Signature = keypair.Sign(r.SigningBytes())
	return r
}

// SigningBytes returns solution_id || job_id || verifier || passed_byte ||
// verified_at(LE).
func (r *VerificationResult) SigningBytes() []byte {
	buf := make([]byte, 0, 32*3+1+8)
	buf = append(buf, r.SolutionID[:]...)
	buf = append(buf, r.JobID[:]...)
	buf = append(buf, r.Verifier[:]...)
	if r.Passed {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	verifiedAt := make([]byte, 8)
	binary.LittleEndian.PutUint64(verifiedAt, uint64(r.VerifiedAt))
	buf = append(buf, verifiedAt...)
	return buf
}

// VerifySignature checks the verifier's signature over SigningBytes.
func (r *VerificationResult) VerifySignature() error {
	if err := crypto.Verify(r.Verifier, r.SigningBytes(), r.Signature); err != nil {
		return ErrInvalidResultSignature
	}
	return nil
}

// VoteResult is a Schelling-point voter's judgment on a subjective job's
// solution.
type VoteResult uint8

const (
	VoteAbstain VoteResult = iota
	VoteAccept
	VoteReject
)

// Bytes returns the single-byte wire encoding of the vote.
func (v VoteResult) Bytes() []byte {
	return []byte{byte(v)}
}

// VerificationVote is a single voter's commit-reveal participation in a
// Schelling-point round over a solution.
type VerificationVote struct {
	SolutionID   Id
	Voter        crypto.PublicKey
	Commitment   crypto.Commitment
	Vote         VoteResult
	QualityScore uint8
	Nonce        [crypto.NonceSize]byte
	Revealed     bool
}

// ErrInvalidVoteReveal is returned when a reveal does not match its
// commitment.
var ErrInvalidVoteReveal = errors.New("types: vote reveal does not match commitment")

// CommitVote creates a new vote, committing to (vote, quality_score) with a
// fresh random nonce.
func CommitVote(voter crypto.PublicKey, solutionID Id, vote VoteResult, qualityScore uint8) (*VerificationVote, error) {
	nonce, err := crypto.GenerateNonce()
	if err != nil {
		return nil, err
	}
	voteData := voteCommitmentData(vote, qualityScore)
	return &VerificationVote{
		SolutionID:   solutionID,
		Voter:        voter,
		Commitment:   crypto.CreateCommitment(voteData, nonce),
		Vote:         vote,
		QualityScore: qualityScore,
		Nonce:        nonce,
		Revealed:     true,
	}, nil
}

func voteCommitmentData(vote VoteResult, qualityScore uint8) []byte {
	return []byte{byte(vote), qualityScore}
}

// PublicCommitment strips the vote/quality/nonce, returning the form safe
// to broadcast during the commit phase.
func (v *VerificationVote) PublicCommitment() *VerificationVote {
	return &VerificationVote{
		SolutionID: v.SolutionID,
		Voter:      v.Voter,
		Commitment: v.Commitment,
		Revealed:   false,
	}
}

// Reveal verifies (vote, qualityScore, nonce) against the stored commitment
// and, on success, records the revealed values.
func (v *VerificationVote) Reveal(vote VoteResult, qualityScore uint8, nonce [crypto.NonceSize]byte) error {
	voteData := voteCommitmentData(vote, qualityScore)
	if err := v.Commitment.Verify(voteData, nonce); err != nil {
		return ErrInvalidVoteReveal
	}
	v.Vote = vote
	v.QualityScore = qualityScore
	v.Nonce = nonce
	v.Revealed = true
	return nil
}

// IsRevealed reports whether the vote has been revealed.
func (v *VerificationVote) IsRevealed() bool {
	return v.Revealed
}

// Bytes returns the vote's commitment bytes, satisfying commitreveal.Entry.
func (v *VerificationVote) Bytes() []byte {
	return v.Commitment.Bytes()
}

// VotingResults tallies a completed Schelling-point round.
type VotingResults struct {
	SolutionID     Id
	AcceptCount    int
	RejectCount    int
	AbstainCount   int
	AverageQuality float64
	Majority       *VoteResult
}

// TallyVotes computes VotingResults from the revealed votes in a round.
// Unrevealed votes are skipped entirely (they count toward neither the
// tally nor the quality average) and are treated as deviant by the caller.
func TallyVotes(solutionID Id, votes []*VerificationVote) VotingResults {
	results := VotingResults{SolutionID: solutionID}

	var qualitySum float64
	var acceptWithQuality int
	for _, v := range votes {
		if !v.Revealed {
			continue
		}
		switch v.Vote {
		case VoteAccept:
			results.AcceptCount++
			qualitySum += float64(v.QualityScore)
			acceptWithQuality++
		case VoteReject:
			results.RejectCount++
		case VoteAbstain:
			results.AbstainCount++
		}
	}

	if acceptWithQuality > 0 {
		results.AverageQuality = qualitySum / float64(acceptWithQuality)
	}

	switch {
	case results.AcceptCount > results.RejectCount:
		accept := VoteAccept
		results.Majority = &accept
	case results.RejectCount > results.AcceptCount:
		reject := VoteReject
		results.Majority = &reject
	default:
		results.Majority = nil
	}

	return results
}

// HasMajority reports whether the round reached a strict majority (not a
// tie) between accept and reject.
func (r VotingResults) HasMajority() bool {
	return r.Majority != nil
}

// AcceptPercentage returns the share of accept votes among accept+reject
// votes (abstentions are excluded from the denominator). Returns 0 if
// there were no accept/reject votes at all.
func (r VotingResults) AcceptPercentage() float64 {
	total := r.AcceptCount + r.RejectCount
	if total == 0 {
		return 0
	}
	return float64(r.AcceptCount) / float64(total) * 100
}
