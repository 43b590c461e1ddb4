// Copyright 2025 Certen Protocol

package crypto

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/sha3"
)

// NonceSize is the size of the random nonce mixed into a Commitment.
const NonceSize = 32

// ErrCommitmentMismatch is returned when a revealed value and nonce do not
// hash to the commitment they are checked against.
var ErrCommitmentMismatch = errors.New("crypto: commitment mismatch")

// Commitment is a SHA3-256 commitment to a value, bound to a random nonce.
// SHA3-256 is used here rather than BLAKE3 to keep commit-reveal hashing
// cryptographically separate from content hashing elsewhere in the protocol.
type Commitment Hash

// CreateCommitment computes SHA3-256(value || nonce).
func CreateCommitment(value []byte, nonce [NonceSize]byte) Commitment {
	h := sha3.New256()
	h.Write(value) //nolint:errcheck
	h.Write(nonce[:]) //nolint:errcheck
	var c Commitment
	copy(c[:], h.Sum(nil))
	return c
}

// Verify checks that value and nonce reproduce this commitment.
func (c Commitment) Verify(value []byte, nonce [NonceSize]byte) error {
	if CreateCommitment(value, nonce) != c {
		return ErrCommitmentMismatch
	}
	return nil
}

// Bytes returns the raw commitment bytes.
func (c Commitment) Bytes() []byte {
	return c[:]
}

func (c Commitment) String() string {
	return Hash(c).Hex()
}

// GenerateNonce returns a cryptographically secure random 32-byte nonce.
func GenerateNonce() ([NonceSize]byte, error) {
	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nonce, fmt.Errorf("crypto: generate nonce: %w", err)
	}
	return nonce, nil
}

