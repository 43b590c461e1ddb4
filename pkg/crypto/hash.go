// Copyright 2025 Certen Protocol

// Package crypto provides the hashing, signature, and commitment primitives
// used throughout the HardClaw protocol: BLAKE3 for content hashing and
// Merkle roots, Ed25519 for signatures, and SHA3-256 for commit-reveal
// commitments (kept separate from BLAKE3 for domain separation).
package crypto

import (
	"encoding/hex"
	"fmt"

	"lukechampine.com/blake3"
)

// HashSize is the size in bytes of a Hash digest.
const HashSize = 32

// Hash is a 32-byte BLAKE3 digest.
type Hash [HashSize]byte

// ZeroHash is used as the parent hash of the genesis block.
var ZeroHash = Hash{}

// HashFromBytes copies exactly HashSize bytes into a Hash.
func HashFromBytes(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("crypto: expected %d hash bytes, got %d", HashSize, len(b))
	}
	copy(h[:], b)
	return h, nil
}

// Bytes returns the hash as a byte slice.
func (h Hash) Bytes() []byte {
	return h[:]
}

// IsZero reports whether h is the zero hash.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Hex returns the lowercase hex encoding of h.
func (h Hash) Hex() string {
	return hex.EncodeToString(h[:])
}

// String implements fmt.Stringer.
func (h Hash) String() string {
	return h.Hex()
}

// HashFromHex parses a hex-encoded hash.
func HashFromHex(s string) (Hash, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return Hash{}, fmt.Errorf("crypto: invalid hash hex: %w", err)
	}
	return HashFromBytes(b)
}

// Hasher is an incremental BLAKE3 hasher.
type Hasher struct {
	inner *blake3.Hasher
}

// NewHasher creates a new incremental hasher.
func NewHasher() *Hasher {
	return &Hasher{inner: blake3.New(HashSize, nil)}
}

// Update feeds more data into the hasher and returns itself for chaining.
func (h *Hasher) Update(data []byte) *Hasher {
	h.inner.Write(data) //nolint:errcheck // hash.Hash.Write never errors
	return h
}

// Finalize returns the resulting hash.
func (h *Hasher) Finalize() Hash {
	var out Hash
	sum := h.inner.Sum(nil)
	copy(out[:], sum)
	return out
}

// HashData hashes arbitrary data with BLAKE3.
func HashData(data []byte) Hash {
	var out Hash
	sum := blake3.Sum256(data)
	copy(out[:], sum[:])
	return out
}

// MerkleRoot computes a binary Merkle root over hashes using BLAKE3 pairwise
// combination. An odd node at any level is combined with itself. An empty
// input returns the zero hash; a single-element input returns that element.
func MerkleRoot(hashes []Hash) Hash {
	if len(hashes) == 0 {
		return ZeroHash
	}
	if len(hashes) == 1 {
		return hashes[0]
	}

	level := make([]Hash, len(hashes))
	copy(level, hashes)

	for len(level) > 1 {
		next := make([]Hash, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			var combined Hash
			if i+1 < len(level) {
				combined = combinePair(level[i], level[i+1])
			} else {
				combined = combinePair(level[i], level[i])
			}
			next = append(next, combined)
		}
		level = next
	}

	return level[0]
}

func combinePair(a, b Hash) Hash {
	h := NewHasher()
	h.Update(a[:])
	h.Update(b[:])
	return h.Finalize()
}
