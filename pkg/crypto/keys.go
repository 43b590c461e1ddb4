// Copyright 2025 Certen Protocol

package crypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
)

// PublicKeySize and SignatureSize mirror the Ed25519 constants from the
// stdlib but are named here so callers never need to import crypto/ed25519
// directly.
const (
	PublicKeySize  = ed25519.PublicKeySize
	SignatureSize  = ed25519.SignatureSize
	AddressSize    = 20
	addressPrefix  = "hclaw1"
	checksumLength = 4
)

// ErrInvalidPublicKey is returned when input cannot be decoded into a
// public key of the Ed25519 length. Whether the key is a point on the
// curve is not checked here.
var ErrInvalidPublicKey = errors.New("crypto: invalid public key")

// ErrInvalidSignature is returned by Verify when the signature does not
// match the message under the given public key.
var ErrInvalidSignature = errors.New("crypto: invalid signature")

// PublicKey is a 32-byte Ed25519 public key.
type PublicKey [PublicKeySize]byte

// Signature is a 64-byte Ed25519 signature.
type Signature [SignatureSize]byte

// Address is a 20-byte identifier derived from a PublicKey.
type Address [AddressSize]byte

// NewPublicKey validates that b is a well-formed Ed25519 public key and
// returns it as a PublicKey. Validation is limited to length: Go's
// crypto/ed25519, unlike ed25519-dalek, does not reject off-curve points at
// construction time, only at Verify time.
func NewPublicKey(b []byte) (PublicKey, error) {
	var pk PublicKey
	if len(b) != PublicKeySize {
		return pk, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidPublicKey, PublicKeySize, len(b))
	}
	copy(pk[:], b)
	return pk, nil
}

// Bytes returns the raw public key bytes.
func (pk PublicKey) Bytes() []byte {
	return pk[:]
}

// Hex returns the lowercase hex encoding of the public key.
func (pk PublicKey) Hex() string {
	return hex.EncodeToString(pk[:])
}

func (pk PublicKey) String() string {
	return pk.Hex()
}

// PublicKeyFromHex parses a hex-encoded public key.
func PublicKeyFromHex(s string) (PublicKey, error) {
	b, err := hex.DecodeString(s)
	if err != nil {
		return PublicKey{}, fmt.Errorf("%w: %v", ErrInvalidPublicKey, err)
	}
	return NewPublicKey(b)
}

// Address derives the protocol address for this public key: the first
// AddressSize bytes of BLAKE3(pubkey).
func (pk PublicKey) Address() Address {
	var addr Address
	digest := HashData(pk[:])
	copy(addr[:], digest[:AddressSize])
	return addr
}

// Bytes returns the raw address bytes.
func (a Address) Bytes() []byte {
	return a[:]
}

// String renders the address as a checksummed string: a fixed prefix, the
// hex-encoded address bytes, and a 4-byte BLAKE3 checksum of those bytes so
// that a single mistyped character is reliably detected.
func (a Address) String() string {
	checksum := HashData(a[:])
	return addressPrefix + hex.EncodeToString(a[:]) + hex.EncodeToString(checksum[:checksumLength])
}

// ParseAddress parses a checksummed address string produced by String.
func ParseAddress(s string) (Address, error) {
	var a Address
	if len(s) != len(addressPrefix)+AddressSize*2+checksumLength*2 {
		return a, fmt.Errorf("crypto: invalid address length")
	}
	if s[:len(addressPrefix)] != addressPrefix {
		return a, fmt.Errorf("crypto: invalid address prefix")
	}
	rest := s[len(addressPrefix):]
	addrHex := rest[:AddressSize*2]
	sumHex := rest[AddressSize*2:]

	addrBytes, err := hex.DecodeString(addrHex)
	if err != nil {
		return a, fmt.Errorf("crypto: invalid address hex: %w", err)
	}
	copy(a[:], addrBytes)

	wantSum := HashData(a[:])
	gotSum, err := hex.DecodeString(sumHex)
	if err != nil {
		return a, fmt.Errorf("crypto: invalid address checksum hex: %w", err)
	}
	if hex.EncodeToString(wantSum[:checksumLength]) != hex.EncodeToString(gotSum) {
		return a, fmt.Errorf("crypto: address checksum mismatch")
	}
	return a, nil
}

// Keypair holds an Ed25519 private/public key pair.
//
// SECURITY: Keypair is not safe to log or serialize as-is; callers that
// persist a Keypair must extract and encrypt the private key themselves.
type Keypair struct {
	private ed25519.PrivateKey
	public  PublicKey
}

// GenerateKeypair creates a new random keypair.
func GenerateKeypair() (*Keypair, error) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return nil, fmt.Errorf("crypto: generate keypair: %w", err)
	}
	var pk PublicKey
	copy(pk[:], pub)
	return &Keypair{private: priv, public: pk}, nil
}

// KeypairFromSeed deterministically derives a keypair from a 32-byte seed.
func KeypairFromSeed(seed []byte) (*Keypair, error) {
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("crypto: seed must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	priv := ed25519.NewKeyFromSeed(seed)
	var pk PublicKey
	copy(pk[:], priv.Public().(ed25519.PublicKey))
	return &Keypair{private: priv, public: pk}, nil
}

// PublicKey returns the keypair's public key.
func (k *Keypair) PublicKey() PublicKey {
	return k.public
}

// Address returns the address derived from the keypair's public key.
func (k *Keypair) Address() Address {
	return k.public.Address()
}

// Sign produces a deterministic Ed25519 signature over message.
func (k *Keypair) Sign(message []byte) Signature {
	var sig Signature
	copy(sig[:], ed25519.Sign(k.private, message))
	return sig
}

// Verify checks that signature is a valid Ed25519 signature over message
// under publicKey.
func Verify(publicKey PublicKey, message []byte, signature Signature) error {
	if !ed25519.Verify(ed25519.PublicKey(publicKey[:]), message, signature[:]) {
		return ErrInvalidSignature
	}
	return nil
}

// Bytes returns the raw signature bytes.
func (s Signature) Bytes() []byte {
	return s[:]
}

// Hex returns the lowercase hex encoding of the signature.
func (s Signature) Hex() string {
	return hex.EncodeToString(s[:])
}

func (s Signature) String() string {
	return s.Hex()
}

// SignatureFromHex parses a hex-encoded signature.
func SignatureFromHex(str string) (Signature, error) {
	var sig Signature
	b, err := hex.DecodeString(str)
	if err != nil {
		return sig, fmt.Errorf("crypto: invalid signature hex: %w", err)
	}
	if len(b) != SignatureSize {
		return sig, fmt.Errorf("crypto: expected %d signature bytes, got %d", SignatureSize, len(b))
	}
	copy(sig[:], b)
	return sig, nil
}
