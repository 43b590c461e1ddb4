package crypto

import (
	"fmt"
	"os"
)

// Seed returns the 32-byte Ed25519 seed this keypair was derived from.
// Callers that persist it must protect the file themselves (mode 0600 and
// a trusted directory are the minimum).
func (k *Keypair) Seed() []byte {
	return k.private.Seed()
}

// LoadOrGenerateKeypair reads a raw 32-byte Ed25519 seed from path, or
// generates a fresh keypair and writes its seed to path if the file does
// not exist yet. This is the node's persistent identity key.
func LoadOrGenerateKeypair(path string) (*Keypair, error) {
	seed, err := os.ReadFile(path)
	if err == nil {
		return KeypairFromSeed(seed)
	}
	if !os.IsNotExist(err) {
		return nil, fmt.Errorf("crypto: read key file: %w", err)
	}

	kp, err := GenerateKeypair()
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(path, kp.Seed(), 0o600); err != nil {
		return nil, fmt.Errorf("crypto: write key file: %w", err)
	}
	return kp, nil
}
