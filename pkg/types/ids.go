// Copyright 2025 Certen Protocol

// Package types defines the core wire data model of the HardClaw protocol:
// jobs, solutions, verification results, attestations, blocks, votes, and
// stake records.
package types

import (
	"time"

	"github.com/hardclaw/node/pkg/crypto"
)

// Id is a content identifier: the BLAKE3 hash of a struct's canonical
// signing bytes.
type Id = crypto.Hash

// Timestamp is a Unix timestamp in milliseconds.
type Timestamp = int64

// NowMillis returns the current time as a millisecond Unix timestamp.
func NowMillis() Timestamp {
	return time.Now().UnixMilli()
}
