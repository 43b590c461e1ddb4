// Copyright 2025 Certen Protocol

// Package wire implements the peer-to-peer message envelope: a one-byte
// type tag, a big-endian uint32 length prefix, and a JSON payload. JSON
// keeps the wire format aligned with the rest of the node's persistence
// convention (every stored value is JSON), while the tag and length
// prefix give the framing a deterministic, streamable structure.
package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/hardclaw/node/pkg/types"
)

// MessageType tags a wire envelope's payload shape.
type MessageType uint8

const (
	MessageNewJob MessageType = iota + 1
	MessageNewSolution
	MessageNewBlock
	MessageAttestation
	MessageGetBlock
	MessageGetJob
	MessagePeerAnnounce
)

func (t MessageType) String() string {
	switch t {
	case MessageNewJob:
		return "NewJob"
	case MessageNewSolution:
		return "NewSolution"
	case MessageNewBlock:
		return "NewBlock"
	case MessageAttestation:
		return "Attestation"
	case MessageGetBlock:
		return "GetBlock"
	case MessageGetJob:
		return "GetJob"
	case MessagePeerAnnounce:
		return "PeerAnnounce"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(t))
	}
}

// maxMessageBytes bounds a single message's JSON payload, guarding
// against a malicious or corrupt length prefix driving an unbounded
// allocation.
const maxMessageBytes = 16 << 20 // 16 MiB

// GetBlockRequest asks a peer for the block at a given height.
type GetBlockRequest struct {
	Height uint64 `json:"height"`
}

// GetJobRequest asks a peer for a job by ID.
type GetJobRequest struct {
	JobID types.Id `json:"job_id"`
}

// AttestationMessage carries one validator's attestation of a block.
type AttestationMessage struct {
	BlockHash string `json:"block_hash"`
	Height    uint64 `json:"height"`
	Validator string `json:"validator"`
	Signature string `json:"signature"`
}

// PeerAnnounceMessage advertises a peer's listen address and protocol
// version to the network.
type PeerAnnounceMessage struct {
	Address         string `json:"address"`
	ProtocolVersion uint32 `json:"protocol_version"`
}

// Encode writes a framed message: [type tag][uint32 length][JSON payload].
func Encode(w io.Writer, msgType MessageType, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("wire: marshal %s payload: %w", msgType, err)
	}
	if len(body) > maxMessageBytes {
		return fmt.Errorf("wire: %s payload too large: %d bytes", msgType, len(body))
	}

	header := make([]byte, 5)
	header[0] = byte(msgType)
	binary.BigEndian.PutUint32(header[1:], uint32(len(body)))

	if _, err := w.Write(header); err != nil {
		return fmt.Errorf("wire: write header: %w", err)
	}
	if _, err := w.Write(body); err != nil {
		return fmt.Errorf("wire: write payload: %w", err)
	}
	return nil
}

// Envelope is a decoded message's type tag and raw JSON payload, ready
// for the caller to unmarshal into the concrete type its tag implies.
type Envelope struct {
	Type    MessageType
	Payload []byte
}

// Decode reads one framed message from r.
func Decode(r io.Reader) (Envelope, error) {
	header := make([]byte, 5)
	if _, err := io.ReadFull(r, header); err != nil {
		return Envelope{}, fmt.Errorf("wire: read header: %w", err)
	}

	msgType := MessageType(header[0])
	length := binary.BigEndian.Uint32(header[1:])
	if length > maxMessageBytes {
		return Envelope{}, fmt.Errorf("wire: declared payload too large: %d bytes", length)
	}

	body := make([]byte, length)
	if _, err := io.ReadFull(r, body); err != nil {
		return Envelope{}, fmt.Errorf("wire: read payload: %w", err)
	}

	return Envelope{Type: msgType, Payload: body}, nil
}

// Unmarshal decodes the envelope's JSON payload into dst.
func (e Envelope) Unmarshal(dst any) error {
	if err := json.Unmarshal(e.Payload, dst); err != nil {
		return fmt.Errorf("wire: unmarshal %s payload: %w", e.Type, err)
	}
	return nil
}
