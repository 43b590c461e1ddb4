// Copyright 2025 Certen Protocol

package wire

import (
	"bytes"
	"testing"

	"github.com/hardclaw/node/pkg/types"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	req := GetBlockRequest{Height: 42}

	if err := Encode(&buf, MessageGetBlock, req); err != nil {
		t.Fatalf("encode: %v", err)
	}

	env, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Type != MessageGetBlock {
		t.Fatalf("expected MessageGetBlock, got %v", env.Type)
	}

	var got GetBlockRequest
	if err := env.Unmarshal(&got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Height != 42 {
		t.Fatalf("expected height 42, got %d", got.Height)
	}
}

func TestEncodeDecodeJobRequest(t *testing.T) {
	var buf bytes.Buffer
	req := GetJobRequest{JobID: types.Id{1, 2, 3}}

	if err := Encode(&buf, MessageGetJob, req); err != nil {
		t.Fatalf("encode: %v", err)
	}

	env, err := Decode(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	var got GetJobRequest
	if err := env.Unmarshal(&got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.JobID != req.JobID {
		t.Fatalf("expected job ID %v, got %v", req.JobID, got.JobID)
	}
}

func TestDecodeTruncatedHeader(t *testing.T) {
	buf := bytes.NewReader([]byte{1, 2})
	if _, err := Decode(buf); err == nil {
		t.Fatal("expected error decoding a truncated header")
	}
}

func TestMessageTypeString(t *testing.T) {
	if MessageNewBlock.String() != "NewBlock" {
		t.Fatalf("expected NewBlock, got %s", MessageNewBlock.String())
	}
}
