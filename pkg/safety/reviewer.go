// Copyright 2025 Certen Protocol

package safety

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hardclaw/node/pkg/crypto"
)

// Reviewer produces a safety vote for a piece of verification code.
// Validators plug in whichever backing model they trust; the protocol
// only cares that the resulting vote is signed and that consensus
// rewards accuracy, not which model produced it.
type Reviewer interface {
	ReviewCode(ctx context.Context, codeHash crypto.Hash, code, language string) (Vote, error)
}

// ModelConfig configures an HTTP-backed AI reviewer.
type ModelConfig struct {
	Timeout     time.Duration
	Temperature float64
	ModelID     string
	Endpoint    string
	APIKey      string
}

// DefaultModelConfig favors deterministic, conservative security
// analysis.
func DefaultModelConfig() ModelConfig {
	return ModelConfig{
		Timeout:     30 * time.Second,
		Temperature: 0.1,
		ModelID:     "default",
	}
}

// HTTPReviewer calls an HTTP chat-completion endpoint to obtain a
// safety verdict, then signs and returns it. There is no third-party
// client library in the reference stack for this call, so it is made
// directly over net/http; only the request/response envelope needs to
// be adapted per provider.
type HTTPReviewer struct {
	keypair *crypto.Keypair
	config  ModelConfig
	client  *http.Client
}

// NewHTTPReviewer creates a reviewer that signs votes with keypair and
// calls config.Endpoint for inference.
func NewHTTPReviewer(keypair *crypto.Keypair, config ModelConfig) *HTTPReviewer {
	return &HTTPReviewer{
		keypair: keypair,
		config:  config,
		client:  &http.Client{Timeout: config.Timeout},
	}
}

type chatRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Prompt      string  `json:"prompt"`
}

type chatResponse struct {
	Verdict    string  `json:"verdict"` // "safe" | "unsafe" | "uncertain"
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// ReviewCode submits code to the configured model and returns a signed
// safety vote.
func (r *HTTPReviewer) ReviewCode(ctx context.Context, codeHash crypto.Hash, code, language string) (Vote, error) {
	prompt := buildSecurityPrompt(code, language)

	body, err := json.Marshal(chatRequest{Model: r.config.ModelID, Temperature: r.config.Temperature, Prompt: prompt})
	if err != nil {
		return Vote{}, fmt.Errorf("safety: encode review request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.config.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Vote{}, fmt.Errorf("safety: build review request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.config.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.config.APIKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return Vote{}, fmt.Errorf("safety: review request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return Vote{}, fmt.Errorf("safety: read review response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return Vote{}, fmt.Errorf("safety: review endpoint returned %d: %s", resp.StatusCode, string(data))
	}

	var parsed chatResponse
	if err := json.Unmarshal(data, &parsed); err != nil {
		return Vote{}, fmt.Errorf("safety: parse review response: %w", err)
	}

	verdict, err := parseVerdict(parsed.Verdict)
	if err != nil {
		return Vote{}, err
	}

	var nonce [crypto.NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return Vote{}, fmt.Errorf("safety: generate nonce: %w", err)
	}

	vote := Vote{
		CodeHash:   codeHash,
		Verdict:    verdict,
		Confidence: parsed.Confidence,
		Reasoning:  parsed.Reasoning,
		Reviewer:   r.keypair.PublicKey(),
		Nonce:      nonce,
	}
	vote.Signature = r.keypair.Sign(vote.CommitmentHash().Bytes())
	return vote, nil
}

func parseVerdict(s string) (Verdict, error) {
	switch s {
	case "safe":
		return VerdictSafe, nil
	case "unsafe":
		return VerdictUnsafe, nil
	case "uncertain", "":
		return VerdictUncertain, nil
	default:
		return VerdictUncertain, fmt.Errorf("safety: unrecognized verdict %q", s)
	}
}

func buildSecurityPrompt(code, language string) string {
	return fmt.Sprintf(
		"Analyze the following %s verification code for security risks (infinite loops, "+
			"resource exhaustion, attempts to escape the sandbox, or logic designed to "+
			"always return a predetermined verdict regardless of input). "+
			"Respond with a verdict of safe, unsafe, or uncertain, a confidence from 0 to 1, "+
			"and a short justification.\n\n%s", language, code)
}
