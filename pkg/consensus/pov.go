// Copyright 2025 Certen Protocol

// Package consensus implements Proof-of-Verification: block production is
// gated on verifying externally computed work rather than solving a hash
// puzzle. A verifier re-runs a job's declared verification method against
// a submitted solution, signs the result, and a block is only final once
// 66% of active verifiers have attested to it.
package consensus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/sandbox"
	"github.com/hardclaw/node/pkg/types"
)

// cacheTTL bounds how long a verification result is reused for a solution
// that is re-submitted for re-verification.
const cacheTTL = 60 * time.Second

// ModuleStore resolves a WASM verifier module's bytes from its content
// hash. A nil store degrades WASM verification to a hash-presence check,
// matching the reference implementation's behavior when no module backend
// is configured.
type ModuleStore interface {
	GetModule(hash crypto.Hash) ([]byte, bool)
}

// ProofOfVerification is the consensus engine: it dispatches a job's
// verification method against a solution's output, and validates
// assembled blocks against the network's active verifier set.
type ProofOfVerification struct {
	sandboxes *sandbox.Registry
	modules   ModuleStore

	mu    sync.Mutex
	cache map[crypto.Hash]cachedResult
}

type cachedResult struct {
	result  *types.VerificationResult
	cachedAt time.Time
}

// NewProofOfVerification creates a PoV engine backed by sandboxes for
// script-based verification and an optional module store for WASM.
func NewProofOfVerification(sandboxes *sandbox.Registry, modules ModuleStore) *ProofOfVerification {
	return &ProofOfVerification{
		sandboxes: sandboxes,
		modules:   modules,
		cache:     make(map[crypto.Hash]cachedResult),
	}
}

// VerifySolution is the core "mining" operation: it checks a solution
// against its job's verification spec and returns a signed result.
func (p *ProofOfVerification) VerifySolution(ctx context.Context, job *types.JobPacket, solution *types.SolutionCandidate, verifier *crypto.Keypair) (*types.VerificationResult, error) {
	if solution.JobID != job.ID {
		return nil, ErrSolutionMismatch
	}

	if cached, ok := p.cachedResult(solution.ID); ok {
		return cached, nil
	}

	passed, verifyErr := p.dispatch(ctx, job, solution)
	if verifyErr == ErrSubjectiveJob {
		return nil, verifyErr
	}
	// Any other dispatch error (hash mismatch, missing runtime, tampered
	// code) is treated as a failed verification rather than propagated:
	// the result type records pass/fail, not a reason.
	if verifyErr != nil {
		passed = false
	}

	result := types.NewVerificationResult(verifier, solution.ID, job.ID, passed, types.NowMillis())
	p.cacheResult(solution.ID, result)
	return result, nil
}

// dispatch runs the verification method named by job.Verification and
// reports whether the solution's output passed. A non-nil error other
// than a verification-level rejection indicates the job was misrouted
// (e.g. a subjective job reaching the deterministic path).
func (p *ProofOfVerification) dispatch(ctx context.Context, job *types.JobPacket, solution *types.SolutionCandidate) (bool, error) {
	switch job.Verification.Kind {
	case types.VerificationKindHashMatch:
		return p.verifyHashMatch(solution.Output, job.Verification.ExpectedHash), nil

	case types.VerificationKindWasmVerifier:
		return p.verifyWasm(ctx, job.Input, solution.Output, job.Verification.ModuleHash)

	case types.VerificationKindPythonScript:
		return p.verifyScript(ctx, "python", job.Verification.CodeHash, job.Verification.Code, job.Input, solution.Output)

	case types.VerificationKindJavaScriptScript:
		return p.verifyScript(ctx, "javascript", job.Verification.CodeHash, job.Verification.Code, job.Input, solution.Output)

	case types.VerificationKindSchellingPoint:
		return false, ErrSubjectiveJob

	default:
		return false, fmt.Errorf("consensus: unknown verification kind %d", job.Verification.Kind)
	}
}

func (p *ProofOfVerification) verifyHashMatch(output []byte, expected crypto.Hash) bool {
	return crypto.HashData(output) == expected
}

// verifyWasm executes a WASM verifier module against input/output through
// the wazero-backed sandbox runtime. When the engine has no module store
// configured, it falls back to validating only that a module hash was
// supplied, matching the reference implementation's placeholder.
func (p *ProofOfVerification) verifyWasm(ctx context.Context, input, output []byte, moduleHash crypto.Hash) (bool, error) {
	if moduleHash == crypto.ZeroHash {
		return false, fmt.Errorf("consensus: invalid wasm module hash")
	}

	if p.modules == nil {
		return true, nil
	}

	module, ok := p.modules.GetModule(moduleHash)
	if !ok {
		return false, fmt.Errorf("consensus: wasm module not found for hash %s", moduleHash.Hex())
	}
	if crypto.HashData(module) != moduleHash {
		return false, sandbox.ErrHashMismatch
	}

	runtime, err := p.sandboxes.Get("wasm")
	if err != nil {
		return false, err
	}
	return runtime.Execute(ctx, string(module), input, output)
}

// verifyScript runs a Python or JavaScript verification script after
// confirming its code hash matches the job's declared hash (guarding
// against tampering between job posting and verification).
func (p *ProofOfVerification) verifyScript(ctx context.Context, language string, codeHash crypto.Hash, code string, input, output []byte) (bool, error) {
	if crypto.HashData([]byte(code)) != codeHash {
		return false, sandbox.ErrHashMismatch
	}

	runtime, err := p.sandboxes.Get(language)
	if err != nil {
		return false, err
	}
	return runtime.Execute(ctx, code, input, output)
}

// ValidateBlock checks a block's parent chaining, internal integrity, and
// attestation consensus threshold.
func (p *ProofOfVerification) ValidateBlock(block, parent *types.Block, activeVerifiers int) error {
	if parent != nil {
		if block.Header.ParentHash != parent.Hash {
			return ErrInvalidParent
		}
		if block.Header.Height != parent.Header.Height+1 {
			return fmt.Errorf("consensus: block height mismatch: expected %d, got %d", parent.Header.Height+1, block.Header.Height)
		}
	} else if block.Header.Height != 0 {
		return ErrInvalidParent
	}

	if err := block.VerifyIntegrity(); err != nil {
		return fmt.Errorf("consensus: %w", err)
	}

	if !block.HasConsensus(activeVerifiers) {
		return &ErrInsufficientConsensus{Percentage: block.ConsensusPercentage(activeVerifiers)}
	}

	for _, a := range block.Attestations {
		if err := a.VerifySignature(); err != nil {
			return fmt.Errorf("consensus: invalid attestation signature: %w", err)
		}
	}

	return nil
}

// CreateAttestation signs a verifier's endorsement of block, naming the
// solutions that verifier itself checked.
func (p *ProofOfVerification) CreateAttestation(block *types.Block, verifiedSolutions []types.Id, verifier *crypto.Keypair) *types.VerifierAttestation {
	return types.NewVerifierAttestation(verifier, block.Hash, verifiedSolutions)
}

func (p *ProofOfVerification) cachedResult(solutionID crypto.Hash) (*types.VerificationResult, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	entry, ok := p.cache[solutionID]
	if !ok || time.Since(entry.cachedAt) >= cacheTTL {
		return nil, false
	}
	return entry.result, true
}

func (p *ProofOfVerification) cacheResult(solutionID crypto.Hash, result *types.VerificationResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cache[solutionID] = cachedResult{result: result, cachedAt: time.Now()}
}

// CleanupCache drops cache entries older than cacheTTL.
func (p *ProofOfVerification) CleanupCache() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for id, entry := range p.cache {
		if time.Since(entry.cachedAt) >= cacheTTL {
			delete(p.cache, id)
		}
	}
}
