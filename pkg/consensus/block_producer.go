// Copyright 2025 Certen Protocol

package consensus

import (
	"container/list"
	"context"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/types"
)

// BlockProducerConfig bounds a single block's contents and production
// cadence.
type BlockProducerConfig struct {
	MaxSolutionsPerBlock int
	MaxBlockSize         int
	TargetBlockTimeMs    uint64
	MinVerifications     int
}

// DefaultBlockProducerConfig returns the reference tuning.
func DefaultBlockProducerConfig() BlockProducerConfig {
	return BlockProducerConfig{
		MaxSolutionsPerBlock: 1000,
		MaxBlockSize:         1_000_000,
		TargetBlockTimeMs:    1000,
		MinVerifications:     1,
	}
}

// estimatedVerificationSize approximates a verification result's encoded
// size for the purpose of bounding block size; it is not an exact byte
// count.
const estimatedVerificationSize = 256

// BlockProducer assembles blocks from verified solutions: it runs PoV
// verification on candidates pulled from the mempool, accumulates the
// passing results, and proposes a signed block once enough have
// accumulated.
type BlockProducer struct {
	config  BlockProducerConfig
	keypair *crypto.Keypair
	pov     *ProofOfVerification

	pending        *list.List // of *types.VerificationResult
	currentHeight  uint64
	currentParent  crypto.Hash
}

// NewBlockProducer creates a block producer signing as keypair.
func NewBlockProducer(keypair *crypto.Keypair, pov *ProofOfVerification, config BlockProducerConfig) *BlockProducer {
	return &BlockProducer{
		config:        config,
		keypair:       keypair,
		pov:           pov,
		pending:       list.New(),
		currentParent: crypto.ZeroHash,
	}
}

// SetChainState updates the producer's view of the chain tip it builds on
// top of.
func (b *BlockProducer) SetChainState(height uint64, parentHash crypto.Hash) {
	b.currentHeight = height
	b.currentParent = parentHash
}

// VerifySolution runs PoV verification on a candidate and, if it passes,
// queues the result for inclusion in the next block.
func (b *BlockProducer) VerifySolution(ctx context.Context, job *types.JobPacket, solution *types.SolutionCandidate) (*types.VerificationResult, error) {
	result, err := b.pov.VerifySolution(ctx, job, solution, b.keypair)
	if err != nil {
		return nil, err
	}
	if result.Passed {
		b.pending.PushBack(result)
	}
	return result, nil
}

// ShouldProduceBlock reports whether enough verifications have
// accumulated to propose a block.
func (b *BlockProducer) ShouldProduceBlock() bool {
	return b.pending.Len() >= b.config.MinVerifications
}

// PendingCount returns the number of verifications queued for the next
// block.
func (b *BlockProducer) PendingCount() int {
	return b.pending.Len()
}

// ClearPending discards queued verifications, e.g. after a chain reorg.
func (b *BlockProducer) ClearPending() {
	b.pending.Init()
}

// PublicKey returns the producer's signing identity.
func (b *BlockProducer) PublicKey() crypto.PublicKey {
	return b.keypair.PublicKey()
}

// ProduceBlock drains up to config.MaxSolutionsPerBlock pending
// verifications (bounded by config.MaxBlockSize), assembles a new signed
// block on top of the producer's current chain state, and attaches the
// producer's own attestation.
func (b *BlockProducer) ProduceBlock(stateRoot crypto.Hash) (*types.Block, error) {
	if b.pending.Len() == 0 {
		return nil, ErrNoVerificationsPending
	}

	verifications := make([]*types.VerificationResult, 0, b.config.MaxSolutionsPerBlock)
	totalSize := 0

	for {
		front := b.pending.Front()
		if front == nil {
			break
		}
		if len(verifications) >= b.config.MaxSolutionsPerBlock ||
			totalSize+estimatedVerificationSize > b.config.MaxBlockSize {
			break
		}

		b.pending.Remove(front)
		verifications = append(verifications, front.Value.(*types.VerificationResult))
		totalSize += estimatedVerificationSize
	}

	block := types.NewBlock(b.keypair, b.currentHeight+1, b.currentParent, verifications, stateRoot, types.NowMillis())

	verifiedSolutions := make([]types.Id, len(block.Verifications))
	for i, v := range block.Verifications {
		verifiedSolutions[i] = v.SolutionID
	}

	attestation := b.pov.CreateAttestation(block, verifiedSolutions, b.keypair)
	block.AddAttestation(attestation)

	return block, nil
}
