// Copyright 2025 Certen Protocol
//
// Archive repository: writes finalized blocks, jobs, solutions, and
// verification results to Postgres for SQL analytics and dashboards. This
// is a secondary, query-oriented store — the consensus-critical path
// never reads from it.

package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/types"
)

// ArchiveRepository persists chain activity to Postgres for analytics.
type ArchiveRepository struct {
	client *Client
}

// NewArchiveRepository creates an ArchiveRepository backed by client.
func NewArchiveRepository(client *Client) *ArchiveRepository {
	return &ArchiveRepository{client: client}
}

// InsertBlock archives a finalized block's header summary. totalVerifiers
// is the active verifier set size used to compute the consensus fraction.
func (r *ArchiveRepository) InsertBlock(ctx context.Context, block *types.Block, totalVerifiers int) error {
	_, err := r.client.ExecContext(ctx, `
		INSERT INTO blocks (height, hash, parent_hash, state_root, proposer, timestamp_ms,
			verification_count, attestation_count, consensus_pct)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (height) DO NOTHING`,
		block.Header.Height,
		block.Hash.Hex(),
		block.Header.ParentHash.Hex(),
		block.Header.StateRoot.Hex(),
		block.Header.Proposer.String(),
		int64(block.Header.Timestamp),
		len(block.Verifications),
		len(block.Attestations),
		block.ConsensusPercentage(totalVerifiers),
	)
	if err != nil {
		return fmt.Errorf("archive: insert block: %w", err)
	}
	return nil
}

// GetBlock returns the archived header summary for height, or ErrBlockNotFound.
func (r *ArchiveRepository) GetBlock(ctx context.Context, height uint64) (*BlockRecord, error) {
	var rec BlockRecord
	err := r.client.QueryRowContext(ctx, `
		SELECT height, hash, parent_hash, state_root, proposer, timestamp_ms,
			verification_count, attestation_count, consensus_pct, inserted_at
		FROM blocks WHERE height = $1`, height).Scan(
		&rec.Height, &rec.Hash, &rec.ParentHash, &rec.StateRoot, &rec.Proposer,
		&rec.TimestampMs, &rec.VerificationCount, &rec.AttestationCount,
		&rec.ConsensusPct, &rec.InsertedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrBlockNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("archive: get block: %w", err)
	}
	return &rec, nil
}

// InsertJob archives a job packet's summary fields.
func (r *ArchiveRepository) InsertJob(ctx context.Context, job *types.JobPacket) error {
	_, err := r.client.ExecContext(ctx, `
		INSERT INTO jobs (id, job_type, status, requester_addr, bounty_hclaw, burn_fee_hclaw,
			verification_kind, created_at_ms, expires_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status`,
		job.ID.Hex(),
		fmt.Sprintf("%d", job.JobType),
		fmt.Sprintf("%d", job.Status),
		job.RequesterAddr.String(),
		job.Bounty.String(),
		job.BurnFee.String(),
		fmt.Sprintf("%d", job.Verification.Kind),
		int64(job.CreatedAt),
		int64(job.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("archive: insert job: %w", err)
	}
	return nil
}

// GetJob returns the archived job record with the given ID, or ErrJobNotFound.
func (r *ArchiveRepository) GetJob(ctx context.Context, id crypto.Hash) (*JobRecord, error) {
	var rec JobRecord
	err := r.client.QueryRowContext(ctx, `
		SELECT id, job_type, status, requester_addr, bounty_hclaw, burn_fee_hclaw,
			verification_kind, created_at_ms, expires_at_ms, inserted_at
		FROM jobs WHERE id = $1`, id.Hex()).Scan(
		&rec.ID, &rec.JobType, &rec.Status, &rec.RequesterAddr, &rec.BountyHclaw,
		&rec.BurnFeeHclaw, &rec.VerificationKind, &rec.CreatedAtMs, &rec.ExpiresAtMs,
		&rec.InsertedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("archive: get job: %w", err)
	}
	return &rec, nil
}

// InsertSolution archives a solution candidate's summary fields.
func (r *ArchiveRepository) InsertSolution(ctx context.Context, solution *types.SolutionCandidate) error {
	_, err := r.client.ExecContext(ctx, `
		INSERT INTO solutions (id, job_id, solver_addr, status, is_honey_pot, submitted_at_ms)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET status = EXCLUDED.status`,
		solution.ID.Hex(),
		solution.JobID.Hex(),
		solution.SolverAddr.String(),
		fmt.Sprintf("%d", solution.Status),
		solution.IsHoneyPot,
		int64(solution.SubmittedAt),
	)
	if err != nil {
		return fmt.Errorf("archive: insert solution: %w", err)
	}
	return nil
}

// InsertVerification archives a verification result tied to the block
// height it was included in.
func (r *ArchiveRepository) InsertVerification(ctx context.Context, result *types.VerificationResult, blockHeight uint64) error {
	_, err := r.client.ExecContext(ctx, `
		INSERT INTO verifications (solution_id, job_id, verifier, passed, verified_at_ms, block_height)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (solution_id, verifier) DO NOTHING`,
		result.SolutionID.Hex(),
		result.JobID.Hex(),
		result.Verifier.Hex(),
		result.Passed,
		int64(result.VerifiedAt),
		blockHeight,
	)
	if err != nil {
		return fmt.Errorf("archive: insert verification: %w", err)
	}
	return nil
}

// ListSolutionsForJob returns archived solution records for a job.
func (r *ArchiveRepository) ListSolutionsForJob(ctx context.Context, jobID crypto.Hash) ([]SolutionRecord, error) {
	rows, err := r.client.QueryContext(ctx, `
		SELECT id, job_id, solver_addr, status, is_honey_pot, submitted_at_ms, inserted_at
		FROM solutions WHERE job_id = $1 ORDER BY submitted_at_ms ASC`, jobID.Hex())
	if err != nil {
		return nil, fmt.Errorf("archive: list solutions: %w", err)
	}
	defer rows.Close()

	var out []SolutionRecord
	for rows.Next() {
		var rec SolutionRecord
		if err := rows.Scan(&rec.ID, &rec.JobID, &rec.SolverAddr, &rec.Status,
			&rec.IsHoneyPot, &rec.SubmittedAtMs, &rec.InsertedAt); err != nil {
			return nil, fmt.Errorf("archive: scan solution: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}
