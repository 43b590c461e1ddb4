// Copyright 2025 Certen Protocol

package mempool

import (
	"testing"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/types"
)

func newTestJob(t *testing.T, bounty uint64, createdAt, expiresAt types.Timestamp) *types.JobPacket {
	t.Helper()
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	spec := types.VerificationSpec{Kind: types.VerificationKindHashMatch, ExpectedHash: crypto.HashData([]byte("expected"))}
	job, err := types.NewJobPacket(kp, types.JobTypeDeterministic, []byte("input"), "desc",
		types.AmountFromHclaw(bounty), types.AmountFromHclaw(1), spec, createdAt, expiresAt)
	if err != nil {
		t.Fatalf("new job packet: %v", err)
	}
	return job
}

func newTestSolution(t *testing.T, jobID types.Id, submittedAt types.Timestamp) *types.SolutionCandidate {
	t.Helper()
	kp, err := crypto.GenerateKeypair()
	if err != nil {
		t.Fatalf("generate keypair: %v", err)
	}
	return types.NewSolutionCandidate(kp, jobID, []byte("output"), submittedAt)
}

func TestAddJobDuplicateRejected(t *testing.T) {
	pool := New()
	job := newTestJob(t, 10, 0, 1000)

	if err := pool.AddJob(job, 0); err != nil {
		t.Fatalf("add job: %v", err)
	}
	if err := pool.AddJob(job, 0); err != ErrDuplicateJob {
		t.Fatalf("expected ErrDuplicateJob, got %v", err)
	}
}

func TestAddJobExpiredRejected(t *testing.T) {
	pool := New()
	job := newTestJob(t, 10, 0, 100)
	if err := pool.AddJob(job, 200); err != ErrExpired {
		t.Fatalf("expected ErrExpired, got %v", err)
	}
}

func TestAddSolutionRequiresKnownJob(t *testing.T) {
	pool := New()
	sol := newTestSolution(t, crypto.HashData([]byte("nonexistent-job")), 0)
	if err := pool.AddSolution(sol); err != ErrJobNotFound {
		t.Fatalf("expected ErrJobNotFound, got %v", err)
	}
}

func TestAddSolutionDuplicateRejected(t *testing.T) {
	pool := New()
	job := newTestJob(t, 10, 0, 1000)
	if err := pool.AddJob(job, 0); err != nil {
		t.Fatalf("add job: %v", err)
	}
	sol := newTestSolution(t, job.ID, 0)
	if err := pool.AddSolution(sol); err != nil {
		t.Fatalf("add solution: %v", err)
	}
	if err := pool.AddSolution(sol); err != ErrDuplicateSolution {
		t.Fatalf("expected ErrDuplicateSolution, got %v", err)
	}
}

func TestPopJobPriorityOrder(t *testing.T) {
	pool := New()
	low := newTestJob(t, 5, 0, 1000)
	high := newTestJob(t, 50, 0, 1000)
	mid := newTestJob(t, 20, 0, 1000)

	if err := pool.AddJob(low, 0); err != nil {
		t.Fatalf("add low: %v", err)
	}
	if err := pool.AddJob(high, 1); err != nil {
		t.Fatalf("add high: %v", err)
	}
	if err := pool.AddJob(mid, 2); err != nil {
		t.Fatalf("add mid: %v", err)
	}

	first := pool.PopJob(1000)
	if first == nil || first.ID != high.ID {
		t.Fatalf("expected highest-bounty job popped first, got %+v", first)
	}
	second := pool.PopJob(1000)
	if second == nil || second.ID != mid.ID {
		t.Fatalf("expected mid-bounty job popped second, got %+v", second)
	}
	third := pool.PopJob(1000)
	if third == nil || third.ID != low.ID {
		t.Fatalf("expected low-bounty job popped last, got %+v", third)
	}
	if pool.PopJob(1000) != nil {
		t.Fatal("expected empty mempool to return nil")
	}
}

func TestPopJobSkipsExpired(t *testing.T) {
	pool := New()
	job := newTestJob(t, 10, 0, 50)
	if err := pool.AddJob(job, 0); err != nil {
		t.Fatalf("add job: %v", err)
	}
	if got := pool.PopJob(100); got != nil {
		t.Fatalf("expected nil for a now-expired job, got %+v", got)
	}
	if _, ok := pool.GetJob(job.ID); ok {
		t.Fatal("expected expired job removed from mempool")
	}
}

func TestPopSolutionsRespectsLimit(t *testing.T) {
	pool := New()
	job := newTestJob(t, 10, 0, 1000)
	if err := pool.AddJob(job, 0); err != nil {
		t.Fatalf("add job: %v", err)
	}
	for i := 0; i < 5; i++ {
		sol := newTestSolution(t, job.ID, types.Timestamp(i))
		if err := pool.AddSolution(sol); err != nil {
			t.Fatalf("add solution %d: %v", i, err)
		}
	}

	pairs := pool.PopSolutions(3)
	if len(pairs) != 3 {
		t.Fatalf("expected 3 popped pairs, got %d", len(pairs))
	}
	size := pool.Size()
	if size.Solutions != 2 {
		t.Fatalf("expected 2 solutions remaining, got %d", size.Solutions)
	}

	remaining := pool.PopSolutions(10)
	if len(remaining) != 2 {
		t.Fatalf("expected 2 remaining popped, got %d", len(remaining))
	}
}

func TestRemoveJobRemovesSolutions(t *testing.T) {
	pool := New()
	job := newTestJob(t, 10, 0, 1000)
	if err := pool.AddJob(job, 0); err != nil {
		t.Fatalf("add job: %v", err)
	}
	sol := newTestSolution(t, job.ID, 0)
	if err := pool.AddSolution(sol); err != nil {
		t.Fatalf("add solution: %v", err)
	}

	pool.RemoveJob(job.ID)
	if _, ok := pool.GetJob(job.ID); ok {
		t.Fatal("expected job removed")
	}
	if _, ok := pool.GetSolution(sol.ID); ok {
		t.Fatal("expected solution removed along with its job")
	}
}

func TestCleanupExpired(t *testing.T) {
	pool := New()
	expiring := newTestJob(t, 10, 0, 50)
	fresh := newTestJob(t, 10, 0, 1000)
	if err := pool.AddJob(expiring, 0); err != nil {
		t.Fatalf("add expiring: %v", err)
	}
	if err := pool.AddJob(fresh, 0); err != nil {
		t.Fatalf("add fresh: %v", err)
	}

	pool.CleanupExpired(100)

	if _, ok := pool.GetJob(expiring.ID); ok {
		t.Fatal("expected expired job swept")
	}
	if _, ok := pool.GetJob(fresh.ID); !ok {
		t.Fatal("expected unexpired job retained")
	}
}

func TestSize(t *testing.T) {
	pool := New()
	job := newTestJob(t, 10, 0, 1000)
	if err := pool.AddJob(job, 0); err != nil {
		t.Fatalf("add job: %v", err)
	}
	sol := newTestSolution(t, job.ID, 0)
	if err := pool.AddSolution(sol); err != nil {
		t.Fatalf("add solution: %v", err)
	}

	size := pool.Size()
	if size.Jobs != 1 || size.Solutions != 1 {
		t.Fatalf("expected size {1,1}, got %+v", size)
	}
}
