// Copyright 2025 Certen Protocol

// Package mempool holds pending jobs and solutions awaiting inclusion in a
// block.
package mempool

import (
	"container/heap"
	"errors"
	"sync"

	"github.com/hardclaw/node/pkg/types"
)

// Default capacity limits, matching the reference implementation.
const (
	DefaultMaxJobs      = 10_000
	DefaultMaxSolutions = 50_000
)

var (
	// ErrDuplicateJob is returned when a job with the same ID is already
	// present.
	ErrDuplicateJob = errors.New("mempool: job already exists")
	// ErrDuplicateSolution is returned when a solution with the same ID is
	// already present.
	ErrDuplicateSolution = errors.New("mempool: solution already exists")
	// ErrJobNotFound is returned when a solution references an unknown
	// job.
	ErrJobNotFound = errors.New("mempool: job not found")
	// ErrFull is returned when the relevant capacity limit has been
	// reached.
	ErrFull = errors.New("mempool: full")
	// ErrExpired is returned when adding an already-expired job.
	ErrExpired = errors.New("mempool: job has expired")
)

// prioritizedJob is one entry in the job priority queue: higher bounty
// (in whole HCLAW) sorts first, ties broken by insertion order (older
// first).
type prioritizedJob struct {
	job     *types.JobPacket
	index   int
	addedAt types.Timestamp
}

// jobQueue is a max-heap over prioritizedJob ordered by (priority desc,
// addedAt asc).
type jobQueue []*prioritizedJob

func (q jobQueue) Len() int { return len(q) }

func (q jobQueue) Less(i, j int) bool {
	pi, pj := q[i].job.Bounty.WholeHclaw(), q[j].job.Bounty.WholeHclaw()
	if pi != pj {
		return pi > pj
	}
	return q[i].addedAt < q[j].addedAt
}

func (q jobQueue) Swap(i, j int) {
	q[i], q[j] = q[j], q[i]
	q[i].index = i
	q[j].index = j
}

func (q *jobQueue) Push(x any) {
	item := x.(*prioritizedJob)
	item.index = len(*q)
	*q = append(*q, item)
}

func (q *jobQueue) Pop() any {
	old := *q
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*q = old[:n-1]
	return item
}

// Size reports the current occupancy of a Mempool.
type Size struct {
	Jobs      int
	Solutions int
}

// Mempool holds pending jobs and solutions. All methods are safe for
// concurrent use.
type Mempool struct {
	mu              sync.Mutex
	jobs            map[types.Id]*types.JobPacket
	queue           jobQueue
	solutions       map[types.Id]*types.SolutionCandidate
	solutionsByJob  map[types.Id][]types.Id
	maxJobs         int
	maxSolutions    int
}

// New creates an empty mempool with the default capacity limits.
func New() *Mempool {
	return &Mempool{
		jobs:           make(map[types.Id]*types.JobPacket),
		solutions:      make(map[types.Id]*types.SolutionCandidate),
		solutionsByJob: make(map[types.Id][]types.Id),
		maxJobs:        DefaultMaxJobs,
		maxSolutions:   DefaultMaxSolutions,
	}
}

// AddJob inserts a job into the mempool, indexing it by bounty priority.
func (m *Mempool) AddJob(job *types.JobPacket, now types.Timestamp) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[job.ID]; exists {
		return ErrDuplicateJob
	}
	if len(m.jobs) >= m.maxJobs {
		return ErrFull
	}
	if job.IsExpired(now) {
		return ErrExpired
	}

	m.jobs[job.ID] = job
	heap.Push(&m.queue, &prioritizedJob{job: job, addedAt: now})
	return nil
}

// AddSolution inserts a solution to a known job.
func (m *Mempool) AddSolution(solution *types.SolutionCandidate) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.jobs[solution.JobID]; !exists {
		return ErrJobNotFound
	}
	if _, exists := m.solutions[solution.ID]; exists {
		return ErrDuplicateSolution
	}
	if len(m.solutions) >= m.maxSolutions {
		return ErrFull
	}

	m.solutionsByJob[solution.JobID] = append(m.solutionsByJob[solution.JobID], solution.ID)
	m.solutions[solution.ID] = solution
	return nil
}

// GetJob returns a job by ID.
func (m *Mempool) GetJob(id types.Id) (*types.JobPacket, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	return job, ok
}

// GetSolution returns a solution by ID.
func (m *Mempool) GetSolution(id types.Id) (*types.SolutionCandidate, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sol, ok := m.solutions[id]
	return sol, ok
}

// SolutionsForJob returns every solution submitted against jobID.
func (m *Mempool) SolutionsForJob(jobID types.Id) []*types.SolutionCandidate {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := m.solutionsByJob[jobID]
	out := make([]*types.SolutionCandidate, 0, len(ids))
	for _, id := range ids {
		if sol, ok := m.solutions[id]; ok {
			out = append(out, sol)
		}
	}
	return out
}

// PopJob removes and returns the highest-priority unexpired job, or nil if
// the mempool holds none.
func (m *Mempool) PopJob(now types.Timestamp) *types.JobPacket {
	m.mu.Lock()
	defer m.mu.Unlock()

	for m.queue.Len() > 0 {
		item := heap.Pop(&m.queue).(*prioritizedJob)
		job, exists := m.jobs[item.job.ID]
		if !exists {
			continue
		}
		delete(m.jobs, item.job.ID)
		if !job.IsExpired(now) {
			return job
		}
	}
	return nil
}

// PopSolutions removes and returns up to limit (job, solution) pairs
// awaiting verification. The order across jobs follows Go's map iteration
// order and is not prioritized; within one job, solutions are taken newest
// first.
func (m *Mempool) PopSolutions(limit int) []JobSolutionPair {
	m.mu.Lock()
	defer m.mu.Unlock()

	results := make([]JobSolutionPair, 0, limit)

	for jobID := range m.solutionsByJob {
		if len(results) >= limit {
			break
		}
		job, exists := m.jobs[jobID]
		if !exists {
			continue
		}

		ids := m.solutionsByJob[jobID]
		for len(ids) > 0 && len(results) < limit {
			last := ids[len(ids)-1]
			ids = ids[:len(ids)-1]
			if sol, ok := m.solutions[last]; ok {
				delete(m.solutions, last)
				results = append(results, JobSolutionPair{Job: job, Solution: sol})
			}
		}

		if len(ids) == 0 {
			delete(m.solutionsByJob, jobID)
		} else {
			m.solutionsByJob[jobID] = ids
		}
	}

	return results
}

// JobSolutionPair couples a job with one of its submitted solutions.
type JobSolutionPair struct {
	Job      *types.JobPacket
	Solution *types.SolutionCandidate
}

// RemoveJob deletes a job and every solution submitted against it.
func (m *Mempool) RemoveJob(id types.Id) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.removeJobLocked(id)
}

func (m *Mempool) removeJobLocked(id types.Id) {
	delete(m.jobs, id)
	for _, solID := range m.solutionsByJob[id] {
		delete(m.solutions, solID)
	}
	delete(m.solutionsByJob, id)
}

// CleanupExpired removes every job (and its solutions) that has expired as
// of now.
func (m *Mempool) CleanupExpired(now types.Timestamp) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var expired []types.Id
	for id, job := range m.jobs {
		if job.IsExpired(now) {
			expired = append(expired, id)
		}
	}
	for _, id := range expired {
		m.removeJobLocked(id)
	}
}

// Size reports the current job and solution counts.
func (m *Mempool) Size() Size {
	m.mu.Lock()
	defer m.mu.Unlock()
	return Size{Jobs: len(m.jobs), Solutions: len(m.solutions)}
}
