// Copyright 2025 Certen Protocol

// Package honeypot implements the randomized honey-pot defense against
// lazy verifiers: the protocol injects solutions that look legitimate but
// are deliberately wrong, and slashes any verifier who signs off on one.
package honeypot

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand"
	"sync"

	"github.com/hardclaw/node/pkg/crypto"
	"github.com/hardclaw/node/pkg/types"
)

// Generator produces honey-pot solutions and tracks which solution IDs it
// has generated.
type Generator struct {
	injectionRate float64
	rng           *rand.Rand

	mu           sync.RWMutex
	generatedIDs map[types.Id]struct{}
}

// NewGenerator creates a generator that injects honey pots with
// probability injectionRate (clamped to [0, 1]), seeded from the system
// entropy source.
func NewGenerator(injectionRate float64) *Generator {
	return NewGeneratorWithSeed(injectionRate, cryptoSeed())
}

// NewGeneratorWithSeed creates a generator with a fixed seed, for
// reproducible tests.
func NewGeneratorWithSeed(injectionRate float64, seed int64) *Generator {
	if injectionRate < 0 {
		injectionRate = 0
	} else if injectionRate > 1 {
		injectionRate = 1
	}
	return &Generator{
		injectionRate: injectionRate,
		rng:           rand.New(rand.NewSource(seed)),
		generatedIDs:  make(map[types.Id]struct{}),
	}
}

func cryptoSeed() int64 {
	var buf [8]byte
	_, _ = crand.Read(buf[:])
	return int64(binary.LittleEndian.Uint64(buf[:]))
}

// ShouldInject decides, per the configured injection rate, whether to
// inject a honey pot for the next job.
func (g *Generator) ShouldInject() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.rng.Float64() < g.injectionRate
}

// Generate builds a honey-pot solution for job, attributed to keypair,
// with deliberately wrong output.
func (g *Generator) Generate(keypair *crypto.Keypair, job *types.JobPacket, submittedAt types.Timestamp) *types.SolutionCandidate {
	fakeOutput := g.generateFakeOutput(job)
	solution := types.NewHoneyPotSolution(keypair, job.ID, fakeOutput, submittedAt)

	g.mu.Lock()
	g.generatedIDs[solution.ID] = struct{}{}
	g.mu.Unlock()

	return solution
}

// generateFakeOutput XORs the job's input against random bytes, so the
// output has plausible structure but is cryptographically different from
// any real solution, then tags it with a marker suffix.
func (g *Generator) generateFakeOutput(job *types.JobPacket) []byte {
	g.mu.Lock()
	defer g.mu.Unlock()

	fake := make([]byte, len(job.Input))
	copy(fake, job.Input)
	if len(fake) == 0 {
		fake = make([]byte, 32)
	}

	for i := range fake {
		randByte := byte(g.rng.Intn(256)) + byte(i)
		fake[i] ^= randByte
	}

	return append(fake, []byte("__HONEYPOT__")...)
}

// IsHoneyPot reports whether solutionID was generated by this generator.
func (g *Generator) IsHoneyPot(solutionID types.Id) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	_, ok := g.generatedIDs[solutionID]
	return ok
}

// Count returns the number of honey pots currently tracked.
func (g *Generator) Count() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.generatedIDs)
}

// Cleanup discards tracked honey-pot IDs not present in keepIDs.
func (g *Generator) Cleanup(keepIDs map[types.Id]struct{}) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for id := range g.generatedIDs {
		if _, keep := keepIDs[id]; !keep {
			delete(g.generatedIDs, id)
		}
	}
}

// Detector tracks known honey-pot solution IDs and the verifiers who
// approved one, pending slashing.
type Detector struct {
	mu             sync.RWMutex
	knownHoneyPots map[types.Id]struct{}
	offenders      map[crypto.Address]crypto.PublicKey
}

// NewDetector creates an empty detector.
func NewDetector() *Detector {
	return &Detector{
		knownHoneyPots: make(map[types.Id]struct{}),
		offenders:      make(map[crypto.Address]crypto.PublicKey),
	}
}

// Register marks solutionID as a known honey pot.
func (d *Detector) Register(solutionID types.Id) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.knownHoneyPots[solutionID] = struct{}{}
}

// IsHoneyPot reports whether solutionID is registered as a honey pot.
func (d *Detector) IsHoneyPot(solutionID types.Id) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.knownHoneyPots[solutionID]
	return ok
}

// RecordOffender flags verifier as having approved solutionID, if and
// only if that solution is a known honey pot.
func (d *Detector) RecordOffender(verifier crypto.PublicKey, solutionID types.Id) {
	if !d.IsHoneyPot(solutionID) {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.offenders[verifier.Address()] = verifier
}

// IsOffender reports whether verifier has a pending slash for approving a
// honey pot.
func (d *Detector) IsOffender(verifier crypto.PublicKey) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.offenders[verifier.Address()]
	return ok
}

// Offenders returns every verifier currently flagged for slashing.
func (d *Detector) Offenders() []crypto.PublicKey {
	d.mu.RLock()
	defer d.mu.RUnlock()
	out := make([]crypto.PublicKey, 0, len(d.offenders))
	for _, pk := range d.offenders {
		out = append(out, pk)
	}
	return out
}

// ClearOffender removes verifier's pending-slash flag, once it has been
// acted on.
func (d *Detector) ClearOffender(verifier crypto.PublicKey) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.offenders, verifier.Address())
}

// Stats summarizes honey-pot and offender counts.
type Stats struct {
	TotalHoneyPots  int
	TotalOffenders  int
}

// Stats returns a snapshot of the detector's counters.
func (d *Detector) Stats() Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return Stats{
		TotalHoneyPots: len(d.knownHoneyPots),
		TotalOffenders: len(d.offenders),
	}
}
