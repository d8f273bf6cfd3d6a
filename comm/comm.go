// Package comm provides the MPI-style communicator interface the
// core's collectives run over, with a single-process stand-in as its
// only implementation: the collective methods reduce one logical
// contribution against itself (identities), and multi-rank execution
// is available only through World.Parallel, which fans work out over
// a worker pool (github.com/alitto/pond). A real multi-process MPI
// binding would replace World behind the same Comm interface.
package comm

import (
	"sync"

	"github.com/alitto/pond"
)

// Comm is the collaborator every collective in the core consumes:
// AllreduceSum combines one float64 per rank; AllreduceSumVec does the
// same element-wise over a vector (used by SignalMap.finish and the
// binned preconditioner's div/hits reduction);
// AllGatherObjects concatenates one value per rank in rank order (no
// caller in the module uses it; scan grouping works on the analyses it
// is handed and gathers nothing itself).
type Comm interface {
	Rank() int
	Size() int
	AllreduceSum(v float64) float64
	AllreduceSumVec(v []float64) []float64
	AllGatherObjects(v interface{}) []interface{}
}

// World is an in-process stand-in for MPI_COMM_WORLD. The core always
// calls the collective methods from a single logical rank, so they
// are identities: a lone contribution reduced against itself. The
// multi-rank case is driven explicitly through Parallel, where a
// caller that owns every rank's data fans the work out over the pool
// and combines the per-rank results itself.
type World struct {
	size int
	pool *pond.WorkerPool
}

// NewWorld builds a World of the given rank count, backed by a fixed
// pool sized to run every rank concurrently. Only Parallel uses the
// extra ranks; the collective methods stay single-rank identities.
func NewWorld(size int) *World {
	if size < 1 {
		size = 1
	}
	return &World{size: size, pool: pond.New(size, 0, pond.MinWorkers(size))}
}

// Self returns a single-rank Comm simulating MPI_COMM_SELF, used for
// the per-rank synthetic systems the submap preconditioner builds.
func Self() Comm { return NewWorld(1) }

// Size is the fixed rank count.
func (w *World) Size() int { return w.size }

// Rank always returns 0 in this in-process simulation: the core only
// ever calls Comm methods from the calling goroutine's own logical
// rank, which this simulation does not distinguish further than
// "this caller's contribution".
func (w *World) Rank() int { return 0 }

// AllreduceSum reduces a single logical contribution against itself:
// the identity. A real MPI binding would sum across ranks here.
func (w *World) AllreduceSum(v float64) float64 { return v }

// AllreduceSumVec is AllreduceSum element-wise over a vector, the
// identity for the same reason.
func (w *World) AllreduceSumVec(v []float64) []float64 { return v }

// AllGatherObjects returns v as the sole element: a single logical
// contribution gathered against itself.
func (w *World) AllGatherObjects(v interface{}) []interface{} { return []interface{}{v} }

// Parallel runs fn once per rank on the pool, in rank order for
// submission but concurrently, and returns the per-rank results
// combined by AllreduceSumVec-style summation. This is how the core's
// "every rank runs the same collective" model is actually
// exercised: a caller who owns every rank's data (tests, the CLI's
// single-process demo) drives ranks through Parallel instead of
// spawning real OS processes.
func (w *World) Parallel(fn func(rank int) []float64) []float64 {
	results := make([][]float64, w.size)
	var wg sync.WaitGroup
	wg.Add(w.size)
	for r := 0; r < w.size; r++ {
		rank := r
		w.pool.Submit(func() {
			defer wg.Done()
			results[rank] = fn(rank)
		})
	}
	wg.Wait()

	if len(results) == 0 || results[0] == nil {
		return nil
	}
	sum := make([]float64, len(results[0]))
	for _, r := range results {
		for i, v := range r {
			sum[i] += v
		}
	}
	return sum
}

// Stop releases the worker pool's goroutines.
func (w *World) Stop() { w.pool.StopAndWait() }
