package precond

// SyntheticSystem is the recursive coarser-resolution LinearSystemMap
// the submap preconditioner drives: apply its own A/M and DOF inner
// product for a fixed iteration count.
type SyntheticSystem interface {
	// Solve runs a fixed number of CG iterations against rhs and
	// returns the solution, using the system's own A/M/Dot.
	Solve(rhs []float64, iterations int) []float64
}

// Submap runs a fixed number of inner CG iterations on a
// caller-supplied system. It does not group scans, synthesize
// effective scans or fuse noise models itself; those helpers live in
// package group, and this preconditioner only drives whatever system
// it is given.
type Submap struct {
	System     SyntheticSystem
	Iterations int
}

// NewSubmap wraps a pre-built synthetic system. Building that system
// (grouping scans, synthesizing an effective scan per group, choosing
// its own binned or circulant preconditioner) is the caller's
// responsibility via package group and this same package's other
// constructors rather than this preconditioner reaching into scan
// grouping itself.
func NewSubmap(system SyntheticSystem, iterations int) *Submap {
	if iterations <= 0 {
		iterations = 20
	}
	return &Submap{System: system, Iterations: iterations}
}

// Apply replaces m with the synthetic system's solution for a fixed
// iteration count; the inner CG's residual is ignored by contract.
func (p *Submap) Apply(x []float64) {
	solved := p.System.Solve(x, p.Iterations)
	copy(x, solved)
}
