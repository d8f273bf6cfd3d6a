package mapmaker

import (
	"github.com/skyscan/mapmaker/comm"
	"github.com/skyscan/mapmaker/eqsys"
)

// Preconditioner is the full-system preconditioner LinearSystemMap
// drives each CG iteration: a flat global element in, preconditioned
// element out, in place.
type Preconditioner interface {
	Apply(x []float64)
}

// LinearSystem is the contract the solver driver and the multigrid
// level bridge both consume: A, b, M and a comm-aware inner product,
// plus postprocessing and persistence. The optional coarser system for
// recursive preconditioning is a field of LinearSystemMap, not part of
// this interface.
type LinearSystem interface {
	A(x []float64) ([]float64, error)
	B() []float64
	M(x []float64) ([]float64, error)
	Dot(a, b []float64) float64
	Postprocess(x []float64) ([]float64, error)
	Write(prefix, tag string, x []float64) error
}

// LinearSystemMap is the concrete LinearSystem: an Eqsys for the
// normal-equations operator and residual, a Preconditioner for M, and
// the comm rank used to resolve dof.Dot's shared-segment ownership.
// Any Preconditioner the caller composes can be plugged in.
type LinearSystemMap struct {
	Eqsys   *eqsys.Eqsys
	Precond Preconditioner
	Comm    comm.Comm

	// Coarser is the next-coarser-resolution system a submap or
	// multigrid preconditioner recurses into; nil at the finest level.
	Coarser *LinearSystemMap
}

// NewLinearSystemMap builds b once up front and wraps the given
// preconditioner.
func NewLinearSystemMap(e *eqsys.Eqsys, precond Preconditioner, c comm.Comm) (*LinearSystemMap, error) {
	if _, err := e.CalcB(nil); err != nil {
		return nil, err
	}
	return &LinearSystemMap{Eqsys: e, Precond: precond, Comm: c}, nil
}

// A is PᵀN⁻¹P applied to x.
func (s *LinearSystemMap) A(x []float64) ([]float64, error) { return s.Eqsys.A(x) }

// B returns the precomputed right-hand side.
func (s *LinearSystemMap) B() []float64 { return s.Eqsys.B }

// M runs the signals' own local preconditioners, then the system-wide
// Preconditioner: cheap per-signal scaling before the expensive
// shared operator.
func (s *LinearSystemMap) M(x []float64) ([]float64, error) {
	out, err := s.Eqsys.M(x)
	if err != nil {
		return nil, err
	}
	if s.Precond != nil {
		s.Precond.Apply(out)
	}
	return out, nil
}

// Dot resolves shared-segment ownership by this rank being 0 in the
// single-process comm.Self() case, or by the caller's comm.World
// already simulating ranks; rank 0 owns shared segments.
func (s *LinearSystemMap) Dot(a, b []float64) float64 {
	return s.Eqsys.Dot(a, b, s.Comm.Rank() == 0)
}

// Postprocess runs each signal's post chain.
func (s *LinearSystemMap) Postprocess(x []float64) ([]float64, error) { return s.Eqsys.Postprocess(x) }

// Write persists every signal's current element.
func (s *LinearSystemMap) Write(prefix, tag string, x []float64) error {
	return s.Eqsys.Write(prefix, tag, x)
}

// Solve implements precond.SyntheticSystem for use as a submap
// preconditioner's inner system: run a fixed number of CG iterations
// against rhs using this system's own A/M/Dot, starting from zero and
// ignoring the residual on return.
func (s *LinearSystemMap) Solve(rhs []float64, iterations int) []float64 {
	x := make([]float64, len(rhs))
	r := append([]float64(nil), rhs...)

	z, err := s.M(r)
	if err != nil {
		return x
	}
	p := append([]float64(nil), z...)
	rz := s.Dot(r, z)

	for iter := 0; iter < iterations; iter++ {
		ap, err := s.A(p)
		if err != nil {
			break
		}
		pap := s.Dot(p, ap)
		if pap == 0 {
			break
		}
		alpha := rz / pap
		for i := range x {
			x[i] += alpha * p[i]
			r[i] -= alpha * ap[i]
		}

		z, err = s.M(r)
		if err != nil {
			break
		}
		rzNew := s.Dot(r, z)
		if rz == 0 {
			break
		}
		beta := rzNew / rz
		for i := range p {
			p[i] = z[i] + beta*p[i]
		}
		rz = rzNew
	}
	return x
}
