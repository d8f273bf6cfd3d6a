package solver_test

import (
	"testing"

	"github.com/skyscan/mapmaker/solver"
	"github.com/stretchr/testify/require"
)

// diagSystem is Ax = diag*x, a trivial symmetric positive-definite
// system with an exact Jacobi preconditioner, enough to exercise
// convergence without a full Eqsys fixture.
type diagSystem struct {
	diag []float64
	b    []float64
}

func (s diagSystem) A(x []float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = s.diag[i] * x[i]
	}
	return out, nil
}

func (s diagSystem) B() []float64 { return s.b }

func (s diagSystem) M(x []float64) ([]float64, error) {
	out := make([]float64, len(x))
	for i := range x {
		out[i] = x[i] / s.diag[i]
	}
	return out, nil
}

func (s diagSystem) Dot(a, b []float64) float64 {
	sum := 0.0
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func TestSolveConvergesOnDiagonalSystem(t *testing.T) {
	sys := diagSystem{diag: []float64{2, 4, 8}, b: []float64{2, 4, 8}}
	res, err := solver.Solve(sys, solver.Options{MaxIter: 10, Tolerance: 1e-10})
	require.NoError(t, err)
	require.True(t, res.Converged)
	require.InDelta(t, 1.0, res.X[0], 1e-6)
	require.InDelta(t, 1.0, res.X[1], 1e-6)
	require.InDelta(t, 1.0, res.X[2], 1e-6)
}

func TestSolveInvokesCallbackEachIteration(t *testing.T) {
	sys := diagSystem{diag: []float64{1, 1}, b: []float64{3, 5}}
	calls := 0
	_, err := solver.Solve(sys, solver.Options{MaxIter: 5, Tolerance: 1e-12, Callback: func(iter int, x []float64, r float64) {
		calls++
	}})
	require.NoError(t, err)
	require.GreaterOrEqual(t, calls, 1)
}
