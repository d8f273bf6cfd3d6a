package linalg_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skyscan/mapmaker/linalg"
)

func TestSVDPowInvertsWellConditionedBlock(t *testing.T) {
	b := linalg.NewBlockField(2, 1, 1)
	b.Set(0, 0, 0, 0, 4)
	b.Set(1, 1, 0, 0, 2)

	inv := linalg.SVDPow(b, -1, 1e-6)
	require.InDelta(t, 0.25, inv.At(0, 0, 0, 0), 1e-12)
	require.InDelta(t, 0.5, inv.At(1, 1, 0, 0), 1e-12)
	require.InDelta(t, 0.0, inv.At(0, 1, 0, 0), 1e-12)
}

func TestSVDPowMasksSingularDirection(t *testing.T) {
	b := linalg.NewBlockField(2, 1, 1)
	b.Set(0, 0, 0, 0, 1)
	b.Set(1, 1, 0, 0, 1e-12)

	inv := linalg.SVDPow(b, -1, 1e-6)
	require.InDelta(t, 1.0, inv.At(0, 0, 0, 0), 1e-9)
	require.InDelta(t, 0.0, inv.At(1, 1, 0, 0), 1e-9)
}

func TestEigPowHalfPowerSquaresBack(t *testing.T) {
	b := linalg.NewBlockField(2, 1, 1)
	b.Set(0, 0, 0, 0, 9)
	b.Set(1, 1, 0, 0, 16)

	root := linalg.EigPow(b, 0.5, 1e-9)
	sq := linalg.MatMul(root, root)
	require.InDelta(t, 9.0, sq.At(0, 0, 0, 0), 1e-9)
	require.InDelta(t, 16.0, sq.At(1, 1, 0, 0), 1e-9)
}

func TestConditionNumberMulti(t *testing.T) {
	b := linalg.NewBlockField(2, 1, 2)
	b.Set(0, 0, 0, 0, 2)
	b.Set(1, 1, 0, 0, 1)
	b.Set(0, 0, 0, 1, 1)
	b.Set(1, 1, 0, 1, 1e-6)

	cond := linalg.ConditionNumberMulti(b)
	require.InDelta(t, 2.0, cond[0], 1e-9)
	require.InDelta(t, 1e6, cond[1], 1)
}

func TestSolveMaskedSolvesDiagonalSystem(t *testing.T) {
	a := linalg.NewBlockField(2, 1, 1)
	a.Set(0, 0, 0, 0, 2)
	a.Set(1, 1, 0, 0, 4)

	out := linalg.SolveMasked(a, []float64{6, 8}, 1e-9)
	require.InDelta(t, 3.0, out[0], 1e-12)
	require.InDelta(t, 2.0, out[1], 1e-12)
}

func TestFFT2RealRoundTrip(t *testing.T) {
	ny, nx := 4, 6
	plane := make([]float64, ny*nx)
	for i := range plane {
		plane[i] = math.Sin(float64(i)) + 0.3*float64(i%5)
	}

	re, im, nxHalf := linalg.FFT2Real(plane, ny, nx)
	back := linalg.IFFT2Real(re, im, ny, nx, nxHalf)

	scale := float64(ny * nx)
	for i := range plane {
		require.InDeltaf(t, plane[i], back[i]/scale, 1e-10, "pixel %d", i)
	}
}

func TestChebyshevFitRecoversSamples(t *testing.T) {
	// Samples of a cubic at the Chebyshev nodes are reproduced
	// exactly by a degree-3 fit.
	n := 8
	y := make([]float64, n)
	xs := make([]float64, n)
	for j := 0; j < n; j++ {
		x := math.Cos(math.Pi * (float64(j) + 0.5) / float64(n))
		xs[j] = x
		y[j] = 1 + 2*x - x*x + 0.5*x*x*x
	}
	coeffs := linalg.ChebyshevFit(y, 3)
	for j, x := range xs {
		require.InDeltaf(t, y[j], linalg.ChebyshevEval(coeffs, x), 1e-9, "node %d", j)
	}
}
