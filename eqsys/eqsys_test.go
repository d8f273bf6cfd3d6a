package eqsys_test

import (
	"math"
	"testing"

	"github.com/skyscan/mapmaker/comm"
	"github.com/skyscan/mapmaker/dof"
	"github.com/skyscan/mapmaker/eqsys"
	"github.com/skyscan/mapmaker/signal"
	"github.com/stretchr/testify/require"
)

// broadcastPointing is a deliberately trivial adjoint pair: Forward
// broadcasts each pixel value across every sample of its detector,
// Backward sums each detector's samples back into the pixel. Forward
// and Backward are exact transposes of one another, which is all the
// symmetry test below needs.
type broadcastPointing struct{ ndet, nsamp int }

func (p broadcastPointing) Forward(tod [][]float64, m *signal.MapWork) {
	for d := 0; d < p.ndet; d++ {
		for s := 0; s < p.nsamp; s++ {
			tod[d][s] += m.Data[d]
		}
	}
}

func (p broadcastPointing) Backward(tod [][]float64, m *signal.MapWork) {
	for d := 0; d < p.ndet; d++ {
		for s := 0; s < p.nsamp; s++ {
			m.Data[d] += tod[d][s]
		}
	}
}

type whiteNoise struct{ gain float64 }

func (n whiteNoise) Apply(tod [][]float64) {
	for _, row := range tod {
		for i := range row {
			row[i] *= n.gain
		}
	}
}
func (n whiteNoise) White(tod [][]float64) { n.Apply(tod) }
func (n whiteNoise) Update(tod [][]float64, srate float64) eqsys.NoiseModel { return n }

type fakeScan struct {
	id          string
	ndet, nsamp int
	noise       eqsys.NoiseModel
}

func (s *fakeScan) ID() string       { return s.id }
func (s *fakeScan) NDet() int        { return s.ndet }
func (s *fakeScan) NSamp() int       { return s.nsamp }
func (s *fakeScan) SampleRate() float64 { return 100 }
func (s *fakeScan) Samples() ([][]float64, error) {
	tod := make([][]float64, s.ndet)
	for i := range tod {
		tod[i] = make([]float64, s.nsamp)
	}
	return tod, nil
}
func (s *fakeScan) Noise() eqsys.NoiseModel      { return s.noise }
func (s *fakeScan) SetNoise(n eqsys.NoiseModel)  { s.noise = n }

func buildSystem(t *testing.T) (*eqsys.Eqsys, dof.Layout) {
	t.Helper()
	ndet, nsamp := 3, 10
	c := comm.Self()

	m := signal.NewMap("map", 1, 1, ndet, func(scanID string) signal.Pointing {
		return broadcastPointing{ndet: ndet, nsamp: nsamp}
	}, c)

	scans := []eqsys.Scan{
		&fakeScan{id: "s0", ndet: ndet, nsamp: nsamp, noise: whiteNoise{gain: 2.0}},
	}

	layout := dof.NewLayout(dof.Segment{Name: "map", Kind: dof.Shared, N: ndet})
	sys, err := eqsys.New(scans, []signal.Signal{m}, layout, c)
	require.NoError(t, err)
	return sys, layout
}

func TestASymmetricUnderDot(t *testing.T) {
	sys, _ := buildSystem(t)

	x := []float64{1, 2, 3}
	y := []float64{4, -1, 0.5}

	Ax, err := sys.A(x)
	require.NoError(t, err)
	Ay, err := sys.A(y)
	require.NoError(t, err)

	left := sys.Dot(y, Ax, true)
	right := sys.Dot(x, Ay, true)
	require.InDelta(t, left, right, 1e-9)
}

func TestAPositivity(t *testing.T) {
	sys, _ := buildSystem(t)
	x := []float64{1, -2, 3}

	Ax, err := sys.A(x)
	require.NoError(t, err)
	require.GreaterOrEqual(t, sys.Dot(x, Ax, true), 0.0)
}

func TestCutSignalMustBeFirst(t *testing.T) {
	c := comm.Self()
	layout := dof.NewLayout(
		dof.Segment{Name: "map", Kind: dof.Shared, N: 1},
		dof.Segment{Name: "cut", Kind: dof.Distributed, N: 1},
	)
	m := signal.NewMap("map", 1, 1, 1, func(string) signal.Pointing { return nil }, c)
	cut := signal.NewCut("cut", 1, nil, nil, c)

	_, err := eqsys.New(nil, []signal.Signal{m, cut}, layout, c)
	require.ErrorIs(t, err, eqsys.ErrCutSignalOrder)
}

func TestDotMatchesSumOfSquaresForIdentityB(t *testing.T) {
	sys, _ := buildSystem(t)
	x := []float64{1, 2, 3}
	self := sys.Dot(x, x, true)
	want := 0.0
	for _, v := range x {
		want += v * v
	}
	require.Equal(t, want, self)
	require.False(t, math.IsNaN(self))
}

func TestCosineWindowTapersSymmetrically(t *testing.T) {
	w := eqsys.CosineWindow(2)
	tod := [][]float64{{1, 1, 1, 1, 1, 1}}
	w(nil, tod)

	require.InDelta(t, tod[0][0], tod[0][5], 1e-12)
	require.InDelta(t, tod[0][1], tod[0][4], 1e-12)
	require.Less(t, tod[0][0], tod[0][1])
	require.InDelta(t, 1.0, tod[0][2], 1e-12) // interior untouched
}

func TestWindowAppliedOnBothSidesOfNoise(t *testing.T) {
	sys, _ := buildSystem(t)
	sys.Weights = eqsys.CosineWindow(2)

	x := []float64{1, 2, 3}
	y := []float64{-1, 0.5, 2}
	Ax, err := sys.A(x)
	require.NoError(t, err)
	Ay, err := sys.A(y)
	require.NoError(t, err)
	require.InDelta(t, sys.Dot(y, Ax, true), sys.Dot(x, Ay, true), 1e-9)
}

// meanNoise replaces every detector row with its mean: a projection
// that does not commute with sample windowing, so it pins down where
// the reverse weight pass sits relative to N⁻¹.
type meanNoise struct{}

func (meanNoise) Apply(tod [][]float64) {
	for _, row := range tod {
		m := 0.0
		for _, v := range row {
			m += v
		}
		m /= float64(len(row))
		for i := range row {
			row[i] = m
		}
	}
}
func (meanNoise) White(tod [][]float64)                                  {}
func (meanNoise) Update(tod [][]float64, srate float64) eqsys.NoiseModel { return meanNoise{} }

func TestCalcBBracketsNoiseApplyWithWeights(t *testing.T) {
	ndet, nsamp := 1, 10
	c := comm.Self()

	m := signal.NewMap("map", 1, 1, ndet, func(string) signal.Pointing {
		return broadcastPointing{ndet: ndet, nsamp: nsamp}
	}, c)
	layout := dof.NewLayout(dof.Segment{Name: "map", Kind: dof.Shared, N: ndet})
	sys, err := eqsys.New([]eqsys.Scan{
		&fakeScan{id: "s0", ndet: ndet, nsamp: nsamp, noise: meanNoise{}},
	}, []signal.Signal{m}, layout, c)
	require.NoError(t, err)
	sys.Weights = eqsys.CosineWindow(2)

	d := make([]float64, nsamp)
	for i := range d {
		d[i] = 1
	}
	b, err := sys.CalcB(map[string][][]float64{"s0": {d}})
	require.NoError(t, err)

	// b = Pᵀ w N⁻¹ w d. With a unit TOD, cosine taper weights
	// (0.25, 0.75, 1...1, 0.75, 0.25) summing to 8 and N⁻¹ the
	// row-mean projection, that is (Σw)²/nsamp = 6.4; the reverse
	// weight pass landing before N⁻¹ would give Σw² = 7.25 instead.
	require.InDelta(t, 6.4, b[0], 1e-9)
}

func mapSystem(t *testing.T, configure func(*signal.Map)) *eqsys.Eqsys {
	t.Helper()
	ndet, nsamp := 3, 10
	c := comm.Self()
	m := signal.NewMap("map", 1, 1, ndet, func(string) signal.Pointing {
		return broadcastPointing{ndet: ndet, nsamp: nsamp}
	}, c)
	if configure != nil {
		configure(m)
	}
	layout := dof.NewLayout(dof.Segment{Name: "map", Kind: dof.Shared, N: ndet})
	sys, err := eqsys.New([]eqsys.Scan{
		&fakeScan{id: "s0", ndet: ndet, nsamp: nsamp, noise: whiteNoise{gain: 2.0}},
	}, []signal.Signal{m}, layout, c)
	require.NoError(t, err)
	return sys
}

func TestAPriorAddsNormTerm(t *testing.T) {
	x := []float64{1, -2, 3}

	base, err := mapSystem(t, nil).A(x)
	require.NoError(t, err)
	with, err := mapSystem(t, func(m *signal.Map) {
		m.SetPrior(signal.Norm{Weight: 0.5})
	}).A(x)
	require.NoError(t, err)

	for i := range x {
		require.InDeltaf(t, 0.5*x[i], with[i]-base[i], 1e-9, "entry %d", i)
	}
}

func TestAMaskForcedOnMapSignal(t *testing.T) {
	sys := mapSystem(t, func(m *signal.Map) {
		m.SetMask([]bool{true, false, true})
	})

	// A zeroes the masked entry on output...
	Ax, err := sys.A([]float64{1, 1, 1})
	require.NoError(t, err)
	require.InDelta(t, 0.0, Ax[1], 1e-12)
	require.NotZero(t, Ax[0])

	// ...and a vector supported only on the masked entry maps to zero.
	Ae, err := sys.A([]float64{0, 5, 0})
	require.NoError(t, err)
	for i, v := range Ae {
		require.InDeltaf(t, 0.0, v, 1e-12, "entry %d", i)
	}
}

func TestPostprocessRunsMapPostChain(t *testing.T) {
	sys := mapSystem(t, func(m *signal.Map) {
		m.AddPost(signal.PostAddMap([]float64{10, 20, 30}))
	})

	out, err := sys.Postprocess([]float64{1, 2, 3})
	require.NoError(t, err)
	require.Equal(t, []float64{11, 22, 33}, out)
}
