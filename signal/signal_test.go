package signal_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/skyscan/mapmaker/comm"
	"github.com/skyscan/mapmaker/signal"
)

// sliceCutPointing treats the whole first detector row as cut.
type sliceCutPointing struct{ nsamp int }

func (p sliceCutPointing) NJunk() int { return p.nsamp }

func (p sliceCutPointing) Forward(tod [][]float64, junk []float64) {
	copy(tod[0], junk)
}

func (p sliceCutPointing) Backward(tod [][]float64, junk []float64) {
	for s, v := range tod[0] {
		junk[s] += v
		tod[0][s] = 0
	}
}

func TestCutForwardOverwritesAndBackwardZeroes(t *testing.T) {
	c := comm.Self()
	nsamp := 4
	cut := signal.NewCut("cut", nsamp,
		map[string]signal.CutRange{"s0": {Lo: 0, Hi: nsamp}},
		func(string) signal.CutPointing { return sliceCutPointing{nsamp: nsamp} }, c)

	w := cut.Prepare([]float64{1, 2, 3, 4})
	tod := [][]float64{{9, 9, 9, 9}, {7, 7, 7, 7}}
	cut.Forward("s0", tod, w)
	require.Equal(t, []float64{1, 2, 3, 4}, tod[0])
	require.Equal(t, []float64{7, 7, 7, 7}, tod[1])

	out := cut.Work()
	cut.Backward("s0", tod, out)
	require.Equal(t, []float64{0, 0, 0, 0}, tod[0])

	x := cut.Zeros()
	cut.Finish(x, out)
	require.Equal(t, []float64{1, 2, 3, 4}, x)
}

func TestCutIgnoresUnknownScan(t *testing.T) {
	c := comm.Self()
	cut := signal.NewCut("cut", 2, map[string]signal.CutRange{},
		func(string) signal.CutPointing { return sliceCutPointing{nsamp: 2} }, c)

	w := cut.Work()
	tod := [][]float64{{5, 5}}
	cut.Forward("elsewhere", tod, w)
	require.Equal(t, []float64{5, 5}, tod[0])
}

type onePixelPointing struct{}

func (onePixelPointing) Forward(tod [][]float64, m *signal.MapWork) {
	for d := range tod {
		for s := range tod[d] {
			tod[d][s] += m.At(0, 0, 0)
		}
	}
}

func (onePixelPointing) Backward(tod [][]float64, m *signal.MapWork) {
	for d := range tod {
		for s := range tod[d] {
			m.Add(0, 0, 0, tod[d][s])
		}
	}
}

func TestMapPrepareFinishRoundTrip(t *testing.T) {
	c := comm.Self()
	m := signal.NewMap("map", 1, 1, 1, func(string) signal.Pointing { return onePixelPointing{} }, c)

	w := m.Prepare([]float64{2})
	tod := [][]float64{{0, 0, 0}}
	m.Forward("s0", tod, w)
	require.Equal(t, []float64{2, 2, 2}, tod[0])

	out := m.Work()
	m.Backward("s0", tod, out)
	x := m.Zeros()
	m.Finish(x, out)
	require.Equal(t, []float64{6}, x)
}

func TestMapFastRequiresPrecompute(t *testing.T) {
	c := comm.Self()
	m := signal.NewMapFast(signal.NewMap("map", 1, 1, 1, func(string) signal.Pointing { return onePixelPointing{} }, c))

	require.Panics(t, func() {
		m.Forward("s0", [][]float64{{0}}, m.Work())
	})

	m.Precompute("s0")
	require.NotPanics(t, func() {
		m.Forward("s0", [][]float64{{0}}, m.Prepare([]float64{1}))
	})
	m.Free()
}

type fixedPhasePointing struct {
	pattern int
	res     int
}

func (p fixedPhasePointing) Pattern() int { return p.pattern }

func (p fixedPhasePointing) Forward(tod [][]float64, grid []float64) {
	for d := range tod {
		for s := range tod[d] {
			tod[d][s] += grid[d*p.res+s%p.res]
		}
	}
}

func (p fixedPhasePointing) Backward(tod [][]float64, grid []float64) {
	for d := range tod {
		for s := range tod[d] {
			grid[d*p.res+s%p.res] += tod[d][s]
		}
	}
}

func TestPhaseLayoutIsStableAcrossCalls(t *testing.T) {
	c := comm.Self()
	patterns := map[int]int{0: 2, 1: 2}
	ph := signal.NewPhase("phase", 2, 3, false, patterns,
		func(string) signal.PhasePointing { return fixedPhasePointing{pattern: 1, res: 3} }, c)

	x := ph.Zeros()
	require.Len(t, x, 2*2*3)
	for i := range x {
		x[i] = float64(i)
	}

	w := ph.Prepare(x)
	out := ph.Zeros()
	ph.Finish(out, w)
	require.Equal(t, x, out)
}

func TestNohorSpreadsWeightedRowSum(t *testing.T) {
	p := signal.Nohor{Ncomp: 1, Ny: 2, Nx: 2, Weight: []float64{1, 1, 2, 0}}
	// Row 0: sum = 1*1 + 3*1 = 4, spread by weight (1,1).
	// Row 1: sum = 5*2 + 7*0 = 10, spread by weight (2,0).
	out := p.Apply([]float64{1, 3, 5, 7})
	require.Equal(t, []float64{4, 4, 20, 0}, out)
}

type compsScan struct {
	id          string
	ndet, nsamp int
	comps       [][]float64
}

func (s *compsScan) ID() string                 { return s.id }
func (s *compsScan) NDet() int                  { return s.ndet }
func (s *compsScan) NSamp() int                 { return s.nsamp }
func (s *compsScan) Comps() [][]float64         { return s.comps }
func (s *compsScan) SetComps(c [][]float64)     { s.comps = c }

func TestCalcCrosslinkMapRestoresComps(t *testing.T) {
	c := comm.Self()
	m := signal.NewMap("map", 1, 1, 1, func(string) signal.Pointing { return onePixelPointing{} }, c)

	original := [][]float64{{1, 0}}
	sc := &compsScan{id: "s0", ndet: 1, nsamp: 4, comps: original}

	crosslink := [][]float64{{0, 1}}
	out := signal.CalcCrosslinkMap(m, []signal.CrosslinkScan{sc}, crosslink)

	// One detector, four unit samples, all landing on the single pixel.
	require.Equal(t, []float64{4}, out)
	// The swap is restored after accumulation.
	require.Equal(t, original, sc.Comps())
}
