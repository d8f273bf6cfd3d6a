package group_test

import (
	"math"
	"testing"

	"github.com/skyscan/mapmaker/group"
	"github.com/stretchr/testify/require"
)

type identityTranslator struct{}

func (identityTranslator) Translate(points [][]float64) [][2]float64 {
	out := make([][2]float64, len(points))
	for i, p := range points {
		out[i] = [2]float64{p[0], p[1]}
	}
	return out
}

func sawtoothBoresight(n int, period float64, driftStep float64) [][]float64 {
	out := make([][]float64, n)
	for i := 0; i < n; i++ {
		phase := math.Mod(float64(i), period)
		if phase > period/2 {
			phase = period - phase
		}
		out[i] = []float64{phase, float64(i) * driftStep}
	}
	return out
}

func TestAnalyzeScanFindsScanAxis(t *testing.T) {
	bs := sawtoothBoresight(200, 20, 0.01)
	a := group.AnalyzeScan("scanA", bs, identityTranslator{})
	require.Equal(t, "scanA", a.ScanID)
	require.NotZero(t, a.IVec0[0])
}

func TestGroupScansByDirectionSeparatesDistinctVectors(t *testing.T) {
	a := group.Analysis{ScanID: "a", OVec0: []float64{1, 0}, OVec1: []float64{0, 1}, OBoxLo: []float64{0, 0}, OBoxHi: []float64{10, 10}}
	b := group.Analysis{ScanID: "b", OVec0: []float64{1, 0}, OVec1: []float64{0, 1}, OBoxLo: []float64{0, 0}, OBoxHi: []float64{10, 10}}
	c := group.Analysis{ScanID: "c", OVec0: []float64{0, 1}, OVec1: []float64{1, 0}, OBoxLo: []float64{0, 0}, OBoxHi: []float64{10, 10}}

	groups := group.GroupScansByDirection([]group.Analysis{a, b, c}, 0.01, 0.1)
	require.Len(t, groups, 2)
}

func TestSplitDisjointScanGroupsSeparatesNonOverlapping(t *testing.T) {
	near := func(id string, lo, hi float64) group.Analysis {
		return group.Analysis{ScanID: id, OVec1: []float64{0, 1}, OBoxLo: []float64{0, lo}, OBoxHi: []float64{10, hi}}
	}
	grp := []group.Analysis{near("a", 0, 5), near("b", 3, 8), near("c", 20, 25)}
	subs := group.SplitDisjointScanGroups(grp)
	require.Len(t, subs, 2)
}

func TestBuildEffectiveNoiseModelSumsPrecision(t *testing.T) {
	es := group.EffectiveScan{Ny: 1, Nx: 2}
	members := []group.MemberVariance{
		{ScanID: "a", Variance: []float64{1, 1}, Hits: []int{0, 1}},
		{ScanID: "b", Variance: []float64{1}, Hits: []int{0}},
	}
	out := group.BuildEffectiveNoiseModel(es, members)
	require.InDelta(t, 2.0, out.NoiseDiag[0], 1e-9)
	require.InDelta(t, 1.0, out.NoiseDiag[1], 1e-9)
}

func TestSynthesizeScanCoversDriftRange(t *testing.T) {
	mk := func(id string, drift float64) group.Analysis {
		return group.Analysis{
			ScanID: id,
			IVec0:  []float64{1, 0}, IVec1: []float64{0, 0.1},
			IBoxLo: []float64{0, drift}, IBoxHi: []float64{10, drift + 1},
			OVec0: []float64{1, 0}, OVec1: []float64{0, 0.1},
			OBoxLo: []float64{0, drift}, OBoxHi: []float64{10, drift + 1},
		}
	}
	grp := []group.Analysis{mk("a", 0), mk("b", 1), mk("c", 2)}

	syn := group.SynthesizeScan(grp, 1, 2)
	require.Equal(t, []string{"a", "b", "c"}, syn.ScanIDs)
	require.InDelta(t, 0.0, syn.IBoxLo[1], 1e-9)
	require.InDelta(t, 3.0, syn.IBoxHi[1], 1e-9)
	require.NotEmpty(t, syn.Boresight)

	// Every boresight sample stays inside the input box along the
	// scan axis.
	for _, p := range syn.Boresight {
		require.GreaterOrEqual(t, p[0], syn.IBoxLo[0]-1e-9)
		require.LessOrEqual(t, p[0], syn.IBoxHi[0]+1e-9)
	}
}

func TestSixScansFormTwoGroups(t *testing.T) {
	fwd := func(id string, drift float64) group.Analysis {
		return group.Analysis{
			ScanID: id,
			OVec0:  []float64{1, 0}, OVec1: []float64{0, 1},
			OBoxLo: []float64{0, drift}, OBoxHi: []float64{10, drift + 1},
		}
	}
	rev := func(id string, drift float64) group.Analysis {
		return group.Analysis{
			ScanID: id,
			OVec0:  []float64{-1, 0}, OVec1: []float64{0, 1},
			OBoxLo: []float64{0, drift}, OBoxHi: []float64{10, drift + 1},
		}
	}
	all := []group.Analysis{
		fwd("f0", 0), fwd("f1", 1), fwd("f2", 2),
		rev("r0", 0), rev("r1", 1), rev("r2", 2),
	}

	groups := group.GroupScansByDirection(all, 0.1, 0.1)
	require.Len(t, groups, 2)

	seen := map[string]int{}
	for _, g := range groups {
		for _, a := range g {
			seen[a.ScanID]++
		}
	}
	require.Len(t, seen, 6)
	for id, n := range seen {
		require.Equalf(t, 1, n, "scan %s grouped %d times", id, n)
	}

	subs := group.SplitDisjointScanGroups(groups[0])
	require.Len(t, subs, 1)
}

func TestFuseNoiseModelsCollapsesAndAccumulates(t *testing.T) {
	member := group.MemberNoise{
		Bins:  [][2]float64{{0, 1}, {1, 2}},
		ICovs: [][][]float64{{{2, 0}, {0, 2}}, {{4, 0}, {0, 4}}},
		Comps: [][]float64{{1}, {1}},
	}
	fused := group.FuseNoiseModels([]group.MemberNoise{member, member}, 1, 2)

	require.Len(t, fused.Bins, 2)
	// compsᵀ·icov·comps sums both detectors: bin 0 gives 4 per
	// member, 8 across the pair.
	require.InDelta(t, 8.0, fused.ICovs[0][0][0], 1e-9)
	// Last bin's upper edge widened by the oversampling factor.
	require.InDelta(t, 4.0, fused.Bins[1][1], 1e-9)
}
