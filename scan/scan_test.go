package scan_test

import (
	"testing"
	"time"

	"github.com/skyscan/mapmaker/scan"
	"github.com/skyscan/mapmaker/signal"
	"github.com/stretchr/testify/require"
)

func TestGridPointingForwardBackwardAdjointOnPoint(t *testing.T) {
	boresight := [][2]float64{{2, 2}, {2, 2}}
	offsets := [][2]float64{{0, 0}}
	s := scan.NewScan("s0", boresight, offsets, 100, time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC), scan.NewWhiteNoise([]float64{1}))
	p := scan.NewGridPointing(s, 1, 5, 5)

	m := signal.NewMapWork(1, 5, 5)
	m.Add(0, 2, 2, 3)

	tod := [][]float64{{0, 0}}
	p.Forward(tod, m)
	require.InDelta(t, 3.0, tod[0][0], 1e-9)
	require.InDelta(t, 3.0, tod[0][1], 1e-9)

	back := signal.NewMapWork(1, 5, 5)
	p.Backward(tod, back)
	require.InDelta(t, 6.0, back.At(0, 2, 2), 1e-9)
}

func TestWhiteNoiseUpdateRefitsVariance(t *testing.T) {
	n := scan.NewWhiteNoise([]float64{1})
	tod := [][]float64{{1, 3, 5}}
	refit := n.Update(tod, 100)
	wn, ok := refit.(*scan.WhiteNoise)
	require.True(t, ok)
	require.InDelta(t, 8.0/3, wn.Variance[0], 1e-9)
}

func TestBuildTriangleWaveStaysWithinPeriod(t *testing.T) {
	track := scan.BuildTriangleWave([]float64{0, 0}, []float64{1, 0}, []float64{0, 0.1}, 10)
	require.Len(t, track, 10)
	for _, p := range track {
		require.GreaterOrEqual(t, p[0], -1e-9)
		require.LessOrEqual(t, p[0], 1+1e-9)
	}
}
