package comm_test

import (
	"testing"

	"github.com/skyscan/mapmaker/comm"
	"github.com/stretchr/testify/require"
)

func TestParallelSumsPerRankResults(t *testing.T) {
	w := comm.NewWorld(4)
	defer w.Stop()

	sum := w.Parallel(func(rank int) []float64 {
		return []float64{float64(rank), 1}
	})

	require.Equal(t, []float64{0 + 1 + 2 + 3, 4}, sum)
}

func TestSelfIsSingleRank(t *testing.T) {
	c := comm.Self()
	require.Equal(t, 1, c.Size())
	require.Equal(t, 5.0, c.AllreduceSum(5.0))
}
