package dof_test

import (
	"testing"

	"github.com/skyscan/mapmaker/dof"
	"github.com/stretchr/testify/require"
)

func testLayout() dof.Layout {
	return dof.NewLayout(
		dof.Segment{Name: "map", Kind: dof.Shared, N: 3},
		dof.Segment{Name: "junk", Kind: dof.Distributed, N: 2},
	)
}

func TestZipUnzipRoundTrip(t *testing.T) {
	l := testLayout()
	parts := map[string][]float64{
		"map":  {1, 2, 3},
		"junk": {4, 5},
	}
	flat := dof.Zip(l, parts)
	require.Equal(t, []float64{1, 2, 3, 4, 5}, flat)

	got, err := dof.Unzip(l, flat)
	require.NoError(t, err)
	require.Equal(t, parts["map"], got["map"])
	require.Equal(t, parts["junk"], got["junk"])
}

func TestUnzipSizeMismatch(t *testing.T) {
	l := testLayout()
	_, err := dof.Unzip(l, []float64{1, 2, 3})
	require.ErrorIs(t, err, dof.ErrSizeMismatch)
}

func TestDotSharedCountedOnceAcrossRanks(t *testing.T) {
	l := testLayout()
	a := []float64{1, 2, 3, 10, 20}
	b := []float64{1, 1, 1, 1, 1}

	identity := func(v float64) float64 { return v }
	owner := dof.Dot(l, a, b, true, identity)
	nonOwner := dof.Dot(l, a, b, false, identity)

	require.Equal(t, 6.0+30.0, owner)  // shared (1+2+3) + distributed (10+20)
	require.Equal(t, 0.0+30.0, nonOwner)
}
