package rangelist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skyscan/mapmaker/rangelist"
)

func TestMaskRoundTrip(t *testing.T) {
	mask := []bool{false, true, true, false, true, false, false, true, true, true}
	r := rangelist.FromMask(mask)
	assert.Equal(t, mask, r.ToMask())
	assert.Equal(t, 6, r.Sum())
}

func TestEmptyMask(t *testing.T) {
	mask := make([]bool, 8)
	r := rangelist.FromMask(mask)
	assert.Equal(t, mask, r.ToMask())
	assert.Equal(t, 0, r.Sum())
	assert.Empty(t, r.Ranges)
}

func TestInvertIsInvolution(t *testing.T) {
	mask := []bool{true, true, false, false, true, false, true, true, true, false}
	r := rangelist.FromMask(mask)
	inv := r.Invert()
	assert.Equal(t, r.ToMask(), inv.Invert().ToMask())
	assert.Equal(t, r.N, r.Sum()+inv.Sum())
}

func TestSlicePositiveStepMatchesDenseSlice(t *testing.T) {
	mask := []bool{false, true, true, true, false, false, true, false, true, true, true, false}
	r := rangelist.FromMask(mask)

	cases := []struct{ start, stop, step int }{
		{0, 12, 1},
		{2, 9, 1},
		{0, 12, 2},
		{1, 11, 3},
	}
	for _, c := range cases {
		sliced, err := r.Slice(c.start, c.stop, c.step)
		require.NoError(t, err)
		want := denseSlice(mask, c.start, c.stop, c.step)
		assert.Equalf(t, want, sliced.ToMask(), "slice(%d,%d,%d)", c.start, c.stop, c.step)
	}
}

func TestSliceNegativeStepMatchesDenseSlice(t *testing.T) {
	mask := []bool{false, true, true, true, false, false, true, false, true, true, true, false}
	r := rangelist.FromMask(mask)

	cases := []struct{ start, stop, step int }{
		{11, -1, -1},
		{9, 1, -2},
	}
	for _, c := range cases {
		sliced, err := r.Slice(c.start, c.stop, c.step)
		require.NoError(t, err)
		want := denseSlice(mask, c.start, c.stop, c.step)
		assert.Equalf(t, want, sliced.ToMask(), "slice(%d,%d,%d)", c.start, c.stop, c.step)
	}
}

func TestAtMatchesMask(t *testing.T) {
	mask := []bool{false, true, true, false, true}
	r := rangelist.FromMask(mask)
	for i, want := range mask {
		assert.Equal(t, want, r.At(i), "index %d", i)
	}
}

func TestMultirangeInvariants(t *testing.T) {
	masks := [][]bool{
		{true, false, true, true},
		{false, false, false, true},
	}
	var lists []rangelist.Rangelist
	for _, m := range masks {
		lists = append(lists, rangelist.FromMask(m))
	}
	mr := rangelist.NewMultirange(lists)
	assert.Equal(t, masks, mr.ToMask())
	assert.Equal(t, 4, mr.Sum())

	inv := mr.Invert()
	for i := range masks {
		assert.Equal(t, mr.Data[i].N, mr.Data[i].Sum()+inv.Data[i].Sum())
	}
}

// denseSlice is a reference implementation of strided (optionally
// negative-step) slicing over a dense bool slice, used as the oracle
// for Rangelist.Slice.
func denseSlice(mask []bool, start, stop, step int) []bool {
	n := len(mask)
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	var out []bool
	if step > 0 {
		for i := start; i < stop; i += step {
			out = append(out, mask[i])
		}
	} else {
		for i := start; i > stop; i += step {
			out = append(out, mask[i])
		}
	}
	if out == nil {
		out = []bool{}
	}
	return out
}

func TestUnionMergesOverlaps(t *testing.T) {
	a := rangelist.FromMask([]bool{true, true, false, false, true, false})
	b := rangelist.FromMask([]bool{false, true, true, false, false, false})

	u := rangelist.Union(a, b)
	assert.Equal(t, []bool{true, true, true, false, true, false}, u.ToMask())
	assert.Equal(t, 4, u.Sum())
}
