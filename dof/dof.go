// Package dof packs and unpacks the heterogeneous collection of
// shared and distributed arrays a LinearSystemMap solves for into one
// flat vector, and defines the inner product the solver uses.
package dof

import "github.com/samber/lo"

// Kind distinguishes a segment that is logically replicated across
// every rank (Shared) from one that is rank-local and never mirrored
// (Distributed).
type Kind int

const (
	Shared Kind = iota
	Distributed
)

// Segment describes one named slot of the flat vector: its kind and
// length on this rank.
type Segment struct {
	Name string
	Kind Kind
	N    int
}

// Layout is the fixed ordering of segments built once per level and
// shared by every zip/unzip/dot call against vectors of that level.
type Layout struct {
	Segments []Segment
}

// NewLayout builds a Layout from an ordered segment list.
func NewLayout(segments ...Segment) Layout {
	return Layout{Segments: append([]Segment(nil), segments...)}
}

// Size is the total flat length on this rank.
func (l Layout) Size() int {
	return lo.Reduce(l.Segments, func(acc int, s Segment, _ int) int {
		return acc + s.N
	}, 0)
}

// Zip concatenates named parts into one flat vector, in layout order.
// parts must contain exactly the layout's segment names.
func Zip(l Layout, parts map[string][]float64) []float64 {
	out := make([]float64, 0, l.Size())
	for _, seg := range l.Segments {
		out = append(out, parts[seg.Name]...)
	}
	return out
}

// Unzip splits a flat vector back into named parts per the layout.
func Unzip(l Layout, flat []float64) (map[string][]float64, error) {
	if len(flat) != l.Size() {
		return nil, ErrSizeMismatch
	}
	parts := make(map[string][]float64, len(l.Segments))
	off := 0
	for _, seg := range l.Segments {
		parts[seg.Name] = flat[off : off+seg.N]
		off += seg.N
	}
	return parts, nil
}

// Dot computes sum(a*b). Shared segments are logically replicated
// identically on every rank, so only the owning rank's (isOwner)
// contribution is allreduced — every other rank contributes zero for
// that segment — while Distributed segments are summed locally on
// every rank without any collective, matching DOF.dot's
// shared-vs-distributed reduction semantics.
func Dot(l Layout, a, b []float64, isOwner bool, allreduceSum func(float64) float64) float64 {
	off := 0
	sharedPartial := 0.0
	localTotal := 0.0
	for _, seg := range l.Segments {
		partial := 0.0
		for i := off; i < off+seg.N; i++ {
			partial += a[i] * b[i]
		}
		off += seg.N
		if seg.Kind == Shared {
			if isOwner {
				sharedPartial += partial
			}
		} else {
			localTotal += partial
		}
	}
	return localTotal + allreduceSum(sharedPartial)
}
