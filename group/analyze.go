// Package group implements scan grouping by
// direction, disjoint drift-contiguous splitting, and effective-scan
// synthesis with a fused noise model.
package group

import (
	"math"
	"sort"

	"github.com/samber/lo"
)

// Translator maps input-space points through one scan's pointing
// operator into output coordinates, the minimum scan analysis needs.
type Translator interface {
	Translate(points [][]float64) (pixels [][2]float64)
}

// Analysis is one scan's per-scan geometric summary.
type Analysis struct {
	ScanID         string
	IVec0, IVec1   []float64 // input-space step vectors
	IBoxLo, IBoxHi []float64 // input bounding box
	OVec0, OVec1   []float64 // output-space counterparts
	OBoxLo, OBoxHi []float64 // output bounding box
}

// AnalyzeScan finds the scan axis as the boresight axis with the
// shortest estimated period (fastest sign-change rate of the
// derivative), builds ivec0 (scan direction, span/(period/2)) and
// ivec1 (drift direction, span/nsamp), and translates both plus the
// input bounding box through the pointing operator.
func AnalyzeScan(scanID string, boresight [][]float64, t Translator) Analysis {
	naxis := len(boresight[0])
	nsamp := len(boresight)

	scanAxis, period := findScanAxis(boresight)

	ibox := boundingBox(boresight)

	ivec0 := make([]float64, naxis)
	ivec1 := make([]float64, naxis)
	for a := 0; a < naxis; a++ {
		span := ibox.Hi[a] - ibox.Lo[a]
		if a == scanAxis {
			if period > 0 {
				ivec0[a] = span / (period / 2)
			}
		} else {
			ivec1[a] = span / float64(nsamp)
		}
	}

	points := [][]float64{ivec0, ivec1, ibox.Lo, ibox.Hi}
	pixels := t.Translate(points)

	obox := Box{Lo: make([]float64, 2), Hi: make([]float64, 2)}
	for a := 0; a < 2; a++ {
		obox.Lo[a] = math.Min(pixels[2][a], pixels[3][a])
		obox.Hi[a] = math.Max(pixels[2][a], pixels[3][a])
	}

	return Analysis{
		ScanID: scanID,
		IVec0:  ivec0, IVec1: ivec1,
		IBoxLo: ibox.Lo, IBoxHi: ibox.Hi,
		OVec0:  []float64{pixels[0][0], pixels[0][1]},
		OVec1:  []float64{pixels[1][0], pixels[1][1]},
		OBoxLo: obox.Lo, OBoxHi: obox.Hi,
	}
}

// Box is an axis-aligned bounding box.
type Box struct{ Lo, Hi []float64 }

func boundingBox(samples [][]float64) Box {
	naxis := len(samples[0])
	lo := make([]float64, naxis)
	hi := make([]float64, naxis)
	for a := 0; a < naxis; a++ {
		lo[a], hi[a] = math.Inf(1), math.Inf(-1)
	}
	for _, s := range samples {
		for a, v := range s {
			if v < lo[a] {
				lo[a] = v
			}
			if v > hi[a] {
				hi[a] = v
			}
		}
	}
	return Box{Lo: lo, Hi: hi}
}

// findScanAxis returns the axis with the fastest sign-change rate of
// its derivative (shortest estimated period) and that axis's
// estimated period in samples.
func findScanAxis(boresight [][]float64) (axis int, period float64) {
	naxis := len(boresight[0])
	bestAxis := 0
	bestRate := -1.0
	bestPeriod := float64(len(boresight))

	for a := 0; a < naxis; a++ {
		signChanges := 0
		for i := 1; i < len(boresight); i++ {
			d1 := boresight[i][a] - boresight[i-1][a]
			if i < 2 {
				continue
			}
			d0 := boresight[i-1][a] - boresight[i-2][a]
			if (d0 > 0) != (d1 > 0) && d0 != 0 && d1 != 0 {
				signChanges++
			}
		}
		rate := float64(signChanges) / float64(len(boresight))
		if rate > bestRate {
			bestRate = rate
			bestAxis = a
			if signChanges > 0 {
				bestPeriod = 2 * float64(len(boresight)) / float64(signChanges)
			}
		}
	}
	return bestAxis, bestPeriod
}

// GroupScansByDirection groups compatible scan directions by greedy
// peel, admitting a candidate into the current group iff its ovec
// matches within vectol (componentwise, relative to ||ovec||) and its
// bounding-box offset along the scan axis (expressed in the
// (ovec0,ovec1) basis) is within postol of the box span. The drift
// component is unconstrained.
func GroupScansByDirection(analyses []Analysis, vectol, postol float64) [][]Analysis {
	remaining := append([]Analysis(nil), analyses...)
	var groups [][]Analysis

	for len(remaining) > 0 {
		me := remaining[0]
		remaining = remaining[1:]
		grp := []Analysis{me}

		var rest []Analysis
		for _, cand := range remaining {
			if admits(me, cand, vectol, postol) {
				grp = append(grp, cand)
			} else {
				rest = append(rest, cand)
			}
		}
		remaining = rest
		groups = append(groups, grp)
	}
	return groups
}

func admits(me, cand Analysis, vectol, postol float64) bool {
	if !vecClose(me.OVec0, cand.OVec0, vectol) {
		return false
	}
	if !vecClose(me.OVec1, cand.OVec1, vectol) {
		return false
	}

	span := l2(sub(me.OBoxHi, me.OBoxLo))
	offset := sub(cand.OBoxLo, me.OBoxLo)
	scanComp := project(offset, me.OVec0)
	return math.Abs(scanComp) <= postol*span
}

func vecClose(a, b []float64, tol float64) bool {
	na := l2(a)
	if na == 0 {
		return l2(sub(a, b)) <= tol
	}
	return l2(sub(a, b)) <= tol*na
}

func sub(a, b []float64) []float64 {
	out := make([]float64, len(a))
	for i := range a {
		out[i] = a[i] - b[i]
	}
	return out
}

func l2(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func project(v, onto []float64) float64 {
	n := l2(onto)
	if n == 0 {
		return 0
	}
	dot := 0.0
	for i := range v {
		dot += v[i] * onto[i]
	}
	return dot / n
}

// SplitDisjointScanGroups splits a group into drift-contiguous runs:
// within a group, sort by drift-direction start and walk in order,
// starting a new subgroup whenever a member's start exceeds the
// running maximum end.
func SplitDisjointScanGroups(grp []Analysis) [][]Analysis {
	if len(grp) == 0 {
		return nil
	}
	sorted := append([]Analysis(nil), grp...)
	sort.Slice(sorted, func(i, j int) bool {
		return driftStart(sorted[i]) < driftStart(sorted[j])
	})

	var subgroups [][]Analysis
	cur := []Analysis{sorted[0]}
	runningMax := driftEnd(sorted[0])

	for _, a := range sorted[1:] {
		start := driftStart(a)
		if start > runningMax {
			subgroups = append(subgroups, cur)
			cur = nil
		}
		cur = append(cur, a)
		if end := driftEnd(a); end > runningMax {
			runningMax = end
		}
	}
	subgroups = append(subgroups, cur)
	return subgroups
}

func driftStart(a Analysis) float64 { return project(a.OBoxLo, a.OVec1) }
func driftEnd(a Analysis) float64   { return project(a.OBoxHi, a.OVec1) }

// ScanAxes groups analyses by approximate ovec0 direction, a thin
// convenience over GroupScansByDirection used by callers that already
// have a fixed vectol/postol in a config struct.
func ScanAxes(analyses []Analysis, vectol, postol float64) [][]Analysis {
	groups := GroupScansByDirection(analyses, vectol, postol)
	return lo.Filter(groups, func(g []Analysis, _ int) bool { return len(g) > 0 })
}
