package group

import (
	"math"
	"sort"
)

// SyntheticScan is one idealized "super-scan" standing in for a whole
// disjoint scan group: a triangle-wave boresight covering the group's
// total input bounding box, one synthetic detector per map component
// with unit-basis response, zero offsets and no cuts.
type SyntheticScan struct {
	ScanIDs        []string
	Boresight      [][]float64 // [nsamp][naxis]
	IBoxLo, IBoxHi []float64
	IVec0, IVec1   []float64
	OVec0, OVec1   []float64
	Period         float64 // samples per half scan sweep
	NComp          int
	Comps          [][]float64 // [ncomp][ncomp] identity
}

// SynthesizeScan collapses a disjoint group into one synthetic scan.
// The group's total output box is translated back into input
// coordinates by expressing each corner's offset from the reference
// member in the (ovec0, ovec1) basis and reapplying it along
// (ivec0, ivec1). Step vectors are then divided by the oversampling
// factor and a triangle-wave boresight is laid over the resulting
// input box.
func SynthesizeScan(grp []Analysis, ncomp, oversample int) SyntheticScan {
	if oversample <= 0 {
		oversample = 1
	}
	ref := grp[0]

	olo := append([]float64(nil), ref.OBoxLo...)
	ohi := append([]float64(nil), ref.OBoxHi...)
	for _, a := range grp[1:] {
		for i := range olo {
			olo[i] = math.Min(olo[i], a.OBoxLo[i])
			ohi[i] = math.Max(ohi[i], a.OBoxHi[i])
		}
	}

	// Corner offsets from the reference, in scan/drift coordinates.
	aLo, bLo := solve2(ref.OVec0, ref.OVec1, sub(olo, ref.OBoxLo))
	aHi, bHi := solve2(ref.OVec0, ref.OVec1, sub(ohi, ref.OBoxLo))

	naxis := len(ref.IVec0)
	iLo := make([]float64, naxis)
	iHi := make([]float64, naxis)
	for i := 0; i < naxis; i++ {
		c0 := ref.IBoxLo[i] + aLo*ref.IVec0[i] + bLo*ref.IVec1[i]
		c1 := ref.IBoxLo[i] + aHi*ref.IVec0[i] + bHi*ref.IVec1[i]
		iLo[i] = math.Min(c0, c1)
		iHi[i] = math.Max(c0, c1)
	}

	k := float64(oversample)
	ivec0 := scale(ref.IVec0, 1/k)
	ivec1 := scale(ref.IVec1, 1/k)
	ovec0 := scale(ref.OVec0, 1/k)
	ovec1 := scale(ref.OVec1, 1/k)

	period, nsamp := decompose(ivec0, ivec1, sub(iHi, iLo))

	bore := make([][]float64, nsamp)
	for i := 0; i < nsamp; i++ {
		phase := math.Mod(float64(i), 2*period)
		if phase > period {
			phase = 2*period - phase
		}
		p := make([]float64, naxis)
		for a := 0; a < naxis; a++ {
			p[a] = iLo[a] + ivec1[a]*float64(i) + ivec0[a]*phase
		}
		bore[i] = p
	}

	comps := make([][]float64, ncomp)
	for i := range comps {
		comps[i] = make([]float64, ncomp)
		comps[i][i] = 1
	}

	ids := make([]string, 0, len(grp))
	for _, a := range grp {
		ids = append(ids, a.ScanID)
	}

	return SyntheticScan{
		ScanIDs:   ids,
		Boresight: bore,
		IBoxLo:    iLo, IBoxHi: iHi,
		IVec0: ivec0, IVec1: ivec1,
		OVec0: ovec0, OVec1: ovec1,
		Period: period,
		NComp:  ncomp,
		Comps:  comps,
	}
}

// decompose expresses the input box span in the (ivec0, ivec1) basis
// by projection: the scan-direction coefficient is the half-sweep
// period in samples, the drift coefficient the total sample count.
func decompose(ivec0, ivec1, span []float64) (period float64, nsamp int) {
	period = coeff(span, ivec0)
	drift := coeff(span, ivec1)

	if period < 1 {
		period = 1
	}
	nsamp = int(math.Ceil(drift))
	if min := int(math.Ceil(2 * period)); nsamp < min {
		nsamp = min
	}
	return period, nsamp
}

// coeff is the least-squares coefficient of span along v.
func coeff(span, v []float64) float64 {
	n2 := 0.0
	dot := 0.0
	for i := range v {
		n2 += v[i] * v[i]
		dot += span[i] * v[i]
	}
	if n2 == 0 {
		return 0
	}
	return math.Abs(dot / n2)
}

// solve2 solves rhs = a*v0 + b*v1 for (a, b) in the plane spanned by
// the two 2-D vectors; a degenerate basis yields (0, 0).
func solve2(v0, v1, rhs []float64) (a, b float64) {
	det := v0[0]*v1[1] - v1[0]*v0[1]
	if det == 0 {
		return 0, 0
	}
	a = (rhs[0]*v1[1] - v1[0]*rhs[1]) / det
	b = (v0[0]*rhs[1] - rhs[0]*v0[1]) / det
	return a, b
}

func scale(v []float64, s float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = v[i] * s
	}
	return out
}

// MemberNoise is one real scan's binned noise model, as far as fusion
// needs it: frequency bin edges, per-bin inverse detector covariance,
// and the detector response components used to collapse detectors to
// map components.
type MemberNoise struct {
	Bins  [][2]float64  // [nbin][lo,hi] Hz
	ICovs [][][]float64 // [nbin][ndet][ndet]
	Comps [][]float64   // [ndet][>=ncomp]
}

// FusedNoise is a dense binned noise model over ncomp synthetic
// detectors, the fusion of every member's collapsed inverse
// covariance on a canonical bin grid.
type FusedNoise struct {
	Bins  [][2]float64
	ICovs [][][]float64 // [nbin][ncomp][ncomp]
}

// FuseNoiseModels fuses the members' binned noise models, assuming
// all member scans perfectly overlap. The first member's bin grid is
// canonical. Each member's per-bin detector covariance is collapsed
// to components via compsᵀ·icov·comps, linearly interpolated from the
// member's bins onto the canonical bin centers, and accumulated.
// The last bin's upper edge is widened by the oversampling factor so
// the synthetic scan's higher sample-rate band stays covered.
func FuseNoiseModels(members []MemberNoise, ncomp int, oversample float64) FusedNoise {
	first := members[0]
	nbin := len(first.Bins)

	bins := make([][2]float64, nbin)
	copy(bins, first.Bins)

	bcenters := make([]float64, nbin)
	for b, bin := range first.Bins {
		bcenters[b] = (bin[0] + bin[1]) / 2
	}

	acc := make([][][]float64, nbin)
	for b := range acc {
		acc[b] = zeroMat(ncomp)
	}

	for _, m := range members {
		small := make([][][]float64, len(m.ICovs))
		for b, icov := range m.ICovs {
			small[b] = collapseToComps(icov, m.Comps, ncomp)
		}

		for b, c := range bcenters {
			// Bin values live at bin centers, so shift the edge-based
			// index by half a bin: a member on the canonical grid then
			// maps onto itself exactly.
			pos := floatBinIndex(m.Bins, c) - 0.5
			if pos < 0 {
				pos = 0
			}
			if pos > float64(len(small)-1) {
				pos = float64(len(small) - 1)
			}
			i0 := int(pos)
			i1 := i0 + 1
			if i1 > len(small)-1 {
				i1 = len(small) - 1
			}
			frac := pos - float64(i0)
			for i := 0; i < ncomp; i++ {
				for j := 0; j < ncomp; j++ {
					acc[b][i][j] += small[i0][i][j]*(1-frac) + small[i1][i][j]*frac
				}
			}
		}
	}

	if oversample > 1 {
		bins[nbin-1][1] *= oversample
	}
	return FusedNoise{Bins: bins, ICovs: acc}
}

// floatBinIndex finds the floating-point position of frequency c in
// the bin grid: the index of the first bin whose upper edge reaches
// c, plus the fractional position within that bin.
func floatBinIndex(bins [][2]float64, c float64) float64 {
	j := sort.Search(len(bins), func(k int) bool { return bins[k][1] >= c })
	if j >= len(bins) {
		return float64(len(bins) - 1)
	}
	width := bins[j][1] - bins[j][0]
	if width <= 0 {
		return float64(j)
	}
	frac := (c - bins[j][0]) / width
	if frac < 0 {
		frac = 0
	}
	if frac > 1 {
		frac = 1
	}
	return float64(j) + frac
}

// collapseToComps computes compsᵀ·icov·comps over the first ncomp
// response columns, reducing an ndet x ndet covariance to component
// space. The member matrix is read only, never modified in place, so
// repeated members are safe.
func collapseToComps(icov, comps [][]float64, ncomp int) [][]float64 {
	ndet := len(icov)
	out := zeroMat(ncomp)
	for i := 0; i < ncomp; i++ {
		for j := 0; j < ncomp; j++ {
			sum := 0.0
			for d1 := 0; d1 < ndet; d1++ {
				for d2 := 0; d2 < ndet; d2++ {
					sum += comps[d1][i] * icov[d1][d2] * comps[d2][j]
				}
			}
			out[i][j] = sum
		}
	}
	return out
}

func zeroMat(n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, n)
	}
	return out
}
