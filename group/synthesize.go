package group

import "math"

// EffectiveScan is a single synthetic
// scan standing in for every member of a disjoint scan group, with a
// pixel grid spanning the group's combined bounding box and a fused
// diagonal noise model built by build_effective_noise_model.
type EffectiveScan struct {
	ScanIDs    []string
	Ny, Nx     int
	BoxLo      []float64
	OVec0, OVec1 []float64
	NoiseDiag  []float64 // per effective-pixel weight, 1/combined_variance
}

// MemberVariance is one real scan's contribution to the fused noise
// model: its own (possibly non-uniform) per-sample variance, plus the
// hit count it contributes at each effective pixel.
type MemberVariance struct {
	ScanID   string
	Variance []float64 // per real sample
	Hits     []int     // which effective pixel index each sample lands on
}

// SimScanFromGroup builds the effective scan's pixel grid from a
// disjoint group's combined bounding box, oversampled by a fixed
// factor along the scan axis to avoid aliasing the fused stripe
// pattern.
func SimScanFromGroup(grp []Analysis, oversample int) EffectiveScan {
	if oversample <= 0 {
		oversample = 1
	}
	lo := append([]float64(nil), grp[0].OBoxLo...)
	hi := append([]float64(nil), grp[0].OBoxHi...)
	for _, a := range grp[1:] {
		for i := range lo {
			lo[i] = math.Min(lo[i], a.OBoxLo[i])
			hi[i] = math.Max(hi[i], a.OBoxHi[i])
		}
	}

	ny := int(math.Ceil(hi[0]-lo[0])) + 1
	nx := int(math.Ceil(hi[1]-lo[1])) + 1
	// The scan axis is the output axis OVec0 points most along.
	if ov := grp[0].OVec0; len(ov) >= 2 && math.Abs(ov[0]) > math.Abs(ov[1]) {
		ny *= oversample
	} else {
		nx *= oversample
	}
	if ny < 1 {
		ny = 1
	}
	if nx < 1 {
		nx = 1
	}

	var ids []string
	for _, a := range grp {
		ids = append(ids, a.ScanID)
	}

	return EffectiveScan{
		ScanIDs: ids,
		Ny:      ny, Nx: nx,
		BoxLo: lo,
		OVec0: grp[0].OVec0, OVec1: grp[0].OVec1,
	}
}

// BuildEffectiveNoiseModel fuses the member scans' noise models:
// the fused per-pixel inverse variance is the sum of each member
// scan's per-sample inverse variance, accumulated at whatever
// effective pixel that sample lands on. This is the diagonal-noise
// analogue of stacking independent measurements: combined precision
// adds.
func BuildEffectiveNoiseModel(es EffectiveScan, members []MemberVariance) EffectiveScan {
	npix := es.Ny * es.Nx
	diag := make([]float64, npix)

	for _, m := range members {
		for i, v := range m.Variance {
			if v <= 0 {
				continue
			}
			pix := m.Hits[i]
			if pix < 0 || pix >= npix {
				continue
			}
			diag[pix] += 1 / v
		}
	}

	es.NoiseDiag = diag
	return es
}
