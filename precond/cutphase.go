package precond

import "github.com/skyscan/mapmaker/comm"

// CutScan is the per-scan projector the Cut preconditioner needs: a
// ones vector projected forward through the cut pointing, whitened,
// and backprojected.
type CutScan interface {
	ForwardWhiteBackwardCut(ones []float64) (out []float64)
}

// Cut is a diagonal preconditioner built by projecting a ones vector
// through the cut pointing and N.white and inverting element-wise;
// zeros pass through unchanged.
type Cut struct {
	IDiag []float64
}

// NewCut builds the diagonal from the ones-projection of every scan
// passed in, summed over those scans only (junk is rank-distributed,
// so no all-reduce is done).
func NewCut(njunk int, scans []CutScan, c comm.Comm) *Cut {
	acc := make([]float64, njunk)
	for _, s := range scans {
		ones := make([]float64, njunk)
		for i := range ones {
			ones[i] = 1
		}
		out := s.ForwardWhiteBackwardCut(ones)
		for i := range acc {
			acc[i] += out[i]
		}
	}

	idiag := make([]float64, njunk)
	for i, v := range acc {
		if v != 0 {
			idiag[i] = 1 / v
		}
	}
	return &Cut{IDiag: idiag}
}

func (p *Cut) Apply(x []float64) {
	for i := range x {
		if x[i] == 0 {
			continue
		}
		x[i] *= p.IDiag[i]
	}
}

// Phase is as Cut, but over SignalPhase's arrays,
// and also tracks per-pattern hit maps.
type Phase struct {
	IDiag   []float64
	HitMaps map[int][]float64
}

// NewPhase inverts a caller-supplied diagonal element-wise (zeros stay
// zero), as Cut does with its own, and keeps the hit maps the phase
// signal reports alongside it.
func NewPhase(diag []float64, hitMaps map[int][]float64) *Phase {
	idiag := make([]float64, len(diag))
	for i, v := range diag {
		if v != 0 {
			idiag[i] = 1 / v
		}
	}
	return &Phase{IDiag: idiag, HitMaps: hitMaps}
}

func (p *Phase) Apply(x []float64) {
	for i := range x {
		if x[i] == 0 {
			continue
		}
		x[i] *= p.IDiag[i]
	}
}
