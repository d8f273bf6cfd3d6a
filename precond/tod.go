package precond

import (
	"sort"

	"github.com/skyscan/mapmaker/comm"
	"github.com/skyscan/mapmaker/linalg"
)

// TODScan is the per-scan collaborator the TOD-based preconditioner
// needs: the noiseless PᵀP projector (ProjectPTP) and a full PᵀN⁻¹P
// apply with the noise diagonal clamped first.
type TODScan interface {
	// ProjectPTP backprojects this scan's forward projection of work
	// with no noise applied (builds PᵀP).
	ProjectPTP(work []float64) []float64
	// ProjectPTNP backprojects this scan's forward projection of work
	// after clamping the noise diagonal at median(D)*maxNoise and
	// applying N⁻¹.
	ProjectPTNP(work []float64, maxNoise float64) []float64
}

// TODBased caches iptp = (PᵀP)⁻¹ and applies
// m <- iptp * PᵀN⁻¹P * iptp * m.
type TODBased struct {
	Ncomp, Ny, Nx int
	IPTP          linalg.BlockField
	Scans         []TODScan
	MaxNoise      float64
	Comm          comm.Comm
}

// NewTODBased builds PᵀP by summing every scan's ProjectPTP(unit) over
// components, inverts it per pixel, and returns the preconditioner.
func NewTODBased(ncomp, ny, nx int, scans []TODScan, maxNoise float64, eigLimit float64, c comm.Comm) *TODBased {
	npix := ny * nx
	ptp := linalg.NewBlockField(ncomp, ny, nx)

	for comp := 0; comp < ncomp; comp++ {
		unit := make([]float64, ncomp*npix)
		for p := 0; p < npix; p++ {
			unit[comp*npix+p] = 1
		}
		acc := make([]float64, ncomp*npix)
		for _, s := range scans {
			out := s.ProjectPTP(unit)
			for i := range acc {
				acc[i] += out[i]
			}
		}
		reduced := c.AllreduceSumVec(acc)
		for row := 0; row < ncomp; row++ {
			for p := 0; p < npix; p++ {
				ptp.Set(row, comp, p/nx, p%nx, reduced[row*npix+p])
			}
		}
	}

	return &TODBased{
		Ncomp: ncomp, Ny: ny, Nx: nx,
		IPTP:     linalg.SVDPow(ptp, -1, eigLimit),
		Scans:    scans,
		MaxNoise: maxNoise,
		Comm:     c,
	}
}

func (p *TODBased) Apply(x []float64) {
	step1 := applyBlock(p.IPTP, x, p.Ncomp, p.Ny, p.Nx)

	acc := make([]float64, len(x))
	for _, s := range p.Scans {
		out := s.ProjectPTNP(step1, p.MaxNoise)
		for i := range acc {
			acc[i] += out[i]
		}
	}
	reduced := p.Comm.AllreduceSumVec(acc)

	final := applyBlock(p.IPTP, reduced, p.Ncomp, p.Ny, p.Nx)
	copy(x, final)
}

// ClampNoiseDiag caps D at median(D)*maxNoise, matching the noise
// clamp TODBased applies before N⁻¹.
func ClampNoiseDiag(d []float64, maxNoise float64) []float64 {
	sorted := append([]float64(nil), d...)
	sort.Float64s(sorted)
	median := sorted[len(sorted)/2]
	if len(sorted)%2 == 0 {
		median = (sorted[len(sorted)/2-1] + sorted[len(sorted)/2]) / 2
	}
	ceiling := median * maxNoise

	out := make([]float64, len(d))
	for i, v := range d {
		if v > ceiling {
			out[i] = ceiling
		} else {
			out[i] = v
		}
	}
	return out
}
