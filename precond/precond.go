// Package precond implements the preconditioner family:
// binned, hitcount, circulant, submap, TOD-based, cut and phase, plus
// the multigrid level bridge.
package precond

import (
	"math"

	"github.com/skyscan/mapmaker/comm"
	"github.com/skyscan/mapmaker/linalg"
)

// Preconditioner is the contract LinearSystemMap.M drives after
// Eqsys.M's per-signal pass: Apply runs the
// preconditioner over a flat global element in place.
type Preconditioner interface {
	Apply(x []float64)
}

// ScanProjector is the minimal per-scan projector every binned-family
// preconditioner needs to measure its operator: forward a unit
// vector, whiten it, and project back.
type ScanProjector interface {
	// ForwardWhiteBackward projects work through this scan's pointing,
	// applies N's white approximation, and projects back into out,
	// matching "signal.forward -> weights -> N.white -> weights ->
	// signal.backward".
	ForwardWhiteBackward(work []float64) (out []float64)
	// HitsBackward backprojects a ones vector through this scan's
	// pointing.
	HitsBackward() (hits []float64)
}

// CalcDivMap builds the binned div field by projecting a unit vector
// for each component through every scan and reducing across ranks.
func CalcDivMap(ncomp, ny, nx int, scans []ScanProjector, c comm.Comm) linalg.BlockField {
	div := linalg.NewBlockField(ncomp, ny, nx)
	npix := ny * nx

	for comp := 0; comp < ncomp; comp++ {
		unit := make([]float64, ncomp*npix)
		for p := 0; p < npix; p++ {
			unit[comp*npix+p] = 1
		}

		acc := make([]float64, ncomp*npix)
		for _, s := range scans {
			out := s.ForwardWhiteBackward(unit)
			for i := range acc {
				acc[i] += out[i]
			}
		}
		reduced := c.AllreduceSumVec(acc)

		for row := 0; row < ncomp; row++ {
			for p := 0; p < npix; p++ {
				y, x := p/nx, p%nx
				div.Set(row, comp, y, x, reduced[row*npix+p])
			}
		}
	}
	return div
}

// CalcHitsMap builds a scalar hit map by backprojecting ones.
func CalcHitsMap(ny, nx int, scans []ScanProjector, c comm.Comm) []float64 {
	npix := ny * nx
	acc := make([]float64, npix)
	for _, s := range scans {
		h := s.HitsBackward()
		for i := range acc {
			acc[i] += h[i]
		}
	}
	return c.AllreduceSumVec(acc)
}

// Binned applies m <- idiv * m per pixel, with singular pixels
// masked by the eigenvalue floor and the condition-number mask forced
// onto every application.
type Binned struct {
	Ncomp, Ny, Nx int
	IDiv          linalg.BlockField
	Valid         []bool // [ncomp*ny*nx] entry mask; nil means all valid
}

// NewBinned inverts div per pixel via SVD with relative eig_limit.
// valid, when non-nil, is the per-entry mask (condition-number rule)
// zeroed on both sides of every Apply; the eigenvalue floor alone is
// far looser than the condition-number limit, so the mask cannot be
// left to SVDPow.
func NewBinned(div linalg.BlockField, eigLimit float64, valid []bool) *Binned {
	return &Binned{
		Ncomp: div.Ncomp, Ny: div.Ny, Nx: div.Nx,
		IDiv:  linalg.SVDPow(div, -1, eigLimit),
		Valid: valid,
	}
}

func (p *Binned) Apply(x []float64) {
	if p.Valid != nil {
		for i := range x {
			if !p.Valid[i] {
				x[i] = 0
			}
		}
	}
	npix := p.Ny * p.Nx
	out := make([]float64, len(x))
	for py := 0; py < p.Ny; py++ {
		for px := 0; px < p.Nx; px++ {
			for i := 0; i < p.Ncomp; i++ {
				sum := 0.0
				for j := 0; j < p.Ncomp; j++ {
					sum += p.IDiv.At(i, j, py, px) * x[j*npix+py*p.Nx+px]
				}
				out[i*npix+py*p.Nx+px] = sum
			}
		}
	}
	if p.Valid != nil {
		for i := range out {
			if !p.Valid[i] {
				out[i] = 0
			}
		}
	}
	copy(x, out)
}

// Hitcount divides the T component by max(hits,1); other components
// are untouched.
type Hitcount struct {
	Ny, Nx int
	Hits   []float64
}

func NewHitcount(ny, nx int, hits []float64) *Hitcount {
	return &Hitcount{Ny: ny, Nx: nx, Hits: hits}
}

// Apply divides only the leading T-component plane (the first Ny*Nx
// entries) by max(hits,1); any trailing polarization components are
// left untouched.
func (p *Hitcount) Apply(x []float64) {
	npix := p.Ny * p.Nx
	for i := 0; i < npix && i < len(x); i++ {
		h := math.Max(p.Hits[i], 1)
		x[i] /= h
	}
}
