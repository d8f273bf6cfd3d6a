package scan

import (
	"math"

	"github.com/skyscan/mapmaker/signal"
)

// GridPointing is a reference signal.Pointing: nearest-pixel binning
// of a Scan's per-detector fractional sky coordinates onto a fixed
// Ncomp/Ny/Nx map grid, with each detector contributing to a single
// fixed map component (identity component mixing).
type GridPointing struct {
	Scan          *Scan
	Ncomp, Ny, Nx int
}

func NewGridPointing(s *Scan, ncomp, ny, nx int) *GridPointing {
	return &GridPointing{Scan: s, Ncomp: ncomp, Ny: ny, Nx: nx}
}

func (g *GridPointing) pixel(det, samp int) (py, px int, ok bool) {
	y, x := g.Scan.Pointing(det, samp)
	iy, ix := int(math.Round(y)), int(math.Round(x))
	if iy < 0 || iy >= g.Ny || ix < 0 || ix >= g.Nx {
		return 0, 0, false
	}
	return iy, ix, true
}

func (g *GridPointing) comp(det int) int {
	if g.Ncomp <= 0 {
		return 0
	}
	return det % g.Ncomp
}

// Forward projects map pixels into detector samples: each detector
// reads its fixed component's plane at its pointed pixel.
func (g *GridPointing) Forward(tod [][]float64, m *signal.MapWork) {
	for det, row := range tod {
		c := g.comp(det)
		for samp := range row {
			py, px, ok := g.pixel(det, samp)
			if !ok {
				continue
			}
			row[samp] += m.At(c, py, px)
		}
	}
}

// Backward is the adjoint: accumulate each sample into its pointed
// pixel in the detector's fixed component plane.
func (g *GridPointing) Backward(tod [][]float64, m *signal.MapWork) {
	for det, row := range tod {
		c := g.comp(det)
		for samp, v := range row {
			py, px, ok := g.pixel(det, samp)
			if !ok {
				continue
			}
			m.Add(c, py, px, v)
		}
	}
}
