package mapmaker

import "github.com/skyscan/mapmaker/linalg"

// Mask is a per-pixel, per-component validity flag derived from the
// diagonal block preconditioner. It is forced onto every A
// and M application so singular pixels never contribute.
type Mask struct {
	Ncomp, Ny, Nx int
	Valid         []bool // [ncomp*ny*nx], component-major like Area
}

// NewMask builds a Mask from a binned div field: component 0 (T) is
// valid iff div[0,0] > 0; each polarization component c>=1 is valid
// iff the leading 2x2 polarization sub-block's condition number lies
// in [1, limit).
func NewMask(div linalg.BlockField, limit float64) Mask {
	ny, nx := div.Ny, div.Nx
	m := Mask{Ncomp: div.Ncomp, Ny: ny, Nx: nx, Valid: make([]bool, div.Ncomp*ny*nx)}

	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			m.Valid[0*ny*nx+y*nx+x] = div.At(0, 0, y, x) > 0
		}
	}
	if div.Ncomp < 3 {
		return m
	}

	pol := extractPolBlock(div)
	cond := linalg.ConditionNumberMulti(pol)
	for y := 0; y < ny; y++ {
		for x := 0; x < nx; x++ {
			c := cond[y*nx+x]
			valid := c >= 1 && c < limit
			for comp := 1; comp < div.Ncomp; comp++ {
				m.Valid[comp*ny*nx+y*nx+x] = valid
			}
		}
	}
	return m
}

// extractPolBlock pulls the trailing (Ncomp-1)x(Ncomp-1) polarization
// sub-block (Q/U, skipping T) out of a full div field, as a standalone
// BlockField so linalg.ConditionNumberMulti can be reused unchanged.
func extractPolBlock(div linalg.BlockField) linalg.BlockField {
	npol := div.Ncomp - 1
	out := linalg.NewBlockField(npol, div.Ny, div.Nx)
	for y := 0; y < div.Ny; y++ {
		for x := 0; x < div.Nx; x++ {
			for i := 0; i < npol; i++ {
				for j := 0; j < npol; j++ {
					out.Set(i, j, y, x, div.At(i+1, j+1, y, x))
				}
			}
		}
	}
	return out
}

// Apply zeroes every component of area at pixels the mask marks
// invalid, in place.
func (m Mask) Apply(a *Area) {
	for c := 0; c < a.Ncomp; c++ {
		for y := 0; y < a.Ny; y++ {
			for x := 0; x < a.Nx; x++ {
				if !m.Valid[c*a.Ny*a.Nx+y*a.Nx+x] {
					a.Set(c, y, x, 0)
				}
			}
		}
	}
}

// Hits reports the number of valid pixels for component c.
func (m Mask) Hits(c int) int {
	n := 0
	off := c * m.Ny * m.Nx
	for _, v := range m.Valid[off : off+m.Ny*m.Nx] {
		if v {
			n++
		}
	}
	return n
}
