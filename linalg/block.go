// Package linalg provides the per-pixel block linear algebra and 2-D
// FFT kernels the preconditioners are built on, implemented on top of
// gonum (gonum.org/v1/gonum/mat, gonum.org/v1/gonum/dsp/fourier).
package linalg

import "gonum.org/v1/gonum/mat"

// BlockField is a per-pixel Ncomp x Ncomp matrix field over an Ny x Nx
// grid, e.g. the binned preconditioner's div or the circulant
// preconditioner's S. Storage is pixel-major so that each pixel's
// block is a contiguous Ncomp*Ncomp row-major slice, directly usable
// as a gonum mat.Dense backing array.
type BlockField struct {
	Ncomp, Ny, Nx int
	Data          []float64
}

// NewBlockField allocates a zeroed field.
func NewBlockField(ncomp, ny, nx int) BlockField {
	return BlockField{Ncomp: ncomp, Ny: ny, Nx: nx, Data: make([]float64, ncomp*ncomp*ny*nx)}
}

func (b BlockField) pixelOffset(y, x int) int {
	return (y*b.Nx + x) * b.Ncomp * b.Ncomp
}

// Block returns the contiguous Ncomp*Ncomp slice for pixel (y,x),
// sharing storage with the field.
func (b BlockField) Block(y, x int) []float64 {
	off := b.pixelOffset(y, x)
	return b.Data[off : off+b.Ncomp*b.Ncomp]
}

// At returns element (c1,c2) of pixel (y,x)'s block.
func (b BlockField) At(c1, c2, y, x int) float64 {
	return b.Block(y, x)[c1*b.Ncomp+c2]
}

// Set assigns element (c1,c2) of pixel (y,x)'s block.
func (b BlockField) Set(c1, c2, y, x int, v float64) {
	b.Block(y, x)[c1*b.Ncomp+c2] = v
}

// Dense returns pixel (y,x)'s block as a gonum *mat.Dense view backed
// directly by the field's storage: writes through Dense mutate Data.
func (b BlockField) Dense(y, x int) *mat.Dense {
	return mat.NewDense(b.Ncomp, b.Ncomp, b.Block(y, x))
}

// SetIdentity sets every pixel's block to the Ncomp x Ncomp identity.
func (b BlockField) SetIdentity() {
	for y := 0; y < b.Ny; y++ {
		for x := 0; x < b.Nx; x++ {
			blk := b.Block(y, x)
			for c := range blk {
				blk[c] = 0
			}
			for c := 0; c < b.Ncomp; c++ {
				blk[c*b.Ncomp+c] = 1
			}
		}
	}
}

// Copy returns an independent deep copy.
func (b BlockField) Copy() BlockField {
	out := NewBlockField(b.Ncomp, b.Ny, b.Nx)
	copy(out.Data, b.Data)
	return out
}
