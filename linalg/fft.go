package linalg

import "gonum.org/v1/gonum/dsp/fourier"

// FFT2Real computes the 2-D real-input FFT of an Ny x Nx plane,
// row-then-column, as the circulant preconditioner needs to build its
// Fourier-domain kernel.
// It returns the half-spectrum along x (Nx/2+1 columns) and the full
// spectrum along y, as separate real/imaginary planes.
func FFT2Real(plane []float64, ny, nx int) (re, im []float64, nxHalf int) {
	rowFFT := fourier.NewFFT(nx)
	nxHalf = nx/2 + 1

	rowRe := make([]float64, ny*nxHalf)
	rowIm := make([]float64, ny*nxHalf)
	for y := 0; y < ny; y++ {
		spec := rowFFT.Coefficients(nil, plane[y*nx:(y+1)*nx])
		for x := 0; x < nxHalf; x++ {
			rowRe[y*nxHalf+x] = real(spec[x])
			rowIm[y*nxHalf+x] = imag(spec[x])
		}
	}

	colFFT := fourier.NewCmplxFFT(ny)
	re = make([]float64, ny*nxHalf)
	im = make([]float64, ny*nxHalf)
	col := make([]complex128, ny)
	for x := 0; x < nxHalf; x++ {
		for y := 0; y < ny; y++ {
			col[y] = complex(rowRe[y*nxHalf+x], rowIm[y*nxHalf+x])
		}
		spec := colFFT.Coefficients(nil, col)
		for y := 0; y < ny; y++ {
			re[y*nxHalf+x] = real(spec[y])
			im[y*nxHalf+x] = imag(spec[y])
		}
	}
	return re, im, nxHalf
}

// IFFT2Real inverts FFT2Real, reconstructing an Ny x Nx real plane
// from its half-spectrum. The transform is unnormalized:
// IFFT2Real(FFT2Real(f)) = ny*nx*f, so the caller divides by the
// plane size once.
func IFFT2Real(re, im []float64, ny, nx, nxHalf int) []float64 {
	colFFT := fourier.NewCmplxFFT(ny)
	col := make([]complex128, ny)
	midRe := make([]float64, ny*nxHalf)
	midIm := make([]float64, ny*nxHalf)
	for x := 0; x < nxHalf; x++ {
		for y := 0; y < ny; y++ {
			col[y] = complex(re[y*nxHalf+x], im[y*nxHalf+x])
		}
		spec := colFFT.Sequence(nil, col)
		for y := 0; y < ny; y++ {
			midRe[y*nxHalf+x] = real(spec[y])
			midIm[y*nxHalf+x] = imag(spec[y])
		}
	}

	rowFFT := fourier.NewFFT(nx)
	out := make([]float64, ny*nx)
	row := make([]complex128, nxHalf)
	for y := 0; y < ny; y++ {
		for x := 0; x < nxHalf; x++ {
			row[x] = complex(midRe[y*nxHalf+x], midIm[y*nxHalf+x])
		}
		seq := rowFFT.Sequence(nil, row)
		copy(out[y*nx:(y+1)*nx], seq)
	}
	return out
}
