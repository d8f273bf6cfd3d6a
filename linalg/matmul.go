package linalg

import "gonum.org/v1/gonum/mat"

// MatMul multiplies two per-pixel block fields of matching shape,
// pixel by pixel.
func MatMul(a, b BlockField) BlockField {
	out := NewBlockField(a.Ncomp, a.Ny, a.Nx)
	for y := 0; y < a.Ny; y++ {
		for x := 0; x < a.Nx; x++ {
			out.Dense(y, x).Mul(a.Dense(y, x), b.Dense(y, x))
		}
	}
	return out
}

// SolveMasked solves a.Dense(y,x) * out = rhs per pixel via SVD,
// masking out singular values below lim*max(singularValues) exactly as
// SVDPow does (div is only invertible on well-hit pixels).
func SolveMasked(a BlockField, rhs []float64, lim float64) []float64 {
	n := a.Ncomp
	out := make([]float64, len(rhs))
	r := mat.NewDense(n, 1, nil)
	for y := 0; y < a.Ny; y++ {
		for x := 0; x < a.Nx; x++ {
			off := (y*a.Nx + x) * n
			for i := 0; i < n; i++ {
				r.Set(i, 0, rhs[off+i])
			}

			var svd mat.SVD
			if !svd.Factorize(a.Dense(y, x), mat.SVDFull) {
				continue
			}
			var u, v mat.Dense
			svd.UTo(&u)
			svd.VTo(&v)
			sv := svd.Values(nil)
			maxSV := 0.0
			for _, s := range sv {
				if s > maxSV {
					maxSV = s
				}
			}
			if maxSV == 0 {
				continue
			}

			var ut mat.Dense
			ut.Mul(u.T(), r)
			sol := mat.NewDense(n, 1, nil)
			for i, s := range sv {
				if s < lim*maxSV {
					continue
				}
				sol.Set(i, 0, ut.At(i, 0)/s)
			}
			var res mat.Dense
			res.Mul(&v, sol)
			for i := 0; i < n; i++ {
				out[off+i] = res.At(i, 0)
			}
		}
	}
	return out
}
