package linalg

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SVDPow raises every pixel's block to the given power via singular
// value decomposition, masking out singular values below
// lim*max(singularValues) (set to zero instead of inverted).
func SVDPow(b BlockField, power, lim float64) BlockField {
	out := NewBlockField(b.Ncomp, b.Ny, b.Nx)
	for y := 0; y < b.Ny; y++ {
		for x := 0; x < b.Nx; x++ {
			blockPow(b.Dense(y, x), out.Dense(y, x), power, lim, true)
		}
	}
	return out
}

// EigPow raises every pixel's block to the given power via symmetric
// eigendecomposition, masking out eigenvalues below
// lim*max(|eigenvalue|). Blocks are assumed symmetric, as div/ptp
// matrices are by construction (they are Gram-like PᵀWP products).
func EigPow(b BlockField, power, lim float64) BlockField {
	out := NewBlockField(b.Ncomp, b.Ny, b.Nx)
	for y := 0; y < b.Ny; y++ {
		for x := 0; x < b.Nx; x++ {
			blockPow(b.Dense(y, x), out.Dense(y, x), power, lim, false)
		}
	}
	return out
}

// blockPow computes dst = pow(src, power) for one ncomp x ncomp block,
// via SVD (useSVD=true) or symmetric eigendecomposition (useSVD=false),
// masking small singular/eigen values below lim*max(|.|) to zero
// instead of raising them to a (likely negative) power.
func blockPow(src, dst *mat.Dense, power, lim float64, useSVD bool) {
	n, _ := src.Dims()
	if useSVD {
		var svd mat.SVD
		ok := svd.Factorize(src, mat.SVDFull)
		if !ok {
			zeroDense(dst, n)
			return
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
		diag := mat.NewDiagDense(n, nil)
		for i, s := range sv {
			if maxSV == 0 || s < lim*maxSV {
				diag.SetDiag(i, 0)
				continue
			}
			diag.SetDiag(i, math.Pow(s, power))
		}
		var tmp mat.Dense
		tmp.Mul(&v, diag)
		dst.Mul(&tmp, u.T())
		return
	}

	sym := symFromDense(src, n)
	var eig mat.EigenSym
	ok := eig.Factorize(sym, true)
	if !ok {
		zeroDense(dst, n)
		return
	}
	values := eig.Values(nil)
	var vecs mat.Dense
	eig.VectorsTo(&vecs)
	maxAbs := 0.0
	for _, v := range values {
		if a := math.Abs(v); a > maxAbs {
			maxAbs = a
		}
	}
	diag := mat.NewDiagDense(n, nil)
	for i, v := range values {
		if maxAbs == 0 || math.Abs(v) < lim*maxAbs {
			diag.SetDiag(i, 0)
			continue
		}
		diag.SetDiag(i, math.Pow(v, power))
	}
	var tmp mat.Dense
	tmp.Mul(&vecs, diag)
	dst.Mul(&tmp, vecs.T())
}

// zeroDense sets every element of an n x n Dense to zero in place.
func zeroDense(dst *mat.Dense, n int) {
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			dst.Set(i, j, 0)
		}
	}
}

// symFromDense builds a SymDense by averaging src with its transpose,
// tolerating the tiny asymmetries that accumulate in div/ptp matrices
// built up from many per-scan reductions.
func symFromDense(src *mat.Dense, n int) *mat.SymDense {
	sym := mat.NewSymDense(n, nil)
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			v := 0.5 * (src.At(i, j) + src.At(j, i))
			sym.SetSym(i, j, v)
		}
	}
	return sym
}

// ConditionNumberMulti returns the per-pixel condition number
// (max(|eig|)/min(|eig|)) of every pixel's block.
func ConditionNumberMulti(b BlockField) []float64 {
	out := make([]float64, b.Ny*b.Nx)
	n := b.Ncomp
	for y := 0; y < b.Ny; y++ {
		for x := 0; x < b.Nx; x++ {
			sym := symFromDense(b.Dense(y, x), n)
			var eig mat.EigenSym
			if !eig.Factorize(sym, false) {
				out[y*b.Nx+x] = math.Inf(1)
				continue
			}
			values := eig.Values(nil)
			minAbs, maxAbs := math.Inf(1), 0.0
			for _, v := range values {
				a := math.Abs(v)
				if a < minAbs {
					minAbs = a
				}
				if a > maxAbs {
					maxAbs = a
				}
			}
			if minAbs == 0 {
				out[y*b.Nx+x] = math.Inf(1)
				continue
			}
			out[y*b.Nx+x] = maxAbs / minAbs
		}
	}
	return out
}
