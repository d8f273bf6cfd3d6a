package linalg

import "math"

// ChebyshevFit fits a degree-(len(coeffs)-1) Chebyshev series to y
// sampled at the n Chebyshev points of the first kind,
// x_j = cos(pi*(j+0.5)/n) on [-1,1], via the standard discrete cosine
// transform relation. Callers sampling another interval map it onto
// [-1,1] with ChebyshevMap. No other package in this module calls the
// Chebyshev functions.
func ChebyshevFit(y []float64, degree int) []float64 {
	n := len(y)
	coeffs := make([]float64, degree+1)
	for k := 0; k <= degree; k++ {
		sum := 0.0
		for j := 0; j < n; j++ {
			theta := math.Pi * (float64(j) + 0.5) / float64(n)
			sum += y[j] * math.Cos(float64(k)*theta)
		}
		weight := 2.0 / float64(n)
		if k == 0 {
			weight = 1.0 / float64(n)
		}
		coeffs[k] = sum * weight
	}
	return coeffs
}

// ChebyshevEval evaluates a Chebyshev series with the given
// coefficients at x in [-1,1] via Clenshaw recurrence.
func ChebyshevEval(coeffs []float64, x float64) float64 {
	bk1, bk2 := 0.0, 0.0
	for k := len(coeffs) - 1; k >= 1; k-- {
		bk := 2*x*bk1 - bk2 + coeffs[k]
		bk2 = bk1
		bk1 = bk
	}
	return x*bk1 - bk2 + coeffs[0]
}

// ChebyshevMap rescales x from [lo,hi] to [-1,1] for use with
// ChebyshevEval.
func ChebyshevMap(x, lo, hi float64) float64 {
	return (2*x - (hi + lo)) / (hi - lo)
}
