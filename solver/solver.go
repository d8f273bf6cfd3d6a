// Package solver implements a reference preconditioned conjugate
// gradient driver against the A/b/M/Dot contract LinearSystemMap
// exposes.
package solver

import "math"

// System is the minimum the CG driver needs from a linear system.
type System interface {
	A(x []float64) ([]float64, error)
	B() []float64
	M(x []float64) ([]float64, error)
	Dot(a, b []float64) float64
}

// Result is one CG run's outcome.
type Result struct {
	X          []float64
	Iterations int
	Residuals  []float64 // relative residual norm at the end of each iteration
	Converged  bool
}

// Callback is invoked once per iteration, after Residuals is updated,
// so callers can log progress or checkpoint x.
type Callback func(iter int, x []float64, relResidual float64)

// Options configures a Solve run.
type Options struct {
	MaxIter   int
	Tolerance float64 // relative residual norm at which to stop early
	Callback  Callback
}

// Solve runs preconditioned CG: x0=0, r0=b, z0=M(r0), p0=z0, iterating
// alpha/x/r update, M(r), beta, p update: the textbook PCG
// recurrence.
func Solve(sys System, opts Options) (Result, error) {
	b := sys.B()
	x := make([]float64, len(b))
	r := append([]float64(nil), b...)

	bnorm := math.Sqrt(sys.Dot(b, b))
	if bnorm == 0 {
		bnorm = 1
	}

	z, err := sys.M(r)
	if err != nil {
		return Result{}, err
	}
	p := append([]float64(nil), z...)
	rz := sys.Dot(r, z)

	res := Result{X: x}
	maxIter := opts.MaxIter
	if maxIter <= 0 {
		maxIter = 100
	}

	for iter := 0; iter < maxIter; iter++ {
		ap, err := sys.A(p)
		if err != nil {
			return res, err
		}
		pap := sys.Dot(p, ap)
		if pap == 0 {
			break
		}
		alpha := rz / pap
		for i := range x {
			x[i] += alpha * p[i]
			r[i] -= alpha * ap[i]
		}

		relResidual := math.Sqrt(sys.Dot(r, r)) / bnorm
		res.Residuals = append(res.Residuals, relResidual)
		res.Iterations = iter + 1
		if opts.Callback != nil {
			opts.Callback(iter, x, relResidual)
		}
		if opts.Tolerance > 0 && relResidual < opts.Tolerance {
			res.Converged = true
			break
		}

		z, err = sys.M(r)
		if err != nil {
			return res, err
		}
		if rz == 0 {
			break
		}
		rzNew := sys.Dot(r, z)
		beta := rzNew / rz
		for i := range p {
			p[i] = z[i] + beta*p[i]
		}
		rz = rzNew
	}

	res.X = x
	return res, nil
}
