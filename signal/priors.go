package signal

// Priors are the additive regularization terms a Map signal may
// attach via SetPrior, run once per Eqsys.A invocation after Finish.

// Null is the no-op prior: Λ(x) = 0. Equivalent to leaving a signal's
// prior unset; kept as an explicit value for callers that want to be
// able to toggle priors without a nil check.
type Null struct{}

func (Null) Apply(x []float64) []float64 { return make([]float64, len(x)) }

// Norm adds a Tikhonov-style term Λ(x) = weight * x, penalizing large
// map values directly.
type Norm struct {
	Weight float64
}

func (p Norm) Apply(x []float64) []float64 {
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = p.Weight * v
	}
	return out
}

// Nohor penalizes the weighted horizontal mode of each component
// plane: the prior term is the per-row weighted sum of the map,
// spread back across the row by the same weight. This suppresses
// constant-in-x striping without touching structure within a row.
// The same term applies to replicated and tiled maps alike.
type Nohor struct {
	Ncomp, Ny, Nx int
	Weight        []float64 // [ny*nx] per-pixel weight
}

func (p Nohor) Apply(x []float64) []float64 {
	out := make([]float64, len(x))
	for c := 0; c < p.Ncomp; c++ {
		base := c * p.Ny * p.Nx
		for y := 0; y < p.Ny; y++ {
			row := base + y*p.Nx
			wrow := y * p.Nx
			sum := 0.0
			for x0 := 0; x0 < p.Nx; x0++ {
				sum += x[row+x0] * p.Weight[wrow+x0]
			}
			for x0 := 0; x0 < p.Nx; x0++ {
				out[row+x0] = sum * p.Weight[wrow+x0]
			}
		}
	}
	return out
}

// ProjectOut removes the component of x along a fixed direction,
// e.g. to suppress a known degenerate mode.
type ProjectOut struct {
	Direction []float64 // unit vector, same length as x
}

func (p ProjectOut) Apply(x []float64) []float64 {
	dot := 0.0
	for i, v := range x {
		dot += v * p.Direction[i]
	}
	out := make([]float64, len(x))
	for i := range out {
		out[i] = -dot * p.Direction[i]
	}
	return out
}
