package scan

import "github.com/skyscan/mapmaker/eqsys"

// WhiteNoise is the simplest NoiseModel: a per-detector variance,
// applied as a flat diagonal weight. Stands in for a caller's real
// correlated-noise models.
type WhiteNoise struct {
	Variance []float64 // per detector
}

func NewWhiteNoise(variance []float64) *WhiteNoise {
	return &WhiteNoise{Variance: variance}
}

// Apply divides each detector's samples by its variance in place,
// the N⁻¹ diagonal approximation.
func (n *WhiteNoise) Apply(tod [][]float64) {
	for d, row := range tod {
		v := n.Variance[d]
		if v <= 0 {
			continue
		}
		for i := range row {
			row[i] /= v
		}
	}
}

// White is the measurement-whitening half-step the binned
// preconditioner's ForwardWhiteBackward uses: for a flat
// diagonal model this is the same division as Apply.
func (n *WhiteNoise) White(tod [][]float64) { n.Apply(tod) }

// Update refits the per-detector variance from the current TOD
// (sample variance) and returns a fresh model, matching
// NoiseModel.Update's fit-in-place-then-replace contract.
func (n *WhiteNoise) Update(tod [][]float64, srate float64) eqsys.NoiseModel {
	out := make([]float64, len(tod))
	for d, row := range tod {
		if len(row) == 0 {
			continue
		}
		mean := 0.0
		for _, v := range row {
			mean += v
		}
		mean /= float64(len(row))
		variance := 0.0
		for _, v := range row {
			variance += (v - mean) * (v - mean)
		}
		variance /= float64(len(row))
		out[d] = variance
	}
	return &WhiteNoise{Variance: out}
}
