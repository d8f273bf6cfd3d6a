// Package eqsys implements the equation system
// that combines scans, signals, filters and noise operators into A,
// b, M and the solver's dot product.
package eqsys

import (
	"math"

	"github.com/skyscan/mapmaker/comm"
	"github.com/skyscan/mapmaker/dof"
	"github.com/skyscan/mapmaker/signal"
)

// Scan is the minimum Eqsys needs from a scan: identity, sample
// shape, and access to raw/noise-filtered data. eqsys only drives
// pointing and noise through the Signal/NoiseModel interfaces it is
// handed; it never reaches into telescope-specific pointing itself.
type Scan interface {
	ID() string
	NDet() int
	NSamp() int
	SampleRate() float64
	Samples() ([][]float64, error)
	Noise() NoiseModel
	SetNoise(NoiseModel)
}

// NoiseModel is the per-scan noise collaborator.
type NoiseModel interface {
	Apply(tod [][]float64)
	White(tod [][]float64)
	Update(tod [][]float64, srate float64) NoiseModel
}

// Filter is a TOD-level transform applied during b construction
// (filters, pre-noise) or between noise fit and noise application
// (filters2).
type Filter func(scan Scan, tod [][]float64)

// Window is a symmetric windowing filter (the `weights` slot),
// applied forward before N⁻¹ and in reverse after.
type Window func(scan Scan, tod [][]float64)

// CosineWindow returns a Window tapering the first and last width
// samples of every detector row with a cosine ramp. Applied on both
// sides of N⁻¹ it keeps the windowed operator symmetric.
func CosineWindow(width int) Window {
	return func(scan Scan, tod [][]float64) {
		if width <= 0 {
			return
		}
		for _, row := range tod {
			w := width
			if w > len(row)/2 {
				w = len(row) / 2
			}
			for i := 0; i < w; i++ {
				f := 0.5 * (1 - math.Cos(math.Pi*float64(i+1)/float64(w+1)))
				row[i] *= f
				row[len(row)-1-i] *= f
			}
		}
	}
}

// Eqsys combines scans, signals (cut first),
// pre-noise filters, post-noise-fit filters, a symmetric window, and
// the comm collaborator used for b's all-reduce and dof.Dot's shared
// contribution.
type Eqsys struct {
	Scans    []Scan
	Signals  []signal.Signal
	Filters  []Filter
	Filters2 []Filter
	Weights  Window
	Layout   dof.Layout
	Comm     comm.Comm

	B []float64
}

// New validates signal ordering (a cut signal must come first) and
// builds an Eqsys.
func New(scans []Scan, signals []signal.Signal, layout dof.Layout, c comm.Comm) (*Eqsys, error) {
	for i, s := range signals {
		if _, isCut := s.(*signal.Cut); isCut && i != 0 {
			return nil, ErrCutSignalOrder
		}
	}
	return &Eqsys{Scans: scans, Signals: signals, Layout: layout, Comm: c}, nil
}

// zerosByName returns a fresh global-element map keyed by signal name.
func (e *Eqsys) zerosByName() map[string][]float64 {
	parts := make(map[string][]float64, len(e.Signals))
	for _, s := range e.Signals {
		parts[s.Name()] = s.Zeros()
	}
	return parts
}

// A implements Eqsys.A: unpack x, project each signal's work
// into every scan's tod in reverse signal order so cuts dominate,
// apply weights/noise/weights, project back in forward order so cuts
// are applied first and other signals zero the cut samples out,
// finish and add each signal's prior, and repack.
func (e *Eqsys) A(x []float64) ([]float64, error) {
	parts, err := dof.Unzip(e.Layout, x)
	if err != nil {
		return nil, err
	}

	works := make(map[string]signal.Work, len(e.Signals))
	oworks := make(map[string]signal.Work, len(e.Signals))
	for _, s := range e.Signals {
		works[s.Name()] = s.Prepare(parts[s.Name()])
		oworks[s.Name()] = s.Work()
	}

	for _, scan := range e.Scans {
		for _, s := range e.Signals {
			s.Precompute(scan.ID())
		}
		tod := zeroTOD(scan.NDet(), scan.NSamp())

		for i := len(e.Signals) - 1; i >= 0; i-- {
			e.Signals[i].Forward(scan.ID(), tod, works[e.Signals[i].Name()])
		}

		if e.Weights != nil {
			e.Weights(scan, tod)
		}
		scan.Noise().Apply(tod)
		if e.Weights != nil {
			e.Weights(scan, tod)
		}

		for _, s := range e.Signals {
			s.Backward(scan.ID(), tod, oworks[s.Name()])
		}
		for _, s := range e.Signals {
			s.Free()
		}
	}

	out := e.zerosByName()
	for _, s := range e.Signals {
		s.Finish(out[s.Name()], oworks[s.Name()])
		// The prior term is Λ(x_i), a function of the input element,
		// added onto the finished output so A = A0 + Λ stays
		// symmetric.
		if p := s.Prior(); p != nil {
			added := p.Apply(parts[s.Name()])
			for i := range out[s.Name()] {
				out[s.Name()][i] += added[i]
			}
		}
	}
	return dof.Zip(e.Layout, out), nil
}

// CalcB builds the right-hand side: read each scan's real TOD, apply
// filters, window symmetrically, refit the noise model, apply
// filters2, apply N⁻¹, backward-accumulate, finish and pack into
// e.B. Returns the packed result as well as storing it.
func (e *Eqsys) CalcB(todOverride map[string][][]float64) ([]float64, error) {
	works := make(map[string]signal.Work, len(e.Signals))
	for _, s := range e.Signals {
		works[s.Name()] = s.Work()
	}

	for _, scan := range e.Scans {
		var tod [][]float64
		if todOverride != nil {
			tod = todOverride[scan.ID()]
		}
		if tod == nil {
			var err error
			tod, err = scan.Samples()
			if err != nil {
				return nil, err
			}
		}

		for _, f := range e.Filters {
			f(scan, tod)
		}
		if e.Weights != nil {
			e.Weights(scan, tod)
		}

		refit := scan.Noise().Update(tod, scan.SampleRate())
		scan.SetNoise(refit)

		for _, f := range e.Filters2 {
			f(scan, tod)
		}
		scan.Noise().Apply(tod)
		// Reverse weight pass comes after N⁻¹, bracketing it the same
		// way A does, so b stays consistent with A's windowed operator.
		if e.Weights != nil {
			e.Weights(scan, tod)
		}

		for _, s := range e.Signals {
			s.Backward(scan.ID(), tod, works[s.Name()])
		}
	}

	out := e.zerosByName()
	for _, s := range e.Signals {
		s.Finish(out[s.Name()], works[s.Name()])
	}
	e.B = dof.Zip(e.Layout, out)
	return e.B, nil
}

// M implements Eqsys.M: unpack, run each signal's local
// preconditioner in place, repack.
func (e *Eqsys) M(x []float64) ([]float64, error) {
	parts, err := dof.Unzip(e.Layout, x)
	if err != nil {
		return nil, err
	}
	for _, s := range e.Signals {
		s.Precond(parts[s.Name()])
	}
	return dof.Zip(e.Layout, parts), nil
}

// Dot delegates to the DOF packer.
func (e *Eqsys) Dot(a, b []float64, isOwner bool) float64 {
	return dof.Dot(e.Layout, a, b, isOwner, e.Comm.AllreduceSum)
}

// Postprocess runs each signal's post chain in sequence over its
// slice of x.
func (e *Eqsys) Postprocess(x []float64) ([]float64, error) {
	parts, err := dof.Unzip(e.Layout, x)
	if err != nil {
		return nil, err
	}
	for _, s := range e.Signals {
		if pp, ok := s.(interface{ Postprocess([]float64) []float64 }); ok {
			parts[s.Name()] = pp.Postprocess(parts[s.Name()])
		}
	}
	return dof.Zip(e.Layout, parts), nil
}

// Write persists every signal's current global element.
func (e *Eqsys) Write(prefix, tag string, x []float64) error {
	parts, err := dof.Unzip(e.Layout, x)
	if err != nil {
		return err
	}
	for _, s := range e.Signals {
		if err := s.Write(prefix, tag, parts[s.Name()]); err != nil {
			return err
		}
	}
	return nil
}

func zeroTOD(ndet, nsamp int) [][]float64 {
	tod := make([][]float64, ndet)
	for i := range tod {
		tod[i] = make([]float64, nsamp)
	}
	return tod
}
