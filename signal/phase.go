package signal

import (
	"sort"

	"github.com/skyscan/mapmaker/comm"
)

// PhasePointing maps one scan's samples to and from its pattern's
// azimuth-by-detector pickup array.
type PhasePointing interface {
	// Pattern identifies which of the signal's az/det grids this scan
	// belongs to (one per distinct constant-elevation scanning
	// pattern).
	Pattern() int
	Forward(tod [][]float64, grid []float64)
	Backward(tod [][]float64, grid []float64)
}

// gridWork is SignalPhase's Work representation: one flat
// [ndet*res] (or [ndet*res*2] if hysteresis-doubled) grid per
// pattern, keyed by pattern index.
type gridWork struct {
	Grids map[int][]float64
}

// Phase is SignalPhase: one 2-D azimuth-by-detector array per
// distinct scanning pattern, widened to resolution res and optionally
// doubled on the direction axis to model hysteresis. Columns
// may be indexed in column-major detector order by the caller's
// PhasePointing; this signal only manages per-pattern storage and
// reduction.
type Phase struct {
	Base
	NDet, Res    int
	Hysteresis   bool
	patternNDet  map[int]int // detector count per pattern, for shape bookkeeping
	scan         func(scanID string) PhasePointing
}

// NewPhase constructs a per-pattern azimuth pickup signal.
func NewPhase(name string, ndet, res int, hysteresis bool, patternNDet map[int]int, scan func(string) PhasePointing, c comm.Comm) *Phase {
	return &Phase{
		Base:        Base{SignalName: name, Comm: c},
		NDet:        ndet,
		Res:         res,
		Hysteresis:  hysteresis,
		patternNDet: patternNDet,
		scan:        scan,
	}
}

func (s *Phase) gridLen() int {
	mult := 1
	if s.Hysteresis {
		mult = 2
	}
	return s.Res * mult
}

func (s *Phase) Zeros() []float64 {
	total := 0
	for _, n := range s.patternNDet {
		total += n * s.gridLen()
	}
	return make([]float64, total)
}

// offsets assigns each pattern a fixed slot of the flat global
// element, in ascending pattern order so every call (and every rank)
// agrees on the layout.
func (s *Phase) offsets() map[int]int {
	patterns := make([]int, 0, len(s.patternNDet))
	for p := range s.patternNDet {
		patterns = append(patterns, p)
	}
	sort.Ints(patterns)
	off := make(map[int]int, len(patterns))
	cur := 0
	for _, p := range patterns {
		off[p] = cur
		cur += s.patternNDet[p] * s.gridLen()
	}
	return off
}

func (s *Phase) Work() Work {
	grids := make(map[int][]float64, len(s.patternNDet))
	for p, n := range s.patternNDet {
		grids[p] = make([]float64, n*s.gridLen())
	}
	return &gridWork{Grids: grids}
}

func (s *Phase) Prepare(x []float64) Work {
	w := s.Work().(*gridWork)
	off := s.offsets()
	for p, n := range s.patternNDet {
		copy(w.Grids[p], x[off[p]:off[p]+n*s.gridLen()])
	}
	return w
}

func (s *Phase) Forward(scanID string, tod [][]float64, w Work) {
	p := s.scan(scanID)
	gw := w.(*gridWork)
	grid, ok := gw.Grids[p.Pattern()]
	if !ok {
		return
	}
	p.Forward(tod, grid)
}

func (s *Phase) Backward(scanID string, tod [][]float64, w Work) {
	p := s.scan(scanID)
	gw := w.(*gridWork)
	grid, ok := gw.Grids[p.Pattern()]
	if !ok {
		return
	}
	p.Backward(tod, grid)
}

// Finish all-reduce-sums each pattern's grid (patterns are shared
// across every rank that sees that pattern).
func (s *Phase) Finish(x []float64, w Work) {
	gw := w.(*gridWork)
	off := s.offsets()
	patterns := make([]int, 0, len(gw.Grids))
	for p := range gw.Grids {
		patterns = append(patterns, p)
	}
	// Reduce in ascending pattern order so every rank enters the
	// collectives in the same sequence.
	sort.Ints(patterns)
	for _, p := range patterns {
		reduced := s.Comm.AllreduceSumVec(gw.Grids[p])
		n := s.patternNDet[p]
		copy(x[off[p]:off[p]+n*s.gridLen()], reduced)
	}
}

func (s *Phase) Precompute(scanID string) {}
func (s *Phase) Free()                    {}
func (s *Phase) Prior() Prior             { return nil }
func (s *Phase) Precond(x []float64)      {}

func (s *Phase) Write(prefix, tag string, x []float64) error {
	return writeArray(prefix, s.SignalName, tag, 1, s.NDet, s.gridLen(), x)
}
