package signal

import "github.com/skyscan/mapmaker/comm"

// CutPointing maps one scan's cut samples to and from a 1-D junk
// vector, mirroring mapmaker.CutPointing without
// importing the root package.
type CutPointing interface {
	NJunk() int
	Forward(tod [][]float64, junk []float64)
	Backward(tod [][]float64, junk []float64)
}

// CutRange is the [lo,hi) slice of the global junk vector one scan
// owns, assigned once at initialization.
type CutRange struct {
	Lo, Hi int
}

// junkWork is SignalCut's Work representation: the full distributed
// junk vector (never replicated, so Work and the global element share
// the same shape and are simply copied between, not reduced).
type junkWork struct {
	Data []float64
}

// Cut is SignalCut: a rank-local junk vector, one segment per scan,
// finished by an in-place copy rather than any reduction.
// Per the equation-system ordering invariant, a Cut signal must
// be listed before every other signal in an Eqsys.
type Cut struct {
	Base
	NJunk  int
	ranges map[string]CutRange
	scan   func(scanID string) CutPointing
}

// NewCut constructs a junk-vector signal, given each scan's owned
// [lo,hi) range and its cut pointing operator factory.
func NewCut(name string, njunk int, ranges map[string]CutRange, scan func(string) CutPointing, c comm.Comm) *Cut {
	return &Cut{Base: Base{SignalName: name, Comm: c}, NJunk: njunk, ranges: ranges, scan: scan}
}

func (s *Cut) Zeros() []float64 { return make([]float64, s.NJunk) }

func (s *Cut) Work() Work { return &junkWork{Data: make([]float64, s.NJunk)} }

func (s *Cut) Prepare(x []float64) Work {
	w := &junkWork{Data: make([]float64, s.NJunk)}
	copy(w.Data, x)
	return w
}

func (s *Cut) Forward(scanID string, tod [][]float64, w Work) {
	r, ok := s.ranges[scanID]
	if !ok {
		return // not this rank's scan: silent no-op by contract
	}
	jw := w.(*junkWork)
	s.scan(scanID).Forward(tod, jw.Data[r.Lo:r.Hi])
}

func (s *Cut) Backward(scanID string, tod [][]float64, w Work) {
	r, ok := s.ranges[scanID]
	if !ok {
		return
	}
	jw := w.(*junkWork)
	s.scan(scanID).Backward(tod, jw.Data[r.Lo:r.Hi])
}

// Finish copies the work buffer into x in place: junk is
// rank-distributed by construction, so no collective is needed.
func (s *Cut) Finish(x []float64, w Work) { copy(x, w.(*junkWork).Data) }

func (s *Cut) Precompute(scanID string) {}
func (s *Cut) Free()                    {}
func (s *Cut) Prior() Prior             { return nil }

// Precond leaves x unchanged. Eqsys.M calls it like every signal's
// Precond; the diagonal junk preconditioner is precond.Cut, a separate
// system-level Preconditioner that this method does not apply.
func (s *Cut) Precond(x []float64) {}

func (s *Cut) Write(prefix, tag string, x []float64) error {
	return writeArray(prefix, s.SignalName, tag, 1, 1, len(x), x)
}
