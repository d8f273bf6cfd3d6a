package signal

import "github.com/skyscan/mapmaker/comm"

// Pointing is the per-scan pointing collaborator a Map signal
// consumes: Forward projects pixels into samples, Backward is
// the adjoint.
type Pointing interface {
	Forward(tod [][]float64, m *MapWork)
	Backward(tod [][]float64, m *MapWork)
}

// PointingFor resolves the pointing operator for one scan; supplied
// by the caller assembling the equation system (one per scan).
type PointingFor func(scanID string) Pointing

// MapWork is the Work representation for a replicated sky map: a flat
// [ncomp*ny*nx] buffer plus its shape, matching mapmaker.Area's
// component-major layout without importing the root package (avoiding
// an import cycle; eqsys converts to/from mapmaker.Area at its edge).
type MapWork struct {
	Ncomp, Ny, Nx int
	Data          []float64
}

func NewMapWork(ncomp, ny, nx int) *MapWork {
	return &MapWork{Ncomp: ncomp, Ny: ny, Nx: nx, Data: make([]float64, ncomp*ny*nx)}
}

// At reads one pixel of one component.
func (w *MapWork) At(comp, y, x int) float64 {
	return w.Data[comp*w.Ny*w.Nx+y*w.Nx+x]
}

// Add accumulates v into one pixel of one component, the pointing
// adjoint's natural operation.
func (w *MapWork) Add(comp, y, x int, v float64) {
	w.Data[comp*w.Ny*w.Nx+y*w.Nx+x] += v
}

// Map is SignalMap: a single replicated map, finished by all-reducing
// the accumulated work buffer across ranks.
type Map struct {
	Base
	Ncomp, Ny, Nx int
	Pointing      PointingFor
	prior         Prior
	mask          []bool // [ncomp*ny*nx] validity; nil means all valid
	post          []PostFilter

	precomputed map[string]Pointing
}

// NewMap constructs a replicated-map signal of the given shape.
func NewMap(name string, ncomp, ny, nx int, pointing PointingFor, c comm.Comm) *Map {
	return &Map{
		Base:        Base{SignalName: name, Comm: c},
		Ncomp:       ncomp,
		Ny:          ny,
		Nx:          nx,
		Pointing:    pointing,
		precomputed: make(map[string]Pointing),
	}
}

func (m *Map) Zeros() []float64 { return make([]float64, m.Ncomp*m.Ny*m.Nx) }

func (m *Map) Work() Work { return NewMapWork(m.Ncomp, m.Ny, m.Nx) }

// SetMask installs the per-entry validity mask (from the binned div's
// condition-number rule). Masked entries are forced to zero on every
// Prepare and Finish, so A and M applications can never resurrect a
// numerically singular pixel.
func (m *Map) SetMask(valid []bool) { m.mask = valid }

func (m *Map) applyMask(data []float64) {
	if m.mask == nil {
		return
	}
	for i := range data {
		if !m.mask[i] {
			data[i] = 0
		}
	}
}

func (m *Map) Prepare(x []float64) Work {
	w := NewMapWork(m.Ncomp, m.Ny, m.Nx)
	copy(w.Data, x)
	m.applyMask(w.Data)
	return w
}

func (m *Map) pointingFor(scanID string) Pointing {
	if p, ok := m.precomputed[scanID]; ok {
		return p
	}
	return m.Pointing(scanID)
}

func (m *Map) Forward(scanID string, tod [][]float64, w Work) {
	p := m.pointingFor(scanID)
	p.Forward(tod, w.(*MapWork))
}

func (m *Map) Backward(scanID string, tod [][]float64, w Work) {
	p := m.pointingFor(scanID)
	p.Backward(tod, w.(*MapWork))
}

// Finish all-reduce-sums the work buffer into x, keeping the
// logically replicated map identical on every rank.
func (m *Map) Finish(x []float64, w Work) {
	mw := w.(*MapWork)
	reduced := m.Comm.AllreduceSumVec(mw.Data)
	copy(x, reduced)
	m.applyMask(x)
}

func (m *Map) Precompute(scanID string) {
	if _, ok := m.precomputed[scanID]; ok {
		return
	}
	m.precomputed[scanID] = m.Pointing(scanID)
}

func (m *Map) Free() { m.precomputed = make(map[string]Pointing) }

// Prior returns the configured regularization term; when a mask is
// installed the term is wrapped so Λ sees a masked input and yields a
// masked output, preserving mask idempotence of A.
func (m *Map) Prior() Prior {
	if m.prior == nil || m.mask == nil {
		return m.prior
	}
	return maskedPrior{m: m}
}

type maskedPrior struct{ m *Map }

func (p maskedPrior) Apply(x []float64) []float64 {
	in := append([]float64(nil), x...)
	p.m.applyMask(in)
	out := p.m.prior.Apply(in)
	p.m.applyMask(out)
	return out
}

// SetPrior attaches a regularization term, e.g. Norm or Nohor.
func (m *Map) SetPrior(p Prior) { m.prior = p }

// AddPost appends a filter to the signal's postprocess chain, run in
// order by Postprocess after the solve converges.
func (m *Map) AddPost(f PostFilter) { m.post = append(m.post, f) }

// Postprocess runs the post chain over the solved map element.
func (m *Map) Postprocess(x []float64) []float64 { return RunPostChain(x, m.post) }

// Precond runs no local preconditioner: the binned/circulant/submap
// preconditioners operate on the whole map via precond.Binned etc.,
// applied by LinearSystemMap.M after Eqsys.M's per-signal pass; map
// preconditioning is done system-wide instead.
func (m *Map) Precond(x []float64) {}

func (m *Map) Write(prefix, tag string, x []float64) error {
	return writeArray(prefix, m.SignalName, tag, m.Ncomp, m.Ny, m.Nx, x)
}

// MapFast specializes Map by caching each scan's pointing across a
// Forward/Backward pair instead of resolving it from PointingFor
// twice. Precompute/Free here are mandatory, not optional: Forward
// panics if the scan was never precomputed.
type MapFast struct {
	*Map
}

// NewMapFast wraps a Map to require precomputation before projection.
func NewMapFast(m *Map) *MapFast { return &MapFast{Map: m} }

func (m *MapFast) Forward(scanID string, tod [][]float64, w Work) {
	p, ok := m.precomputed[scanID]
	if !ok {
		panic("signal: MapFast.Forward called without Precompute for scan " + scanID)
	}
	p.Forward(tod, w.(*MapWork))
}

func (m *MapFast) Backward(scanID string, tod [][]float64, w Work) {
	p, ok := m.precomputed[scanID]
	if !ok {
		panic("signal: MapFast.Backward called without Precompute for scan " + scanID)
	}
	p.Backward(tod, w.(*MapWork))
}
