package signal

import "github.com/skyscan/mapmaker/comm"

// DistributedPointing is a Map pointing operator that additionally
// knows how to extract and scatter its scan's tile of a spatially
// tiled map.
type DistributedPointing interface {
	Pointing
	// Tile returns the pixel-space [y0,x0,h,w] footprint this scan
	// touches within the full map.
	Tile() (y0, x0, h, w int)
}

// tileWork is DistributedMap's Work representation: one rank-owned
// tile, smaller than the full map.
type tileWork struct {
	Y0, X0, H, W int
	Data         []float64 // [ncomp*h*w]
}

func (t *tileWork) asMapWork(ncomp int) *MapWork {
	return &MapWork{Ncomp: ncomp, Ny: t.H, Nx: t.W, Data: t.Data}
}

// DistributedMap is SignalDistributedMap: a map whose scans each
// project through a DistributedPointing. prepare copies the whole
// global element into a full-map work buffer; finish all-reduces that
// full-size buffer into x. No per-rank tile is extracted or scattered.
type DistributedMap struct {
	Base
	Ncomp, Ny, Nx int
	Pointing      PointingFor

	dmapFormat string
}

// NewDistributedMap constructs a tiled-map signal. dmapFormat selects
// "merged" or "tiles" persistence.
func NewDistributedMap(name string, ncomp, ny, nx int, pointing PointingFor, dmapFormat string, c comm.Comm) *DistributedMap {
	return &DistributedMap{
		Base:       Base{SignalName: name, Comm: c},
		Ncomp:      ncomp,
		Ny:         ny,
		Nx:         nx,
		Pointing:   pointing,
		dmapFormat: dmapFormat,
	}
}

func (s *DistributedMap) Zeros() []float64 { return make([]float64, s.Ncomp*s.Ny*s.Nx) }

func (s *DistributedMap) tileFor(scanID string) (DistributedPointing, bool) {
	p, ok := s.Pointing(scanID).(DistributedPointing)
	return p, ok
}

func (s *DistributedMap) Work() Work {
	return &tileWork{H: s.Ny, W: s.Nx, Data: make([]float64, s.Ncomp*s.Ny*s.Nx)}
}

// Prepare copies x into a work buffer shaped like the full map. The
// buffer is never narrowed to a tile: Forward/Backward project against
// the whole map and do not consult the pointing's Tile footprint.
func (s *DistributedMap) Prepare(x []float64) Work {
	w := &tileWork{Y0: 0, X0: 0, H: s.Ny, W: s.Nx, Data: make([]float64, len(x))}
	copy(w.Data, x)
	return w
}

func (s *DistributedMap) Forward(scanID string, tod [][]float64, w Work) {
	p, ok := s.tileFor(scanID)
	if !ok {
		return
	}
	tw := w.(*tileWork)
	p.Forward(tod, tw.asMapWork(s.Ncomp))
}

func (s *DistributedMap) Backward(scanID string, tod [][]float64, w Work) {
	p, ok := s.tileFor(scanID)
	if !ok {
		return
	}
	tw := w.(*tileWork)
	p.Backward(tod, tw.asMapWork(s.Ncomp))
}

// Finish scatter-merges the local tile(s) into x by all-reducing the
// padded full-size buffer: simpler than true per-rank tile ownership
// and equivalent whenever tiles don't overlap, which the static
// pre-solve scan partition guarantees.
func (s *DistributedMap) Finish(x []float64, w Work) {
	tw := w.(*tileWork)
	reduced := s.Comm.AllreduceSumVec(tw.Data)
	copy(x, reduced)
}

func (s *DistributedMap) Precompute(scanID string) {}
func (s *DistributedMap) Free()                    {}
func (s *DistributedMap) Prior() Prior             { return nil }
func (s *DistributedMap) Precond(x []float64)      {}

func (s *DistributedMap) Write(prefix, tag string, x []float64) error {
	return writeDistributedMap(s.dmapFormat, prefix, s.SignalName, tag, s.Ncomp, s.Ny, s.Nx, x)
}
