package signal

// PostFilter is one step of a Map signal's postprocess chain
// (Eqsys.postprocess), run after the solve to derive auxiliary
// outputs (e.g. a crosslink map or point-source amplitude map) without
// perturbing the solved x itself.
type PostFilter func(x []float64) []float64

// RunPostChain runs every filter in order, feeding each one's output
// to the next.
func RunPostChain(x []float64, chain []PostFilter) []float64 {
	cur := x
	for _, f := range chain {
		cur = f(cur)
	}
	return cur
}

// PostAddMap returns a PostFilter adding a fixed template map (e.g. a
// crosslink or point-source map computed alongside the solve) to the
// solved element.
func PostAddMap(template []float64) PostFilter {
	return func(x []float64) []float64 {
		out := make([]float64, len(x))
		copy(out, x)
		for i := range template {
			out[i] += template[i]
		}
		return out
	}
}

// WithCrosslinkComponents temporarily overwrites a scan's response
// components for the duration of fn, restoring the original slice on
// every exit path (including panics) via defer.
func WithCrosslinkComponents(scan interface{ SetComps([][]float64) }, original, crosslink [][]float64, fn func()) {
	scan.SetComps(crosslink)
	defer scan.SetComps(original)
	fn()
}

// CrosslinkScan is what crosslink-map accumulation needs from a scan:
// its identity, shape, and a swappable response-component matrix.
type CrosslinkScan interface {
	ID() string
	NDet() int
	NSamp() int
	Comps() [][]float64
	SetComps([][]float64)
}

// CalcCrosslinkMap backprojects a unit TOD for every scan with each
// detector's response temporarily replaced by the crosslink
// components, producing the map of scan-direction coverage. The
// original components are restored on every exit path.
func CalcCrosslinkMap(m *Map, scans []CrosslinkScan, crosslink [][]float64) []float64 {
	w := m.Work().(*MapWork)
	for _, sc := range scans {
		WithCrosslinkComponents(sc, sc.Comps(), crosslink, func() {
			tod := make([][]float64, sc.NDet())
			for d := range tod {
				tod[d] = make([]float64, sc.NSamp())
				for s := range tod[d] {
					tod[d][s] = 1
				}
			}
			m.Backward(sc.ID(), tod, w)
		})
	}
	out := m.Zeros()
	m.Finish(out, w)
	return out
}
