// Package mapmaker assembles and solves the CMB map-making normal
// equations (P'N"P) m = P'N"d for a sky map m and a per-scan junk
// vector, given external pointing, noise and solver collaborators.
//
// The package itself holds the collaborator interfaces (Scan, Area,
// Pointing, NoiseModel), the mask construction shared by every
// preconditioner, and LinearSystemMap, which wires the dof, signal,
// eqsys and precond packages together into one solvable system. The
// layered engine itself lives in the subpackages.
package mapmaker

import "github.com/skyscan/mapmaker/rangelist"

// TOD is a [ndet][nsamp] time-ordered-data block for one scan.
type TOD [][]float64

// ZeroTOD allocates a [ndet][nsamp] block of zeros.
func ZeroTOD(ndet, nsamp int) TOD {
	tod := make(TOD, ndet)
	for i := range tod {
		tod[i] = make([]float64, nsamp)
	}
	return tod
}

// Fill sets every sample of the TOD to v.
func (t TOD) Fill(v float64) {
	for _, row := range t {
		for i := range row {
			row[i] = v
		}
	}
}

// Scan is the minimum a scan must expose for the map-making core: its
// geometry, its cut mask, its mutable noise model and its raw samples.
// Everything telescope-specific (how the boresight was recorded, how
// pointing is actually computed) is the caller's responsibility.
type Scan interface {
	ID() string
	NDet() int
	NSamp() int
	SampleRate() float64
	// Comps returns the per-detector response components, [ndet][ncomp].
	Comps() [][]float64
	// Cut returns the per-detector cut mask.
	Cut() rangelist.Multirange
	Noise() NoiseModel
	SetNoise(NoiseModel)
	// Samples returns the raw [ndet][nsamp] sample matrix (d).
	Samples() (TOD, error)
}

// NoiseModel is the per-scan noise covariance collaborator: Apply
// multiplies by N", White by a white approximation W", and Update
// refits the model from fresh TOD data.
type NoiseModel interface {
	Apply(tod TOD)
	White(tod TOD)
	Update(tod TOD, srate float64) NoiseModel
	// Bins returns the [nbin][2]float64 frequency bin edges.
	Bins() [][2]float64
	// ICovs returns the per-bin detector-detector inverse covariance,
	// [nbin][ndet][ndet], used by group.FuseNoiseModels.
	ICovs() [][][]float64
	// Diag returns the per-detector white/correlated diagonal terms
	// (D, E) used by precond.TODBased's noise clamp.
	Diag() (D, E []float64)
}

// Pointing maps an Area's pixels into detector samples and back, for
// one scan.
type Pointing interface {
	Forward(tod TOD, area *Area)
	Backward(tod TOD, area *Area)
}

// DistributedPointing additionally exposes the coordinate translation
// used by scan grouping to analyze a scan's bounding box and step
// vectors without doing a full projection.
type DistributedPointing interface {
	Pointing
	// Translate maps a set of points ([npoint][ncoord]) into pixel
	// coordinates ([npoint][2]) plus any auxiliary data.
	Translate(points [][]float64) (pixels [][2]float64, aux interface{})
}

// CutPointing maps a scan's cut samples to and from a 1-D junk vector
// of length NJunk.
type CutPointing interface {
	NJunk() int
	Forward(tod TOD, junk []float64)
	Backward(tod TOD, junk []float64)
}

// RebinPointing maps an Area between a fine and a coarse level,
// spatial resolution halved.
type RebinPointing interface {
	Forward(fine, coarse *Area)
	Backward(fine, coarse *Area)
}

// CutRebinPointing is RebinPointing's junk-vector counterpart.
type CutRebinPointing interface {
	Forward(fine, coarse []float64)
	Backward(fine, coarse []float64)
}
