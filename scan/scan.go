// Package scan provides reference Scan, NoiseModel and pointing
// implementations standing in for the telescope-specific collaborators
// the core only consumes through interfaces. Used by tests and the
// CLI demo path.
package scan

import (
	"math"
	"time"

	"github.com/skyscan/mapmaker/eqsys"
	"github.com/skyscan/mapmaker/rangelist"
	"github.com/soniakeys/meeus/v3/julian"
)

// Scan is a reference telescope scan: a fixed boresight track plus
// per-detector pointing offsets, enough to drive a GridPointing and
// satisfy eqsys.Scan.
type Scan struct {
	ScanID    string
	Boresight [][2]float64         // [nsamp][2] (y,x) pointing per sample
	Offsets   [][2]float64         // [ndet][2] fixed per-detector offset
	Rate      float64              // samples/sec
	TOD       [][]float64          // [ndet][nsamp] raw data
	Cuts      rangelist.Multirange // per-detector cut mask
	Mjd0      float64              // reference modified Julian date, julian-derived
	noise     eqsys.NoiseModel
}

// Cut returns the per-detector cut mask.
func (s *Scan) Cut() rangelist.Multirange { return s.Cuts }

// NewScan builds a Scan, deriving Mjd0 from a wall-clock reference
// time.
func NewScan(id string, boresight, offsets [][2]float64, rate float64, ref time.Time, noise eqsys.NoiseModel) *Scan {
	jd := julian.TimeToJD(ref)
	cuts := make([]rangelist.Rangelist, len(offsets))
	for i := range cuts {
		cuts[i] = rangelist.Zeros(len(boresight))
	}
	return &Scan{
		ScanID:    id,
		Boresight: boresight,
		Offsets:   offsets,
		Rate:      rate,
		TOD:       make([][]float64, len(offsets)),
		Cuts:      rangelist.NewMultirange(cuts),
		Mjd0:      jd - 2400000.5,
		noise:     noise,
	}
}

func (s *Scan) ID() string          { return s.ScanID }
func (s *Scan) NDet() int           { return len(s.Offsets) }
func (s *Scan) NSamp() int          { return len(s.Boresight) }
func (s *Scan) SampleRate() float64 { return s.Rate }

func (s *Scan) Samples() ([][]float64, error) {
	if s.TOD == nil || len(s.TOD) != s.NDet() {
		s.TOD = make([][]float64, s.NDet())
	}
	for i := range s.TOD {
		if s.TOD[i] == nil {
			s.TOD[i] = make([]float64, s.NSamp())
		}
	}
	return s.TOD, nil
}

func (s *Scan) Noise() eqsys.NoiseModel   { return s.noise }
func (s *Scan) SetNoise(n eqsys.NoiseModel) { s.noise = n }

// Pointing translates a sample index for a given detector into a
// fractional (y,x) sky pixel: boresight plus the detector's fixed
// offset (a single-dish flat-sky approximation).
func (s *Scan) Pointing(det, samp int) (y, x float64) {
	b := s.Boresight[samp]
	o := s.Offsets[det]
	return b[0] + o[0], b[1] + o[1]
}

// BuildTriangleWave builds a simplified
// triangle-wave scanning pattern with a fixed period of 2 samples: each
// sample alternates between boxLo and boxLo+ivec0 while drifting by
// ivec1 per sample. It does not take a box extent, so the sweep spans
// exactly one ivec0 step. Package group does not call it.
func BuildTriangleWave(boxLo, ivec0, ivec1 []float64, nsamp int) [][2]float64 {
	period := 2.0
	out := make([][2]float64, nsamp)
	for i := 0; i < nsamp; i++ {
		t := float64(i)
		phase := math.Mod(t, period)
		if phase > period/2 {
			phase = period - phase
		}
		y := boxLo[0] + ivec1[0]*t + ivec0[0]*phase
		x := boxLo[1] + ivec1[1]*t + ivec0[1]*phase
		out[i] = [2]float64{y, x}
	}
	return out
}
