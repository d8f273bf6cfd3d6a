// Package signal implements the first-class
// objects an Eqsys combines, each owning one kind of unknown (a sky
// map, per-scan junk, per-pattern phase pickup) and knowing how to
// project it to and from detector samples.
package signal

import "github.com/skyscan/mapmaker/comm"

// Work is an opaque per-rank working buffer a Signal derives from a
// global element via Prepare, and accumulates into via Backward.
// Concrete signals type-assert it back to their own representation.
type Work interface{}

// Signal is the contract every L1 unknown-owner satisfies.
type Signal interface {
	// Name identifies this signal in Eqsys ordering and in persisted
	// file names.
	Name() string
	// Zeros returns a fresh zero element of the signal's natural
	// storage.
	Zeros() []float64
	// Prepare derives a per-rank work buffer from a global element.
	Prepare(x []float64) Work
	// Work returns a zeroed work buffer, cheaper than
	// Prepare(Zeros()).
	Work() Work
	// Forward accumulates into tod the samples this signal's
	// pointing operator produces for scanID, from work.
	Forward(scanID string, tod [][]float64, w Work)
	// Backward accumulates into work the adjoint projection of tod
	// for scanID.
	Backward(scanID string, tod [][]float64, w Work)
	// Finish reduces a work buffer into the global element x: an
	// all-reduce-sum for replicated maps, a tile-merge for
	// distributed maps, a plain copy for rank-local junk.
	Finish(x []float64, w Work)
	// Precompute optionally caches pointing auxiliary state (pixel
	// indices, sub-pixel phases) across successive Forward/Backward
	// calls against the same scan. Free releases it. Calls must be
	// paired and are invalidated across scans.
	Precompute(scanID string)
	Free()
	// Prior optionally adds an additive term Λ(x) to owork, run once
	// per Finish in Eqsys.A. Signals without a prior
	// return nil.
	Prior() Prior
	// Precond runs this signal's local preconditioner over x in
	// place (Eqsys.M).
	Precond(x []float64)
	// Write persists x via the storage collaborator, keyed by the
	// given prefix and tag.
	Write(prefix, tag string, x []float64) error
}

// Prior is a signal's optional additive regularization term Λ(x).
type Prior interface {
	Apply(x []float64) []float64
}

// Base is embedded by every concrete Signal to hold the fields common
// to all variants and to provide Name; each variant defines its own
// Prior, Precompute and the rest of the interface.
type Base struct {
	SignalName string
	Comm       comm.Comm
}

func (b Base) Name() string { return b.SignalName }

// NoPrior is returned by signals with no regularization term.
func NoPrior() Prior { return nil }
