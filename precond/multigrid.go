package precond

// RebinPointing is the fine/coarse map rebinning collaborator:
// Forward rebins fine to coarse, Backward prolongs coarse back to
// fine.
type RebinPointing interface {
	Forward(fine, coarse []float64)
	Backward(fine, coarse []float64)
}

// CutRebinPointing is the junk-vector counterpart.
type CutRebinPointing interface {
	Forward(fine, coarse []float64)
	Backward(fine, coarse []float64)
}

// LevelBridge ties two systems related by spatial and temporal
// decimation by 2: Up rebins fine maps/junk to coarse, Down
// prolongs coarse back to fine. The core only guarantees matching DOF
// layouts across levels; cycling policy is the solver driver's.
type LevelBridge struct {
	Map  RebinPointing
	Cut  CutRebinPointing
}

// Up rebins a fine-level map (and, if non-nil, junk vector) down to
// the coarse level.
func (b LevelBridge) Up(fineMap, coarseMap, fineJunk, coarseJunk []float64) {
	b.Map.Forward(fineMap, coarseMap)
	if b.Cut != nil && fineJunk != nil {
		b.Cut.Forward(fineJunk, coarseJunk)
	}
}

// Down prolongs a coarse-level map (and junk vector) up to the fine
// level.
func (b LevelBridge) Down(fineMap, coarseMap, fineJunk, coarseJunk []float64) {
	b.Map.Backward(fineMap, coarseMap)
	if b.Cut != nil && fineJunk != nil {
		b.Cut.Backward(fineJunk, coarseJunk)
	}
}
