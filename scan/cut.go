package scan

import "github.com/skyscan/mapmaker/rangelist"

// RangeCutPointing maps the samples a scan's cut mask covers to and
// from a flat junk vector, walking cuts in (detector, sample) order.
// Forward overwrites the cut samples with the junk values so the junk
// unknowns dominate whatever another signal projected there first;
// Backward pulls the cut samples into the junk vector and zeroes them
// in the TOD so signals projected after it see no cut contribution.
type RangeCutPointing struct {
	Cuts rangelist.Multirange
}

func NewRangeCutPointing(cuts rangelist.Multirange) *RangeCutPointing {
	return &RangeCutPointing{Cuts: cuts}
}

// NJunk is the junk vector length: one slot per cut sample.
func (p *RangeCutPointing) NJunk() int { return p.Cuts.Sum() }

func (p *RangeCutPointing) Forward(tod [][]float64, junk []float64) {
	j := 0
	for d, r := range p.Cuts.Data {
		for _, rg := range r.Ranges {
			for s := rg.From; s < rg.To; s++ {
				tod[d][s] = junk[j]
				j++
			}
		}
	}
}

func (p *RangeCutPointing) Backward(tod [][]float64, junk []float64) {
	j := 0
	for d, r := range p.Cuts.Data {
		for _, rg := range r.Ranges {
			for s := rg.From; s < rg.To; s++ {
				junk[j] += tod[d][s]
				tod[d][s] = 0
				j++
			}
		}
	}
}
