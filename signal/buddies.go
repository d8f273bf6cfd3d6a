package signal

import "github.com/skyscan/mapmaker/comm"

// BuddyPointing is the secondary multibeam pointing operator a
// MapBuddies signal projects through in addition to the primary beam,
// modelling optical "buddy" responses.
type BuddyPointing interface {
	Pointing
}

// MapBuddies is SignalMapBuddies: a SignalMap plus an additional
// buddy pointing operator applied in both directions onto the same
// map, so a single map absorbs both the primary and secondary beam
// response.
type MapBuddies struct {
	*Map
	Buddy func(scanID string) BuddyPointing
}

// NewMapBuddies wraps a Map with a per-scan buddy pointing factory.
func NewMapBuddies(m *Map, buddy func(string) BuddyPointing, c comm.Comm) *MapBuddies {
	m.Comm = c
	return &MapBuddies{Map: m, Buddy: buddy}
}

func (s *MapBuddies) Forward(scanID string, tod [][]float64, w Work) {
	s.Map.Forward(scanID, tod, w)
	if b := s.Buddy(scanID); b != nil {
		b.Forward(tod, w.(*MapWork))
	}
}

func (s *MapBuddies) Backward(scanID string, tod [][]float64, w Work) {
	s.Map.Backward(scanID, tod, w)
	if b := s.Buddy(scanID); b != nil {
		b.Backward(tod, w.(*MapWork))
	}
}
