package storage

import "fmt"

// Tile is one rank-owned piece of a distributed map: its pixel offset
// within the full map and its own flat Ncomp*h*w data.
type Tile struct {
	Y0, X0, H, W int
	Data         []float64
}

// WriteDistributedMap persists a SignalDistributedMap's tiles
// according to dmap_format: "merged" scatters every tile into
// one full-size array before writing, "tiles" writes each tile as its
// own array suffixed by its offset. Any pixel not covered by a tile
// is left zero in the merged case.
func WriteDistributedMap(dmapFormat, prefix, name, tag string, ncomp, ny, nx int, tiles []Tile) error {
	switch dmapFormat {
	case "merged":
		merged := make([]float64, ncomp*ny*nx)
		for _, t := range tiles {
			for c := 0; c < ncomp; c++ {
				for y := 0; y < t.H; y++ {
					for x := 0; x < t.W; x++ {
						src := (c*t.H+y)*t.W + x
						dst := (c*ny+(t.Y0+y))*nx + (t.X0 + x)
						merged[dst] = t.Data[src]
					}
				}
			}
		}
		return WriteFlatArray(prefix, name, tag, []int{ncomp, ny, nx}, merged)

	case "tiles":
		for i, t := range tiles {
			tileName := tileTag(name, i, t)
			if err := WriteFlatArray(prefix, tileName, tag, []int{ncomp, t.H, t.W}, t.Data); err != nil {
				return err
			}
		}
		return nil

	default:
		return ErrUnknownDmapFormat
	}
}

func tileTag(name string, idx int, t Tile) string {
	return fmt.Sprintf("%s_tile%02d_%d_%d", name, idx, t.Y0, t.X0)
}
