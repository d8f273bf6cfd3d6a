package signal

import "github.com/skyscan/mapmaker/storage"

// writeArray persists one signal's flat global element through the
// storage collaborator.
func writeArray(prefix, name, tag string, ncomp, ny, nx int, data []float64) error {
	return storage.WriteFlatArray(prefix, name, tag, []int{ncomp, ny, nx}, data)
}

// writeDistributedMap routes a tiled map's write through the
// configured dmap format: this reference wiring has the whole map at
// write time (no real cross-process tile ownership), so it writes one
// tile spanning the full map in the "tiles" case and the merged array
// directly otherwise.
func writeDistributedMap(dmapFormat, prefix, name, tag string, ncomp, ny, nx int, data []float64) error {
	return storage.WriteDistributedMap(dmapFormat, prefix, name, tag, ncomp, ny, nx, []storage.Tile{
		{Y0: 0, X0: 0, H: ny, W: nx, Data: data},
	})
}
