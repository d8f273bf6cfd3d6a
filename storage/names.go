package storage

import (
	"errors"
	"fmt"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

// FileName composes {prefix}{name}_{tag}.{ext}, the naming scheme
// used for every persisted output (rhs, div, hits, mask, junk; this
// package uses a uniform ".tdb" extension for
// every array kind since all of them are TileDB arrays here, not a
// mix of FITS and HDF5).
func FileName(prefix, name, tag string) string {
	return fmt.Sprintf("%s%s_%s.tdb", prefix, name, tag)
}

// PhaseFileName composes the per-rank phase-signal variant,
// {prefix}{name}_{tag}_{rank:02}.{ext}.
func PhaseFileName(prefix, name, tag string, rank int) string {
	return fmt.Sprintf("%s%s_%s_%02d.tdb", prefix, name, tag, rank)
}

// CutFileName composes the per-pattern cut/phase variant,
// {prefix}{name}_{tag}_{pid:02}_{az0}_{az1}_{el}.{ext}.
func CutFileName(prefix, name, tag string, pid int, az0, az1, el float64) string {
	return fmt.Sprintf("%s%s_%s_%02d_%g_%g_%g.tdb", prefix, name, tag, pid, az0, az1, el)
}

// WriteFlatArray is the package's single entry point for persisting a
// signal's or preconditioner's data: it builds a tiledb.Context with
// default config, composes the file name, and writes a row-major
// float64 buffer of the given shape.
func WriteFlatArray(prefix, name, tag string, shape []int, data []float64) error {
	cfg, err := tiledb.NewConfig()
	if err != nil {
		return errors.Join(ErrCreateArrayTdb, err)
	}
	defer cfg.Free()

	ctx, err := tiledb.NewContext(cfg)
	if err != nil {
		return errors.Join(ErrCreateArrayTdb, err)
	}
	defer ctx.Free()

	u64shape := make([]uint64, len(shape))
	for i, n := range shape {
		u64shape[i] = uint64(n)
	}
	return WriteArray(ctx, FileName(prefix, name, tag), u64shape, data)
}
