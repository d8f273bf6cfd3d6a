package storage

import (
	"errors"
	"fmt"
	"math"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
)

// ArrayOpen opens an existing tiledb array in the given mode.
func ArrayOpen(ctx *tiledb.Context, uri string, mode tiledb.QueryType) (*tiledb.Array, error) {
	array, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return nil, errors.Join(ErrOpenArrayTdb, err)
	}
	if err := array.Open(mode); err != nil {
		array.Free()
		return nil, errors.Join(ErrOpenArrayTdb, err)
	}
	return array, nil
}

// dimName is the fixed per-axis dimension name this package uses:
// row-major axes "D0", "D1", ... The core only ever persists plain
// Ncomp/Ny/Nx or flat junk shapes.
func dimName(axis int) string { return fmt.Sprintf("D%d", axis) }

// createDenseSchema builds a dense float64 array schema over the
// given shape: one dimension per axis with a tile extent capped at
// 50000 (or the axis length if smaller), row-major cell and tile
// order.
func createDenseSchema(ctx *tiledb.Context, shape []uint64) (*tiledb.ArraySchema, error) {
	domain, err := tiledb.NewDomain(ctx)
	if err != nil {
		return nil, errors.Join(ErrCreateSchemaTdb, err)
	}
	defer domain.Free()

	for axis, n := range shape {
		tileExtent := uint64(math.Min(50000, float64(n)))
		if tileExtent == 0 {
			tileExtent = 1
		}
		dim, err := tiledb.NewDimension(ctx, dimName(axis), tiledb.TILEDB_UINT64, []uint64{0, n - 1}, tileExtent)
		if err != nil {
			return nil, errors.Join(ErrCreateSchemaTdb, err)
		}
		if err := domain.AddDimensions(dim); err != nil {
			dim.Free()
			return nil, errors.Join(ErrCreateSchemaTdb, err)
		}
		dim.Free()
	}

	schema, err := tiledb.NewArraySchema(ctx, tiledb.TILEDB_DENSE)
	if err != nil {
		return nil, errors.Join(ErrCreateSchemaTdb, err)
	}
	if err := schema.SetDomain(domain); err != nil {
		return nil, errors.Join(ErrCreateSchemaTdb, err)
	}
	if err := schema.SetCellOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return nil, errors.Join(ErrCreateSchemaTdb, err)
	}
	if err := schema.SetTileOrder(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return nil, errors.Join(ErrCreateSchemaTdb, err)
	}
	if err := createValueAttr(schema, ctx); err != nil {
		return nil, errors.Join(ErrCreateSchemaTdb, err)
	}
	return schema, nil
}

// WriteArray persists a row-major flat float64 buffer of the given
// shape to a fresh dense tiledb array at uri, used as given (callers
// such as WriteFlatArray compose it with FileName). It always creates the array
// (these are write-once solver outputs, not updated in place).
func WriteArray(ctx *tiledb.Context, uri string, shape []uint64, data []float64) error {
	total := uint64(1)
	for _, n := range shape {
		total *= n
	}
	if total != uint64(len(data)) {
		return fmt.Errorf("storage: shape %v does not match data length %d", shape, len(data))
	}

	schema, err := createDenseSchema(ctx, shape)
	if err != nil {
		return err
	}
	defer schema.Free()

	array, err := tiledb.NewArray(ctx, uri)
	if err != nil {
		return errors.Join(ErrCreateArrayTdb, err)
	}
	defer array.Free()
	if err := array.Create(schema); err != nil {
		return errors.Join(ErrCreateArrayTdb, err)
	}

	wArray, err := ArrayOpen(ctx, uri, tiledb.TILEDB_WRITE)
	if err != nil {
		return errors.Join(ErrWriteArrayTdb, err)
	}
	defer wArray.Free()
	defer wArray.Close()

	query, err := tiledb.NewQuery(ctx, wArray)
	if err != nil {
		return errors.Join(ErrWriteArrayTdb, err)
	}
	defer query.Free()

	if err := query.SetLayout(tiledb.TILEDB_ROW_MAJOR); err != nil {
		return errors.Join(ErrWriteArrayTdb, err)
	}
	if _, err := query.SetDataBuffer("Value", data); err != nil {
		return errors.Join(ErrWriteArrayTdb, err)
	}
	if err := query.Submit(); err != nil {
		return errors.Join(ErrWriteArrayTdb, err)
	}
	return nil
}

// ReadArray reads the whole "Value" attribute back out of a dense
// array previously written by WriteArray.
func ReadArray(ctx *tiledb.Context, uri string, total int) ([]float64, error) {
	array, err := ArrayOpen(ctx, uri, tiledb.TILEDB_READ)
	if err != nil {
		return nil, errors.Join(ErrReadArrayTdb, err)
	}
	defer array.Free()
	defer array.Close()

	query, err := tiledb.NewQuery(ctx, array)
	if err != nil {
		return nil, errors.Join(ErrReadArrayTdb, err)
	}
	defer query.Free()

	data := make([]float64, total)
	if _, err := query.SetDataBuffer("Value", data); err != nil {
		return nil, errors.Join(ErrReadArrayTdb, err)
	}
	if err := query.Submit(); err != nil {
		return nil, errors.Join(ErrReadArrayTdb, err)
	}
	return data, nil
}
