package storage

import (
	"errors"
	"reflect"

	tiledb "github.com/TileDB-Inc/TileDB-Go"
	stgpsr "github.com/yuin/stagparser"
)

// record is the tagged struct every persisted array is described by:
// one float64 attribute named "Value" compressed with zstd. Schema
// generation is driven from this struct's tags via stagparser rather
// than hand-coding one schema per array kind.
type record struct {
	Value float64 `tiledb:"dtype=float64,ftype=attr" filters:"zstd(level=16)"`
}

// ZstdFilter returns a zstd compression filter at the given level.
func ZstdFilter(ctx *tiledb.Context, level int32) (*tiledb.Filter, error) {
	filt, err := tiledb.NewFilter(ctx, tiledb.TILEDB_FILTER_ZSTD)
	if err != nil {
		return nil, err
	}
	if err := filt.SetOption(tiledb.TILEDB_COMPRESSION_LEVEL, level); err != nil {
		filt.Free()
		return nil, err
	}
	return filt, nil
}

// AddFilters appends each filter to the list, stopping on the first error.
func AddFilters(list *tiledb.FilterList, filters ...*tiledb.Filter) error {
	for _, f := range filters {
		if err := list.AddFilter(f); err != nil {
			return err
		}
	}
	return nil
}

// createValueAttr builds the schema's single "Value" attribute from
// record's tags. Every array kind here needs just the one float64
// attribute (div/hits/mask/rhs/junk are all flat float64 payloads;
// only their domain shape differs).
func createValueAttr(schema *tiledb.ArraySchema, ctx *tiledb.Context) error {
	filtDefs, _ := stgpsr.ParseStruct(&record{}, "filters")
	tdbDefs, _ := stgpsr.ParseStruct(&record{}, "tiledb")

	name := reflect.TypeOf(record{}).Field(0).Name // "Value"

	attr, err := tiledb.NewAttribute(ctx, name, tiledb.TILEDB_FLOAT64)
	if err != nil {
		return errors.Join(ErrCreateAttributeTdb, err)
	}
	defer attr.Free()

	filterList, err := tiledb.NewFilterList(ctx)
	if err != nil {
		return errors.Join(ErrCreateAttributeTdb, err)
	}
	defer filterList.Free()

	for _, def := range filtDefs[name] {
		if def.Name() != "zstd" {
			continue
		}
		level := int32(16)
		if lv, ok := def.Attribute("level"); ok {
			if iv, ok := lv.(int64); ok {
				level = int32(iv)
			}
		}
		filt, err := ZstdFilter(ctx, level)
		if err != nil {
			return errors.Join(ErrAddFilters, err)
		}
		defer filt.Free()
		if err := AddFilters(filterList, filt); err != nil {
			return errors.Join(ErrAddFilters, err)
		}
	}
	_ = tdbDefs // dtype is fixed to float64 for every array this package persists

	if err := attr.SetFilterList(filterList); err != nil {
		return errors.Join(ErrCreateAttributeTdb, err)
	}
	return schema.AddAttributes(attr)
}
