package storage

import "errors"

// TileDB array lifecycle sentinel errors, one per failure site so
// callers can tell a schema problem from a write problem.
var (
	ErrCreateSchemaTdb    = errors.New("storage: error creating tiledb array schema")
	ErrCreateAttributeTdb = errors.New("storage: error creating tiledb attribute")
	ErrCreateArrayTdb     = errors.New("storage: error creating tiledb array")
	ErrWriteArrayTdb      = errors.New("storage: error writing tiledb array")
	ErrReadArrayTdb       = errors.New("storage: error reading tiledb array")
	ErrOpenArrayTdb       = errors.New("storage: error opening tiledb array")
	ErrAddFilters         = errors.New("storage: error adding filter to filter list")
	ErrUnknownDmapFormat  = errors.New("storage: unknown dmap_format")
)
