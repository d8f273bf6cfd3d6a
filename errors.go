package mapmaker

import "errors"

// Configuration errors: fatal, caught at system-assembly time.
var (
	ErrUnknownPreconditioner = errors.New("mapmaker: unknown preconditioner name")
	ErrCutSignalOrder        = errors.New("mapmaker: cut signal must be listed before any other signal")
)

// Shape/invariant errors.
var (
	ErrDOFSizeMismatch = errors.New("mapmaker: dof unzip size does not match layout")
	ErrLevelMismatch   = errors.New("mapmaker: fine/coarse level shapes are incompatible")
)
