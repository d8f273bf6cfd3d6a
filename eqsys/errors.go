package eqsys

import "errors"

// ErrCutSignalOrder is returned by New when a Cut signal is not first
// in signal order.
var ErrCutSignalOrder = errors.New("eqsys: cut signal must be listed before any other signal")
