package mapmaker

// Config is a snapshot of the solve-wide tuning options. It is built
// once at the start of a solve (cmd/mapmaker populates one from CLI
// flags) and threaded through explicitly; system assembly reads it as
// a plain parameter instead of consulting a global. Per-component
// tuning that only one constructor ever sees (the TOD preconditioner
// noise cap, scan-grouping tolerances, the effective-scan oversample
// factor) stays a plain argument on that constructor instead of
// living here.
type Config struct {
	// PrecondConditionLim is the maximum allowed condition number for
	// a per-pixel polarization sub-block before the pixel is masked
	// out. Default 10.
	PrecondConditionLim float64
	// EigLimit is the relative eigenvalue floor used by the per-pixel
	// block pseudoinverse. Default 1e-6.
	EigLimit float64
	// DmapFormat selects how a SignalDistributedMap is persisted:
	// "merged" combines tiles into one array before writing, "tiles"
	// writes each tile separately.
	DmapFormat string
	// SubmapIterations is the fixed inner CG iteration count the
	// submap preconditioner runs per apply. Default 20.
	SubmapIterations int
}

// DefaultConfig returns the standard defaults.
func DefaultConfig() Config {
	return Config{
		PrecondConditionLim: 10.0,
		EigLimit:            1e-6,
		DmapFormat:          "merged",
		SubmapIterations:    20,
	}
}
