// Command mapmaker drives a preconditioned conjugate-gradient solve of
// the CMB map-making normal equations against a synthetic demo
// problem built from the reference scan/pointing/noise collaborators
// in package scan. It is a urfave/cli app with one flag-driven
// command per unit of work, a pond worker pool for batches of
// independent jobs, and a context/os-signal cancellation path.
package main

import (
	"context"
	"errors"
	"log"
	"math"
	"os"
	ossignal "os/signal"
	"runtime"
	"strconv"
	"time"

	"github.com/alitto/pond"
	"github.com/urfave/cli/v2"

	mapmaker "github.com/skyscan/mapmaker"
	"github.com/skyscan/mapmaker/comm"
	"github.com/skyscan/mapmaker/dof"
	"github.com/skyscan/mapmaker/eqsys"
	"github.com/skyscan/mapmaker/precond"
	"github.com/skyscan/mapmaker/scan"
	"github.com/skyscan/mapmaker/signal"
	"github.com/skyscan/mapmaker/solver"
	"github.com/skyscan/mapmaker/storage"
)

// problemSpec is one synthetic map-making instance: a grid of ny x nx
// pixels, nscan scans of ndet detectors and nsamp samples each,
// sampled by a GridPointing that wraps every detector onto the grid
// in a fixed raster pattern. It stands in for a caller's real pointing
// and noise collaborators, giving the solve path
// something concrete to run end to end.
type problemSpec struct {
	ny, nx      int
	ndet, nsamp int
	nscan       int
	maxIter     int
	tolerance   float64
	precondName string
	outURI      string
	outTag      string
	cfg         mapmaker.Config
}

// scanProjector adapts a scan.GridPointing + scan's own noise model
// into precond.ScanProjector, the minimal contract the binned
// preconditioner needs to measure PᵀW⁻¹P.
type scanProjector struct {
	grid        *scan.GridPointing
	noise       eqsys.NoiseModel
	ndet, nsamp int
}

func (p scanProjector) ForwardWhiteBackward(work []float64) []float64 {
	m := signal.NewMapWork(p.grid.Ncomp, p.grid.Ny, p.grid.Nx)
	copy(m.Data, work)

	tod := make([][]float64, p.ndet)
	for i := range tod {
		tod[i] = make([]float64, p.nsamp)
	}
	p.grid.Forward(tod, m)
	p.noise.White(tod)

	out := signal.NewMapWork(p.grid.Ncomp, p.grid.Ny, p.grid.Nx)
	p.grid.Backward(tod, out)
	return out.Data
}

func (p scanProjector) HitsBackward() []float64 {
	m := signal.NewMapWork(1, p.grid.Ny, p.grid.Nx)
	tod := make([][]float64, p.ndet)
	for i := range tod {
		tod[i] = make([]float64, p.nsamp)
		for s := range tod[i] {
			tod[i][s] = 1
		}
	}
	// a single-component grid only makes sense when ncomp==1; the
	// demo always measures hits against the T-component plane alone.
	single := &scan.GridPointing{Scan: p.grid.Scan, Ncomp: 1, Ny: p.grid.Ny, Nx: p.grid.Nx}
	single.Backward(tod, m)
	return m.Data
}

// buildDemoSystem synthesizes nscan raster scans over a ny x nx, one
// component grid and assembles them (a single replicated SignalMap,
// no cuts) into a solvable mapmaker.LinearSystemMap.
func buildDemoSystem(spec problemSpec, c comm.Comm) (*mapmaker.LinearSystemMap, []*scan.Scan, error) {
	ncomp := 1
	scans := make([]*scan.Scan, spec.nscan)
	eqScans := make([]eqsys.Scan, spec.nscan)
	pointings := make(map[string]*scan.GridPointing, spec.nscan)
	projectors := make([]precond.ScanProjector, spec.nscan)

	for i := 0; i < spec.nscan; i++ {
		boresight := make([][2]float64, spec.nsamp)
		offsets := make([][2]float64, spec.ndet)
		for s := 0; s < spec.nsamp; s++ {
			boresight[s] = [2]float64{
				math.Mod(float64(s+i), float64(spec.ny)),
				math.Mod(float64(s*2+i), float64(spec.nx)),
			}
		}

		variance := make([]float64, spec.ndet)
		for d := range variance {
			variance[d] = 1
		}
		noise := scan.NewWhiteNoise(variance)

		sc := scan.NewScan(scanID(i), boresight, offsets, 100.0, time.Now(), noise)
		sc.TOD = demoTOD(spec.ndet, spec.nsamp, i)

		scans[i] = sc
		eqScans[i] = sc

		grid := scan.NewGridPointing(sc, ncomp, spec.ny, spec.nx)
		pointings[sc.ID()] = grid
		projectors[i] = scanProjector{grid: grid, noise: noise, ndet: spec.ndet, nsamp: spec.nsamp}
	}

	div := precond.CalcDivMap(ncomp, spec.ny, spec.nx, projectors, c)
	mask := mapmaker.NewMask(div, spec.cfg.PrecondConditionLim)

	pointingFor := func(scanID string) signal.Pointing { return pointings[scanID] }
	sig := signal.NewMap("map", ncomp, spec.ny, spec.nx, pointingFor, c)
	sig.SetMask(mask.Valid)

	layout := dof.NewLayout(dof.Segment{Name: "map", Kind: dof.Shared, N: ncomp * spec.ny * spec.nx})
	eq, err := eqsys.New(eqScans, []signal.Signal{sig}, layout, c)
	if err != nil {
		return nil, nil, err
	}

	binned := precond.NewBinned(div, spec.cfg.EigLimit, mask.Valid)

	var pc mapmaker.Preconditioner
	switch spec.precondName {
	case "", "binned", "submap":
		pc = binned
	case "hitcount":
		hits := precond.CalcHitsMap(spec.ny, spec.nx, projectors, c)
		pc = precond.NewHitcount(spec.ny, spec.nx, hits)
	default:
		return nil, nil, mapmaker.ErrUnknownPreconditioner
	}

	ls, err := mapmaker.NewLinearSystemMap(eq, pc, c)
	if err != nil {
		return nil, nil, err
	}

	if spec.precondName == "submap" {
		// The outer system is preconditioned by a bounded inner CG
		// over a binned-preconditioned view of the same equation
		// system; b is computed once and shared.
		inner := &mapmaker.LinearSystemMap{Eqsys: eq, Precond: binned, Comm: c}
		ls.Precond = precond.NewSubmap(inner, spec.cfg.SubmapIterations)
		ls.Coarser = inner
	}
	return ls, scans, nil
}

func scanID(i int) string { return "scan" + strconv.Itoa(i) }

// demoTOD fills a [ndet][nsamp] block with a fixed detector-dependent
// offset, enough signal for the solve to have something to recover
// without pulling in an external data source.
func demoTOD(ndet, nsamp, scanIdx int) [][]float64 {
	tod := make([][]float64, ndet)
	for d := range tod {
		tod[d] = make([]float64, nsamp)
		sign := 1.0
		if d%2 == 1 {
			sign = -1.0
		}
		for s := range tod[d] {
			tod[d][s] = sign + 0.01*float64(scanIdx)
		}
	}
	return tod
}

// runSolve builds the demo system, computes b, and runs the
// preconditioned CG driver to convergence or the iteration cap,
// logging the relative residual each iteration.
func runSolve(spec problemSpec) error {
	c := comm.Self()

	ls, _, err := buildDemoSystem(spec, c)
	if err != nil {
		return err
	}

	opts := solver.Options{
		MaxIter:   spec.maxIter,
		Tolerance: spec.tolerance,
		Callback: func(iter int, x []float64, relResidual float64) {
			log.Printf("iter %d: relative residual %.3e", iter, relResidual)
		},
	}

	res, err := solver.Solve(ls, opts)
	if err != nil {
		return err
	}
	log.Printf("finished after %d iterations, converged=%v", res.Iterations, res.Converged)

	out, err := ls.Postprocess(res.X)
	if err != nil {
		return err
	}

	if spec.outURI != "" {
		tag := spec.outTag
		if tag == "" {
			tag = "solve"
		}
		if err := ls.Write(spec.outURI, tag, out); err != nil {
			return err
		}
		log.Println("wrote map to", spec.outURI)
	}

	return nil
}

// runSolveBatch submits n independent demo solves to a bounded pond
// pool: one worker per CPU, cancellable via ctrl-C, errors logged
// rather than aborting the batch.
func runSolveBatch(spec problemSpec, n int) error {
	if n <= 0 {
		return errors.New("mapmaker: batch count must be positive")
	}

	ctx, stop := ossignal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	workers := runtime.NumCPU()
	pool := pond.New(workers, 0, pond.MinWorkers(workers), pond.Context(ctx))
	defer pool.StopAndWait()

	for i := 0; i < n; i++ {
		jobSpec := spec
		jobSpec.outTag = "batch" + strconv.Itoa(i)
		idx := i
		pool.Submit(func() {
			log.Println("solving job", idx)
			if err := runSolve(jobSpec); err != nil {
				log.Println("job", idx, "failed:", err)
			}
		})
	}

	return nil
}

// solveFlags is the flag set shared by solve and solve-batch: the
// demo problem shape, the solver bounds, and the recognized config
// options snapshotted into mapmaker.Config.
func solveFlags() []cli.Flag {
	def := mapmaker.DefaultConfig()
	return []cli.Flag{
		&cli.IntFlag{Name: "ny", Value: 8, Usage: "map grid rows"},
		&cli.IntFlag{Name: "nx", Value: 8, Usage: "map grid columns"},
		&cli.IntFlag{Name: "ndet", Value: 2, Usage: "detectors per scan"},
		&cli.IntFlag{Name: "nsamp", Value: 256, Usage: "samples per scan"},
		&cli.IntFlag{Name: "nscan", Value: 4, Usage: "number of scans"},
		&cli.IntFlag{Name: "max-iter", Value: 50, Usage: "CG iteration cap"},
		&cli.Float64Flag{Name: "tolerance", Value: 1e-8, Usage: "relative residual stopping tolerance"},
		&cli.StringFlag{Name: "precond", Value: "binned", Usage: "preconditioner: binned, hitcount or submap"},
		&cli.StringFlag{Name: "out-uri", Usage: "TileDB prefix URI to write the solved map to"},
		&cli.Float64Flag{Name: "precond-condition-lim", Value: def.PrecondConditionLim, Usage: "polarization block condition-number mask limit"},
		&cli.Float64Flag{Name: "eig-limit", Value: def.EigLimit, Usage: "relative eigenvalue floor for per-pixel pseudoinverses"},
		&cli.StringFlag{Name: "dmap-format", Value: def.DmapFormat, Usage: "distributed-map persistence layout: merged or tiles"},
		&cli.IntFlag{Name: "submap-iter", Value: def.SubmapIterations, Usage: "inner CG iteration cap for the submap preconditioner"},
	}
}

// specFromCtx snapshots the flags into a problemSpec, validating the
// config options that take an enumerated value.
func specFromCtx(cCtx *cli.Context) (problemSpec, error) {
	cfg := mapmaker.Config{
		PrecondConditionLim: cCtx.Float64("precond-condition-lim"),
		EigLimit:            cCtx.Float64("eig-limit"),
		DmapFormat:          cCtx.String("dmap-format"),
		SubmapIterations:    cCtx.Int("submap-iter"),
	}
	if cfg.DmapFormat != "merged" && cfg.DmapFormat != "tiles" {
		return problemSpec{}, storage.ErrUnknownDmapFormat
	}
	return problemSpec{
		ny:          cCtx.Int("ny"),
		nx:          cCtx.Int("nx"),
		ndet:        cCtx.Int("ndet"),
		nsamp:       cCtx.Int("nsamp"),
		nscan:       cCtx.Int("nscan"),
		maxIter:     cCtx.Int("max-iter"),
		tolerance:   cCtx.Float64("tolerance"),
		precondName: cCtx.String("precond"),
		outURI:      cCtx.String("out-uri"),
		cfg:         cfg,
	}, nil
}

func main() {
	app := &cli.App{
		Name:  "mapmaker",
		Usage: "solve the CMB map-making normal equations against a synthetic demo problem",
		Commands: []*cli.Command{
			{
				Name:  "solve",
				Usage: "run one preconditioned CG solve",
				Flags: solveFlags(),
				Action: func(cCtx *cli.Context) error {
					spec, err := specFromCtx(cCtx)
					if err != nil {
						return err
					}
					return runSolve(spec)
				},
			},
			{
				Name:  "solve-batch",
				Usage: "run N independent demo solves across a worker pool",
				Flags: append(solveFlags(),
					&cli.IntFlag{Name: "n", Value: 4, Usage: "number of independent jobs"},
				),
				Action: func(cCtx *cli.Context) error {
					spec, err := specFromCtx(cCtx)
					if err != nil {
						return err
					}
					return runSolveBatch(spec, cCtx.Int("n"))
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
