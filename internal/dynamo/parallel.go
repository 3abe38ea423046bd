package dynamo

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Ensemble runs numRuns independent trajectories. Run i uses seed
// seedStart+i, so results do not depend on scheduling.
type Ensemble struct {
	// Factory builds the simulator for one run. Metrics and observers hold
	// per-run state, so they must be created here rather than shared.
	Factory func(run int) *Simulator
	// Workers bounds the number of trajectories alive at once.
	Workers int

	numRuns   int
	seedStart int64
}

func NewEnsemble(s *Simulator, numRuns int, seedStart int64) *Ensemble {
	return &Ensemble{
		Factory: func(int) *Simulator {
			clone := New(s.sys)
			clone.newRand = s.newRand
			return clone
		},
		Workers:   runtime.NumCPU(),
		numRuns:   numRuns,
		seedStart: seedStart,
	}
}

func (e *Ensemble) NumRuns() int     { return e.numRuns }
func (e *Ensemble) SeedStart() int64 { return e.seedStart }

// Run keeps every full result. Prefer Collect for large ensembles.
func (e *Ensemble) Run(ctx context.Context, x0 Population, cfg Config) ([]*Result, error) {
	return Collect(ctx, e, x0, cfg, func(_ int, r *Result) *Result { return r }, nil)
}

// Collect runs the ensemble, reducing each result inside its worker so the
// trajectory can be dropped early. emit, when non-nil, is called once per
// run in strict run-index order regardless of completion order, which keeps
// running statistics reproducible under concurrency.
func Collect[T any](
	ctx context.Context,
	e *Ensemble,
	x0 Population,
	cfg Config,
	reduce func(run int, r *Result) T,
	emit func(run int, v T),
) ([]T, error) {
	if e.numRuns <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidRuns, e.numRuns)
	}

	workers := e.Workers
	if workers <= 0 {
		workers = 1
	}

	out := make([]T, e.numRuns)
	ready := make([]bool, e.numRuns)
	next := 0
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < e.numRuns; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		g.Go(func() error {
			runCfg := cfg
			runCfg.Seed = e.seedStart + int64(i)

			res, err := e.Factory(i).Run(gctx, x0, runCfg)
			if err != nil {
				return fmt.Errorf("run %d: %w", i, err)
			}
			v := reduce(i, res)

			mu.Lock()
			defer mu.Unlock()
			out[i] = v
			ready[i] = true
			for next < len(out) && ready[next] {
				if emit != nil {
					emit(next, out[next])
				}
				next++
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrContextCanceled, err)
	}

	return out, nil
}
