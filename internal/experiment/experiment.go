package experiment

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"go.uber.org/zap"

	"github.com/san-kum/foxsim/internal/analysis"
	"github.com/san-kum/foxsim/internal/dynamo"
	"github.com/san-kum/foxsim/internal/metrics"
	"github.com/san-kum/foxsim/internal/physics"
)

type Config struct {
	Params  physics.LotkaVolterra
	Initial dynamo.Population
	Horizon float64
	Runs    int
	Seed    int64
	// Workers bounds concurrent trajectories. Zero means one per CPU.
	Workers int
	// Keep retains the trajectories of the first Keep runs for plotting.
	Keep   int
	Window analysis.PeakWindow
}

func DefaultConfig() Config {
	return Config{
		Params:  *physics.NewLotkaVolterra(),
		Initial: dynamo.Population{Rabbits: 400, Foxes: 200},
		Horizon: 600,
		Runs:    1000,
		Seed:    1,
		Keep:    50,
		Window:  analysis.DefaultPeakWindow(),
	}
}

func (c Config) validate() error {
	if c.Runs <= 0 {
		return fmt.Errorf("%w, got %d", dynamo.ErrInvalidRuns, c.Runs)
	}
	if !c.Initial.IsValid() {
		return fmt.Errorf("%w: rabbits=%d foxes=%d", dynamo.ErrInvalidPopulation, c.Initial.Rabbits, c.Initial.Foxes)
	}
	return c.Params.Validate()
}

type Progress struct {
	Done     int
	Total    int
	Snapshot metrics.Snapshot
}

type Report struct {
	Config       Config
	Summary      metrics.Snapshot
	History      []metrics.Snapshot
	Outcomes     []metrics.Outcome
	Trajectories []dynamo.Trajectory

	// PeakTimes and PeakFoxes hold every second peak in run order.
	PeakTimes []float64
	PeakFoxes []float64
	Elapsed   time.Duration
}

// Study runs an ensemble and folds every run into ensemble statistics.
type Study struct {
	cfg        Config
	logger     *zap.Logger
	onProgress func(Progress)
	agg        *metrics.Aggregator
}

func New(cfg Config, logger *zap.Logger) *Study {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Study{
		cfg:    cfg,
		logger: logger,
		agg:    metrics.NewAggregator(),
	}
}

// OnProgress registers a callback invoked once per run in run order.
func (s *Study) OnProgress(fn func(Progress)) {
	s.onProgress = fn
}

func (s *Study) Config() Config { return s.cfg }

type runOutput struct {
	outcome    metrics.Outcome
	trajectory *dynamo.Trajectory
}

func (s *Study) Run(ctx context.Context) (*Report, error) {
	if err := s.cfg.validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	s.agg.Reset()

	lv := s.cfg.Params
	ens := dynamo.NewEnsemble(dynamo.New(&lv), s.cfg.Runs, s.cfg.Seed)
	ens.Factory = func(int) *dynamo.Simulator {
		sim := dynamo.New(&lv)
		for _, m := range metrics.Standard() {
			sim.AddMetric(m)
		}
		return sim
	}
	ens.Workers = s.cfg.Workers
	if ens.Workers <= 0 {
		ens.Workers = runtime.NumCPU()
	}

	s.logger.Info("study started",
		zap.Int("runs", ens.NumRuns()),
		zap.Int("workers", ens.Workers),
		zap.Int64("seed", ens.SeedStart()),
		zap.Float64("horizon", s.cfg.Horizon),
		zap.Int("rabbits", s.cfg.Initial.Rabbits),
		zap.Int("foxes", s.cfg.Initial.Foxes),
	)

	simCfg := dynamo.Config{Horizon: s.cfg.Horizon}
	outputs, err := dynamo.Collect(ctx, ens, s.cfg.Initial, simCfg,
		func(run int, res *dynamo.Result) runOutput {
			out := runOutput{outcome: metrics.NewOutcome(run, res, s.cfg.Window)}
			if run < s.cfg.Keep {
				tr := res.Trajectory
				out.trajectory = &tr
			}
			return out
		},
		func(run int, out runOutput) {
			snap := s.agg.Observe(out.outcome)
			s.logger.Debug("run finished",
				zap.Int("run", run),
				zap.Int("events", out.outcome.Events),
				zap.Bool("has_peak", out.outcome.HasPeak),
				zap.Bool("foxes_extinct", out.outcome.FoxesExtinct),
			)
			if s.onProgress != nil {
				s.onProgress(Progress{Done: run + 1, Total: s.cfg.Runs, Snapshot: snap})
			}
		},
	)
	if err != nil {
		s.logger.Warn("study aborted", zap.Error(err), zap.Int("completed", s.agg.Snapshot().Runs))
		return nil, fmt.Errorf("study: %w", err)
	}

	report := &Report{
		Config:   s.cfg,
		Summary:  s.agg.Snapshot(),
		History:  s.agg.History(),
		Outcomes: make([]metrics.Outcome, len(outputs)),
		Elapsed:  time.Since(start),
	}
	report.PeakTimes, report.PeakFoxes = s.agg.Peaks()
	for i, out := range outputs {
		report.Outcomes[i] = out.outcome
		if out.trajectory != nil {
			report.Trajectories = append(report.Trajectories, *out.trajectory)
		}
	}

	s.logger.Info("study finished",
		zap.Duration("elapsed", report.Elapsed),
		zap.Int("peaks", report.Summary.Peaks),
		zap.Float64("mean_time", report.Summary.MeanTime),
		zap.Float64("mean_foxes", report.Summary.MeanFoxes),
		zap.Int("extinct", report.Summary.Extinct),
		zap.Int("foxes_extinct", report.Summary.FoxesExtinct),
	)

	return report, nil
}

// RunSingle simulates one recorded trajectory with the standard metrics.
func RunSingle(ctx context.Context, cfg Config, seed int64) (*dynamo.Result, error) {
	if err := cfg.Params.Validate(); err != nil {
		return nil, err
	}
	lv := cfg.Params
	sim := dynamo.New(&lv)
	for _, m := range metrics.Standard() {
		sim.AddMetric(m)
	}
	return sim.Run(ctx, cfg.Initial, dynamo.Config{Horizon: cfg.Horizon, Seed: seed})
}
