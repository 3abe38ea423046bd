package dynamo

import (
	"context"
	"fmt"
	"math"
)

// cancelCheckInterval is how many events fire between context checks.
const cancelCheckInterval = 1024

type Simulator struct {
	sys       System
	metrics   []Metric
	observers []Observer
	newRand   func(seed int64) RandSource
}

func New(sys System) *Simulator {
	return &Simulator{
		sys:       sys,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
		newRand:   NewRand,
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// SetRandSource replaces the generator constructor used for every run.
func (s *Simulator) SetRandSource(fn func(seed int64) RandSource) { s.newRand = fn }

// Run advances one trajectory from x0 until cfg.Horizon using the direct
// method. Each iteration records the state valid before the event, draws the
// waiting time from Exp(R) and fires exactly one event. When every rate is
// zero the state is absorbing: a final sample at the horizon is appended and
// the run is marked extinct.
func (s *Simulator) Run(ctx context.Context, x0 Population, cfg Config) (*Result, error) {
	if err := s.validate(x0, cfg); err != nil {
		return nil, err
	}

	rng := s.newRand(cfg.Seed)
	result := &Result{
		Trajectory: Trajectory{Samples: make([]Sample, 0, 1024)},
		Seed:       cfg.Seed,
		Metrics:    make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	p := x0
	t := 0.0

	for t < cfg.Horizon {
		if result.Events%cancelCheckInterval == 0 {
			select {
			case <-ctx.Done():
				s.finish(result)
				return result, fmt.Errorf("%w at t=%.4f: %w", ErrContextCanceled, t, ctx.Err())
			default:
			}
		}

		s.record(result, Sample{Time: t, Rabbits: p.Rabbits, Foxes: p.Foxes})

		rates := s.sys.Rates(p)
		total := rates.Total()
		if total == 0 {
			result.Extinct = true
			s.record(result, Sample{Time: cfg.Horizon, Rabbits: p.Rabbits, Foxes: p.Foxes})
			break
		}

		t += rng.Exp(total)
		event := rates.Select(rng.Uniform(total))
		p = p.Apply(event)
		result.Events++

		if !p.IsValid() {
			last, _ := result.Trajectory.Last()
			return result, &SimulationError{
				Event:   result.Events,
				Time:    t,
				Sample:  last,
				Wrapped: fmt.Errorf("%w: %s drove a count negative", ErrInvalidRate, event),
			}
		}

		if event == FoxDeath && p.Foxes == 0 && !result.FoxesExtinct {
			result.FoxesExtinct = true
			result.FoxExtinctionTime = t
		}
	}

	s.finish(result)
	return result, nil
}

func (s *Simulator) record(result *Result, smp Sample) {
	result.Trajectory.Samples = append(result.Trajectory.Samples, smp)
	for _, m := range s.metrics {
		m.Observe(smp)
	}
	for _, obs := range s.observers {
		obs.OnSample(smp)
	}
}

func (s *Simulator) finish(result *Result) {
	if last, ok := result.Trajectory.Last(); ok {
		result.Final = last
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func (s *Simulator) validate(x0 Population, cfg Config) error {
	if !x0.IsValid() {
		return fmt.Errorf("%w: rabbits=%d foxes=%d", ErrInvalidPopulation, x0.Rabbits, x0.Foxes)
	}
	if cfg.Horizon <= 0 || math.IsNaN(cfg.Horizon) || math.IsInf(cfg.Horizon, 0) {
		return fmt.Errorf("%w, got %v", ErrInvalidHorizon, cfg.Horizon)
	}
	if s.sys == nil {
		return fmt.Errorf("%w: no rate law configured", ErrInvalidRate)
	}
	if rates := s.sys.Rates(x0); !rates.IsValid() {
		return fmt.Errorf("%w: %+v", ErrInvalidRate, rates)
	}
	return nil
}
