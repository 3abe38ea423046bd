package optim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/foxsim/internal/dynamo"
	"github.com/san-kum/foxsim/internal/experiment"
	"github.com/san-kum/foxsim/internal/metrics"
)

// Sweep varies one parameter over a list of values, running a full study
// at each value.
type Sweep struct {
	Param  string
	Values []float64
}

type Point struct {
	Value   float64          `json:"value"`
	Summary metrics.Snapshot `json:"summary"`
}

// Run checks every value, then executes one study per value in order. build
// turns the adjusted config into a study, which lets callers attach loggers
// or progress callbacks.
func (s Sweep) Run(
	ctx context.Context,
	base experiment.Config,
	build func(cfg experiment.Config) *experiment.Study,
) ([]Point, error) {
	if len(s.Values) == 0 {
		return nil, fmt.Errorf("sweep %s: no values", s.Param)
	}

	configs := make([]experiment.Config, len(s.Values))
	for i, val := range s.Values {
		configs[i] = base
		if err := ApplyParam(&configs[i], s.Param, val); err != nil {
			return nil, fmt.Errorf("sweep %s=%g: %w", s.Param, val, err)
		}
	}

	points := make([]Point, 0, len(s.Values))
	for i, val := range s.Values {
		report, err := build(configs[i]).Run(ctx)
		if err != nil {
			return points, fmt.Errorf("sweep %s=%g: %w", s.Param, val, err)
		}
		points = append(points, Point{Value: val, Summary: report.Summary})
	}
	return points, nil
}

// ApplyParam sets a rate constant by name, or one of the run settings
// horizon, rabbits, foxes. Counts must be whole and non-negative, the
// horizon positive and finite, and rate constants valid for the model.
func ApplyParam(cfg *experiment.Config, name string, value float64) error {
	switch name {
	case "horizon":
		if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%w: horizon=%v", dynamo.ErrInvalidHorizon, value)
		}
		cfg.Horizon = value
	case "rabbits", "foxes":
		if value < 0 || value != math.Trunc(value) || math.IsInf(value, 0) {
			return fmt.Errorf("%w: %s=%v is not a whole non-negative count", dynamo.ErrInvalidPopulation, name, value)
		}
		if name == "rabbits" {
			cfg.Initial.Rabbits = int(value)
		} else {
			cfg.Initial.Foxes = int(value)
		}
	default:
		lv := cfg.Params
		var model dynamo.Configurable = &lv
		if err := model.SetParam(name, value); err != nil {
			return err
		}
		if err := lv.Validate(); err != nil {
			return err
		}
		cfg.Params = lv
	}
	return nil
}

var objectives = map[string]func(metrics.Snapshot) float64{
	"extinct_fraction":       metrics.Snapshot.ExtinctFraction,
	"foxes_extinct_fraction": metrics.Snapshot.FoxesExtinctFraction,
	"mean_time":              func(s metrics.Snapshot) float64 { return s.MeanTime },
	"mean_foxes":             func(s metrics.Snapshot) float64 { return s.MeanFoxes },
}

func Objectives() []string {
	return []string{"extinct_fraction", "foxes_extinct_fraction", "mean_time", "mean_foxes"}
}

// Best returns the point that minimises the named summary metric.
func Best(points []Point, metric string) (Point, float64, error) {
	fn, ok := objectives[metric]
	if !ok {
		return Point{}, 0, fmt.Errorf("unknown metric: %s", metric)
	}
	if len(points) == 0 {
		return Point{}, 0, fmt.Errorf("no points")
	}

	best := math.Inf(1)
	var bestPoint Point
	for _, p := range points {
		if val := fn(p.Summary); val < best {
			best = val
			bestPoint = p
		}
	}
	return bestPoint, best, nil
}
