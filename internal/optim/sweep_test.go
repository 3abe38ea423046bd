package optim

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/san-kum/foxsim/internal/dynamo"
	"github.com/san-kum/foxsim/internal/experiment"
	"github.com/san-kum/foxsim/internal/metrics"
)

func TestApplyParam(t *testing.T) {
	cfg := experiment.DefaultConfig()

	tests := []struct {
		name  string
		value float64
		check func(experiment.Config) bool
	}{
		{"horizon", 800, func(c experiment.Config) bool { return c.Horizon == 800 }},
		{"rabbits", 40, func(c experiment.Config) bool { return c.Initial.Rabbits == 40 }},
		{"foxes", 20, func(c experiment.Config) bool { return c.Initial.Foxes == 20 }},
		{"k3", 0.00004, func(c experiment.Config) bool { return c.Params.K3 == 0.00004 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			if err := ApplyParam(&c, tt.name, tt.value); err != nil {
				t.Fatalf("ApplyParam failed: %v", err)
			}
			if !tt.check(c) {
				t.Errorf("%s not applied: %+v", tt.name, c)
			}
		})
	}

	if cfg.Params.K3 != 0.0004 {
		t.Error("ApplyParam modified the base config")
	}
	if err := ApplyParam(&cfg, "gravity", 9.81); err == nil {
		t.Error("expected error for unknown param")
	}
}

func TestApplyParamRejectsInvalid(t *testing.T) {
	tests := []struct {
		name  string
		param string
		value float64
		want  error
	}{
		{"fractional rabbits", "rabbits", 40.7, dynamo.ErrInvalidPopulation},
		{"negative foxes", "foxes", -5, dynamo.ErrInvalidPopulation},
		{"infinite rabbits", "rabbits", math.Inf(1), dynamo.ErrInvalidPopulation},
		{"zero horizon", "horizon", 0, dynamo.ErrInvalidHorizon},
		{"nan horizon", "horizon", math.NaN(), dynamo.ErrInvalidHorizon},
		{"negative rate", "k2", -0.1, dynamo.ErrInvalidRate},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := experiment.DefaultConfig()
			err := ApplyParam(&cfg, tt.param, tt.value)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
			if cfg != experiment.DefaultConfig() {
				t.Errorf("rejected value changed the config: %+v", cfg)
			}
		})
	}
}

func TestSweepRejectsBadValueBeforeRunning(t *testing.T) {
	built := 0
	sweep := Sweep{Param: "foxes", Values: []float64{20, 20.5}}
	points, err := sweep.Run(context.Background(), experiment.DefaultConfig(), func(cfg experiment.Config) *experiment.Study {
		built++
		cfg.Runs, cfg.Horizon, cfg.Keep = 2, 5, 0
		return experiment.New(cfg, nil)
	})
	if !errors.Is(err, dynamo.ErrInvalidPopulation) {
		t.Fatalf("expected ErrInvalidPopulation, got %v", err)
	}
	if built != 0 || points != nil {
		t.Errorf("built %d studies and kept %v before rejecting the sweep", built, points)
	}
}

func TestSweepRun(t *testing.T) {
	base := experiment.DefaultConfig()
	base.Initial = dynamo.Population{Rabbits: 40, Foxes: 20}
	base.Horizon = 50
	base.Runs = 8
	base.Keep = 0

	var seen []float64
	sweep := Sweep{Param: "k4", Values: []float64{0.02, 0.04, 0.08}}
	points, err := sweep.Run(context.Background(), base, func(cfg experiment.Config) *experiment.Study {
		seen = append(seen, cfg.Params.K4)
		return experiment.New(cfg, nil)
	})
	if err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if len(points) != 3 {
		t.Fatalf("expected 3 points, got %d", len(points))
	}
	for i, p := range points {
		if p.Value != sweep.Values[i] || seen[i] != sweep.Values[i] {
			t.Errorf("point %d built with k4=%v, reported %v", i, seen[i], p.Value)
		}
		if p.Summary.Runs != base.Runs {
			t.Errorf("point %d summarises %d runs", i, p.Summary.Runs)
		}
	}

	if _, err := (Sweep{Param: "k4"}).Run(context.Background(), base, nil); err == nil {
		t.Error("expected error for empty sweep")
	}
}

func TestBest(t *testing.T) {
	points := []Point{
		{Value: 1, Summary: metrics.Snapshot{Runs: 10, Extinct: 5, MeanTime: 400}},
		{Value: 2, Summary: metrics.Snapshot{Runs: 10, Extinct: 1, MeanTime: 450}},
		{Value: 3, Summary: metrics.Snapshot{Runs: 10, Extinct: 3, MeanTime: 380}},
	}

	p, v, err := Best(points, "extinct_fraction")
	if err != nil || p.Value != 2 || v != 0.1 {
		t.Errorf("Best(extinct_fraction) = %v, %v, %v", p.Value, v, err)
	}

	p, _, err = Best(points, "mean_time")
	if err != nil || p.Value != 3 {
		t.Errorf("Best(mean_time) = %v, %v", p.Value, err)
	}

	if _, _, err := Best(points, "energy"); err == nil {
		t.Error("expected error for unknown metric")
	}
	if _, _, err := Best(nil, "mean_time"); err == nil {
		t.Error("expected error for no points")
	}
}
