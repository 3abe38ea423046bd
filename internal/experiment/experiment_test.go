package experiment

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/san-kum/foxsim/internal/dynamo"
)

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Initial = dynamo.Population{Rabbits: 40, Foxes: 20}
	cfg.Horizon = 100
	cfg.Runs = 16
	cfg.Keep = 3
	return cfg
}

func TestStudyIndependentOfWorkers(t *testing.T) {
	defer goleak.VerifyNone(t)

	cfg := smallConfig()
	cfg.Workers = 1
	serial, err := New(cfg, zaptest.NewLogger(t)).Run(context.Background())
	if err != nil {
		t.Fatalf("serial study failed: %v", err)
	}

	cfg.Workers = 4
	parallel, err := New(cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("parallel study failed: %v", err)
	}

	if !reflect.DeepEqual(serial.History, parallel.History) {
		t.Error("history depends on worker count")
	}
	if !reflect.DeepEqual(serial.Outcomes, parallel.Outcomes) {
		t.Error("outcomes depend on worker count")
	}
	if !reflect.DeepEqual(serial.PeakTimes, parallel.PeakTimes) || !reflect.DeepEqual(serial.PeakFoxes, parallel.PeakFoxes) {
		t.Error("peaks depend on worker count")
	}
	if len(serial.Trajectories) != 3 || len(parallel.Trajectories) != 3 {
		t.Errorf("expected 3 kept trajectories, got %d and %d", len(serial.Trajectories), len(parallel.Trajectories))
	}
	if serial.Summary.Runs != 16 {
		t.Errorf("expected 16 runs in summary, got %d", serial.Summary.Runs)
	}
}

func TestStudyProgress(t *testing.T) {
	cfg := smallConfig()
	cfg.Workers = 3

	var done []int
	study := New(cfg, nil)
	study.OnProgress(func(p Progress) {
		if p.Total != cfg.Runs {
			t.Errorf("progress total %d, want %d", p.Total, cfg.Runs)
		}
		if p.Snapshot.Runs != p.Done {
			t.Errorf("snapshot has %d runs at progress %d", p.Snapshot.Runs, p.Done)
		}
		done = append(done, p.Done)
	})

	report, err := study.Run(context.Background())
	if err != nil {
		t.Fatalf("study failed: %v", err)
	}

	if len(done) != cfg.Runs {
		t.Fatalf("expected %d progress calls, got %d", cfg.Runs, len(done))
	}
	for i, d := range done {
		if d != i+1 {
			t.Fatalf("progress out of order: %v", done)
		}
	}
	if len(report.History) != cfg.Runs {
		t.Errorf("expected %d history entries, got %d", cfg.Runs, len(report.History))
	}
	for i, o := range report.Outcomes {
		if o.Run != i || o.Seed != cfg.Seed+int64(i) {
			t.Errorf("outcome %d has run %d seed %d", i, o.Run, o.Seed)
		}
	}
}

func TestStudyInvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   error
	}{
		{"no runs", func(c *Config) { c.Runs = 0 }, dynamo.ErrInvalidRuns},
		{"negative rate", func(c *Config) { c.Params.K4 = -0.1 }, dynamo.ErrInvalidRate},
		{"negative foxes", func(c *Config) { c.Initial.Foxes = -1 }, dynamo.ErrInvalidPopulation},
		{"zero horizon", func(c *Config) { c.Horizon = 0 }, dynamo.ErrInvalidHorizon},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := smallConfig()
			tt.mutate(&cfg)
			_, err := New(cfg, nil).Run(context.Background())
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestStudyCanceled(t *testing.T) {
	defer goleak.VerifyNone(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(DefaultConfig(), nil).Run(ctx)
	if !errors.Is(err, dynamo.ErrContextCanceled) {
		t.Errorf("expected ErrContextCanceled, got %v", err)
	}
}

func TestRunSingle(t *testing.T) {
	cfg := smallConfig()
	res, err := RunSingle(context.Background(), cfg, 42)
	if err != nil {
		t.Fatalf("run failed: %v", err)
	}
	if res.Seed != 42 {
		t.Errorf("seed = %d, want 42", res.Seed)
	}
	if _, ok := res.Metrics["max_foxes"]; !ok {
		t.Errorf("standard metrics missing: %v", res.Metrics)
	}
	if res.Metrics["max_foxes"] < 20 {
		t.Errorf("max foxes %v below the initial count", res.Metrics["max_foxes"])
	}
}

func TestFoglerSecondPeak(t *testing.T) {
	if testing.Short() {
		t.Skip("full ensemble")
	}

	cfg := DefaultConfig()
	cfg.Runs = 300
	cfg.Keep = 0

	report, err := New(cfg, nil).Run(context.Background())
	if err != nil {
		t.Fatalf("study failed: %v", err)
	}

	// Most runs lose their foxes before day 600; roughly a third show a
	// second peak.
	s := report.Summary
	if lo, hi := cfg.Runs/5, cfg.Runs/2; s.Peaks < lo || s.Peaks > hi {
		t.Fatalf("%d of %d runs found a second peak, want %d-%d", s.Peaks, cfg.Runs, lo, hi)
	}
	if s.MeanTime < 360 || s.MeanTime > 440 {
		t.Errorf("mean second peak at day %.1f, expected around 400", s.MeanTime)
	}
	if s.MeanFoxes < 1900 || s.MeanFoxes > 2800 {
		t.Errorf("mean second peak of %.0f foxes, expected around 2350", s.MeanFoxes)
	}
	if s.TimeQ1 > s.TimeQ3 || s.FoxesQ1 > s.FoxesQ3 {
		t.Errorf("quartiles out of order: %+v", s)
	}
	if s.FoxesExtinct <= cfg.Runs/2 {
		t.Errorf("foxes died out in %d of %d runs, expected most", s.FoxesExtinct, cfg.Runs)
	}
	if len(report.PeakTimes) != s.Peaks || len(report.PeakFoxes) != s.Peaks {
		t.Fatalf("report carries %d/%d peaks, summary has %d", len(report.PeakTimes), len(report.PeakFoxes), s.Peaks)
	}
	next := 0
	for _, o := range report.Outcomes {
		if !o.HasPeak {
			continue
		}
		if report.PeakTimes[next] != o.Peak.Time || report.PeakFoxes[next] != float64(o.Peak.Foxes) {
			t.Fatalf("peak %d (%v, %v) does not match run %d", next, report.PeakTimes[next], report.PeakFoxes[next], o.Run)
		}
		next++
	}
	if s.Extinct >= s.FoxesExtinct {
		t.Errorf("total extinction (%d) should be rarer than fox extinction (%d)", s.Extinct, s.FoxesExtinct)
	}
}
