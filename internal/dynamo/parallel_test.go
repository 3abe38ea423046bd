package dynamo

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/goleak"
)

func TestCollectOrderedEmit(t *testing.T) {
	defer goleak.VerifyNone(t)

	e := NewEnsemble(New(fogler), 24, 100)
	e.Workers = 6
	if e.NumRuns() != 24 || e.SeedStart() != 100 {
		t.Fatalf("ensemble reports %d runs from seed %d", e.NumRuns(), e.SeedStart())
	}

	x0 := Population{Rabbits: 40, Foxes: 20}
	cfg := Config{Horizon: 30}

	var order []int
	seeds, err := Collect(context.Background(), e, x0, cfg,
		func(run int, r *Result) int64 { return r.Seed },
		func(run int, seed int64) { order = append(order, run) },
	)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}

	if len(seeds) != 24 {
		t.Fatalf("expected 24 results, got %d", len(seeds))
	}
	for i, s := range seeds {
		if s != 100+int64(i) {
			t.Errorf("run %d used seed %d", i, s)
		}
	}
	for i, run := range order {
		if run != i {
			t.Fatalf("emit order %v is not sequential", order)
		}
	}
	if len(order) != 24 {
		t.Errorf("expected 24 emits, got %d", len(order))
	}
}

func TestCollectMatchesSequential(t *testing.T) {
	defer goleak.VerifyNone(t)

	x0 := Population{Rabbits: 40, Foxes: 20}
	cfg := Config{Horizon: 40}

	e := NewEnsemble(New(fogler), 8, 5)
	parallel, err := e.Run(context.Background(), x0, cfg)
	if err != nil {
		t.Fatalf("ensemble failed: %v", err)
	}

	for i, got := range parallel {
		runCfg := cfg
		runCfg.Seed = 5 + int64(i)
		want, err := New(fogler).Run(context.Background(), x0, runCfg)
		if err != nil {
			t.Fatalf("run %d failed: %v", i, err)
		}
		if got.Events != want.Events || got.Final != want.Final {
			t.Errorf("run %d differs from its sequential replay: %+v vs %+v", i, got.Final, want.Final)
		}
	}
}

func TestCollectFactory(t *testing.T) {
	e := NewEnsemble(New(fogler), 4, 0)
	e.Factory = func(int) *Simulator {
		s := New(fogler)
		s.AddMetric(&countMetric{})
		return s
	}

	counts, err := Collect(context.Background(), e, Population{Rabbits: 10, Foxes: 5}, Config{Horizon: 10},
		func(_ int, r *Result) bool { return int(r.Metrics["count"]) == r.Trajectory.Len() }, nil)
	if err != nil {
		t.Fatalf("collect failed: %v", err)
	}
	for i, ok := range counts {
		if !ok {
			t.Errorf("run %d metric did not see its own samples", i)
		}
	}
}

func TestCollectErrors(t *testing.T) {
	defer goleak.VerifyNone(t)

	_, err := NewEnsemble(New(fogler), 0, 0).Run(context.Background(), Population{}, Config{Horizon: 1})
	if !errors.Is(err, ErrInvalidRuns) {
		t.Errorf("expected ErrInvalidRuns, got %v", err)
	}

	_, err = NewEnsemble(New(fogler), 10, 0).Run(context.Background(), Population{Rabbits: -1}, Config{Horizon: 1})
	if !errors.Is(err, ErrInvalidPopulation) {
		t.Errorf("expected ErrInvalidPopulation, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = NewEnsemble(New(fogler), 10, 0).Run(ctx, Population{Rabbits: 400, Foxes: 200}, Config{Horizon: 600})
	if !errors.Is(err, ErrContextCanceled) {
		t.Errorf("expected ErrContextCanceled, got %v", err)
	}
}
