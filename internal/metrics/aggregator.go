package metrics

import (
	"sort"
	"sync"

	"github.com/san-kum/foxsim/internal/analysis"
	"github.com/san-kum/foxsim/internal/dynamo"
)

// Outcome is everything the aggregator keeps from one finished run.
type Outcome struct {
	Run               int                `json:"run"`
	Seed              int64              `json:"seed"`
	Extinct           bool               `json:"extinct"`
	FoxesExtinct      bool               `json:"foxes_extinct"`
	FoxExtinctionTime float64            `json:"fox_extinction_time,omitempty"`
	Peak              analysis.Peak      `json:"peak"`
	HasPeak           bool               `json:"has_peak"`
	Events            int                `json:"events"`
	Final             dynamo.Sample      `json:"final"`
	Metrics           map[string]float64 `json:"metrics,omitempty"`
}

// NewOutcome reduces a finished run to its outcome.
func NewOutcome(run int, res *dynamo.Result, w analysis.PeakWindow) Outcome {
	peak, ok := analysis.SecondPeak(res.Trajectory, w)
	return Outcome{
		Run:               run,
		Seed:              res.Seed,
		Extinct:           res.Extinct,
		FoxesExtinct:      res.FoxesExtinct,
		FoxExtinctionTime: res.FoxExtinctionTime,
		Peak:              peak,
		HasPeak:           ok,
		Events:            res.Events,
		Final:             res.Final,
		Metrics:           res.Metrics,
	}
}

// Snapshot holds the ensemble statistics after some number of runs. Peak
// statistics stay zero until at least one run has produced a peak.
type Snapshot struct {
	Runs         int     `json:"runs"`
	Peaks        int     `json:"peaks"`
	Extinct      int     `json:"extinct"`
	FoxesExtinct int     `json:"foxes_extinct"`
	MeanTime     float64 `json:"mean_time"`
	MeanFoxes    float64 `json:"mean_foxes"`
	TimeQ1       float64 `json:"time_q1"`
	TimeQ3       float64 `json:"time_q3"`
	FoxesQ1      float64 `json:"foxes_q1"`
	FoxesQ3      float64 `json:"foxes_q3"`
}

func (s Snapshot) ExtinctFraction() float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.Extinct) / float64(s.Runs)
}

func (s Snapshot) FoxesExtinctFraction() float64 {
	if s.Runs == 0 {
		return 0
	}
	return float64(s.FoxesExtinct) / float64(s.Runs)
}

// Aggregator folds outcomes into running statistics. It is safe for
// concurrent use.
type Aggregator struct {
	mu sync.Mutex

	runs         int
	extinct      int
	foxesExtinct int

	peakTimes  []float64
	peakFoxes  []float64
	sortedTime []float64
	sortedFox  []float64

	current Snapshot
	history []Snapshot
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

// Observe records one outcome and appends the resulting snapshot to the
// history.
func (a *Aggregator) Observe(o Outcome) Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.runs++
	if o.Extinct {
		a.extinct++
	}
	if o.FoxesExtinct {
		a.foxesExtinct++
	}

	if o.HasPeak {
		t, f := o.Peak.Time, float64(o.Peak.Foxes)
		a.peakTimes = append(a.peakTimes, t)
		a.peakFoxes = append(a.peakFoxes, f)
		a.sortedTime = insertSorted(a.sortedTime, t)
		a.sortedFox = insertSorted(a.sortedFox, f)
	}

	a.current = a.compute()
	a.history = append(a.history, a.current)
	return a.current
}

func (a *Aggregator) compute() Snapshot {
	s := Snapshot{
		Runs:         a.runs,
		Peaks:        len(a.sortedTime),
		Extinct:      a.extinct,
		FoxesExtinct: a.foxesExtinct,
	}
	if s.Peaks == 0 {
		return s
	}
	// Sum in sorted order so the result does not depend on arrival order.
	s.MeanTime = analysis.Mean(a.sortedTime)
	s.MeanFoxes = analysis.Mean(a.sortedFox)
	s.TimeQ1 = analysis.PercentileSorted(a.sortedTime, 25)
	s.TimeQ3 = analysis.PercentileSorted(a.sortedTime, 75)
	s.FoxesQ1 = analysis.PercentileSorted(a.sortedFox, 25)
	s.FoxesQ3 = analysis.PercentileSorted(a.sortedFox, 75)
	return s
}

func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.current
}

// History returns one snapshot per observed run, in observation order.
func (a *Aggregator) History() []Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]Snapshot, len(a.history))
	copy(out, a.history)
	return out
}

// Peaks returns the recorded peak times and fox counts in observation order.
func (a *Aggregator) Peaks() (times, foxes []float64) {
	a.mu.Lock()
	defer a.mu.Unlock()
	times = append([]float64(nil), a.peakTimes...)
	foxes = append([]float64(nil), a.peakFoxes...)
	return times, foxes
}

func (a *Aggregator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runs, a.extinct, a.foxesExtinct = 0, 0, 0
	a.peakTimes, a.peakFoxes = nil, nil
	a.sortedTime, a.sortedFox = nil, nil
	a.current = Snapshot{}
	a.history = nil
}

func insertSorted(xs []float64, v float64) []float64 {
	i := sort.SearchFloat64s(xs, v)
	xs = append(xs, 0)
	copy(xs[i+1:], xs[i:])
	xs[i] = v
	return xs
}
