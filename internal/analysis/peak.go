package analysis

import "github.com/san-kum/foxsim/internal/dynamo"

// PeakWindow bounds the search for the second fox peak. Both limits are
// strict: a sample qualifies only when Time > MinTime and Foxes > MinFoxes.
type PeakWindow struct {
	MinTime  float64 `yaml:"min_time" json:"min_time"`
	MinFoxes float64 `yaml:"min_foxes" json:"min_foxes"`
}

func DefaultPeakWindow() PeakWindow {
	return PeakWindow{MinTime: 200, MinFoxes: 100}
}

func (w PeakWindow) Contains(s dynamo.Sample) bool {
	return s.Time > w.MinTime && float64(s.Foxes) > w.MinFoxes
}

type Peak struct {
	Time  float64 `json:"time"`
	Foxes int     `json:"foxes"`
	// Index is the position of the sample inside the trajectory.
	Index int `json:"index"`
}

// SecondPeak returns the sample with the most foxes inside the window.
// Ties go to the earliest sample. ok is false when no sample qualifies.
func SecondPeak(tr dynamo.Trajectory, w PeakWindow) (Peak, bool) {
	var best Peak
	found := false
	for i, s := range tr.Samples {
		if !w.Contains(s) {
			continue
		}
		if !found || s.Foxes > best.Foxes {
			best = Peak{Time: s.Time, Foxes: s.Foxes, Index: i}
			found = true
		}
	}
	return best, found
}
