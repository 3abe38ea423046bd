// Package analysis extracts summary quantities from simulated trajectories.
//
//   - [SecondPeak]: the highest fox count after the first oscillation
//   - [Percentile], [Quartiles], [Mean]: order statistics used by reports
//   - [CyclePeriod]: dominant oscillation period from the fox spectrum
//
// The second peak is searched inside a [PeakWindow]. The defaults skip the
// first 200 days and ignore counts at or below 100 foxes:
//
//	p, ok := analysis.SecondPeak(res.Trajectory, analysis.DefaultPeakWindow())
//	if ok {
//	    fmt.Printf("peak of %d foxes at day %.0f\n", p.Foxes, p.Time)
//	}
package analysis
