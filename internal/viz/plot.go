package viz

import (
	"fmt"

	"github.com/guptarohit/asciigraph"

	"github.com/san-kum/foxsim/internal/analysis"
	"github.com/san-kum/foxsim/internal/dynamo"
	"github.com/san-kum/foxsim/internal/metrics"
)

const (
	PlotWidth  = 80
	PlotHeight = 12
)

// PlotTrajectory draws rabbits and foxes on a shared axis. The trajectory is
// resampled onto PlotWidth points first, since raw runs hold many thousands
// of events.
func PlotTrajectory(tr dynamo.Trajectory, caption string) string {
	last, ok := tr.Last()
	if !ok || last.Time <= 0 {
		return ""
	}
	grid := analysis.Resample(tr, last.Time/float64(PlotWidth-1))

	return asciigraph.PlotMany(
		[][]float64{grid.Rabbits(), grid.Foxes()},
		asciigraph.Height(PlotHeight),
		asciigraph.Width(PlotWidth),
		asciigraph.SeriesColors(asciigraph.Blue, asciigraph.Red),
		asciigraph.Caption(fmt.Sprintf("%s (blue: rabbits, red: foxes, %.0f days)", caption, last.Time)),
	)
}

// PlotConvergence draws the running mean and quartiles of the second peak
// time and fox count. Runs before the first peak are skipped.
func PlotConvergence(history []metrics.Snapshot) (timePlot, foxPlot string) {
	var meanT, q1T, q3T, meanF, q1F, q3F []float64
	for _, s := range history {
		if s.Peaks == 0 {
			continue
		}
		meanT = append(meanT, s.MeanTime)
		q1T = append(q1T, s.TimeQ1)
		q3T = append(q3T, s.TimeQ3)
		meanF = append(meanF, s.MeanFoxes)
		q1F = append(q1F, s.FoxesQ1)
		q3F = append(q3F, s.FoxesQ3)
	}
	if len(meanT) == 0 {
		return "", ""
	}

	opts := func(caption string) []asciigraph.Option {
		return []asciigraph.Option{
			asciigraph.Height(PlotHeight),
			asciigraph.Width(PlotWidth),
			asciigraph.SeriesColors(asciigraph.Default, asciigraph.DarkGray, asciigraph.DarkGray),
			asciigraph.Caption(caption),
		}
	}

	timePlot = asciigraph.PlotMany([][]float64{meanT, q1T, q3T},
		opts("second peak time (days): mean with IQR by run")...)
	foxPlot = asciigraph.PlotMany([][]float64{meanF, q1F, q3F},
		opts("second peak foxes: mean with IQR by run")...)
	return timePlot, foxPlot
}

// PlotSpectrum draws the fox power spectrum used for cycle detection.
func PlotSpectrum(ps []float64) string {
	if len(ps) < 2 {
		return ""
	}
	return asciigraph.Plot(ps[1:],
		asciigraph.Height(8),
		asciigraph.Width(60),
		asciigraph.Caption("fox power spectrum"),
	)
}
