package export

import (
	"fmt"
	"io"
	"os"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/san-kum/foxsim/internal/analysis"
	"github.com/san-kum/foxsim/internal/dynamo"
	"github.com/san-kum/foxsim/internal/metrics"
)

const (
	DefaultWidth  = 1024
	DefaultHeight = 512
)

var (
	rabbitColor = drawing.Color{R: 31, G: 119, B: 180, A: 96}
	foxColor    = drawing.Color{R: 214, G: 39, B: 40, A: 96}
	iqrColor    = drawing.Color{R: 128, G: 128, B: 128, A: 255}
	peakColor   = drawing.Color{R: 214, G: 39, B: 40, A: 160}
)

func dayTicks(xMax, interval float64) []chart.Tick {
	var ticks []chart.Tick
	for value := 0.0; value <= xMax; value += interval {
		ticks = append(ticks, chart.Tick{Value: value, Label: fmt.Sprintf("%.0f", value)})
	}
	return ticks
}

// TrajectoriesPNG overlays rabbit and fox counts of every trajectory.
func TrajectoriesPNG(w io.Writer, trajectories []dynamo.Trajectory) error {
	var series []chart.Series
	xMax := 0.0
	for _, tr := range trajectories {
		if tr.Len() < 2 {
			continue
		}
		times := tr.Times()
		if last := times[len(times)-1]; last > xMax {
			xMax = last
		}

		rabbits := chart.ContinuousSeries{
			XValues: times,
			YValues: tr.Rabbits(),
			Style:   chart.Style{StrokeColor: rabbitColor, StrokeWidth: 1.0},
		}
		foxes := chart.ContinuousSeries{
			XValues: times,
			YValues: tr.Foxes(),
			Style:   chart.Style{StrokeColor: foxColor, StrokeWidth: 1.0},
		}
		series = append(series, rabbits, foxes)
	}
	if len(series) == 0 {
		return fmt.Errorf("export: no trajectory with at least two samples")
	}

	graph := chart.Chart{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		XAxis: chart.XAxis{
			Name:  "time (days)",
			Style: chart.Style{FontSize: 10.0},
		},
		YAxis: chart.YAxis{
			Name:  "population (blue: rabbits, red: foxes)",
			Style: chart.Style{FontSize: 10.0},
		},
		Series: series,
	}
	if xMax >= 200 {
		graph.XAxis.Ticks = dayTicks(xMax, 100)
	}

	return graph.Render(chart.PNG, w)
}

// ConvergencePNG plots the running mean and quartiles of one second-peak
// coordinate against the number of completed runs.
func ConvergencePNG(w io.Writer, history []metrics.Snapshot, foxes bool) error {
	var runs, mean, q1, q3 []float64
	for _, s := range history {
		if s.Peaks == 0 {
			continue
		}
		runs = append(runs, float64(s.Runs))
		if foxes {
			mean = append(mean, s.MeanFoxes)
			q1 = append(q1, s.FoxesQ1)
			q3 = append(q3, s.FoxesQ3)
		} else {
			mean = append(mean, s.MeanTime)
			q1 = append(q1, s.TimeQ1)
			q3 = append(q3, s.TimeQ3)
		}
	}
	if len(runs) < 2 {
		return fmt.Errorf("export: need at least two runs with a second peak")
	}

	yName := "second peak (days)"
	if foxes {
		yName = "second peak (foxes)"
	}

	graph := chart.Chart{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		XAxis: chart.XAxis{
			Name:  "runs",
			Style: chart.Style{FontSize: 10.0},
			ValueFormatter: func(v interface{}) string {
				return fmt.Sprintf("%d", int(v.(float64)))
			},
		},
		YAxis: chart.YAxis{
			Name:  yName,
			Style: chart.Style{FontSize: 10.0},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "mean",
				XValues: runs,
				YValues: mean,
				Style:   chart.Style{StrokeColor: chart.ColorBlack, StrokeWidth: 2.0},
			},
			chart.ContinuousSeries{
				Name:    "25th percentile",
				XValues: runs,
				YValues: q1,
				Style:   chart.Style{StrokeColor: iqrColor, StrokeWidth: 1.0, StrokeDashArray: []float64{5.0, 5.0}},
			},
			chart.ContinuousSeries{
				Name:    "75th percentile",
				XValues: runs,
				YValues: q3,
				Style:   chart.Style{StrokeColor: iqrColor, StrokeWidth: 1.0, StrokeDashArray: []float64{5.0, 5.0}},
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

// PeaksPNG scatters the second peak of every run, with the search window
// bounds drawn dashed and the mean time and fox count drawn solid.
func PeaksPNG(w io.Writer, times, foxes []float64, window analysis.PeakWindow) error {
	if len(times) == 0 || len(times) != len(foxes) {
		return fmt.Errorf("export: need matching peak times and counts, got %d and %d", len(times), len(foxes))
	}

	xHi, yHi := window.MinTime, window.MinFoxes
	for i := range times {
		xHi = max(xHi, times[i])
		yHi = max(yHi, foxes[i])
	}
	xHi *= 1.05
	yHi *= 1.05

	meanTime, meanFoxes := analysis.Mean(times), analysis.Mean(foxes)
	dashed := chart.Style{StrokeColor: iqrColor, StrokeWidth: 1.0, StrokeDashArray: []float64{5.0, 5.0}}
	solid := chart.Style{StrokeColor: chart.ColorBlack, StrokeWidth: 1.5}

	graph := chart.Chart{
		Width:  DefaultWidth,
		Height: DefaultHeight,
		XAxis: chart.XAxis{
			Name:  "second peak (days)",
			Style: chart.Style{FontSize: 10.0},
			Range: &chart.ContinuousRange{Min: 0, Max: xHi},
		},
		YAxis: chart.YAxis{
			Name:  "second peak (foxes)",
			Style: chart.Style{FontSize: 10.0},
			Range: &chart.ContinuousRange{Min: 0, Max: yHi},
		},
		Series: []chart.Series{
			chart.ContinuousSeries{
				Name:    "peaks",
				XValues: times,
				YValues: foxes,
				Style: chart.Style{
					StrokeWidth: chart.Disabled,
					DotWidth:    3,
					DotColor:    peakColor,
				},
			},
			chart.ContinuousSeries{
				Name:    fmt.Sprintf("day > %.0f", window.MinTime),
				XValues: []float64{window.MinTime, window.MinTime},
				YValues: []float64{0, yHi},
				Style:   dashed,
			},
			chart.ContinuousSeries{
				Name:    fmt.Sprintf("foxes > %.0f", window.MinFoxes),
				XValues: []float64{0, xHi},
				YValues: []float64{window.MinFoxes, window.MinFoxes},
				Style:   dashed,
			},
			chart.ContinuousSeries{
				Name:    fmt.Sprintf("mean day %.1f", meanTime),
				XValues: []float64{meanTime, meanTime},
				YValues: []float64{0, yHi},
				Style:   solid,
			},
			chart.ContinuousSeries{
				Name:    fmt.Sprintf("mean foxes %.1f", meanFoxes),
				XValues: []float64{0, xHi},
				YValues: []float64{meanFoxes, meanFoxes},
				Style:   solid,
			},
		},
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return graph.Render(chart.PNG, w)
}

// WriteFile renders into a new file at path.
func WriteFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render(f); err != nil {
		f.Close()
		_ = os.Remove(path)
		return fmt.Errorf("export: render %s: %w", path, err)
	}
	return f.Close()
}
