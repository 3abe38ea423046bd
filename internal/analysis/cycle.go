package analysis

import (
	"math"
	"math/cmplx"

	"github.com/mjibson/go-dsp/fft"
	"github.com/san-kum/foxsim/internal/dynamo"
)

// Resample evaluates the trajectory on a uniform grid 0, dt, 2dt, ... up to
// the last sample time. The state between events is piecewise constant, so
// each grid point takes the latest sample at or before it.
func Resample(tr dynamo.Trajectory, dt float64) dynamo.Trajectory {
	last, ok := tr.Last()
	if !ok || dt <= 0 {
		return dynamo.Trajectory{}
	}

	n := int(math.Floor(last.Time/dt)) + 1
	out := dynamo.Trajectory{Samples: make([]dynamo.Sample, 0, n)}

	j := 0
	for k := 0; k < n; k++ {
		t := float64(k) * dt
		for j+1 < len(tr.Samples) && tr.Samples[j+1].Time <= t {
			j++
		}
		s := tr.Samples[j]
		out.Samples = append(out.Samples, dynamo.Sample{Time: t, Rabbits: s.Rabbits, Foxes: s.Foxes})
	}
	return out
}

// PowerSpectrum returns the magnitude of the first half of the real FFT.
func PowerSpectrum(data []float64) []float64 {
	bins := fft.FFTReal(data)
	ps := make([]float64, len(bins)/2)
	for i := range ps {
		ps[i] = cmplx.Abs(bins[i])
	}
	return ps
}

// CyclePeriod estimates the dominant period of the fox population in days.
// It returns 0 when the series is too short or has no oscillation.
func CyclePeriod(tr dynamo.Trajectory, dt float64) float64 {
	return SeriesPeriod(Resample(tr, dt).Foxes(), dt)
}

// SeriesPeriod estimates the dominant period of a series sampled every dt.
// The series is not modified.
func SeriesPeriod(series []float64, dt float64) float64 {
	if len(series) < 4 {
		return 0
	}

	mean := Mean(series)
	centered := make([]float64, len(series))
	for i, v := range series {
		centered[i] = v - mean
	}

	ps := PowerSpectrum(centered)
	best, bestPow := 0, 0.0
	for k := 1; k < len(ps); k++ {
		if ps[k] > bestPow {
			best, bestPow = k, ps[k]
		}
	}
	if best == 0 || bestPow < 1e-9 {
		return 0
	}
	return float64(len(series)) * dt / float64(best)
}
