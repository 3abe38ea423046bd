package metrics_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/foxsim/internal/analysis"
	"github.com/san-kum/foxsim/internal/dynamo"
	"github.com/san-kum/foxsim/internal/metrics"
)

func peakOutcome(run int, t float64, foxes int) metrics.Outcome {
	return metrics.Outcome{
		Run:     run,
		Peak:    analysis.Peak{Time: t, Foxes: foxes},
		HasPeak: true,
	}
}

var _ = Describe("Aggregator", func() {
	var agg *metrics.Aggregator

	BeforeEach(func() {
		agg = metrics.NewAggregator()
	})

	It("starts empty", func() {
		Expect(agg.Snapshot()).To(Equal(metrics.Snapshot{}))
		Expect(agg.History()).To(BeEmpty())
	})

	It("computes linear-interpolation quartiles over peaks", func() {
		for i, f := range []int{100, 200, 300, 400} {
			agg.Observe(peakOutcome(i, float64(f), f))
		}

		s := agg.Snapshot()
		Expect(s.Runs).To(Equal(4))
		Expect(s.Peaks).To(Equal(4))
		Expect(s.MeanFoxes).To(BeNumerically("~", 250, 1e-9))
		Expect(s.FoxesQ1).To(BeNumerically("~", 175, 1e-9))
		Expect(s.FoxesQ3).To(BeNumerically("~", 325, 1e-9))
		Expect(s.TimeQ1).To(BeNumerically("~", 175, 1e-9))
		Expect(s.TimeQ3).To(BeNumerically("~", 325, 1e-9))
	})

	It("keeps peak statistics at zero until a peak arrives", func() {
		agg.Observe(metrics.Outcome{Run: 0, Extinct: true, FoxesExtinct: true})
		agg.Observe(metrics.Outcome{Run: 1})

		s := agg.Snapshot()
		Expect(s.Runs).To(Equal(2))
		Expect(s.Peaks).To(BeZero())
		Expect(s.MeanTime).To(BeZero())
		Expect(s.FoxesQ3).To(BeZero())
		Expect(s.ExtinctFraction()).To(BeNumerically("~", 0.5, 1e-12))
		Expect(s.FoxesExtinctFraction()).To(BeNumerically("~", 0.5, 1e-12))

		agg.Observe(peakOutcome(2, 410, 2800))
		s = agg.Snapshot()
		Expect(s.Runs).To(Equal(3))
		Expect(s.Peaks).To(Equal(1))
		Expect(s.MeanTime).To(Equal(410.0))
		Expect(s.FoxesQ1).To(Equal(2800.0))
	})

	It("records one history entry per run", func() {
		agg.Observe(peakOutcome(0, 300, 1000))
		agg.Observe(metrics.Outcome{Run: 1, Extinct: true})
		agg.Observe(peakOutcome(2, 500, 3000))

		h := agg.History()
		Expect(h).To(HaveLen(3))
		Expect(h[0].MeanFoxes).To(Equal(1000.0))
		Expect(h[1].MeanFoxes).To(Equal(1000.0))
		Expect(h[1].Extinct).To(Equal(1))
		Expect(h[2].MeanFoxes).To(Equal(2000.0))
		Expect(h[2]).To(Equal(agg.Snapshot()))
	})

	It("is independent of observation order", func() {
		outcomes := []metrics.Outcome{
			peakOutcome(0, 412.3, 2711),
			{Run: 1, Extinct: true, FoxesExtinct: true},
			peakOutcome(2, 398.1, 2950),
			peakOutcome(3, 455.0, 2604),
			{Run: 4, FoxesExtinct: true},
			peakOutcome(5, 430.7, 2833),
		}

		for _, o := range outcomes {
			agg.Observe(o)
		}
		forward := agg.Snapshot()

		other := metrics.NewAggregator()
		for i := len(outcomes) - 1; i >= 0; i-- {
			other.Observe(outcomes[i])
		}

		Expect(other.Snapshot()).To(Equal(forward))
	})

	It("returns peaks in observation order", func() {
		agg.Observe(peakOutcome(0, 500, 10))
		agg.Observe(peakOutcome(1, 300, 30))

		times, foxes := agg.Peaks()
		Expect(times).To(Equal([]float64{500, 300}))
		Expect(foxes).To(Equal([]float64{10, 30}))
	})

	It("forgets everything on reset", func() {
		agg.Observe(peakOutcome(0, 300, 1000))
		agg.Reset()

		Expect(agg.Snapshot()).To(Equal(metrics.Snapshot{}))
		Expect(agg.History()).To(BeEmpty())
		times, _ := agg.Peaks()
		Expect(times).To(BeEmpty())
	})
})

var _ = Describe("NewOutcome", func() {
	It("extracts the second peak and extinction flags", func() {
		res := &dynamo.Result{
			Trajectory: dynamo.Trajectory{Samples: []dynamo.Sample{
				{Time: 0, Rabbits: 400, Foxes: 200},
				{Time: 300, Rabbits: 200, Foxes: 150},
				{Time: 350, Rabbits: 0, Foxes: 0},
			}},
			Seed:              9,
			Extinct:           true,
			FoxesExtinct:      true,
			FoxExtinctionTime: 350,
			Events:            2,
		}

		o := metrics.NewOutcome(3, res, analysis.DefaultPeakWindow())
		Expect(o.Run).To(Equal(3))
		Expect(o.Seed).To(Equal(int64(9)))
		Expect(o.HasPeak).To(BeTrue())
		Expect(o.Peak.Time).To(Equal(300.0))
		Expect(o.Peak.Foxes).To(Equal(150))
		Expect(o.Extinct).To(BeTrue())
		Expect(o.FoxExtinctionTime).To(Equal(350.0))
	})
})
