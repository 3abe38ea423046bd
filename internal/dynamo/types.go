package dynamo

import (
	"math"
	"math/rand"
)

// Population holds the discrete species counts. Both are always >= 0.
type Population struct {
	Rabbits int
	Foxes   int
}

func (p Population) IsValid() bool {
	return p.Rabbits >= 0 && p.Foxes >= 0
}

func (p Population) Extinct() bool {
	return p.Rabbits == 0 && p.Foxes == 0
}

// Apply returns the population after exactly one event fires.
func (p Population) Apply(e Event) Population {
	switch e {
	case FoxBirth:
		p.Foxes++
	case FoxDeath:
		p.Foxes--
	case RabbitBirth:
		p.Rabbits++
	case RabbitDeath:
		p.Rabbits--
	}
	return p
}

// Sample is the state that was valid at Time.
type Sample struct {
	Time    float64 `json:"time"`
	Rabbits int     `json:"rabbits"`
	Foxes   int     `json:"foxes"`
}

func (s Sample) Population() Population {
	return Population{Rabbits: s.Rabbits, Foxes: s.Foxes}
}

type Trajectory struct {
	Samples []Sample `json:"samples"`
}

func (t Trajectory) Len() int { return len(t.Samples) }

func (t Trajectory) Last() (Sample, bool) {
	if len(t.Samples) == 0 {
		return Sample{}, false
	}
	return t.Samples[len(t.Samples)-1], true
}

func (t Trajectory) Times() []float64 {
	out := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		out[i] = s.Time
	}
	return out
}

func (t Trajectory) Rabbits() []float64 {
	out := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		out[i] = float64(s.Rabbits)
	}
	return out
}

func (t Trajectory) Foxes() []float64 {
	out := make([]float64, len(t.Samples))
	for i, s := range t.Samples {
		out[i] = float64(s.Foxes)
	}
	return out
}

// Event identifies one of the four competing processes. The declaration
// order is the selection priority used by Rates.Select.
type Event int

const (
	FoxBirth Event = iota
	FoxDeath
	RabbitBirth
	RabbitDeath
)

func (e Event) String() string {
	switch e {
	case FoxBirth:
		return "fox_birth"
	case FoxDeath:
		return "fox_death"
	case RabbitBirth:
		return "rabbit_birth"
	case RabbitDeath:
		return "rabbit_death"
	default:
		return "unknown"
	}
}

// Rates are expected events per unit time for the current population.
type Rates struct {
	RabbitBirth float64
	RabbitDeath float64
	FoxBirth    float64
	FoxDeath    float64
}

func (r Rates) Total() float64 {
	return r.RabbitBirth + r.RabbitDeath + r.FoxBirth + r.FoxDeath
}

func (r Rates) IsValid() bool {
	for _, v := range [...]float64{r.RabbitBirth, r.RabbitDeath, r.FoxBirth, r.FoxDeath} {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Select maps choice in [0, Total()) onto one event. The interval is split
// into four contiguous pieces in priority order: fox birth, fox death,
// rabbit birth, rabbit death. Foxes churn fastest so they are tested first.
func (r Rates) Select(choice float64) Event {
	choice -= r.FoxBirth
	if choice < 0 {
		return FoxBirth
	}
	choice -= r.FoxDeath
	if choice < 0 {
		return FoxDeath
	}
	if choice < r.RabbitBirth {
		return RabbitBirth
	}
	if r.RabbitDeath > 0 {
		return RabbitDeath
	}
	// choice landed on the upper edge through rounding; fall back to the
	// last event that can actually fire.
	switch {
	case r.RabbitBirth > 0:
		return RabbitBirth
	case r.FoxDeath > 0:
		return FoxDeath
	default:
		return FoxBirth
	}
}

// System is a rate law: a pure function of the current counts.
type System interface {
	Rates(p Population) Rates
}

type Configurable interface {
	GetParams() map[string]float64
	SetParam(name string, value float64) error
}

type Metric interface {
	Name() string
	Observe(s Sample)
	Value() float64
	Reset()
}

type Observer interface {
	OnSample(s Sample)
}

// RandSource supplies the two draws the direct method needs.
type RandSource interface {
	// Uniform returns a value in [0, hi).
	Uniform(hi float64) float64
	// Exp returns an exponentially distributed value with the given rate.
	Exp(rate float64) float64
}

type mathRand struct {
	r *rand.Rand
}

func NewRand(seed int64) RandSource {
	return &mathRand{r: rand.New(rand.NewSource(seed))}
}

func (m *mathRand) Uniform(hi float64) float64 { return m.r.Float64() * hi }
func (m *mathRand) Exp(rate float64) float64   { return m.r.ExpFloat64() / rate }

type Config struct {
	Horizon float64
	Seed    int64
}

func DefaultConfig() Config {
	return Config{
		Horizon: 600,
		Seed:    1,
	}
}

type Result struct {
	Trajectory        Trajectory
	Final             Sample
	Extinct           bool
	FoxesExtinct      bool
	FoxExtinctionTime float64
	Events            int
	Seed              int64
	Metrics           map[string]float64
}
