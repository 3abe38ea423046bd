package metrics

import (
	"fmt"

	"github.com/san-kum/foxsim/internal/dynamo"
)

type Species int

const (
	Rabbits Species = iota
	Foxes
)

func (s Species) String() string {
	if s == Foxes {
		return "foxes"
	}
	return "rabbits"
}

func (s Species) count(smp dynamo.Sample) int {
	if s == Foxes {
		return smp.Foxes
	}
	return smp.Rabbits
}

// Series returns the counts of this species in sample order.
func (s Species) Series(tr dynamo.Trajectory) []float64 {
	if s == Foxes {
		return tr.Foxes()
	}
	return tr.Rabbits()
}

func ParseSpecies(name string) (Species, error) {
	switch name {
	case "rabbits":
		return Rabbits, nil
	case "foxes":
		return Foxes, nil
	default:
		return 0, fmt.Errorf("unknown species: %s", name)
	}
}

type MaxPopulation struct {
	name    string
	species Species
	max     int
}

func NewMaxPopulation(species Species) *MaxPopulation {
	return &MaxPopulation{
		name:    "max_" + species.String(),
		species: species,
	}
}

func (m *MaxPopulation) Name() string {
	return m.name
}

func (m *MaxPopulation) Observe(s dynamo.Sample) {
	if n := m.species.count(s); n > m.max {
		m.max = n
	}
}

func (m *MaxPopulation) Value() float64 {
	return float64(m.max)
}

func (m *MaxPopulation) Reset() {
	m.max = 0
}

// MeanPopulation averages over recorded samples, so each event carries
// equal weight regardless of how long the state lasted.
type MeanPopulation struct {
	name    string
	species Species
	sum     float64
	samples int
}

func NewMeanPopulation(species Species) *MeanPopulation {
	return &MeanPopulation{
		name:    "mean_" + species.String(),
		species: species,
	}
}

func (m *MeanPopulation) Name() string {
	return m.name
}

func (m *MeanPopulation) Observe(s dynamo.Sample) {
	m.sum += float64(m.species.count(s))
	m.samples++
}

func (m *MeanPopulation) Value() float64 {
	if m.samples == 0 {
		return 0
	}
	return m.sum / float64(m.samples)
}

func (m *MeanPopulation) Reset() {
	m.sum = 0
	m.samples = 0
}

// EventCount counts the state changes visible in the trajectory. The event
// that carries a run past its horizon is never recorded, so this is one less
// than Result.Events for runs that reach the horizon.
type EventCount struct {
	name  string
	last  dynamo.Sample
	seen  bool
	count int
}

func NewEventCount() *EventCount {
	return &EventCount{name: "events"}
}

func (e *EventCount) Name() string {
	return e.name
}

func (e *EventCount) Observe(s dynamo.Sample) {
	if e.seen && s.Population() != e.last.Population() {
		e.count++
	}
	e.last = s
	e.seen = true
}

func (e *EventCount) Value() float64 {
	return float64(e.count)
}

func (e *EventCount) Reset() {
	e.last = dynamo.Sample{}
	e.seen = false
	e.count = 0
}

// Coexistence is the fraction of samples in which both species are present.
type Coexistence struct {
	name    string
	both    int
	samples int
}

func NewCoexistence() *Coexistence {
	return &Coexistence{name: "coexistence"}
}

func (c *Coexistence) Name() string {
	return c.name
}

func (c *Coexistence) Observe(s dynamo.Sample) {
	c.samples++
	if s.Rabbits > 0 && s.Foxes > 0 {
		c.both++
	}
}

func (c *Coexistence) Value() float64 {
	if c.samples == 0 {
		return 1.0
	}
	return float64(c.both) / float64(c.samples)
}

func (c *Coexistence) Reset() {
	c.both = 0
	c.samples = 0
}

// Standard returns the per-trajectory metrics attached to every study run.
func Standard() []dynamo.Metric {
	return []dynamo.Metric{
		NewMaxPopulation(Rabbits),
		NewMaxPopulation(Foxes),
		NewMeanPopulation(Rabbits),
		NewMeanPopulation(Foxes),
		NewEventCount(),
		NewCoexistence(),
	}
}
