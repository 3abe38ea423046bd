package physics

import (
	"errors"
	"math"
	"testing"

	"github.com/san-kum/foxsim/internal/dynamo"
)

func TestLotkaVolterraRates(t *testing.T) {
	lv := NewLotkaVolterra()
	r := lv.Rates(dynamo.Population{Rabbits: 400, Foxes: 200})

	want := dynamo.Rates{
		RabbitBirth: 6,
		RabbitDeath: 3.2,
		FoxBirth:    32,
		FoxDeath:    8,
	}

	for name, pair := range map[string][2]float64{
		"rabbit_birth": {r.RabbitBirth, want.RabbitBirth},
		"rabbit_death": {r.RabbitDeath, want.RabbitDeath},
		"fox_birth":    {r.FoxBirth, want.FoxBirth},
		"fox_death":    {r.FoxDeath, want.FoxDeath},
	} {
		if math.Abs(pair[0]-pair[1]) > 1e-9 {
			t.Errorf("%s = %v, want %v", name, pair[0], pair[1])
		}
	}
}

func TestLotkaVolterraZeroRates(t *testing.T) {
	lv := NewLotkaVolterra()

	if total := lv.Rates(dynamo.Population{}).Total(); total != 0 {
		t.Errorf("empty farm should have zero total rate, got %v", total)
	}

	r := lv.Rates(dynamo.Population{Rabbits: 10})
	if r.FoxBirth != 0 || r.FoxDeath != 0 || r.RabbitDeath != 0 {
		t.Errorf("fox-dependent rates should vanish without foxes: %+v", r)
	}
	if r.RabbitBirth == 0 {
		t.Error("rabbits should still breed without foxes")
	}
}

func TestLotkaVolterraParams(t *testing.T) {
	lv := NewLotkaVolterra()

	if err := lv.SetParam("k3", 0.00004); err != nil {
		t.Fatalf("SetParam failed: %v", err)
	}
	if lv.GetParams()["k3"] != 0.00004 {
		t.Errorf("k3 not updated: %v", lv.GetParams())
	}
	if err := lv.SetParam("k9", 1); err == nil {
		t.Error("expected error for unknown param")
	}
}

func TestLotkaVolterraValidate(t *testing.T) {
	tests := []struct {
		name string
		lv   LotkaVolterra
		ok   bool
	}{
		{"fogler", *NewLotkaVolterra(), true},
		{"all zero", LotkaVolterra{}, true},
		{"negative k2", LotkaVolterra{K1: 1, K2: -1}, false},
		{"nan k4", LotkaVolterra{K4: math.NaN()}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.lv.Validate()
			if tt.ok && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if !tt.ok && !errors.Is(err, dynamo.ErrInvalidRate) {
				t.Errorf("expected ErrInvalidRate, got %v", err)
			}
		})
	}
}
