package physics

import (
	"fmt"
	"math"

	"github.com/san-kum/foxsim/internal/dynamo"
)

// LotkaVolterra is the stochastic predator-prey rate law.
//
//	rabbit birth  k1 R
//	rabbit death  k2 R F
//	fox birth     k3 R F
//	fox death     k4 F
type LotkaVolterra struct {
	K1 float64 // rabbit growth, day^-1
	K2 float64 // rabbits eaten, day^-1 fox^-1
	K3 float64 // fox growth from eating, day^-1 rabbit^-1
	K4 float64 // fox death, day^-1
}

// NewLotkaVolterra returns the constants from chapter 1 of Fogler's
// "Essentials of Chemical Reaction Engineering".
func NewLotkaVolterra() *LotkaVolterra {
	return &LotkaVolterra{
		K1: 0.015,
		K2: 0.00004,
		K3: 0.0004,
		K4: 0.04,
	}
}

func (lv *LotkaVolterra) Rates(p dynamo.Population) dynamo.Rates {
	r := float64(p.Rabbits)
	f := float64(p.Foxes)
	return dynamo.Rates{
		RabbitBirth: lv.K1 * r,
		RabbitDeath: lv.K2 * r * f,
		FoxBirth:    lv.K3 * r * f,
		FoxDeath:    lv.K4 * f,
	}
}

func (lv *LotkaVolterra) Validate() error {
	for name, v := range lv.GetParams() {
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s=%v", dynamo.ErrInvalidRate, name, v)
		}
	}
	return nil
}

func (lv *LotkaVolterra) GetParams() map[string]float64 {
	return map[string]float64{
		"k1": lv.K1,
		"k2": lv.K2,
		"k3": lv.K3,
		"k4": lv.K4,
	}
}

func (lv *LotkaVolterra) SetParam(name string, value float64) error {
	switch name {
	case "k1":
		lv.K1 = value
	case "k2":
		lv.K2 = value
	case "k3":
		lv.K3 = value
	case "k4":
		lv.K4 = value
	default:
		return fmt.Errorf("unknown param: %s", name)
	}
	return nil
}
