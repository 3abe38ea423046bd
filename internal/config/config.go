package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/foxsim/internal/analysis"
	"github.com/san-kum/foxsim/internal/dynamo"
	"github.com/san-kum/foxsim/internal/experiment"
	"github.com/san-kum/foxsim/internal/physics"
)

const (
	DefaultRabbits = 400
	DefaultFoxes   = 200
	DefaultHorizon = 600.0
	DefaultRuns    = 1000
	DefaultKeep    = 50
	DefaultDataDir = ".foxsim"
)

var ErrInvalidConfig = errors.New("config: invalid")

type Config struct {
	Rabbits int                 `yaml:"rabbits"`
	Foxes   int                 `yaml:"foxes"`
	Horizon float64             `yaml:"horizon"`
	Runs    int                 `yaml:"runs"`
	Seed    int64               `yaml:"seed"`
	Workers int                 `yaml:"workers"`
	Keep    int                 `yaml:"keep"`
	Rates   RatesConfig         `yaml:"rates"`
	Window  analysis.PeakWindow `yaml:"window"`
	DataDir string              `yaml:"data_dir"`
}

type RatesConfig struct {
	K1 float64 `yaml:"k1"`
	K2 float64 `yaml:"k2"`
	K3 float64 `yaml:"k3"`
	K4 float64 `yaml:"k4"`
}

func DefaultConfig() *Config {
	lv := physics.NewLotkaVolterra()
	return &Config{
		Rabbits: DefaultRabbits,
		Foxes:   DefaultFoxes,
		Horizon: DefaultHorizon,
		Runs:    DefaultRuns,
		Seed:    1,
		Keep:    DefaultKeep,
		Rates: RatesConfig{
			K1: lv.K1,
			K2: lv.K2,
			K3: lv.K3,
			K4: lv.K4,
		},
		Window:  analysis.DefaultPeakWindow(),
		DataDir: DefaultDataDir,
	}
}

// Load checks the file against the schema, then overlays it on the
// defaults.
func Load(path string) (*Config, error) {
	return LoadOver(path, DefaultConfig())
}

// LoadOver checks the file against the schema and overlays it on a copy of
// base, so keys missing from the file keep the base values.
func LoadOver(path string, base *Config) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := ValidateYAML(path, data); err != nil {
		return nil, err
	}
	cfg := *base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	switch {
	case c.Rabbits < 0 || c.Foxes < 0:
		return fmt.Errorf("%w: negative initial population (rabbits=%d, foxes=%d)", ErrInvalidConfig, c.Rabbits, c.Foxes)
	case c.Horizon <= 0 || math.IsNaN(c.Horizon) || math.IsInf(c.Horizon, 0):
		return fmt.Errorf("%w: horizon must be positive, got %v", ErrInvalidConfig, c.Horizon)
	case c.Runs <= 0:
		return fmt.Errorf("%w: runs must be positive, got %d", ErrInvalidConfig, c.Runs)
	case c.Workers < 0 || c.Keep < 0:
		return fmt.Errorf("%w: workers and keep must not be negative", ErrInvalidConfig)
	}
	if err := c.Model().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func (c *Config) Model() *physics.LotkaVolterra {
	return &physics.LotkaVolterra{K1: c.Rates.K1, K2: c.Rates.K2, K3: c.Rates.K3, K4: c.Rates.K4}
}

func (c *Config) ToStudy() experiment.Config {
	return experiment.Config{
		Params:  *c.Model(),
		Initial: dynamo.Population{Rabbits: c.Rabbits, Foxes: c.Foxes},
		Horizon: c.Horizon,
		Runs:    c.Runs,
		Seed:    c.Seed,
		Workers: c.Workers,
		Keep:    c.Keep,
		Window:  c.Window,
	}
}
