package automation

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/foxsim/internal/config"
	"github.com/san-kum/foxsim/internal/experiment"
	"github.com/san-kum/foxsim/internal/optim"
)

// Scenario is a scripted sequence of studies.
type Scenario struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Steps       []Step `yaml:"steps"`
}

// Step is one study in a scenario. Params accepts the same names as a sweep
// (k1-k4, horizon, rabbits, foxes) and is applied on top of the preset.
type Step struct {
	Name   string             `yaml:"name"`
	Preset string             `yaml:"preset"`
	Runs   int                `yaml:"runs"`
	Seed   int64              `yaml:"seed"`
	Params map[string]float64 `yaml:"params"`
}

// StepResult pairs a step with the report it produced.
type StepResult struct {
	Step   Step
	Report *experiment.Report
}

// LoadScenario loads a scenario from a YAML file.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

func ParseScenario(data []byte) (*Scenario, error) {
	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if len(scenario.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q has no steps", scenario.Name)
	}
	for i := range scenario.Steps {
		if scenario.Steps[i].Name == "" {
			scenario.Steps[i].Name = fmt.Sprintf("step%d", i+1)
		}
	}
	return &scenario, nil
}

// StudyConfig resolves the step into a validated study configuration.
func (s Step) StudyConfig() (experiment.Config, error) {
	base := config.DefaultConfig()
	if s.Preset != "" {
		if base = config.GetPreset(s.Preset); base == nil {
			return experiment.Config{}, fmt.Errorf("unknown preset: %s", s.Preset)
		}
	}
	if s.Runs > 0 {
		base.Runs = s.Runs
	}
	if s.Seed != 0 {
		base.Seed = s.Seed
	}
	if err := base.Validate(); err != nil {
		return experiment.Config{}, err
	}

	cfg := base.ToStudy()
	for name, v := range s.Params {
		if err := optim.ApplyParam(&cfg, name, v); err != nil {
			return experiment.Config{}, err
		}
	}
	return cfg, nil
}

// RunScenario executes all steps in order. done, when set, is called after
// each step and may persist or print the report.
func RunScenario(
	ctx context.Context,
	scenario *Scenario,
	logger *zap.Logger,
	done func(i int, r StepResult) error,
) ([]StepResult, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	results := make([]StepResult, 0, len(scenario.Steps))

	for i, step := range scenario.Steps {
		cfg, err := step.StudyConfig()
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, step.Name, err)
		}

		logger.Info("scenario step",
			zap.String("scenario", scenario.Name),
			zap.String("step", step.Name),
			zap.Int("index", i+1),
			zap.Int("of", len(scenario.Steps)),
		)

		report, err := experiment.New(cfg, logger).Run(ctx)
		if err != nil {
			return results, fmt.Errorf("step %d (%s): %w", i+1, step.Name, err)
		}

		r := StepResult{Step: step, Report: report}
		results = append(results, r)
		if done != nil {
			if err := done(i, r); err != nil {
				return results, err
			}
		}
	}

	return results, nil
}
