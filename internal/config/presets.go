package config

import "sort"

var Presets = map[string]*Config{
	"fogler": DefaultConfig(),
	"slow_foxes": func() *Config {
		c := DefaultConfig()
		c.Rates.K3 = 0.00004
		c.Horizon = 800
		return c
	}(),
	"quick": func() *Config {
		c := DefaultConfig()
		c.Runs = 100
		c.Keep = 20
		return c
	}(),
	"small_farm": func() *Config {
		c := DefaultConfig()
		c.Rabbits = 40
		c.Foxes = 20
		c.Window.MinFoxes = 10
		return c
	}(),
}

var presetDescriptions = map[string]string{
	"fogler":     "textbook constants, 400 rabbits and 200 foxes over 600 days",
	"slow_foxes": "foxes gain a tenth as much from each rabbit, 800 days",
	"quick":      "textbook constants with 100 runs",
	"small_farm": "40 rabbits and 20 foxes, extinction is common",
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	c := *cfg
	return &c
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func DescribePreset(name string) string {
	return presetDescriptions[name]
}
