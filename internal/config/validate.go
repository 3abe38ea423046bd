package config

import (
	"bytes"
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/encoding/yaml"
)

const schema = `
#Rates: {
	k1?: number & >=0
	k2?: number & >=0
	k3?: number & >=0
	k4?: number & >=0
}

#Window: {
	min_time?:  number
	min_foxes?: number
}

#Config: {
	rabbits?:  int & >=0
	foxes?:    int & >=0
	horizon?:  number & >0
	runs?:     int & >0
	seed?:     int
	workers?:  int & >=0
	keep?:     int & >=0
	rates?:    #Rates
	window?:   #Window
	data_dir?: string
}
`

// ValidateYAML checks a YAML document against the config schema. Unknown
// keys are rejected.
func ValidateYAML(filename string, data []byte) error {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	ctx := cuecontext.New()

	schemaVal := ctx.CompileString(schema)
	if err := schemaVal.Err(); err != nil {
		return fmt.Errorf("config: compile schema: %w", err)
	}

	file, err := yaml.Extract(filename, data)
	if err != nil {
		return fmt.Errorf("config: parse %s: %w", filename, err)
	}
	configVal := ctx.BuildFile(file)
	if err := configVal.Err(); err != nil {
		return fmt.Errorf("config: load %s: %w", filename, err)
	}

	final := schemaVal.LookupPath(cue.ParsePath("#Config")).Unify(configVal)
	if err := final.Validate(cue.Concrete(true)); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, filename, err)
	}
	return nil
}
