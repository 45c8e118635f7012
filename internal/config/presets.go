package config

// Presets are named run setups per problem.
var Presets = map[string]map[string]*Config{
	"oscillator": {
		"default": {
			Problem: "oscillator", Family: "multistage", Method: "erk",
			RelTol: 1e-6, AbsTol: 1e-9, Dt: 0.1, Duration: 20.0,
		},
		"coarse": {
			Problem: "oscillator", Family: "multistep", Method: "adams",
			RelTol: 1e-3, AbsTol: 1e-6, Dt: 0.5, Duration: 20.0,
		},
	},
	"vanderpol": {
		"limit-cycle": {
			Problem: "vanderpol", Family: "multistage", Method: "erk",
			RelTol: 1e-6, AbsTol: 1e-9, Dt: 0.1, Duration: 20.0,
		},
		"stiff": {
			Problem: "vanderpol", Family: "multistep", Method: "bdf",
			RelTol: 1e-4, AbsTol: 1e-8, Dt: 0.5, Duration: 100.0,
			Params: map[string]float64{"mu": 500},
		},
	},
	"robertson": {
		"kinetics": {
			Problem: "robertson", Family: "multistep", Method: "bdf",
			RelTol: 1e-4, AbsTol: 1e-10, Dt: 0.1, Duration: 40.0,
		},
	},
	"decay": {
		"stiff": {
			Problem: "decay", Family: "multistep", Method: "bdf",
			RelTol: 1e-5, AbsTol: 1e-9, Dt: 0.2, Duration: 10.0,
			Params: map[string]float64{"lambda": -1e4},
		},
	},
	"brusselator": {
		"oscillating": {
			Problem: "brusselator", Family: "multistage", Method: "dirk",
			RelTol: 1e-5, AbsTol: 1e-8, Dt: 0.2, Duration: 30.0,
		},
	},
	"chain": {
		"parallel": {
			Problem: "chain", Family: "multistage", Method: "erk",
			RelTol: 1e-5, AbsTol: 1e-8, Dt: 0.05, Duration: 5.0, Blocks: 4,
		},
	},
}

// GetPreset returns the named preset or nil.
func GetPreset(problem, name string) *Config {
	group, ok := Presets[problem]
	if !ok {
		return nil
	}
	return group[name]
}

// ListPresets returns the preset names for a problem.
func ListPresets(problem string) []string {
	group, ok := Presets[problem]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(group))
	for name := range group {
		names = append(names, name)
	}
	return names
}
