package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt       = 0.1
	DefaultDuration = 10.0
	DefaultRelTol   = 1e-4
	DefaultAbsTol   = 1e-9
)

// Config describes one integration run.
type Config struct {
	Problem   string             `yaml:"problem"`
	Family    string             `yaml:"family"` // multistep | multistage
	Method    string             `yaml:"method"` // adams | bdf | erk | dirk
	Table     string             `yaml:"table,omitempty"`
	RelTol    float64            `yaml:"rel_tol"`
	AbsTol    float64            `yaml:"abs_tol"`
	Dt        float64            `yaml:"dt"`
	Duration  float64            `yaml:"duration"`
	FixedStep float64            `yaml:"fixed_step,omitempty"`
	MaxSteps  int                `yaml:"max_steps,omitempty"`
	Blocks    int                `yaml:"blocks,omitempty"` // parallel RHS blocks, 0 = serial
	InitState []float64          `yaml:"init_state,omitempty"`
	Params    map[string]float64 `yaml:"params,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Problem:  "oscillator",
		Family:   "multistep",
		Method:   "adams",
		RelTol:   DefaultRelTol,
		AbsTol:   DefaultAbsTol,
		Dt:       DefaultDt,
		Duration: DefaultDuration,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, cfg.Validate()
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.Dt <= 0 {
		return fmt.Errorf("config: dt must be positive, got %g", c.Dt)
	}
	if c.Duration <= 0 {
		return fmt.Errorf("config: duration must be positive, got %g", c.Duration)
	}
	if c.RelTol <= 0 || c.AbsTol <= 0 {
		return fmt.Errorf("config: tolerances must be positive, got rel=%g abs=%g", c.RelTol, c.AbsTol)
	}
	switch c.Family {
	case "multistep", "multistage":
	default:
		return fmt.Errorf("config: unknown family %q", c.Family)
	}
	switch c.Method {
	case "adams", "bdf", "erk", "dirk", "":
	default:
		return fmt.Errorf("config: unknown method %q", c.Method)
	}
	return nil
}

// Implicit reports whether the configured method needs linear solves.
func (c *Config) Implicit() bool {
	return c.Method == "bdf" || c.Method == "dirk"
}
