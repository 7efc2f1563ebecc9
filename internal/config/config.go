package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	DefaultDt          = 0.005
	DefaultSteps       = 1000
	DefaultSkin        = 0.3
	DefaultCutoff      = 2.5
	DefaultTemperature = 0.1
	DefaultThermoEvery = 10
	DefaultLattice     = 2.0
	DefaultRepeat      = 6
)

var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Name string `yaml:"name,omitempty"`
	Dim  int    `yaml:"dim"`
	// Box is required with an atom file and derived from the lattice otherwise.
	Box     []float64     `yaml:"box,omitempty"`
	Atoms   string        `yaml:"atoms,omitempty"`
	Lattice LatticeConfig `yaml:"lattice"`
	// Procs is the rank grid; missing or zero entries mean one rank along that axis.
	Procs       []int           `yaml:"procs,omitempty"`
	NTypes      int             `yaml:"ntypes"`
	Potential   PotentialConfig `yaml:"potential"`
	Skin        float64         `yaml:"skin"`
	Dt          float64         `yaml:"dt"`
	Steps       int             `yaml:"steps"`
	Integrator  string          `yaml:"integrator"`
	Output      OutputConfig    `yaml:"output"`
	Seed        uint64          `yaml:"seed"`
	Temperature float64         `yaml:"temperature"`
	ThermoEvery int             `yaml:"thermo_every"`
}

type LatticeConfig struct {
	// Kind is fcc in 3D or hex in 2D.
	Kind     string  `yaml:"kind"`
	Constant float64 `yaml:"a"`
	Repeat   []int   `yaml:"repeat"`
	Mass     float64 `yaml:"mass"`
}

type PotentialConfig struct {
	// Kind is monolj, pair or eam.
	Kind   string `yaml:"kind"`
	File   string `yaml:"file,omitempty"`
	Format int    `yaml:"format"`
	Order  string `yaml:"order"`
	// Cutoff is a distance, not its square. Tables carry their own.
	Cutoff  float64 `yaml:"cutoff"`
	Shift   bool    `yaml:"shift"`
	Core    string  `yaml:"core,omitempty"`
	Density string  `yaml:"density,omitempty"`
	Embed   string  `yaml:"embed,omitempty"`
}

type OutputConfig struct {
	Axial    bool `yaml:"axial"`
	Stress   bool `yaml:"stress"`
	HeatFlux bool `yaml:"heatflux"`
}

func DefaultConfig() *Config {
	return &Config{
		Dim: 3,
		Lattice: LatticeConfig{
			Kind:     "fcc",
			Constant: DefaultLattice,
			Repeat:   []int{DefaultRepeat, DefaultRepeat, DefaultRepeat},
			Mass:     1,
		},
		NTypes: 1,
		Potential: PotentialConfig{
			Kind:   "monolj",
			Format: 1,
			Order:  "cubic",
			Cutoff: DefaultCutoff,
			Shift:  true,
		},
		Skin:        DefaultSkin,
		Dt:          DefaultDt,
		Steps:       DefaultSteps,
		Integrator:  "nve",
		Seed:        1,
		Temperature: DefaultTemperature,
		ThermoEvery: DefaultThermoEvery,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy, so presets can be overridden safely.
func (c *Config) Clone() *Config {
	out := *c
	out.Box = append([]float64(nil), c.Box...)
	out.Procs = append([]int(nil), c.Procs...)
	out.Lattice.Repeat = append([]int(nil), c.Lattice.Repeat...)
	return &out
}

func (c *Config) Validate() error {
	if c.Dim != 2 && c.Dim != 3 {
		return fmt.Errorf("%w: dim must be 2 or 3, got %d", ErrInvalid, c.Dim)
	}
	if c.NTypes < 1 {
		return fmt.Errorf("%w: ntypes must be positive, got %d", ErrInvalid, c.NTypes)
	}
	if c.Dt <= 0 {
		return fmt.Errorf("%w: dt must be positive, got %g", ErrInvalid, c.Dt)
	}
	if c.Steps < 0 {
		return fmt.Errorf("%w: steps must not be negative, got %d", ErrInvalid, c.Steps)
	}
	if c.Skin < 0 {
		return fmt.Errorf("%w: skin must not be negative, got %g", ErrInvalid, c.Skin)
	}
	if c.Temperature < 0 {
		return fmt.Errorf("%w: temperature must not be negative, got %g", ErrInvalid, c.Temperature)
	}
	if len(c.Procs) > c.Dim {
		return fmt.Errorf("%w: %d procs entries for dim %d", ErrInvalid, len(c.Procs), c.Dim)
	}
	for _, p := range c.Procs {
		if p < 0 {
			return fmt.Errorf("%w: negative procs entry %d", ErrInvalid, p)
		}
	}

	if c.Atoms != "" {
		if len(c.Box) != c.Dim {
			return fmt.Errorf("%w: atom file needs a box of %d lengths", ErrInvalid, c.Dim)
		}
		for _, l := range c.Box {
			if l <= 0 {
				return fmt.Errorf("%w: box length %g", ErrInvalid, l)
			}
		}
	} else if err := c.Lattice.validate(c.Dim); err != nil {
		return err
	}
	return c.Potential.validate()
}

func (l LatticeConfig) validate(dim int) error {
	switch {
	case l.Kind == "fcc" && dim != 3:
		return fmt.Errorf("%w: fcc lattice needs dim 3", ErrInvalid)
	case l.Kind == "hex" && dim != 2:
		return fmt.Errorf("%w: hex lattice needs dim 2", ErrInvalid)
	case l.Kind != "fcc" && l.Kind != "hex":
		return fmt.Errorf("%w: unknown lattice %q", ErrInvalid, l.Kind)
	}
	if l.Constant <= 0 || l.Mass <= 0 {
		return fmt.Errorf("%w: lattice constant %g and mass %g must be positive", ErrInvalid, l.Constant, l.Mass)
	}
	if len(l.Repeat) != dim {
		return fmt.Errorf("%w: lattice needs %d repeat counts, got %d", ErrInvalid, dim, len(l.Repeat))
	}
	for _, n := range l.Repeat {
		if n < 1 {
			return fmt.Errorf("%w: repeat count %d", ErrInvalid, n)
		}
	}
	return nil
}

func (p PotentialConfig) validate() error {
	if p.Format != 0 && p.Format != 1 && p.Format != 2 {
		return fmt.Errorf("%w: table format %d", ErrInvalid, p.Format)
	}
	switch p.Kind {
	case "monolj":
		if p.Cutoff <= 0 {
			return fmt.Errorf("%w: monolj needs a positive cutoff", ErrInvalid)
		}
	case "pair":
		if p.File == "" && p.Cutoff <= 0 {
			return fmt.Errorf("%w: pair needs a table file or a cutoff", ErrInvalid)
		}
	case "eam":
		files := 0
		for _, f := range []string{p.Core, p.Density, p.Embed} {
			if f != "" {
				files++
			}
		}
		if files != 0 && files != 3 {
			return fmt.Errorf("%w: eam needs core, density and embed files together", ErrInvalid)
		}
		if files == 0 && p.Cutoff <= 0 {
			return fmt.Errorf("%w: built-in eam needs a cutoff", ErrInvalid)
		}
	default:
		return fmt.Errorf("%w: unknown potential %q", ErrInvalid, p.Kind)
	}
	return nil
}
