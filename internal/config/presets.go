package config

import "sort"

var Presets = map[string]*Config{
	"lj-fcc": {
		Name: "lj-fcc", Dim: 3, NTypes: 1,
		Lattice:   LatticeConfig{Kind: "fcc", Constant: 2.0, Repeat: []int{6, 6, 6}, Mass: 1},
		Procs:     []int{2, 2, 1},
		Potential: PotentialConfig{Kind: "monolj", Cutoff: 2.5, Shift: true},
		Skin:      0.3, Dt: 0.005, Steps: 2000, Integrator: "nve",
		Seed: 1, Temperature: 0.2, ThermoEvery: 20,
		Output: OutputConfig{Axial: true},
	},
	"lj-fcc-quench": {
		Name: "lj-fcc-quench", Dim: 3, NTypes: 1,
		Lattice:   LatticeConfig{Kind: "fcc", Constant: 2.0, Repeat: []int{6, 6, 6}, Mass: 1},
		Potential: PotentialConfig{Kind: "monolj", Cutoff: 2.5, Shift: true},
		Skin:      0.3, Dt: 0.005, Steps: 1000, Integrator: "mik",
		Seed: 1, Temperature: 0.5, ThermoEvery: 20,
	},
	"lj-hex2d": {
		Name: "lj-hex2d", Dim: 2, NTypes: 1,
		Lattice:   LatticeConfig{Kind: "hex", Constant: 1.414, Repeat: []int{24, 14}, Mass: 1},
		Procs:     []int{2, 2},
		Potential: PotentialConfig{Kind: "pair", Order: "cubic", Cutoff: 2.5, Shift: true},
		Skin:      0.3, Dt: 0.005, Steps: 2000, Integrator: "nve",
		Seed: 2, Temperature: 0.1, ThermoEvery: 20,
		Output: OutputConfig{Axial: true, Stress: true},
	},
	"eam-fcc": {
		Name: "eam-fcc", Dim: 3, NTypes: 2,
		Lattice:   LatticeConfig{Kind: "fcc", Constant: 2.0, Repeat: []int{6, 6, 6}, Mass: 1},
		Procs:     []int{2, 1, 1},
		Potential: PotentialConfig{Kind: "eam", Order: "cubic", Cutoff: 2.5},
		Skin:      0.3, Dt: 0.002, Steps: 1000, Integrator: "nve",
		Seed: 3, Temperature: 0.05, ThermoEvery: 20,
		Output: OutputConfig{Axial: true, Stress: true, HeatFlux: true},
	},
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	cfg, ok := Presets[name]
	if !ok {
		return nil
	}
	return cfg.Clone()
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
