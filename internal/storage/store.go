package storage

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/san-kum/mdforce/internal/atoms"
	"github.com/san-kum/mdforce/internal/cell"
	"github.com/san-kum/mdforce/internal/config"
	"github.com/san-kum/mdforce/internal/dynamo"
	"github.com/san-kum/mdforce/internal/force"
	"github.com/san-kum/mdforce/internal/sim"
)

const (
	metadataFile = "metadata.json"
	thermoFile   = "thermo.csv"
	configFile   = "config.yaml"
	finalFile    = "final.atoms.gz"
)

var thermoHeader = []string{
	"step", "time", "n", "epot", "ekin", "etot", "temperature", "pressure", "virial",
	"txx", "tyy", "tzz", "tyz", "tzx", "txy", "rebuilt",
}

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Potential  string             `json:"potential"`
	Integrator string             `json:"integrator"`
	Timestamp  time.Time          `json:"timestamp"`
	Seed       uint64             `json:"seed"`
	Dt         float64            `json:"dt"`
	Steps      int                `json:"steps"`
	Dim        int                `json:"dim"`
	Box        dynamo.Vec         `json:"box"`
	Ranks      int                `json:"ranks"`
	Particles  int                `json:"particles"`
	Metrics    map[string]float64 `json:"metrics"`
	Stats      force.Stats        `json:"stats"`
}

// Save writes one run directory: metadata, the thermo series, the config
// that produced it and the final configuration.
func (s *Store) Save(cfg *config.Config, world sim.World, result *sim.Result) (string, error) {
	name := cfg.Name
	if name == "" {
		name = cfg.Potential.Kind
	}
	runID, runDir, err := s.newRunDir(name)
	if err != nil {
		return "", err
	}

	meta := RunMetadata{
		ID:         runID,
		Name:       name,
		Potential:  cfg.Potential.Kind,
		Integrator: cfg.Integrator,
		Timestamp:  time.Now(),
		Seed:       cfg.Seed,
		Dt:         cfg.Dt,
		Steps:      result.StepsTaken,
		Dim:        world.Dim,
		Box:        world.Box,
		Ranks:      world.Ranks(),
		Particles:  len(result.Particles),
		Metrics:    result.Metrics,
		Stats:      result.Stats,
	}
	if err := writeJSON(filepath.Join(runDir, metadataFile), meta); err != nil {
		return "", err
	}
	if err := config.Save(filepath.Join(runDir, configFile), cfg); err != nil {
		return "", err
	}
	if err := writeThermo(filepath.Join(runDir, thermoFile), result.Thermo); err != nil {
		return "", err
	}
	if len(result.Particles) > 0 {
		if err := atoms.WriteFile(filepath.Join(runDir, finalFile), result.Particles, world.Dim); err != nil {
			return "", err
		}
	}
	return runID, nil
}

func (s *Store) newRunDir(name string) (string, string, error) {
	base := fmt.Sprintf("%s_%d", name, time.Now().Unix())
	runID := base
	for i := 1; ; i++ {
		runDir := filepath.Join(s.baseDir, runID)
		err := os.Mkdir(runDir, 0755)
		if err == nil {
			return runID, runDir, nil
		}
		if !os.IsExist(err) {
			return "", "", err
		}
		runID = fmt.Sprintf("%s_%d", base, i)
	}
}

func writeJSON(path string, v any) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', 12, 64)
}

func writeThermo(path string, series []sim.Thermo) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(thermoHeader); err != nil {
		return err
	}
	for _, th := range series {
		row := []string{
			strconv.Itoa(th.Step),
			formatFloat(th.Time),
			strconv.Itoa(th.N),
			formatFloat(th.Epot),
			formatFloat(th.Ekin),
			formatFloat(th.Etot),
			formatFloat(th.Temperature),
			formatFloat(th.Pressure),
			formatFloat(th.Virial),
		}
		for _, v := range th.Tensor {
			row = append(row, formatFloat(v))
		}
		row = append(row, strconv.FormatBool(th.Rebuilt))
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

// List returns every readable run, oldest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.SliceStable(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	return &meta, nil
}

func (s *Store) LoadConfig(runID string) (*config.Config, error) {
	return config.Load(filepath.Join(s.baseDir, runID, configFile))
}

func (s *Store) LoadParticles(runID string, dim int) ([]cell.Particle, error) {
	return atoms.ReadFile(filepath.Join(s.baseDir, runID, finalFile), dim)
}

func (s *Store) LoadThermo(runID string) ([]sim.Thermo, error) {
	f, err := os.Open(filepath.Join(s.baseDir, runID, thermoFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(thermoHeader)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	if len(records) < 2 {
		return []sim.Thermo{}, nil
	}

	series := make([]sim.Thermo, 0, len(records)-1)
	for i, rec := range records[1:] {
		th, err := parseThermo(rec)
		if err != nil {
			return nil, fmt.Errorf("%s: %s row %d: %w", runID, thermoFile, i+1, err)
		}
		series = append(series, th)
	}
	return series, nil
}

func parseThermo(rec []string) (sim.Thermo, error) {
	var (
		th  sim.Thermo
		err error
	)
	if th.Step, err = strconv.Atoi(rec[0]); err != nil {
		return th, err
	}
	if th.N, err = strconv.Atoi(rec[2]); err != nil {
		return th, err
	}
	floats := []*float64{&th.Time, nil, &th.Epot, &th.Ekin, &th.Etot, &th.Temperature, &th.Pressure, &th.Virial}
	for i, dst := range floats {
		if dst == nil {
			continue
		}
		if *dst, err = strconv.ParseFloat(rec[i+1], 64); err != nil {
			return th, err
		}
	}
	for k := range th.Tensor {
		if th.Tensor[k], err = strconv.ParseFloat(rec[9+k], 64); err != nil {
			return th, err
		}
	}
	th.Rebuilt, err = strconv.ParseBool(rec[15])
	return th, err
}
