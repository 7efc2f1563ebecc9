package storage

import (
	"encoding/json"
	"io"

	"github.com/san-kum/mdforce/internal/sim"
)

type ExportData struct {
	RunMetadata
	Thermo []sim.Thermo `json:"thermo"`
}

// ExportJSON writes a run's metadata and thermo series as one document.
func (s *Store) ExportJSON(w io.Writer, runID string) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	thermo, err := s.LoadThermo(runID)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(ExportData{RunMetadata: *meta, Thermo: thermo})
}
