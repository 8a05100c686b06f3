package storage

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"os"
	"strconv"
)

// ExportData bundles a run's metadata and series for external tools.
type ExportData struct {
	Metadata *RunMetadata   `json:"metadata"`
	Thermo   []exportThermo `json:"thermo"`
	RDF      []exportRDF    `json:"rdf,omitempty"`
}

// jsonFloat encodes non-finite values as null.
type jsonFloat float64

func (f jsonFloat) MarshalJSON() ([]byte, error) {
	v := float64(f)
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return []byte("null"), nil
	}
	return strconv.AppendFloat(nil, v, 'g', -1, 64), nil
}

type exportThermo struct {
	Step        int       `json:"step"`
	Time        jsonFloat `json:"time_ps"`
	Potential   jsonFloat `json:"potential_kj_mol"`
	Kinetic     jsonFloat `json:"kinetic_kj_mol"`
	Temperature jsonFloat `json:"temperature_k"`
}

type exportRDF struct {
	R        jsonFloat `json:"r_nm"`
	G        jsonFloat `json:"g"`
	PMF      jsonFloat `json:"pmf_kt"`
	Screened jsonFloat `json:"debye_huckel_kt"`
}

// Export writes the run as indented JSON. The RDF is included once the run
// has been analysed.
func (s *Store) Export(runID string, w io.Writer) error {
	meta, err := s.Load(runID)
	if err != nil {
		return err
	}
	thermo, err := s.LoadThermo(runID)
	if err != nil {
		return err
	}
	data := ExportData{Metadata: meta, Thermo: make([]exportThermo, len(thermo))}
	for i, r := range thermo {
		data.Thermo[i] = exportThermo{
			Step:        r.Step,
			Time:        jsonFloat(r.Time),
			Potential:   jsonFloat(r.Potential),
			Kinetic:     jsonFloat(r.Kinetic),
			Temperature: jsonFloat(r.Temperature),
		}
	}
	rdf, err := s.LoadRDF(runID)
	switch {
	case err == nil:
		for _, r := range rdf {
			data.RDF = append(data.RDF, exportRDF{jsonFloat(r.R), jsonFloat(r.G), jsonFloat(r.PMF), jsonFloat(r.Screened)})
		}
	case !errors.Is(err, os.ErrNotExist):
		return err
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(data)
}
