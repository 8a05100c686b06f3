package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"github.com/klauspost/compress/gzip"

	"github.com/san-kum/ionsim/internal/topology"
)

// Files inside a run directory.
const (
	MetadataFile   = "metadata.json"
	StructureFile  = "structure.pdb"
	TrajectoryFile = "trajectory.dcd"
	ThermoFile     = "thermo.csv.gz"
	RDFFile        = "rdf.csv"
	ConfigFile     = "config.yaml"
	ForceFieldFile = "forcefield.yaml"
)

var ErrRunNotFound = errors.New("storage: run not found")

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

// RigidSummary counts rigid-body pairs over all residues.
type RigidSummary struct {
	Residues    int `json:"residues"`
	Pairs       int `json:"pairs"`
	Constrained int `json:"constrained"`
	Incomplete  int `json:"incomplete"`
}

type RunMetadata struct {
	ID                 string             `json:"id"`
	Name               string             `json:"name"`
	Backend            string             `json:"backend"`
	Timestamp          time.Time          `json:"timestamp"`
	Seed               int64              `json:"seed"`
	Timestep           float64            `json:"timestep_ps"`
	Temperature        float64            `json:"temperature_k"`
	Friction           float64            `json:"friction_per_ps"`
	Dielectric         float64            `json:"dielectric"`
	Cutoff             float64            `json:"cutoff_nm"`
	Box                [3]float64         `json:"box_nm"`
	NumAtoms           int                `json:"num_atoms"`
	EquilibrationSteps int                `json:"equilibration_steps"`
	ProductionSteps    int                `json:"production_steps"`
	ReportInterval     int                `json:"report_interval"`
	ForceField         string             `json:"forcefield"`
	Rigid              *RigidSummary      `json:"rigid,omitempty"`
	Stages             map[string]float64 `json:"stages_s,omitempty"`
	Metrics            map[string]float64 `json:"metrics,omitempty"`
}

// Create makes a fresh run directory named <name>_<unix nanos>.
func (s *Store) Create(name string) (string, error) {
	runID := fmt.Sprintf("%s_%d", name, time.Now().UnixNano())
	if err := os.MkdirAll(filepath.Join(s.baseDir, runID), 0755); err != nil {
		return "", err
	}
	return runID, nil
}

// Path returns the location of file inside a run directory.
func (s *Store) Path(runID, file string) string {
	return filepath.Join(s.baseDir, runID, file)
}

func (s *Store) SaveMetadata(meta *RunMetadata) error {
	f, err := os.Create(s.Path(meta.ID, MetadataFile))
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	return enc.Encode(meta)
}

func (s *Store) SaveStructure(runID string, top *topology.Topology) error {
	return topology.WritePDBFile(s.Path(runID, StructureFile), top)
}

func (s *Store) LoadStructure(runID string) (*topology.Topology, error) {
	return topology.LoadPDB(s.Path(runID, StructureFile))
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
	sort.Slice(runs, func(i, j int) bool { return runs[i].Timestamp.Before(runs[j].Timestamp) })
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(s.Path(runID, MetadataFile))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
		}
		return nil, err
	}
	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("%s: %w", runID, err)
	}
	return &meta, nil
}

// ThermoRow is one reported thermodynamic sample.
type ThermoRow struct {
	Step        int
	Time        float64 // ps
	Potential   float64 // kJ/mol
	Kinetic     float64 // kJ/mol
	Temperature float64 // K
}

var thermoHeader = []string{"step", "time_ps", "potential_kj_mol", "kinetic_kj_mol", "temperature_k"}

// SaveThermo writes the series as gzip-compressed CSV.
func (s *Store) SaveThermo(runID string, rows []ThermoRow) error {
	f, err := os.Create(s.Path(runID, ThermoFile))
	if err != nil {
		return err
	}
	defer f.Close()

	zw := gzip.NewWriter(f)
	if err := writeThermo(zw, rows); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

func writeThermo(w io.Writer, rows []ThermoRow) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(thermoHeader); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Step),
			formatFloat(r.Time),
			formatFloat(r.Potential),
			formatFloat(r.Kinetic),
			formatFloat(r.Temperature),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func (s *Store) LoadThermo(runID string) ([]ThermoRow, error) {
	f, err := os.Open(s.Path(runID, ThermoFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ThermoFile, err)
	}
	defer zr.Close()

	records, err := readRecords(zr, len(thermoHeader))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", ThermoFile, err)
	}
	rows := make([]ThermoRow, 0, len(records))
	for _, rec := range records {
		step, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%s: step %q: %w", ThermoFile, rec[0], err)
		}
		vals, err := parseFloats(rec[1:])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", ThermoFile, err)
		}
		rows = append(rows, ThermoRow{Step: step, Time: vals[0], Potential: vals[1], Kinetic: vals[2], Temperature: vals[3]})
	}
	return rows, nil
}

// RDFRow is one bin of a radial distribution function compared against
// Debye-Hückel theory. Energies are in kT.
type RDFRow struct {
	R        float64 // nm, bin centre
	G        float64
	PMF      float64
	Screened float64
}

var rdfHeader = []string{"r_nm", "g", "pmf_kt", "debye_huckel_kt"}

func (s *Store) SaveRDF(runID string, rows []RDFRow) error {
	f, err := os.Create(s.Path(runID, RDFFile))
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(rdfHeader); err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Write([]string{formatFloat(r.R), formatFloat(r.G), formatFloat(r.PMF), formatFloat(r.Screened)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (s *Store) LoadRDF(runID string) ([]RDFRow, error) {
	f, err := os.Open(s.Path(runID, RDFFile))
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := readRecords(f, len(rdfHeader))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", RDFFile, err)
	}
	rows := make([]RDFRow, 0, len(records))
	for _, rec := range records {
		v, err := parseFloats(rec)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", RDFFile, err)
		}
		rows = append(rows, RDFRow{R: v[0], G: v[1], PMF: v[2], Screened: v[3]})
	}
	return rows, nil
}

// readRecords returns the data rows after the header.
func readRecords(r io.Reader, fields int) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = fields
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, errors.New("missing header")
	}
	return records[1:], nil
}

func parseFloats(fields []string) ([]float64, error) {
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
