package storage

import (
	"bytes"
	"encoding/json"
	"math"
	"testing"
	"time"
)

func TestExport(t *testing.T) {
	s := New(t.TempDir())
	if err := s.Init(); err != nil {
		t.Fatal(err)
	}
	id, err := s.Create("export")
	if err != nil {
		t.Fatal(err)
	}
	if err := s.SaveMetadata(&RunMetadata{ID: id, Name: "export", Timestamp: time.Now()}); err != nil {
		t.Fatal(err)
	}
	if err := s.SaveThermo(id, []ThermoRow{{Step: 10, Time: 0.02, Potential: -12.5, Kinetic: 3, Temperature: 290}}); err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := s.Export(id, &buf); err != nil {
		t.Fatalf("export without rdf: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if _, ok := got["rdf"]; ok {
		t.Error("rdf present before analysis")
	}

	if err := s.SaveRDF(id, []RDFRow{{R: 0.01, G: 0, PMF: math.Inf(1), Screened: -70}}); err != nil {
		t.Fatal(err)
	}
	buf.Reset()
	if err := s.Export(id, &buf); err != nil {
		t.Fatalf("export with infinite pmf: %v", err)
	}
	var data struct {
		Thermo []struct {
			Step      int     `json:"step"`
			Potential float64 `json:"potential_kj_mol"`
		} `json:"thermo"`
		RDF []struct {
			PMF *float64 `json:"pmf_kt"`
		} `json:"rdf"`
	}
	if err := json.Unmarshal(buf.Bytes(), &data); err != nil {
		t.Fatal(err)
	}
	if len(data.Thermo) != 1 || data.Thermo[0].Step != 10 || data.Thermo[0].Potential != -12.5 {
		t.Errorf("thermo = %+v", data.Thermo)
	}
	if len(data.RDF) != 1 || data.RDF[0].PMF != nil {
		t.Errorf("infinite pmf should export as null, got %+v", data.RDF)
	}
}
