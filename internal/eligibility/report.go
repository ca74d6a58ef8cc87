// Package eligibility checks that a sample and its study are registered with
// the controlled-access archive before anything is submitted for them.
package eligibility

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
)

// adminBioProject marks the administrative BioProject entry of a study.
const adminBioProject = "admin"

// SampleEntry is one Sample element of a telemetry report.
type SampleEntry struct {
	Attrs map[string]string
	Stats []Stat
}

// Attr returns the named attribute or "".
func (s SampleEntry) Attr(name string) string { return s.Attrs[name] }

// Stat is the per-experiment-type SRA status of a sample.
type Stat struct {
	ExperimentType string `xml:"experiment_type,attr"`
	Status         string `xml:"status,attr"`
}

// BioProject is one BioProject element of a telemetry report.
type BioProject struct {
	ID   string
	Type string
}

// Report is the parsed telemetry snapshot for a study.
type Report struct {
	Study       map[string]string
	Samples     []SampleEntry
	BioProjects []BioProject
}

// MatchSamples returns every sample whose submitted_sample_id equals alias.
func (r Report) MatchSamples(alias string) []SampleEntry {
	var out []SampleEntry
	for _, s := range r.Samples {
		if s.Attr("submitted_sample_id") == alias {
			out = append(out, s)
		}
	}
	return out
}

// AdminBioProjects returns the ids of the administrative study entries.
func (r Report) AdminBioProjects() []string {
	var out []string
	for _, bp := range r.BioProjects {
		if bp.Type == adminBioProject {
			out = append(out, bp.ID)
		}
	}
	return out
}

type sampleXML struct {
	Attrs []xml.Attr `xml:",any,attr"`
	Stats []Stat     `xml:"SRAData>Stats"`
}

// ParseReport decodes a telemetry report, collecting Sample and BioProject
// elements at any depth.
func ParseReport(r io.Reader) (Report, error) {
	rep := Report{Study: map[string]string{}}
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			return rep, nil
		}
		if err != nil {
			return Report{}, fmt.Errorf("parse telemetry report: %w", err)
		}
		start, ok := tok.(xml.StartElement)
		if !ok {
			continue
		}
		switch start.Name.Local {
		case "Study":
			if len(rep.Study) == 0 {
				rep.Study = attrMap(start.Attr)
			}
		case "BioProject":
			attrs := attrMap(start.Attr)
			rep.BioProjects = append(rep.BioProjects, BioProject{ID: attrs["bp_id"], Type: attrs["bp_type"]})
		case "Sample":
			var s sampleXML
			if err := dec.DecodeElement(&s, &start); err != nil {
				return Report{}, fmt.Errorf("parse telemetry sample: %w", err)
			}
			rep.Samples = append(rep.Samples, SampleEntry{Attrs: attrMap(s.Attrs), Stats: s.Stats})
		}
	}
}

func attrMap(attrs []xml.Attr) map[string]string {
	m := make(map[string]string, len(attrs))
	for _, a := range attrs {
		m[a.Name.Local] = a.Value
	}
	return m
}
