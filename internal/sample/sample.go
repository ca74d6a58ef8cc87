// Package sample models the per-sample record exported from the workflow data
// tables and the registration details attached to it after eligibility checks.
package sample

import (
	"bytes"
	"encoding/json"
	"fmt"
	"path"
	"strconv"
	"strings"

	"seqsubmit/internal/readgroup"
	"seqsubmit/internal/submiterr"
)

// DataType pairs the identifier constant for a data type with its display name.
type DataType struct {
	Constant string
	Name     string
}

var unknownDataType = DataType{Constant: "Unknown", Name: "Unknown"}

var dataTypes = map[string]DataType{
	"WGS":              {Constant: "Whole Genome", Name: "Whole Genome Sequencing"},
	"RNA":              {Constant: "RNA Seq", Name: "RNA Sequencing"},
	"WXS":              {Constant: "Whole Exome", Name: "Whole Exome Sequencing"},
	"Exome":            {Constant: "Whole Exome", Name: "Whole Exome Sequencing"},
	"Custom_Selection": {Constant: "Custom_Selection", Name: "Genomic Sequencing for Select Targets of Interest"},
	"N/A":              unknownDataType,
}

// LookupDataType returns the formatted data type; unrecognised values map to Unknown.
func LookupDataType(dataType string) DataType {
	if dt, ok := dataTypes[dataType]; ok {
		return dt
	}
	return unknownDataType
}

// Registration is what the telemetry report says about an eligible sample.
type Registration struct {
	SubjectID  string
	Repository string
	BioProject string
}

// Record is one sample row.
type Record struct {
	SampleID            string               `json:"sample_id"`
	Project             string               `json:"aggregation_project"`
	Location            string               `json:"location"`
	Version             readgroup.FlexString `json:"version"`
	StudyID             readgroup.FlexString `json:"phs_id"`
	DataType            string               `json:"data_type"`
	Alias               string               `json:"alias"`
	AggregationPath     string               `json:"aggregation_path"`
	MD5                 string               `json:"md5,omitempty"`
	MeanInsertSize      readgroup.FlexString `json:"mean_insert_size,omitempty"`
	InsertSizeStdDev    readgroup.FlexString `json:"insert_size_std_dev,omitempty"`
	LibraryConstruction string               `json:"library_construction_protocol,omitempty"`

	Registration *Registration `json:"-"`
}

// Decode reads a sample row. It accepts a bare object, a {"name", "attributes"}
// entity, or a one-element list of either, the shapes the data table API returns.
func Decode(data []byte) (Record, error) {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '[' {
		var list []json.RawMessage
		if err := json.Unmarshal(data, &list); err != nil {
			return Record{}, fmt.Errorf("decode sample: %w", err)
		}
		if len(list) == 0 {
			return Record{}, submiterr.MissingFieldError{Entity: "sample", Field: "attributes"}
		}
		data = list[0]
	}
	var env struct {
		Name       string          `json:"name"`
		Attributes json.RawMessage `json:"attributes"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return Record{}, fmt.Errorf("decode sample: %w", err)
	}
	body := data
	if len(env.Attributes) > 0 {
		body = env.Attributes
	}
	var rec Record
	if err := json.Unmarshal(body, &rec); err != nil {
		return Record{}, fmt.Errorf("decode sample: %w", err)
	}
	if rec.SampleID == "" {
		rec.SampleID = env.Name
	}
	return rec, nil
}

// Validate checks the fields every downstream step depends on.
func (r Record) Validate() error {
	required := []struct {
		name  string
		value string
	}{
		{"aggregation_project", r.Project},
		{"location", r.Location},
		{"version", r.Version.String()},
		{"phs_id", r.StudyID.String()},
		{"data_type", r.DataType},
		{"alias", r.Alias},
		{"aggregation_path", r.AggregationPath},
	}
	for _, f := range required {
		if f.value == "" {
			return submiterr.MissingFieldError{Entity: "sample", Field: f.name}
		}
	}
	return nil
}

// FileType is the aggregation path's extension without the dot.
func (r Record) FileType() string {
	return strings.TrimPrefix(path.Ext(r.AggregationPath), ".")
}

// DataFile is the name the data file carries in the archive.
func (r Record) DataFile() string {
	return r.SampleID + "." + r.FileType()
}

// FormattedDataType resolves DataType through the data type table.
func (r Record) FormattedDataType() DataType {
	return LookupDataType(r.DataType)
}

// DataTypeToken is the formatted constant with spaces replaced for use in identifiers.
func (r Record) DataTypeToken() string {
	return strings.ReplaceAll(r.FormattedDataType().Constant, " ", "_")
}

// SubjectString renders the subject clause used in titles, or "" when unknown.
func (r Record) SubjectString() string {
	if r.Registration == nil || r.Registration.SubjectID == "" {
		return ""
	}
	return fmt.Sprintf("from subject '%s'", r.Registration.SubjectID)
}

// Repository is the biospecimen repository reported for the sample.
func (r Record) Repository() string {
	if r.Registration == nil {
		return ""
	}
	return r.Registration.Repository
}

// InsertSize parses MeanInsertSize; an empty value is zero.
func (r Record) InsertSize() (float64, error) {
	return parseFloat("mean_insert_size", r.MeanInsertSize.String())
}

// InsertSizeDeviation parses InsertSizeStdDev; an empty value is zero.
func (r Record) InsertSizeDeviation() (float64, error) {
	return parseFloat("insert_size_std_dev", r.InsertSizeStdDev.String())
}

func parseFloat(field, s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("sample %s %q: %w", field, s, err)
	}
	return v, nil
}
