// Package readgroup collapses per-lane sequencing records for one sample into
// a single aggregate describing the library and every run that contributed.
package readgroup

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RawReadRecord is one lane-level observation exported by the LIMS. It is
// decoded once and never mutated.
type RawReadRecord struct {
	FlowcellBarcode          string          `json:"flowcell_barcode"`
	Lane                     FlexString      `json:"lane"`
	RunName                  string          `json:"run_name"`
	RunBarcode               string          `json:"run_barcode"`
	InstrumentName           string          `json:"machine_name"`
	MolecularBarcodeName     string          `json:"molecular_barcode_name"`
	MolecularBarcodeSequence string          `json:"molecular_barcode_sequence"`
	LibraryName              string          `json:"library_name"`
	LibraryType              string          `json:"library_type"`
	AnalysisType             string          `json:"analysis_type"`
	ReadStructure            string          `json:"read_structure"`
	PairedRun                *bool           `json:"paired_run"`
	ReferenceSequence        string          `json:"reference_sequence"`
	InstrumentModel          string          `json:"model"`
	SampleLSID               string          `json:"sample_lsid"`
	ResearchProjectID        FlexString      `json:"research_project_id,omitempty"`
	BaitSet                  string          `json:"bait_set,omitempty"`
	SampleBarcode            FlexString      `json:"sample_barcode,omitempty"`
	ProductOrderID           FlexString      `json:"product_order_id,omitempty"`
	WorkRequestID            FlexString      `json:"work_request_id,omitempty"`
	SampleMaterialType       string          `json:"sample_material_type,omitempty"`
	SubmissionMetadata       json.RawMessage `json:"submission_metadata,omitempty"`
}

// DecodeRecords reads a JSON array of records. Entries wrapped in an
// {"attributes": {...}} envelope, as the workspace data tables export them,
// are unwrapped.
func DecodeRecords(data []byte) ([]RawReadRecord, error) {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode read records: %w", err)
	}
	out := make([]RawReadRecord, 0, len(raw))
	for i, item := range raw {
		var env struct {
			Attributes json.RawMessage `json:"attributes"`
		}
		if err := json.Unmarshal(item, &env); err == nil && len(env.Attributes) > 0 {
			item = env.Attributes
		}
		var rec RawReadRecord
		if err := json.Unmarshal(item, &rec); err != nil {
			return nil, fmt.Errorf("decode read record %d: %w", i, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// FlexString accepts a JSON string, number or null. LIMS exports are not
// consistent about quoting lanes and order ids.
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }
