package readgroup

import (
	"fmt"
	"sort"
	"strings"

	"seqsubmit/internal/readstructure"
	"seqsubmit/internal/submiterr"
)

const entityName = "read group"

// Set is a sorted, duplicate-free list of strings.
type Set []string

// NewSet sorts and deduplicates values.
func NewSet(values ...string) Set {
	seen := make(map[string]struct{}, len(values))
	out := make(Set, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

// Join concatenates the members with sep.
func (s Set) Join(sep string) string { return strings.Join(s, sep) }

// Contains reports membership.
func (s Set) Contains(v string) bool {
	i := sort.SearchStrings(s, v)
	return i < len(s) && s[i] == v
}

// Aggregate is the unioned view of every read group belonging to one sample.
// Constant fields come from the first record; set-valued fields are the union
// over all records.
type Aggregate struct {
	LibraryName        string
	LibraryType        string
	AnalysisType       string
	PairedRun          bool
	ReadStructure      string
	ReferenceSequence  string
	InstrumentModel    string
	SampleLSID         string
	ResearchProjectID  string
	BaitSet            string
	SampleBarcode      string
	ProductOrderID     string
	WorkRequestID      string
	SampleMaterialType string

	FlowcellBarcodes      Set
	RunBarcodes           Set
	RunNames              Set
	InstrumentNames       Set
	MolecularIndexSchemes Set
	PlatformUnits         Set
	PlatformUnitLibs      Set
	ReadGroupIDs          Set

	Annotations Annotations
}

// New builds the aggregate for records, which must all belong to one sample.
func New(records []RawReadRecord) (Aggregate, error) {
	if len(records) == 0 {
		return Aggregate{}, submiterr.MissingFieldError{Entity: entityName, Field: "records"}
	}
	first := records[0]
	if err := checkRequired(first); err != nil {
		return Aggregate{}, err
	}
	annotations, err := ParseAnnotations(first.SubmissionMetadata)
	if err != nil {
		return Aggregate{}, fmt.Errorf("%s %s: %w", entityName, first.LibraryName, err)
	}

	agg := Aggregate{
		LibraryName:        first.LibraryName,
		LibraryType:        first.LibraryType,
		AnalysisType:       first.AnalysisType,
		PairedRun:          *first.PairedRun,
		ReadStructure:      first.ReadStructure,
		ReferenceSequence:  first.ReferenceSequence,
		InstrumentModel:    first.InstrumentModel,
		SampleLSID:         first.SampleLSID,
		ResearchProjectID:  first.ResearchProjectID.String(),
		BaitSet:            first.BaitSet,
		SampleBarcode:      first.SampleBarcode.String(),
		ProductOrderID:     first.ProductOrderID.String(),
		WorkRequestID:      first.WorkRequestID.String(),
		SampleMaterialType: first.SampleMaterialType,
		Annotations:        annotations,
	}

	var flowcells, runBarcodes, runNames, instruments, schemes, units, unitLibs, ids []string
	for _, r := range records {
		flowcells = append(flowcells, r.FlowcellBarcode)
		runBarcodes = append(runBarcodes, r.RunBarcode)
		runNames = append(runNames, r.RunName)
		instruments = append(instruments, r.InstrumentName)
		schemes = append(schemes, MolecularIndexScheme(r))
		units = append(units, PlatformUnit(r))
		unitLibs = append(unitLibs, PlatformUnitLib(r))
		ids = append(ids, ReadGroupID(r))
	}
	agg.FlowcellBarcodes = NewSet(flowcells...)
	agg.RunBarcodes = NewSet(runBarcodes...)
	agg.RunNames = NewSet(runNames...)
	agg.InstrumentNames = NewSet(instruments...)
	agg.MolecularIndexSchemes = NewSet(schemes...)
	agg.PlatformUnits = NewSet(units...)
	agg.PlatformUnitLibs = NewSet(unitLibs...)
	agg.ReadGroupIDs = NewSet(ids...)
	return agg, nil
}

func checkRequired(r RawReadRecord) error {
	required := []struct {
		name    string
		present bool
	}{
		{"library_name", r.LibraryName != ""},
		{"library_type", r.LibraryType != ""},
		{"analysis_type", r.AnalysisType != ""},
		{"paired_run", r.PairedRun != nil},
		{"read_structure", r.ReadStructure != ""},
		{"sample_lsid", r.SampleLSID != ""},
		{"reference_sequence", r.ReferenceSequence != ""},
		{"model", r.InstrumentModel != ""},
	}
	for _, f := range required {
		if !f.present {
			return submiterr.MissingFieldError{Entity: entityName, Field: f.name}
		}
	}
	return nil
}

// ReadGroupID is the first five characters of the run barcode plus the lane.
func ReadGroupID(r RawReadRecord) string {
	prefix := r.RunBarcode
	if len(prefix) > 5 {
		prefix = prefix[:5]
	}
	return prefix + "." + r.Lane.String()
}

// PlatformUnit is run barcode, lane and molecular barcode sequence.
func PlatformUnit(r RawReadRecord) string {
	return r.RunBarcode + "." + r.Lane.String() + "." + r.MolecularBarcodeSequence
}

// PlatformUnitLib is the platform unit qualified by library name.
func PlatformUnitLib(r RawReadRecord) string {
	return PlatformUnit(r) + "." + r.LibraryName
}

// MolecularIndexScheme renders the barcode name with its sequence.
func MolecularIndexScheme(r RawReadRecord) string {
	return fmt.Sprintf("%s [%s]", r.MolecularBarcodeName, r.MolecularBarcodeSequence)
}

// PairingCode is "P" for paired runs and "S" otherwise.
func (a Aggregate) PairingCode() string {
	if a.PairedRun {
		return "P"
	}
	return "S"
}

// PairedEndLabel is the phrase used in document titles.
func (a Aggregate) PairedEndLabel() string {
	if a.PairedRun {
		return "paired-end"
	}
	return "single-end"
}

// OrderID returns the product order id, falling back to the work request id.
func (a Aggregate) OrderID() (string, error) {
	if a.ProductOrderID != "" {
		return a.ProductOrderID, nil
	}
	if a.WorkRequestID != "" {
		return a.WorkRequestID, nil
	}
	return "", fmt.Errorf("library %s: %w", a.LibraryName, submiterr.ErrMissingOrderIdentifier)
}

// ReadLength parses the read structure.
func (a Aggregate) ReadLength() (int, error) {
	return readstructure.ReadLength(a.ReadStructure)
}

// SpotLength is the read length, doubled for paired runs.
func (a Aggregate) SpotLength() (int, error) {
	n, err := a.ReadLength()
	if err != nil {
		return 0, err
	}
	if a.PairedRun {
		return 2 * n, nil
	}
	return n, nil
}
