package gdc

import (
	"fmt"
	"strconv"

	"seqsubmit/internal/readgroup"
	"seqsubmit/internal/readstructure"
	"seqsubmit/internal/sample"
	"seqsubmit/internal/submiterr"
)

// Read group constants for Broad submissions.
const (
	SequencingCenter = "BI"
	Platform         = "Illumina"
)

// experimentalStrategy maps a sample data type onto GDC's experimental_strategy.
var experimentalStrategy = map[string]string{
	"WGS":              "WGS",
	"Exome":            "WXS",
	"WXS":              "WXS",
	"RNA":              "RNA-Seq",
	"Custom_Selection": "Targeted Sequencing",
}

// dataTypeCode is the short data type used in experiment names.
var dataTypeCode = map[string]string{
	"Exome": "WXS",
	"WGS":   "WGS",
	"RNA":   "RNA",
}

// librarySelection maps a data type onto the read group's library_selection.
var librarySelection = map[string]string{
	"Exome": "Hybrid Selection",
	"RNA":   "PCR",
}

// SubmitterID names the submitted aligned reads of a sample.
func SubmitterID(alias, dataType, aggregationProject string) string {
	return alias + "." + dataType + "." + aggregationProject
}

// ReadGroupSubmitterID names one flowcell lane of a sample.
func ReadGroupSubmitterID(flowcell, lane, aggregationProject, alias string) string {
	return flowcell + "." + lane + "." + aggregationProject + "." + alias
}

// Link references another entity by submitter id or code.
type Link struct {
	SubmitterID string `json:"submitter_id,omitempty"`
	Code        string `json:"code,omitempty"`
}

// AlignedReads is the submitted_aligned_reads entity for a sample's
// aggregated file.
type AlignedReads struct {
	Type                 string `json:"type"`
	SubmitterID          string `json:"submitter_id"`
	FileName             string `json:"file_name"`
	FileSize             int64  `json:"file_size"`
	MD5                  string `json:"md5sum"`
	DataCategory         string `json:"data_category"`
	DataType             string `json:"data_type"`
	DataFormat           string `json:"data_format"`
	ExperimentalStrategy string `json:"experimental_strategy"`
	ProjectID            string `json:"project_id"`
	ProcInternal         string `json:"proc_internal"`
	ReadGroups           []Link `json:"read_groups"`
}

// NewAlignedReads builds the aligned reads entity for rec, linked to every
// distinct lane in reads.
func NewAlignedReads(program, project string, rec sample.Record, fileSize int64, reads []readgroup.RawReadRecord) (AlignedReads, error) {
	if err := requireSample(rec); err != nil {
		return AlignedReads{}, err
	}
	if rec.MD5 == "" {
		return AlignedReads{}, submiterr.MissingFieldError{Entity: "sample " + rec.SampleID, Field: "md5"}
	}
	if fileSize <= 0 {
		return AlignedReads{}, submiterr.MissingFieldError{Entity: "sample " + rec.SampleID, Field: "file_size"}
	}
	if len(reads) == 0 {
		return AlignedReads{}, submiterr.MissingFieldError{Entity: "sample " + rec.SampleID, Field: "read_groups"}
	}
	id := SubmitterID(rec.Alias, rec.DataType, rec.Project)
	out := AlignedReads{
		Type:                 "submitted_aligned_reads",
		SubmitterID:          id,
		FileName:             id + ".bam",
		FileSize:             fileSize,
		MD5:                  rec.MD5,
		DataCategory:         "Sequencing Reads",
		DataType:             "Aligned Reads",
		DataFormat:           "BAM",
		ExperimentalStrategy: experimentalStrategy[rec.DataType],
		ProjectID:            program + "-" + project,
		ProcInternal:         "dna-seq skip",
	}
	seen := make(map[string]bool)
	for _, r := range reads {
		rgID := ReadGroupSubmitterID(r.FlowcellBarcode, r.Lane.String(), rec.Project, rec.Alias)
		if seen[rgID] {
			continue
		}
		seen[rgID] = true
		out.ReadGroups = append(out.ReadGroups, Link{SubmitterID: rgID})
	}
	return out, nil
}

// ReadGroup is the read_group entity for one flowcell lane.
type ReadGroup struct {
	Type                  string `json:"type"`
	SubmitterID           string `json:"submitter_id"`
	Aliquots              Link   `json:"aliquots"`
	ExperimentName        string `json:"experiment_name"`
	SequencingCenter      string `json:"sequencing_center"`
	Platform              string `json:"platform"`
	LibrarySelection      string `json:"library_selection"`
	LibraryStrategy       string `json:"library_strategy"`
	LibraryName           string `json:"library_name"`
	LaneNumber            int    `json:"lane_number"`
	IsPairedEnd           bool   `json:"is_paired_end"`
	ReadLength            int    `json:"read_length"`
	ReadGroupName         string `json:"read_group_name"`
	TargetCaptureKit      string `json:"target_capture_kit,omitempty"`
	ToTrimAdapterSequence bool   `json:"to_trim_adapter_sequence"`
}

// LinkEntities builds the case, sample, aliquot and read group entities that
// tie a sample's lanes into the project. All samples of a project hang off a
// single case.
func LinkEntities(program, project string, rec sample.Record, reads []readgroup.RawReadRecord) ([]any, error) {
	if err := requireSample(rec); err != nil {
		return nil, err
	}
	caseID := program + "-" + project + "-0001"
	sampleID := rec.Alias + "-sample"
	out := []any{
		map[string]any{"type": "case", "submitter_id": caseID, "projects": Link{Code: project}},
		map[string]any{
			"type":         "sample",
			"submitter_id": sampleID,
			"cases":        Link{SubmitterID: caseID},
			"sample_type":  "Primary Tumor",
			"tissue_type":  "Tumor",
		},
		map[string]any{"type": "aliquot", "submitter_id": rec.Alias, "samples": Link{SubmitterID: sampleID}},
	}

	code := dataTypeCode[rec.DataType]
	if code == "" {
		code = rec.DataType
	}
	selection := librarySelection[rec.DataType]
	if selection == "" {
		selection = "Random"
	}
	seen := make(map[string]bool)
	for _, r := range reads {
		rg, err := newReadGroup(rec, r, code, selection)
		if err != nil {
			return nil, err
		}
		if seen[rg.SubmitterID] {
			continue
		}
		seen[rg.SubmitterID] = true
		out = append(out, rg)
	}
	return out, nil
}

func newReadGroup(rec sample.Record, r readgroup.RawReadRecord, code, selection string) (ReadGroup, error) {
	entity := fmt.Sprintf("read group %s lane %s", r.FlowcellBarcode, r.Lane)
	if r.FlowcellBarcode == "" {
		return ReadGroup{}, submiterr.MissingFieldError{Entity: "read group", Field: "flowcell_barcode"}
	}
	lane, err := strconv.Atoi(r.Lane.String())
	if err != nil {
		return ReadGroup{}, fmt.Errorf("%s: lane is not a number: %w", entity, submiterr.MissingFieldError{Field: "lane"})
	}
	if r.PairedRun == nil {
		return ReadGroup{}, submiterr.MissingFieldError{Entity: entity, Field: "paired_run"}
	}
	length, err := readstructure.ReadLength(r.ReadStructure)
	if err != nil {
		return ReadGroup{}, fmt.Errorf("%s: %w", entity, err)
	}
	return ReadGroup{
		Type:                  "read_group",
		SubmitterID:           ReadGroupSubmitterID(r.FlowcellBarcode, r.Lane.String(), rec.Project, rec.Alias),
		Aliquots:              Link{SubmitterID: rec.Alias},
		ExperimentName:        SubmitterID(rec.Alias, code, rec.Project),
		SequencingCenter:      SequencingCenter,
		Platform:              Platform,
		LibrarySelection:      selection,
		LibraryStrategy:       experimentalStrategy[rec.DataType],
		LibraryName:           r.LibraryName,
		LaneNumber:            lane,
		IsPairedEnd:           *r.PairedRun,
		ReadLength:            length,
		ReadGroupName:         r.FlowcellBarcode + "." + r.Lane.String(),
		TargetCaptureKit:      r.BaitSet,
		ToTrimAdapterSequence: true,
	}, nil
}

func requireSample(rec sample.Record) error {
	entity := "sample " + rec.SampleID
	switch {
	case rec.Alias == "":
		return submiterr.MissingFieldError{Entity: entity, Field: "alias"}
	case rec.DataType == "":
		return submiterr.MissingFieldError{Entity: entity, Field: "data_type"}
	case rec.Project == "":
		return submiterr.MissingFieldError{Entity: entity, Field: "aggregation_project"}
	}
	return nil
}
