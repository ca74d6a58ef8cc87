// Package archive defines the client contract for the remote submission
// archive together with an HTTP implementation and an in-memory archive.
package archive

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

// Kind names an entity collection in the archive.
type Kind string

const (
	KindExperiments Kind = "experiments"
	KindSamples     Kind = "samples"
	KindRuns        Kind = "runs"
	KindDatasets    Kind = "datasets"
	KindPolicies    Kind = "policies"
	KindFiles       Kind = "files"
)

// Global reports whether the collection lives outside any submission.
func (k Kind) Global() bool {
	return k == KindPolicies || k == KindFiles
}

// ID is an archive identifier. The archive returns provisional ids as numbers
// and accession ids as strings; both decode to the same type.
type ID string

// UnmarshalJSON implements json.Unmarshaler.
func (id *ID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("archive id: expected string or number, got %s", b)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON emits numeric ids as JSON numbers, the form the archive expects
// for provisional ids. Digit strings with a leading zero are not valid JSON
// numbers and stay quoted.
func (id ID) MarshalJSON() ([]byte, error) {
	if id != "" && strings.Trim(string(id), "0123456789") == "" && (id == "0" || id[0] != '0') {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

func (id ID) String() string { return string(id) }

// Ref is a nested reference to another entity.
type Ref struct {
	ProvisionalID ID     `json:"provisional_id,omitempty"`
	AccessionID   ID     `json:"accession_id,omitempty"`
	Alias         string `json:"alias,omitempty"`
}

// Entity is the subset of an archive record the engine inspects.
type Entity struct {
	ProvisionalID     ID     `json:"provisional_id,omitempty"`
	AccessionID       ID     `json:"accession_id,omitempty"`
	Alias             string `json:"alias,omitempty"`
	Title             string `json:"title,omitempty"`
	StudyAccessionID  string `json:"study_accession_id,omitempty"`
	DesignDescription string `json:"design_description,omitempty"`
	PolicyAccessionID string `json:"policy_accession_id,omitempty"`
	Experiment        *Ref   `json:"experiment,omitempty"`
	Sample            *Ref   `json:"sample,omitempty"`
	RunProvisionalIDs []ID   `json:"run_provisional_ids,omitempty"`
	Status            string `json:"status,omitempty"`
}

// ID returns the provisional id, falling back to the accession id.
func (e Entity) ID() ID {
	if e.ProvisionalID != "" {
		return e.ProvisionalID
	}
	return e.AccessionID
}

// File is an uploaded file sitting in the submitter's inbox.
type File struct {
	ProvisionalID       ID     `json:"provisional_id"`
	RelativePath        string `json:"relative_path"`
	EncryptedChecksum   string `json:"encrypted_checksum"`
	UnencryptedChecksum string `json:"unencrypted_checksum"`
	FileSize            int64  `json:"filesize"`
	Status              string `json:"status,omitempty"`
}

// ExperimentRequest is the create payload for an experiment.
type ExperimentRequest struct {
	DesignDescription           string  `json:"design_description"`
	LibraryName                 string  `json:"library_name"`
	LibraryConstructionProtocol string  `json:"library_construction_protocol"`
	PairedNominalLength         int     `json:"paired_nominal_length"`
	PairedNominalSdev           float64 `json:"paired_nominal_sdev"`
	InstrumentModelID           int     `json:"instrument_model_id"`
	LibraryLayout               string  `json:"library_layout"`
	LibraryStrategy             string  `json:"library_strategy"`
	LibrarySource               string  `json:"library_source"`
	LibrarySelection            string  `json:"library_selection"`
	StudyAccessionID            string  `json:"study_accession_id"`
}

// RunRequest is the create payload for a run.
type RunRequest struct {
	RunFileType             string `json:"run_file_type"`
	Files                   []ID   `json:"files"`
	ExperimentProvisionalID ID     `json:"experiment_provisional_id"`
	SampleProvisionalID     ID     `json:"sample_provisional_id"`
}

// DatasetRequest is the create payload for a dataset.
type DatasetRequest struct {
	Title             string   `json:"title"`
	Description       string   `json:"description"`
	DatasetTypes      []string `json:"dataset_types"`
	PolicyAccessionID string   `json:"policy_accession_id"`
	RunProvisionalIDs []ID     `json:"run_provisional_ids"`
}

// FinalizeRequest is the body of a finalise call.
type FinalizeRequest struct {
	ExpectedReleaseDate string `json:"expected_release_date"`
}

// Client is the archive's submission API.
type Client interface {
	ListEntities(ctx context.Context, submissionID string, kind Kind) ([]Entity, error)
	CreateEntity(ctx context.Context, submissionID string, kind Kind, payload any) ([]Entity, error)
	Finalize(ctx context.Context, submissionID string, req FinalizeRequest) error
}

// FileSource lists the files uploaded to the inbox.
type FileSource interface {
	ListInboxFiles(ctx context.Context, submissionID string) ([]File, error)
}
