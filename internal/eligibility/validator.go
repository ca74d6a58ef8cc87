package eligibility

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"seqsubmit/internal/sample"
	"seqsubmit/internal/submiterr"
)

// Status is the outcome of an eligibility check.
type Status string

const (
	StatusRegistered          Status = "registered"
	StatusSampleNotRegistered Status = "sample_not_registered"
	StatusStudyNotRegistered  Status = "study_not_registered"
)

// TelemetryClient retrieves the registration snapshot for a study.
type TelemetryClient interface {
	Report(ctx context.Context, studyID string) (Report, error)
}

// Result describes a checked sample. SubjectID, Repository and BioProject are
// only set when Status is StatusRegistered.
type Result struct {
	Status     Status
	SubjectID  string
	Repository string
	BioProject string
	Sample     SampleEntry
}

// Registration converts the result into the form attached to sample records.
func (r Result) Registration() *sample.Registration {
	return &sample.Registration{SubjectID: r.SubjectID, Repository: r.Repository, BioProject: r.BioProject}
}

// SRAStatus returns the SRA status reported for experimentType. A sample with
// a single stats entry reports that entry regardless of type.
func (r Result) SRAStatus(experimentType string) string {
	if len(r.Sample.Stats) == 1 {
		return r.Sample.Stats[0].Status
	}
	for _, st := range r.Sample.Stats {
		if st.ExperimentType == experimentType {
			return st.Status
		}
	}
	return ""
}

// Validator gates submission on the telemetry report.
type Validator struct {
	client TelemetryClient
	logger *zap.Logger
}

// NewValidator constructs a validator. A nil logger discards output.
func NewValidator(client TelemetryClient, logger *zap.Logger) *Validator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Validator{client: client, logger: logger}
}

// Check looks the sample's alias up in its study's report. The study is
// checked first, then the sample, then uniqueness of the match.
func (v *Validator) Check(ctx context.Context, rec sample.Record) (Result, error) {
	studyID := rec.StudyID.String()
	report, err := v.client.Report(ctx, studyID)
	if err != nil {
		return Result{}, fmt.Errorf("telemetry report for %s: %w", studyID, err)
	}

	projects := report.AdminBioProjects()
	if len(projects) == 0 {
		return Result{Status: StatusStudyNotRegistered},
			fmt.Errorf("study %s: %w", studyID, submiterr.ErrStudyNotRegistered)
	}
	matches := report.MatchSamples(rec.Alias)
	switch {
	case len(matches) == 0:
		return Result{Status: StatusSampleNotRegistered},
			fmt.Errorf("sample %s in %s: %w", rec.Alias, studyID, submiterr.ErrSampleNotRegistered)
	case len(matches) > 1:
		return Result{}, fmt.Errorf("sample %s in %s: %d entries: %w",
			rec.Alias, studyID, len(matches), submiterr.ErrAmbiguousSampleMatch)
	}

	m := matches[0]
	res := Result{
		Status:     StatusRegistered,
		SubjectID:  m.Attr("submitted_subject_id"),
		Repository: m.Attr("repository"),
		BioProject: projects[0],
		Sample:     m,
	}
	v.logger.Debug("sample eligible",
		zap.String("sample", rec.Alias),
		zap.String("study", studyID),
		zap.String("subject", res.SubjectID))
	return res, nil
}
