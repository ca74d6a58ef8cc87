// Package identifier derives the submitter identifiers used as natural keys
// for experiment and run documents. Every function is pure.
package identifier

import (
	"strings"

	"seqsubmit/internal/readgroup"
	"seqsubmit/internal/sample"
)

// Experiment returns
// study.order.library.pairing.alias.project.dataType.version.
func Experiment(s sample.Record, agg readgroup.Aggregate) (string, error) {
	order, err := agg.OrderID()
	if err != nil {
		return "", err
	}
	return strings.Join([]string{
		s.StudyID.String(),
		order,
		agg.LibraryName,
		agg.PairingCode(),
		s.Alias,
		s.Project,
		s.DataTypeToken(),
		s.Version.String(),
	}, "."), nil
}

// Run returns flowcells.alias.project.version.fileType, with the flowcell
// barcodes in sorted order.
func Run(s sample.Record, agg readgroup.Aggregate) string {
	parts := append([]string(nil), agg.FlowcellBarcodes...)
	parts = append(parts, s.Alias, s.Project, s.Version.String(), s.FileType())
	return strings.Join(parts, ".")
}

// ExperimentFile is the file name the experiment document is written under.
func ExperimentFile(experimentID string) string {
	return experimentID + ".add.experiment.xml"
}

// RunFile is the file name the run document is written under.
func RunFile(runID string) string {
	return runID + ".xml"
}

// SubmissionFile is the fixed name of the submission document.
const SubmissionFile = "submission.xml"
