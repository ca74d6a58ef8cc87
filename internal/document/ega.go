package document

import (
	"fmt"
	"strings"

	"seqsubmit/internal/archive"
	"seqsubmit/internal/library"
	"seqsubmit/internal/sample"
	"seqsubmit/internal/submiterr"
)

// DefaultTechnology is the sequencer family named in archive design descriptions.
const DefaultTechnology = "ILLUMINA"

// ArchiveDesignDescription renders the design text the archive API stores for
// an experiment. Experiments are matched on this text, so it must be stable.
func ArchiveDesignDescription(technology, strategy, material, layout, selection, alias string) string {
	if technology == "" {
		technology = DefaultTechnology
	}
	paired := ""
	if layout == library.LayoutPaired {
		paired = "paired-end"
	}
	text := fmt.Sprintf("%s %s sequencing of %s %s library via %s containing sample %s",
		technology, strategy, material, paired, selection, alias)
	return strings.Join(strings.Fields(text), " ")
}

// NominalLength is the insert size when it lies strictly between 0 and 1000,
// and 0 otherwise.
func NominalLength(insertSize float64) int {
	if insertSize > 0 && insertSize < 1000 {
		return int(insertSize)
	}
	return 0
}

// ExperimentPayload builds the archive API experiment for in.
func ExperimentPayload(in Input, studyAccessionID, technology string, instruments *library.Instruments) (archive.ExperimentRequest, error) {
	if instruments == nil {
		instruments = library.DefaultInstruments()
	}
	modelID, err := instruments.ID(in.Aggregate.InstrumentModel)
	if err != nil {
		return archive.ExperimentRequest{}, err
	}
	insert, err := in.Sample.InsertSize()
	if err != nil {
		return archive.ExperimentRequest{}, err
	}
	sdev, err := in.Sample.InsertSizeDeviation()
	if err != nil {
		return archive.ExperimentRequest{}, err
	}
	layout := library.Layout(in.Aggregate.PairedRun)
	return archive.ExperimentRequest{
		DesignDescription: ArchiveDesignDescription(technology, in.Descriptor.Strategy.Code,
			in.Aggregate.SampleMaterialType, layout, in.Descriptor.Selection, in.Sample.Alias),
		LibraryName:                 in.Aggregate.LibraryName,
		LibraryConstructionProtocol: in.Sample.LibraryConstruction,
		PairedNominalLength:         NominalLength(insert),
		PairedNominalSdev:           sdev,
		InstrumentModelID:           modelID,
		LibraryLayout:               layout,
		LibraryStrategy:             in.Descriptor.Strategy.Code,
		LibrarySource:               in.Descriptor.Source.Code,
		LibrarySelection:            in.Descriptor.Selection,
		StudyAccessionID:            studyAccessionID,
	}, nil
}

// RunFileType returns the archive run file type for the sample's data file.
func RunFileType(s sample.Record) (string, error) {
	ft := s.FileType()
	if !library.ValidRunFileType(ft) {
		return "", fmt.Errorf("%w: %q", submiterr.ErrUnsupportedRunFileType, ft)
	}
	return ft, nil
}

// DatasetType maps a library strategy onto the archive dataset type.
func DatasetType(strategy string) string {
	if strategy == library.StrategyWGS {
		return "Whole genome sequencing"
	}
	return "Exome sequencing"
}
