// Package library maps sequencing library and analysis types onto the
// strategy/source/selection vocabulary that sequence archives expect.
package library

import (
	"fmt"
	"slices"

	"seqsubmit/internal/submiterr"
)

// Term is an archive code paired with the phrase used in generated titles.
type Term struct {
	Code  string `json:"code" yaml:"code"`
	Human string `json:"human" yaml:"human"`
}

// Descriptor is the archive library descriptor for one library.
type Descriptor struct {
	Strategy  Term   `json:"strategy" yaml:"strategy"`
	Source    Term   `json:"source" yaml:"source"`
	Selection string `json:"selection" yaml:"selection"`
}

// Complete reports whether every field of the descriptor is populated.
func (d Descriptor) Complete() bool {
	return d.Strategy.Code != "" && d.Strategy.Human != "" &&
		d.Source.Code != "" && d.Source.Human != "" && d.Selection != ""
}

// Table holds the classification rules. Exact matches on library type win;
// otherwise a cDNA variant spelling (or an analysis type equal to CDNAAnalysis)
// selects the CDNA descriptor unless the analysis is in CDNAExcludedAnalyses.
type Table struct {
	Exact                map[string]Descriptor
	CDNAVariants         []string
	CDNAAnalysis         string
	CDNAExcludedAnalyses []string
	CDNA                 Descriptor
}

var (
	wholeGenome = Descriptor{
		Strategy:  Term{Code: StrategyWGS, Human: "whole genome shotgun"},
		Source:    Term{Code: SourceGenomic, Human: "genomic DNA"},
		Selection: SelectionRandom,
	}
	hybridSelection = Descriptor{
		Strategy:  Term{Code: StrategyWXS, Human: "random exon"},
		Source:    Term{Code: SourceGenomic, Human: "genomic DNA"},
		Selection: SelectionHybrid,
	}
	cdnaShotgun = Descriptor{
		Strategy:  Term{Code: StrategyRNASeq, Human: "RNA"},
		Source:    Term{Code: SourceTranscriptomic, Human: "transcriptome"},
		Selection: SelectionCDNA,
	}
)

// DefaultTable returns the rule table used by the Broad submission workflows.
func DefaultTable() Table {
	return Table{
		Exact: map[string]Descriptor{
			"WholeGenomeShotgun": wholeGenome,
			"HybridSelection":    hybridSelection,
			"cDNAShotgun":        cdnaShotgun,
		},
		CDNAVariants:         []string{"cDNAShotgunReadTwoSense", "cDNAShotgunStrandAgnostic"},
		CDNAAnalysis:         "cDNA",
		CDNAExcludedAnalyses: []string{"AssemblyWithoutReference"},
		CDNA:                 cdnaShotgun,
	}
}

// Classifier resolves descriptors from an immutable copy of a Table.
type Classifier struct {
	table Table
}

// NewClassifier copies table so later mutation by the caller has no effect.
func NewClassifier(table Table) *Classifier {
	exact := make(map[string]Descriptor, len(table.Exact))
	for k, v := range table.Exact {
		exact[k] = v
	}
	cp := table
	cp.Exact = exact
	cp.CDNAVariants = append([]string(nil), table.CDNAVariants...)
	cp.CDNAExcludedAnalyses = append([]string(nil), table.CDNAExcludedAnalyses...)
	return &Classifier{table: cp}
}

// Classify returns the descriptor for the library/analysis pair. An exact
// library-type entry wins over the cDNA analysis rule, so HybridSelection
// with analysis type cDNA is WXS.
func (c *Classifier) Classify(libraryType, analysisType string) (Descriptor, error) {
	if d, ok := c.table.Exact[libraryType]; ok {
		return d, nil
	}
	cdna := slices.Contains(c.table.CDNAVariants, libraryType) ||
		(c.table.CDNAAnalysis != "" && analysisType == c.table.CDNAAnalysis)
	if cdna && !slices.Contains(c.table.CDNAExcludedAnalyses, analysisType) {
		return c.table.CDNA, nil
	}
	return Descriptor{}, fmt.Errorf("%w: library type %q, analysis type %q",
		submiterr.ErrUnknownLibraryDescriptor, libraryType, analysisType)
}
