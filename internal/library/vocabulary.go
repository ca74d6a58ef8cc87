package library

import (
	"fmt"
	"slices"

	"seqsubmit/internal/submiterr"
)

// Library layouts.
const (
	LayoutSingle = "SINGLE"
	LayoutPaired = "PAIRED"
)

// Strategy, source and selection codes produced by DefaultTable.
const (
	StrategyWGS    = "WGS"
	StrategyWXS    = "WXS"
	StrategyRNASeq = "RNA-Seq"

	SourceGenomic        = "GENOMIC"
	SourceTranscriptomic = "TRANSCRIPTOMIC"

	SelectionRandom = "RANDOM"
	SelectionHybrid = "Hybrid Selection"
	SelectionCDNA   = "cDNA"
)

// Strategies lists every library strategy the archive accepts.
var Strategies = []string{
	"WGS", "WGA", "WXS", "RNA-Seq", "ssRNA-seq", "miRNA-Seq", "ncRNA-Seq", "FL-cDNA", "EST",
	"Hi-C", "ATAC-seq", "WCS", "RAD-Seq", "CLONE", "POOLCLONE", "AMPLICON", "CLONEEND",
	"FINISHING", "ChIP-Seq", "MNase-Seq", "DNase-Hypersensitivity", "Bisulfite-Seq", "CTS",
	"MRE-Seq", "MeDIP-Seq", "MBD-Seq", "Tn-Seq", "VALIDATION", "FAIRE-seq", "SELEX", "RIP-Seq",
	"ChIA-PET", "Synthetic-Long-Read", "Targeted-Capture",
	"Tethered Chromatin Conformation Capture", "NOMe-Seq", "ChM-Seq", "GBS", "OTHER",
	"snRNA-seq", "Ribo-Seq",
}

// Sources lists every library source the archive accepts.
var Sources = []string{
	"GENOMIC", "GENOMIC SINGLE CELL", "TRANSCRIPTOMIC", "TRANSCRIPTOMIC SINGLE CELL",
	"METAGENOMIC", "METATRANSCRIPTOMIC", "SYNTHETIC", "VIRAL RNA", "OTHER",
}

// Selections lists every library selection the archive accepts.
var Selections = []string{
	"RANDOM", "PCR", "RANDOM PCR", "RT-PCR", "HMPR", "MF", "repeat fractionation",
	"size fractionation", "MSLL", "cDNA", "cDNA_randomPriming", "cDNA_oligo_dT", "PolyA",
	"Oligo-dT", "Inverse rRNA", "Inverse rRNA selection", "ChIP", "ChIP-Seq", "MNase", "DNase",
	"Hybrid Selection", "Reduced Representation", "Restriction Digest",
	"5-methylcytidine antibody", "MBD2 protein methyl-CpG binding domain", "CAGE", "RACE", "MDA",
	"padlock probes capture method", "other", "unspecified",
}

// RunFileTypes lists the run file types the archive accepts.
var RunFileTypes = []string{
	"srf", "sff", "fastq", "Illumina_native", "Illumina_native_qseq", "SOLiD_native_csfasta",
	"PacBio_HDF5", "bam", "cram", "CompleteGenomics_native", "OxfordNanopore_native",
}

// ValidStrategy reports whether code is an accepted library strategy.
func ValidStrategy(code string) bool { return slices.Contains(Strategies, code) }

// ValidSource reports whether code is an accepted library source.
func ValidSource(code string) bool { return slices.Contains(Sources, code) }

// ValidSelection reports whether code is an accepted library selection.
func ValidSelection(code string) bool { return slices.Contains(Selections, code) }

// ValidRunFileType reports whether t is an accepted run file type.
func ValidRunFileType(t string) bool { return slices.Contains(RunFileTypes, t) }

// Layout returns the library layout for a paired or single-end library.
func Layout(paired bool) string {
	if paired {
		return LayoutPaired
	}
	return LayoutSingle
}

// Instruments resolves instrument model names to archive identifiers.
// Aliases rewrite LIMS spellings to the archive's own names first.
type Instruments struct {
	ids     map[string]int
	aliases map[string]string
}

// DefaultInstruments returns the archive's instrument model table.
func DefaultInstruments() *Instruments {
	return NewInstruments(map[string]int{
		"HiSeq X Five":                 8,
		"HiSeq X Ten":                  9,
		"Illumina Genome Analyzer":     10,
		"Illumina Genome Analyzer II":  11,
		"Illumina Genome Analyzer IIx": 12,
		"Illumina HiScanSQ":            13,
		"Illumina HiSeq 1000":          14,
		"Illumina HiSeq 1500":          15,
		"Illumina HiSeq 2000":          16,
		"Illumina HiSeq 2500":          17,
		"Illumina HiSeq 3000":          18,
		"Illumina HiSeq 4000":          19,
		"Illumina HiSeq X":             20,
		"Illumina iSeq 100":            21,
		"Illumina MiSeq":               22,
		"Illumina MiniSeq":             23,
		"Illumina NovaSeq X":           24,
		"Illumina NovaSeq 6000":        25,
		"NextSeq 500":                  26,
		"NextSeq 550":                  27,
		"NextSeq 1000":                 28,
		"NextSeq 2000":                 29,
		"unspecified":                  30,
	}, map[string]string{
		"Illumina HiSeq X 10": "Illumina HiSeq X",
	})
}

// NewInstruments builds a lookup from copies of ids and aliases.
func NewInstruments(ids map[string]int, aliases map[string]string) *Instruments {
	in := &Instruments{ids: make(map[string]int, len(ids)), aliases: make(map[string]string, len(aliases))}
	for k, v := range ids {
		in.ids[k] = v
	}
	for k, v := range aliases {
		in.aliases[k] = v
	}
	return in
}

// Models returns the archive instrument names in sorted order.
func (in *Instruments) Models() []string {
	out := make([]string, 0, len(in.ids))
	for name := range in.ids {
		out = append(out, name)
	}
	slices.Sort(out)
	return out
}

// Canonical returns the archive spelling of model.
func (in *Instruments) Canonical(model string) string {
	if alias, ok := in.aliases[model]; ok {
		return alias
	}
	return model
}

// ID returns the archive identifier for model.
func (in *Instruments) ID(model string) (int, error) {
	id, ok := in.ids[in.Canonical(model)]
	if !ok {
		return 0, fmt.Errorf("%w: %q", submiterr.ErrUnknownInstrumentModel, model)
	}
	return id, nil
}
