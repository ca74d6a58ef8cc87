package document

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqsubmit/internal/identifier"
	"seqsubmit/internal/library"
	"seqsubmit/internal/readgroup"
	"seqsubmit/internal/sample"
	"seqsubmit/internal/submiterr"
)

var fixedNow = time.Date(2026, time.March, 2, 9, 30, 15, 0, time.UTC)

func exomeInput(t *testing.T) Input {
	t.Helper()
	paired := true
	rec := readgroup.RawReadRecord{
		FlowcellBarcode:          "FLOWC",
		Lane:                     "1",
		RunName:                  "RUN1",
		RunBarcode:               "FLOWC1234",
		InstrumentName:           "SL-HXA",
		MolecularBarcodeName:     "idx",
		MolecularBarcodeSequence: "AAAA",
		LibraryName:              "Pond-1",
		LibraryType:              "HybridSelection",
		AnalysisType:             "Resequencing",
		ReadStructure:            "101T8B8B101T",
		PairedRun:                &paired,
		ReferenceSequence:        "/seq/references/Homo_sapiens_assembly38/v0/Homo_sapiens_assembly38.fasta",
		InstrumentModel:          "Illumina HiSeq X 10",
		SampleLSID:               "lsid:1",
		ProductOrderID:           "PDO-1",
		SampleBarcode:            "0123",
		SubmissionMetadata:       []byte(`[{"key": "library_kit", "value": "KAPA"}]`),
	}
	second := rec
	second.Lane = "2"
	agg, err := readgroup.New([]readgroup.RawReadRecord{rec, second})
	require.NoError(t, err)

	desc, err := library.NewClassifier(library.DefaultTable()).Classify(agg.LibraryType, agg.AnalysisType)
	require.NoError(t, err)

	s := sample.Record{
		SampleID:        "SM-1",
		Project:         "G1",
		Location:        "GCP",
		Version:         "1",
		StudyID:         "phs000452",
		DataType:        "Exome",
		Alias:           "NA1",
		AggregationPath: "gs://b/NA1.cram",
		MD5:             "d41d8cd98f00b204e9800998ecf8427e",
		MeanInsertSize:  "312.7",
		Registration:    &sample.Registration{SubjectID: "SUBJ", Repository: "BSP"},
	}
	expID, err := identifier.Experiment(s, agg)
	require.NoError(t, err)
	return Input{Sample: s, Aggregate: agg, Descriptor: desc, ExperimentID: expID, RunID: identifier.Run(s, agg)}
}

func newAssembler() *Assembler {
	return NewAssembler(AssemblerOptions{Clock: func() time.Time { return fixedNow }})
}

func TestAssembleExomeScenario(t *testing.T) {
	in := exomeInput(t)
	assert.Equal(t, library.StrategyWXS, in.Descriptor.Strategy.Code)
	assert.Equal(t, library.SourceGenomic, in.Descriptor.Source.Code)
	assert.Equal(t, "P", strings.Split(in.ExperimentID, ".")[3])

	b, err := newAssembler().Assemble(context.Background(), in)
	require.NoError(t, err)

	exp := b.Experiment.Root
	spot := exp.Find("EXPERIMENT/DESIGN/SPOT_DESCRIPTOR/SPOT_DECODE_SPEC")
	require.NotNil(t, spot)
	assert.Equal(t, "202", spot.Find("SPOT_LENGTH").Text)
	specs := spot.FindAll("READ_SPEC")
	require.Len(t, specs, 2)
	assert.Equal(t, "102", specs[1].Find("BASE_COORD").Text)

	assert.NotNil(t, exp.Find("EXPERIMENT/DESIGN/LIBRARY_DESCRIPTOR/LIBRARY_LAYOUT/PAIRED"))
	assert.Equal(t, "Illumina HiSeq X", exp.Find("EXPERIMENT/PLATFORM/ILLUMINA/INSTRUMENT_MODEL").Text)
	assert.Equal(t,
		"BSP Illumina random exon sequencing of 'genomic DNA' paired-end library 'Pond-1' containing sample 'NA1' from subject 'SUBJ'",
		exp.Find("EXPERIMENT/TITLE").Text)
	assert.Equal(t,
		"Illumina sequencing of Homo sapiens via Hybrid Selection Library_construction Kit: library_kit=KAPA.",
		exp.Find("EXPERIMENT/DESIGN/DESIGN_DESCRIPTION").Text)

	attrs := map[string]string{}
	for _, a := range b.Run.Root.FindAll("RUN/RUN_ATTRIBUTES/RUN_ATTRIBUTE") {
		attrs[a.Find("TAG").Text] = a.Find("VALUE").Text
	}
	assert.Equal(t, "Homo_sapiens_assembly38", attrs["assembly"])
	assert.Equal(t, "FLOWC", attrs["flowcell_barcode"])
	assert.Equal(t, "FLOWC.1, FLOWC.2", attrs["read_group_id"])

	assert.Equal(t, identifier.ExperimentFile(in.ExperimentID), b.Experiment.Filename)
	assert.Equal(t, "submission.xml", b.Submission.Filename)
	sub := b.Submission.Root.Find("SUBMISSION")
	alias, _ := sub.Attr("alias")
	assert.Equal(t, "BI.phs000452.2026", alias)
	date, _ := sub.Attr("submission_date")
	assert.Equal(t, "2026-03-02T09:30:15.000+00:00", date)
}

func TestAssembleSingleEnd(t *testing.T) {
	in := exomeInput(t)
	in.Aggregate.PairedRun = false
	b, err := newAssembler().Assemble(context.Background(), in)
	require.NoError(t, err)
	spot := b.Experiment.Root.Find("EXPERIMENT/DESIGN/SPOT_DESCRIPTOR/SPOT_DECODE_SPEC")
	assert.Equal(t, "101", spot.Find("SPOT_LENGTH").Text)
	assert.Len(t, spot.FindAll("READ_SPEC"), 1)
	assert.NotNil(t, b.Experiment.Root.Find("EXPERIMENT/DESIGN/LIBRARY_DESCRIPTOR/LIBRARY_LAYOUT/SINGLE"))
}

func TestAssembleSchemaViolation(t *testing.T) {
	in := exomeInput(t)
	in.Descriptor.Strategy.Code = "NOT-A-STRATEGY"
	_, err := newAssembler().Assemble(context.Background(), in)
	require.Error(t, err)
	var se *submiterr.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Path, "LIBRARY_STRATEGY")
	assert.Equal(t, submiterr.ClassSchema, submiterr.ClassOf(err))
}

func TestRuleValidatorRequiredAndUnknownSchema(t *testing.T) {
	v := NewRuleValidator(DefaultRules(DefaultSchemas(), library.DefaultInstruments()))
	root := setRoot("RUN_SET", RunSchema, El("RUN", El("IDENTIFIERS", Leaf("SUBMITTER_ID", "x"))))
	err := v.Validate(context.Background(), root, RunSchema)
	var se *submiterr.SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "RUN_SET/RUN/EXPERIMENT_REF/IDENTIFIERS/SUBMITTER_ID", se.Path)

	err = v.Validate(context.Background(), root, "urn:other")
	assert.ErrorIs(t, err, submiterr.ErrSchemaValidation)
}

type memorySink map[string][]byte

func (m memorySink) Write(_ context.Context, name string, payload []byte) error {
	m[name] = payload
	return nil
}

func TestEmitRendersXML(t *testing.T) {
	in := exomeInput(t)
	b, err := newAssembler().Assemble(context.Background(), in)
	require.NoError(t, err)

	sink := memorySink{}
	require.NoError(t, b.Emit(context.Background(), sink))
	require.Len(t, sink, 3)

	exp := string(sink[identifier.ExperimentFile(in.ExperimentID)])
	assert.True(t, strings.HasPrefix(exp, "<?xml"))
	assert.Contains(t, exp, `xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"`)
	assert.Contains(t, exp, `<SUBMITTER_ID namespace="BI">`+in.ExperimentID+`</SUBMITTER_ID>`)
	assert.Contains(t, string(sink["submission.xml"]), `schema="experiment"`)
}

func TestArchivePayloads(t *testing.T) {
	in := exomeInput(t)
	in.Aggregate.SampleMaterialType = "DNA:Genomic"
	p, err := ExperimentPayload(in, "EGAS0001", "", nil)
	require.NoError(t, err)
	assert.Equal(t, "ILLUMINA WXS sequencing of DNA:Genomic paired-end library via Hybrid Selection containing sample NA1", p.DesignDescription)
	assert.Equal(t, 312, p.PairedNominalLength)
	assert.Equal(t, 20, p.InstrumentModelID)
	assert.Equal(t, library.LayoutPaired, p.LibraryLayout)

	assert.Equal(t, "ILLUMINA WGS sequencing of DNA library via RANDOM containing sample A",
		ArchiveDesignDescription("", "WGS", "DNA", library.LayoutSingle, "RANDOM", "A"))
	assert.Equal(t, 0, NominalLength(1000))
	assert.Equal(t, 0, NominalLength(0))

	ft, err := RunFileType(in.Sample)
	require.NoError(t, err)
	assert.Equal(t, "cram", ft)
	in.Sample.AggregationPath = "x.vcf"
	_, err = RunFileType(in.Sample)
	assert.ErrorIs(t, err, submiterr.ErrUnsupportedRunFileType)

	in.Aggregate.InstrumentModel = "Sanger"
	_, err = ExperimentPayload(in, "EGAS0001", "", nil)
	assert.ErrorIs(t, err, submiterr.ErrUnknownInstrumentModel)

	assert.Equal(t, "Whole genome sequencing", DatasetType("WGS"))
	assert.Equal(t, "Exome sequencing", DatasetType("WXS"))
}
