package document

import (
	"fmt"
	"path"
	"strconv"
	"strings"

	"seqsubmit/internal/library"
	"seqsubmit/internal/readgroup"
	"seqsubmit/internal/sample"
)

// Input is everything needed to assemble one sample's documents.
type Input struct {
	Sample       sample.Record
	Aggregate    readgroup.Aggregate
	Descriptor   library.Descriptor
	ExperimentID string
	RunID        string
}

// Title renders the experiment title.
func Title(in Input) string {
	t := fmt.Sprintf("%s Illumina %s sequencing of '%s' %s library '%s' containing sample '%s' %s",
		in.Sample.Repository(),
		in.Descriptor.Strategy.Human,
		in.Descriptor.Source.Human,
		in.Aggregate.PairedEndLabel(),
		in.Aggregate.LibraryName,
		in.Sample.Alias,
		in.Sample.SubjectString())
	return strings.TrimSpace(t)
}

// DesignDescription renders the experiment design text, including any kit
// annotations carried by the aggregate.
func DesignDescription(in Input, organism string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Illumina sequencing of %s via %s", organism, in.Descriptor.Selection)
	b.WriteString(kit("Library_construction", in.Aggregate.Annotations.LibraryConstruction))
	b.WriteString(kit("Target_capture", in.Aggregate.Annotations.TargetCapture))
	return b.String()
}

func kit(label string, kvs []readgroup.KV) string {
	if len(kvs) == 0 {
		return ""
	}
	parts := make([]string, len(kvs))
	for i, kv := range kvs {
		parts[i] = kv.Key + "=" + kv.Value
	}
	return " " + label + " Kit: " + strings.Join(parts, " ") + "."
}

// Assembly extracts the reference assembly name from a reference sequence
// path such as /seq/references/Homo_sapiens_assembly38/v0/....
func Assembly(reference string) string {
	const marker = "/references/"
	if i := strings.Index(reference, marker); i >= 0 {
		rest := reference[i+len(marker):]
		name, _, _ := strings.Cut(rest, "/")
		return name
	}
	base := path.Base(reference)
	return strings.TrimSuffix(base, path.Ext(base))
}

func readSpec(label string, index, baseCoord int) *Node {
	readType := "Forward"
	if label != "forward" {
		readType = "Reverse"
	}
	return El("READ_SPEC",
		Leaf("READ_INDEX", strconv.Itoa(index)),
		Leaf("READ_LABEL", label),
		Leaf("READ_CLASS", "Application Read"),
		Leaf("READ_TYPE", readType),
		Leaf("BASE_COORD", strconv.Itoa(baseCoord)),
	)
}

func attributeList(wrapper, item string, kvs []readgroup.KV) *Node {
	list := El(wrapper)
	for _, kv := range kvs {
		list.Add(El(item, Leaf("TAG", kv.Key), Leaf("VALUE", kv.Value)))
	}
	return list
}

func experimentAttributes(in Input, order string) []readgroup.KV {
	agg := in.Aggregate
	kvs := []readgroup.KV{
		{Key: "aggregation_project", Value: in.Sample.Project},
		{Key: "analysis_type", Value: agg.AnalysisType},
		{Key: "library", Value: agg.LibraryName},
		{Key: "library_type", Value: agg.LibraryType},
		{Key: "lsid", Value: agg.SampleLSID},
		{Key: "material_type", Value: agg.SampleMaterialType},
		{Key: "project", Value: in.Sample.Project},
		{Key: "research_project", Value: agg.ResearchProjectID},
		{Key: "target_set", Value: agg.BaitSet},
		{Key: "work_request_or_pdo", Value: order},
	}
	if agg.SampleBarcode != "" {
		kvs = append(kvs, readgroup.KV{Key: "gssr_id", Value: agg.SampleBarcode})
	}
	return kvs
}

func (a *Assembler) experiment(in Input) (*Node, error) {
	agg := in.Aggregate
	order, err := agg.OrderID()
	if err != nil {
		return nil, err
	}
	readLength, err := agg.ReadLength()
	if err != nil {
		return nil, err
	}
	spotLength, err := agg.SpotLength()
	if err != nil {
		return nil, err
	}
	studyID := in.Sample.StudyID.String()

	spec := El("SPOT_DECODE_SPEC",
		Leaf("SPOT_LENGTH", strconv.Itoa(spotLength)),
		readSpec("forward", 0, 1),
	)
	if agg.PairedRun {
		spec.Add(readSpec("reverse", 1, readLength+1))
	}

	experiment := El("EXPERIMENT",
		El("IDENTIFIERS", Leaf("SUBMITTER_ID", in.ExperimentID).With("namespace", a.center.Name)),
		Leaf("TITLE", Title(in)),
		El("STUDY_REF").With("accession", studyID),
		El("DESIGN",
			Leaf("DESIGN_DESCRIPTION", DesignDescription(in, a.center.Organism)),
			El("SAMPLE_DESCRIPTOR").With("refname", in.Sample.Alias).With("refcenter", studyID),
			El("LIBRARY_DESCRIPTOR",
				Leaf("LIBRARY_NAME", agg.LibraryName),
				Leaf("LIBRARY_STRATEGY", in.Descriptor.Strategy.Code),
				Leaf("LIBRARY_SOURCE", in.Descriptor.Source.Code),
				Leaf("LIBRARY_SELECTION", in.Descriptor.Selection),
				El("LIBRARY_LAYOUT", El(library.Layout(agg.PairedRun))),
			),
			El("SPOT_DESCRIPTOR", spec),
		),
		El("PLATFORM", El("ILLUMINA", Leaf("INSTRUMENT_MODEL", a.instruments.Canonical(agg.InstrumentModel)))),
		attributeList("EXPERIMENT_ATTRIBUTES", "EXPERIMENT_ATTRIBUTE", experimentAttributes(in, order)),
	)
	return setRoot("EXPERIMENT_SET", a.schemas.Experiment, experiment), nil
}

func setRoot(name, schema string, child *Node) *Node {
	return El(name, child).
		With("xsi:noNamespaceSchemaLocation", schema).
		With("xmlns:xsi", xsiNamespace)
}
