package document

import "seqsubmit/internal/readgroup"

func runAttributes(in Input, order string) []readgroup.KV {
	agg := in.Aggregate
	const sep = ", "
	return []readgroup.KV{
		{Key: "aggregation_project", Value: in.Sample.Project},
		{Key: "analysis_type", Value: agg.AnalysisType},
		{Key: "assembly", Value: Assembly(agg.ReferenceSequence)},
		{Key: "bait_set", Value: agg.BaitSet},
		{Key: "data_type", Value: in.Sample.DataType},
		{Key: "flowcell_barcode", Value: agg.FlowcellBarcodes.Join(sep)},
		{Key: "instrument_name", Value: agg.InstrumentNames.Join(sep)},
		{Key: "library", Value: agg.LibraryName},
		{Key: "library_type", Value: agg.LibraryType},
		{Key: "lsid", Value: agg.SampleLSID},
		{Key: "molecular_idx_scheme", Value: agg.MolecularIndexSchemes.Join(sep)},
		{Key: "read_group_id", Value: agg.ReadGroupIDs.Join(sep)},
		{Key: "research_project", Value: agg.ResearchProjectID},
		{Key: "rg_platform_unit", Value: agg.PlatformUnits.Join(sep)},
		{Key: "rg_platform_unit_lib", Value: agg.PlatformUnitLibs.Join(sep)},
		{Key: "run_barcode", Value: agg.RunBarcodes.Join(sep)},
		{Key: "run_name", Value: agg.RunNames.Join(sep)},
		{Key: "work_request_or_pdo", Value: order},
	}
}

func (a *Assembler) run(in Input) (*Node, error) {
	order, err := in.Aggregate.OrderID()
	if err != nil {
		return nil, err
	}
	file := El("FILE").
		With("filename", in.Sample.DataFile()).
		With("filetype", in.Sample.FileType()).
		With("checksum_method", "MD5").
		With("checksum", in.Sample.MD5)

	run := El("RUN",
		El("IDENTIFIERS", Leaf("SUBMITTER_ID", in.RunID).With("namespace", a.center.Name)),
		El("EXPERIMENT_REF",
			El("IDENTIFIERS", Leaf("SUBMITTER_ID", in.ExperimentID).With("namespace", a.center.Name)),
		),
		El("DATA_BLOCK", El("FILES", file)),
		attributeList("RUN_ATTRIBUTES", "RUN_ATTRIBUTE", runAttributes(in, order)),
	)
	return setRoot("RUN_SET", a.schemas.Run, run), nil
}
