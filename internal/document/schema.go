package document

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"seqsubmit/internal/library"
	"seqsubmit/internal/submiterr"
)

// SchemaValidator checks a document tree against a schema reference.
type SchemaValidator interface {
	Validate(ctx context.Context, root *Node, schema string) error
}

// Rules are the structural constraints checked for one schema. Paths are
// relative to the document root; a trailing "@name" addresses an attribute.
type Rules struct {
	Required []string
	Enums    map[string][]string
	Numeric  []string
	OneOf    map[string][]string
}

// RuleValidator is an offline SchemaValidator enforcing the subset of the
// SRA schemas the assembler can violate.
type RuleValidator struct {
	rules map[string]Rules
}

// NewRuleValidator registers rules for each schema reference.
func NewRuleValidator(rules map[string]Rules) *RuleValidator {
	cp := make(map[string]Rules, len(rules))
	for k, v := range rules {
		cp[k] = v
	}
	return &RuleValidator{rules: cp}
}

var sraRunFileTypes = []string{
	"srf", "sff", "fastq", "generic_fastq", "Illumina_native", "Illumina_native_qseq",
	"Illumina_native_scarf", "Illumina_native_fastq", "SOLiD_native", "SOLiD_native_csfasta",
	"SOLiD_native_qual", "PacBio_HDF5", "bam", "cram", "CompleteGenomics_native",
	"OxfordNanopore_native",
}

// DefaultRules returns rules for the SRA experiment, run and submission schemas.
func DefaultRules(schemas Schemas, instruments *library.Instruments) map[string]Rules {
	const (
		design  = "EXPERIMENT/DESIGN/"
		libDesc = design + "LIBRARY_DESCRIPTOR/"
		spot    = design + "SPOT_DESCRIPTOR/SPOT_DECODE_SPEC/"
	)
	return map[string]Rules{
		schemas.Experiment: {
			Required: []string{
				"EXPERIMENT/IDENTIFIERS/SUBMITTER_ID",
				"EXPERIMENT/TITLE",
				"EXPERIMENT/STUDY_REF@accession",
				design + "DESIGN_DESCRIPTION",
				design + "SAMPLE_DESCRIPTOR@refname",
				libDesc + "LIBRARY_STRATEGY",
				libDesc + "LIBRARY_SOURCE",
				libDesc + "LIBRARY_SELECTION",
				libDesc + "LIBRARY_LAYOUT",
				spot + "SPOT_LENGTH",
				"EXPERIMENT/PLATFORM/ILLUMINA/INSTRUMENT_MODEL",
			},
			Enums: map[string][]string{
				libDesc + "LIBRARY_STRATEGY":                    library.Strategies,
				libDesc + "LIBRARY_SOURCE":                      library.Sources,
				libDesc + "LIBRARY_SELECTION":                   library.Selections,
				spot + "READ_SPEC/READ_TYPE":                    {"Forward", "Reverse"},
				"EXPERIMENT/PLATFORM/ILLUMINA/INSTRUMENT_MODEL": instruments.Models(),
			},
			Numeric: []string{
				spot + "SPOT_LENGTH",
				spot + "READ_SPEC/READ_INDEX",
				spot + "READ_SPEC/BASE_COORD",
			},
			OneOf: map[string][]string{
				libDesc + "LIBRARY_LAYOUT": {library.LayoutPaired, library.LayoutSingle},
			},
		},
		schemas.Run: {
			Required: []string{
				"RUN/IDENTIFIERS/SUBMITTER_ID",
				"RUN/EXPERIMENT_REF/IDENTIFIERS/SUBMITTER_ID",
				"RUN/DATA_BLOCK/FILES/FILE@filename",
				"RUN/DATA_BLOCK/FILES/FILE@filetype",
				"RUN/DATA_BLOCK/FILES/FILE@checksum",
			},
			Enums: map[string][]string{
				"RUN/DATA_BLOCK/FILES/FILE@filetype":        sraRunFileTypes,
				"RUN/DATA_BLOCK/FILES/FILE@checksum_method": {"MD5"},
			},
		},
		schemas.Submission: {
			Required: []string{
				"SUBMISSION@alias",
				"SUBMISSION@center_name",
				"SUBMISSION/CONTACTS/CONTACT@name",
				"SUBMISSION/ACTIONS/ACTION",
			},
		},
	}
}

// Validate implements SchemaValidator.
func (v *RuleValidator) Validate(_ context.Context, root *Node, schema string) error {
	rules, ok := v.rules[schema]
	if !ok {
		return &submiterr.SchemaError{Schema: schema, Path: root.Name, Reason: "no rules registered for schema"}
	}
	fail := func(path, reason string) error {
		return &submiterr.SchemaError{Schema: schema, Path: root.Name + "/" + path, Reason: reason}
	}
	for _, path := range rules.Required {
		vals, present := lookup(root, path)
		if !present {
			return fail(path, "required element missing")
		}
		for i, val := range vals {
			if val != "" {
				continue
			}
			if strings.Contains(path, "@") {
				return fail(path, "required attribute empty")
			}
			if len(root.FindAll(path)[i].Children) == 0 {
				return fail(path, "required element empty")
			}
		}
	}
	for _, path := range sortedKeys(rules.Enums) {
		vals, _ := lookup(root, path)
		for _, val := range vals {
			if !slices.Contains(rules.Enums[path], val) {
				return fail(path, fmt.Sprintf("value %q not in enumeration", val))
			}
		}
	}
	for _, path := range rules.Numeric {
		vals, _ := lookup(root, path)
		for _, val := range vals {
			if n, err := strconv.Atoi(val); err != nil || n < 0 {
				return fail(path, fmt.Sprintf("value %q is not a non-negative integer", val))
			}
		}
	}
	for _, path := range sortedKeys(rules.OneOf) {
		for _, n := range root.FindAll(path) {
			if len(n.Children) != 1 || !slices.Contains(rules.OneOf[path], n.Children[0].Name) {
				return fail(path, fmt.Sprintf("expected exactly one of %v", rules.OneOf[path]))
			}
		}
	}
	return nil
}

// lookup resolves path to text or attribute values and reports whether every
// addressed element (and attribute) exists.
func lookup(root *Node, path string) ([]string, bool) {
	elem, attr, hasAttr := strings.Cut(path, "@")
	nodes := []*Node{root}
	if elem != "" {
		nodes = root.FindAll(elem)
	}
	if len(nodes) == 0 {
		return nil, false
	}
	vals := make([]string, 0, len(nodes))
	for _, n := range nodes {
		if !hasAttr {
			vals = append(vals, n.Text)
			continue
		}
		v, ok := n.Attr(attr)
		if !ok {
			return nil, false
		}
		vals = append(vals, v)
	}
	return vals, true
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
