package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"seqsubmit/internal/pipeline"
	"seqsubmit/internal/readgroup"
	"seqsubmit/internal/sample"
)

// manifest lists several samples for one invocation. Relative paths resolve
// against the manifest's directory.
type manifest struct {
	Samples []manifestEntry `yaml:"samples"`
}

type manifestEntry struct {
	Sample     string `yaml:"sample"`
	ReadGroups string `yaml:"read_groups"`
}

type inputFlags struct {
	sample     string
	readGroups string
	manifest   string
}

func (f *inputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.sample, "sample", "", "Sample row JSON exported from the data table")
	cmd.Flags().StringVar(&f.readGroups, "read-groups", "", "Read-group rows JSON for the sample")
	cmd.Flags().StringVar(&f.manifest, "manifest", "", "YAML manifest listing sample and read-group files")
	cmd.MarkFlagsMutuallyExclusive("sample", "manifest")
}

// load reads the inputs. Read groups are required only when needReadGroups
// is set.
func (f *inputFlags) load(needReadGroups bool) ([]pipeline.Input, error) {
	var entries []manifestEntry
	switch {
	case f.manifest != "":
		data, err := os.ReadFile(f.manifest)
		if err != nil {
			return nil, fmt.Errorf("read manifest: %w", err)
		}
		var m manifest
		if err := yaml.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("parse manifest %s: %w", f.manifest, err)
		}
		base := filepath.Dir(f.manifest)
		for _, e := range m.Samples {
			entries = append(entries, manifestEntry{Sample: resolve(base, e.Sample), ReadGroups: resolve(base, e.ReadGroups)})
		}
	case f.sample != "":
		entries = []manifestEntry{{Sample: f.sample, ReadGroups: f.readGroups}}
	default:
		return nil, errors.New("one of --sample or --manifest is required")
	}
	if len(entries) == 0 {
		return nil, errors.New("no samples to process")
	}

	inputs := make([]pipeline.Input, 0, len(entries))
	for _, e := range entries {
		in, err := loadInput(e, needReadGroups)
		if err != nil {
			return nil, err
		}
		inputs = append(inputs, in)
	}
	return inputs, nil
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

func loadInput(e manifestEntry, needReadGroups bool) (pipeline.Input, error) {
	data, err := os.ReadFile(e.Sample)
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("read sample: %w", err)
	}
	rec, err := sample.Decode(data)
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("%s: %w", e.Sample, err)
	}
	in := pipeline.Input{Sample: rec}
	if e.ReadGroups == "" {
		if needReadGroups {
			return pipeline.Input{}, fmt.Errorf("sample %s: no read-group file given", rec.SampleID)
		}
		return in, nil
	}
	data, err = os.ReadFile(e.ReadGroups)
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("read read groups: %w", err)
	}
	in.ReadGroups, err = readgroup.DecodeRecords(data)
	if err != nil {
		return pipeline.Input{}, fmt.Errorf("%s: %w", e.ReadGroups, err)
	}
	return in, nil
}
