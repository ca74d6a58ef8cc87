package library

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqsubmit/internal/submiterr"
)

func TestClassifyRuleTable(t *testing.T) {
	c := NewClassifier(DefaultTable())
	tests := []struct {
		name          string
		libraryType   string
		analysisType  string
		wantStrategy  string
		wantSource    string
		wantSelection string
	}{
		{"whole genome", "WholeGenomeShotgun", "Resequencing", StrategyWGS, SourceGenomic, SelectionRandom},
		{"hybrid selection", "HybridSelection", "Resequencing", StrategyWXS, SourceGenomic, SelectionHybrid},
		{"cdna exact", "cDNAShotgun", "AssemblyWithoutReference", StrategyRNASeq, SourceTranscriptomic, SelectionCDNA},
		{"cdna read two sense", "cDNAShotgunReadTwoSense", "Resequencing", StrategyRNASeq, SourceTranscriptomic, SelectionCDNA},
		{"cdna strand agnostic", "cDNAShotgunStrandAgnostic", "", StrategyRNASeq, SourceTranscriptomic, SelectionCDNA},
		{"analysis cdna", "Custom", "cDNA", StrategyRNASeq, SourceTranscriptomic, SelectionCDNA},
		{"exact type wins over cdna analysis", "HybridSelection", "cDNA", StrategyWXS, SourceGenomic, SelectionHybrid},
		{"whole genome with cdna analysis", "WholeGenomeShotgun", "cDNA", StrategyWGS, SourceGenomic, SelectionRandom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := c.Classify(tt.libraryType, tt.analysisType)
			require.NoError(t, err)
			assert.True(t, d.Complete())
			assert.Equal(t, tt.wantStrategy, d.Strategy.Code)
			assert.Equal(t, tt.wantSource, d.Source.Code)
			assert.Equal(t, tt.wantSelection, d.Selection)
			assert.True(t, ValidStrategy(d.Strategy.Code))
			assert.True(t, ValidSource(d.Source.Code))
			assert.True(t, ValidSelection(d.Selection))
		})
	}
}

func TestClassifyUnknownFails(t *testing.T) {
	c := NewClassifier(DefaultTable())
	for _, pair := range [][2]string{
		{"cDNAShotgunReadTwoSense", "AssemblyWithoutReference"},
		{"Amplicon", "Resequencing"},
		{"", ""},
	} {
		_, err := c.Classify(pair[0], pair[1])
		require.Error(t, err)
		assert.True(t, errors.Is(err, submiterr.ErrUnknownLibraryDescriptor), "pair %v", pair)
	}
}

func TestClassifierIsolatedFromTableMutation(t *testing.T) {
	table := DefaultTable()
	c := NewClassifier(table)
	delete(table.Exact, "WholeGenomeShotgun")
	table.CDNAVariants[0] = "changed"

	_, err := c.Classify("WholeGenomeShotgun", "")
	require.NoError(t, err)
	_, err = c.Classify("cDNAShotgunReadTwoSense", "")
	require.NoError(t, err)
}

func TestInstruments(t *testing.T) {
	in := DefaultInstruments()
	id, err := in.ID("Illumina HiSeq X 10")
	require.NoError(t, err)
	assert.Equal(t, 20, id)
	assert.Equal(t, "Illumina HiSeq X", in.Canonical("Illumina HiSeq X 10"))
	assert.Equal(t, "Illumina NovaSeq 6000", in.Canonical("Illumina NovaSeq 6000"))

	_, err = in.ID("Sanger 3730")
	assert.ErrorIs(t, err, submiterr.ErrUnknownInstrumentModel)
}

func TestVocabulary(t *testing.T) {
	assert.Equal(t, LayoutPaired, Layout(true))
	assert.Equal(t, LayoutSingle, Layout(false))
	assert.True(t, ValidRunFileType("cram"))
	assert.False(t, ValidRunFileType("vcf"))
}
