package inbox

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"seqsubmit/internal/archive"
)

func TestStem(t *testing.T) {
	assert.Equal(t, "NA12878", Stem("uploads/2026/NA12878.cram"))
	assert.Equal(t, "NA12878.cram", Stem("NA12878.cram.c4gh"))
	assert.Equal(t, "NA12878", Stem("NA12878"))
}

func TestMatchSampleAndValidated(t *testing.T) {
	files := []archive.File{
		{ProvisionalID: "1", RelativePath: "a/NA1.cram", EncryptedChecksum: "e", UnencryptedChecksum: "u", FileSize: 10},
		{ProvisionalID: "2", RelativePath: "b/NA1.crai", EncryptedChecksum: "e", UnencryptedChecksum: "", FileSize: 10},
		{ProvisionalID: "3", RelativePath: "NA2.cram", EncryptedChecksum: "e", UnencryptedChecksum: "u", FileSize: 5},
		{ProvisionalID: "4", RelativePath: "NA10.cram"},
	}
	na1 := MatchSample(files, "NA1")
	assert.Equal(t, []archive.ID{"1", "2"}, IDs(na1))
	assert.False(t, Validated(na1))
	assert.Equal(t, StatusIncomplete, StatusOf(na1))

	na2 := MatchSample(files, "NA2")
	assert.True(t, Validated(na2))
	assert.Equal(t, StatusValidated, StatusOf(na2))

	assert.Empty(t, MatchSample(files, "NA3"))
	assert.False(t, Validated(nil))
}
