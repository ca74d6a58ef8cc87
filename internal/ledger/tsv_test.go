package ledger

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteRunTSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteRunTSV(&buf, []Entry{
		{SampleID: "SM-1", RunIDs: []string{"17"}},
		{SampleID: "SM-2", RunIDs: []string{"18", "19"}},
		{SampleID: "SM-3"},
	})
	require.NoError(t, err)
	assert.Equal(t, "entity:sample_id\tega_run_provisional_id\nSM-1\t17\nSM-2\t18,19\nSM-3\t\n", buf.String())
}

func TestWriteStatusTSV(t *testing.T) {
	var buf bytes.Buffer
	err := WriteStatusTSV(&buf, "file_validation_status", []StatusRow{
		{SampleID: "SM-1", Status: "validated"},
		{SampleID: "SM-2", Status: "incomplete"},
	})
	require.NoError(t, err)
	assert.Equal(t, "entity:sample_id\tfile_validation_status\nSM-1\tvalidated\nSM-2\tincomplete\n", buf.String())
}

func TestEntryKey(t *testing.T) {
	assert.Equal(t, "SUB-1/SM-1", Entry{SubmissionID: "SUB-1", SampleID: "SM-1"}.Key())
}
