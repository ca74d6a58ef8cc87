package ledger

import (
	"encoding/csv"
	"io"
	"strings"
)

// Column headers understood by the workflow data table loader.
const (
	SampleIDColumn = "entity:sample_id"
	RunIDColumn    = "ega_run_provisional_id"
)

// StatusRow is one sample's status for a status export.
type StatusRow struct {
	SampleID string
	Status   string
}

// WriteRunTSV writes the sample to run-id table. Samples with several runs
// list them comma-separated.
func WriteRunTSV(w io.Writer, entries []Entry) error {
	tw := newTSVWriter(w)
	if err := tw.Write([]string{SampleIDColumn, RunIDColumn}); err != nil {
		return err
	}
	for _, e := range entries {
		if err := tw.Write([]string{e.SampleID, strings.Join(e.RunIDs, ",")}); err != nil {
			return err
		}
	}
	tw.Flush()
	return tw.Error()
}

// WriteStatusTSV writes a two-column status table headed by column.
func WriteStatusTSV(w io.Writer, column string, rows []StatusRow) error {
	tw := newTSVWriter(w)
	if err := tw.Write([]string{SampleIDColumn, column}); err != nil {
		return err
	}
	for _, r := range rows {
		if err := tw.Write([]string{r.SampleID, r.Status}); err != nil {
			return err
		}
	}
	tw.Flush()
	return tw.Error()
}

func newTSVWriter(w io.Writer) *csv.Writer {
	tw := csv.NewWriter(w)
	tw.Comma = '\t'
	return tw
}
