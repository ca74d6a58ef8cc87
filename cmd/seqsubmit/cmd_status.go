package main

import (
	"bytes"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"seqsubmit/internal/inbox"
	"seqsubmit/internal/ledger"
	"seqsubmit/internal/submiterr"
)

// Status table columns.
const (
	eligibilityColumn = "eligibility_status"
	fileStatusColumn  = "file_validation_status"
)

const statusAmbiguous = "ambiguous_sample_match"

func newEligibilityCmd(a *app) *cobra.Command {
	var in inputFlags
	cmd := &cobra.Command{
		Use:   "eligibility",
		Short: "Report whether samples are registered in their study's telemetry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inputs, err := in.load(false)
			if err != nil {
				return err
			}
			v, err := a.validator()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			rows := make([]ledger.StatusRow, 0, len(inputs))
			for _, input := range inputs {
				res, err := v.Check(ctx, input.Sample)
				status := string(res.Status)
				if err != nil {
					if submiterr.ClassOf(err) != submiterr.ClassEligibility {
						return err
					}
					if status == "" {
						status = statusAmbiguous
					}
					a.logger.Info("sample not eligible", zap.String("sample", input.Sample.SampleID), zap.Error(err))
				}
				rows = append(rows, ledger.StatusRow{SampleID: input.Sample.SampleID, Status: status})
			}
			return ledger.WriteStatusTSV(cmd.OutOrStdout(), eligibilityColumn, rows)
		},
	}
	in.register(cmd)
	return cmd
}

func newFilesCmd(a *app) *cobra.Command {
	files := &cobra.Command{
		Use:   "files",
		Short: "Inspect files uploaded to the archive inbox",
	}
	var (
		in           inputFlags
		submissionID string
	)
	status := &cobra.Command{
		Use:   "status",
		Short: "Report whether each sample's inbox files passed archive validation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inputs, err := in.load(false)
			if err != nil {
				return err
			}
			client, err := a.archiveClient()
			if err != nil {
				return err
			}
			uploaded, err := client.ListInboxFiles(cmd.Context(), submissionID)
			if err != nil {
				return err
			}
			rows := make([]ledger.StatusRow, 0, len(inputs))
			for _, input := range inputs {
				matched := inbox.MatchSample(uploaded, input.Sample.Alias)
				rows = append(rows, ledger.StatusRow{
					SampleID: input.Sample.SampleID,
					Status:   string(inbox.StatusOf(matched)),
				})
			}
			return ledger.WriteStatusTSV(cmd.OutOrStdout(), fileStatusColumn, rows)
		},
	}
	in.register(status)
	status.Flags().StringVar(&submissionID, "submission-id", "", "Archive submission id")
	files.AddCommand(status)
	return files
}

func newLedgerCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "ledger",
		Short: "Read the local registration ledger",
	}
	var (
		submissionID string
		output       string
	)
	export := &cobra.Command{
		Use:   "export",
		Short: "Write the sample to run-id table for the workflow data tables",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			store, err := a.openLedger(ctx)
			if err != nil {
				return err
			}
			defer store.Close()
			entries, err := store.Entries(ctx)
			if err != nil {
				return err
			}
			if submissionID != "" {
				kept := entries[:0]
				for _, e := range entries {
					if e.SubmissionID == submissionID {
						kept = append(kept, e)
					}
				}
				entries = kept
			}

			var buf bytes.Buffer
			if err := ledger.WriteRunTSV(&buf, entries); err != nil {
				return err
			}
			if output == "" {
				_, err := io.Copy(cmd.OutOrStdout(), &buf)
				return err
			}
			out, err := a.openSink(ctx)
			if err != nil {
				return err
			}
			if err := out.Write(ctx, output, buf.Bytes()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %d entries to %s\n", len(entries), out.Key(output))
			return nil
		},
	}
	export.Flags().StringVar(&submissionID, "submission-id", "", "Only export entries of this submission")
	export.Flags().StringVarP(&output, "output", "o", "", "Write to this name in the output store instead of stdout")
	root.AddCommand(export)
	return root
}
