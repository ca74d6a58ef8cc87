package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"seqsubmit/internal/gdc"
	"seqsubmit/internal/ledger"
	"seqsubmit/internal/pipeline"
	"seqsubmit/internal/submiterr"
)

// GDC status table columns.
const (
	gdcRegistrationColumn = "gdc_registration_status"
	gdcFileStateColumn    = "gdc_file_state"
)

const (
	statusRegistered    = "registered"
	statusNotRegistered = "sample_not_registered"
	statusNotSubmitted  = "not_submitted"
)

func newGDCCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "gdc",
		Short: "Check and submit samples in the Genomic Data Commons",
	}
	root.AddCommand(newGDCVerifyCmd(a), newGDCFileStatusCmd(a), newGDCLinkCmd(a), newGDCSubmitReadsCmd(a))
	return root
}

func newGDCVerifyCmd(a *app) *cobra.Command {
	var in inputFlags
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Report whether each sample's aliquot is registered in the GDC project",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inputs, err := in.load(false)
			if err != nil {
				return err
			}
			client, err := a.gdcClient()
			if err != nil {
				return err
			}
			rows := make([]ledger.StatusRow, 0, len(inputs))
			for _, input := range inputs {
				status := statusRegistered
				if _, err := client.VerifyAliquot(cmd.Context(), input.Sample.Alias); err != nil {
					if !errors.Is(err, submiterr.ErrSampleNotRegistered) {
						return err
					}
					status = statusNotRegistered
					a.logger.Info("aliquot not registered", zap.String("sample", input.Sample.SampleID), zap.Error(err))
				}
				rows = append(rows, ledger.StatusRow{SampleID: input.Sample.SampleID, Status: status})
			}
			return ledger.WriteStatusTSV(cmd.OutOrStdout(), gdcRegistrationColumn, rows)
		},
	}
	in.register(cmd)
	return cmd
}

func newGDCFileStatusCmd(a *app) *cobra.Command {
	var in inputFlags
	cmd := &cobra.Command{
		Use:   "file-status",
		Short: "Report the GDC file state of each sample's submitted aligned reads",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inputs, err := in.load(false)
			if err != nil {
				return err
			}
			client, err := a.gdcClient()
			if err != nil {
				return err
			}
			rows := make([]ledger.StatusRow, 0, len(inputs))
			for _, input := range inputs {
				rec := input.Sample
				st, err := client.FileStatus(cmd.Context(), gdc.SubmitterID(rec.Alias, rec.DataType, rec.Project))
				switch {
				case errors.Is(err, submiterr.ErrSampleNotFoundInArchive):
					st.FileState = statusNotSubmitted
				case err != nil:
					return err
				}
				a.logger.Debug("gdc file state", zap.String("sample", rec.SampleID),
					zap.String("state", st.State), zap.String("file_state", st.FileState))
				rows = append(rows, ledger.StatusRow{SampleID: rec.SampleID, Status: st.FileState})
			}
			return ledger.WriteStatusTSV(cmd.OutOrStdout(), gdcFileStateColumn, rows)
		},
	}
	in.register(cmd)
	return cmd
}

func newGDCLinkCmd(a *app) *cobra.Command {
	var in inputFlags
	cmd := &cobra.Command{
		Use:   "link",
		Short: "Create the case, sample, aliquot and read group entities for each sample",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inputs, err := in.load(true)
			if err != nil {
				return err
			}
			client, err := a.gdcClient()
			if err != nil {
				return err
			}
			for _, input := range inputs {
				entities, err := gdc.LinkEntities(a.cfg.GDC.Program, a.cfg.GDC.Project, input.Sample, input.ReadGroups)
				if err != nil {
					return err
				}
				if err := submitGDC(cmd, client, input, entities); err != nil {
					return err
				}
			}
			return nil
		},
	}
	in.register(cmd)
	return cmd
}

func newGDCSubmitReadsCmd(a *app) *cobra.Command {
	var (
		in       inputFlags
		fileSize int64
	)
	cmd := &cobra.Command{
		Use:   "submit-reads",
		Short: "Submit the aligned reads metadata of one sample",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inputs, err := in.load(true)
			if err != nil {
				return err
			}
			if len(inputs) != 1 {
				return fmt.Errorf("submit-reads takes one sample, got %d", len(inputs))
			}
			client, err := a.gdcClient()
			if err != nil {
				return err
			}
			input := inputs[0]
			reads, err := gdc.NewAlignedReads(a.cfg.GDC.Program, a.cfg.GDC.Project, input.Sample, fileSize, input.ReadGroups)
			if err != nil {
				return err
			}
			return submitGDC(cmd, client, input, reads)
		},
	}
	in.register(cmd)
	cmd.Flags().Int64Var(&fileSize, "file-size", 0, "Size in bytes of the aggregated file")
	return cmd
}

func submitGDC(cmd *cobra.Command, client *gdc.Client, input pipeline.Input, entities any) error {
	tx, err := client.Submit(cmd.Context(), entities)
	if err != nil {
		return fmt.Errorf("sample %s: %w", input.Sample.SampleID, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\ttransaction %d committed\t%d entities\n", input.Sample.SampleID, tx.ID, len(tx.Entities))
	return nil
}
