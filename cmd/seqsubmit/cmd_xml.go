package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"seqsubmit/internal/pipeline"
)

func newXMLCmd(a *app) *cobra.Command {
	var (
		in              inputFlags
		skipEligibility bool
	)
	cmd := &cobra.Command{
		Use:   "xml",
		Short: "Build and validate experiment, run and submission documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			inputs, err := in.load(true)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			out, err := a.openSink(ctx)
			if err != nil {
				return err
			}
			opts := pipeline.Options{
				Assembler:   a.assembler(),
				Sink:        out,
				Concurrency: a.cfg.Batch.Concurrency,
				Logger:      a.logger,
			}
			if !skipEligibility {
				v, err := a.validator()
				if err != nil {
					return err
				}
				opts.Checker = v
			}
			report, err := pipeline.New(opts).RunBatch(ctx, nil, inputs)
			if err != nil {
				return err
			}
			printReport(cmd.OutOrStdout(), report)
			return batchError(report)
		},
	}
	in.register(cmd)
	cmd.Flags().BoolVar(&skipEligibility, "skip-eligibility", false, "Do not consult the telemetry report")
	return cmd
}

func printReport(w io.Writer, report pipeline.BatchReport) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SAMPLE\tALIAS\tSTATE\tEXPERIMENT\tDETAIL")
	for _, s := range report.Samples {
		state, detail := "documents_ready", ""
		if s.Outcome.SubmissionID != "" {
			state = s.Outcome.State.String()
		}
		if s.Failure != nil {
			state = "failed_" + s.Failure.Stage
			detail = s.Failure.Error()
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", s.SampleID, s.Alias, state, s.Prepared.Document.ExperimentID, detail)
	}
	_ = tw.Flush()
	if report.Submission != nil {
		fmt.Fprintf(w, "submission %s: %s dataset=%s\n",
			report.Submission.SubmissionID, report.Submission.State, report.Submission.DatasetID)
	}
}

// batchError turns per-sample failures into a command error carrying the
// first failure's class.
func batchError(report pipeline.BatchReport) error {
	failed := len(report.Samples) - report.Succeeded()
	if failed == 0 {
		return nil
	}
	for _, s := range report.Samples {
		if s.Failure != nil {
			return fmt.Errorf("%d of %d samples failed: %w", failed, len(report.Samples), s.Failure)
		}
	}
	return nil
}
