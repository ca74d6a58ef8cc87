package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"seqsubmit/internal/archive"
	"seqsubmit/internal/infra/persistence/memory"
	"seqsubmit/internal/ledger"
	"seqsubmit/internal/pipeline"
	"seqsubmit/internal/reconcile"
	"seqsubmit/internal/submiterr"
)

func newRegisterCmd(a *app) *cobra.Command {
	var (
		in              inputFlags
		sub             pipeline.Submission
		stopAfter       string
		releaseDate     string
		dryRun          bool
		skipEligibility bool
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register experiments, runs and the dataset with the archive",
		Long: `Register brings a submission to the requested state. Every step checks the
archive before creating anything, so an interrupted run can simply be repeated.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			switch reconcile.Step(stopAfter) {
			case "", reconcile.StepExperiment, reconcile.StepRun, reconcile.StepDataset:
				sub.StopAfter = reconcile.Step(stopAfter)
			default:
				return fmt.Errorf("--stop-after %q: want experiment, run or dataset", stopAfter)
			}
			if sub.Dataset.PolicyTitle == "" && (sub.StopAfter == "" || sub.StopAfter == reconcile.StepDataset) {
				return submiterr.MissingFieldError{Entity: "register", Field: "policy-title"}
			}
			if releaseDate != "" {
				t, err := time.Parse("2006-01-02", releaseDate)
				if err != nil {
					return fmt.Errorf("--release-date: %w", err)
				}
				sub.ExpectedRelease = t
			}
			inputs, err := in.load(true)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			var (
				client archiveAPI
				store  ledger.Store
			)
			if dryRun {
				client = dryRunArchive(sub, inputs)
				store = memory.NewStore()
			} else {
				if client, err = a.archiveClient(); err != nil {
					return err
				}
				if store, err = a.openLedger(ctx); err != nil {
					return err
				}
			}
			defer store.Close()

			out, err := a.openSink(ctx)
			if err != nil {
				return err
			}
			opts := pipeline.Options{
				Assembler: a.assembler(),
				Registrar: reconcile.NewEngine(client, client, reconcile.Options{
					Recorder: a.recorder,
					Logger:   a.logger,
				}),
				Sink:        out,
				Ledger:      store,
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

			report, err := pipeline.New(opts).RunBatch(ctx, &sub, inputs)
			printReport(cmd.OutOrStdout(), report)
			if err != nil {
				return err
			}
			return batchError(report)
		},
	}
	in.register(cmd)
	f := cmd.Flags()
	f.StringVar(&sub.ID, "submission-id", "", "Archive submission id")
	f.StringVar(&sub.StudyAccessionID, "study-id", "", "Archive study accession id")
	f.StringVar(&sub.Dataset.PolicyTitle, "policy-title", "", "Title of the data access policy for the dataset")
	f.StringVar(&sub.Dataset.Title, "dataset-title", "", "Dataset title (default derived from the submission id)")
	f.StringVar(&sub.Dataset.Description, "dataset-description", "", "Dataset description")
	f.StringVar(&stopAfter, "stop-after", "", "Stop after this step: experiment, run or dataset")
	f.StringVar(&releaseDate, "release-date", "", "Expected release date, YYYY-MM-DD (default today)")
	f.BoolVar(&dryRun, "dry-run", false, "Register against an in-memory archive seeded from the inputs")
	f.BoolVar(&skipEligibility, "skip-eligibility", false, "Do not consult the telemetry report")
	_ = cmd.MarkFlagRequired("submission-id")
	_ = cmd.MarkFlagRequired("study-id")
	return cmd
}

// dryRunArchive seeds an in-memory archive with what a real submission
// would already hold: the samples, their uploaded files and the policy.
func dryRunArchive(sub pipeline.Submission, inputs []pipeline.Input) *archive.MemoryArchive {
	mem := archive.NewMemoryArchive()
	for _, in := range inputs {
		mem.AddSample(sub.ID, in.Sample.Alias)
		mem.AddInboxFile(archive.File{
			RelativePath:        in.Sample.Alias + "." + in.Sample.FileType(),
			EncryptedChecksum:   "dry-run",
			UnencryptedChecksum: in.Sample.MD5,
			FileSize:            1,
		})
	}
	if sub.Dataset.PolicyTitle != "" {
		mem.AddPolicy(sub.Dataset.PolicyTitle)
	}
	return mem
}
