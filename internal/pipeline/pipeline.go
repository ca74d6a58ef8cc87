// Package pipeline drives samples from exported metadata through document
// assembly, registration and the ledger.
package pipeline

import (
	"context"
	"fmt"
	"path"
	"time"

	"go.uber.org/zap"

	"seqsubmit/internal/document"
	"seqsubmit/internal/eligibility"
	"seqsubmit/internal/identifier"
	"seqsubmit/internal/ledger"
	"seqsubmit/internal/library"
	"seqsubmit/internal/readgroup"
	"seqsubmit/internal/reconcile"
	"seqsubmit/internal/sample"
	"seqsubmit/internal/submiterr"
)

// Checker gates a sample on its telemetry registration.
type Checker interface {
	Check(ctx context.Context, rec sample.Record) (eligibility.Result, error)
}

// Registrar brings a submission to the requested remote state.
type Registrar interface {
	Register(ctx context.Context, req reconcile.Request) (reconcile.Outcome, error)
}

var (
	_ Checker   = (*eligibility.Validator)(nil)
	_ Registrar = (*reconcile.Engine)(nil)
)

// Input is one sample row and its read-group rows.
type Input struct {
	Sample     sample.Record
	ReadGroups []readgroup.RawReadRecord
}

// Prepared is a sample whose documents have been built and validated.
type Prepared struct {
	Document    document.Input
	Eligibility eligibility.Result
	Bundle      document.Bundle
}

// Submission names the remote submission a batch registers into.
type Submission struct {
	ID               string
	StudyAccessionID string
	Dataset          reconcile.DatasetSpec
	ExpectedRelease  time.Time
	StopAfter        reconcile.Step
}

// Options wires a Pipeline. Checker, Registrar, Sink and Ledger are optional;
// the matching stage is skipped when one is nil.
type Options struct {
	Checker     Checker
	Classifier  *library.Classifier
	Assembler   *document.Assembler
	Instruments *library.Instruments
	Registrar   Registrar
	Sink        document.Sink
	Ledger      ledger.Store
	Technology  string
	Concurrency int
	Logger      *zap.Logger
	Clock       func() time.Time
	NewID       func() string
}

// Pipeline runs the per-sample stages.
type Pipeline struct {
	checker     Checker
	classifier  *library.Classifier
	assembler   *document.Assembler
	instruments *library.Instruments
	registrar   Registrar
	sink        document.Sink
	ledger      ledger.Store
	technology  string
	concurrency int
	logger      *zap.Logger
	now         func() time.Time
	newID       func() string
}

// New fills unset options with defaults.
func New(opts Options) *Pipeline {
	p := &Pipeline{
		checker:     opts.Checker,
		classifier:  opts.Classifier,
		assembler:   opts.Assembler,
		instruments: opts.Instruments,
		registrar:   opts.Registrar,
		sink:        opts.Sink,
		ledger:      opts.Ledger,
		technology:  opts.Technology,
		concurrency: opts.Concurrency,
		logger:      opts.Logger,
		now:         opts.Clock,
		newID:       opts.NewID,
	}
	if p.instruments == nil {
		p.instruments = library.DefaultInstruments()
	}
	if p.classifier == nil {
		p.classifier = library.NewClassifier(library.DefaultTable())
	}
	if p.logger == nil {
		p.logger = zap.NewNop()
	}
	if p.assembler == nil {
		p.assembler = document.NewAssembler(document.AssemblerOptions{Instruments: p.instruments, Logger: p.logger})
	}
	if p.technology == "" {
		p.technology = document.DefaultTechnology
	}
	if p.concurrency < 1 {
		p.concurrency = 1
	}
	if p.now == nil {
		p.now = time.Now
	}
	if p.newID == nil {
		p.newID = newBatchID
	}
	return p
}

// Prepare validates the sample, checks eligibility, aggregates its read
// groups, derives identifiers and assembles the document bundle.
func (p *Pipeline) Prepare(ctx context.Context, in Input) (Prepared, error) {
	rec := in.Sample
	if err := rec.Validate(); err != nil {
		return Prepared{}, err
	}
	var out Prepared
	if p.checker != nil {
		res, err := p.checker.Check(ctx, rec)
		if err != nil {
			return Prepared{Eligibility: res}, err
		}
		out.Eligibility = res
		rec.Registration = res.Registration()
	}

	agg, err := readgroup.New(in.ReadGroups)
	if err != nil {
		return out, fmt.Errorf("sample %s: %w", rec.SampleID, err)
	}
	desc, err := p.classifier.Classify(agg.LibraryType, agg.AnalysisType)
	if err != nil {
		return out, fmt.Errorf("sample %s: %w", rec.SampleID, err)
	}
	experimentID, err := identifier.Experiment(rec, agg)
	if err != nil {
		return out, fmt.Errorf("sample %s: %w", rec.SampleID, err)
	}
	out.Document = document.Input{
		Sample:       rec,
		Aggregate:    agg,
		Descriptor:   desc,
		ExperimentID: experimentID,
		RunID:        identifier.Run(rec, agg),
	}
	out.Bundle, err = p.assembler.Assemble(ctx, out.Document)
	if err != nil {
		return out, fmt.Errorf("sample %s: %w", rec.SampleID, err)
	}
	return out, nil
}

// Emit writes the prepared bundle to the sink below the sample id; every
// bundle carries its own submission.xml.
func (p *Pipeline) Emit(ctx context.Context, prep Prepared) error {
	if p.sink == nil {
		return nil
	}
	return prep.Bundle.Emit(ctx, dirSink{sink: p.sink, dir: prep.Document.Sample.SampleID})
}

type dirSink struct {
	sink document.Sink
	dir  string
}

func (d dirSink) Write(ctx context.Context, filename string, payload []byte) error {
	return d.sink.Write(ctx, path.Join(d.dir, filename), payload)
}

// SampleRequest converts a prepared sample into its registration payload.
func (p *Pipeline) SampleRequest(prep Prepared, studyAccessionID string) (reconcile.SampleRequest, error) {
	payload, err := document.ExperimentPayload(prep.Document, studyAccessionID, p.technology, p.instruments)
	if err != nil {
		return reconcile.SampleRequest{}, err
	}
	fileType, err := document.RunFileType(prep.Document.Sample)
	if err != nil {
		return reconcile.SampleRequest{}, err
	}
	return reconcile.SampleRequest{
		Alias:       prep.Document.Sample.Alias,
		Experiment:  payload,
		RunFileType: fileType,
	}, nil
}

// Register registers prepared samples under sub and records each one in the
// ledger. The ledger is written only after the archive confirmed the state.
func (p *Pipeline) Register(ctx context.Context, sub Submission, batchID string, prepared ...Prepared) (reconcile.Outcome, error) {
	if p.registrar == nil {
		return reconcile.Outcome{}, fmt.Errorf("register %s: no archive client configured", sub.ID)
	}
	req := reconcile.Request{
		SubmissionID:    sub.ID,
		StudyID:         sub.StudyAccessionID,
		Dataset:         sub.Dataset,
		ExpectedRelease: sub.ExpectedRelease,
		StopAfter:       sub.StopAfter,
	}
	byAlias := make(map[string]sample.Record, len(prepared))
	for _, prep := range prepared {
		sr, err := p.SampleRequest(prep, sub.StudyAccessionID)
		if err != nil {
			return reconcile.Outcome{}, fmt.Errorf("sample %s: %w", prep.Document.Sample.SampleID, err)
		}
		req.Samples = append(req.Samples, sr)
		byAlias[sr.Alias] = prep.Document.Sample
	}

	out, err := p.registrar.Register(ctx, req)
	if err != nil {
		return out, err
	}
	if err := p.record(ctx, out, byAlias, batchID); err != nil {
		return out, err
	}
	return out, nil
}

func (p *Pipeline) record(ctx context.Context, out reconcile.Outcome, byAlias map[string]sample.Record, batchID string) error {
	if p.ledger == nil {
		return nil
	}
	for _, ss := range out.Samples {
		rec, ok := byAlias[ss.Alias]
		if !ok {
			continue
		}
		entry := ledger.Entry{
			SampleID:     rec.SampleID,
			SampleAlias:  ss.Alias,
			SubmissionID: out.SubmissionID,
			ExperimentID: string(ss.ExperimentID),
			DatasetID:    string(out.DatasetID),
			State:        out.State.String(),
			Finalized:    out.Finalized,
			BatchID:      batchID,
		}
		if ss.RunID != "" {
			entry.RunIDs = []string{string(ss.RunID)}
		}
		if err := p.ledger.Record(ctx, entry); err != nil {
			return fmt.Errorf("ledger %s: %w", entry.Key(), err)
		}
	}
	return nil
}

// Failure is the stage and class of a sample that did not complete.
type Failure struct {
	Stage string
	Class submiterr.Class
	Err   error
}

func (f Failure) Error() string { return f.Stage + ": " + f.Err.Error() }

func (f Failure) Unwrap() error { return f.Err }

func fail(stage string, err error) *Failure {
	return &Failure{Stage: stage, Class: submiterr.ClassOf(err), Err: err}
}
