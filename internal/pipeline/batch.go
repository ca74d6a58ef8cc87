package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"seqsubmit/internal/ledger"
	"seqsubmit/internal/reconcile"
	"seqsubmit/internal/submiterr"
)

// Batch stages.
const (
	StagePrepare  = "prepare"
	StageEmit     = "emit"
	StageRegister = "register"
)

func newBatchID() string { return uuid.NewString() }

// SampleResult is what one sample reached within a batch.
type SampleResult struct {
	SampleID string
	Alias    string
	Prepared Prepared
	Outcome  reconcile.Outcome
	Failure  *Failure
}

// BatchReport summarises a RunBatch call.
type BatchReport struct {
	ID         string
	StartedAt  time.Time
	FinishedAt time.Time
	Samples    []SampleResult
	// Submission is the outcome of the dataset and finalize pass, when one ran.
	Submission *reconcile.Outcome
}

// Succeeded counts samples without a failure.
func (r BatchReport) Succeeded() int {
	n := 0
	for _, s := range r.Samples {
		if s.Failure == nil {
			n++
		}
	}
	return n
}

// Failures maps sample id to error text.
func (r BatchReport) Failures() map[string]string {
	out := make(map[string]string)
	for _, s := range r.Samples {
		if s.Failure != nil {
			out[s.SampleID] = s.Failure.Error()
		}
	}
	return out
}

// RunBatch prepares and emits every input concurrently, bounded by the
// configured concurrency. With a non-nil sub each sample's experiment and run
// are registered as part of its own pipeline; afterwards the samples that
// succeeded are registered together through the dataset and finalize steps
// unless sub stops earlier. Per-sample failures are collected in the report.
// An alias repeated within the batch fails every input after its first one at
// the prepare stage, since registering both would race on the same records.
// The returned error covers only the submission-wide pass and the ledger.
func (p *Pipeline) RunBatch(ctx context.Context, sub *Submission, inputs []Input) (BatchReport, error) {
	report := BatchReport{ID: p.newID(), StartedAt: p.now(), Samples: make([]SampleResult, len(inputs))}
	log := p.logger.With(zap.String("batch", report.ID))
	log.Info("batch started", zap.Int("samples", len(inputs)))

	perSample, submissionWide := splitStages(sub)

	first := make(map[string]string, len(inputs))
	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for i, in := range inputs {
		if alias := in.Sample.Alias; alias != "" {
			if prior, dup := first[alias]; dup {
				err := fmt.Errorf("sample %s: %w: %q already used by sample %s",
					in.Sample.SampleID, submiterr.ErrDuplicateSample, alias, prior)
				report.Samples[i] = SampleResult{SampleID: in.Sample.SampleID, Alias: alias, Failure: fail(StagePrepare, err)}
				log.Warn("sample failed", zap.String("sample", in.Sample.SampleID),
					zap.String("stage", StagePrepare), zap.Error(err))
				continue
			}
			first[alias] = in.Sample.SampleID
		}
		g.Go(func() error {
			report.Samples[i] = p.runSample(ctx, perSample, report.ID, in)
			return nil
		})
	}
	_ = g.Wait()

	var batchErr error
	if submissionWide {
		var ready []Prepared
		for _, s := range report.Samples {
			if s.Failure == nil {
				ready = append(ready, s.Prepared)
			}
		}
		if len(ready) > 0 {
			out, err := p.Register(ctx, *sub, report.ID, ready...)
			report.Submission = &out
			if err != nil {
				batchErr = fmt.Errorf("batch %s: submission %s: %w", report.ID, sub.ID, err)
			}
		}
	}
	report.FinishedAt = p.now()

	if p.ledger != nil {
		failures := report.Failures()
		if batchErr != nil {
			failures[sub.ID] = batchErr.Error()
		}
		err := p.ledger.RecordBatch(ctx, ledger.Batch{
			ID:         report.ID,
			StartedAt:  report.StartedAt,
			FinishedAt: report.FinishedAt,
			Samples:    len(inputs),
			Succeeded:  report.Succeeded(),
			Failures:   failures,
		})
		if err != nil && batchErr == nil {
			batchErr = fmt.Errorf("batch %s: %w", report.ID, err)
		}
	}

	log.Info("batch finished",
		zap.Int("succeeded", report.Succeeded()),
		zap.Int("failed", len(inputs)-report.Succeeded()),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))
	return report, batchErr
}

// splitStages derives the per-sample submission and whether a
// submission-wide pass follows it.
func splitStages(sub *Submission) (*Submission, bool) {
	if sub == nil {
		return nil, false
	}
	switch sub.StopAfter {
	case reconcile.StepExperiment, reconcile.StepSample, reconcile.StepRun:
		return sub, false
	}
	perSample := *sub
	perSample.StopAfter = reconcile.StepRun
	return &perSample, true
}

func (p *Pipeline) runSample(ctx context.Context, sub *Submission, batchID string, in Input) SampleResult {
	res := SampleResult{SampleID: in.Sample.SampleID, Alias: in.Sample.Alias}
	log := p.logger.With(zap.String("batch", batchID), zap.String("sample", res.SampleID))

	prep, err := p.Prepare(ctx, in)
	res.Prepared = prep
	if err != nil {
		res.Failure = fail(StagePrepare, err)
		log.Warn("sample failed", zap.String("stage", StagePrepare),
			zap.Stringer("class", res.Failure.Class), zap.Error(err))
		return res
	}
	if err := p.Emit(ctx, prep); err != nil {
		res.Failure = fail(StageEmit, err)
		log.Warn("sample failed", zap.String("stage", StageEmit), zap.Error(err))
		return res
	}
	if sub == nil {
		return res
	}
	out, err := p.Register(ctx, *sub, batchID, prep)
	res.Outcome = out
	if err != nil {
		res.Failure = fail(StageRegister, err)
		log.Warn("sample failed", zap.String("stage", StageRegister),
			zap.Stringer("class", res.Failure.Class), zap.Error(err))
		return res
	}
	log.Debug("sample done", zap.Stringer("state", out.State), zap.Int("creates", out.Creates()))
	return res
}
