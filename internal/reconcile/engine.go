package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"seqsubmit/internal/archive"
	"seqsubmit/internal/document"
	"seqsubmit/internal/inbox"
	"seqsubmit/internal/observability"
	"seqsubmit/internal/submiterr"
)

const releaseDateLayout = "2006-01-02"

// SampleRequest is the per-sample part of a registration.
type SampleRequest struct {
	Alias       string
	Experiment  archive.ExperimentRequest
	RunFileType string
}

// DatasetSpec describes the dataset grouping the submission's runs. Empty
// Title, Description and Types are filled with defaults.
type DatasetSpec struct {
	PolicyTitle string
	Title       string
	Description string
	Types       []string
}

// Request is one logical submission.
type Request struct {
	SubmissionID string
	StudyID      string
	Samples      []SampleRequest
	Dataset      DatasetSpec
	// ExpectedRelease defaults to the engine clock's current day.
	ExpectedRelease time.Time
	// StopAfter ends registration after StepExperiment, StepRun or
	// StepDataset. Empty runs through finalize.
	StopAfter Step
}

func (r Request) validate() error {
	const entity = "registration request"
	switch {
	case r.SubmissionID == "":
		return submiterr.MissingFieldError{Entity: entity, Field: "submission_id"}
	case r.StudyID == "":
		return submiterr.MissingFieldError{Entity: entity, Field: "study_id"}
	case len(r.Samples) == 0:
		return submiterr.MissingFieldError{Entity: entity, Field: "samples"}
	}
	for _, s := range r.Samples {
		if s.Alias == "" {
			return submiterr.MissingFieldError{Entity: entity, Field: "sample alias"}
		}
	}
	return nil
}

func (r Request) validateRegister() error {
	if err := r.validate(); err != nil {
		return err
	}
	if r.reaches(StepDataset) && r.Dataset.PolicyTitle == "" {
		return submiterr.MissingFieldError{Entity: "registration request", Field: "policy_title"}
	}
	return nil
}

var stepOrder = map[Step]int{
	StepExperiment: 1,
	StepSample:     2,
	StepRun:        3,
	StepPolicy:     4,
	StepDataset:    5,
	StepFinalize:   6,
}

// reaches reports whether the request runs step.
func (r Request) reaches(step Step) bool {
	if r.StopAfter == "" {
		return true
	}
	return stepOrder[step] <= stepOrder[r.StopAfter]
}

func (r Request) datasetSpec() DatasetSpec {
	d := r.Dataset
	if d.Title == "" {
		d.Title = "New dataset for Submission " + r.SubmissionID
	}
	if d.Description == "" {
		d.Description = "Please fill out a new description here for submission " + r.SubmissionID
	}
	if len(d.Types) == 0 {
		d.Types = []string{document.DatasetType(r.Samples[0].Experiment.LibraryStrategy)}
	}
	return d
}

// Options configures an Engine. Zero values select no-op collaborators.
type Options struct {
	Recorder observability.Recorder
	Tracer   observability.Tracer
	Logger   *zap.Logger
	Clock    func() time.Time
}

// Engine runs the registration protocol. It holds no per-submission state.
type Engine struct {
	client   archive.Client
	files    archive.FileSource
	recorder observability.Recorder
	tracer   observability.Tracer
	logger   *zap.Logger
	now      func() time.Time
}

// NewEngine constructs an engine over client and files.
func NewEngine(client archive.Client, files archive.FileSource, opts Options) *Engine {
	e := &Engine{
		client:   client,
		files:    files,
		recorder: opts.Recorder,
		tracer:   opts.Tracer,
		logger:   opts.Logger,
		now:      opts.Clock,
	}
	if e.recorder == nil {
		e.recorder = observability.NopRecorder{}
	}
	if e.tracer == nil {
		e.tracer = observability.NopTracer{}
	}
	if e.logger == nil {
		e.logger = zap.NewNop()
	}
	if e.now == nil {
		e.now = time.Now
	}
	return e
}

// Register brings the submission to the requested state, creating only what
// the archive does not already hold. Steps run strictly in order because each
// needs identifiers produced by the one before.
func (e *Engine) Register(ctx context.Context, req Request) (Outcome, error) {
	out := Outcome{RegistrationState: RegistrationState{SubmissionID: req.SubmissionID}}
	if err := req.validateRegister(); err != nil {
		return out, err
	}
	log := e.logger.With(zap.String("submission", req.SubmissionID))

	for _, s := range req.Samples {
		ss := SampleState{Alias: s.Alias}

		out.State = ExperimentPending
		var created bool
		err := e.step(ctx, StepExperiment, func(ctx context.Context) (err error) {
			ss.ExperimentID, created, err = e.ensureExperiment(ctx, req, s)
			return err
		})
		if err != nil {
			return out, fmt.Errorf("%s %s: %w", StepExperiment, s.Alias, err)
		}
		out.record(ctx, e.recorder, Action{Step: StepExperiment, Alias: s.Alias, ID: ss.ExperimentID, Created: created})
		log.Info("experiment ready", zap.String("sample", s.Alias), zap.String("id", ss.ExperimentID.String()), zap.Bool("created", created))
		out.State = ExperimentReady

		if !req.reaches(StepRun) {
			out.Samples = append(out.Samples, ss)
			continue
		}

		err = e.step(ctx, StepSample, func(ctx context.Context) (err error) {
			ss.SampleID, err = e.resolveSample(ctx, req.SubmissionID, s.Alias)
			return err
		})
		if err != nil {
			out.Samples = append(out.Samples, ss)
			return out, fmt.Errorf("%s %s: %w", StepSample, s.Alias, err)
		}

		out.State = RunsPending
		err = e.step(ctx, StepRun, func(ctx context.Context) (err error) {
			ss.RunID, created, err = e.ensureRun(ctx, req.SubmissionID, s, ss)
			return err
		})
		out.Samples = append(out.Samples, ss)
		if err != nil {
			return out, fmt.Errorf("%s %s: %w", StepRun, s.Alias, err)
		}
		out.RunIDs = append(out.RunIDs, ss.RunID)
		out.record(ctx, e.recorder, Action{Step: StepRun, Alias: s.Alias, ID: ss.RunID, Created: created})
		log.Info("run ready", zap.String("sample", s.Alias), zap.String("id", ss.RunID.String()), zap.Bool("created", created))
	}
	if !req.reaches(StepRun) {
		return out, nil
	}
	out.State = RunsReady
	if !req.reaches(StepDataset) {
		return out, nil
	}

	spec := req.datasetSpec()
	out.State = DatasetPending
	err := e.step(ctx, StepPolicy, func(ctx context.Context) (err error) {
		out.PolicyID, err = e.resolvePolicy(ctx, req.SubmissionID, spec.PolicyTitle)
		return err
	})
	if err != nil {
		return out, fmt.Errorf("%s %q: %w", StepPolicy, spec.PolicyTitle, err)
	}

	var created bool
	err = e.step(ctx, StepDataset, func(ctx context.Context) (err error) {
		out.DatasetID, created, err = e.ensureDataset(ctx, req.SubmissionID, spec, out.PolicyID, out.RunIDs)
		return err
	})
	if err != nil {
		return out, fmt.Errorf("%s: %w", StepDataset, err)
	}
	out.record(ctx, e.recorder, Action{Step: StepDataset, ID: out.DatasetID, Created: created})
	log.Info("dataset ready", zap.String("id", out.DatasetID.String()), zap.Bool("created", created))
	out.State = DatasetReady
	if !req.reaches(StepFinalize) {
		return out, nil
	}

	release := req.ExpectedRelease
	if release.IsZero() {
		release = e.now()
	}
	err = e.step(ctx, StepFinalize, func(ctx context.Context) error {
		return e.client.Finalize(ctx, req.SubmissionID, archive.FinalizeRequest{
			ExpectedReleaseDate: release.Format(releaseDateLayout),
		})
	})
	if err != nil {
		return out, fmt.Errorf("%s: %w", StepFinalize, err)
	}
	out.Finalized = true
	out.State = Finalized
	log.Info("submission finalized", zap.String("release", release.Format(releaseDateLayout)))
	return out, nil
}

func (o *Outcome) record(ctx context.Context, rec observability.Recorder, a Action) {
	o.Actions = append(o.Actions, a)
	result := "reused"
	if a.Created {
		result = "created"
	}
	rec.Count(ctx, string(a.Step), result)
}

func (e *Engine) step(ctx context.Context, step Step, fn func(context.Context) error) error {
	ctx, span := e.tracer.Start(ctx, "register."+string(step))
	start := time.Now()
	err := fn(ctx)
	span.End(err)
	e.recorder.Observe(ctx, string(step), err == nil, time.Since(start))
	return err
}

func matchExperiment(list []archive.Entity, study, design string) (archive.ID, bool) {
	for _, x := range list {
		if x.StudyAccessionID == study && x.DesignDescription == design {
			return x.ID(), true
		}
	}
	return "", false
}

func (e *Engine) ensureExperiment(ctx context.Context, req Request, s SampleRequest) (archive.ID, bool, error) {
	payload := s.Experiment
	if payload.StudyAccessionID == "" {
		payload.StudyAccessionID = req.StudyID
	}
	existing, err := e.client.ListEntities(ctx, req.SubmissionID, archive.KindExperiments)
	if err != nil {
		return "", false, err
	}
	if id, ok := matchExperiment(existing, payload.StudyAccessionID, payload.DesignDescription); ok {
		return id, false, nil
	}
	created, err := e.client.CreateEntity(ctx, req.SubmissionID, archive.KindExperiments, payload)
	if err != nil {
		return "", false, err
	}
	id := createdID(created, func(x archive.Entity) bool { return x.DesignDescription == payload.DesignDescription })
	if id == "" {
		return "", false, missingID("create experiments")
	}
	return id, true, nil
}

func (e *Engine) resolveSample(ctx context.Context, submissionID, alias string) (archive.ID, error) {
	samples, err := e.client.ListEntities(ctx, submissionID, archive.KindSamples)
	if err != nil {
		return "", err
	}
	for _, s := range samples {
		if s.Alias == alias {
			return s.ID(), nil
		}
	}
	return "", submiterr.ErrSampleNotFoundInArchive
}

func matchRun(list []archive.Entity, ss SampleState) (archive.ID, bool) {
	for _, r := range list {
		if r.Experiment == nil || r.Sample == nil {
			continue
		}
		if r.Experiment.ProvisionalID != ss.ExperimentID || r.Sample.ProvisionalID != ss.SampleID {
			continue
		}
		if r.Sample.Alias != "" && r.Sample.Alias != ss.Alias {
			continue
		}
		return r.ID(), true
	}
	return "", false
}

func (e *Engine) ensureRun(ctx context.Context, submissionID string, s SampleRequest, ss SampleState) (archive.ID, bool, error) {
	existing, err := e.client.ListEntities(ctx, submissionID, archive.KindRuns)
	if err != nil {
		return "", false, err
	}
	if id, ok := matchRun(existing, ss); ok {
		return id, false, nil
	}
	files, err := e.files.ListInboxFiles(ctx, submissionID)
	if err != nil {
		return "", false, err
	}
	matched := inbox.MatchSample(files, s.Alias)
	if len(matched) == 0 {
		return "", false, submiterr.ErrNoFilesForSample
	}
	created, err := e.client.CreateEntity(ctx, submissionID, archive.KindRuns, archive.RunRequest{
		RunFileType:             s.RunFileType,
		Files:                   inbox.IDs(matched),
		ExperimentProvisionalID: ss.ExperimentID,
		SampleProvisionalID:     ss.SampleID,
	})
	if err != nil {
		return "", false, err
	}
	id := createdID(created, nil)
	if id == "" {
		return "", false, missingID("create runs")
	}
	return id, true, nil
}

func accession(x archive.Entity) archive.ID {
	if x.AccessionID != "" {
		return x.AccessionID
	}
	return x.ID()
}

func (e *Engine) resolvePolicy(ctx context.Context, submissionID, title string) (archive.ID, error) {
	policies, err := e.client.ListEntities(ctx, submissionID, archive.KindPolicies)
	if err != nil {
		return "", err
	}
	var ids []archive.ID
	for _, p := range policies {
		if p.Title == title {
			ids = append(ids, accession(p))
		}
	}
	switch len(ids) {
	case 0:
		return "", submiterr.ErrPolicyNotFound
	case 1:
		return ids[0], nil
	default:
		return "", fmt.Errorf("%w: %d matches", submiterr.ErrAmbiguousPolicy, len(ids))
	}
}

func matchDataset(list []archive.Entity, policyID archive.ID, title string) (archive.ID, bool) {
	for _, d := range list {
		if archive.ID(d.PolicyAccessionID) == policyID && d.Title == title {
			return accession(d), true
		}
	}
	return "", false
}

func (e *Engine) ensureDataset(ctx context.Context, submissionID string, spec DatasetSpec, policyID archive.ID, runIDs []archive.ID) (archive.ID, bool, error) {
	existing, err := e.client.ListEntities(ctx, submissionID, archive.KindDatasets)
	if err != nil {
		return "", false, err
	}
	if id, ok := matchDataset(existing, policyID, spec.Title); ok {
		return id, false, nil
	}
	created, err := e.client.CreateEntity(ctx, submissionID, archive.KindDatasets, archive.DatasetRequest{
		Title:             spec.Title,
		Description:       spec.Description,
		DatasetTypes:      spec.Types,
		PolicyAccessionID: policyID.String(),
		RunProvisionalIDs: runIDs,
	})
	if err != nil {
		return "", false, err
	}
	for _, d := range created {
		if id := accession(d); id != "" {
			return id, true, nil
		}
	}
	return "", false, missingID("create datasets")
}

// createdID picks the id of the created record from a create response,
// preferring entries accepted by match.
func createdID(created []archive.Entity, match func(archive.Entity) bool) archive.ID {
	for _, x := range created {
		if x.ID() != "" && (match == nil || match(x)) {
			return x.ID()
		}
	}
	if len(created) == 1 {
		return created[0].ID()
	}
	return ""
}

func missingID(step string) error {
	return &submiterr.RemoteError{Step: step, Err: errors.New("response carried no identifier")}
}

// Inspect rebuilds the submission's state from the archive without creating
// anything. Finalization is not observable through the list calls, so the
// highest state Inspect reports is DatasetReady.
func (e *Engine) Inspect(ctx context.Context, req Request) (RegistrationState, error) {
	st := RegistrationState{SubmissionID: req.SubmissionID}
	if err := req.validate(); err != nil {
		return st, err
	}
	experiments, err := e.client.ListEntities(ctx, req.SubmissionID, archive.KindExperiments)
	if err != nil {
		return st, fmt.Errorf("inspect experiments: %w", err)
	}
	samples, err := e.client.ListEntities(ctx, req.SubmissionID, archive.KindSamples)
	if err != nil {
		return st, fmt.Errorf("inspect samples: %w", err)
	}
	runs, err := e.client.ListEntities(ctx, req.SubmissionID, archive.KindRuns)
	if err != nil {
		return st, fmt.Errorf("inspect runs: %w", err)
	}

	var withExperiment, withRun int
	for _, s := range req.Samples {
		study := s.Experiment.StudyAccessionID
		if study == "" {
			study = req.StudyID
		}
		ss := SampleState{Alias: s.Alias}
		if id, ok := matchExperiment(experiments, study, s.Experiment.DesignDescription); ok {
			ss.ExperimentID = id
			withExperiment++
		}
		for _, x := range samples {
			if x.Alias == s.Alias {
				ss.SampleID = x.ID()
				break
			}
		}
		if ss.ExperimentID != "" && ss.SampleID != "" {
			if id, ok := matchRun(runs, ss); ok {
				ss.RunID = id
				st.RunIDs = append(st.RunIDs, id)
				withRun++
			}
		}
		st.Samples = append(st.Samples, ss)
	}

	total := len(req.Samples)
	switch {
	case withExperiment == 0:
		st.State = NotStarted
		return st, nil
	case withExperiment < total:
		st.State = ExperimentPending
		return st, nil
	case withRun == 0:
		st.State = ExperimentReady
		return st, nil
	case withRun < total:
		st.State = RunsPending
		return st, nil
	}
	st.State = RunsReady
	if req.Dataset.PolicyTitle == "" {
		return st, nil
	}

	spec := req.datasetSpec()
	policyID, err := e.resolvePolicy(ctx, req.SubmissionID, spec.PolicyTitle)
	if err != nil {
		return st, fmt.Errorf("inspect %s %q: %w", StepPolicy, spec.PolicyTitle, err)
	}
	st.PolicyID = policyID
	datasets, err := e.client.ListEntities(ctx, req.SubmissionID, archive.KindDatasets)
	if err != nil {
		return st, fmt.Errorf("inspect datasets: %w", err)
	}
	if id, ok := matchDataset(datasets, policyID, spec.Title); ok {
		st.DatasetID = id
		st.State = DatasetReady
	}
	return st, nil
}
