package reconcile

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seqsubmit/internal/archive"
	"seqsubmit/internal/submiterr"
)

const (
	submissionID = "SUB-1"
	policyTitle  = "Broad data access policy"
)

func fixedClock() time.Time {
	return time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
}

type fixture struct {
	archive *archive.MemoryArchive
	engine  *Engine
	samples map[string]archive.ID
	policy  archive.ID
}

func newFixture(t *testing.T, aliases ...string) *fixture {
	t.Helper()
	mem := archive.NewMemoryArchive()
	f := &fixture{
		archive: mem,
		engine:  NewEngine(mem, mem, Options{Clock: fixedClock}),
		samples: make(map[string]archive.ID),
	}
	for _, alias := range aliases {
		f.samples[alias] = mem.AddSample(submissionID, alias)
		mem.AddInboxFile(archive.File{RelativePath: "upload/" + alias + ".cram", FileSize: 10})
		mem.AddInboxFile(archive.File{RelativePath: "upload/" + alias + ".crai", FileSize: 1})
	}
	f.policy = mem.AddPolicy(policyTitle)
	return f
}

func sampleRequest(alias string) SampleRequest {
	return SampleRequest{
		Alias: alias,
		Experiment: archive.ExperimentRequest{
			DesignDescription: "ILLUMINA WXS sequencing of DNA paired-end library via Hybrid Selection containing sample " + alias,
			LibraryName:       "Solexa-" + alias,
			LibraryLayout:     "PAIRED",
			LibraryStrategy:   "WXS",
			LibrarySource:     "GENOMIC",
			LibrarySelection:  "Hybrid Selection",
		},
		RunFileType: "cram",
	}
}

func request(aliases ...string) Request {
	req := Request{
		SubmissionID: submissionID,
		StudyID:      "EGAS00001000001",
		Dataset:      DatasetSpec{PolicyTitle: policyTitle},
	}
	for _, a := range aliases {
		req.Samples = append(req.Samples, sampleRequest(a))
	}
	return req
}

func TestRegisterFullProtocol(t *testing.T) {
	f := newFixture(t, "NA12878", "NA12891")
	ctx := context.Background()

	out, err := f.engine.Register(ctx, request("NA12878", "NA12891"))
	require.NoError(t, err)

	assert.Equal(t, Finalized, out.State)
	assert.True(t, out.Finalized)
	require.Len(t, out.Samples, 2)
	assert.Equal(t, f.samples["NA12878"], out.Samples[0].SampleID)
	assert.Len(t, out.RunIDs, 2)
	assert.Equal(t, f.policy, out.PolicyID)
	assert.NotEmpty(t, out.DatasetID)
	assert.Equal(t, 5, out.Creates())

	assert.Equal(t, 2, f.archive.Creates(archive.KindExperiments))
	assert.Equal(t, 2, f.archive.Creates(archive.KindRuns))
	assert.Equal(t, 1, f.archive.Creates(archive.KindDatasets))
	assert.Equal(t, []archive.FinalizeRequest{{ExpectedReleaseDate: "2026-03-02"}}, f.archive.Finalizations(submissionID))

	datasets, err := f.archive.ListEntities(ctx, submissionID, archive.KindDatasets)
	require.NoError(t, err)
	require.Len(t, datasets, 1)
	assert.Equal(t, "New dataset for Submission SUB-1", datasets[0].Title)
	assert.Equal(t, out.RunIDs, datasets[0].RunProvisionalIDs)
}

func TestRegisterIsIdempotent(t *testing.T) {
	f := newFixture(t, "NA12878")
	ctx := context.Background()
	req := request("NA12878")

	first, err := f.engine.Register(ctx, req)
	require.NoError(t, err)
	createsAfterFirst := f.archive.TotalCreates()

	second, err := f.engine.Register(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, createsAfterFirst, f.archive.TotalCreates())
	assert.Zero(t, second.Creates())
	assert.Equal(t, first.RegistrationState, second.RegistrationState)
	for _, a := range second.Actions {
		assert.False(t, a.Created, "step %s", a.Step)
	}
}

func TestRegisterResumesAfterPartialFailure(t *testing.T) {
	f := newFixture(t, "NA12878")
	ctx := context.Background()
	req := request("NA12878")

	f.archive.FailOn("create", archive.KindDatasets, &submiterr.RemoteError{Step: "create datasets", Status: 500, Body: "boom"})
	partial, err := f.engine.Register(ctx, req)
	require.Error(t, err)
	assert.True(t, submiterr.Retryable(err))
	var remote *submiterr.RemoteError
	require.True(t, errors.As(err, &remote))
	assert.Equal(t, 500, remote.Status)
	assert.Equal(t, DatasetPending, partial.State)
	assert.Len(t, partial.RunIDs, 1)
	assert.Empty(t, f.archive.Finalizations(submissionID))

	resumed, err := f.engine.Register(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, Finalized, resumed.State)
	assert.Equal(t, partial.Samples, resumed.Samples)
	assert.Equal(t, 1, f.archive.Creates(archive.KindExperiments))
	assert.Equal(t, 1, f.archive.Creates(archive.KindRuns))
	assert.Equal(t, 2, f.archive.Creates(archive.KindDatasets))
}

func TestRegisterErrors(t *testing.T) {
	tests := []struct {
		name  string
		setup func(*fixture, *Request)
		want  error
		state State
	}{
		{
			name: "sample missing from archive",
			setup: func(_ *fixture, r *Request) {
				r.Samples = append(r.Samples, sampleRequest("GHOST"))
			},
			want:  submiterr.ErrSampleNotFoundInArchive,
			state: ExperimentReady,
		},
		{
			name: "no inbox files",
			setup: func(f *fixture, r *Request) {
				f.archive.AddSample(submissionID, "NOFILES")
				r.Samples = append(r.Samples, sampleRequest("NOFILES"))
			},
			want:  submiterr.ErrNoFilesForSample,
			state: RunsPending,
		},
		{
			name: "policy not found",
			setup: func(_ *fixture, r *Request) {
				r.Dataset.PolicyTitle = "missing"
			},
			want:  submiterr.ErrPolicyNotFound,
			state: DatasetPending,
		},
		{
			name: "ambiguous policy",
			setup: func(f *fixture, _ *Request) {
				f.archive.AddPolicy(policyTitle)
			},
			want:  submiterr.ErrAmbiguousPolicy,
			state: DatasetPending,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "NA12878")
			req := request("NA12878")
			tt.setup(f, &req)

			out, err := f.engine.Register(context.Background(), req)
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, submiterr.ClassRemote, submiterr.ClassOf(err))
			assert.Equal(t, tt.state, out.State)
			assert.Empty(t, f.archive.Finalizations(submissionID))
		})
	}
}

func TestRegisterRejectsIncompleteRequest(t *testing.T) {
	f := newFixture(t, "NA12878")
	req := request("NA12878")
	req.Dataset.PolicyTitle = ""

	_, err := f.engine.Register(context.Background(), req)
	var mf submiterr.MissingFieldError
	require.True(t, errors.As(err, &mf))
	assert.Equal(t, "policy_title", mf.Field)
	assert.Zero(t, f.archive.TotalCreates())

	req.StopAfter = StepRun
	_, err = f.engine.Register(context.Background(), req)
	assert.NoError(t, err)
}

func TestRegisterStopAfter(t *testing.T) {
	f := newFixture(t, "NA12878")
	ctx := context.Background()

	req := request("NA12878")
	req.StopAfter = StepExperiment
	out, err := f.engine.Register(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, ExperimentReady, out.State)
	assert.Empty(t, out.RunIDs)
	assert.Zero(t, f.archive.Creates(archive.KindRuns))

	req.StopAfter = StepRun
	out, err = f.engine.Register(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, RunsReady, out.State)
	assert.Len(t, out.RunIDs, 1)
	assert.Equal(t, 1, f.archive.Creates(archive.KindExperiments))
	assert.Zero(t, f.archive.Creates(archive.KindDatasets))
	assert.Empty(t, f.archive.Finalizations(submissionID))
}

func TestRegisterExplicitReleaseDate(t *testing.T) {
	f := newFixture(t, "NA12878")
	req := request("NA12878")
	req.ExpectedRelease = time.Date(2027, 1, 15, 0, 0, 0, 0, time.UTC)

	_, err := f.engine.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, []archive.FinalizeRequest{{ExpectedReleaseDate: "2027-01-15"}}, f.archive.Finalizations(submissionID))
}

func TestInspectDoesNotCreate(t *testing.T) {
	f := newFixture(t, "NA12878")
	ctx := context.Background()
	req := request("NA12878")

	st, err := f.engine.Inspect(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, NotStarted, st.State)
	assert.Equal(t, f.samples["NA12878"], st.Samples[0].SampleID)

	stop := req
	stop.StopAfter = StepRun
	_, err = f.engine.Register(ctx, stop)
	require.NoError(t, err)
	creates := f.archive.TotalCreates()

	st, err = f.engine.Inspect(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, RunsReady, st.State)
	assert.Len(t, st.RunIDs, 1)
	assert.Empty(t, st.DatasetID)

	out, err := f.engine.Register(ctx, req)
	require.NoError(t, err)
	st, err = f.engine.Inspect(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, DatasetReady, st.State)
	assert.Equal(t, out.DatasetID, st.DatasetID)
	assert.Equal(t, creates+1, f.archive.TotalCreates())
}

type countingRecorder struct {
	observed map[string]int
	counts   map[string]int
}

func (c *countingRecorder) Observe(_ context.Context, op string, _ bool, _ time.Duration) {
	c.observed[op]++
}

func (c *countingRecorder) Count(_ context.Context, op, result string) {
	c.counts[op+"/"+result]++
}

func TestRegisterRecordsSteps(t *testing.T) {
	mem := archive.NewMemoryArchive()
	mem.AddSample(submissionID, "NA12878")
	mem.AddInboxFile(archive.File{RelativePath: "NA12878.cram"})
	mem.AddPolicy(policyTitle)
	rec := &countingRecorder{observed: map[string]int{}, counts: map[string]int{}}
	engine := NewEngine(mem, mem, Options{Recorder: rec, Clock: fixedClock})

	for i := 0; i < 2; i++ {
		_, err := engine.Register(context.Background(), request("NA12878"))
		require.NoError(t, err)
	}
	assert.Equal(t, 2, rec.observed["finalize"])
	assert.Equal(t, 1, rec.counts["experiment/created"])
	assert.Equal(t, 1, rec.counts["experiment/reused"])
	assert.Equal(t, 1, rec.counts["run/reused"])
	assert.Equal(t, 1, rec.counts["dataset/reused"])
}
