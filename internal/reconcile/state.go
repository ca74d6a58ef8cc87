// Package reconcile drives check-then-create registration of experiments,
// runs and datasets against the archive so a submission can be re-run safely.
// The archive is the only source of truth: state is rebuilt from it on every
// call and nothing is remembered between calls.
package reconcile

import "seqsubmit/internal/archive"

// State is the position of a submission in the registration protocol.
type State int

const (
	NotStarted State = iota
	ExperimentPending
	ExperimentReady
	RunsPending
	RunsReady
	DatasetPending
	DatasetReady
	Finalized
)

var stateNames = [...]string{
	NotStarted:        "not_started",
	ExperimentPending: "experiment_pending",
	ExperimentReady:   "experiment_ready",
	RunsPending:       "runs_pending",
	RunsReady:         "runs_ready",
	DatasetPending:    "dataset_pending",
	DatasetReady:      "dataset_ready",
	Finalized:         "finalized",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Step names a protocol step.
type Step string

const (
	StepExperiment Step = "experiment"
	StepSample     Step = "sample"
	StepRun        Step = "run"
	StepPolicy     Step = "policy"
	StepDataset    Step = "dataset"
	StepFinalize   Step = "finalize"
)

// SampleState is the remote state of one sample's experiment and run.
type SampleState struct {
	Alias        string
	SampleID     archive.ID
	ExperimentID archive.ID
	RunID        archive.ID
}

// RegistrationState is the reconstructed state of a submission.
type RegistrationState struct {
	SubmissionID string
	State        State
	Samples      []SampleState
	RunIDs       []archive.ID
	PolicyID     archive.ID
	DatasetID    archive.ID
	Finalized    bool
}

// ExperimentID returns the first sample's experiment id.
func (s RegistrationState) ExperimentID() archive.ID {
	if len(s.Samples) == 0 {
		return ""
	}
	return s.Samples[0].ExperimentID
}

// Action records what a step did.
type Action struct {
	Step    Step
	Alias   string
	ID      archive.ID
	Created bool
}

// Outcome is the result of Register. It is populated up to the failing step
// when Register returns an error.
type Outcome struct {
	RegistrationState
	Actions []Action
}

// Creates returns the number of records the call created.
func (o Outcome) Creates() int {
	n := 0
	for _, a := range o.Actions {
		if a.Created {
			n++
		}
	}
	return n
}
