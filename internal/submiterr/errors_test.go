package submiterr

import (
	"errors"
	"fmt"
	"testing"
)

func TestClassOf(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want Class
	}{
		{"nil", nil, ClassUnknown},
		{"plain", errors.New("boom"), ClassUnknown},
		{"missing field", MissingFieldError{Entity: "read group", Field: "library_name"}, ClassInput},
		{"wrapped read structure", fmt.Errorf("parse: %w", ErrMalformedReadStructure), ClassInput},
		{"instrument", ErrUnknownInstrumentModel, ClassInput},
		{"annotations", fmt.Errorf("read group: %w: bad", ErrMalformedAnnotations), ClassInput},
		{"duplicate sample", ErrDuplicateSample, ClassInput},
		{"ambiguous sample", ErrAmbiguousSampleMatch, ClassEligibility},
		{"study", fmt.Errorf("phs000001: %w", ErrStudyNotRegistered), ClassEligibility},
		{"remote", &RemoteError{Step: "experiment", Status: 500, Body: "oops"}, ClassRemote},
		{"policy", ErrAmbiguousPolicy, ClassRemote},
		{"schema", &SchemaError{Schema: "run", Path: "RUN_SET/RUN", Reason: "missing"}, ClassSchema},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassOf(tc.err); got != tc.want {
				t.Fatalf("ClassOf(%v) = %s, want %s", tc.err, got, tc.want)
			}
		})
	}
}

func TestRetryableOnlyForRemote(t *testing.T) {
	if !Retryable(&RemoteError{Step: "runs", Err: errors.New("connection reset")}) {
		t.Fatalf("expected remote error to be retryable")
	}
	if Retryable(MissingFieldError{Field: "model"}) {
		t.Fatalf("input errors must not be retryable")
	}
	if Retryable(ErrSampleNotRegistered) {
		t.Fatalf("eligibility errors must not be retryable")
	}
}

func TestRemoteErrorMessageAndUnwrap(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	err := &RemoteError{Step: "dataset", Err: cause}
	if !errors.Is(err, cause) {
		t.Fatalf("expected unwrap to expose cause")
	}
	if got := err.Error(); got != "dataset: dial tcp: refused" {
		t.Fatalf("unexpected message %q", got)
	}
	withStatus := &RemoteError{Step: "finalize", Status: 409, Body: "already finalised"}
	if got := withStatus.Error(); got != "finalize: archive returned status 409: already finalised" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestMissingFieldErrorMessage(t *testing.T) {
	if got := (MissingFieldError{Field: "records"}).Error(); got != `missing required field "records"` {
		t.Fatalf("unexpected message %q", got)
	}
}
