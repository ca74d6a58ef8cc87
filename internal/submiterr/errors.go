// Package submiterr defines the error taxonomy shared by the submission
// packages. Every failure a caller can act on is reachable through errors.Is
// against one of the sentinels below, and ClassOf groups them into the four
// remediation classes: bad input, eligibility, remote registration and schema.
package submiterr

import (
	"errors"
	"fmt"
)

// Input validation.
var (
	ErrMissingRequiredField     = errors.New("missing required field")
	ErrMalformedReadStructure   = errors.New("malformed read structure")
	ErrUnknownLibraryDescriptor = errors.New("unknown library descriptor")
	ErrMissingOrderIdentifier   = errors.New("neither product order nor work request id is set")
	ErrUnknownInstrumentModel   = errors.New("unknown instrument model")
	ErrUnsupportedRunFileType   = errors.New("unsupported run file type")
	ErrMalformedAnnotations     = errors.New("malformed submission metadata")
	ErrDuplicateSample          = errors.New("sample alias repeated in batch")
)

// Eligibility.
var (
	ErrSampleNotRegistered  = errors.New("sample not registered")
	ErrStudyNotRegistered   = errors.New("study not registered")
	ErrAmbiguousSampleMatch = errors.New("more than one sample matches alias")
)

// Remote registration.
var (
	ErrRemoteRegistration      = errors.New("remote registration failed")
	ErrPolicyNotFound          = errors.New("policy not found")
	ErrAmbiguousPolicy         = errors.New("more than one policy matches title")
	ErrNoFilesForSample        = errors.New("no inbox files for sample")
	ErrSampleNotFoundInArchive = errors.New("sample not found in archive")
)

// ErrSchemaValidation marks a document that does not satisfy the archive schema.
var ErrSchemaValidation = errors.New("schema validation failed")

// Class groups errors by how a caller should remediate them.
type Class int

const (
	ClassUnknown Class = iota
	ClassInput
	ClassEligibility
	ClassRemote
	ClassSchema
)

func (c Class) String() string {
	switch c {
	case ClassInput:
		return "input"
	case ClassEligibility:
		return "eligibility"
	case ClassRemote:
		return "remote"
	case ClassSchema:
		return "schema"
	default:
		return "unknown"
	}
}

var classes = []struct {
	class    Class
	sentinel []error
}{
	{ClassInput, []error{ErrMissingRequiredField, ErrMalformedReadStructure, ErrUnknownLibraryDescriptor, ErrMissingOrderIdentifier, ErrUnknownInstrumentModel, ErrUnsupportedRunFileType, ErrMalformedAnnotations, ErrDuplicateSample}},
	{ClassEligibility, []error{ErrSampleNotRegistered, ErrStudyNotRegistered, ErrAmbiguousSampleMatch}},
	{ClassRemote, []error{ErrRemoteRegistration, ErrPolicyNotFound, ErrAmbiguousPolicy, ErrNoFilesForSample, ErrSampleNotFoundInArchive}},
	{ClassSchema, []error{ErrSchemaValidation}},
}

// ClassOf reports the remediation class of err.
func ClassOf(err error) Class {
	if err == nil {
		return ClassUnknown
	}
	for _, c := range classes {
		for _, s := range c.sentinel {
			if errors.Is(err, s) {
				return c.class
			}
		}
	}
	return ClassUnknown
}

// Retryable reports whether re-running the whole idempotent pipeline may
// succeed. Only remote failures qualify; everything else needs a fix upstream.
func Retryable(err error) bool {
	return ClassOf(err) == ClassRemote
}

// MissingFieldError names a required field absent from an input entity.
type MissingFieldError struct {
	Entity string
	Field  string
}

func (e MissingFieldError) Error() string {
	if e.Entity == "" {
		return fmt.Sprintf("missing required field %q", e.Field)
	}
	return fmt.Sprintf("%s: missing required field %q", e.Entity, e.Field)
}

// Is matches ErrMissingRequiredField.
func (e MissingFieldError) Is(target error) bool { return target == ErrMissingRequiredField }

// RemoteError carries the archive's response for a failed call.
type RemoteError struct {
	Step   string
	Status int
	Body   string
	Err    error
}

func (e *RemoteError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("%s: archive returned status %d: %s", e.Step, e.Status, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	default:
		return fmt.Sprintf("%s: remote registration failed", e.Step)
	}
}

// Is matches ErrRemoteRegistration.
func (e *RemoteError) Is(target error) bool { return target == ErrRemoteRegistration }

func (e *RemoteError) Unwrap() error { return e.Err }

// SchemaError reports the document path that violated a schema.
type SchemaError struct {
	Schema string
	Path   string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema %s: %s: %s", e.Schema, e.Path, e.Reason)
}

// Is matches ErrSchemaValidation.
func (e *SchemaError) Is(target error) bool { return target == ErrSchemaValidation }
