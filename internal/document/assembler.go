package document

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"seqsubmit/internal/identifier"
	"seqsubmit/internal/library"
)

// Sink persists a finished document under a file name.
type Sink interface {
	Write(ctx context.Context, filename string, payload []byte) error
}

// Document is one validated document ready for emission.
type Document struct {
	Filename string
	Schema   string
	Root     *Node
}

// Bundle holds the three documents produced for one sample.
type Bundle struct {
	Experiment Document
	Run        Document
	Submission Document
}

// Documents returns the bundle in emission order.
func (b Bundle) Documents() []Document {
	return []Document{b.Experiment, b.Run, b.Submission}
}

// Emit renders every document and writes it to sink.
func (b Bundle) Emit(ctx context.Context, sink Sink) error {
	for _, doc := range b.Documents() {
		payload, err := Render(doc.Root)
		if err != nil {
			return err
		}
		if err := sink.Write(ctx, doc.Filename, payload); err != nil {
			return fmt.Errorf("write %s: %w", doc.Filename, err)
		}
	}
	return nil
}

// Assembler builds and validates document bundles.
type Assembler struct {
	center      Center
	schemas     Schemas
	validator   SchemaValidator
	instruments *library.Instruments
	now         func() time.Time
	logger      *zap.Logger
}

// AssemblerOptions configures NewAssembler. Zero values select defaults.
type AssemblerOptions struct {
	Center      Center
	Schemas     Schemas
	Validator   SchemaValidator
	Instruments *library.Instruments
	Clock       func() time.Time
	Logger      *zap.Logger
}

// NewAssembler constructs an assembler. Without a validator the built-in
// RuleValidator is used.
func NewAssembler(opts AssemblerOptions) *Assembler {
	a := &Assembler{
		center:      opts.Center,
		schemas:     opts.Schemas,
		validator:   opts.Validator,
		instruments: opts.Instruments,
		now:         opts.Clock,
		logger:      opts.Logger,
	}
	if a.center == (Center{}) {
		a.center = DefaultCenter()
	}
	if a.schemas == (Schemas{}) {
		a.schemas = DefaultSchemas()
	}
	if a.instruments == nil {
		a.instruments = library.DefaultInstruments()
	}
	if a.validator == nil {
		a.validator = NewRuleValidator(DefaultRules(a.schemas, a.instruments))
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	return a
}

// Assemble builds the experiment, run and submission documents for in and
// validates each one.
func (a *Assembler) Assemble(ctx context.Context, in Input) (Bundle, error) {
	experiment, err := a.experiment(in)
	if err != nil {
		return Bundle{}, fmt.Errorf("assemble experiment %s: %w", in.ExperimentID, err)
	}
	run, err := a.run(in)
	if err != nil {
		return Bundle{}, fmt.Errorf("assemble run %s: %w", in.RunID, err)
	}
	bundle := Bundle{
		Experiment: Document{Filename: identifier.ExperimentFile(in.ExperimentID), Schema: a.schemas.Experiment, Root: experiment},
		Run:        Document{Filename: identifier.RunFile(in.RunID), Schema: a.schemas.Run, Root: run},
		Submission: Document{Filename: identifier.SubmissionFile, Schema: a.schemas.Submission, Root: a.submission(in, a.now())},
	}
	for _, doc := range bundle.Documents() {
		if err := a.validator.Validate(ctx, doc.Root, doc.Schema); err != nil {
			return Bundle{}, fmt.Errorf("validate %s: %w", doc.Filename, err)
		}
	}
	a.logger.Debug("documents assembled",
		zap.String("sample", in.Sample.Alias),
		zap.String("experiment", in.ExperimentID),
		zap.String("run", in.RunID))
	return bundle, nil
}
