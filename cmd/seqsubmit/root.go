package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"seqsubmit/internal/archive"
	"seqsubmit/internal/blob"
	"seqsubmit/internal/config"
	"seqsubmit/internal/document"
	"seqsubmit/internal/eligibility"
	"seqsubmit/internal/gdc"
	"seqsubmit/internal/ledger"
	"seqsubmit/internal/logging"
	"seqsubmit/internal/observability"
	"seqsubmit/internal/sink"
	"seqsubmit/internal/storage"
	"seqsubmit/internal/submiterr"
)

// archiveAPI is the archive surface the commands use.
type archiveAPI interface {
	archive.Client
	archive.FileSource
}

// app carries state shared by every command. The override fields let tests
// substitute in-process collaborators for the HTTP clients.
type app struct {
	configPath  string
	verbose     bool
	metricsFile string

	cfg      *config.Config
	logger   *zap.Logger
	recorder observability.Recorder
	expvar   *observability.ExpvarRecorder
	registry *prometheus.Registry

	archiveOverride   archiveAPI
	telemetryOverride eligibility.TelemetryClient
	storeOverride     blob.Store
	ledgerOverride    ledger.Store
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "seqsubmit",
		Short:         "Build and register sequencing metadata submissions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.init()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.finish()
		},
	}
	root.PersistentFlags().StringVarP(&a.configPath, "config", "c", os.Getenv("SEQSUBMIT_CONFIG"), "Path to the YAML config file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&a.metricsFile, "metrics-file", "", "Write collected step metrics to this file on exit")

	root.AddCommand(
		newXMLCmd(a),
		newRegisterCmd(a),
		newEligibilityCmd(a),
		newFilesCmd(a),
		newGDCCmd(a),
		newLedgerCmd(a),
		newConfigCmd(a),
	)
	return root
}

func (a *app) init() error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.verbose {
		cfg.Logging.Level = "debug"
	}
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = logger

	switch cfg.Metrics.Exporter {
	case config.MetricsExpvar:
		a.expvar = observability.NewExpvarRecorder("")
		a.recorder = a.expvar
	case config.MetricsPrometheus:
		a.registry = prometheus.NewRegistry()
		rec, err := observability.NewPrometheusRecorder(a.registry)
		if err != nil {
			return err
		}
		a.recorder = rec
	default:
		a.recorder = observability.NopRecorder{}
	}
	return nil
}

func (a *app) finish() error {
	if a.logger != nil {
		defer func() { _ = a.logger.Sync() }()
	}
	if a.metricsFile == "" {
		return nil
	}
	switch {
	case a.registry != nil:
		return prometheus.WriteToTextfile(a.metricsFile, a.registry)
	case a.expvar != nil:
		data, err := json.MarshalIndent(a.expvar.Snapshot(), "", "  ")
		if err != nil {
			return err
		}
		return os.WriteFile(a.metricsFile, data, 0o644)
	}
	return nil
}

func (a *app) archiveClient() (archiveAPI, error) {
	if a.archiveOverride != nil {
		return a.archiveOverride, nil
	}
	timeout, err := a.cfg.ArchiveTimeout()
	if err != nil {
		return nil, err
	}
	if a.cfg.Archive.Token == "" {
		a.logger.Warn("no archive token configured; set SEQSUBMIT_ARCHIVE_TOKEN")
	}
	return archive.NewHTTPClient(a.cfg.Archive.BaseURL, archive.StaticToken(a.cfg.Archive.Token), timeout, a.logger), nil
}

func (a *app) gdcClient() (*gdc.Client, error) {
	cfg := a.cfg.GDC
	if cfg.Program == "" || cfg.Project == "" {
		return nil, submiterr.MissingFieldError{Entity: "gdc config", Field: "program and project"}
	}
	timeout, err := a.cfg.GDCTimeout()
	if err != nil {
		return nil, err
	}
	if cfg.Token == "" {
		a.logger.Warn("no GDC token configured; set SEQSUBMIT_GDC_TOKEN")
	}
	return gdc.NewClient(cfg.Endpoint, cfg.Program, cfg.Project, archive.StaticToken(cfg.Token), timeout, a.logger), nil
}

func (a *app) validator() (*eligibility.Validator, error) {
	client := a.telemetryOverride
	if client == nil {
		timeout, err := a.cfg.TelemetryTimeout()
		if err != nil {
			return nil, err
		}
		client = eligibility.NewHTTPTelemetryClient(a.cfg.Telemetry.ReportURL, timeout)
	}
	return eligibility.NewValidator(client, a.logger), nil
}

func (a *app) assembler() *document.Assembler {
	return document.NewAssembler(document.AssemblerOptions{
		Center:  a.cfg.Center,
		Schemas: a.cfg.Schemas,
		Logger:  a.logger,
	})
}

func (a *app) openSink(ctx context.Context) (*sink.BlobSink, error) {
	store := a.storeOverride
	if store == nil {
		var err error
		store, err = blob.Open(ctx, a.cfg.Output.Blob)
		if err != nil {
			return nil, fmt.Errorf("open output: %w", err)
		}
	}
	return sink.NewBlobSink(store, a.cfg.Output.Prefix, a.logger), nil
}

func (a *app) openLedger(ctx context.Context) (ledger.Store, error) {
	if a.ledgerOverride != nil {
		return nopCloser{a.ledgerOverride}, nil
	}
	st, err := storage.OpenLedger(ctx, a.cfg.Ledger)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}
	return st, nil
}

// nopCloser keeps an injected ledger open across commands.
type nopCloser struct {
	ledger.Store
}

func (nopCloser) Close() error { return nil }
