package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/webarchive-ingest/internal/clock/system"
	"github.com/JakeFAU/webarchive-ingest/internal/config"
	"github.com/JakeFAU/webarchive-ingest/internal/counters"
	"github.com/JakeFAU/webarchive-ingest/internal/dispatcher"
	"github.com/JakeFAU/webarchive-ingest/internal/driver"
	"github.com/JakeFAU/webarchive-ingest/internal/filter"
	"github.com/JakeFAU/webarchive-ingest/internal/id/uuid"
	"github.com/JakeFAU/webarchive-ingest/internal/ingest"
	"github.com/JakeFAU/webarchive-ingest/internal/metrics"
	"github.com/JakeFAU/webarchive-ingest/internal/publisher/jsonl"
	memorypublisher "github.com/JakeFAU/webarchive-ingest/internal/publisher/memory"
	"github.com/JakeFAU/webarchive-ingest/internal/publisher/pubsub"
	"github.com/JakeFAU/webarchive-ingest/internal/queue/memory"
	"github.com/JakeFAU/webarchive-ingest/internal/scoring"
	"github.com/JakeFAU/webarchive-ingest/internal/storage"
	"github.com/JakeFAU/webarchive-ingest/internal/telemetry"
	"github.com/JakeFAU/webarchive-ingest/internal/warc"
	"github.com/JakeFAU/webarchive-ingest/internal/worker"
)

// newRunCmd creates the 'run' subcommand, which processes every archive file
// in the configured bucket once.
func newRunCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Process every archive file in the configured bucket",
		RunE:  runIngestCommand,
	}
}

func runIngestCommand(cmd *cobra.Command, _ []string) error {
	e, err := resolveEnv(cmd.Context())
	if err != nil {
		return err
	}
	summary, err := runPipeline(cmd.Context(), e.cfg, e.logger)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "run %s: exported %d, rejected %d, files %d finished / %d failed in %s\n",
		summary.RunID,
		summary.Exported,
		summary.Rejected,
		summary.Counters[ingest.CounterFilesFinished],
		summary.Counters[ingest.CounterFilesFailed],
		summary.Duration.Round(time.Millisecond),
	)
	return err
}

// runPipeline wires the collaborators named in cfg and runs one pass.
func runPipeline(ctx context.Context, cfg config.Config, logger *zap.Logger) (summary driver.Summary, err error) {
	if cfg.Tracing.Enabled {
		tp, terr := telemetry.InitTracerProvider(ctx, cfg.Tracing.ServiceName, nil)
		if terr != nil {
			return summary, fmt.Errorf("init tracing: %w", terr)
		}
		defer func() {
			if serr := tp.Shutdown(context.WithoutCancel(ctx)); serr != nil {
				logger.Warn("tracer shutdown failed", zap.Error(serr))
			}
		}()
	}

	store := counters.New(0)

	src, srcCloser, err := storage.Open(ctx, sourceConfig(cfg.Source))
	if err != nil {
		return summary, fmt.Errorf("open source: %w", err)
	}
	defer func() {
		if cerr := srcCloser.Close(); cerr != nil {
			logger.Warn("source close failed", zap.Error(cerr))
		}
	}()

	var labels filter.LabelTable
	if cfg.Filter.LabelTable != "" {
		labels, err = filter.LoadLabelTableFile(cfg.Filter.LabelTable)
		if err != nil {
			return summary, err
		}
	}
	chain := filter.NewChain(filterConfig(cfg.Filter), store, nil, labels)

	bridge := memory.NewBridge(cfg.Bridge.Capacity)
	task := worker.New(src, chain, bridge, store, warc.Options{
		MaxContentLength: cfg.Filter.MaxContentLength,
		Oversize:         warc.OversizePolicy(cfg.Filter.OversizePolicy),
	}, logger.Named("worker"))

	m := metrics.New(store, cfg.Filter.DomainQuota)
	exec := dispatcher.New(task, bridge, store, dispatcher.Config{
		MaxParallel: cfg.Executor.MaxParallel,
		FileTimeout: cfg.Executor.FileTimeout,
	}, logger.Named("dispatcher")).WithObserver(m)

	scorer := newScorer(cfg.Scoring)
	exporter, err := newExporter(ctx, cfg.Export)
	if err != nil {
		return summary, err
	}
	defer func() {
		if cerr := exporter.Close(context.WithoutCancel(ctx)); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close exporter: %w", cerr))
		}
	}()

	runID, err := uuid.NewUUIDGenerator().NewID()
	if err != nil {
		return summary, err
	}

	if cfg.Metrics.Addr != "" {
		mctx, stopMetrics := context.WithCancel(ctx)
		served := make(chan struct{})
		go func() {
			defer close(served)
			if serr := metrics.Serve(mctx, cfg.Metrics.Addr, m.Router(), logger.Named("metrics")); serr != nil {
				logger.Error("metrics server failed", zap.Error(serr))
			}
		}()
		defer func() {
			stopMetrics()
			<-served
		}()
	}

	d := driver.New(driver.Deps{
		Store:    src,
		Producer: exec,
		Source:   bridge,
		Scorer:   scorer,
		Exporter: exporter,
		Counters: store,
	}, driver.Config{
		BatchSize:      cfg.Scoring.BatchSize,
		Threshold:      cfg.Scoring.Threshold,
		ReportInterval: cfg.Report.Interval,
	}, runID, logger.Named("driver"))

	return d.Run(ctx)
}

func sourceConfig(c config.SourceConfig) storage.Config {
	return storage.Config{
		Backend:   c.Backend,
		Bucket:    c.Bucket,
		Prefix:    c.Prefix,
		Endpoint:  c.Endpoint,
		AccessKey: c.AccessKey,
		SecretKey: c.SecretKey,
		UseSSL:    c.UseSSL,
		Region:    c.Region,
		LocalDir:  c.LocalDir,
	}
}

func filterConfig(c config.FilterConfig) filter.Config {
	return filter.Config{
		MinContentLength:  c.MinContentLength,
		ContentTypePrefix: c.ContentTypePrefix,
		TargetLanguage:    c.TargetLanguage,
		LanguageMarker:    c.LanguageMarker,
		SchemaMarker:      c.SchemaMarker,
		DomainQuota:       c.DomainQuota,
	}
}

func newScorer(c config.ScoringConfig) ingest.Scorer {
	if c.Backend == "http" {
		return scoring.NewHTTPScorer(c.Endpoint, c.Timeout)
	}
	return scoring.Passthrough{}
}

func newExporter(ctx context.Context, c config.ExportConfig) (ingest.Exporter, error) {
	clock := system.New()
	switch c.Backend {
	case "pubsub":
		exp, err := pubsub.Dial(ctx, c.ProjectID, c.Topic, clock)
		if err != nil {
			return nil, fmt.Errorf("open pubsub exporter: %w", err)
		}
		return exp, nil
	case "memory":
		return memorypublisher.New(), nil
	default:
		exp, err := jsonl.New(c.Path, clock)
		if err != nil {
			return nil, fmt.Errorf("open jsonl exporter: %w", err)
		}
		return exp, nil
	}
}
