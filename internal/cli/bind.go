package cli

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/local/pdfbinder/internal/bundle"
	"github.com/local/pdfbinder/internal/config"
	"github.com/local/pdfbinder/internal/converter"
	"github.com/local/pdfbinder/internal/filetype"
	logpkg "github.com/local/pdfbinder/internal/logger"
	"github.com/local/pdfbinder/internal/metrics"
	"github.com/local/pdfbinder/internal/pdfops"
	"github.com/local/pdfbinder/internal/source"
	"github.com/local/pdfbinder/internal/storage"
	"github.com/local/pdfbinder/internal/store"
	"github.com/local/pdfbinder/internal/workspace"
)

func initLogging(cfg config.Config) error {
	return logpkg.Init(logpkg.Options{
		Level:        cfg.Logging.Level,
		Pretty:       cfg.Logging.Pretty,
		File:         cfg.Logging.File,
		MaxSizeMB:    cfg.Logging.MaxSizeMB,
		MaxBackups:   cfg.Logging.MaxBackups,
		MaxAgeDays:   cfg.Logging.MaxAgeDays,
		Compress:     cfg.Logging.Compress,
		SendToAxiom:  cfg.Axiom.Send && cfg.Axiom.APIKey != "",
		AxiomAPIKey:  cfg.Axiom.APIKey,
		AxiomOrgID:   cfg.Axiom.OrgID,
		AxiomDataset: cfg.Axiom.Dataset,
		AxiomTimeout: cfg.Axiom.Timeout,
	})
}

// options maps configuration onto assembler options.
func options(cfg config.Config) bundle.Options {
	return bundle.Options{
		Bates:         bundle.BatesFormat{Prefix: cfg.Bates.Prefix, Digits: cfg.Bates.Digits},
		BatesStart:    cfg.Bates.Start,
		IncludeCovers: cfg.Bundle.IncludeCoverPages,
		Cover: bundle.CoverTemplate{
			Heading: cfg.Bundle.CoverTemplate.Heading,
			Title:   cfg.Bundle.CoverTemplate.Title,
			Range:   cfg.Bundle.CoverTemplate.Range,
		},
		Policy:           bundle.FailurePolicy(cfg.Bundle.FailurePolicy),
		SkipMode:         bundle.SkipMode(cfg.Bundle.SkippedCover),
		OutputPath:       cfg.Bundle.OutputPath,
		TOCTitle:         cfg.Bundle.TOCTitle,
		MaxTOCIterations: cfg.Bundle.TOCMaxIterations,
		ConvertWorkers:   cfg.Converter.Workers,
		WorkDir:          cfg.Bundle.WorkDir,
	}
}

// dependencies wires the production adapters.
func dependencies(cfg config.Config, lo *converter.LibreOffice, rec *metrics.Recorder) (bundle.Dependencies, error) {
	counter, err := pdfops.NewCounter(cfg.Converter.PageCounter, cfg.Converter.StrictPDF)
	if err != nil {
		return bundle.Dependencies{}, err
	}
	style := pdfops.DefaultStampStyle()
	style.FontSize = cfg.Bates.FontSize
	f := bundle.BatesFormat{Prefix: cfg.Bates.Prefix, Digits: cfg.Bates.Digits}

	return bundle.Dependencies{
		Converter: &bundle.Adapter{
			Converter: lo,
			Counter:   counter,
			Timeout:   cfg.Converter.Timeout,
			WorkDir:   cfg.Bundle.WorkDir,
		},
		Counter:   counter,
		Overlay:   pdfops.PdfcpuStamper{Style: style},
		Layout:    bundle.DefaultTOCLayout(pdfops.NewMeasurer(pdfops.DefaultFont), f),
		Writer:    pdfops.FpdfWriter{Font: pdfops.DefaultFont},
		Publisher: storage.Router{S3: storage.NewS3Publisher},
		Metrics:   rec,
	}, nil
}

func runBundle(ctx context.Context, cfg config.Config, dir string, out io.Writer) error {
	if err := initLogging(cfg); err != nil {
		return err
	}
	defer logpkg.Close()

	workspace.CleanupStale(cfg.Bundle.WorkDir, bundle.WorkspacePrefix, cfg.Bundle.StaleWorkAge, time.Now())

	var exclude []string
	if !storage.IsS3(cfg.Bundle.OutputPath) {
		exclude = append(exclude, cfg.Bundle.OutputPath)
	}
	docs, err := source.Scan(dir, filetype.New(), source.Options{Exclude: exclude})
	if err != nil {
		return err
	}
	log.Info().Str("dir", dir).Int("documents", len(docs)).Msg("input scanned")

	lo := converter.NewLibreOffice(cfg.Converter.Binary)
	if needsConverter(docs) {
		if _, err := lo.CheckInstallation(ctx); err != nil {
			// Each conversion still fails on its own and the policy decides.
			log.Warn().Err(err).Msg("document converter unavailable")
		}
	}

	rec := metrics.New()
	deps, err := dependencies(cfg, lo, rec)
	if err != nil {
		return err
	}
	rep, runErr := bundle.New(options(cfg), deps).Run(ctx, docs)

	flushMetrics(cfg, rec, rep)
	saveReport(ctx, cfg, rep, runErr)

	printSummary(out, rep, runErr)
	if runErr != nil {
		return &reportedError{err: runErr}
	}
	return nil
}

func needsConverter(docs []bundle.SourceDocument) bool {
	for _, d := range docs {
		if d.Kind == bundle.KindConvertible {
			return true
		}
	}
	return false
}

func flushMetrics(cfg config.Config, rec *metrics.Recorder, rep *bundle.Report) {
	if path := cfg.Metrics.Textfile; path != "" {
		if err := rec.WriteTextfile(path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("metrics textfile not written")
		}
	}
	if url := cfg.Metrics.PushgatewayURL; url != "" {
		if err := rec.Push(url, cfg.Metrics.Job, rep.RunID); err != nil {
			log.Warn().Err(err).Str("url", url).Msg("metrics push failed")
		}
	}
}

func saveReport(ctx context.Context, cfg config.Config, rep *bundle.Report, runErr error) {
	if cfg.Store.RedisURL == "" {
		return
	}
	// The run may have been interrupted; the report is still worth keeping.
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	rs, err := store.NewRedisReports(sctx, cfg.Store.RedisURL, cfg.Store.ReportTTL)
	if err != nil {
		log.Warn().Err(err).Msg("report store unavailable")
		return
	}
	defer rs.Close()
	if err := rs.Save(sctx, rep, runErr); err != nil {
		log.Warn().Err(err).Msg("report not saved")
		return
	}
	log.Debug().Str("run_id", rep.RunID).Msg("report saved")
}

// displayPath shortens paths under the working directory.
func displayPath(p string) string {
	if storage.IsS3(p) {
		return p
	}
	if rel, err := filepath.Rel(".", p); err == nil && len(rel) < len(p) {
		return rel
	}
	return p
}

func pageWord(n int) string {
	if n == 1 {
		return fmt.Sprintf("%d page", n)
	}
	return fmt.Sprintf("%d pages", n)
}
