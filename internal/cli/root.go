// Package cli implements the pdfbinder command line.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/local/pdfbinder/internal/config"
	"github.com/local/pdfbinder/internal/version"
)

// flags holds command line overrides. Only flags the user set replace
// configuration values.
type flags struct {
	configFile   string
	output       string
	batesStart   int
	batesPrefix  string
	batesDigits  int
	fontSize     int
	noCovers     bool
	policy       string
	skippedCover string
	workers      int
	timeout      time.Duration
	tocTitle     string
	workDir      string
	pageCounter  string
	logLevel     string
}

func newRootCmd(f *flags, stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "pdfbinder [input-dir]",
		Short: "Bind a folder of documents into one Bates-numbered PDF",
		Long: `pdfbinder converts every PDF and word-processor document in a folder to PDF,
stamps each content page with a sequential Bates number and binds them into a
single PDF with a linked table of contents, optional cover pages and bookmarks.

Documents are bound in case-insensitive file name order.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			return runBundle(cmd.Context(), cfg, dir, stdout)
		},
	}
	root.Version = version.Version
	root.SetVersionTemplate(fmt.Sprintf("pdfbinder %s\n", version.String()))
	root.SetOut(stdout)
	root.SetErr(stderr)

	pf := root.PersistentFlags()
	pf.StringVarP(&f.configFile, "config", "c", "", "YAML config file")
	pf.StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")

	fl := root.Flags()
	fl.StringVarP(&f.output, "output", "o", "", "output path or s3://bucket/key")
	fl.IntVar(&f.batesStart, "bates-start", 1, "first Bates number")
	fl.StringVar(&f.batesPrefix, "bates-prefix", "", "Bates label prefix")
	fl.IntVar(&f.batesDigits, "bates-digits", 6, "zero-padded Bates digits")
	fl.IntVar(&f.fontSize, "bates-font-size", 14, "Bates stamp font size")
	fl.BoolVar(&f.noCovers, "no-covers", false, "omit per-document cover pages")
	fl.StringVar(&f.policy, "failure-policy", "abort", "abort or skip on unreadable documents")
	fl.StringVar(&f.skippedCover, "skipped-cover", "remove", "remove or placeholder for skipped documents")
	fl.IntVar(&f.workers, "workers", 1, "parallel document conversions")
	fl.DurationVar(&f.timeout, "convert-timeout", 180*time.Second, "timeout per document conversion")
	fl.StringVar(&f.tocTitle, "toc-title", "", "table of contents title")
	fl.StringVar(&f.workDir, "work-dir", "", "scratch directory")
	fl.StringVar(&f.pageCounter, "page-counter", "", "pdfcpu or mupdf")

	root.AddCommand(newReportCmd(f, stdout), newCheckCmd(f, stdout))
	return root
}

// loadConfig layers defaults, environment, config file and flags.
func loadConfig(cmd *cobra.Command, f *flags) (config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return cfg, err
	}
	changed := cmd.Flags().Changed
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if changed("output") {
		cfg.Bundle.OutputPath = f.output
	}
	if changed("bates-start") {
		cfg.Bates.Start = f.batesStart
	}
	if changed("bates-prefix") {
		cfg.Bates.Prefix = f.batesPrefix
	}
	if changed("bates-digits") {
		cfg.Bates.Digits = f.batesDigits
	}
	if changed("bates-font-size") {
		cfg.Bates.FontSize = f.fontSize
	}
	if changed("no-covers") {
		cfg.Bundle.IncludeCoverPages = !f.noCovers
	}
	if changed("failure-policy") {
		cfg.Bundle.FailurePolicy = f.policy
	}
	if changed("skipped-cover") {
		cfg.Bundle.SkippedCover = f.skippedCover
	}
	if changed("workers") {
		cfg.Converter.Workers = f.workers
	}
	if changed("convert-timeout") {
		cfg.Converter.Timeout = f.timeout
	}
	if changed("toc-title") {
		cfg.Bundle.TOCTitle = f.tocTitle
	}
	if changed("work-dir") {
		cfg.Bundle.WorkDir = f.workDir
	}
	if changed("page-counter") {
		cfg.Converter.PageCounter = f.pageCounter
	}
	return cfg, cfg.Validate()
}

// Execute runs the command line and returns the process exit status.
func Execute() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCmd(&flags{}, os.Stdout, os.Stderr)
	if err := root.ExecuteContext(ctx); err != nil {
		var shown *reportedError
		if !errors.As(err, &shown) {
			fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
		}
		return 1
	}
	return 0
}

// reportedError marks a failure the summary already printed.
type reportedError struct{ err error }

func (e *reportedError) Error() string { return e.err.Error() }
func (e *reportedError) Unwrap() error { return e.err }
