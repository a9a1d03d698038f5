package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/local/pdfbinder/internal/config"
	"github.com/local/pdfbinder/internal/converter"
	"github.com/local/pdfbinder/internal/statuscheck"
	"github.com/local/pdfbinder/internal/storage"
	"github.com/local/pdfbinder/internal/store"
)

var errUnhealthy = errors.New("environment not ready")

func newCheckCmd(f *flags, out io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify LibreOffice, the work directory and configured stores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, f)
			if err != nil {
				return err
			}
			s := statuscheck.New(checkOptions(cfg)).Summary(cmd.Context())
			printStatus(out, s)
			if !s.Healthy() {
				return &reportedError{err: errUnhealthy}
			}
			return nil
		},
	}
}

func checkOptions(cfg config.Config) statuscheck.Options {
	opts := statuscheck.Options{
		Converter: converter.NewLibreOffice(cfg.Converter.Binary),
		WorkDir:   cfg.Bundle.WorkDir,
	}
	if url := cfg.Store.RedisURL; url != "" {
		opts.Redis = statuscheck.PingFunc(func(ctx context.Context) error {
			rs, err := store.NewRedisReports(ctx, url, cfg.Store.ReportTTL)
			if err != nil {
				return err
			}
			return rs.Close()
		})
	}
	if storage.IsS3(cfg.Bundle.OutputPath) {
		if bucket, _, err := storage.ParseS3URL(cfg.Bundle.OutputPath); err == nil {
			opts.Bucket = bucket
		}
	}
	return opts
}

func printStatus(w io.Writer, s statuscheck.Summary) {
	rows := []struct {
		name string
		st   statuscheck.Status
	}{
		{"LibreOffice", s.LibreOffice},
		{"Work dir", s.WorkDir},
		{"Redis", s.Redis},
		{"S3", s.S3},
	}
	for _, r := range rows {
		mark := successStyle.Render("✓")
		switch {
		case !r.st.Configured:
			mark = dimStyle.Render("-")
		case !r.st.OK:
			mark = errorStyle.Render("✗")
		}
		fmt.Fprintf(w, "%s %-12s %s\n", mark, r.name, dimStyle.Render(r.st.Message))
	}
}
