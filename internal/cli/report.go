package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/local/pdfbinder/internal/config"
	"github.com/local/pdfbinder/internal/store"
)

func newReportCmd(f *flags, out io.Writer) *cobra.Command {
	var recent int64
	cmd := &cobra.Command{
		Use:   "report [run-id]",
		Short: "Show a stored run report",
		Long:  "Reads run reports saved to Redis (REDIS_URL). Without a run id, lists recent runs.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(f.configFile)
			if err != nil {
				return err
			}
			if cfg.Store.RedisURL == "" {
				return errors.New("no report store configured (set REDIS_URL)")
			}
			ctx := cmd.Context()
			rs, err := store.NewRedisReports(ctx, cfg.Store.RedisURL, cfg.Store.ReportTTL)
			if err != nil {
				return err
			}
			defer rs.Close()

			if len(args) == 0 {
				ids, err := rs.Recent(ctx, recent)
				if err != nil {
					return err
				}
				for _, id := range ids {
					fmt.Fprintln(out, id)
				}
				return nil
			}
			rep, runErr, err := rs.Get(ctx, args[0])
			if err != nil {
				return err
			}
			var shown error
			if runErr != "" {
				shown = errors.New(runErr)
			}
			printSummary(out, rep, shown)
			return nil
		},
	}
	cmd.Flags().Int64Var(&recent, "recent", 10, "number of recent runs to list")
	return cmd
}
