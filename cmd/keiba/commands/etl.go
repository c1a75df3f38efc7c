package commands

import (
	"fmt"
	"keiba-etl/internal/db"
	"keiba-etl/internal/etl"
	"keiba-etl/internal/loader"
	"keiba-etl/lib/osutil"
	"keiba-etl/lib/telemetry"
	"log/slog"
	"os"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

var (
	etlDir        *string
	etlLimit      *int
	etlStartAfter *string
	etlWorkers    *int
	etlFailLog    *string
)

func init() {
	etlDir = etlCmd.Flags().String("dir", "", "Directory holding race_<id>.html pages, defaults to etl.html_dir.")
	etlLimit = etlCmd.Flags().Int("limit", 0, "Process at most this many pages.")
	etlStartAfter = etlCmd.Flags().String("start-after", "", "Only process races whose id sorts after this one.")
	etlWorkers = etlCmd.Flags().Int("workers", 0, "Number of races processed in parallel, defaults to etl.workers.")
	etlFailLog = etlCmd.Flags().String("fail-log", "", "Append failed race ids to this file, defaults to etl.fail_log.")
	rootCmd.AddCommand(etlCmd)
}

var etlCmd = &cobra.Command{
	Use:   "etl [--dir <dir>] [--limit n] [--start-after race_id] [files...]",
	Short: "Parses cached result pages and loads them into the store.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		telemetry.InstrumentPerfStats(ctx, 10*time.Second)

		dir := config.Etl.HtmlDir
		if *etlDir != "" {
			dir = *etlDir
		}
		workers := config.Etl.Workers
		if *etlWorkers > 0 {
			workers = *etlWorkers
		}
		failLog := config.Etl.FailLog
		if *etlFailLog != "" {
			failLog = *etlFailLog
		}

		var sources []etl.Source
		var err error
		if len(args) > 0 {
			sources, err = etl.SourcesFromPaths(args)
		} else {
			sources, err = etl.Discover(dir, *etlStartAfter, *etlLimit)
		}
		if err != nil {
			osutil.Fatal("failed to list pages", err)
		}
		slog.Info("starting etl", "pages", len(sources), "workers", workers)

		store := openStore(ctx)
		defer store.Close()

		runner, err := etl.NewRunner(newAssembler(), loader.NewLoader(db.NewMakeTx(store), tel), workers, tel)
		if err != nil {
			osutil.Fatal("failed to create etl runner", err)
		}

		res, runErr := runner.Run(ctx, sources)
		renderEtlResult(res)

		err = etl.AppendFailLog(failLog, res.Failures)
		if err != nil {
			slog.Error("failed to write fail log", "path", failLog, "err", err)
		}
		if runErr != nil {
			osutil.Fatal("etl interrupted", runErr)
		}
		if res.Failed > 0 {
			osutil.Fatal("etl finished with failures", fmt.Errorf("%d of %d races failed", res.Failed, res.Total))
		}
	},
}

func renderEtlResult(res etl.Result) {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf(
		"run %s started %s (%s)",
		res.RunID, res.StartedAt.Format(time.DateTime), res.Elapsed.Round(time.Millisecond),
	))
	t.AppendHeader(table.Row{"Pages", "Loaded", "Failed", "Zero runners", "Skipped", "Dropped rows", "Unknown H/J/T"})
	t.AppendRow(table.Row{
		res.Total, res.Succeeded, res.Failed, res.ZeroRunner, res.Skipped, res.Dropped,
		fmt.Sprintf("%d/%d/%d", res.Unknowns.Horse, res.Unknowns.Jockey, res.Unknowns.Trainer),
	})
	t.Render()

	for _, f := range res.Failures {
		slog.Error("race failed", "race_id", f.RaceID, "path", f.Path, "err", f.Err)
	}
}
