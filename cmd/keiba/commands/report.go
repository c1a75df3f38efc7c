package commands

import (
	"keiba-etl/internal/db"
	"keiba-etl/internal/report"
	"keiba-etl/lib/osutil"
	"os"

	"github.com/spf13/cobra"
)

var (
	reportRaceID   *string
	reportSummary  *bool
	reportUnknowns *bool
	reportZero     *bool
	reportNulls    *bool
	reportConds    *bool
	reportTop      *int
)

func init() {
	reportRaceID = reportCmd.Flags().String("race-id", "", "Only show missing values of this race.")
	reportSummary = reportCmd.Flags().Bool("summary", false, "Show race and runner totals.")
	reportUnknowns = reportCmd.Flags().Bool("unknown", false, "Show races with placeholder names.")
	reportZero = reportCmd.Flags().Bool("zero", false, "Show races stored without runners.")
	reportNulls = reportCmd.Flags().Bool("nulls", false, "Show missing values per race.")
	reportConds = reportCmd.Flags().Bool("conditions", false, "Show the most frequent class, age and sex conditions.")
	reportTop = reportCmd.Flags().Int("top", 10, "Number of values listed per condition.")
	rootCmd.AddCommand(reportCmd)
}

var reportCmd = &cobra.Command{
	Use:   "report [--summary] [--nulls] [--unknown] [--zero] [--conditions [--top n]] [--race-id id]",
	Short: "Prints data quality tables, every table is printed when no flag is given.",
	Run: func(cmd *cobra.Command, args []string) {
		opts := report.Options{
			RaceID:     *reportRaceID,
			Summary:    *reportSummary,
			Nulls:      *reportNulls || *reportRaceID != "",
			Unknowns:   *reportUnknowns,
			Zero:       *reportZero,
			Conditions: *reportConds,
		}
		if !opts.Summary && !opts.Nulls && !opts.Unknowns && !opts.Zero && !opts.Conditions {
			opts = report.All()
		}
		opts.Top = *reportTop

		store := openStore(cmd.Context())
		defer store.Close()

		quality, err := report.Build(cmd.Context(), db.New(store), opts)
		if err != nil {
			osutil.Fatal("failed to build report", err)
		}
		quality.Render(os.Stdout)
	},
}
