package commands

import (
	"fmt"
	"keiba-etl/internal/fetch"
	"keiba-etl/lib/osutil"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var fetchList *string

func init() {
	fetchList = fetchCmd.Flags().String("list", "", "File of \"<race_id> <url>\" lines.")
	fetchCmd.MarkFlagRequired("list")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch --list <file>",
	Short: "Downloads result pages into the cache directory, pages already cached are skipped.",
	Run: func(cmd *cobra.Command, args []string) {
		f, err := os.Open(*fetchList)
		if err != nil {
			osutil.Fatal("failed to open list", err)
		}
		targets, err := fetch.ParseTargets(f)
		f.Close()
		if err != nil {
			osutil.Fatal("failed to parse list", err)
		}

		client := fetch.NewClient(config.Fetch, tel)
		res, err := client.FetchAll(cmd.Context(), targets)
		fmt.Printf("fetched: %d, cached: %d, failed: %d\n", res.Fetched, res.Cached, len(res.Failed))
		for _, raceID := range res.Failed {
			slog.Error("fetch failed", "race_id", raceID)
		}
		if err != nil {
			osutil.Fatal("fetch interrupted", err)
		}
	},
}
