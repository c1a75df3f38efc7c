package commands

import (
	"fmt"
	"keiba-etl/internal/db"
	"keiba-etl/internal/odds"
	"keiba-etl/lib/osutil"

	"github.com/spf13/cobra"
)

var oddsYear *string

func init() {
	oddsYear = oddsCmd.Flags().String("year", "", "Only load pages of races held in this year.")
	rootCmd.AddCommand(oddsCmd)
}

var oddsCmd = &cobra.Command{
	Use:   "odds [--year yyyy] [files...]",
	Short: "Loads cached win odds pages and fills the runners that have no odds.",
	Run: func(cmd *cobra.Command, args []string) {
		var sources []odds.Source
		var err error
		if len(args) > 0 {
			sources, err = odds.SourcesFromPaths(args)
		} else {
			sources, err = odds.Discover(config.Odds.Dir, *oddsYear)
		}
		if err != nil {
			osutil.Fatal("failed to list odds pages", err)
		}

		store := openStore(cmd.Context())
		defer store.Close()

		res, err := odds.NewLoader(db.NewMakeTx(store), tel).Load(cmd.Context(), sources)
		if err != nil {
			osutil.Fatal("failed to load odds", err)
		}
		fmt.Printf("pages: %d, lines: %d, backfilled: %d\n", res.Pages, res.Lines, res.Backfilled)
	},
}
