package commands

import (
	"fmt"
	"keiba-etl/internal/db"
	"keiba-etl/internal/profiles"
	"keiba-etl/lib/osutil"

	"github.com/spf13/cobra"
)

var (
	profilesHorses  *bool
	profilesJockeys *bool
)

func init() {
	profilesHorses = profilesCmd.Flags().Bool("horses", false, "Only load horse profiles.")
	profilesJockeys = profilesCmd.Flags().Bool("jockeys", false, "Only load jockey profiles.")
	rootCmd.AddCommand(profilesCmd)
}

var profilesCmd = &cobra.Command{
	Use:   "profiles [--horses] [--jockeys] [files...]",
	Short: "Loads cached horse and jockey profile pages into the masters.",
	Long:  "Loads horse_<id>.html and jockey_<id>.html pages, the configured profile directories are scanned when no file is given.",
	Run: func(cmd *cobra.Command, args []string) {
		var sources []profiles.Source
		var err error
		if len(args) > 0 {
			sources, err = profiles.SourcesFromPaths(args)
			if err != nil {
				osutil.Fatal("invalid profile page", err)
			}
		} else {
			both := !*profilesHorses && !*profilesJockeys
			if both || *profilesHorses {
				horses, err := profiles.Discover(config.Profiles.HorseDir, profiles.KindHorse)
				if err != nil {
					osutil.Fatal("failed to list horse profiles", err)
				}
				sources = append(sources, horses...)
			}
			if both || *profilesJockeys {
				jockeys, err := profiles.Discover(config.Profiles.JockeyDir, profiles.KindJockey)
				if err != nil {
					osutil.Fatal("failed to list jockey profiles", err)
				}
				sources = append(sources, jockeys...)
			}
		}

		store := openStore(cmd.Context())
		defer store.Close()

		res, err := profiles.NewLoader(db.NewMakeTx(store), tel).Load(cmd.Context(), sources)
		if err != nil {
			osutil.Fatal("failed to load profiles", err)
		}
		fmt.Printf("horses: %d, jockeys: %d, skipped: %d\n", res.Horses, res.Jockeys, res.Skipped)
	},
}
