package commands

import (
	"fmt"
	"keiba-etl/internal/db"
	"keiba-etl/internal/prevrace"
	"keiba-etl/lib/osutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(linkCmd)
}

var linkCmd = &cobra.Command{
	Use:   "link",
	Short: "Recomputes the previous race columns of every runner.",
	Run: func(cmd *cobra.Command, args []string) {
		store := openStore(cmd.Context())
		defer store.Close()

		res, err := prevrace.NewLinker(db.NewMakeTx(store), tel).Link(cmd.Context())
		if err != nil {
			osutil.Fatal("failed to link previous races", err)
		}
		fmt.Printf("runners: %d, linked: %d, undated: %d\n", res.Rows, res.Linked, res.Undated)
	},
}
