package commands

import (
	"log/slog"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(initDbCmd)
}

var initDbCmd = &cobra.Command{
	Use:   "init-db",
	Short: "Creates the tables and regenerates the feature view.",
	Run: func(cmd *cobra.Command, args []string) {
		db := openStore(cmd.Context())
		defer db.Close()
		slog.Info("schema applied", "driver", config.Store.Driver)
	},
}
