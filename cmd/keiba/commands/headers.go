package commands

import (
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(headersCmd)
}

var headersCmd = &cobra.Command{
	Use:   "headers",
	Short: "Prints the known results table headers and the fields they map to.",
	Run: func(cmd *cobra.Command, args []string) {
		t := table.NewWriter()
		t.SetOutputMirror(os.Stdout)
		t.AppendHeader(table.Row{"Field", "Header", "Generation"})
		for _, e := range newMapper().Entries() {
			t.AppendRow(table.Row{e.Field, e.Header, e.Generation})
		}
		t.SetStyle(table.StyleRounded)
		t.Render()
	},
}
