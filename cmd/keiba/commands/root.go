package commands

import (
	"context"
	"fmt"
	"keiba-etl/internal/assemble"
	"keiba-etl/internal/fields"
	"keiba-etl/internal/store"
	internaltelemetry "keiba-etl/internal/telemetry"
	"keiba-etl/lib/osutil"
	"keiba-etl/lib/telemetry"
	"log/slog"
	"os"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var (
	configPath *string
	debug      *bool
)

// set up by the root command before any subcommand runs
var (
	config    Config
	tel       internaltelemetry.API
	otelState telemetry.Telemetry
)

var rootCmd = &cobra.Command{
	Use:   "keiba",
	Short: "keiba extracts horse racing result pages into a relational store.",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		telemetry.InitSlog(*debug)

		var err error
		config, err = loadConfig(*configPath)
		if err != nil {
			osutil.Fatal("failed to read config", err)
		}
		if config.Debug && !*debug {
			telemetry.InitSlog(true)
		}

		otelState, err = telemetry.Setup(cmd.Context(), "keiba", config.Telemetry)
		if err != nil {
			osutil.Fatal("failed to setup telemetry", err)
		}
		metrics, err := internaltelemetry.NewMetricsAPI(internaltelemetry.SlogAPI{})
		if err != nil {
			osutil.Fatal("failed to setup metrics", err)
		}
		tel = metrics
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		err := otelState.Shutdown(ctx)
		if err != nil {
			slog.Warn("failed to flush telemetry", "err", err)
		}
	},
}

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "", "Path to the config file, keiba.json5 is searched upward from the working directory by default.")
	debug = rootCmd.PersistentFlags().Bool("debug", false, "Enable debug logging.")
}

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func openStore(ctx context.Context) *sqlx.DB {
	db, err := store.Open(ctx, config.Store)
	if err != nil {
		osutil.Fatal("failed to open store", err)
	}
	err = store.ApplySchema(ctx, db)
	if err != nil {
		osutil.Fatal("failed to apply schema", err)
	}
	return db
}

func newMapper() *fields.Mapper {
	tables := []fields.HeaderTable{fields.DefaultHeaderTable()}
	if config.Headers.ExtraFile != "" {
		extra, err := fields.LoadHeaderTable(config.Headers.ExtraFile)
		if err != nil {
			osutil.Fatal("failed to load extra header table", err)
		}
		tables = append(tables, extra)
	}
	return fields.NewMapper(tel, tables...)
}

func newAssembler() *assemble.Assembler {
	return assemble.NewAssembler(newMapper(), config.Margin, tel)
}
