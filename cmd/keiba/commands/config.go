package commands

import (
	"keiba-etl/internal/etl"
	"keiba-etl/internal/fetch"
	"keiba-etl/internal/fields"
	"keiba-etl/internal/odds"
	"keiba-etl/internal/profiles"
	"keiba-etl/internal/store"
	"keiba-etl/lib/configutil"
	"keiba-etl/lib/telemetry"
	"log/slog"
	"os"
)

const configName = "keiba.json5"

type HeadersConfig struct {
	// ExtraFile is a json5 header table merged on top of the built in one.
	ExtraFile string `json:"extra_file"`
}

type Config struct {
	Store     store.Config       `json:"store"`
	Etl       etl.Config         `json:"etl"`
	Margin    fields.MarginScale `json:"margin"`
	Headers   HeadersConfig      `json:"headers"`
	Fetch     fetch.Config       `json:"fetch"`
	Profiles  profiles.Config    `json:"profiles"`
	Odds      odds.Config        `json:"odds"`
	Telemetry telemetry.Config   `json:"telemetry"`
	Debug     bool               `json:"debug"`
}

func defaultConfig() Config {
	return Config{
		Store: store.Config{
			Driver: store.DriverSqlite,
			File:   "data/keiba.db",
		},
		Etl: etl.Config{
			HtmlDir: "data/raw/jra",
			Workers: 4,
		},
		Margin: fields.DefaultMarginScale(),
		Fetch:  fetch.DefaultConfig(),
		Profiles: profiles.Config{
			HorseDir:  "data/raw/jra/horses",
			JockeyDir: "data/raw/jra/jockeys",
		},
		Odds: odds.Config{Dir: "data/raw/jra/odds"},
	}
}

// loadConfig reads the config at path, or searches for keiba.json5 upward
// from the working directory when path is empty. Running without any config
// file is fine, the defaults are used.
func loadConfig(path string) (Config, error) {
	if path != "" {
		return configutil.ReadConfig(path, defaultConfig())
	}

	cfg, found, err := configutil.ReadRecursively(configName, defaultConfig())
	if os.IsNotExist(err) {
		slog.Info("no config file found, using defaults", "name", configName)
		return defaultConfig(), nil
	}
	if err != nil {
		return cfg, err
	}
	slog.Debug("using config", "path", found)
	return cfg, nil
}
