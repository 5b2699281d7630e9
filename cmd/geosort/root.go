package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"geosort-service/internal/config"
	"geosort-service/internal/metrics"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geosort",
	Short: "Geocode and route-sort address spreadsheets",
	Long:  "Reads an .xlsx or .csv address list, geocodes every row with OpenRouteService, orders the rows along an optimized walking route and writes the sorted list back as .xlsx.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		dotenv := config.LoadDotEnv()

		c, err := config.Load()
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		if !dotenv {
			zap.L().Debug("no .env file found (using environment variables)")
		}

		metrics.RegisterDefault()
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
