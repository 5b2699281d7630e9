package main

import (
	"bytes"
	"os"
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"geosort-service/internal/sheet"
)

var (
	geocodeIn          string
	geocodeOut         string
	geocodeConcurrency int
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode",
	Short: "Append latitude and longitude to every row without reordering",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		p, done, err := newPipeline(ctx, geocodeConcurrency)
		if err != nil {
			return err
		}
		defer done()

		if err := loadAndGeocode(ctx, p, geocodeIn); err != nil {
			return err
		}

		geocoded := p.Snapshot().Geocoded
		if geocoded == nil {
			zap.L().Info("no data rows, nothing written")
			return nil
		}

		var buf bytes.Buffer
		if err := sheet.Export(&buf, geocoded, cfg.Export.SheetName); err != nil {
			return err
		}
		if err := os.WriteFile(geocodeOut, buf.Bytes(), 0o644); err != nil {
			return eris.Wrapf(err, "geocode: write %s", geocodeOut)
		}
		zap.L().Info("geocoded list written", zap.String("path", geocodeOut))
		return nil
	},
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeIn, "in", "", "input .xlsx or .csv file")
	geocodeCmd.Flags().StringVar(&geocodeOut, "out", "", "output .xlsx file")
	geocodeCmd.Flags().IntVar(&geocodeConcurrency, "concurrency", 0, "parallel geocoding requests (default geocode.concurrency)")
	_ = geocodeCmd.MarkFlagRequired("in")
	_ = geocodeCmd.MarkFlagRequired("out")
	rootCmd.AddCommand(geocodeCmd)
}
