package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"geosort-service/internal/domain"
	"geosort-service/internal/sheet"
)

var inspectIn string

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Parse a file and print its header and row count",
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(inspectIn)
		if err != nil {
			return eris.Wrapf(err, "read %s", inspectIn)
		}

		table, err := sheet.Parse(inspectIn, data)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "file:    %s\n", inspectIn)
		fmt.Fprintf(out, "columns: %d\n", table.Width())
		fmt.Fprintf(out, "rows:    %d\n", len(table.Data()))
		for i, cell := range table.Header() {
			fmt.Fprintf(out, "  [%d] %s\n", i, domain.CellText(cell))
		}

		cols := cfg.Geocode.Columns.Mapping()
		if first := table.Data(); len(first) > 0 {
			fmt.Fprintf(out, "address of row 1: %q\n", cols.Address(first[0]))
		}
		return nil
	},
}

func init() {
	inspectCmd.Flags().StringVar(&inspectIn, "in", "", "input .xlsx or .csv file")
	_ = inspectCmd.MarkFlagRequired("in")
	rootCmd.AddCommand(inspectCmd)
}
