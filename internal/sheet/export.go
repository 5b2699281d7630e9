package sheet

import (
	"io"
	"unicode/utf8"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"geosort-service/internal/domain"
)

// MaxCellChars is the longest text an xlsx cell holds.
const MaxCellChars = 32767

// ErrCellTooLong marks a text cell that does not fit into an xlsx cell.
var ErrCellTooLong = eris.New("cell text exceeds 32767 characters")

const (
	DefaultSheetName = "Geosortiert"
	DefaultFileName  = "geosortierte_laufliste.xlsx"
)

// Export writes table as a single-sheet xlsx workbook. Rows and columns are written
// verbatim, nil cells stay empty. Text longer than MaxCellChars is rejected with
// ErrCellTooLong instead of being cut.
func Export(w io.Writer, table domain.Table, sheetName string) error {
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return eris.Wrapf(err, "export: name sheet %q", sheetName)
	}

	for r, row := range table {
		for c, v := range row {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return eris.Wrap(err, "export: cell name")
			}
			if s, ok := v.(string); ok && utf8.RuneCountInString(s) > MaxCellChars {
				return eris.Wrapf(ErrCellTooLong, "export: %s", cell)
			}
			if err := f.SetCellValue(sheetName, cell, v); err != nil {
				return eris.Wrapf(err, "export: set %s", cell)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return eris.Wrap(err, "export: write workbook")
	}
	return nil
}
