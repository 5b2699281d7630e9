// Package sheet decodes uploaded spreadsheets into tables and encodes tables as xlsx.
package sheet

import (
	"bytes"
	"encoding/csv"
	"io"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/xuri/excelize/v2"

	"geosort-service/internal/domain"
)

var (
	// ErrParse marks input that could not be read as a table.
	ErrParse = eris.New("unreadable spreadsheet")
	// ErrUnsupportedFormat marks a recognized format with no decoder (legacy BIFF .xls).
	ErrUnsupportedFormat = eris.New("unsupported spreadsheet format")
)

var (
	zipMagic  = []byte("PK\x03\x04")
	ole2Magic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
	utf8BOM   = []byte{0xEF, 0xBB, 0xBF}
)

// Parse decodes data into a table. The format is detected from the content; name is
// only used in error messages. Only the first sheet of a workbook is read.
// Rows without any value are dropped, the rest are padded with nil to the width of
// the widest row.
func Parse(name string, data []byte) (domain.Table, error) {
	var (
		t   domain.Table
		err error
	)

	switch {
	case bytes.HasPrefix(data, zipMagic):
		t, err = parseXLSX(data)
	case bytes.HasPrefix(data, ole2Magic):
		return nil, eris.Wrapf(ErrUnsupportedFormat, "%s: legacy binary .xls, save it as .xlsx or .csv", name)
	default:
		t, err = parseCSV(data)
	}
	if err != nil {
		return nil, eris.Wrapf(ErrParse, "%s: %v", name, err)
	}

	return t.WithoutBlankRows().Padded(), nil
}

func parseXLSX(data []byte) (domain.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, eris.Wrap(err, "open workbook")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, eris.New("workbook has no sheets")
	}
	first := sheets[0]

	rows, err := f.GetRows(first, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, eris.Wrapf(err, "read sheet %q", first)
	}

	t := make(domain.Table, 0, len(rows))
	for r, cells := range rows {
		row := make(domain.Row, len(cells))
		for c, raw := range cells {
			if raw == "" {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, eris.Wrap(err, "cell name")
			}
			typ, err := f.GetCellType(first, cell)
			if err != nil {
				return nil, eris.Wrapf(err, "cell type %s", cell)
			}
			row[c] = typedValue(typ, raw)
		}
		t = append(t, row)
	}

	return t, nil
}

// typedValue converts a raw stored value according to its cell type.
func typedValue(typ excelize.CellType, raw string) any {
	switch typ {
	case excelize.CellTypeBool:
		return raw == "1" || strings.EqualFold(raw, "true")
	case excelize.CellTypeNumber, excelize.CellTypeUnset, excelize.CellTypeDate:
		if f, err := strconv.ParseFloat(raw, 64); err == nil {
			return f
		}
	}
	return raw
}

func parseCSV(data []byte) (domain.Table, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.Table{}, nil
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = sniffDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	var t domain.Table
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "csv: read row")
		}

		row := make(domain.Row, len(record))
		for i, field := range record {
			if field != "" {
				row[i] = field
			}
		}
		t = append(t, row)
	}

	return t, nil
}

// sniffDelimiter picks the most frequent of , ; and tab in the first line.
func sniffDelimiter(data []byte) rune {
	line := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		line = data[:i]
	}

	best, bestCount := ',', 0
	for _, d := range []rune{',', ';', '\t'} {
		if n := bytes.Count(line, []byte(string(d))); n > bestCount {
			best, bestCount = d, n
		}
	}
	return best
}
