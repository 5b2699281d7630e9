package domain

import (
	"errors"
	"strings"
)

// ColumnMapping binds the positional address columns of a data row.
type ColumnMapping struct {
	Street      int
	HouseNumber int
	PostalCode  int
	City        int
}

// DefaultColumns is the street, number, postal code, city layout in columns 0-3.
var DefaultColumns = ColumnMapping{Street: 0, HouseNumber: 1, PostalCode: 2, City: 3}

// Validate rejects negative column indexes.
func (m ColumnMapping) Validate() error {
	if m.Street < 0 || m.HouseNumber < 0 || m.PostalCode < 0 || m.City < 0 {
		return errors.New("column mapping: indexes must be >= 0")
	}
	return nil
}

// Address builds the free-text lookup string "<street> <number>, <zip> <city>".
// Empty cells are dropped and whitespace is collapsed. An all-empty row yields "".
func (m ColumnMapping) Address(r Row) string {
	street := joinFields(CellText(r.Cell(m.Street)), CellText(r.Cell(m.HouseNumber)))
	locality := joinFields(CellText(r.Cell(m.PostalCode)), CellText(r.Cell(m.City)))

	switch {
	case street == "":
		return locality
	case locality == "":
		return street
	default:
		return street + ", " + locality
	}
}

func joinFields(parts ...string) string {
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
