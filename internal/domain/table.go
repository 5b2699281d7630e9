package domain

import (
	"fmt"
	"strconv"
	"strings"
)

// Row is an ordered sequence of scalar cell values.
// A cell holds a string, float64, bool or nil for an empty/undefined value.
type Row []any

// Table is an ordered sequence of rows. Row 0 is the header.
type Table []Row

// Header returns the first row, or nil for an empty table.
func (t Table) Header() Row {
	if len(t) == 0 {
		return nil
	}
	return t[0]
}

// Data returns the rows after the header.
func (t Table) Data() []Row {
	if len(t) < 2 {
		return nil
	}
	return t[1:]
}

// HasData reports whether the table carries at least one data row.
func (t Table) HasData() bool { return len(t) >= 2 }

// Width returns the length of the widest row.
func (t Table) Width() int {
	w := 0
	for _, r := range t {
		if len(r) > w {
			w = len(r)
		}
	}
	return w
}

// WithoutBlankRows returns the rows that have at least one non-nil cell.
func (t Table) WithoutBlankRows() Table {
	out := make(Table, 0, len(t))
	for _, r := range t {
		if !r.Blank() {
			out = append(out, r)
		}
	}
	return out
}

// Padded returns a copy of the table where every row has Width() cells.
// Missing trailing values are nil.
func (t Table) Padded() Table {
	w := t.Width()
	out := make(Table, len(t))
	for i, r := range t {
		out[i] = r.padTo(w)
	}
	return out
}

// Clone returns a deep copy of the row slices. Cell values are scalars and shared.
func (t Table) Clone() Table {
	if t == nil {
		return nil
	}
	out := make(Table, len(t))
	for i, r := range t {
		out[i] = r.Clone()
	}
	return out
}

// Clone returns a copy of the row.
func (r Row) Clone() Row {
	if r == nil {
		return nil
	}
	out := make(Row, len(r))
	copy(out, r)
	return out
}

// Blank reports whether every cell of the row is nil.
func (r Row) Blank() bool {
	for _, v := range r {
		if v != nil {
			return false
		}
	}
	return true
}

// Cell returns the value at column i, or nil when the row is shorter.
func (r Row) Cell(i int) any {
	if i < 0 || i >= len(r) {
		return nil
	}
	return r[i]
}

func (r Row) padTo(w int) Row {
	out := make(Row, w)
	copy(out, r)
	return out
}

// WithCoordinates returns a copy of the row with latitude and longitude appended.
// A nil c appends a null pair.
func (r Row) WithCoordinates(c *Coordinates) Row {
	out := make(Row, 0, len(r)+2)
	out = append(out, r...)
	if c == nil {
		return append(out, nil, nil)
	}
	return append(out, c.Lat, c.Lon)
}

// TrailingCoordinates reads the last two cells as latitude, longitude.
// It reports false unless both are numeric.
func (r Row) TrailingCoordinates() (Coordinates, bool) {
	if len(r) < 2 {
		return Coordinates{}, false
	}
	lat, ok := r[len(r)-2].(float64)
	if !ok {
		return Coordinates{}, false
	}
	lon, ok := r[len(r)-1].(float64)
	if !ok {
		return Coordinates{}, false
	}
	return Coordinates{Lon: lon, Lat: lat}, true
}

// CellText renders a cell the way it reads in a spreadsheet.
func CellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	default:
		return strings.TrimSpace(fmt.Sprint(x))
	}
}
