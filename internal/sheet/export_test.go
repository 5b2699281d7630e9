package sheet

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"geosort-service/internal/domain"
)

func sortedFixture() domain.Table {
	return domain.Table{
		{"Street", "No", "Zip", "City", "Latitude", "Longitude"},
		{"Oak Ave", "2", "12345", "Town", 50.1, 8.1},
		{"Main St", "1", "12345", "Town", 50.0, 8.0},
		{"Nowhere", "3", nil, "Town", nil, nil},
		{"Flag", float64(7), "12345", true, 49.99999, -0.5},
	}
}

func TestExportRoundTrip(t *testing.T) {
	in := sortedFixture()

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, in, DefaultSheetName))

	out, err := Parse(DefaultFileName, buf.Bytes())
	require.NoError(t, err)

	assert.Equal(t, in, out)
}

func TestExportSingleNamedSheet(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, sortedFixture(), ""))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{DefaultSheetName}, f.GetSheetList())

	v, err := f.GetCellValue(DefaultSheetName, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Street", v)

	empty, err := f.GetCellValue(DefaultSheetName, "E4")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestExportEmptyTable(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Export(&buf, nil, "Custom"))

	out, err := Parse("empty.xlsx", buf.Bytes())
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestExportRejectsOverlongText(t *testing.T) {
	in := domain.Table{
		{"Street", "Note"},
		{"Main St", strings.Repeat("x", MaxCellChars+1)},
	}

	var buf bytes.Buffer
	err := Export(&buf, in, DefaultSheetName)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCellTooLong))
}

func TestExportLongestTextRoundTrips(t *testing.T) {
	in := domain.Table{
		{"Street", "Note"},
		{"Main St", strings.Repeat("x", MaxCellChars)},
	}

	var buf bytes.Buffer
	require.NoError(t, Export(&buf, in, DefaultSheetName))

	out, err := Parse(DefaultFileName, buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, in, out)
}
