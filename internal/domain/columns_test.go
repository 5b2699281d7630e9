package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColumnMappingAddress(t *testing.T) {
	tests := []struct {
		name string
		m    ColumnMapping
		row  Row
		want string
	}{
		{"full", DefaultColumns, Row{"Main St", "1", "12345", "Town"}, "Main St 1, 12345 Town"},
		{"numeric cells", DefaultColumns, Row{"Main St", 1.0, 12345.0, "Town"}, "Main St 1, 12345 Town"},
		{"ragged", DefaultColumns, Row{"Main St", "1"}, "Main St 1"},
		{"no street", DefaultColumns, Row{nil, nil, "12345", "Town"}, "12345 Town"},
		{"blank", DefaultColumns, Row{nil, " ", nil, ""}, ""},
		{"whitespace collapsed", DefaultColumns, Row{"  Main   St ", "1", "12345", " Town"}, "Main St 1, 12345 Town"},
		{
			"remapped",
			ColumnMapping{Street: 3, HouseNumber: 2, PostalCode: 1, City: 0},
			Row{"Town", "12345", "1", "Main St"},
			"Main St 1, 12345 Town",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.m.Address(tt.row))
		})
	}
}

func TestColumnMappingValidate(t *testing.T) {
	assert.NoError(t, DefaultColumns.Validate())
	assert.Error(t, ColumnMapping{Street: -1}.Validate())
}

func TestRouteJobSteps(t *testing.T) {
	r := Route{Steps: []RouteStep{
		{Type: StepStart},
		{Type: StepJob, JobID: 2},
		{Type: StepJob, JobID: 1},
		{Type: StepEnd},
	}}

	steps := r.JobSteps()
	if assert.Len(t, steps, 2) {
		assert.Equal(t, 2, steps[0].JobID)
		assert.Equal(t, 1, steps[1].JobID)
	}
}

func TestStageString(t *testing.T) {
	assert.Equal(t, "empty", StageEmpty.String())
	assert.Equal(t, "sorted", StageSorted.String())
	b, err := StageGeocoded.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "geocoded", string(b))
}

func TestStageUnmarshalText(t *testing.T) {
	var s Stage
	assert.NoError(t, s.UnmarshalText([]byte("parsed")))
	assert.Equal(t, StageParsed, s)
	assert.Error(t, s.UnmarshalText([]byte("done")))
}
