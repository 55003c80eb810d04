package sheets

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fleetGrid() [][]string {
	return [][]string{
		{"City", "scooter", "car"},
		{" Delhi ", "100", "50"},
		{"MUMBAI", "200", ""},
	}
}

func referenceGrid() [][]string {
	return [][]string{
		{"Assumptions"},
		{},
		{},
		{},
		{"", "", "", "", "", "", "Swappable energy per station (kWh)", "1000"},
		{},
		{"Vehicle Mix", "Avg. km per day (km/day)", "Energy required per km (wh/km)"},
		{"scooter", "30", "20"},
		{"", "99", "99"},
		{"car", "n/a", "150"},
		{"rickshaw", "1,200", "35", "ignored"},
	}
}

func TestLoadFleet(t *testing.T) {
	tests := []struct {
		name          string
		grid          [][]string
		filter        []string
		wantLocations []string
		wantErr       error
	}{
		{
			name:          "all locations",
			grid:          fleetGrid(),
			filter:        []string{"all"},
			wantLocations: []string{"delhi", "mumbai"},
		},
		{
			name:          "nil filter keeps everything",
			grid:          fleetGrid(),
			wantLocations: []string{"delhi", "mumbai"},
		},
		{
			name:          "filter is normalized",
			grid:          fleetGrid(),
			filter:        []string{"  Mumbai"},
			wantLocations: []string{"mumbai"},
		},
		{
			name:    "no matching locations",
			grid:    fleetGrid(),
			filter:  []string{"pune"},
			wantErr: ErrNoMatchingLocations,
		},
		{
			name:    "header only",
			grid:    [][]string{{"City", "scooter"}},
			wantErr: ErrInsufficientData,
		},
		{
			name:    "empty sheet",
			grid:    [][]string{},
			wantErr: ErrInsufficientData,
		},
		{
			name: "blank and duplicate locations skipped",
			grid: [][]string{
				{"City", "scooter"},
				{"", "5"},
				{"delhi", "1"},
				{"Delhi", "2"},
			},
			filter:        []string{"all"},
			wantLocations: []string{"delhi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wb := NewMemoryWorkbook(tt.grid)
			rows, err := LoadFleet(context.Background(), wb, tt.filter)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)

			var got []string
			for _, r := range rows {
				got = append(got, r.Location)
			}
			assert.Equal(t, tt.wantLocations, got)
		})
	}
}

func TestLoadFleet_LenientCounts(t *testing.T) {
	wb := NewMemoryWorkbook([][]string{
		{"City", "scooter", "car", "bus"},
		{"delhi", "1,500", "lots", "-3"},
		{"pune", "7"},
	})

	rows, err := LoadFleet(context.Background(), wb, nil)
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, map[string]float64{"scooter": 1500, "car": 0, "bus": 0}, rows[0].Vehicles)
	assert.Equal(t, map[string]float64{"scooter": 7, "car": 0, "bus": 0}, rows[1].Vehicles)
	assert.Equal(t, []string{"scooter", "car", "bus"}, rows[0].Columns)
}

func TestLoadFleet_SourceError(t *testing.T) {
	wb := NewMemoryWorkbookWithError(errors.New("permission denied"))

	_, err := LoadFleet(context.Background(), wb, nil)
	require.Error(t, err)

	var dse *DataSourceError
	require.True(t, errors.As(err, &dse))
	assert.Equal(t, FleetSheet, dse.Sheet)
}

func TestLoadReference(t *testing.T) {
	wb := NewMemoryWorkbook(fleetGrid(), referenceGrid())

	capacity, specs, err := LoadReference(context.Background(), wb, "")
	require.NoError(t, err)
	assert.Equal(t, "1000", capacity)

	require.Len(t, specs, 3)
	require.NotNil(t, specs["scooter"].AverageDistancePerDay)
	assert.Equal(t, 30.0, *specs["scooter"].AverageDistancePerDay)
	assert.Equal(t, 20.0, *specs["scooter"].EnergyPerDistance)

	assert.Nil(t, specs["car"].AverageDistancePerDay, "non-numeric becomes absent")
	assert.Equal(t, 150.0, *specs["car"].EnergyPerDistance)

	assert.Equal(t, 1200.0, *specs["rickshaw"].AverageDistancePerDay)
}

func TestLoadReference_MarkerOnFirstRow(t *testing.T) {
	wb := NewMemoryWorkbook(fleetGrid(), [][]string{
		{"Vehicle Mix", "km", "wh"},
		{"scooter", "10", "10"},
	})

	capacity, specs, err := LoadReference(context.Background(), wb, "A1")
	require.NoError(t, err)
	assert.Equal(t, "Vehicle Mix", capacity)
	assert.Contains(t, specs, "scooter")
}

func TestLoadReference_Errors(t *testing.T) {
	tests := []struct {
		name string
		wb   Workbook
		cell string
	}{
		{name: "marker missing", wb: NewMemoryWorkbook(fleetGrid(), [][]string{{"scooter", "1", "2"}})},
		{name: "sheet missing", wb: NewMemoryWorkbook(fleetGrid())},
		{name: "source unreachable", wb: NewMemoryWorkbookWithError(errors.New("timeout"))},
		{name: "bad capacity cell", wb: NewMemoryWorkbook(fleetGrid(), referenceGrid()), cell: "5H"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := LoadReference(context.Background(), tt.wb, tt.cell)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrReferenceData), "got %v", err)
		})
	}
}

func TestParseCapacity(t *testing.T) {
	tests := map[string]int{
		"1000":    1000,
		" 1,250 ": 1250,
		"999.9":   999,
		"":        0,
		"abc":     0,
		"-10":     0,
	}
	for raw, want := range tests {
		assert.Equal(t, want, ParseCapacity(raw), raw)
	}
}

func TestParseCellRef(t *testing.T) {
	tests := []struct {
		ref     string
		row     int
		col     int
		wantErr bool
	}{
		{ref: "H5", row: 4, col: 7},
		{ref: "a1", row: 0, col: 0},
		{ref: "AA10", row: 9, col: 26},
		{ref: "H", wantErr: true},
		{ref: "5", wantErr: true},
		{ref: "H0", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.ref, func(t *testing.T) {
			row, col, err := ParseCellRef(tt.ref)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.row, row)
			assert.Equal(t, tt.col, col)
		})
	}
}
