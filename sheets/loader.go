package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"swapplanner/sizing"
)

// DefaultCapacityCell is where the reference sheet keeps the swappable energy
// per station.
const DefaultCapacityCell = "H5"

const vehicleMixMarker = "Vehicle Mix"

// LoadFleet reads worksheet 0. Column 0 is the location, every other column is
// a vehicle type count. A filter of ["all"] (or none) keeps every location.
func LoadFleet(ctx context.Context, wb Workbook, filter []string) ([]sizing.FleetRow, error) {
	grid, err := wb.Worksheet(ctx, FleetSheet)
	if err != nil {
		return nil, fmt.Errorf("load fleet: %w", err)
	}
	if len(grid) < 2 {
		return nil, ErrInsufficientData
	}

	header := grid[0]
	columns := make([]string, 0, len(header))
	for _, h := range header[min(1, len(header)):] {
		columns = append(columns, strings.TrimSpace(h))
	}

	want := locationFilter(filter)
	rows := make([]sizing.FleetRow, 0, len(grid)-1)
	seen := make(map[string]bool, len(grid)-1)

	for i, record := range grid[1:] {
		if len(record) == 0 {
			continue
		}
		location := sizing.NormalizeLocation(record[0])
		if location == "" {
			continue
		}
		if seen[location] {
			slog.Warn("SHEETS: Duplicate location row ignored", "location", location, "row", i+2)
			continue
		}
		seen[location] = true

		if want != nil && !want[location] {
			continue
		}

		vehicles := make(map[string]float64, len(columns))
		for c, name := range columns {
			if name == "" {
				continue
			}
			var count float64
			if c+1 < len(record) {
				if v, ok := parseNumber(record[c+1]); ok && v > 0 {
					count = v
				}
			}
			vehicles[name] = count
		}

		rows = append(rows, sizing.FleetRow{Location: location, Vehicles: vehicles, Columns: columns})
	}

	if want != nil && len(rows) == 0 {
		return nil, fmt.Errorf("%w for: %s", ErrNoMatchingLocations, strings.Join(filter, ", "))
	}

	slog.Info("SHEETS: Fleet data loaded", "locations", len(rows), "vehicle_types", len(columns))
	return rows, nil
}

// locationFilter returns nil when every location is wanted.
func locationFilter(filter []string) map[string]bool {
	if len(filter) == 0 {
		return nil
	}
	want := make(map[string]bool, len(filter))
	for _, f := range filter {
		name := sizing.NormalizeLocation(f)
		if name == sizing.AllLocations && len(filter) == 1 {
			return nil
		}
		want[name] = true
	}
	return want
}

// LoadReference reads worksheet 1 and returns the raw station capacity cell
// plus the vehicle mix keyed by vehicle type.
func LoadReference(ctx context.Context, wb Workbook, capacityCell string) (string, map[string]sizing.VehicleTypeSpec, error) {
	grid, err := wb.Worksheet(ctx, ReferenceSheet)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrReferenceData, err)
	}

	if capacityCell == "" {
		capacityCell = DefaultCapacityCell
	}
	row, col, err := ParseCellRef(capacityCell)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %w", ErrReferenceData, err)
	}
	capacity := cell(grid, row, col)

	start := -1
	for i, record := range grid {
		if containsMarker(record) {
			start = i
			break
		}
	}
	if start < 0 {
		return "", nil, fmt.Errorf("%w: %q table not found", ErrReferenceData, vehicleMixMarker)
	}

	specs := make(map[string]sizing.VehicleTypeSpec)
	for _, record := range grid[start+1:] {
		if len(record) == 0 || strings.TrimSpace(record[0]) == "" {
			continue
		}
		specs[strings.TrimSpace(record[0])] = sizing.VehicleTypeSpec{
			AverageDistancePerDay: optionalNumber(record, 1),
			EnergyPerDistance:     optionalNumber(record, 2),
		}
	}

	slog.Info("SHEETS: Reference data loaded", "capacity_cell", capacityCell, "capacity_raw", capacity, "vehicle_types", len(specs))
	return capacity, specs, nil
}

// ParseCapacity converts the raw capacity cell into whole energy units.
// Anything unparseable or negative becomes 0, which makes every station count 0.
func ParseCapacity(raw string) int {
	v, ok := parseNumber(raw)
	if !ok || v < 0 {
		slog.Warn("SHEETS: Station capacity is not a positive number", "raw", raw)
		return 0
	}
	return int(v)
}

// ParseCellRef converts an A1-style reference into zero-based row and column.
func ParseCellRef(ref string) (row, col int, err error) {
	ref = strings.ToUpper(strings.TrimSpace(ref))
	i := 0
	for i < len(ref) && ref[i] >= 'A' && ref[i] <= 'Z' {
		col = col*26 + int(ref[i]-'A'+1)
		i++
	}
	if i == 0 || i == len(ref) {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}
	n, err := strconv.Atoi(ref[i:])
	if err != nil || n < 1 {
		return 0, 0, fmt.Errorf("invalid cell reference %q", ref)
	}
	return n - 1, col - 1, nil
}

func cell(grid [][]string, row, col int) string {
	if row >= len(grid) || col >= len(grid[row]) {
		return ""
	}
	return strings.TrimSpace(grid[row][col])
}

func containsMarker(record []string) bool {
	for _, c := range record {
		if strings.Contains(c, vehicleMixMarker) {
			return true
		}
	}
	return false
}

func optionalNumber(record []string, col int) *float64 {
	if col >= len(record) {
		return nil
	}
	v, ok := parseNumber(record[col])
	if !ok || v < 0 {
		return nil
	}
	return &v
}

// parseNumber accepts plain and thousands-separated numbers.
func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}
