package sizing

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(f float64) *float64 { return &f }

func scooterSpecs() map[string]VehicleTypeSpec {
	return map[string]VehicleTypeSpec{
		"scooter": {AverageDistancePerDay: ptr(30), EnergyPerDistance: ptr(20)},
	}
}

func row(location string, vehicles map[string]float64) FleetRow {
	return FleetRow{Location: location, Vehicles: vehicles}
}

func TestEnergyDemand(t *testing.T) {
	tests := []struct {
		name     string
		row      FleetRow
		specs    map[string]VehicleTypeSpec
		offRoad  float64
		expected float64
	}{
		{
			name:     "single known type",
			row:      row("delhi", map[string]float64{"scooter": 100}),
			specs:    scooterSpecs(),
			offRoad:  0.2,
			expected: 48,
		},
		{
			name:     "unknown type ignored",
			row:      row("delhi", map[string]float64{"scooter": 100, "car": 50}),
			specs:    scooterSpecs(),
			offRoad:  0.2,
			expected: 48,
		},
		{
			name: "incomplete spec contributes nothing",
			row:  row("delhi", map[string]float64{"scooter": 100, "rickshaw": 10}),
			specs: map[string]VehicleTypeSpec{
				"scooter":  {AverageDistancePerDay: ptr(30), EnergyPerDistance: ptr(20)},
				"rickshaw": {AverageDistancePerDay: ptr(120)},
			},
			offRoad:  0,
			expected: 60,
		},
		{
			name:     "spec type missing from row",
			row:      row("pune", map[string]float64{"car": 10}),
			specs:    scooterSpecs(),
			offRoad:  0,
			expected: 0,
		},
		{
			name:     "whole fleet off road",
			row:      row("delhi", map[string]float64{"scooter": 100}),
			specs:    scooterSpecs(),
			offRoad:  1,
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, EnergyDemand(tt.row, tt.specs, tt.offRoad), 1e-9)
		})
	}
}

func TestEnergyDemand_UnrecognizedColumnIsMonotone(t *testing.T) {
	base := row("delhi", map[string]float64{"scooter": 100})
	extended := row("delhi", map[string]float64{"scooter": 100, "bus": 7, "truck": 3})

	assert.Equal(t, EnergyDemand(base, scooterSpecs(), 0.3), EnergyDemand(extended, scooterSpecs(), 0.3))
}

func TestStationsRequired(t *testing.T) {
	tests := []struct {
		name        string
		demand      float64
		capacity    int
		utilization float64
		expected    float64
	}{
		{name: "normal", demand: 48, capacity: 1000, utilization: 0.8, expected: 0.06},
		{name: "zero capacity", demand: 48, capacity: 0, utilization: 0.8, expected: 0},
		{name: "negative capacity", demand: 48, capacity: -5, utilization: 0.8, expected: 0},
		{name: "zero utilization", demand: 48, capacity: 1000, utilization: 0, expected: 0},
		{name: "negative utilization", demand: 48, capacity: 1000, utilization: -0.5, expected: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, StationsRequired(tt.demand, tt.capacity, tt.utilization), 1e-12)
		})
	}
}

func TestTotalVehicles_CountsEveryColumn(t *testing.T) {
	r := row("delhi", map[string]float64{"scooter": 100, "car": 50, "unknown": 7})
	assert.Equal(t, 157.0, TotalVehicles(r))
}

func TestNormalizeLocation(t *testing.T) {
	for _, in := range []string{"  Delhi ", "MUMBAI", "new delhi", "", "\tPune\n"} {
		once := NormalizeLocation(in)
		assert.Equal(t, once, NormalizeLocation(once), "normalize must be idempotent for %q", in)
	}
	assert.Equal(t, "delhi", NormalizeLocation("  Delhi "))
}

func TestCalculate_DelhiMumbai(t *testing.T) {
	rows := []FleetRow{
		row("delhi", map[string]float64{"scooter": 100, "car": 50}),
		row("mumbai", map[string]float64{"scooter": 200}),
	}
	params := map[string]LocationParameters{
		"delhi":  {StationUtilization: 0.8, OffRoadVehicleFraction: 0.2},
		"mumbai": {StationUtilization: 0.75, OffRoadVehicleFraction: 0.15},
	}

	res, err := Calculate(rows, scooterSpecs(), 1000, params)
	require.NoError(t, err)
	require.Len(t, res.Locations, 2)

	delhi, mumbai := res.Locations[0], res.Locations[1]
	assert.Equal(t, "delhi", delhi.Location)
	assert.InDelta(t, 48, delhi.EnergyRequired, 1e-9)
	assert.InDelta(t, 0.06, delhi.StationsRequired, 1e-9)
	assert.InDelta(t, 150, delhi.TotalVehicles, 1e-9)
	assert.InDelta(t, 120, delhi.OperationalVehicles, 1e-9)
	assert.Equal(t, 1000, delhi.StationCapacity)

	assert.Equal(t, "mumbai", mumbai.Location)
	assert.InDelta(t, 102, mumbai.EnergyRequired, 1e-9)
	assert.InDelta(t, 0.136, mumbai.StationsRequired, 1e-9)

	assert.Equal(t, 0, res.TotalStationsRequired)
}

func TestCalculate_TotalSumsRoundedStations(t *testing.T) {
	tests := []struct {
		name     string
		fleet    float64
		capacity int
		each     float64
		expected int
	}{
		// 600 kWh / (1000 * 1) = 0.6 per location, shown as 1 each.
		{name: "fractions round up before summing", fleet: 1000, capacity: 1000, each: 0.6, expected: 2},
		// 600 kWh / (500 * 1) = 1.2 per location, shown as 1 each.
		{name: "fractions round down before summing", fleet: 1000, capacity: 500, each: 1.2, expected: 2},
		// 750 kWh / (300 * 1) = 2.5 per location, half to even gives 2.
		{name: "halves round to even", fleet: 1250, capacity: 300, each: 2.5, expected: 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := []FleetRow{
				row("a", map[string]float64{"scooter": tt.fleet}),
				row("b", map[string]float64{"scooter": tt.fleet}),
			}
			params := map[string]LocationParameters{
				AllLocations: {StationUtilization: 1, OffRoadVehicleFraction: 0},
			}

			res, err := Calculate(rows, scooterSpecs(), tt.capacity, params)
			require.NoError(t, err)
			assert.InDelta(t, tt.each, res.Locations[0].StationsRequired, 1e-9)
			assert.Equal(t, tt.expected, res.TotalStationsRequired)
		})
	}
}

func TestEnergyDemand_SumsInColumnOrder(t *testing.T) {
	specs := map[string]VehicleTypeSpec{
		"scooter": {AverageDistancePerDay: ptr(0.1), EnergyPerDistance: ptr(1000)},
		"car":     {AverageDistancePerDay: ptr(0.2), EnergyPerDistance: ptr(1000)},
		"bus":     {AverageDistancePerDay: ptr(0.3), EnergyPerDistance: ptr(1000)},
	}
	vehicles := map[string]float64{"scooter": 1, "car": 1, "bus": 1}
	fr := FleetRow{Location: "a", Vehicles: vehicles, Columns: []string{"scooter", "car", "bus"}}

	want := 0.1
	want += 0.2
	want += 0.3

	for range 50 {
		assert.Equal(t, want, EnergyDemand(fr, specs, 0))
	}
}

func TestColumnOrder(t *testing.T) {
	fr := FleetRow{
		Vehicles: map[string]float64{"car": 1, "scooter": 2, "van": 3, "bus": 4},
		Columns:  []string{"scooter", "", "car", "scooter"},
	}
	assert.Equal(t, []string{"scooter", "car", "bus", "van"}, columnOrder(fr))
	assert.Equal(t, 10.0, TotalVehicles(fr))
}

func TestCalculate_NoOffRoadKeepsWholeFleetOperational(t *testing.T) {
	rows := []FleetRow{
		row("a", map[string]float64{"scooter": 12, "van": 3}),
		row("b", map[string]float64{"bus": 40}),
	}
	params := map[string]LocationParameters{AllLocations: {StationUtilization: 0.9}}

	res, err := Calculate(rows, scooterSpecs(), 800, params)
	require.NoError(t, err)
	for _, loc := range res.Locations {
		assert.Equal(t, loc.TotalVehicles, loc.OperationalVehicles, loc.Location)
	}
}

func TestCalculate_MissingParameters(t *testing.T) {
	rows := []FleetRow{row("delhi", map[string]float64{"scooter": 1})}
	params := map[string]LocationParameters{"mumbai": {StationUtilization: 0.5}}

	_, err := Calculate(rows, scooterSpecs(), 1000, params)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingParameters))
}
