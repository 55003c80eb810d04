package sizing

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
)

var ErrMissingParameters = errors.New("no parameters for location")

// EnergyDemand returns the daily energy (kWh) needed by the operational part
// of a location's fleet. Vehicle types missing from specs, or whose spec is
// incomplete, add nothing. Terms are summed in column order.
func EnergyDemand(row FleetRow, specs map[string]VehicleTypeSpec, offRoadFraction float64) float64 {
	var total float64
	for _, vehicleType := range columnOrder(row) {
		spec, ok := specs[vehicleType]
		if !ok || !spec.complete() {
			continue
		}
		effective := row.Vehicles[vehicleType] * (1 - offRoadFraction)
		total += effective * *spec.AverageDistancePerDay * *spec.EnergyPerDistance / whPerKWh
	}
	return total
}

// StationsRequired returns how many stations of the given capacity cover
// demand at the target utilization. A non-positive capacity or utilization
// yields exactly 0 rather than an error.
func StationsRequired(energyDemand float64, stationCapacity int, utilization float64) float64 {
	if stationCapacity > 0 && utilization > 0 {
		return energyDemand / (float64(stationCapacity) * utilization)
	}
	return 0
}

// TotalVehicles sums every count in the row, including vehicle types the
// reference sheet does not know about.
func TotalVehicles(row FleetRow) float64 {
	var total float64
	for _, vehicleType := range columnOrder(row) {
		total += row.Vehicles[vehicleType]
	}
	return total
}

// columnOrder returns each vehicle type once, in sheet order, followed by
// any types missing from the header in sorted order.
func columnOrder(row FleetRow) []string {
	order := make([]string, 0, len(row.Vehicles))
	seen := make(map[string]bool, len(row.Vehicles))
	for _, vehicleType := range row.Columns {
		if _, ok := row.Vehicles[vehicleType]; ok && !seen[vehicleType] {
			seen[vehicleType] = true
			order = append(order, vehicleType)
		}
	}
	rest := make([]string, 0, len(row.Vehicles)-len(order))
	for vehicleType := range row.Vehicles {
		if !seen[vehicleType] {
			rest = append(rest, vehicleType)
		}
	}
	sort.Strings(rest)
	return append(order, rest...)
}

// Calculate sizes every row. Parameters are looked up by location, falling
// back to the AllLocations entry. The grand total sums the per-location
// station counts rounded half to even, as displayed, then truncates.
func Calculate(rows []FleetRow, specs map[string]VehicleTypeSpec, stationCapacity int, params map[string]LocationParameters) (Result, error) {
	res := Result{Locations: make([]LocationResult, 0, len(rows))}
	var totalStations float64

	for _, row := range rows {
		p, ok := params[row.Location]
		if !ok {
			p, ok = params[AllLocations]
		}
		if !ok {
			return Result{}, fmt.Errorf("%w: %q", ErrMissingParameters, row.Location)
		}

		demand := EnergyDemand(row, specs, p.OffRoadVehicleFraction)
		stations := StationsRequired(demand, stationCapacity, p.StationUtilization)
		total := TotalVehicles(row)

		res.Locations = append(res.Locations, LocationResult{
			Location:            row.Location,
			Vehicles:            row.Vehicles,
			Columns:             row.Columns,
			TotalVehicles:       total,
			OperationalVehicles: total * (1 - p.OffRoadVehicleFraction),
			EnergyRequired:      demand,
			StationCapacity:     stationCapacity,
			StationsRequired:    stations,
		})
		totalStations += math.RoundToEven(stations)

		slog.Info("SIZING: Location sized",
			"location", row.Location,
			"energy_kwh", demand,
			"stations_required", stations,
		)
	}

	res.TotalStationsRequired = int(totalStations)
	return res, nil
}
