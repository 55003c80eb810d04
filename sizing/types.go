package sizing

import "strings"

// AllLocations is the location key meaning "every row of the fleet table".
const AllLocations = "all"

// whPerKWh converts the reference sheet's Wh/km figures into kWh.
const whPerKWh = 1000.0

// LocationParameters are the user-declared operating assumptions for one
// location, as fractions.
type LocationParameters struct {
	StationUtilization     float64 `json:"station_utilization"`
	OffRoadVehicleFraction float64 `json:"off_road_vehicle_fraction"`
}

// VehicleTypeSpec is one row of the reference vehicle mix. A nil field means
// the sheet cell was empty or not a number.
type VehicleTypeSpec struct {
	AverageDistancePerDay *float64 `json:"avg_km_per_day,omitempty"`
	EnergyPerDistance     *float64 `json:"wh_per_km,omitempty"`
}

func (s VehicleTypeSpec) complete() bool {
	return s.AverageDistancePerDay != nil && s.EnergyPerDistance != nil
}

// FleetRow is one location's vehicle counts keyed by vehicle type. Columns
// keeps the sheet's header order.
type FleetRow struct {
	Location string
	Vehicles map[string]float64
	Columns  []string
}

// LocationResult is the sizing outcome for one location. StationsRequired is
// not rounded.
type LocationResult struct {
	Location            string
	Vehicles            map[string]float64
	Columns             []string
	TotalVehicles       float64
	OperationalVehicles float64
	EnergyRequired      float64
	StationCapacity     int
	StationsRequired    float64
}

// Result holds every location in fleet table order plus the grand total.
type Result struct {
	Locations             []LocationResult
	TotalStationsRequired int
}

// NormalizeLocation trims and lowercases a location name.
func NormalizeLocation(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
