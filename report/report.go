// Package report shapes sizing results into the payload consumed by the
// narration oracle and presentation layers.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"text/tabwriter"

	"swapplanner/sizing"
)

// LocationBreakdown is one entry of city_breakdown.
type LocationBreakdown struct {
	Vehicles                  map[string]float64 `json:"vehicles"`
	TotalVehicles             float64            `json:"total_vehicles"`
	OperationalVehicles       float64            `json:"operational_vehicles"`
	EnergyRequired            float64            `json:"energy_required"`
	SwappableEnergyPerStation float64            `json:"swappable_energy_per_station"`
	StationsRequired          float64            `json:"stations_required"`
}

// Report is either a city breakdown with its total or, when Error is set, a
// failure payload that marshals as {"error": "..."}.
type Report struct {
	CityBreakdown         map[string]LocationBreakdown `json:"city_breakdown"`
	TotalStationsRequired int                          `json:"total_stations_required"`
	Error                 string                       `json:"error,omitempty"`
}

// Assemble converts an engine result. Energy is rounded to two decimals,
// capacity and stations to whole numbers (half to even). The total is taken
// from the engine unchanged.
func Assemble(res sizing.Result) Report {
	r := Report{
		CityBreakdown:         make(map[string]LocationBreakdown, len(res.Locations)),
		TotalStationsRequired: res.TotalStationsRequired,
	}
	for _, loc := range res.Locations {
		r.CityBreakdown[loc.Location] = LocationBreakdown{
			Vehicles:                  loc.Vehicles,
			TotalVehicles:             loc.TotalVehicles,
			OperationalVehicles:       loc.OperationalVehicles,
			EnergyRequired:            roundTo(loc.EnergyRequired, 2),
			SwappableEnergyPerStation: roundTo(float64(loc.StationCapacity), 0),
			StationsRequired:          roundTo(loc.StationsRequired, 0),
		}
	}
	return r
}

// Failure builds the error payload for a failed calculation.
func Failure(err error) Report {
	return Report{Error: err.Error()}
}

func (r Report) Failed() bool { return r.Error != "" }

func (r Report) MarshalJSON() ([]byte, error) {
	if r.Failed() {
		return json.Marshal(map[string]string{"error": r.Error})
	}
	type plain Report
	p := plain(r)
	if p.CityBreakdown == nil {
		p.CityBreakdown = map[string]LocationBreakdown{}
	}
	return json.Marshal(p)
}

// Locations returns the breakdown keys in sorted order.
func (r Report) Locations() []string {
	names := make([]string, 0, len(r.CityBreakdown))
	for name := range r.CityBreakdown {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// TotalVehicles sums total_vehicles over every location.
func (r Report) TotalVehicles() float64 {
	var total float64
	for _, b := range r.CityBreakdown {
		total += b.TotalVehicles
	}
	return total
}

// Table renders the breakdown as an aligned plain-text table followed by the
// totals line.
func (r Report) Table() string {
	if r.Failed() {
		return "calculation failed: " + r.Error
	}

	var sb strings.Builder
	tw := tabwriter.NewWriter(&sb, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "City\tTotal vehicles\tOperational\tStations\tEnergy (kWh)\tkWh/station\t")
	for _, name := range r.Locations() {
		b := r.CityBreakdown[name]
		fmt.Fprintf(tw, "%s\t%.0f\t%.0f\t%.0f\t%.2f\t%.2f\t\n",
			name, b.TotalVehicles, b.OperationalVehicles, b.StationsRequired, b.EnergyRequired, b.SwappableEnergyPerStation)
	}
	tw.Flush()

	fmt.Fprintf(&sb, "Total stations: %d | Total vehicles: %.0f\n", r.TotalStationsRequired, r.TotalVehicles())
	return sb.String()
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.RoundToEven(v*scale) / scale
}
