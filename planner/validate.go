package planner

import (
	"fmt"
	"sort"
	"strings"

	"swapplanner"
	"swapplanner/sizing"
)

const (
	fieldStationUtilization = "station utilization percentage"
	fieldOffRoadVehicles    = "off road vehicle percentage"
)

// ValidationError lists, per location, the parameters the user still has to
// provide.
type ValidationError struct {
	Messages []string
}

func (e *ValidationError) Error() string {
	return "missing location parameters: " + strings.Join(e.Messages, " ")
}

// EntityMap keys extracted entities by normalized name. Later duplicates win.
// No entities at all means a single "all" entry with nothing filled in.
func EntityMap(entities []swapplanner.Entity) map[string]swapplanner.Entity {
	if len(entities) == 0 {
		return map[string]swapplanner.Entity{sizing.AllLocations: {Name: sizing.AllLocations}}
	}
	m := make(map[string]swapplanner.Entity, len(entities))
	for _, e := range entities {
		m[sizing.NormalizeLocation(e.Name)] = e
	}
	return m
}

// Validate checks every location has both percentages and converts them into
// sizing fractions.
func Validate(entities map[string]swapplanner.Entity) (map[string]sizing.LocationParameters, error) {
	names := make([]string, 0, len(entities))
	for name := range entities {
		names = append(names, name)
	}
	sort.Strings(names)

	params := make(map[string]sizing.LocationParameters, len(entities))
	var messages []string
	for _, name := range names {
		e := entities[name]
		var missing []string
		if e.StationUtilizationPercentage == nil {
			missing = append(missing, fieldStationUtilization)
		}
		if e.OffRoadVehiclePercentage == nil {
			missing = append(missing, fieldOffRoadVehicles)
		}
		if len(missing) > 0 {
			messages = append(messages, fmt.Sprintf("Please provide %s for '%s'.", strings.Join(missing, " and "), name))
			continue
		}
		params[name] = sizing.LocationParameters{
			StationUtilization:     *e.StationUtilizationPercentage / 100,
			OffRoadVehicleFraction: *e.OffRoadVehiclePercentage / 100,
		}
	}

	if len(messages) > 0 {
		return nil, &ValidationError{Messages: messages}
	}
	return params, nil
}
