package planner

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"swapplanner/report"
	"swapplanner/sheets"
	"swapplanner/sizing"
)

// Calculator runs the loaders and the sizing engine against one workbook.
type Calculator struct {
	workbook     sheets.Workbook
	capacityCell string
}

func NewCalculator(wb sheets.Workbook, capacityCell string) *Calculator {
	return &Calculator{workbook: wb, capacityCell: capacityCell}
}

// Calculate sizes the locations named in params, or every location when params
// only holds the "all" entry.
func (c *Calculator) Calculate(ctx context.Context, params map[string]sizing.LocationParameters) (report.Report, error) {
	rows, err := sheets.LoadFleet(ctx, c.workbook, locationsOf(params))
	if err != nil {
		return report.Report{}, err
	}

	rawCapacity, specs, err := sheets.LoadReference(ctx, c.workbook, c.capacityCell)
	if err != nil {
		return report.Report{}, err
	}

	res, err := sizing.Calculate(rows, specs, sheets.ParseCapacity(rawCapacity), params)
	if err != nil {
		return report.Report{}, fmt.Errorf("size stations: %w", err)
	}
	return report.Assemble(res), nil
}

// CalculateSwapStations is the calculation entrypoint. Failures come back as
// an error payload instead of an error value.
func (c *Calculator) CalculateSwapStations(ctx context.Context, params map[string]sizing.LocationParameters) report.Report {
	start := time.Now()
	rep, err := c.Calculate(ctx, params)
	if err != nil {
		slog.Error("CALCULATOR: Swap station calculation failed", "error", err, "locations", locationsOf(params))
		return report.Failure(err)
	}

	slog.Info("CALCULATOR: Calculation completed",
		"total_stations", rep.TotalStationsRequired,
		"locations", len(rep.CityBreakdown),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return rep
}

func locationsOf(params map[string]sizing.LocationParameters) []string {
	if len(params) == 0 {
		return []string{sizing.AllLocations}
	}
	names := make([]string, 0, len(params))
	for name := range params {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
