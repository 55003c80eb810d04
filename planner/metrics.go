package planner

import "go.opentelemetry.io/otel/metric"

type plannerMetrics struct {
	turns               metric.Int64Counter
	missingInfo         metric.Int64Counter
	confirmations       metric.Int64Counter
	calculations        metric.Int64Counter
	calculationFailures metric.Int64Counter
	oracleDuration      metric.Float64Histogram
	stationsRequired    metric.Int64Gauge
}

// Instrument creation only fails on invalid names; the errors are ignored and
// the returned instruments are still usable no-ops.
func newPlannerMetrics(meter metric.Meter) plannerMetrics {
	var m plannerMetrics
	m.turns, _ = meter.Int64Counter("planner_turns_total",
		metric.WithDescription("Total number of user turns handled, by intent"))
	m.missingInfo, _ = meter.Int64Counter("planner_missing_info_total",
		metric.WithDescription("Total number of calculation requests missing location parameters"))
	m.confirmations, _ = meter.Int64Counter("planner_confirmations_total",
		metric.WithDescription("Total number of confirmation checks, by state"))
	m.calculations, _ = meter.Int64Counter("planner_calculations_total",
		metric.WithDescription("Total number of station calculations started"))
	m.calculationFailures, _ = meter.Int64Counter("planner_calculation_failures_total",
		metric.WithDescription("Total number of station calculations that failed"))
	m.oracleDuration, _ = meter.Float64Histogram("oracle_call_duration_seconds",
		metric.WithDescription("Time taken by a single oracle call in seconds"))
	m.stationsRequired, _ = meter.Int64Gauge("stations_required_total",
		metric.WithDescription("Total stations required by the latest calculation"))
	return m
}
