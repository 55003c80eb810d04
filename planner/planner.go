// Package planner turns user turns into station calculations. There is no
// stored state machine: every turn replays the recent history through the
// oracles and re-derives where the conversation stands.
package planner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"swapplanner"
	"swapplanner/report"
	"swapplanner/sheets"
	"swapplanner/sizing"
)

const DefaultMaxHistory = 20

const (
	fallbackReply = "I'm not sure how to assist with that. Please ask about battery swap stations or related services."

	missingInfoReply = "I need some more information to proceed with the calculation. Please provide the following details for each location:"

	reviewReply = "Please review the vehicle data and underlying assumptions using the provided [reference sheet](%s). " +
		"Once you've verified and updated it with the latest information, let me know so I can proceed with the next steps. Thanks!"

	calculationFailedReply = "Sorry, I couldn't complete the station calculation. Please check the vehicle data sheet and try again."

	noMatchReply = "I couldn't find %s in the vehicle data sheet. Please check the location names and try again."
)

type calculator interface {
	Calculate(ctx context.Context, params map[string]sizing.LocationParameters) (report.Report, error)
}

// Options configures a Planner. Zero values fall back to defaults and the
// global OpenTelemetry providers.
type Options struct {
	MaxHistory int
	SheetURL   string
	Logger     swapplanner.TurnLogger
	Tracer     trace.Tracer
	Meter      metric.Meter
}

// Planner is the conversation state machine.
type Planner struct {
	oracle     swapplanner.Oracle
	calc       calculator
	maxHistory int
	sheetURL   string
	logger     swapplanner.TurnLogger
	tracer     trace.Tracer
	metrics    plannerMetrics
}

func NewPlanner(oracle swapplanner.Oracle, calc calculator, opts Options) *Planner {
	if opts.MaxHistory == 0 {
		opts.MaxHistory = DefaultMaxHistory
	}
	if opts.Logger == nil {
		opts.Logger = swapplanner.NewNoOpTurnLogger()
	}
	if opts.Tracer == nil {
		opts.Tracer = otel.Tracer(swapplanner.TracerNamePlanner)
	}
	if opts.Meter == nil {
		opts.Meter = otel.Meter(swapplanner.MeterNamePlanner)
	}
	return &Planner{
		oracle:     oracle,
		calc:       calc,
		maxHistory: opts.MaxHistory,
		sheetURL:   opts.SheetURL,
		logger:     opts.Logger,
		tracer:     opts.Tracer,
		metrics:    newPlannerMetrics(opts.Meter),
	}
}

// HandleTurn processes one user message and returns the assistant reply. The
// session only changes when the whole turn succeeds.
func (p *Planner) HandleTurn(ctx context.Context, sess *Session, text string) (swapplanner.Turn, error) {
	ctx, span := p.tracer.Start(ctx, "Planner.HandleTurn", trace.WithAttributes(
		attribute.String("session.id", sess.ID),
		attribute.Int("session.turns", len(sess.History)),
	))
	defer span.End()

	history := append(slices.Clone(sess.History), swapplanner.Turn{Role: swapplanner.RoleUser, Content: text})
	window := recent(history, p.maxHistory)

	tlog := swapplanner.TurnLog{
		SessionID: sess.ID,
		Turn:      len(history),
		Timestamp: time.Now(),
		UserInput: text,
	}

	slog.Info("PLANNER: Handling turn",
		"session_id", sess.ID,
		"turn", len(history),
		"replayed_turns", len(window),
	)

	reply, err := p.dispatch(ctx, window, &tlog)
	if err != nil {
		tlog.Error = err.Error()
		p.logTurn(tlog)
		span.SetStatus(codes.Error, "turn failed")
		span.RecordError(err)
		return swapplanner.Turn{}, err
	}

	sess.History = append(history, reply)
	if reply.Data != nil {
		sess.LastResult = reply.Data
	}

	tlog.Reply = reply.Content
	p.logTurn(tlog)
	return reply, nil
}

func (p *Planner) dispatch(ctx context.Context, window []swapplanner.Turn, tlog *swapplanner.TurnLog) (swapplanner.Turn, error) {
	var intent swapplanner.Intent
	err := p.observe(ctx, "classify_intent", func(ctx context.Context) error {
		var err error
		intent, err = p.oracle.ClassifyIntent(ctx, window)
		return err
	})
	if err != nil {
		var oerr *swapplanner.OracleError
		if !errors.As(err, &oerr) {
			return swapplanner.Turn{}, fmt.Errorf("classify intent: %w", err)
		}
		slog.Warn("PLANNER: Unparseable intent, using fallback", "error", err, "raw", oerr.Raw)
		intent = ""
	}

	tlog.Intent = string(intent)
	p.metrics.turns.Add(ctx, 1, metric.WithAttributes(attribute.String("intent", string(intent))))
	slog.Info("PLANNER: Intent classified", "intent", intent)

	switch intent {
	case swapplanner.IntentCalculateStations:
		return p.handleCalculation(ctx, window, tlog)

	case swapplanner.IntentGreeting, swapplanner.IntentNegativeFeedback, swapplanner.IntentIrrelevant:
		var text string
		err := p.observe(ctx, "respond", func(ctx context.Context) error {
			var err error
			text, err = p.oracle.Respond(ctx, intent, window)
			return err
		})
		if err != nil {
			return swapplanner.Turn{}, fmt.Errorf("respond to %s: %w", intent, err)
		}
		return assistant(text, nil), nil

	default:
		return assistant(fallbackReply, nil), nil
	}
}

func (p *Planner) handleCalculation(ctx context.Context, window []swapplanner.Turn, tlog *swapplanner.TurnLog) (swapplanner.Turn, error) {
	var entities []swapplanner.Entity
	err := p.observe(ctx, "extract_entities", func(ctx context.Context) error {
		var err error
		entities, err = p.oracle.ExtractEntities(ctx, window)
		return err
	})
	if err != nil {
		return swapplanner.Turn{}, fmt.Errorf("extract entities: %w", err)
	}
	tlog.Entities = entities

	byName := EntityMap(entities)
	params, err := Validate(byName)
	if err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			return swapplanner.Turn{}, err
		}
		for _, msg := range verr.Messages {
			slog.Warn("PLANNER: Missing information for calculation", "message", msg)
		}
		tlog.MissingInfo = verr.Messages
		p.metrics.missingInfo.Add(ctx, 1)
		return assistant(missingInfoReply+"\n\n"+strings.Join(verr.Messages, "\n"), nil), nil
	}

	var state swapplanner.ConfirmationState
	err = p.observe(ctx, "classify_confirmation", func(ctx context.Context) error {
		var err error
		state, err = p.oracle.ClassifyConfirmation(ctx, window)
		return err
	})
	if err != nil {
		var oerr *swapplanner.OracleError
		if !errors.As(err, &oerr) {
			return swapplanner.Turn{}, fmt.Errorf("classify confirmation: %w", err)
		}
		slog.Warn("PLANNER: Unparseable confirmation state, assuming not confirmed", "error", err, "raw", oerr.Raw)
		state = swapplanner.NotConfirmed
	}

	tlog.Confirmation = string(state)
	p.metrics.confirmations.Add(ctx, 1, metric.WithAttributes(attribute.String("state", string(state))))
	slog.Info("PLANNER: User confirmation state", "state", state)

	if state != swapplanner.Confirmed {
		return assistant(fmt.Sprintf(reviewReply, p.sheetURL), nil), nil
	}

	rep, err := p.calculate(ctx, params)
	tlog.Result = &rep
	if err != nil {
		return assistant(failureReply(err, params), nil), nil
	}

	var summary string
	err = p.observe(ctx, "narrate", func(ctx context.Context) error {
		var err error
		summary, err = p.oracle.Narrate(ctx, rep, byName)
		return err
	})
	if err != nil {
		return swapplanner.Turn{}, fmt.Errorf("narrate result: %w", err)
	}

	return assistant(summary, &rep), nil
}

// calculate runs the engine. A failure is returned both as an error payload
// and as the error, so callers can pick the reply.
func (p *Planner) calculate(ctx context.Context, params map[string]sizing.LocationParameters) (report.Report, error) {
	ctx, span := p.tracer.Start(ctx, "Planner.Calculate", trace.WithAttributes(
		attribute.Int("locations", len(params)),
	))
	defer span.End()

	p.metrics.calculations.Add(ctx, 1)
	rep, err := p.calc.Calculate(ctx, params)
	if err != nil {
		slog.Error("PLANNER: Calculation failed", "error", err)
		p.metrics.calculationFailures.Add(ctx, 1)
		span.SetStatus(codes.Error, "calculation failed")
		span.RecordError(err)
		return report.Failure(err), err
	}

	p.metrics.stationsRequired.Record(ctx, int64(rep.TotalStationsRequired))
	span.SetAttributes(attribute.Int("stations.total", rep.TotalStationsRequired))
	return rep, nil
}

func failureReply(err error, params map[string]sizing.LocationParameters) string {
	if errors.Is(err, sheets.ErrNoMatchingLocations) {
		names := locationsOf(params)
		quoted := make([]string, len(names))
		for i, n := range names {
			quoted[i] = "'" + n + "'"
		}
		return fmt.Sprintf(noMatchReply, strings.Join(quoted, ", "))
	}
	return calculationFailedReply
}

// observe wraps one oracle call in a span and records its latency.
func (p *Planner) observe(ctx context.Context, op string, call func(ctx context.Context) error) error {
	ctx, span := p.tracer.Start(ctx, "Oracle."+op)
	defer span.End()

	start := time.Now()
	err := call(ctx)
	p.metrics.oracleDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attribute.String("op", op)))
	if err != nil {
		span.SetStatus(codes.Error, op+" failed")
		span.RecordError(err)
	}
	return err
}

func (p *Planner) logTurn(tlog swapplanner.TurnLog) {
	if err := p.logger.LogTurn(tlog); err != nil {
		slog.Error("PLANNER: Failed to log turn", "error", err, "turn", tlog.Turn)
	}
}

func assistant(text string, data *report.Report) swapplanner.Turn {
	return swapplanner.Turn{Role: swapplanner.RoleAssistant, Content: text, Data: data}
}
