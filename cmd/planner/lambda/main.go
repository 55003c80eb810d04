package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/joeshaw/envdecode"

	"swapplanner"
	"swapplanner/oracle/bedrock"
	"swapplanner/planner"
	"swapplanner/report"
	"swapplanner/sheets"
	"swapplanner/slack"
)

// Request carries the whole conversation so the function stays stateless.
// When Entities is set the conversation is skipped and the stations are
// calculated directly.
type Request struct {
	SessionID string               `json:"session_id"`
	Messages  []swapplanner.Turn   `json:"messages"`
	Message   string               `json:"message"`
	Entities  []swapplanner.Entity `json:"entities,omitempty"`
}

type Response struct {
	SessionID   string             `json:"session_id"`
	Reply       *swapplanner.Turn  `json:"reply,omitempty"`
	Messages    []swapplanner.Turn `json:"messages,omitempty"`
	Result      *report.Report     `json:"result,omitempty"`
	MissingInfo []string           `json:"missing_info,omitempty"`
}

type handler struct {
	planner *planner.Planner
	calc    *planner.Calculator
	slack   *slack.Client
}

func main() {
	ctx := context.Background()

	var modelConfig swapplanner.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}
	var plannerConfig swapplanner.PlannerConfig
	if err := envdecode.Decode(&plannerConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}
	var s3Config swapplanner.S3Config
	if err := envdecode.Decode(&s3Config); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	if err != nil {
		log.Fatalf("Failed to load AWS config: %s", err)
	}

	workbook := sheets.NewS3Workbook(s3.NewFromConfig(awsCfg), s3Config.Bucket, s3Config.FleetKey, s3Config.ReferenceKey)
	slog.Info("SETUP: S3 workbook configured", "bucket", s3Config.Bucket, "fleet_key", s3Config.FleetKey, "reference_key", s3Config.ReferenceKey)

	oracle := bedrock.NewOracle(bedrockruntime.NewFromConfig(awsCfg), bedrock.Options{
		ModelID:     modelConfig.ModelID,
		MaxTokens:   modelConfig.MaxTokens,
		Temperature: modelConfig.Temperature,
		TopP:        modelConfig.TopP,
		Pricing:     swapplanner.Pricing{PerKInput: modelConfig.PricePer1KInput, PerKOutput: modelConfig.PricePer1KOutput},
	})

	_, _, otelShutdown, err := swapplanner.InitOtel(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize OpenTelemetry: %s", err)
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	calc := planner.NewCalculator(workbook, plannerConfig.CapacityCell)
	h := &handler{
		calc: calc,
		planner: planner.NewPlanner(oracle, calc, planner.Options{
			MaxHistory: plannerConfig.MaxHistory,
			SheetURL:   plannerConfig.SheetURL,
			Logger:     swapplanner.NewStdoutTurnLogger(),
		}),
	}
	if plannerConfig.SlackWebhookURL != "" {
		h.slack = slack.NewClient(plannerConfig.SlackWebhookURL, plannerConfig.SlackChannel, http.DefaultClient)
	}

	lambda.Start(h.handle)
}

func (h *handler) handle(ctx context.Context, req Request) (Response, error) {
	if len(req.Entities) > 0 {
		return h.calculate(ctx, req)
	}

	if strings.TrimSpace(req.Message) == "" {
		return Response{}, errors.New("message is required")
	}

	sess := planner.ResumeSession(req.SessionID, req.Messages)
	turn, err := h.planner.HandleTurn(ctx, sess, req.Message)
	if err != nil {
		slog.Error("RESULT: Error handling turn", "session_id", sess.ID, "error", err)
		return Response{}, err
	}

	if turn.Data != nil && h.slack != nil {
		if err := h.slack.PostReport(ctx, turn.Content, turn.Data); err != nil {
			slog.Error("RESULT: Failed to post result to Slack", "error", err)
		}
	}

	return Response{
		SessionID: sess.ID,
		Reply:     &turn,
		Messages:  sess.History,
		Result:    turn.Data,
	}, nil
}

// calculate runs the calculation entrypoint without the conversation.
func (h *handler) calculate(ctx context.Context, req Request) (Response, error) {
	params, err := planner.Validate(planner.EntityMap(req.Entities))
	if err != nil {
		var verr *planner.ValidationError
		if errors.As(err, &verr) {
			return Response{SessionID: req.SessionID, MissingInfo: verr.Messages}, nil
		}
		return Response{}, fmt.Errorf("validate entities: %w", err)
	}

	rep := h.calc.CalculateSwapStations(ctx, params)
	return Response{SessionID: req.SessionID, Result: &rep}, nil
}
