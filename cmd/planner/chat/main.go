package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/joeshaw/envdecode"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"swapplanner"
	"swapplanner/oracle/bedrock"
	"swapplanner/oracle/mock"
	"swapplanner/oracle/ollama"
	"swapplanner/planner"
	"swapplanner/sheets"
	"swapplanner/slack"
)

func main() {
	ctx := context.Background()

	var plannerConfig swapplanner.PlannerConfig
	if err := envdecode.Decode(&plannerConfig); err != nil {
		log.Fatalf("Failed to decode: %s", err)
	}

	workbook := sheets.NewFileWorkbook(
		filepath.Join(plannerConfig.SheetsDir, "fleet.csv"),
		filepath.Join(plannerConfig.SheetsDir, "reference.csv"),
	)

	oracle, modelID, err := newOracle(ctx, plannerConfig, workbook)
	if err != nil {
		slog.Error("SETUP: Failed to create oracle", "backend", plannerConfig.OracleBackend, "error", err)
		return
	}
	slog.Info("SETUP: Oracle ready", "backend", plannerConfig.OracleBackend, "model", modelID)

	logger, cleanup, err := newTurnLogger(modelID)
	if err != nil {
		slog.Error("SETUP: Failed to create turn logger", "error", err)
		return
	}
	defer func() {
		if err := cleanup(); err != nil {
			slog.Error("SETUP: Failed to flush turn log", "error", err)
		}
	}()

	tracerProvider, _, otelShutdown, err := swapplanner.InitOtel(ctx)
	if err != nil {
		slog.Error("SETUP: Failed to initialize OpenTelemetry", "error", err)
		return
	}
	defer func() {
		if err := otelShutdown(ctx); err != nil {
			slog.Error("SETUP: Failed to shutdown OpenTelemetry", "error", err)
		}
	}()

	ctx, span := tracerProvider.Tracer(swapplanner.TracerNamePlanner).Start(ctx, "chat", trace.WithAttributes(
		attribute.String("oracle.backend", plannerConfig.OracleBackend),
		attribute.String("model.id", modelID),
	))
	defer span.End()

	var slackClient *slack.Client
	if plannerConfig.SlackWebhookURL != "" {
		slackClient = slack.NewClient(plannerConfig.SlackWebhookURL, plannerConfig.SlackChannel, http.DefaultClient)
	}

	p := planner.NewPlanner(oracle, planner.NewCalculator(workbook, plannerConfig.CapacityCell), planner.Options{
		MaxHistory: plannerConfig.MaxHistory,
		SheetURL:   plannerConfig.SheetURL,
		Logger:     logger,
	})

	run(ctx, p, plannerConfig, slackClient)
}

func run(ctx context.Context, p *planner.Planner, cfg swapplanner.PlannerConfig, slackClient *slack.Client) {
	sess := planner.NewSession()
	fmt.Println("Battery swap station planner. /new starts over, /table shows the last result, /quit exits.")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		text := strings.TrimSpace(scanner.Text())

		switch text {
		case "":
			continue
		case "/quit", "/exit":
			return
		case "/new":
			sess.Reset()
			fmt.Println("Started a new chat.")
			continue
		case "/table":
			if sess.LastResult == nil {
				fmt.Println("No calculation yet.")
				continue
			}
			fmt.Print(sess.LastResult.Table())
			continue
		}

		turn, err := p.HandleTurn(ctx, sess, text)
		if err != nil {
			slog.Error("RESULT: Error handling turn", "error", err)
			fmt.Println("Something went wrong talking to the model. Please try again.")
			continue
		}
		fmt.Println(turn.Content)

		if turn.Data == nil {
			continue
		}
		fmt.Print(turn.Data.Table())
		if cfg.Debug {
			swapplanner.Dump(os.Stderr, turn.Data)
		}
		if slackClient != nil {
			if err := slackClient.PostReport(ctx, turn.Content, turn.Data); err != nil {
				slog.Error("RESULT: Failed to post result to Slack", "error", err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		slog.Error("RESULT: Failed to read input", "error", err)
	}
}

func newOracle(ctx context.Context, cfg swapplanner.PlannerConfig, wb sheets.Workbook) (swapplanner.Oracle, string, error) {
	if cfg.OracleBackend == "mock" {
		rows, err := sheets.LoadFleet(ctx, wb, nil)
		if err != nil {
			return nil, "", fmt.Errorf("load fleet locations: %w", err)
		}
		locations := make([]string, len(rows))
		for i, r := range rows {
			locations[i] = r.Location
		}
		return mock.NewOracle(locations...), "mock", nil
	}

	var modelConfig swapplanner.ModelConfig
	if err := envdecode.Decode(&modelConfig); err != nil {
		return nil, "", fmt.Errorf("decode model config: %w", err)
	}
	pricing := swapplanner.Pricing{PerKInput: modelConfig.PricePer1KInput, PerKOutput: modelConfig.PricePer1KOutput}

	switch cfg.OracleBackend {
	case "bedrock":
		brc, err := newBedrockRuntimeClient(ctx)
		if err != nil {
			return nil, "", err
		}
		return bedrock.NewOracle(brc, bedrock.Options{
			ModelID:     modelConfig.ModelID,
			MaxTokens:   modelConfig.MaxTokens,
			Temperature: modelConfig.Temperature,
			TopP:        modelConfig.TopP,
			Pricing:     pricing,
		}), modelConfig.ModelID, nil

	case "ollama":
		o, err := ollama.NewOracle(ollama.Opts{
			BaseEndpoint: cfg.BaseOllamaEndpoint,
			ModelID:      modelConfig.ModelID,
			MaxTokens:    int(modelConfig.MaxTokens),
			Temperature:  float64(modelConfig.Temperature),
			TopP:         float64(modelConfig.TopP),
			Pricing:      pricing,
			HTTPClient:   http.DefaultClient,
		})
		return o, modelConfig.ModelID, err

	default:
		return nil, "", fmt.Errorf("unknown oracle backend %q", cfg.OracleBackend)
	}
}

func newBedrockRuntimeClient(ctx context.Context) (*bedrockruntime.Client, error) {
	awsCfg, err := config.LoadDefaultConfig(ctx, config.WithRetryMaxAttempts(5))
	if err != nil {
		return nil, err
	}
	return bedrockruntime.NewFromConfig(awsCfg), nil
}

func newTurnLogger(modelID string) (swapplanner.TurnLogger, func() error, error) {
	logFilePath := swapplanner.NewTurnLogFilePath(modelID)
	if err := os.MkdirAll(filepath.Dir(logFilePath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("failed to create log dir: %w", err)
	}
	logFile, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	logger := swapplanner.NewFileTurnLogger(logFile)
	cleanup := func() error {
		return errors.Join(logger.Flush(), logFile.Close())
	}
	return logger, cleanup, nil
}
