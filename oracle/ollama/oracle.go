// Package ollama implements the planner oracle on a local Ollama server.
// Structured answers use the chat API's JSON schema "format".
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"swapplanner"
	"swapplanner/oracle"
	"swapplanner/report"
)

const defaultModel = "llama3.2"

type options struct {
	Temperature   float64 `json:"temperature"`
	TopP          float64 `json:"top_p,omitempty"`
	RepeatPenalty float64 `json:"repeat_penalty,omitempty"`
	NumCtx        int     `json:"num_ctx,omitempty"`
	NumPredict    int     `json:"num_predict,omitempty"`
}

type Oracle struct {
	endpoint   string
	model      string
	httpClient swapplanner.HTTPClient
	options    options
	pricing    swapplanner.Pricing
}

type Opts struct {
	BaseEndpoint string
	ModelID      string
	MaxTokens    int
	Temperature  float64
	TopP         float64
	Pricing      swapplanner.Pricing
	HTTPClient   swapplanner.HTTPClient
}

func NewOracle(opts Opts) (*Oracle, error) {
	if strings.TrimSpace(opts.BaseEndpoint) == "" {
		return nil, errors.New("ollama base endpoint is required")
	}
	if opts.ModelID == "" {
		opts.ModelID = defaultModel
	}
	if opts.TopP == 0 {
		opts.TopP = 0.9
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = http.DefaultClient
	}

	return &Oracle{
		endpoint:   strings.TrimRight(opts.BaseEndpoint, "/") + "/api/chat",
		model:      opts.ModelID,
		httpClient: opts.HTTPClient,
		pricing:    opts.Pricing,
		options: options{
			Temperature:   opts.Temperature,
			TopP:          opts.TopP,
			RepeatPenalty: 1.05,
			NumCtx:        8192,
			NumPredict:    opts.MaxTokens,
		},
	}, nil
}

type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type wireRequest struct {
	Model    string        `json:"model"`
	Messages []wireMessage `json:"messages"`
	Format   any           `json:"format,omitempty"`
	Stream   bool          `json:"stream"`
	Options  options       `json:"options"`
}

type wireResponse struct {
	Message         wireMessage `json:"message"`
	DoneReason      string      `json:"done_reason"`
	PromptEvalCount int         `json:"prompt_eval_count"`
	EvalCount       int         `json:"eval_count"`
}

func (o *Oracle) ClassifyIntent(ctx context.Context, history []swapplanner.Turn) (swapplanner.Intent, error) {
	raw, err := o.structured(ctx, oracle.IntentTask, history)
	if err != nil {
		return "", err
	}
	return oracle.ParseIntent(raw)
}

func (o *Oracle) ExtractEntities(ctx context.Context, history []swapplanner.Turn) ([]swapplanner.Entity, error) {
	raw, err := o.structured(ctx, oracle.EntityTask, history)
	if err != nil {
		return nil, err
	}
	return oracle.ParseEntities(raw)
}

func (o *Oracle) ClassifyConfirmation(ctx context.Context, history []swapplanner.Turn) (swapplanner.ConfirmationState, error) {
	raw, err := o.structured(ctx, oracle.ConfirmationTask, history)
	if err != nil {
		return swapplanner.NotConfirmed, err
	}
	return oracle.ParseConfirmation(raw)
}

func (o *Oracle) Narrate(ctx context.Context, result report.Report, entities map[string]swapplanner.Entity) (string, error) {
	system, user, err := oracle.NarrationPrompt(result, entities)
	if err != nil {
		return "", err
	}
	opts := o.options
	opts.NumPredict = oracle.NarrationMaxTokens
	return o.text(ctx, oracle.OpNarrate, wireRequest{
		Model:    o.model,
		Messages: []wireMessage{{Role: "system", Content: system}, {Role: swapplanner.RoleUser, Content: user}},
		Options:  opts,
	})
}

func (o *Oracle) Respond(ctx context.Context, intent swapplanner.Intent, history []swapplanner.Turn) (string, error) {
	system, err := oracle.RespondPrompt(intent)
	if err != nil {
		return "", err
	}
	return o.text(ctx, oracle.OpRespond, wireRequest{
		Model:    o.model,
		Messages: messages(system, history),
		Options:  o.options,
	})
}

func (o *Oracle) structured(ctx context.Context, task oracle.Task, history []swapplanner.Turn) (string, error) {
	wr, err := o.chat(ctx, task.Op, wireRequest{
		Model:    o.model,
		Messages: messages(task.System, history),
		Format:   task.Schema,
		Options:  o.options,
	})
	if err != nil {
		return "", err
	}
	return wr.Message.Content, nil
}

func (o *Oracle) text(ctx context.Context, op string, req wireRequest) (string, error) {
	wr, err := o.chat(ctx, op, req)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(wr.Message.Content)
	if text == "" {
		return "", &swapplanner.OracleError{Op: op, Err: fmt.Errorf("empty response (done reason %q)", wr.DoneReason)}
	}
	return text, nil
}

func (o *Oracle) chat(ctx context.Context, op string, body wireRequest) (wireResponse, error) {
	slog.Info("ORACLE: Invoking Ollama", "op", op, "model", o.model, "messages_len", len(body.Messages))

	reqBytes, err := json.Marshal(body)
	if err != nil {
		return wireResponse{}, fmt.Errorf("ollama %s: marshal request: %w", op, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.endpoint, bytes.NewReader(reqBytes))
	if err != nil {
		return wireResponse{}, fmt.Errorf("ollama %s: %w", op, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return wireResponse{}, fmt.Errorf("ollama %s: %w", op, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return wireResponse{}, fmt.Errorf("ollama %s: read response: %w", op, err)
	}
	if resp.StatusCode != http.StatusOK {
		return wireResponse{}, fmt.Errorf("ollama %s: %s: %s", op, resp.Status, string(respBody))
	}

	var wr wireResponse
	if err := json.Unmarshal(respBody, &wr); err != nil {
		return wireResponse{}, &swapplanner.OracleError{Op: op, Raw: string(respBody), Err: err}
	}

	swapplanner.LogUsage("ORACLE", op, swapplanner.Usage{InputTokens: wr.PromptEvalCount, OutputTokens: wr.EvalCount}, o.pricing)
	return wr, nil
}

func messages(system string, history []swapplanner.Turn) []wireMessage {
	turns := oracle.Conversation(history)
	msgs := make([]wireMessage, 0, len(turns)+1)
	msgs = append(msgs, wireMessage{Role: "system", Content: system})
	for _, t := range turns {
		msgs = append(msgs, wireMessage{Role: t.Role, Content: t.Content})
	}
	return msgs
}
