// Package bedrock implements the planner oracle on the Bedrock Converse API.
// Structured answers are obtained by forcing a single tool whose input schema
// is the expected response.
package bedrock

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/document"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime/types"

	"swapplanner"
	"swapplanner/oracle"
	"swapplanner/report"
)

const (
	// defaultModelID is an inference profile ID, not the foundation model's ID.
	// See https://docs.aws.amazon.com/bedrock/latest/userguide/inference-profiles.html.
	defaultModelID = "us.anthropic.claude-3-7-sonnet-20250219-v1:0"

	// Classifications are short; narrations use oracle.NarrationMaxTokens.
	defaultMaxTokens = 500

	defaultTopP = 0.9
)

type bedrockRuntimeClient interface {
	Converse(context.Context, *bedrockruntime.ConverseInput, ...func(*bedrockruntime.Options)) (*bedrockruntime.ConverseOutput, error)
}

// Options configures the oracle. Temperature is used as given; 0 keeps the
// classifications deterministic.
type Options struct {
	ModelID     string
	MaxTokens   int32
	Temperature float32
	TopP        float32
	Pricing     swapplanner.Pricing
}

type Oracle struct {
	brc  bedrockRuntimeClient
	opts Options
}

func NewOracle(brc bedrockRuntimeClient, opts Options) *Oracle {
	if opts.ModelID == "" {
		opts.ModelID = defaultModelID
	}
	if opts.MaxTokens == 0 {
		opts.MaxTokens = defaultMaxTokens
	}
	if opts.TopP == 0 {
		opts.TopP = defaultTopP
	}
	return &Oracle{brc: brc, opts: opts}
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
	in := o.input(system, []types.Message{textMessage(types.ConversationRoleUser, user)}, oracle.NarrationMaxTokens)
	return o.text(ctx, oracle.OpNarrate, in)
}

func (o *Oracle) Respond(ctx context.Context, intent swapplanner.Intent, history []swapplanner.Turn) (string, error) {
	system, err := oracle.RespondPrompt(intent)
	if err != nil {
		return "", err
	}
	in := o.input(system, messages(history), o.opts.MaxTokens)
	return o.text(ctx, oracle.OpRespond, in)
}

// structured forces the task's tool and returns the tool input as raw JSON.
func (o *Oracle) structured(ctx context.Context, task oracle.Task, history []swapplanner.Turn) (string, error) {
	spec, err := toolSpec(task)
	if err != nil {
		return "", err
	}

	in := o.input(task.System, messages(history), o.opts.MaxTokens)
	in.ToolConfig = &types.ToolConfiguration{
		Tools:      []types.Tool{&types.ToolMemberToolSpec{Value: spec}},
		ToolChoice: &types.ToolChoiceMemberTool{Value: types.SpecificToolChoice{Name: aws.String(task.Op)}},
	}

	out, err := o.converse(ctx, task.Op, in)
	if err != nil {
		return "", err
	}

	raw, ok, err := toolInput(out, task.Op)
	if err != nil {
		return "", &swapplanner.OracleError{Op: task.Op, Err: err}
	}
	if !ok {
		// Some models answer in text despite the forced tool.
		raw = textFromOutput(out)
		slog.Warn("ORACLE: No tool use in response, falling back to text", "op", task.Op, "stop_reason", out.StopReason)
	}
	return raw, nil
}

func (o *Oracle) text(ctx context.Context, op string, in *bedrockruntime.ConverseInput) (string, error) {
	out, err := o.converse(ctx, op, in)
	if err != nil {
		return "", err
	}
	text := strings.TrimSpace(textFromOutput(out))
	if text == "" {
		return "", &swapplanner.OracleError{Op: op, Err: fmt.Errorf("empty response (stop reason %s)", out.StopReason)}
	}
	return text, nil
}

func (o *Oracle) input(system string, msgs []types.Message, maxTokens int32) *bedrockruntime.ConverseInput {
	return &bedrockruntime.ConverseInput{
		ModelId:  aws.String(o.opts.ModelID),
		System:   []types.SystemContentBlock{&types.SystemContentBlockMemberText{Value: system}},
		Messages: msgs,
		InferenceConfig: &types.InferenceConfiguration{
			MaxTokens:   aws.Int32(maxTokens),
			Temperature: aws.Float32(o.opts.Temperature),
			TopP:        aws.Float32(o.opts.TopP),
		},
	}
}

func (o *Oracle) converse(ctx context.Context, op string, in *bedrockruntime.ConverseInput) (*bedrockruntime.ConverseOutput, error) {
	slog.Info("ORACLE: Invoking Bedrock", "op", op, "model", o.opts.ModelID, "messages_len", len(in.Messages))

	out, err := o.brc.Converse(ctx, in)
	if err != nil {
		slog.Error("ORACLE: Bedrock invoke failed", "op", op, "error", err)
		return nil, fmt.Errorf("bedrock %s: %w", op, err)
	}

	var usage swapplanner.Usage
	if out.Usage != nil {
		usage = swapplanner.Usage{
			InputTokens:  int(aws.ToInt32(out.Usage.InputTokens)),
			OutputTokens: int(aws.ToInt32(out.Usage.OutputTokens)),
		}
	}
	var latency int64
	if out.Metrics != nil {
		latency = aws.ToInt64(out.Metrics.LatencyMs)
	}
	slog.Info("ORACLE: Bedrock invoke succeeded", "op", op, "stop_reason", out.StopReason, "latency_ms", latency)
	swapplanner.LogUsage("ORACLE", op, usage, o.opts.Pricing)

	switch out.StopReason {
	case types.StopReasonMaxTokens:
		slog.Warn("ORACLE: Model hit MaxTokens limit", "op", op)
	case types.StopReasonGuardrailIntervened, types.StopReasonContentFiltered:
		return nil, fmt.Errorf("bedrock %s: response blocked by safety filters", op)
	}
	return out, nil
}

func messages(history []swapplanner.Turn) []types.Message {
	turns := oracle.Conversation(history)
	msgs := make([]types.Message, 0, len(turns))
	for _, t := range turns {
		role := types.ConversationRoleUser
		if t.Role == swapplanner.RoleAssistant {
			role = types.ConversationRoleAssistant
		}
		msgs = append(msgs, textMessage(role, t.Content))
	}
	return msgs
}

func textMessage(role types.ConversationRole, text string) types.Message {
	return types.Message{
		Role:    role,
		Content: []types.ContentBlock{&types.ContentBlockMemberText{Value: text}},
	}
}

// toolSpec builds the tool specification for a task. The schema goes through
// JSON first so the document carries its custom marshaling.
func toolSpec(task oracle.Task) (types.ToolSpecification, error) {
	schemaJSON, err := json.Marshal(task.Schema)
	if err != nil {
		return types.ToolSpecification{}, fmt.Errorf("marshal schema for %s: %w", task.Op, err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return types.ToolSpecification{}, fmt.Errorf("unmarshal schema for %s: %w", task.Op, err)
	}

	return types.ToolSpecification{
		Name:        aws.String(task.Op),
		Description: aws.String(task.Description),
		InputSchema: &types.ToolInputSchemaMemberJson{Value: document.NewLazyDocument(schemaMap)},
	}, nil
}

// toolInput returns the input of the named tool use as JSON. ok is false when
// the response holds no such tool use.
func toolInput(out *bedrockruntime.ConverseOutput, name string) (raw string, ok bool, err error) {
	msg, isMsg := out.Output.(*types.ConverseOutputMemberMessage)
	if !isMsg || msg == nil {
		return "", false, nil
	}
	for _, cb := range msg.Value.Content {
		tu, isTool := cb.(*types.ContentBlockMemberToolUse)
		if !isTool || tu == nil || aws.ToString(tu.Value.Name) != name {
			continue
		}
		if tu.Value.Input == nil {
			return "{}", true, nil
		}
		// Raw JSON keeps numbers as numbers; decoding into any yields
		// document.Number strings.
		b, err := tu.Value.Input.MarshalSmithyDocument()
		if err != nil {
			return "", false, fmt.Errorf("read tool input: %w", err)
		}
		return string(b), true, nil
	}
	return "", false, nil
}

// textFromOutput joins the assistant's text blocks.
func textFromOutput(out *bedrockruntime.ConverseOutput) string {
	if out == nil || out.Output == nil {
		return ""
	}
	msg, ok := out.Output.(*types.ConverseOutputMemberMessage)
	if !ok || msg == nil {
		return ""
	}
	var texts []string
	for _, cb := range msg.Value.Content {
		if t, ok := cb.(*types.ContentBlockMemberText); ok && t != nil && t.Value != "" {
			texts = append(texts, t.Value)
		}
	}
	return strings.Join(texts, "\n")
}
