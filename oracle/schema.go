package oracle

import (
	"github.com/modelcontextprotocol/go-sdk/jsonschema"

	"swapplanner"
)

// Task is one structured call: a system prompt plus the schema the answer
// has to satisfy. Backends expose the schema as a forced tool (Bedrock) or
// as a response format (Ollama).
type Task struct {
	Op          string
	Description string
	System      string
	Schema      *jsonschema.Schema
}

var (
	IntentTask = Task{
		Op:          OpClassifyIntent,
		Description: "Record the intent of the latest user message.",
		System:      intentPrompt,
		Schema:      IntentSchema(),
	}

	EntityTask = Task{
		Op:          OpExtractEntities,
		Description: "Record the locations and parameters the user provided.",
		System:      entityPrompt,
		Schema:      EntitySchema(),
	}

	ConfirmationTask = Task{
		Op:          OpClassifyConfirmation,
		Description: "Record whether the user confirmed the vehicle data.",
		System:      confirmationPrompt,
		Schema:      ConfirmationSchema(),
	}
)

func IntentSchema() *jsonschema.Schema {
	enum := make([]any, len(swapplanner.Intents))
	for i, intent := range swapplanner.Intents {
		enum[i] = string(intent)
	}
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"intent": {Type: "string", Enum: enum},
		},
		Required: []string{"intent"},
	}
}

func EntitySchema() *jsonschema.Schema {
	minPct, maxPct := 0.0, 100.0
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"locations": {
				Type: "array",
				Items: &jsonschema.Schema{
					Type: "object",
					Properties: map[string]*jsonschema.Schema{
						"name":                           {Type: "string"},
						"station_utilization_percentage": {Type: "number", Minimum: &minPct, Maximum: &maxPct},
						"off_road_vehicle_percentage":    {Type: "number", Minimum: &minPct, Maximum: &maxPct},
					},
					Required: []string{"name"},
				},
			},
		},
		Required: []string{"locations"},
	}
}

func ConfirmationSchema() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type: "object",
		Properties: map[string]*jsonschema.Schema{
			"confirmation_state": {Type: "string", Enum: []any{string(swapplanner.Confirmed), string(swapplanner.NotConfirmed)}},
		},
		Required: []string{"confirmation_state"},
	}
}
