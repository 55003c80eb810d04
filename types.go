package swapplanner

import (
	"context"
	"net/http"
	"strings"

	"swapplanner/report"
)

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Intent is the category the intent oracle assigns to the latest user turn.
type Intent string

const (
	IntentGreeting          Intent = "greeting"
	IntentCalculateStations Intent = "calculate_stations"
	IntentNegativeFeedback  Intent = "negative_feedback"
	IntentIrrelevant        Intent = "irrelevant"
)

// Intents lists every intent the oracle may return, in prompt order.
var Intents = []Intent{IntentGreeting, IntentCalculateStations, IntentNegativeFeedback, IntentIrrelevant}

func (i Intent) Valid() bool {
	for _, known := range Intents {
		if i == known {
			return true
		}
	}
	return false
}

type ConfirmationState string

const (
	Confirmed    ConfirmationState = "confirmed"
	NotConfirmed ConfirmationState = "not_confirmed"
)

// ParseConfirmationState maps raw oracle output to a state. Anything that is
// not exactly "confirmed" is treated as not confirmed.
func ParseConfirmationState(s string) ConfirmationState {
	if ConfirmationState(strings.TrimSpace(s)) == Confirmed {
		return Confirmed
	}
	return NotConfirmed
}

// Turn is one message of the conversation. Data is only set on assistant
// turns that carry a calculation result.
type Turn struct {
	Role    string         `json:"role"`
	Content string         `json:"content"`
	Data    *report.Report `json:"data,omitempty"`
}

// Entity is one location extracted from the conversation. Percentages are on
// a 0-100 scale; nil means the user has not provided the value yet.
type Entity struct {
	Name                         string   `json:"name"`
	StationUtilizationPercentage *float64 `json:"station_utilization_percentage,omitempty"`
	OffRoadVehiclePercentage     *float64 `json:"off_road_vehicle_percentage,omitempty"`
}

// Oracle is the language-model collaborator. Every call receives the replayed
// conversation and blocks until the model answers.
type Oracle interface {
	ClassifyIntent(ctx context.Context, history []Turn) (Intent, error)
	ExtractEntities(ctx context.Context, history []Turn) ([]Entity, error)
	ClassifyConfirmation(ctx context.Context, history []Turn) (ConfirmationState, error)
	Narrate(ctx context.Context, result report.Report, entities map[string]Entity) (string, error)
	Respond(ctx context.Context, intent Intent, history []Turn) (string, error)
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Usage is the token accounting reported by an oracle backend for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Pricing holds model prices per thousand tokens.
type Pricing struct {
	PerKInput  float64
	PerKOutput float64
}

func (p Pricing) Cost(u Usage) float64 {
	return float64(u.InputTokens)/1000*p.PerKInput + float64(u.OutputTokens)/1000*p.PerKOutput
}
