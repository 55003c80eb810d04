// Package oracle holds what every language-model backend shares: the system
// prompts, the response schemas and the parsers that turn raw model output
// into planner values.
package oracle

import (
	"encoding/json"
	"fmt"

	"swapplanner"
	"swapplanner/report"
)

// Operation names, used for logs, spans and OracleError.Op.
const (
	OpClassifyIntent       = "classify_intent"
	OpExtractEntities      = "extract_entities"
	OpClassifyConfirmation = "classify_confirmation"
	OpNarrate              = "narrate"
	OpRespond              = "respond"
)

// NarrationMaxTokens is the completion budget for result summaries, which run
// longer than classifications.
const NarrationMaxTokens = 1000

const intentPrompt = `You are an intent classifier for a battery swap station (QIS) planning copilot.

Based on the conversation context and the latest message, classify the intent:

1. greeting - The user is greeting, saying thank you, or asking general questions about the service.
2. calculate_stations - The user wants to calculate the battery swap stations required, or is continuing a calculation (providing parameters, confirming data).
3. negative_feedback - The user is expressing dissatisfaction or negative feedback.
4. irrelevant - The message is not related to battery swap stations.

If the conversation is already about a station calculation, related follow-ups are "calculate_stations".
Consider the flow of the conversation, not just the isolated message.

Respond with only the intent as JSON: {"intent": "<greeting|calculate_stations|negative_feedback|irrelevant>"}.`

const entityPrompt = `You are an entity extractor for a battery swap station (QIS) planning copilot.

Extract every location (city or area) the user wants stations calculated for. For each location also extract,
when the user has given them:
- station utilization percentage (e.g. 80 for 80%)
- off road vehicle percentage (e.g. 20 for 20%), sometimes abbreviated "VOR"

Report percentages on a 0-100 scale. Omit a percentage the user has not provided; never guess it.
If no location is mentioned, return a single location named "all".

Respond with only JSON: {"locations": [{"name": string, "station_utilization_percentage": number, "off_road_vehicle_percentage": number}]}.`

const confirmationPrompt = `Classify the user's confirmation state from the conversation. The user may ask for several
calculations during one conversation; track the state for the latest calculation request only.

1. confirmed - The user has confirmed the vehicle data and wants to proceed with the calculation.
2. not_confirmed - The user has not yet confirmed the data.

Respond with only JSON: {"confirmation_state": "<confirmed|not_confirmed>"}.`

const narrationPrompt = `You are a data summarizer for a battery swap station (QIS) planning copilot.
Summarize the provided data very concisely in English. For every location mention, in sentence form:
- the location
- the station utilization percentage
- the off road vehicle percentage
- the stations required
Finish with the total stations required.`

const greetingPrompt = `You are a friendly assistant for a battery swap station (QIS) planning copilot.
Your primary function is to help users plan and calculate battery swap station requirements.

When greeting users or answering general questions:
- Greet them warmly and professionally
- Briefly explain that you help with battery swap station planning
- Ask how you can help with their station planning
- Keep responses concise

Do not offer help with services unrelated to battery swap station planning.`

const irrelevantPrompt = `You are the assistant of a battery swap station (QIS) planning copilot.
The user has sent a message that is not related to swap stations.
Reply with a short, friendly message saying you cannot help with that request and suggest they ask about swap stations or related services.`

const negativeFeedbackPrompt = `You are the assistant of a battery swap station (QIS) planning copilot.
The user has expressed dissatisfaction or negative feedback.
Reply with a short, friendly message acknowledging their feedback and apologizing for any inconvenience.`

// RespondPrompt returns the system prompt for the free-text reply to a
// non-calculation intent.
func RespondPrompt(intent swapplanner.Intent) (string, error) {
	switch intent {
	case swapplanner.IntentGreeting:
		return greetingPrompt, nil
	case swapplanner.IntentIrrelevant:
		return irrelevantPrompt, nil
	case swapplanner.IntentNegativeFeedback:
		return negativeFeedbackPrompt, nil
	default:
		return "", fmt.Errorf("no reply prompt for intent %q", intent)
	}
}

// NarrationPrompt returns the system prompt and the single user message that
// carries the report and the entities it was computed from.
func NarrationPrompt(result report.Report, entities map[string]swapplanner.Entity) (string, string, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return "", "", fmt.Errorf("marshal report: %w", err)
	}
	ents, err := json.Marshal(entities)
	if err != nil {
		return "", "", fmt.Errorf("marshal entities: %w", err)
	}
	return narrationPrompt, fmt.Sprintf("swap stations data: %s entities extracted: %s", data, ents), nil
}

// Conversation prepares replayed history for a chat API: a conversation must
// open with a user turn, and empty turns carry nothing.
func Conversation(history []swapplanner.Turn) []swapplanner.Turn {
	start := 0
	for start < len(history) && history[start].Role != swapplanner.RoleUser {
		start++
	}
	out := make([]swapplanner.Turn, 0, len(history)-start)
	for _, t := range history[start:] {
		if t.Content == "" {
			continue
		}
		out = append(out, swapplanner.Turn{Role: t.Role, Content: t.Content})
	}
	return out
}
