// Package mock is a deterministic, keyword-driven oracle. It lets the chat
// CLI and tests drive a full conversation without a model. Real models will
// not be this literal.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"swapplanner"
	"swapplanner/report"
	"swapplanner/sizing"
)

var (
	greetingWords     = []string{"hello", "hi", "hey", "thanks", "thank you", "good morning"}
	negativeWords     = []string{"wrong", "useless", "terrible", "bad answer", "not helpful", "doesn't work"}
	calculationWords  = []string{"station", "qis", "swap", "calculate", "utilization", "utilisation", "vor", "off road", "off-road", "%"}
	confirmationWords = []string{"confirm", "confirmed", "yes", "proceed", "go ahead", "verified", "looks good", "updated"}
	denialWords       = []string{"not confirmed", "don t", "do not", "wait", "not yet", "no"}

	utilizationRe = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%?\s*(?:station\s+)?utili[sz]ation|utili[sz]ation\D{0,20}?(\d+(?:\.\d+)?)`)
	offRoadRe     = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%?\s*(?:vor|off[- ]road)|(?:vor|off[- ]road)\D{0,20}?(\d+(?:\.\d+)?)`)
)

// Oracle recognizes the locations it is given, e.g. the fleet sheet's rows.
type Oracle struct {
	locations []string
}

func NewOracle(locations ...string) *Oracle {
	normalized := make([]string, 0, len(locations))
	for _, l := range locations {
		if n := sizing.NormalizeLocation(l); n != "" && n != sizing.AllLocations {
			normalized = append(normalized, n)
		}
	}
	return &Oracle{locations: normalized}
}

func (o *Oracle) ClassifyIntent(ctx context.Context, history []swapplanner.Turn) (swapplanner.Intent, error) {
	text := lastUser(history)
	intent := o.classify(text, history)
	slog.Info("ORACLE: Mock intent", "intent", intent)
	return intent, nil
}

func (o *Oracle) classify(text string, history []swapplanner.Turn) swapplanner.Intent {
	switch {
	case containsAny(text, negativeWords):
		return swapplanner.IntentNegativeFeedback
	case containsAny(text, calculationWords) || len(o.mentioned(text)) > 0:
		return swapplanner.IntentCalculateStations
	case inCalculation(history) && (hasWord(text, confirmationWords) || hasWord(text, denialWords)):
		return swapplanner.IntentCalculateStations
	case hasWord(text, greetingWords):
		return swapplanner.IntentGreeting
	default:
		return swapplanner.IntentIrrelevant
	}
}

// ExtractEntities walks the user turns in order. Percentages in a message
// apply to the locations named in it, or to every location seen so far when
// it names none.
func (o *Oracle) ExtractEntities(ctx context.Context, history []swapplanner.Turn) ([]swapplanner.Entity, error) {
	byName := make(map[string]*swapplanner.Entity)
	var order []string

	for _, t := range history {
		if t.Role != swapplanner.RoleUser {
			continue
		}
		text := strings.ToLower(t.Content)
		names := o.mentioned(text)
		for _, n := range names {
			if _, ok := byName[n]; !ok {
				byName[n] = &swapplanner.Entity{Name: n}
				order = append(order, n)
			}
		}

		util, hasUtil := percentage(utilizationRe, text)
		vor, hasVOR := percentage(offRoadRe, text)
		if !hasUtil && !hasVOR {
			continue
		}
		if len(order) == 0 {
			byName[sizing.AllLocations] = &swapplanner.Entity{Name: sizing.AllLocations}
			order = append(order, sizing.AllLocations)
		}
		targets := names
		if len(targets) == 0 {
			targets = order
		}
		for _, n := range targets {
			if hasUtil {
				byName[n].StationUtilizationPercentage = &util
			}
			if hasVOR {
				byName[n].OffRoadVehiclePercentage = &vor
			}
		}
	}

	if len(order) == 0 {
		return []swapplanner.Entity{{Name: sizing.AllLocations}}, nil
	}
	entities := make([]swapplanner.Entity, 0, len(order))
	for _, n := range order {
		entities = append(entities, *byName[n])
	}
	slog.Info("ORACLE: Mock entities", "locations", order)
	return entities, nil
}

func (o *Oracle) ClassifyConfirmation(ctx context.Context, history []swapplanner.Turn) (swapplanner.ConfirmationState, error) {
	text := lastUser(history)
	if hasWord(text, confirmationWords) && !hasWord(text, denialWords) {
		return swapplanner.Confirmed, nil
	}
	return swapplanner.NotConfirmed, nil
}

func (o *Oracle) Narrate(ctx context.Context, result report.Report, entities map[string]swapplanner.Entity) (string, error) {
	var sb strings.Builder
	for _, name := range result.Locations() {
		b := result.CityBreakdown[name]
		fmt.Fprintf(&sb, "%s needs %.0f stations", name, b.StationsRequired)
		e, ok := entities[name]
		if !ok {
			e = entities[sizing.AllLocations]
		}
		if e.StationUtilizationPercentage != nil && e.OffRoadVehiclePercentage != nil {
			fmt.Fprintf(&sb, " at %s%% station utilization with %s%% of vehicles off road",
				formatPct(*e.StationUtilizationPercentage), formatPct(*e.OffRoadVehiclePercentage))
		}
		sb.WriteString(". ")
	}
	fmt.Fprintf(&sb, "Total stations required: %d.", result.TotalStationsRequired)
	return sb.String(), nil
}

func (o *Oracle) Respond(ctx context.Context, intent swapplanner.Intent, history []swapplanner.Turn) (string, error) {
	switch intent {
	case swapplanner.IntentGreeting:
		return "Hello! I help plan battery swap stations. Tell me the locations, station utilization and off road vehicle percentage to get started.", nil
	case swapplanner.IntentNegativeFeedback:
		return "I'm sorry this wasn't helpful. Thanks for the feedback, I'll try to do better.", nil
	case swapplanner.IntentIrrelevant:
		return "Sorry, I can't help with that. Please ask about battery swap stations or related services.", nil
	default:
		return "", fmt.Errorf("no canned reply for intent %q", intent)
	}
}

// mentioned returns the known locations named in text, in sorted order.
func (o *Oracle) mentioned(text string) []string {
	text = strings.ToLower(text)
	var names []string
	for _, l := range o.locations {
		if strings.Contains(text, l) {
			names = append(names, l)
		}
	}
	sort.Strings(names)
	return names
}

func percentage(re *regexp.Regexp, text string) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	for _, g := range m[1:] {
		if g == "" {
			continue
		}
		v, err := strconv.ParseFloat(g, 64)
		if err == nil {
			return v, true
		}
	}
	return 0, false
}

// inCalculation reports whether the last assistant turn was part of the
// calculation workflow.
func inCalculation(history []swapplanner.Turn) bool {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != swapplanner.RoleAssistant {
			continue
		}
		c := strings.ToLower(history[i].Content)
		return strings.Contains(c, "please provide") || strings.Contains(c, "review the vehicle data")
	}
	return false
}

func lastUser(history []swapplanner.Turn) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == swapplanner.RoleUser {
			return strings.ToLower(history[i].Content)
		}
	}
	return ""
}

func containsAny(text string, words []string) bool {
	for _, w := range words {
		if strings.Contains(text, w) {
			return true
		}
	}
	return false
}

// hasWord matches whole words or phrases, ignoring punctuation.
func hasWord(text string, words []string) bool {
	tokens := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	padded := " " + strings.Join(tokens, " ") + " "
	for _, w := range words {
		if strings.Contains(padded, " "+w+" ") {
			return true
		}
	}
	return false
}

func formatPct(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
