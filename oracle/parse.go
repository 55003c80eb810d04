package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"swapplanner"
)

// ParseIntent decodes {"intent": "..."}. Unknown intents are malformed output.
func ParseIntent(raw string) (swapplanner.Intent, error) {
	var out struct {
		Intent swapplanner.Intent `json:"intent"`
	}
	if err := decode(raw, &out); err != nil {
		return "", &swapplanner.OracleError{Op: OpClassifyIntent, Raw: raw, Err: err}
	}
	if !out.Intent.Valid() {
		return "", &swapplanner.OracleError{Op: OpClassifyIntent, Raw: raw, Err: fmt.Errorf("unknown intent %q", out.Intent)}
	}
	return out.Intent, nil
}

// ParseEntities decodes {"locations": [...]}. Locations without a name are
// dropped.
func ParseEntities(raw string) ([]swapplanner.Entity, error) {
	var out struct {
		Locations []swapplanner.Entity `json:"locations"`
	}
	if err := decode(raw, &out); err != nil {
		return nil, &swapplanner.OracleError{Op: OpExtractEntities, Raw: raw, Err: err}
	}
	entities := make([]swapplanner.Entity, 0, len(out.Locations))
	for _, e := range out.Locations {
		if strings.TrimSpace(e.Name) == "" {
			continue
		}
		entities = append(entities, e)
	}
	return entities, nil
}

// ParseConfirmation decodes {"confirmation_state": "..."}. Any value other
// than "confirmed" is not confirmed.
func ParseConfirmation(raw string) (swapplanner.ConfirmationState, error) {
	var out struct {
		State string `json:"confirmation_state"`
	}
	if err := decode(raw, &out); err != nil {
		return swapplanner.NotConfirmed, &swapplanner.OracleError{Op: OpClassifyConfirmation, Raw: raw, Err: err}
	}
	return swapplanner.ParseConfirmationState(out.State), nil
}

// decode accepts a bare JSON object, optionally wrapped in a markdown fence.
func decode(raw string, v any) error {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.TrimSpace(s)
	if s == "" {
		return errors.New("empty output")
	}
	return json.Unmarshal([]byte(s), v)
}
