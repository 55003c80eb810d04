package swapplanner_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"swapplanner"
	"swapplanner/report"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

func TestIntentValid(t *testing.T) {
	for _, intent := range swapplanner.Intents {
		should.True(t, intent.Valid(), intent)
	}
	should.False(t, swapplanner.Intent("weather").Valid())
	should.False(t, swapplanner.Intent("").Valid())
}

func TestParseConfirmationState(t *testing.T) {
	should.Equal(t, swapplanner.Confirmed, swapplanner.ParseConfirmationState(" confirmed\n"))
	should.Equal(t, swapplanner.NotConfirmed, swapplanner.ParseConfirmationState("not_confirmed"))
	should.Equal(t, swapplanner.NotConfirmed, swapplanner.ParseConfirmationState("Confirmed!"))
	should.Equal(t, swapplanner.NotConfirmed, swapplanner.ParseConfirmationState(""))
}

func TestPricingCost(t *testing.T) {
	p := swapplanner.Pricing{PerKInput: 0.0004, PerKOutput: 0.0016}
	should.InDelta(t, 0.0004*1.5+0.0016*0.25, p.Cost(swapplanner.Usage{InputTokens: 1500, OutputTokens: 250}), 1e-12)
	should.Zero(t, swapplanner.Pricing{}.Cost(swapplanner.Usage{InputTokens: 10}))
}

func TestTurnJSON(t *testing.T) {
	turn := swapplanner.Turn{
		Role:    swapplanner.RoleAssistant,
		Content: "Delhi needs 2 stations.",
		Data: &report.Report{
			CityBreakdown:         map[string]report.LocationBreakdown{"delhi": {StationsRequired: 2}},
			TotalStationsRequired: 2,
		},
	}

	b, err := json.Marshal(turn)
	must.NoError(t, err)
	should.Contains(t, string(b), `"data":{"city_breakdown"`)

	var back swapplanner.Turn
	must.NoError(t, json.Unmarshal(b, &back))
	should.Equal(t, turn, back)

	b, err = json.Marshal(swapplanner.Turn{Role: swapplanner.RoleUser, Content: "hi"})
	must.NoError(t, err)
	should.JSONEq(t, `{"role":"user","content":"hi"}`, string(b))
}

func TestEntityJSON(t *testing.T) {
	var e swapplanner.Entity
	must.NoError(t, json.Unmarshal([]byte(`{"name":"Pune","off_road_vehicle_percentage":0}`), &e))
	should.Equal(t, "Pune", e.Name)
	should.Nil(t, e.StationUtilizationPercentage)
	must.NotNil(t, e.OffRoadVehiclePercentage, "an explicit zero is provided")
	should.Zero(t, *e.OffRoadVehiclePercentage)
}

func TestOracleError(t *testing.T) {
	cause := errors.New("unexpected end of JSON input")
	err := fmt.Errorf("classify intent: %w", &swapplanner.OracleError{Op: "classify_intent", Raw: `{"intent":`, Err: cause})

	var oerr *swapplanner.OracleError
	must.True(t, errors.As(err, &oerr))
	should.Equal(t, `{"intent":`, oerr.Raw)
	should.ErrorIs(t, err, cause)
	should.Equal(t, "classify intent: oracle classify_intent: malformed output: unexpected end of JSON input", err.Error())
}

func TestDump(t *testing.T) {
	var buf bytes.Buffer
	swapplanner.Dump(&buf, map[string]int{"mumbai": 2, "delhi": 1})

	out := buf.String()
	should.True(t, strings.HasPrefix(out, "types_test.go:"), out)
	should.Less(t, strings.Index(out, "delhi"), strings.Index(out, "mumbai"), "keys are sorted")
}
