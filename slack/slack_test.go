package slack_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"testing"

	"swapplanner/report"
	"swapplanner/slack"

	should "github.com/stretchr/testify/assert"
	must "github.com/stretchr/testify/require"
)

type mockDoer struct {
	doFunc func(req *http.Request) (*http.Response, error)
	bodies []map[string]any
}

func (m *mockDoer) Do(req *http.Request) (*http.Response, error) {
	var body map[string]any
	b, _ := io.ReadAll(req.Body)
	_ = json.Unmarshal(b, &body)
	m.bodies = append(m.bodies, body)
	return m.doFunc(req)
}

func ok(req *http.Request) (*http.Response, error) {
	return &http.Response{StatusCode: http.StatusOK, Body: io.NopCloser(bytes.NewBufferString("ok"))}, nil
}

func TestNewClient(t *testing.T) {
	client := slack.NewClient("http://slack.com/webhook", "#qis-planning", nil)
	must.NotNil(t, client, "expected non-nil client")
}

func TestPostMessage(t *testing.T) {
	tests := []struct {
		name    string
		doFunc  func(req *http.Request) (*http.Response, error)
		wantErr string
	}{
		{
			name:   "success",
			doFunc: ok,
		},
		{
			name: "failure status",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return &http.Response{StatusCode: http.StatusBadRequest, Status: "400 Bad Request", Body: io.NopCloser(bytes.NewBufferString("invalid_payload"))}, nil
			},
			wantErr: "failed to post message: 400 Bad Request: invalid_payload",
		},
		{
			name: "do error",
			doFunc: func(req *http.Request) (*http.Response, error) {
				return nil, errors.New("network error")
			},
			wantErr: "network error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doer := &mockDoer{doFunc: tt.doFunc}
			client := slack.NewClient("http://example.com/webhook", "#general", doer)

			err := client.PostMessage(context.Background(), "Hello, world!")
			if tt.wantErr != "" {
				should.EqualError(t, err, tt.wantErr)
				return
			}
			must.NoError(t, err)
			must.Len(t, doer.bodies, 1)
			should.Equal(t, "#general", doer.bodies[0]["channel"])
			should.Equal(t, "Hello, world!", doer.bodies[0]["text"])
		})
	}
}

func TestPostReport(t *testing.T) {
	rep := &report.Report{
		CityBreakdown: map[string]report.LocationBreakdown{
			"delhi": {TotalVehicles: 150, OperationalVehicles: 120, EnergyRequired: 48, SwappableEnergyPerStation: 1000, StationsRequired: 0},
		},
	}

	t.Run("summary and table", func(t *testing.T) {
		doer := &mockDoer{doFunc: ok}
		client := slack.NewClient("http://example.com/webhook", "#qis-planning", doer)

		must.NoError(t, client.PostReport(context.Background(), "Delhi needs no new stations.", rep))
		must.Len(t, doer.bodies, 1)

		text, _ := doer.bodies[0]["text"].(string)
		should.Contains(t, text, "Delhi needs no new stations.")
		should.Contains(t, text, "delhi")
		should.Contains(t, text, "Total stations: 0 | Total vehicles: 150")
	})

	t.Run("nothing to post", func(t *testing.T) {
		doer := &mockDoer{doFunc: ok}
		client := slack.NewClient("http://example.com/webhook", "#qis-planning", doer)

		should.ErrorIs(t, client.PostReport(context.Background(), "", nil), slack.ErrNoResult)
		should.ErrorIs(t, client.PostReport(context.Background(), "", &report.Report{Error: "boom"}), slack.ErrNoResult)
		should.Empty(t, doer.bodies)
	})
}
