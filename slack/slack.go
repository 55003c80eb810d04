// Package slack delivers finished station plans to a Slack incoming webhook.
package slack

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
	"swapplanner/report"
)

var ErrNoResult = errors.New("no calculation result to post")

type Client struct {
	webhookURL string
	channel    string
	httpClient swapplanner.HTTPClient
}

func NewClient(webhookURL, channel string, httpClient swapplanner.HTTPClient) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		webhookURL: webhookURL,
		channel:    channel,
		httpClient: httpClient,
	}
}

// PostReport posts the narration followed by the breakdown table. Failed
// reports are not posted.
func (c *Client) PostReport(ctx context.Context, summary string, rep *report.Report) error {
	if rep == nil || rep.Failed() {
		return ErrNoResult
	}

	var sb strings.Builder
	sb.WriteString(":battery: *Swap station plan*\n")
	if s := strings.TrimSpace(summary); s != "" {
		sb.WriteString(s)
		sb.WriteString("\n")
	}
	sb.WriteString("```\n")
	sb.WriteString(rep.Table())
	sb.WriteString("```")

	slog.Info("SLACK: Posting report", "channel", c.channel, "locations", len(rep.CityBreakdown), "total_stations", rep.TotalStationsRequired)
	return c.PostMessage(ctx, sb.String())
}

func (c *Client) PostMessage(ctx context.Context, message string) error {
	payload, err := json.Marshal(map[string]any{
		"channel": c.channel,
		"text":    message,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("failed to post message: %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return nil
}
