package swapplanner

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"swapplanner/report"
)

// TurnLogger records what the planner did with each user turn.
type TurnLogger interface {
	LogTurn(turn TurnLog) error
}

// NewTurnLogFilePath returns a log file path tagged with a cleaned up model id so
// logs produced with different models are easy to tell apart.
func NewTurnLogFilePath(model string) string {
	return fmt.Sprintf(
		"./logs/%d.%s.json",
		time.Now().Unix(),
		strings.NewReplacer(":", "_", "/", "_").Replace(strings.ToLower(model)),
	)
}

// TurnLog is a single processed user turn.
type TurnLog struct {
	SessionID    string         `json:"session_id"`
	Turn         int            `json:"turn"`
	Timestamp    time.Time      `json:"timestamp"`
	UserInput    string         `json:"user_input"`
	Intent       string         `json:"intent,omitempty"`
	Entities     []Entity       `json:"entities,omitempty"`
	MissingInfo  []string       `json:"missing_info,omitempty"`
	Confirmation string         `json:"confirmation,omitempty"`
	Result       *report.Report `json:"result,omitempty"`
	Reply        string         `json:"reply,omitempty"`
	Error        string         `json:"error,omitempty"`
}

// FileTurnLogger buffers turns and writes them out on Flush.
type FileTurnLogger struct {
	turns  []TurnLog
	writer io.Writer
}

func NewFileTurnLogger(writer io.Writer) *FileTurnLogger {
	return &FileTurnLogger{
		turns:  make([]TurnLog, 0),
		writer: writer,
	}
}

// LogTurn appends to the buffer; nothing is written until Flush.
func (l *FileTurnLogger) LogTurn(turn TurnLog) error {
	l.turns = append(l.turns, turn)
	return nil
}

// Flush writes every buffered turn as one JSON document and clears the buffer.
func (l *FileTurnLogger) Flush() error {
	if l.writer == nil {
		return nil
	}

	data, err := json.MarshalIndent(map[string]any{
		"planning_session": map[string]any{
			"timestamp": time.Now(),
			"turns":     l.turns,
		},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal turn log: %w", err)
	}

	if _, err := l.writer.Write(data); err != nil {
		return fmt.Errorf("failed to write turn log: %w", err)
	}

	l.turns = l.turns[:0]
	return nil
}

type NoOpTurnLogger struct{}

func NewNoOpTurnLogger() *NoOpTurnLogger {
	return &NoOpTurnLogger{}
}

func (nop *NoOpTurnLogger) LogTurn(turn TurnLog) error {
	return nil
}

// StdoutTurnLogger writes each turn as a JSON line (for Lambda/CloudWatch).
type StdoutTurnLogger struct {
	out io.Writer
}

func NewStdoutTurnLogger() *StdoutTurnLogger {
	return &StdoutTurnLogger{out: os.Stdout}
}

func (l *StdoutTurnLogger) LogTurn(turn TurnLog) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(l.out, string(data))
	return err
}

// LogUsage logs token usage and the estimated cost of one oracle call.
func LogUsage(component, op string, u Usage, p Pricing) {
	slog.Info(component+": Token usage",
		"op", op,
		"input_tokens", u.InputTokens,
		"output_tokens", u.OutputTokens,
		"total_tokens", u.InputTokens+u.OutputTokens,
		"estimated_cost_usd", fmt.Sprintf("%.6f", p.Cost(u)),
	)
}
