package planner

import (
	"github.com/google/uuid"

	"swapplanner"
	"swapplanner/report"
)

// Session is the state of one conversation: the append-only history and the
// most recent successful calculation. It is owned by a single caller.
type Session struct {
	ID         string
	History    []swapplanner.Turn
	LastResult *report.Report
}

func NewSession() *Session {
	return &Session{ID: uuid.NewString()}
}

// ResumeSession rebuilds a session from a history kept by the caller, e.g. a
// stateless Lambda invocation.
func ResumeSession(id string, history []swapplanner.Turn) *Session {
	if id == "" {
		id = uuid.NewString()
	}
	s := &Session{ID: id, History: history}
	for i := len(history) - 1; i >= 0; i-- {
		if d := history[i].Data; d != nil && !d.Failed() {
			s.LastResult = d
			break
		}
	}
	return s
}

// Reset starts a new chat in place, keeping the session id.
func (s *Session) Reset() {
	s.History = nil
	s.LastResult = nil
}

// recent returns at most n trailing turns; n <= 0 means no bound.
func recent(history []swapplanner.Turn, n int) []swapplanner.Turn {
	if n <= 0 || len(history) <= n {
		return history
	}
	return history[len(history)-n:]
}
