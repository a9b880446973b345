package agentrun

import (
	"context"
	"log/slog"

	"pgagent/internal/apperr"
	"pgagent/internal/journal"
)

// JournalRecorder writes finished requests to a journal store.
// Write failures are logged and otherwise ignored.
type JournalRecorder struct {
	Store *journal.Store
}

// Record implements Recorder.
func (j JournalRecorder) Record(ctx context.Context, q Question, a Answer, err error) {
	turn := journal.Turn{
		SessionID: q.SessionID,
		Source:    q.Source,
		Question:  q.Text,
		Answer:    a.Text,
		Outcome:   journal.OutcomeOK,
		Transport: string(a.Transport),
		Model:     a.Model,
		Tools:     len(a.Tools),
		Duration:  a.Elapsed.Milliseconds(),
	}
	if err != nil {
		turn.Outcome = string(apperr.KindOf(err))
		turn.Error = err.Error()
	}
	if err := j.Store.RecordTurn(ctx, turn); err != nil {
		slog.Warn("failed to journal turn", "err", err)
	}
}
