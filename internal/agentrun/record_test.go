package agentrun

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"pgagent/internal/apperr"
	"pgagent/internal/journal"
	"pgagent/internal/mcptransport"
)

func TestJournalRecorder(t *testing.T) {
	store, err := journal.Open(filepath.Join(t.TempDir(), "turns.db"))
	if err != nil {
		t.Fatalf("journal.Open: %v", err)
	}
	defer store.Close()

	rec := JournalRecorder{Store: store}
	ctx := context.Background()
	rec.Record(ctx, Question{Text: "tables?", SessionID: "s1", Source: "web"},
		Answer{Text: "users", Transport: mcptransport.KindStdio, Model: "claude-3-5-sonnet", Tools: []string{"a", "b"}, Elapsed: 1500 * time.Millisecond}, nil)
	rec.Record(ctx, Question{Text: "slow", Source: "cli"}, Answer{}, apperr.Timeout(time.Minute, context.DeadlineExceeded))

	turns, err := store.Recent(ctx, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(turns) != 2 {
		t.Fatalf("got %d turns, want 2", len(turns))
	}
	if turns[0].Outcome != string(apperr.KindTimeout) || turns[0].Error == "" {
		t.Errorf("failed turn = %+v", turns[0])
	}
	ok := turns[1]
	if ok.Outcome != journal.OutcomeOK || ok.Transport != "stdio" || ok.Tools != 2 || ok.Duration != 1500 {
		t.Errorf("ok turn = %+v", ok)
	}
}
