package agentutil

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/memory"
	adkmodel "google.golang.org/adk/model"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/toolconfirmation"
	"google.golang.org/genai"

	"pgagent/internal/agentrun"
	"pgagent/internal/apperr"
	"pgagent/internal/mcptransport"
)

// mockToolContext implements tool.Context for testing.
type mockToolContext struct {
	context.Context
}

// ReadonlyContext methods
func (mockToolContext) UserContent() *genai.Content          { return nil }
func (mockToolContext) InvocationID() string                 { return "test-invocation" }
func (mockToolContext) AgentName() string                    { return "test-agent" }
func (mockToolContext) ReadonlyState() session.ReadonlyState { return nil }
func (mockToolContext) UserID() string                       { return "test-user" }
func (mockToolContext) AppName() string                      { return "test-app" }
func (mockToolContext) SessionID() string                    { return "test-session" }
func (mockToolContext) Branch() string                       { return "" }

// CallbackContext methods
func (mockToolContext) Artifacts() agent.Artifacts { return nil }
func (mockToolContext) State() session.State       { return nil }

// tool.Context methods
func (mockToolContext) FunctionCallID() string         { return "test-call-id" }
func (mockToolContext) Actions() *session.EventActions { return nil }
func (mockToolContext) SearchMemory(context.Context, string) (*memory.SearchResponse, error) {
	return nil, nil
}
func (mockToolContext) ToolConfirmation() *toolconfirmation.ToolConfirmation { return nil }
func (mockToolContext) RequestConfirmation(string, any) error                { return nil }

func newTestContext() tool.Context {
	return mockToolContext{context.Background()}
}

type stubLLM struct{}

func (stubLLM) Name() string { return "stub" }

func (stubLLM) GenerateContent(context.Context, *adkmodel.LLMRequest, bool) iter.Seq2[*adkmodel.LLMResponse, error] {
	return func(yield func(*adkmodel.LLMResponse, error) bool) {}
}

type fakeAsker struct {
	q   agentrun.Question
	err error
}

func (f *fakeAsker) Ask(_ context.Context, q agentrun.Question) (agentrun.Answer, error) {
	f.q = q
	if f.err != nil {
		return agentrun.Answer{}, f.err
	}
	return agentrun.Answer{Text: "3 tables", Transport: mcptransport.KindStdio}, nil
}

func TestAnalyze(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantAnswer string
		wantError  string
		wantKind   string
	}{
		{name: "answer", wantAnswer: "3 tables"},
		{
			name:      "timeout",
			err:       apperr.Timeout(60*time.Second, context.DeadlineExceeded),
			wantError: "Query timed out after 60 seconds",
			wantKind:  "timeout",
		},
		{
			name:      "connectivity",
			err:       apperr.Connectivity("open session", errors.New("refused")),
			wantError: "Connection Error: open session: refused",
			wantKind:  "connectivity",
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			asker := &fakeAsker{err: tc.err}
			res, err := analyze(asker)(newTestContext(), AnalyzeArgs{Question: "how many tables?"})
			if err != nil {
				t.Fatalf("analyze returned error: %v", err)
			}
			if res.Answer != tc.wantAnswer {
				t.Errorf("Answer = %q, want %q", res.Answer, tc.wantAnswer)
			}
			if !strings.HasPrefix(res.Error, tc.wantError) {
				t.Errorf("Error = %q, want prefix %q", res.Error, tc.wantError)
			}
			if res.ErrorKind != tc.wantKind {
				t.Errorf("ErrorKind = %q, want %q", res.ErrorKind, tc.wantKind)
			}
			if asker.q.Source != "a2a" || asker.q.SessionID != "test-session" {
				t.Errorf("question = %+v", asker.q)
			}
		})
	}
}

func TestAnalyze_EmptyQuestion(t *testing.T) {
	asker := &fakeAsker{}
	if _, err := analyze(asker)(newTestContext(), AnalyzeArgs{}); err == nil {
		t.Fatal("expected error for empty question")
	}
	if asker.q.Text != "" {
		t.Error("runner called for empty question")
	}
}

func TestAnalyzeTool(t *testing.T) {
	tl, err := AnalyzeTool(&fakeAsker{})
	if err != nil {
		t.Fatalf("AnalyzeTool: %v", err)
	}
	if tl.Name() != AnalyzeToolName {
		t.Errorf("Name() = %q", tl.Name())
	}
}

func TestHandler_AgentCard(t *testing.T) {
	a, err := NewGatewayAgent(stubLLM{}, &fakeAsker{})
	if err != nil {
		t.Fatalf("NewGatewayAgent: %v", err)
	}
	base, _ := url.Parse("http://localhost:1120")
	srv := httptest.NewServer(Handler(a, base, DefaultCardOptions("1.2.3", []string{"Check health"})))
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/.well-known/agent-card.json")
	if err != nil {
		t.Fatalf("GET card: %v", err)
	}
	defer resp.Body.Close()
	var card a2a.AgentCard
	if err := json.NewDecoder(resp.Body).Decode(&card); err != nil {
		t.Fatalf("decode card: %v", err)
	}
	if card.Name != GatewayAgentName || card.Version != "1.2.3" {
		t.Errorf("card = %s %s", card.Name, card.Version)
	}
	if card.URL != "http://localhost:1120/invoke" {
		t.Errorf("card.URL = %q", card.URL)
	}
}

func TestApplyCardOptions_Empty(t *testing.T) {
	card := &a2a.AgentCard{
		Name:    "test",
		Version: "0.1.0",
	}
	applyCardOptions(card, CardOptions{})

	if card.Version != "0.1.0" {
		t.Errorf("Version changed to %q, expected no change", card.Version)
	}
}

func TestApplyCardOptions_Version(t *testing.T) {
	card := &a2a.AgentCard{Name: "test", Version: "0.1.0"}
	applyCardOptions(card, DefaultCardOptions("2.0.0", nil))
	if card.Version != "2.0.0" {
		t.Errorf("Version = %q, want 2.0.0", card.Version)
	}
}

func TestApplyCardOptions_Skills(t *testing.T) {
	card := &a2a.AgentCard{
		Name: "test",
		Skills: []a2a.AgentSkill{
			{ID: GatewayAgentName, Tags: []string{"existing"}, Examples: []string{"old"}},
			{ID: "other", Tags: []string{"b-tag"}},
		},
	}
	applyCardOptions(card, DefaultCardOptions("", []string{"example 1", "example 2"}))

	if got := card.Skills[0].Tags; len(got) != 3 || got[0] != "existing" || got[1] != "postgresql" {
		t.Errorf("gateway tags = %v", got)
	}
	if got := card.Skills[0].Examples; len(got) != 2 || got[0] != "example 1" {
		t.Errorf("gateway examples = %v", got)
	}
	if len(card.Skills[1].Tags) != 1 {
		t.Errorf("other tags = %v, expected unchanged", card.Skills[1].Tags)
	}

	applyCardOptions(card, DefaultCardOptions("", nil))
	if got := card.Skills[0].Examples; len(got) != 2 {
		t.Errorf("empty examples overwrote existing: %v", got)
	}
}
