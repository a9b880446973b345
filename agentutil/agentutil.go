// Package agentutil exposes the pgagent runner to other agents over A2A.
// The served agent has a single tool, analyze_postgres, which runs one
// timed request through the runner.
package agentutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/a2aproject/a2a-go/a2a"
	"github.com/a2aproject/a2a-go/a2asrv"

	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	adkmodel "google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/server/adka2a"
	"google.golang.org/adk/session"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"pgagent/internal/agentrun"
	"pgagent/internal/apperr"
	"pgagent/prompts"
)

// GatewayAgentName is the name of the served agent.
const GatewayAgentName = "postgres_gateway"

// AnalyzeToolName is the name of the delegating tool.
const AnalyzeToolName = "analyze_postgres"

// Asker answers one question. *agentrun.Runner implements it.
type Asker interface {
	Ask(ctx context.Context, q agentrun.Question) (agentrun.Answer, error)
}

// AnalyzeArgs are the analyze_postgres tool arguments.
type AnalyzeArgs struct {
	Question string `json:"question" jsonschema:"The natural-language question about the PostgreSQL database"`
}

// AnalyzeResult is returned to the calling model. A failed request is
// reported in Error, rendered for end users, rather than as a tool error.
type AnalyzeResult struct {
	Answer    string `json:"answer,omitempty"`
	Transport string `json:"transport,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorKind string `json:"error_kind,omitempty"`
}

func analyze(asker Asker) func(tool.Context, AnalyzeArgs) (AnalyzeResult, error) {
	return func(ctx tool.Context, args AnalyzeArgs) (AnalyzeResult, error) {
		if args.Question == "" {
			return AnalyzeResult{}, fmt.Errorf("question is required")
		}
		answer, err := asker.Ask(ctx, agentrun.Question{
			Text:      args.Question,
			SessionID: ctx.SessionID(),
			Source:    "a2a",
		})
		if err != nil {
			slog.Warn("analyze_postgres failed", "kind", apperr.KindOf(err), "err", err)
			return AnalyzeResult{Error: apperr.UserMessage(err), ErrorKind: string(apperr.KindOf(err))}, nil
		}
		return AnalyzeResult{Answer: answer.Text, Transport: string(answer.Transport)}, nil
	}
}

// AnalyzeTool wraps asker as the analyze_postgres function tool.
func AnalyzeTool(asker Asker) (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name: AnalyzeToolName,
		Description: "Answer a question about the connected PostgreSQL database: health checks, " +
			"slow queries, index recommendations, execution plans and schema exploration.",
	}, analyze(asker))
}

// NewGatewayAgent builds the served agent around llm and asker.
func NewGatewayAgent(llm adkmodel.LLM, asker Asker) (agent.Agent, error) {
	analyzeTool, err := AnalyzeTool(asker)
	if err != nil {
		return nil, fmt.Errorf("create %s tool: %w", AnalyzeToolName, err)
	}
	return llmagent.New(llmagent.Config{
		Name:        GatewayAgentName,
		Description: "PostgreSQL analysis agent backed by Postgres MCP Pro.",
		Instruction: prompts.Gateway,
		Model:       llm,
		Tools:       []tool.Tool{analyzeTool},
	})
}

// CardOptions adds metadata to the AgentCard that Handler derives from the
// ADK agent.
type CardOptions struct {
	// Version is the pgagent build version.
	Version string

	// SkillTags maps a skill ID to additional tags to merge onto the
	// auto-generated skills. Skill IDs follow the ADK pattern:
	// "agentName" for the model skill, "agentName-toolName" for tool skills.
	SkillTags map[string][]string

	// SkillExamples maps a skill ID to example prompts.
	SkillExamples map[string][]string
}

// DefaultCardOptions tags the gateway's skills and lists example prompts
// taken from the chat UI's quick actions.
func DefaultCardOptions(version string, examples []string) CardOptions {
	return CardOptions{
		Version: version,
		SkillTags: map[string][]string{
			GatewayAgentName:                         {"postgresql", "database"},
			GatewayAgentName + "-" + AnalyzeToolName: {"postgresql", "mcp", "diagnostics"},
		},
		SkillExamples: map[string][]string{
			GatewayAgentName: examples,
		},
	}
}

// applyCardOptions merges optional metadata onto an AgentCard.
func applyCardOptions(card *a2a.AgentCard, opts CardOptions) {
	if opts.Version != "" {
		card.Version = opts.Version
	}
	for i := range card.Skills {
		skill := &card.Skills[i]
		if tags, ok := opts.SkillTags[skill.ID]; ok {
			skill.Tags = append(skill.Tags, tags...)
		}
		if examples, ok := opts.SkillExamples[skill.ID]; ok && len(examples) > 0 {
			skill.Examples = examples
		}
	}
}

const agentPath = "/invoke"

// Handler returns the A2A HTTP handler for a, with the agent card URL
// derived from baseURL.
func Handler(a agent.Agent, baseURL *url.URL, opts ...CardOptions) http.Handler {
	agentCard := &a2a.AgentCard{
		Name:               a.Name(),
		Description:        a.Description(),
		Skills:             adka2a.BuildAgentSkills(a),
		PreferredTransport: a2a.TransportProtocolJSONRPC,
		URL:                baseURL.JoinPath(agentPath).String(),
		Capabilities:       a2a.AgentCapabilities{Streaming: true},
	}
	if len(opts) > 0 {
		applyCardOptions(agentCard, opts[0])
	}

	mux := http.NewServeMux()
	mux.Handle(a2asrv.WellKnownAgentCardPath, a2asrv.NewStaticAgentCardHandler(agentCard))

	executor := adka2a.NewExecutor(adka2a.ExecutorConfig{
		RunnerConfig: runner.Config{
			AppName:        a.Name(),
			Agent:          a,
			SessionService: session.InMemoryService(),
		},
	})
	mux.Handle(agentPath, a2asrv.NewJSONRPCHandler(a2asrv.NewHandler(executor)))
	return mux
}

// Serve starts an A2A server for a on addr and blocks until ctx is
// cancelled or the server fails.
func Serve(ctx context.Context, a agent.Agent, addr string, opts ...CardOptions) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to %s: %w", addr, err)
	}
	baseURL := &url.URL{Scheme: "http", Host: listener.Addr().String()}

	srv := &http.Server{Handler: Handler(a, baseURL, opts...)}
	slog.Info("starting A2A server",
		"agent", a.Name(),
		"url", baseURL.String(),
		"card", baseURL.String()+a2asrv.WellKnownAgentCardPath,
	)

	errc := make(chan error, 1)
	go func() {
		if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errc
}
