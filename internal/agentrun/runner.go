// Package agentrun answers one natural-language question against the
// Postgres MCP Pro server. Every request gets its own transport, MCP
// session, toolset and agent; all of them are released before Ask returns.
package agentrun

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	adkmodel "google.golang.org/adk/model"
	"google.golang.org/adk/runner"
	"google.golang.org/adk/session"
	"google.golang.org/genai"

	"pgagent/internal/apperr"
	"pgagent/internal/config"
	"pgagent/internal/mcptools"
	"pgagent/internal/mcptransport"
	"pgagent/internal/model"
	"pgagent/prompts"
)

const (
	agentName = "postgres_pro"
	appName   = "pgagent"
	userID    = "pgagent-user"
)

// Version is reported to the MCP server in the client handshake.
var Version = "dev"

// TransportSelector picks the transport for one request.
// *mcptransport.Selector implements it.
type TransportSelector interface {
	Select(ctx context.Context) mcptransport.Choice
}

// LLMFactory builds the model client for one request.
type LLMFactory func(ctx context.Context, cfg model.ClientConfig) (adkmodel.LLM, error)

// Recorder receives every finished request. The journal implements it.
type Recorder interface {
	Record(ctx context.Context, q Question, a Answer, err error)
}

// Question is one user request.
type Question struct {
	Text      string
	SessionID string
	// Source names the surface that asked: web, cli, tui or a2a.
	Source string
}

// Answer is the agent's reply together with how it was produced.
type Answer struct {
	Text      string
	Transport mcptransport.Kind
	Target    string
	Model     string
	Provider  model.Provider
	Tools     []string
	Elapsed   time.Duration
}

// Runner runs questions through a fresh agent.
type Runner struct {
	cfg      config.Config
	selector TransportSelector
	newLLM   LLMFactory
	timeout  time.Duration
	recorder Recorder
}

// Option customizes a Runner.
type Option func(*Runner)

// WithSelector replaces the probing transport selector.
func WithSelector(s TransportSelector) Option {
	return func(r *Runner) { r.selector = s }
}

// WithLLMFactory replaces model.NewLLM.
func WithLLMFactory(f LLMFactory) Option {
	return func(r *Runner) { r.newLLM = f }
}

// WithTimeout overrides the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(r *Runner) { r.timeout = d }
}

// WithRecorder sets a recorder for finished requests.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) { r.recorder = rec }
}

// New creates a Runner from cfg.
func New(cfg config.Config, opts ...Option) *Runner {
	r := &Runner{
		cfg:     cfg,
		newLLM:  model.NewLLM,
		timeout: cfg.RequestTimeout,
	}
	for _, o := range opts {
		o(r)
	}
	if r.selector == nil {
		prober := mcptransport.NewProber(cfg.MCP.ProbeTimeout)
		r.selector = mcptransport.NewSelector(cfg.MCP, cfg.DB, prober)
	}
	if r.timeout <= 0 {
		r.timeout = config.DefaultRequestTimeout
	}
	return r
}

// Timeout returns the per-request time limit.
func (r *Runner) Timeout() time.Duration { return r.timeout }

// Ask answers q within the request timeout. When the deadline passes first
// Ask returns an apperr timeout error without waiting for the abandoned
// work; that work still observes the cancelled context and closes its
// session.
func (r *Runner) Ask(ctx context.Context, q Question) (Answer, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	type result struct {
		answer Answer
		err    error
	}
	done := make(chan result, 1)
	go func() {
		a, err := r.Run(ctx, q.Text)
		done <- result{a, err}
	}()

	var (
		answer Answer
		err    error
	)
	select {
	case res := <-done:
		answer, err = res.answer, res.err
		if err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !apperr.Is(err, apperr.KindConfiguration) {
			err = apperr.Timeout(r.timeout, err)
		}
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			err = apperr.Timeout(r.timeout, ctx.Err())
		} else {
			err = apperr.Connectivity("request cancelled", ctx.Err())
		}
	}

	if err != nil {
		slog.Warn("request failed", "kind", apperr.KindOf(err), "err", err)
	}
	if r.recorder != nil {
		r.recorder.Record(context.WithoutCancel(ctx), q, answer, err)
	}
	return answer, err
}

// Run answers question with no time limit of its own. The transport and
// MCP session are closed on every path, success or failure.
func (r *Runner) Run(ctx context.Context, question string) (Answer, error) {
	start := time.Now()
	if err := r.cfg.DB.Validate(); err != nil {
		return Answer{}, err
	}

	choice := r.selector.Select(ctx)
	answer := Answer{Transport: choice.Kind, Target: choice.Target}
	transport := mcptransport.Track(choice.Transport)
	defer func() {
		if err := transport.Close(); err != nil {
			slog.Debug("closing MCP transport", "err", err)
		}
	}()

	client := mcp.NewClient(&mcp.Implementation{Name: appName, Title: "PostgreSQL agent", Version: Version}, nil)
	cs, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return answer, failure("connect to MCP server via "+string(choice.Kind), err)
	}
	defer cs.Close()

	mcpTools, err := mcptools.Discover(ctx, cs)
	if err != nil {
		return answer, failure("discover tools", err)
	}
	tools, err := mcptools.Bridge(cs, mcpTools)
	if err != nil {
		return answer, failure("bridge tools", err)
	}
	answer.Tools = mcptools.Names(mcpTools)
	slog.Debug("MCP tools loaded", "count", len(tools), "transport", choice.Kind)

	clientCfg := model.Select(r.cfg.Model.ID, r.cfg.Model.APIKey)
	answer.Model, answer.Provider = clientCfg.ModelID, clientCfg.Provider
	llm, err := r.newLLM(ctx, clientCfg)
	if err != nil {
		return answer, failure("create model client", err)
	}

	a, err := llmagent.New(llmagent.Config{
		Name:        agentName,
		Description: "Answers questions about a PostgreSQL database using Postgres MCP Pro tools.",
		Instruction: prompts.PostgresPro,
		Model:       llm,
		Tools:       tools,
	})
	if err != nil {
		return answer, failure("create agent", err)
	}

	text, err := runOnce(ctx, a, question)
	if err != nil {
		return answer, failure("run agent", err)
	}
	answer.Text = text
	answer.Elapsed = time.Since(start)
	slog.Info("request answered", "transport", choice.Kind, "model", answer.Model, "elapsed", answer.Elapsed)
	return answer, nil
}

// runOnce drives a single agent invocation in a throwaway session and
// returns the final text the agent produced.
func runOnce(ctx context.Context, a agent.Agent, question string) (string, error) {
	sessions := session.InMemoryService()
	r, err := runner.New(runner.Config{
		AppName:        appName,
		Agent:          a,
		SessionService: sessions,
	})
	if err != nil {
		return "", fmt.Errorf("create runner: %w", err)
	}

	created, err := sessions.Create(ctx, &session.CreateRequest{AppName: appName, UserID: userID})
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}

	msg := genai.NewContentFromText(question, genai.RoleUser)
	var final string
	for ev, err := range r.Run(ctx, userID, created.Session.ID(), msg, agent.RunConfig{}) {
		if err != nil {
			return "", err
		}
		if ev == nil || ev.Partial || ev.Content == nil || ev.Author != a.Name() {
			continue
		}
		if text := eventText(ev.Content); text != "" {
			final = text
		}
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if final == "" {
		return "", errors.New("agent returned no answer")
	}
	return final, nil
}

func eventText(c *genai.Content) string {
	var parts []string
	for _, p := range c.Parts {
		if p == nil || p.Thought || p.Text == "" {
			continue
		}
		parts = append(parts, p.Text)
	}
	return strings.TrimSpace(strings.Join(parts, ""))
}

func failure(stage string, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	return apperr.Connectivity("could not complete request", fmt.Errorf("%s: %w", stage, err))
}
