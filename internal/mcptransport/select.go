package mcptransport

import (
	"context"
	"log/slog"
	"net/http"
	"os/exec"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"pgagent/internal/config"
)

// Kind names a transport.
type Kind string

const (
	KindSSE   Kind = "sse"
	KindStdio Kind = "stdio"
)

// Checker probes an endpoint. *Prober implements it.
type Checker interface {
	Check(ctx context.Context, endpoint string) ProbeResult
}

// Choice is the transport picked for one request.
type Choice struct {
	Kind Kind
	// Target is the SSE URL or the docker command line with the password
	// masked.
	Target    string
	Probe     ProbeResult
	Transport mcp.Transport
}

// Selector picks the SSE transport when the probe succeeds and the docker
// stdio transport otherwise. There is exactly one fallback.
type Selector struct {
	mcp     config.MCPConfig
	db      config.DBConfig
	checker Checker

	// NewSSE builds the SSE transport. Override in tests.
	NewSSE func(endpoint string) mcp.Transport
	// NewCommand builds the stdio transport. Override in tests.
	NewCommand func(name string, args ...string) mcp.Transport
}

// NewSelector creates a Selector for the given configuration.
func NewSelector(mcpCfg config.MCPConfig, db config.DBConfig, checker Checker) *Selector {
	return &Selector{
		mcp:        mcpCfg,
		db:         db,
		checker:    checker,
		NewSSE:     newSSETransport,
		NewCommand: newCommandTransport,
	}
}

// Select probes the SSE endpoint and returns the transport to use.
func (s *Selector) Select(ctx context.Context) Choice {
	probe := s.checker.Check(ctx, s.mcp.SSEURL)
	if probe.Reachable {
		slog.Info("MCP server is healthy, using SSE transport", "url", s.mcp.SSEURL, "latency", probe.Latency)
		return Choice{
			Kind:      KindSSE,
			Target:    s.mcp.SSEURL,
			Probe:     probe,
			Transport: s.NewSSE(s.mcp.SSEURL),
		}
	}

	args := DockerArgs(s.mcp.DockerImage, s.mcp.AccessMode, s.db.ConnString())
	masked := DockerArgs(s.mcp.DockerImage, s.mcp.AccessMode, s.db.MaskedConnString())
	target := "docker " + strings.Join(masked, " ")
	slog.Info("MCP server not available via SSE, using stdio transport", "command", target)
	return Choice{
		Kind:      KindStdio,
		Target:    target,
		Probe:     probe,
		Transport: s.NewCommand("docker", args...),
	}
}

// SSEOnly always selects the SSE transport. It neither probes nor falls
// back; a server that went away fails when the session is opened.
type SSEOnly struct {
	Endpoint string
	// NewSSE builds the transport. Override in tests.
	NewSSE func(endpoint string) mcp.Transport
}

// NewSSEOnly pins the SSE transport at endpoint.
func NewSSEOnly(endpoint string) *SSEOnly {
	return &SSEOnly{Endpoint: endpoint, NewSSE: newSSETransport}
}

// Select returns the SSE transport.
func (s *SSEOnly) Select(context.Context) Choice {
	return Choice{
		Kind:      KindSSE,
		Target:    s.Endpoint,
		Probe:     ProbeResult{Endpoint: s.Endpoint},
		Transport: s.NewSSE(s.Endpoint),
	}
}

// DockerArgs returns the docker arguments that run the analysis server over
// stdio against connString.
func DockerArgs(image, accessMode, connString string) []string {
	if image == "" {
		image = config.DefaultDockerImage
	}
	if accessMode == "" {
		accessMode = config.DefaultAccessMode
	}
	return []string{
		"run", "-i", "--rm", "--network=host",
		image,
		"--access-mode=" + accessMode,
		connString,
	}
}

func newSSETransport(endpoint string) mcp.Transport {
	return &mcp.SSEClientTransport{Endpoint: endpoint, HTTPClient: &http.Client{}}
}

func newCommandTransport(name string, args ...string) mcp.Transport {
	return &mcp.CommandTransport{Command: exec.Command(name, args...)}
}
