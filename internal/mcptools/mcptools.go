// Package mcptools exposes the tools advertised by an MCP server as ADK
// function tools, so an llmagent can call them.
package mcptools

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

// Lister lists server tools one page at a time. *mcp.ClientSession
// implements it.
type Lister interface {
	ListTools(ctx context.Context, params *mcp.ListToolsParams) (*mcp.ListToolsResult, error)
}

// Caller invokes a server tool. *mcp.ClientSession implements it.
type Caller interface {
	CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)
}

// Result is what a bridged tool hands back to the model.
type Result struct {
	Output     string `json:"output"`
	Structured any    `json:"structured,omitempty"`
	IsError    bool   `json:"is_error,omitempty"`
}

// Discover returns every tool the server advertises, following pagination.
func Discover(ctx context.Context, l Lister) ([]*mcp.Tool, error) {
	var (
		tools  []*mcp.Tool
		cursor string
	)
	for {
		res, err := l.ListTools(ctx, &mcp.ListToolsParams{Cursor: cursor})
		if err != nil {
			return nil, fmt.Errorf("list tools: %w", err)
		}
		tools = append(tools, res.Tools...)
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}
	return tools, nil
}

// Bridge wraps each MCP tool as an ADK function tool whose calls are
// forwarded to caller.
func Bridge(caller Caller, tools []*mcp.Tool) ([]tool.Tool, error) {
	out := make([]tool.Tool, 0, len(tools))
	for _, t := range tools {
		schema, err := inputSchema(t.InputSchema)
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", t.Name, err)
		}

		name := t.Name
		def, err := functiontool.New(functiontool.Config{
			Name:        name,
			Description: t.Description,
			InputSchema: schema,
		}, func(ctx tool.Context, args map[string]any) (Result, error) {
			return call(ctx, caller, name, args)
		})
		if err != nil {
			return nil, fmt.Errorf("tool %s: %w", name, err)
		}
		out = append(out, def)
	}
	return out, nil
}

// Names returns the tool names in server order.
func Names(tools []*mcp.Tool) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}

func call(ctx context.Context, caller Caller, name string, args map[string]any) (Result, error) {
	start := time.Now()
	res, err := caller.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		slog.Warn("mcp tool call failed", "tool", name, "err", err)
		return Result{}, fmt.Errorf("call %s: %w", name, err)
	}

	out := Result{
		Output:     contentText(res.Content),
		Structured: res.StructuredContent,
		IsError:    res.IsError,
	}
	slog.Debug("mcp tool call", "tool", name, "is_error", res.IsError, "chars", len(out.Output), "duration", time.Since(start))
	return out, nil
}

func contentText(content []mcp.Content) string {
	var parts []string
	for _, c := range content {
		switch v := c.(type) {
		case *mcp.TextContent:
			parts = append(parts, v.Text)
		case *mcp.ImageContent:
			parts = append(parts, "[image "+v.MIMEType+"]")
		case *mcp.AudioContent:
			parts = append(parts, "[audio "+v.MIMEType+"]")
		case *mcp.ResourceLink:
			parts = append(parts, "[resource "+v.URI+"]")
		case *mcp.EmbeddedResource:
			if v.Resource != nil && v.Resource.Text != "" {
				parts = append(parts, v.Resource.Text)
			}
		}
	}
	return strings.Join(parts, "\n")
}

// inputSchema converts an MCP tool input schema into a jsonschema.Schema.
// The $schema keyword is dropped; MCP servers often advertise older drafts.
func inputSchema(v any) (*jsonschema.Schema, error) {
	if v == nil {
		return &jsonschema.Schema{Type: "object"}, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("input schema is not an object: %w", err)
	}
	if m == nil {
		return &jsonschema.Schema{Type: "object"}, nil
	}
	delete(m, "$schema")
	if _, ok := m["type"]; !ok {
		m["type"] = "object"
	}

	raw, err = json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("marshal input schema: %w", err)
	}
	var s jsonschema.Schema
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, fmt.Errorf("parse input schema: %w", err)
	}
	return &s, nil
}
