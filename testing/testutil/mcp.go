package testutil

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// FakePostgresMCP is an in-process stand-in for the Postgres MCP Pro server.
// It advertises a subset of the real tool surface and records every call.
type FakePostgresMCP struct {
	Server *mcp.Server

	mu    sync.Mutex
	calls []string
}

type listObjectsArgs struct {
	SchemaName string `json:"schema_name" jsonschema:"schema to list objects from"`
}

type executeSQLArgs struct {
	SQL string `json:"sql" jsonschema:"SQL statement to run"`
}

// NewFakePostgresMCP builds the fake server with list_schemas, list_objects,
// execute_sql and a failing analyze_db_health tool.
func NewFakePostgresMCP() *FakePostgresMCP {
	f := &FakePostgresMCP{
		Server: mcp.NewServer(&mcp.Implementation{Name: "fake-postgres-mcp", Version: "0.0.1"}, nil),
	}

	mcp.AddTool(f.Server, &mcp.Tool{
		Name:        "list_schemas",
		Description: "List all database schemas",
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ map[string]any) (*mcp.CallToolResult, any, error) {
		f.record("list_schemas")
		return textResult("public\nanalytics"), nil, nil
	})

	mcp.AddTool(f.Server, &mcp.Tool{
		Name:        "list_objects",
		Description: "List database objects (tables, views, etc.)",
	}, func(_ context.Context, _ *mcp.CallToolRequest, in listObjectsArgs) (*mcp.CallToolResult, any, error) {
		f.record("list_objects")
		return textResult(fmt.Sprintf("%s.users\n%s.orders", in.SchemaName, in.SchemaName)), nil, nil
	})

	mcp.AddTool(f.Server, &mcp.Tool{
		Name:        "execute_sql",
		Description: "Execute SQL statements with safety controls",
	}, func(_ context.Context, _ *mcp.CallToolRequest, in executeSQLArgs) (*mcp.CallToolResult, any, error) {
		f.record("execute_sql")
		return textResult("1 row: " + in.SQL), nil, nil
	})

	mcp.AddTool(f.Server, &mcp.Tool{
		Name:        "analyze_db_health",
		Description: "Perform comprehensive database health checks",
	}, func(_ context.Context, _ *mcp.CallToolRequest, _ map[string]any) (*mcp.CallToolResult, any, error) {
		f.record("analyze_db_health")
		return nil, nil, fmt.Errorf("pg_stat_statements is not installed")
	})

	return f
}

// ToolNames lists the advertised tool names in registration order.
func (f *FakePostgresMCP) ToolNames() []string {
	return []string{"list_schemas", "list_objects", "execute_sql", "analyze_db_health"}
}

// Calls returns the tool names invoked so far.
func (f *FakePostgresMCP) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// Transport starts a server session on one end of an in-memory pipe and
// returns the client end. The server session is closed when t ends.
func (f *FakePostgresMCP) Transport(t testing.TB) mcp.Transport {
	t.Helper()
	clientT, serverT := mcp.NewInMemoryTransports()
	ss, err := f.Server.Connect(context.Background(), serverT, nil)
	if err != nil {
		t.Fatalf("fake MCP server connect: %v", err)
	}
	t.Cleanup(func() { ss.Close() })
	return clientT
}

// ClientSession connects a client to the fake server.
func (f *FakePostgresMCP) ClientSession(t testing.TB) *mcp.ClientSession {
	t.Helper()
	client := mcp.NewClient(&mcp.Implementation{Name: "pgagent-test", Version: "0.0.1"}, nil)
	cs, err := client.Connect(context.Background(), f.Transport(t), nil)
	if err != nil {
		t.Fatalf("fake MCP client connect: %v", err)
	}
	t.Cleanup(func() { cs.Close() })
	return cs
}

func (f *FakePostgresMCP) record(name string) {
	f.mu.Lock()
	f.calls = append(f.calls, name)
	f.mu.Unlock()
}

func textResult(s string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{&mcp.TextContent{Text: s}}}
}
