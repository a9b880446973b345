package model

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openai/openai-go/option"
	adkmodel "google.golang.org/adk/model"
	"google.golang.org/genai"
)

// fakeTool mimics an ADK function tool.
type fakeTool struct {
	name, desc string
	schema     map[string]any
}

func (f fakeTool) Name() string        { return f.name }
func (f fakeTool) Description() string { return f.desc }
func (f fakeTool) Declaration() *genai.FunctionDeclaration {
	return &genai.FunctionDeclaration{Name: f.name, Description: f.desc, ParametersJsonSchema: f.schema}
}

func newChatServer(t *testing.T, reply string, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		if captured != nil {
			if err := json.Unmarshal(body, captured); err != nil {
				t.Errorf("request body not JSON: %v", err)
			}
		}
		w.Header().Set("Content-Type", "application/json")
		io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func collect(t *testing.T, seq func(func(*adkmodel.LLMResponse, error) bool)) *adkmodel.LLMResponse {
	t.Helper()
	var got *adkmodel.LLMResponse
	for resp, err := range seq {
		if err != nil {
			t.Fatalf("GenerateContent: %v", err)
		}
		got = resp
	}
	if got == nil {
		t.Fatal("no response yielded")
	}
	return got
}

func TestOpenAIModel_ToolCallResponse(t *testing.T) {
	const reply = `{
		"id": "chatcmpl-1", "object": "chat.completion", "created": 1, "model": "gpt-4o",
		"choices": [{
			"index": 0, "finish_reason": "tool_calls",
			"message": {"role": "assistant", "content": "",
				"tool_calls": [{"id": "call_1", "type": "function",
					"function": {"name": "list_schemas", "arguments": "{\"limit\":5}"}}]}
		}],
		"usage": {"prompt_tokens": 10, "completion_tokens": 4, "total_tokens": 14}
	}`
	var captured map[string]any
	srv := newChatServer(t, reply, &captured)

	m, err := NewOpenAIModel(context.Background(), "gpt-4o", "test-key",
		option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	if err != nil {
		t.Fatalf("NewOpenAIModel: %v", err)
	}

	req := &adkmodel.LLMRequest{
		Config: &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText("You are a PostgreSQL assistant.", genai.RoleUser),
		},
		Contents: []*genai.Content{genai.NewContentFromText("list schemas", genai.RoleUser)},
		Tools: map[string]any{
			"list_schemas": fakeTool{
				name: "list_schemas",
				desc: "List all database schemas",
				schema: map[string]any{
					"type":       "object",
					"properties": map[string]any{"limit": map[string]any{"type": "integer"}},
				},
			},
		},
	}

	resp := collect(t, m.GenerateContent(context.Background(), req, false))

	if resp.TurnComplete {
		t.Error("tool_calls finish should not complete the turn")
	}
	if len(resp.Content.Parts) != 1 || resp.Content.Parts[0].FunctionCall == nil {
		t.Fatalf("parts = %+v, want one function call", resp.Content.Parts)
	}
	fc := resp.Content.Parts[0].FunctionCall
	if fc.ID != "call_1" || fc.Name != "list_schemas" {
		t.Errorf("function call = %+v", fc)
	}
	if fc.Args["limit"] != float64(5) {
		t.Errorf("args = %v, want limit=5", fc.Args)
	}
	if resp.UsageMetadata.TotalTokenCount != 14 {
		t.Errorf("TotalTokenCount = %d, want 14", resp.UsageMetadata.TotalTokenCount)
	}

	msgs, _ := captured["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("sent %d messages, want system+user", len(msgs))
	}
	if first, _ := msgs[0].(map[string]any); first["role"] != "system" {
		t.Errorf("first message role = %v, want system", first["role"])
	}
	tools, _ := captured["tools"].([]any)
	if len(tools) != 1 {
		t.Fatalf("sent %d tools, want 1", len(tools))
	}
}

func TestOpenAIModel_TextResponse(t *testing.T) {
	const reply = `{
		"id": "chatcmpl-2", "object": "chat.completion", "created": 1, "model": "llama",
		"choices": [{"index": 0, "finish_reason": "stop",
			"message": {"role": "assistant", "content": "There are 3 schemas."}}],
		"usage": {"prompt_tokens": 1, "completion_tokens": 1, "total_tokens": 2}
	}`
	srv := newChatServer(t, reply, nil)

	m, _ := NewOpenAIModel(context.Background(), "llama", "k", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	resp := collect(t, m.GenerateContent(context.Background(), &adkmodel.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText("hi", genai.RoleUser)},
	}, false))

	if !resp.TurnComplete {
		t.Error("stop finish should complete the turn")
	}
	if got := resp.Content.Parts[0].Text; got != "There are 3 schemas." {
		t.Errorf("text = %q", got)
	}
}

func TestOpenAIModel_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad key"}}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	m, _ := NewOpenAIModel(context.Background(), "gpt-4o", "k", option.WithBaseURL(srv.URL+"/"), option.WithMaxRetries(0))
	var gotErr error
	for _, err := range m.GenerateContent(context.Background(), &adkmodel.LLMRequest{
		Contents: []*genai.Content{genai.NewContentFromText("hi", genai.RoleUser)},
	}, false) {
		gotErr = err
	}
	if gotErr == nil {
		t.Fatal("expected API error")
	}
}

func TestConvertOpenAIContent_ToolRoundTrip(t *testing.T) {
	model := &genai.Content{Role: genai.RoleModel, Parts: []*genai.Part{
		{FunctionCall: &genai.FunctionCall{ID: "c1", Name: "execute_sql", Args: map[string]any{"sql": "select 1"}}},
	}}
	msgs, err := convertOpenAIContent(model)
	if err != nil {
		t.Fatalf("convert model content: %v", err)
	}
	if len(msgs) != 1 || msgs[0].OfAssistant == nil || len(msgs[0].OfAssistant.ToolCalls) != 1 {
		t.Fatalf("model content = %+v, want one assistant message with a tool call", msgs)
	}

	user := &genai.Content{Role: genai.RoleUser, Parts: []*genai.Part{
		{FunctionResponse: &genai.FunctionResponse{ID: "c1", Name: "execute_sql", Response: map[string]any{"rows": 1}}},
		{Text: "and now?"},
	}}
	msgs, err = convertOpenAIContent(user)
	if err != nil {
		t.Fatalf("convert user content: %v", err)
	}
	if len(msgs) != 2 || msgs[0].OfTool == nil || msgs[1].OfUser == nil {
		t.Fatalf("user content = %+v, want tool then user message", msgs)
	}
}
