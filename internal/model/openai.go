package model

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	adkmodel "google.golang.org/adk/model"
	"google.golang.org/genai"
)

// GroqBaseURL is Groq's OpenAI-compatible endpoint.
const GroqBaseURL = "https://api.groq.com/openai/v1/"

// OpenAIModel implements adkmodel.LLM over the Chat Completions API. It
// serves OpenAI and any compatible provider (Groq) via option.WithBaseURL.
type OpenAIModel struct {
	client    openai.Client
	modelName string
}

// NewOpenAIModel creates a Chat Completions client for modelName.
func NewOpenAIModel(_ context.Context, modelName, apiKey string, opts ...option.RequestOption) (*OpenAIModel, error) {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &OpenAIModel{
		client:    openai.NewClient(opts...),
		modelName: modelName,
	}, nil
}

// Name returns the model name.
func (m *OpenAIModel) Name() string {
	return m.modelName
}

// GenerateContent implements adkmodel.LLM. Streaming is not used.
func (m *OpenAIModel) GenerateContent(ctx context.Context, req *adkmodel.LLMRequest, stream bool) iter.Seq2[*adkmodel.LLMResponse, error] {
	return func(yield func(*adkmodel.LLMResponse, error) bool) {
		params, err := m.convertRequest(req)
		if err != nil {
			yield(nil, fmt.Errorf("failed to convert request: %w", err))
			return
		}

		slog.Debug("chat completion request", "model", m.modelName, "messages", len(params.Messages), "tools", len(params.Tools), "stream", stream)
		resp, err := m.client.Chat.Completions.New(ctx, params)
		if err != nil {
			yield(nil, fmt.Errorf("chat completion API error: %w", err))
			return
		}
		if len(resp.Choices) == 0 {
			yield(nil, fmt.Errorf("chat completion returned no choices"))
			return
		}
		yield(convertOpenAIResponse(resp), nil)
	}
}

func (m *OpenAIModel) convertRequest(req *adkmodel.LLMRequest) (openai.ChatCompletionNewParams, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(m.modelName),
	}

	if sys := systemText(req.Config, req.Contents); len(sys) > 0 {
		params.Messages = append(params.Messages, openai.SystemMessage(strings.Join(sys, "\n\n")))
	}

	for _, content := range req.Contents {
		if content.Role == "system" {
			continue
		}
		msgs, err := convertOpenAIContent(content)
		if err != nil {
			return openai.ChatCompletionNewParams{}, err
		}
		params.Messages = append(params.Messages, msgs...)
	}

	decls, err := toolDeclarations(req.Tools)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}
	for _, d := range decls {
		params.Tools = append(params.Tools, openai.ChatCompletionToolParam{
			Function: openai.FunctionDefinitionParam{
				Name:        d.Name,
				Description: openai.String(d.Description),
				Parameters:  openai.FunctionParameters(d.Schema),
			},
		})
	}

	if cfg := req.Config; cfg != nil {
		if cfg.Temperature != nil {
			params.Temperature = openai.Float(float64(*cfg.Temperature))
		}
		if cfg.TopP != nil {
			params.TopP = openai.Float(float64(*cfg.TopP))
		}
		if cfg.MaxOutputTokens != 0 {
			params.MaxTokens = openai.Int(int64(cfg.MaxOutputTokens))
		}
	}
	return params, nil
}

// convertOpenAIContent maps one genai.Content to chat messages. Tool results
// become individual tool messages ahead of any user text.
func convertOpenAIContent(content *genai.Content) ([]openai.ChatCompletionMessageParamUnion, error) {
	var text []string
	var calls []openai.ChatCompletionMessageToolCallParam
	var out []openai.ChatCompletionMessageParamUnion

	for _, part := range content.Parts {
		switch {
		case part.Text != "":
			text = append(text, part.Text)

		case part.FunctionCall != nil:
			args, err := json.Marshal(part.FunctionCall.Args)
			if err != nil {
				return nil, fmt.Errorf("marshal tool args: %w", err)
			}
			calls = append(calls, openai.ChatCompletionMessageToolCallParam{
				ID: part.FunctionCall.ID,
				Function: openai.ChatCompletionMessageToolCallFunctionParam{
					Name:      part.FunctionCall.Name,
					Arguments: string(args),
				},
			})

		case part.FunctionResponse != nil:
			result, err := json.Marshal(part.FunctionResponse.Response)
			if err != nil {
				return nil, fmt.Errorf("marshal tool result: %w", err)
			}
			out = append(out, openai.ToolMessage(string(result), part.FunctionResponse.ID))
		}
	}

	joined := strings.Join(text, "\n")
	if content.Role == genai.RoleModel || content.Role == "assistant" {
		var asst openai.ChatCompletionAssistantMessageParam
		if joined != "" {
			asst.Content.OfString = openai.String(joined)
		}
		asst.ToolCalls = calls
		return append(out, openai.ChatCompletionMessageParamUnion{OfAssistant: &asst}), nil
	}
	if joined != "" {
		out = append(out, openai.UserMessage(joined))
	}
	return out, nil
}

func convertOpenAIResponse(resp *openai.ChatCompletion) *adkmodel.LLMResponse {
	choice := resp.Choices[0]

	var parts []*genai.Part
	if choice.Message.Content != "" {
		parts = append(parts, &genai.Part{Text: choice.Message.Content})
	}
	for _, call := range choice.Message.ToolCalls {
		args := make(map[string]any)
		if call.Function.Arguments != "" {
			if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil {
				slog.Warn("failed to parse tool arguments", "tool", call.Function.Name, "err", err)
			}
		}
		parts = append(parts, &genai.Part{
			FunctionCall: &genai.FunctionCall{ID: call.ID, Name: call.Function.Name, Args: args},
		})
	}

	finish := genai.FinishReasonStop
	turnComplete := true
	switch choice.FinishReason {
	case "tool_calls", "function_call":
		turnComplete = false
	case "length":
		finish = genai.FinishReasonMaxTokens
	case "content_filter":
		finish = genai.FinishReasonSafety
	}

	return &adkmodel.LLMResponse{
		Content:      &genai.Content{Role: genai.RoleModel, Parts: parts},
		FinishReason: finish,
		TurnComplete: turnComplete,
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     int32(resp.Usage.PromptTokens),
			CandidatesTokenCount: int32(resp.Usage.CompletionTokens),
			TotalTokenCount:      int32(resp.Usage.TotalTokens),
		},
	}
}
