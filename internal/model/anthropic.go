package model

import (
	"context"
	"encoding/json"
	"fmt"
	"iter"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	adkmodel "google.golang.org/adk/model"
	"google.golang.org/genai"
)

const anthropicMaxTokens = 4096

// AnthropicModel implements adkmodel.LLM for Anthropic Claude.
type AnthropicModel struct {
	client    anthropic.Client
	modelName string
}

// NewAnthropicModel creates a new Anthropic model client.
func NewAnthropicModel(_ context.Context, modelName, apiKey string, opts ...option.RequestOption) (*AnthropicModel, error) {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	return &AnthropicModel{
		client:    anthropic.NewClient(opts...),
		modelName: modelName,
	}, nil
}

// Name returns the model name.
func (m *AnthropicModel) Name() string {
	return m.modelName
}

// GenerateContent implements adkmodel.LLM. Responses are always produced in
// one piece; partial tool-use blocks are not surfaced.
func (m *AnthropicModel) GenerateContent(ctx context.Context, req *adkmodel.LLMRequest, stream bool) iter.Seq2[*adkmodel.LLMResponse, error] {
	return func(yield func(*adkmodel.LLMResponse, error) bool) {
		params, err := m.convertRequest(req)
		if err != nil {
			yield(nil, fmt.Errorf("failed to convert request: %w", err))
			return
		}

		slog.Debug("anthropic request", "model", m.modelName, "messages", len(params.Messages), "tools", len(params.Tools), "stream", stream)
		resp, err := m.client.Messages.New(ctx, params)
		if err != nil {
			yield(nil, fmt.Errorf("anthropic API error: %w", err))
			return
		}
		yield(convertAnthropicResponse(resp), nil)
	}
}

func (m *AnthropicModel) convertRequest(req *adkmodel.LLMRequest) (anthropic.MessageNewParams, error) {
	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(m.modelName),
		MaxTokens: anthropicMaxTokens,
	}

	for _, text := range systemText(req.Config, req.Contents) {
		params.System = append(params.System, anthropic.TextBlockParam{Text: text})
	}

	for _, content := range req.Contents {
		if content.Role == "system" {
			continue
		}
		msg, err := convertAnthropicContent(content)
		if err != nil {
			return anthropic.MessageNewParams{}, err
		}
		params.Messages = append(params.Messages, msg)
	}

	decls, err := toolDeclarations(req.Tools)
	if err != nil {
		return anthropic.MessageNewParams{}, err
	}
	for _, d := range decls {
		schema := anthropic.ToolInputSchemaParam{Properties: d.Schema["properties"]}
		if required, ok := d.Schema["required"].([]any); ok {
			for _, r := range required {
				if s, ok := r.(string); ok {
					schema.Required = append(schema.Required, s)
				}
			}
		}
		params.Tools = append(params.Tools, anthropic.ToolUnionParam{
			OfTool: &anthropic.ToolParam{
				Name:        d.Name,
				Description: anthropic.String(d.Description),
				InputSchema: schema,
			},
		})
	}

	if cfg := req.Config; cfg != nil {
		if cfg.Temperature != nil {
			params.Temperature = anthropic.Float(float64(*cfg.Temperature))
		}
		if cfg.TopP != nil {
			params.TopP = anthropic.Float(float64(*cfg.TopP))
		}
		if cfg.MaxOutputTokens != 0 {
			params.MaxTokens = int64(cfg.MaxOutputTokens)
		}
	}
	return params, nil
}

func convertAnthropicContent(content *genai.Content) (anthropic.MessageParam, error) {
	var blocks []anthropic.ContentBlockParamUnion

	for _, part := range content.Parts {
		switch {
		case part.Text != "":
			blocks = append(blocks, anthropic.NewTextBlock(part.Text))

		case part.FunctionCall != nil:
			blocks = append(blocks, anthropic.NewToolUseBlock(
				part.FunctionCall.ID,
				part.FunctionCall.Args,
				part.FunctionCall.Name,
			))

		case part.FunctionResponse != nil:
			result, err := json.Marshal(part.FunctionResponse.Response)
			if err != nil {
				return anthropic.MessageParam{}, err
			}
			blocks = append(blocks, anthropic.NewToolResultBlock(part.FunctionResponse.ID, string(result), false))
		}
	}

	if content.Role == genai.RoleModel || content.Role == "assistant" {
		return anthropic.NewAssistantMessage(blocks...), nil
	}
	return anthropic.NewUserMessage(blocks...), nil
}

func convertAnthropicResponse(resp *anthropic.Message) *adkmodel.LLMResponse {
	var parts []*genai.Part
	for _, block := range resp.Content {
		switch block.Type {
		case "text":
			parts = append(parts, &genai.Part{Text: block.Text})
		case "tool_use":
			args := make(map[string]any)
			if len(block.Input) > 0 {
				if err := json.Unmarshal(block.Input, &args); err != nil {
					slog.Warn("failed to parse tool input", "tool", block.Name, "err", err)
				}
			}
			parts = append(parts, &genai.Part{
				FunctionCall: &genai.FunctionCall{ID: block.ID, Name: block.Name, Args: args},
			})
		}
	}

	var finish genai.FinishReason
	turnComplete := true
	switch resp.StopReason {
	case "end_turn", "stop_sequence":
		finish = genai.FinishReasonStop
	case "tool_use":
		// The tool still has to run.
		finish = genai.FinishReasonStop
		turnComplete = false
	case "max_tokens":
		finish = genai.FinishReasonMaxTokens
	}

	return &adkmodel.LLMResponse{
		Content:      &genai.Content{Role: genai.RoleModel, Parts: parts},
		FinishReason: finish,
		TurnComplete: turnComplete,
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{
			PromptTokenCount:     int32(resp.Usage.InputTokens),
			CandidatesTokenCount: int32(resp.Usage.OutputTokens),
			TotalTokenCount:      int32(resp.Usage.InputTokens + resp.Usage.OutputTokens),
		},
	}
}
