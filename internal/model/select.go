// Package model selects and constructs the language-model clients used by
// the agent. Non-Gemini providers are adapted to the ADK adkmodel.LLM
// interface.
package model

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/openai/openai-go/option"
	adkmodel "google.golang.org/adk/model"
	"google.golang.org/adk/model/gemini"
	"google.golang.org/genai"
)

// DefaultModelID is used when no model is configured.
const DefaultModelID = "llama-3.3-70b-versatile"

// Provider names a model vendor.
type Provider string

const (
	ProviderOpenAI    Provider = "openai"
	ProviderAnthropic Provider = "anthropic"
	ProviderGemini    Provider = "gemini"
	ProviderGroq      Provider = "groq"
)

// ClientConfig is the resolved model client configuration.
type ClientConfig struct {
	Provider Provider
	ModelID  string
	APIKey   string
	// BaseURL overrides the provider endpoint. Set for Groq.
	BaseURL string
}

// Select maps modelID to a provider. Matching is a case-insensitive
// substring test in fixed order: gpt, claude, gemini; anything else goes to
// Groq. An empty modelID becomes DefaultModelID.
func Select(modelID, apiKey string) ClientConfig {
	if strings.TrimSpace(modelID) == "" {
		modelID = DefaultModelID
	}
	cfg := ClientConfig{ModelID: modelID, APIKey: apiKey}

	id := strings.ToLower(modelID)
	switch {
	case strings.Contains(id, "gpt"):
		cfg.Provider = ProviderOpenAI
	case strings.Contains(id, "claude"):
		cfg.Provider = ProviderAnthropic
	case strings.Contains(id, "gemini"):
		cfg.Provider = ProviderGemini
	default:
		cfg.Provider = ProviderGroq
		cfg.BaseURL = GroqBaseURL
	}
	return cfg
}

// NewLLM creates the client described by cfg.
func NewLLM(ctx context.Context, cfg ClientConfig) (adkmodel.LLM, error) {
	var (
		llm adkmodel.LLM
		err error
	)
	switch cfg.Provider {
	case ProviderGemini:
		llm, err = gemini.NewModel(ctx, cfg.ModelID, &genai.ClientConfig{APIKey: cfg.APIKey})
	case ProviderAnthropic:
		llm, err = NewAnthropicModel(ctx, cfg.ModelID, cfg.APIKey)
	case ProviderOpenAI, ProviderGroq:
		var opts []option.RequestOption
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
		llm, err = NewOpenAIModel(ctx, cfg.ModelID, cfg.APIKey, opts...)
	default:
		return nil, fmt.Errorf("unknown model provider: %q (supported: openai, anthropic, gemini, groq)", cfg.Provider)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create %s model: %w", cfg.Provider, err)
	}
	slog.Debug("using model", "provider", cfg.Provider, "model", cfg.ModelID)
	return llm, nil
}
