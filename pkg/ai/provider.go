// Package ai provides the model providers that draft and refine pull
// request descriptions.
//
// Providers implement a minimal single-turn chat interface. The
// refinement loop feeds each provider the whole conversation and renders
// whole drafts, so there is no streaming path.
package ai

import (
	"context"
	"log/slog"
	"os"

	"thoreinstein.com/jib/pkg/config"
	jiberrors "thoreinstein.com/jib/pkg/errors"
)

// Message represents a conversation message.
type Message struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// Response from AI provider.
type Response struct {
	Content      string
	StopReason   string // "end_turn", "max_tokens", etc.
	InputTokens  int
	OutputTokens int
}

// Provider interface for AI operations.
type Provider interface {
	// IsAvailable checks if provider is available and configured.
	IsAvailable() bool

	// Chat performs a single-turn chat completion.
	Chat(ctx context.Context, messages []Message) (*Response, error)

	// Name returns the provider name.
	Name() string
}

// Provider name constants.
const (
	ProviderAnthropic = "anthropic"
	ProviderGemini    = "gemini"
	ProviderOllama    = "ollama"
)

// NewProvider creates an AI provider based on config.
// Environment variables take precedence over config file values for API keys.
// When model is empty, provider-specific default models from config are used.
func NewProvider(cfg *config.AIConfig, verbose bool) (Provider, error) {
	if cfg == nil {
		return nil, jiberrors.NewConfigError("ai", "config is nil")
	}

	if !cfg.Enabled {
		return nil, jiberrors.NewConfigError("ai.enabled", "AI is disabled in configuration")
	}

	var logger *slog.Logger
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}

	switch cfg.Provider {
	case ProviderAnthropic:
		apiKey := resolveAnthropicAPIKey(cfg.APIKey)
		if apiKey == "" {
			return nil, jiberrors.NewConfigError("ai.api_key",
				"Anthropic API key not set (set ANTHROPIC_API_KEY or ai.api_key in config)")
		}
		// Use global model if set, otherwise use provider-specific default
		model := cfg.Model
		if model == "" {
			model = cfg.AnthropicModel
		}
		return NewAnthropicProvider(apiKey, model, logger), nil

	case ProviderGemini:
		apiKey := resolveGeminiAPIKey(cfg.APIKey)
		if apiKey == "" {
			return nil, jiberrors.NewConfigError("ai.api_key",
				"Gemini API key not set (set GEMINI_API_KEY or ai.api_key in config)")
		}
		model := cfg.Model
		if model == "" {
			model = cfg.GeminiModel
		}
		return NewGeminiProvider(apiKey, model, logger), nil

	case ProviderOllama:
		// Use global model if set, otherwise use provider-specific default
		model := cfg.Model
		if model == "" {
			model = cfg.OllamaModel
		}
		return NewOllamaProvider(cfg.OllamaEndpoint, model, logger), nil

	default:
		return nil, jiberrors.NewConfigError("ai.provider",
			"unsupported AI provider: "+cfg.Provider+" (supported: anthropic, gemini, ollama)")
	}
}

// resolveAnthropicAPIKey returns the API key from ANTHROPIC_API_KEY environment
// variable if set, otherwise falls back to the config value.
func resolveAnthropicAPIKey(configKey string) string {
	if envKey := os.Getenv("ANTHROPIC_API_KEY"); envKey != "" {
		return envKey
	}
	return configKey
}

// resolveGeminiAPIKey returns the API key from GEMINI_API_KEY or
// GOOGLE_GENAI_API_KEY if set, otherwise falls back to the config value.
// Both variables are honored because the Genkit SDK reads either.
func resolveGeminiAPIKey(configKey string) string {
	if envKey := os.Getenv("GEMINI_API_KEY"); envKey != "" {
		return envKey
	}
	if envKey := os.Getenv("GOOGLE_GENAI_API_KEY"); envKey != "" {
		return envKey
	}
	return configKey
}
