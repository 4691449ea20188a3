package ai

import (
	"context"
	"fmt"

	"miinplanner-backend/pkg/gemini"

	"go.uber.org/zap"
)

// DynamicConfig holds AI provider configuration. The Ollama endpoint is
// read through getters so it can be changed at runtime.
type DynamicConfig struct {
	Provider         ProviderType
	GeminiAPIKey     string
	GeminiModel      string
	GetOllamaBaseURL func() string
	GetOllamaModel   func() string
}

// NewGenerator creates a Generator based on the config.
// Switch AI provider by changing config.Provider.
func NewGenerator(ctx context.Context, cfg DynamicConfig, log *zap.Logger) (Generator, error) {
	ollama := NewOllamaServiceWithGetters(cfg.GetOllamaBaseURL, cfg.GetOllamaModel)

	switch cfg.Provider {
	case ProviderGemini:
		svc, err := gemini.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return &geminiGenerator{svc: svc}, nil

	case ProviderOllama:
		return ollama, nil

	case ProviderAuto, "":
		// Gemini with Ollama fallback when an API key is available, otherwise Ollama
		if cfg.GeminiAPIKey == "" {
			return ollama, nil
		}
		svc, err := gemini.NewGeminiService(ctx, cfg.GeminiAPIKey, cfg.GeminiModel)
		if err != nil {
			return nil, err
		}
		return NewFallbackService(&geminiGenerator{svc: svc}, ollama, log), nil

	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}
