package ai

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"go.uber.org/zap"
)

// FallbackService implements provider routing with fallback:
//   - structured requests (with a schema): Gemini first, Ollama on failure
//   - free-text requests: Ollama first (local, free), Gemini on failure
type FallbackService struct {
	gemini Generator
	ollama Generator
	log    *zap.Logger
}

// NewFallbackService creates a new fallback service with both providers
func NewFallbackService(gemini, ollama Generator, log *zap.Logger) *FallbackService {
	return &FallbackService{
		gemini: gemini,
		ollama: ollama,
		log:    log.Named("ai"),
	}
}

// Generate implements Generator
func (f *FallbackService) Generate(ctx context.Context, req Request) (string, error) {
	first, second := f.gemini, f.ollama
	firstName, secondName := "gemini", "ollama"
	if req.Schema == nil {
		first, second = f.ollama, f.gemini
		firstName, secondName = "ollama", "gemini"
	}

	if first != nil {
		result, err := first.Generate(ctx, req)
		if err == nil {
			return result, nil
		}
		switch {
		case isQuotaError(err):
			f.log.Warn("quota exhausted, falling back", zap.String("from", firstName), zap.String("to", secondName), zap.Error(err))
		case isConnectionError(err):
			f.log.Warn("connection failed, falling back", zap.String("from", firstName), zap.String("to", secondName), zap.Error(err))
		default:
			f.log.Warn("provider error, falling back", zap.String("from", firstName), zap.String("to", secondName), zap.Error(err))
		}
		if ctx.Err() != nil {
			return "", fmt.Errorf("%s generation failed: %w", firstName, err)
		}
	}

	if second != nil {
		result, err := second.Generate(ctx, req)
		if err != nil {
			return "", fmt.Errorf("%s generation failed: %w", secondName, err)
		}
		return result, nil
	}

	return "", fmt.Errorf("no AI provider available for %s", req.SchemaName)
}

// isConnectionError checks if the error is a network/connection error
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	connectionIndicators := []string{
		"connection refused",
		"no such host",
		"network is unreachable",
		"connection reset",
		"timeout",
		"dial tcp",
		"eof",
	}
	for _, indicator := range connectionIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}

// isQuotaError checks if the error indicates API quota exhaustion (429)
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}

	errStr := strings.ToLower(err.Error())
	quotaIndicators := []string{
		"429",
		"quota",
		"rate limit",
		"too many requests",
		"resource exhausted",
		"resource_exhausted",
	}
	for _, indicator := range quotaIndicators {
		if strings.Contains(errStr, indicator) {
			return true
		}
	}
	return false
}
