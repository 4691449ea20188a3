package ai

import (
	"context"
	"errors"
	"strings"
)

// ErrEmptyResponse is returned when a provider answers without content.
var ErrEmptyResponse = errors.New("ai: empty response")

// Schema describes the JSON object a flow expects back from the model.
// It is a provider-neutral subset of OpenAPI schema, declared in YAML next
// to the prompt templates.
type Schema struct {
	Type        string             `yaml:"type" json:"type"`
	Description string             `yaml:"description,omitempty" json:"description,omitempty"`
	Properties  map[string]*Schema `yaml:"properties,omitempty" json:"properties,omitempty"`
	Items       *Schema            `yaml:"items,omitempty" json:"items,omitempty"`
	Required    []string           `yaml:"required,omitempty" json:"required,omitempty"`
	Enum        []string           `yaml:"enum,omitempty" json:"enum,omitempty"`
}

// Request is a single structured generation call.
type Request struct {
	Prompt      string
	SchemaName  string
	Schema      *Schema
	Temperature float32
}

// Generator is the interface every AI provider implements.
// Generate returns the raw model text, which is JSON when Schema is set.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}

// ProviderType represents the AI provider type
type ProviderType string

const (
	ProviderGemini ProviderType = "gemini"
	ProviderOllama ProviderType = "ollama"
	ProviderAuto   ProviderType = "auto"
)

// CleanJSON strips markdown fences and surrounding prose from a model
// answer, keeping the outermost JSON object or array.
func CleanJSON(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimPrefix(text, "```json")
		text = strings.TrimSuffix(text, "```")
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimPrefix(text, "```")
		text = strings.TrimSuffix(text, "```")
	}
	text = strings.TrimSpace(text)

	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return text
	}
	closer := "}"
	if text[start] == '[' {
		closer = "]"
	}
	end := strings.LastIndex(text, closer)
	if end <= start {
		return text
	}
	return text[start : end+1]
}
